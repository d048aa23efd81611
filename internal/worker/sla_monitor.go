package worker

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/events"
	"github.com/accio/servicemeow/internal/observability"
	"github.com/accio/servicemeow/internal/sla"
)

// OpenTicketSource lists open and under_investigation tickets that carry a resolve target.
type OpenTicketSource interface {
	ListOpenWithTarget(ctx context.Context) ([]domain.Ticket, error)
}

// SLAMonitor periodically flags open tickets that exceeded their resolution target.
// It only logs and publishes; tickets are never modified.
type SLAMonitor struct {
	tickets    OpenTicketSource
	calculator *sla.Calculator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	interval   time.Duration

	// breached lives for the process lifetime; a restart reports every breach again.
	mu       sync.Mutex
	breached map[uuid.UUID]struct{}

	scheduler gocron.Scheduler
	cancel    context.CancelFunc
}

// NewSLAMonitor builds a monitor. Interval defaults to one minute.
func NewSLAMonitor(tickets OpenTicketSource, calculator *sla.Calculator, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *SLAMonitor {
	if calculator == nil {
		calculator = sla.NewCalculator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &SLAMonitor{
		tickets:    tickets,
		calculator: calculator,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger.Named("sla_monitor"),
		interval:   interval,
		breached:   map[uuid.UUID]struct{}{},
	}
}

// Start schedules the sweep, running the first one immediately.
func (m *SLAMonitor) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	_, err = scheduler.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(func() {
			sweepCtx, sweepCancel := context.WithTimeout(runCtx, m.interval)
			defer sweepCancel()
			if _, err := m.Sweep(sweepCtx); err != nil && runCtx.Err() == nil {
				m.logger.Error("sla sweep failed", zap.Error(err))
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("sla-monitor"),
	)
	if err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return err
	}

	m.scheduler = scheduler
	m.cancel = cancel
	scheduler.Start()
	m.logger.Info("sla monitor started", zap.Duration("interval", m.interval))
	return nil
}

// Stop cancels an in-flight sweep and shuts the scheduler down.
func (m *SLAMonitor) Stop() error {
	if m.scheduler == nil {
		return nil
	}
	m.cancel()
	err := m.scheduler.Shutdown()
	m.scheduler = nil
	m.logger.Info("sla monitor stopped")
	return err
}

// Sweep checks every open ticket once and returns how many were newly breached.
func (m *SLAMonitor) Sweep(ctx context.Context) (int, error) {
	tickets, err := m.tickets.ListOpenWithTarget(ctx)
	if err != nil {
		m.metrics.RecordSLASweep(0, err)
		return 0, err
	}

	m.mu.Lock()
	var fresh []domain.Ticket
	breachedNow := 0
	for i := range tickets {
		ticket := &tickets[i]
		if !m.calculator.IsBreached(ticket) {
			continue
		}
		breachedNow++
		if _, seen := m.breached[ticket.ID]; seen {
			continue
		}
		m.breached[ticket.ID] = struct{}{}
		fresh = append(fresh, *ticket)
	}
	m.mu.Unlock()

	now := time.Now().UTC()
	if m.calculator.Now != nil {
		now = m.calculator.Now()
	}
	for i := range fresh {
		ticket := &fresh[i]
		elapsedMinutes := m.calculator.ElapsedSeconds(ticket) / 60
		m.logger.Warn("sla breached",
			zap.String("ticket_number", ticket.TicketNumber),
			zap.String("priority", ticket.Priority.String()),
			zap.Int("target_minutes", *ticket.SLATargetMinutes),
			zap.Int("elapsed_minutes", elapsedMinutes))

		if m.dispatcher != nil {
			event := events.NewEvent(events.EventSLABreached, ticket, domain.SystemActor, now, events.SLABreachedPayload{
				Priority:       ticket.Priority,
				TargetMinutes:  *ticket.SLATargetMinutes,
				ElapsedMinutes: elapsedMinutes,
			})
			if err := m.dispatcher.Publish(ctx, event); err != nil {
				m.logger.Warn("publish sla breach failed", zap.Error(err))
			}
		}
	}

	if breachedNow > 0 {
		m.logger.Info("sla sweep complete",
			zap.Int("checked", len(tickets)),
			zap.Int("breached", breachedNow),
			zap.Int("newly_breached", len(fresh)))
	}
	m.metrics.RecordSLASweep(len(fresh), nil)
	return len(fresh), nil
}
