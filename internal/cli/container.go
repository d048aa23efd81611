package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/auth"
	"github.com/accio/servicemeow/internal/cache"
	"github.com/accio/servicemeow/internal/config"
	"github.com/accio/servicemeow/internal/events"
	"github.com/accio/servicemeow/internal/observability"
	"github.com/accio/servicemeow/internal/persistence"
	"github.com/accio/servicemeow/internal/repository"
	"github.com/accio/servicemeow/internal/sanitize"
	"github.com/accio/servicemeow/internal/service"
	"github.com/accio/servicemeow/internal/sla"
	"github.com/accio/servicemeow/internal/storage"
	"github.com/accio/servicemeow/internal/worker"
)

// bootstrap holds process-wide infrastructure shared by every command.
type bootstrap struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func newBootstrap(ctx context.Context) (*bootstrap, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}
	return &bootstrap{cfg: cfg, logger: logger, pg: pg}, nil
}

func (b *bootstrap) Close() {
	b.pg.Close()
	_ = b.logger.Sync()
}

// container wires repositories and services over one pool.
type container struct {
	dispatcher   events.Dispatcher
	calculator   *sla.Calculator
	metrics      *observability.Metrics
	summaryCache cache.DashboardCache
	tickets      repository.TicketRepository

	authService   *service.AuthService
	users         *service.UserService
	groups        *service.GroupService
	slaConfigs    *service.SLAConfigService
	audit         *service.AuditService
	ticketService *service.TicketService
	notes         *service.NoteService
	attachments   *service.AttachmentService
	dashboard     *service.DashboardService
	notifications *service.NotificationService
	authMW        *auth.AuthMiddleware
}

// newContainer builds the service graph. redis may be nil, which disables the summary cache.
func newContainer(rt *bootstrap, redis *persistence.Redis) (*container, error) {
	cfg := rt.cfg
	logger := rt.logger
	pool := rt.pg.PoolHandle()

	userRepo := repository.NewUserRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	slaRepo := repository.NewSLAConfigRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	fileStore, err := storage.NewLocalFileStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to init file store: %w", err)
	}

	c := &container{
		dispatcher: events.NewInMemoryDispatcher(logger),
		calculator: sla.NewCalculator(),
		metrics:    observability.NewMetrics(),
		tickets:    ticketRepo,
	}
	if redis != nil {
		c.summaryCache = cache.NewRedisDashboardCache(redis.Client, cfg.Redis.DashboardTTL())
	} else {
		c.summaryCache = cache.NewRedisDashboardCache(nil, 0)
	}

	tx := persistence.NewTxManager(pool)
	sanitizer := sanitize.NewHTMLSanitizer()

	c.authService = service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		APIKeyRepo: apiKeyRepo,
		Logger:     logger,
	})
	c.users = service.NewUserService(cfg.Auth, userRepo, logger)
	c.groups = service.NewGroupService(groupRepo, userRepo)
	c.slaConfigs = service.NewSLAConfigService(slaRepo, tx, logger)
	c.audit = service.NewAuditService(auditRepo)
	c.notes = service.NewNoteService(service.NoteDependencies{
		NoteRepo:   noteRepo,
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Audit:      c.audit,
		Tx:         tx,
		Sanitizer:  sanitizer,
		Dispatcher: c.dispatcher,
		Logger:     logger,
	})
	c.ticketService = service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		UserRepo:       userRepo,
		SLAConfigRepo:  slaRepo,
		NoteRepo:       noteRepo,
		AttachmentRepo: attachmentRepo,
		Assignment:     service.NewAssignmentService(groupRepo),
		Audit:          c.audit,
		Notes:          c.notes,
		Tx:             tx,
		Sanitizer:      sanitizer,
		Calculator:     c.calculator,
		Dispatcher:     c.dispatcher,
		Logger:         logger,
	})
	c.attachments = service.NewAttachmentService(service.AttachmentDependencies{
		AttachmentRepo: attachmentRepo,
		TicketRepo:     ticketRepo,
		UserRepo:       userRepo,
		Store:          fileStore,
		Audit:          c.audit,
		Tx:             tx,
		Dispatcher:     c.dispatcher,
		Logger:         logger,
	})
	c.dashboard = service.NewDashboardService(ticketRepo, groupRepo, c.audit, c.summaryCache, logger)
	c.notifications = service.NewNotificationService(c.dispatcher, logger, cfg.Notification)
	c.authMW = auth.NewAuthMiddleware(c.authService.TokenManager(), c.authService, c.authService)

	worker.StartEventSubscribers(c.dispatcher, c.notifications, c.summaryCache, logger)
	return c, nil
}

func (c *container) slaMonitor(rt *bootstrap) *worker.SLAMonitor {
	return worker.NewSLAMonitor(c.tickets, c.calculator, c.dispatcher, c.metrics, rt.logger, rt.cfg.SLA.MonitorInterval())
}
