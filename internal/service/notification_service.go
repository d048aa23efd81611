package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/config"
	"github.com/accio/servicemeow/internal/events"
)

// channels a notice is routed to.
const (
	channelEmail   = "email"
	channelWebhook = "webhook"
)

// fields whose change is worth telling people about; edits to title or description are not.
var notifiableFields = map[string]bool{
	"status":            true,
	"priority":          true,
	"assigned_group_id": true,
	"assigned_user_id":  true,
}

// notice is what would be delivered for one event.
type notice struct {
	subject  string
	channels []string
}

// NotificationService turns ticket events into email/webhook notices.
// Delivery is logged only; no mail or HTTP client is wired.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     loggerOrNop(logger).Named("notifications"),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to ticket events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventNoteAdded,
		events.EventSLABreached,
	} {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	nt, ok := buildNotice(event)
	if !ok {
		return nil
	}
	for _, channel := range nt.channels {
		n.deliver(ctx, channel, nt.subject, event)
	}
	return nil
}

func buildNotice(event events.Event) (notice, bool) {
	prefix := "[" + event.TicketNumber + "] "
	switch event.Type {
	case events.EventTicketCreated:
		title := ""
		if p, ok := event.Payload.(events.TicketCreatedPayload); ok {
			title = ": " + p.Title
		}
		return notice{subject: prefix + "New ticket" + title, channels: []string{channelEmail, channelWebhook}}, true

	case events.EventTicketUpdated:
		p, ok := event.Payload.(events.TicketUpdatedPayload)
		if !ok {
			return notice{}, false
		}
		var changed []string
		for _, change := range p.Changes {
			if notifiableFields[change.Field] {
				changed = append(changed, change.Field)
			}
		}
		if len(changed) == 0 {
			return notice{}, false
		}
		return notice{subject: prefix + "Updated " + strings.Join(changed, ", "), channels: []string{channelWebhook}}, true

	case events.EventNoteAdded:
		if p, ok := event.Payload.(events.NoteAddedPayload); ok && p.IsInternal {
			return notice{}, false
		}
		return notice{subject: prefix + "New note", channels: []string{channelEmail}}, true

	case events.EventSLABreached:
		subject := prefix + "Resolution SLA breached"
		if p, ok := event.Payload.(events.SLABreachedPayload); ok {
			subject = fmt.Sprintf("%s (%s, %d of %d minutes)", subject, p.Priority, p.ElapsedMinutes, p.TargetMinutes)
		}
		return notice{subject: subject, channels: []string{channelEmail, channelWebhook}}, true
	}
	return notice{}, false
}

func (n *NotificationService) deliver(_ context.Context, channel, subject string, event events.Event) {
	var target string
	switch channel {
	case channelEmail:
		target = strings.TrimSpace(n.cfg.EmailFrom)
	case channelWebhook:
		target = strings.TrimSpace(n.cfg.WebhookURL)
	}
	if target == "" {
		return
	}
	n.logger.Info("notification queued",
		zap.String("channel", channel),
		zap.String("target", target),
		zap.String("subject", subject),
		zap.String("event_type", string(event.Type)),
		zap.Stringer("ticket_id", event.TicketID))
}
