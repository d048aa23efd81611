package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTicketDeleted      EventType = "ticket_deleted"
	EventNoteAdded          EventType = "note_added"
	EventAttachmentUploaded EventType = "attachment_uploaded"
	EventAttachmentDeleted  EventType = "attachment_deleted"
	EventSLABreached        EventType = "sla_breached"
)

// TicketEventTypes lists every event that changes ticket-derived counts.
var TicketEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketDeleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.ActorType `json:"type"`
	ID   *uuid.UUID       `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	TicketID     uuid.UUID `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	Actor        Actor     `json:"actor"`
	Timestamp    time.Time `json:"timestamp"`
	Payload      any       `json:"payload"`
}

// NewEvent stamps an event for the ticket with a fresh id.
func NewEvent(eventType EventType, ticket *domain.Ticket, actor domain.Actor, at time.Time, payload any) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Actor:        Actor{Type: actor.AuditType(), ID: actor.AuditID()},
		Timestamp:    at,
		Payload:      payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title           string                `json:"title"`
	Priority        domain.TicketPriority `json:"priority"`
	AssignedGroupID uuid.UUID             `json:"assigned_group_id"`
	AssignedUserID  *uuid.UUID            `json:"assigned_user_id,omitempty"`
}

// FieldChange is one audited field difference.
type FieldChange struct {
	Field    string  `json:"field"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Changes []FieldChange `json:"changes"`
}

// NoteAddedPayload payload.
type NoteAddedPayload struct {
	NoteID     uuid.UUID `json:"note_id"`
	IsInternal bool      `json:"is_internal"`
}

// AttachmentPayload payload for uploads and deletions.
type AttachmentPayload struct {
	AttachmentID uuid.UUID `json:"attachment_id"`
	Filename     string    `json:"filename"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Priority       domain.TicketPriority `json:"priority"`
	TargetMinutes  int                   `json:"target_minutes"`
	ElapsedMinutes int                   `json:"elapsed_minutes"`
}
