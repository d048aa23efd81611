package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActorType tags who performed an audited action.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAPIKey ActorType = "api_key"
	ActorTypeSystem ActorType = "system"
)

// AuditAction is the tag recorded for each ledger entry.
type AuditAction string

const (
	AuditActionCreated      AuditAction = "created"
	AuditActionUpdated      AuditAction = "updated"
	AuditActionDeleted      AuditAction = "deleted"
	AuditActionNoteAdded    AuditAction = "note_added"
	AuditActionFileUploaded AuditAction = "file_uploaded"
	AuditActionFileDeleted  AuditAction = "file_deleted"
)

// AuditLogEntry is an immutable audit trail entry.
type AuditLogEntry struct {
	ID           uuid.UUID
	TicketID     uuid.UUID
	ActorID      *uuid.UUID
	ActorType    ActorType
	Action       AuditAction
	FieldChanged *string
	OldValue     *string
	NewValue     *string
	Metadata     map[string]any
	CreatedAt    time.Time

	ActorName    *string
	TicketNumber *string
}
