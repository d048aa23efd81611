package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketNote is a comment thread entry on a ticket.
type TicketNote struct {
	ID         uuid.UUID
	TicketID   uuid.UUID
	AuthorID   uuid.UUID
	Content    string
	IsInternal bool
	CreatedAt  time.Time
	UpdatedAt  time.Time

	AuthorName string
}

// Attachment stores metadata for a file uploaded to a ticket.
type Attachment struct {
	ID               uuid.UUID
	TicketID         uuid.UUID
	NoteID           *uuid.UUID
	Filename         string
	OriginalFilename string
	FilePath         string
	FileSize         int64
	ContentType      string
	UploadedByID     uuid.UUID
	CreatedAt        time.Time

	UploadedByName string
}
