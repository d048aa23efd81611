package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/domain"
)

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Content    string `json:"content" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

// UpdateNoteRequest payload.
type UpdateNoteRequest struct {
	Content string `json:"content" validate:"required"`
}

// NoteResponse is a ticket note.
type NoteResponse struct {
	ID         uuid.UUID `json:"id"`
	TicketID   uuid.UUID `json:"ticket_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewNoteResponse maps a note.
func NewNoteResponse(n *domain.TicketNote) NoteResponse {
	return NoteResponse{
		ID:         n.ID,
		TicketID:   n.TicketID,
		AuthorID:   n.AuthorID,
		AuthorName: n.AuthorName,
		Content:    n.Content,
		IsInternal: n.IsInternal,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}

// NewNoteResponses maps notes.
func NewNoteResponses(notes []domain.TicketNote) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		out = append(out, NewNoteResponse(&notes[i]))
	}
	return out
}

// AttachmentResponse is attachment metadata. The stored path is never exposed.
type AttachmentResponse struct {
	ID               uuid.UUID  `json:"id"`
	TicketID         uuid.UUID  `json:"ticket_id"`
	NoteID           *uuid.UUID `json:"note_id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	FileSize         int64      `json:"file_size"`
	ContentType      string     `json:"content_type"`
	UploadedByID     uuid.UUID  `json:"uploaded_by_id"`
	UploadedByName   string     `json:"uploaded_by_name"`
	UploadedAt       time.Time  `json:"uploaded_at"`
}

// NewAttachmentResponse maps an attachment.
func NewAttachmentResponse(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:               a.ID,
		TicketID:         a.TicketID,
		NoteID:           a.NoteID,
		Filename:         a.Filename,
		OriginalFilename: a.OriginalFilename,
		FileSize:         a.FileSize,
		ContentType:      a.ContentType,
		UploadedByID:     a.UploadedByID,
		UploadedByName:   a.UploadedByName,
		UploadedAt:       a.CreatedAt,
	}
}

// NewAttachmentResponses maps attachments.
func NewAttachmentResponses(attachments []domain.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		out = append(out, NewAttachmentResponse(&attachments[i]))
	}
	return out
}

// EditorImageResponse points at an uploaded editor image.
type EditorImageResponse struct {
	URL string `json:"url"`
}
