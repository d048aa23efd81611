package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/events"
	"github.com/accio/servicemeow/internal/repository"
	"github.com/accio/servicemeow/internal/sanitize"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// NoteService manages the comment thread on tickets.
type NoteService struct {
	notes      repository.NoteRepository
	tickets    repository.TicketRepository
	users      repository.UserRepository
	audit      *AuditService
	tx         Transactor
	sanitizer  sanitize.Sanitizer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      Clock
}

// NoteDependencies bundles collaborators for the note service.
type NoteDependencies struct {
	NoteRepo   repository.NoteRepository
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Audit      *AuditService
	Tx         Transactor
	Sanitizer  sanitize.Sanitizer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// NewNoteService constructs the service.
func NewNoteService(deps NoteDependencies) *NoteService {
	return &NoteService{
		notes:      deps.NoteRepo,
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		audit:      deps.Audit,
		tx:         deps.Tx,
		sanitizer:  deps.Sanitizer,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger).Named("notes"),
		clock:      clockOrDefault(deps.Clock),
	}
}

// Add appends a sanitized note and a "note_added" audit entry.
func (s *NoteService) Add(ctx context.Context, actor domain.Actor, ticketID uuid.UUID, content string, isInternal bool) (*domain.TicketNote, error) {
	var (
		note   *domain.TicketNote
		ticket *domain.Ticket
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		note, ticket, err = s.addInTx(ctx, actor, ticketID, content, isInternal)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterAdd(ctx, actor, ticket, note)
	return note, nil
}

// addInTx writes the note and its audit entry. ctx must carry the caller's transaction.
func (s *NoteService) addInTx(ctx context.Context, actor domain.Actor, ticketID uuid.UUID, content string, isInternal bool) (*domain.TicketNote, *domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID.String()})
	}

	clean := s.sanitizer.Sanitize(content)
	if clean == "" {
		return nil, nil, apperrors.NewValidationError("content is empty after sanitization", nil)
	}
	note := &domain.TicketNote{
		TicketID:   ticketID,
		AuthorID:   actor.ID,
		Content:    clean,
		IsInternal: isInternal,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, nil, err
	}

	if _, err := s.audit.Record(ctx, AuditRecord{
		TicketID: ticketID,
		Actor:    actor,
		Action:   domain.AuditActionNoteAdded,
		Metadata: map[string]any{"note_id": note.ID.String(), "is_internal": isInternal},
	}); err != nil {
		return nil, nil, err
	}
	return note, ticket, nil
}

// afterAdd runs once the note is committed.
func (s *NoteService) afterAdd(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, note *domain.TicketNote) {
	if author, err := s.users.GetByID(ctx, actor.ID); err == nil {
		note.AuthorName = author.FullName
	}
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventNoteAdded, ticket, actor, s.clock(), events.NoteAddedPayload{
		NoteID:     note.ID,
		IsInternal: note.IsInternal,
	}))
}

// Edit replaces the note content. Visibility and created_at are kept.
func (s *NoteService) Edit(ctx context.Context, ticketID, noteID uuid.UUID, content string) (*domain.TicketNote, error) {
	note, err := s.notes.GetByID(ctx, ticketID, noteID)
	if err != nil {
		return nil, notFound(err, "note", map[string]any{"note_id": noteID.String()})
	}
	note.Content = s.sanitizer.Sanitize(content)
	if note.Content == "" {
		return nil, apperrors.NewValidationError("content is empty after sanitization", nil)
	}
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, notFound(err, "note", map[string]any{"note_id": noteID.String()})
	}
	return note, nil
}

// List returns a ticket's notes oldest first.
func (s *NoteService) List(ctx context.Context, ticketID uuid.UUID) ([]domain.TicketNote, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID.String()})
	}
	return s.notes.ListByTicket(ctx, ticketID)
}
