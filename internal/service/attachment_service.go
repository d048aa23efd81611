package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/events"
	"github.com/accio/servicemeow/internal/repository"
	"github.com/accio/servicemeow/internal/storage"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// AttachmentService stores ticket files and their metadata.
type AttachmentService struct {
	attachments repository.AttachmentRepository
	tickets     repository.TicketRepository
	users       repository.UserRepository
	store       storage.FileStore
	audit       *AuditService
	tx          Transactor
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	clock       Clock
}

// AttachmentDependencies bundles collaborators for the attachment service.
type AttachmentDependencies struct {
	AttachmentRepo repository.AttachmentRepository
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	Store          storage.FileStore
	Audit          *AuditService
	Tx             Transactor
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          Clock
}

// NewAttachmentService constructs the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	return &AttachmentService{
		attachments: deps.AttachmentRepo,
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		store:       deps.Store,
		audit:       deps.Audit,
		tx:          deps.Tx,
		dispatcher:  deps.Dispatcher,
		logger:      loggerOrNop(deps.Logger).Named("attachments"),
		clock:       clockOrDefault(deps.Clock),
	}
}

// Upload writes the file and records it with a "file_uploaded" audit entry.
func (s *AttachmentService) Upload(ctx context.Context, actor domain.Actor, ticketID uuid.UUID, originalName string, data []byte) (*domain.Attachment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID.String()})
	}

	stored, err := s.store.Save(ticketID, originalName, data)
	if err != nil {
		return nil, err
	}

	attachment := &domain.Attachment{
		TicketID:         ticketID,
		Filename:         stored.Filename,
		OriginalFilename: stored.OriginalFilename,
		FilePath:         stored.Path,
		FileSize:         stored.Size,
		ContentType:      stored.ContentType,
		UploadedByID:     actor.ID,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.attachments.Create(ctx, attachment); err != nil {
			return err
		}
		_, err := s.audit.Record(ctx, AuditRecord{
			TicketID: ticketID,
			Actor:    actor,
			Action:   domain.AuditActionFileUploaded,
			Metadata: map[string]any{"attachment_id": attachment.ID.String(), "filename": attachment.OriginalFilename},
		})
		return err
	})
	if err != nil {
		s.removeFile(stored.Path)
		return nil, err
	}

	if uploader, err := s.users.GetByID(ctx, actor.ID); err == nil {
		attachment.UploadedByName = uploader.FullName
	}
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventAttachmentUploaded, ticket, actor, s.clock(), events.AttachmentPayload{
		AttachmentID: attachment.ID,
		Filename:     attachment.OriginalFilename,
	}))
	return attachment, nil
}

// List returns a ticket's attachments oldest first.
func (s *AttachmentService) List(ctx context.Context, ticketID uuid.UUID) ([]domain.Attachment, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": ticketID.String()})
	}
	return s.attachments.ListByTicket(ctx, ticketID)
}

// Get returns attachment metadata.
func (s *AttachmentService) Get(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	attachment, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "attachment", map[string]any{"attachment_id": id.String()})
	}
	return attachment, nil
}

// Download returns the metadata and file content.
func (s *AttachmentService) Download(ctx context.Context, id uuid.UUID) (*domain.Attachment, []byte, error) {
	attachment, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.store.Read(attachment.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return attachment, data, nil
}

// Delete removes an attachment. Only the uploader or an admin may do so.
// The audit entry is written before the row is deleted; the file goes after commit.
func (s *AttachmentService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	var (
		attachment *domain.Attachment
		ticket     *domain.Ticket
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		attachment, err = s.attachments.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "attachment", map[string]any{"attachment_id": id.String()})
		}
		if attachment.UploadedByID != actor.ID && !actor.IsAdmin() {
			return apperrors.NewForbidden("only the uploader or an admin can delete this attachment")
		}
		ticket, err = s.tickets.GetByID(ctx, attachment.TicketID)
		if err != nil {
			return notFound(err, "ticket", map[string]any{"ticket_id": attachment.TicketID.String()})
		}

		if _, err := s.audit.Record(ctx, AuditRecord{
			TicketID: attachment.TicketID,
			Actor:    actor,
			Action:   domain.AuditActionFileDeleted,
			Metadata: map[string]any{"attachment_id": attachment.ID.String(), "filename": attachment.OriginalFilename},
		}); err != nil {
			return err
		}
		return notFound(s.attachments.Delete(ctx, id), "attachment", map[string]any{"attachment_id": id.String()})
	})
	if err != nil {
		return err
	}

	s.removeFile(attachment.FilePath)
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventAttachmentDeleted, ticket, actor, s.clock(), events.AttachmentPayload{
		AttachmentID: attachment.ID,
		Filename:     attachment.OriginalFilename,
	}))
	return nil
}

// UploadEditorImage stores an inline image for the rich text editor.
func (s *AttachmentService) UploadEditorImage(originalName string, data []byte) (*storage.StoredFile, error) {
	return s.store.SaveEditorImage(originalName, data)
}

// ReadEditorImage returns an inline image and its content type.
func (s *AttachmentService) ReadEditorImage(filename string) ([]byte, string, error) {
	return s.store.ReadEditorImage(filename)
}

func (s *AttachmentService) removeFile(path string) {
	if err := s.store.Remove(path); err != nil {
		s.logger.Warn("remove attachment file failed", zap.String("path", path), zap.Error(err))
	}
}
