package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/repository"
)

// AuditRecord is one ledger entry to append.
type AuditRecord struct {
	TicketID     uuid.UUID
	Actor        domain.Actor
	Action       domain.AuditAction
	FieldChanged *string
	OldValue     *string
	NewValue     *string
	Metadata     map[string]any
}

// AuditService appends and reads the ticket audit trail.
type AuditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates the service.
func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Record appends an entry using the transaction carried by ctx, if any.
func (s *AuditService) Record(ctx context.Context, rec AuditRecord) (*domain.AuditLogEntry, error) {
	entry := &domain.AuditLogEntry{
		TicketID:     rec.TicketID,
		ActorID:      rec.Actor.AuditID(),
		ActorType:    rec.Actor.AuditType(),
		Action:       rec.Action,
		FieldChanged: rec.FieldChanged,
		OldValue:     rec.OldValue,
		NewValue:     rec.NewValue,
		Metadata:     rec.Metadata,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListForTicket returns a ticket's entries newest first.
func (s *AuditService) ListForTicket(ctx context.Context, ticketID uuid.UUID) ([]domain.AuditLogEntry, error) {
	return s.repo.ListByTicket(ctx, ticketID)
}

// ListActivity returns the global feed newest first.
func (s *AuditService) ListActivity(ctx context.Context, req PageRequest) (Page[domain.AuditLogEntry], error) {
	req = req.Normalize(50, 100)
	entries, total, err := s.repo.ListRecent(ctx, req.PageSize, req.Offset())
	if err != nil {
		return Page[domain.AuditLogEntry]{}, err
	}
	return NewPage(entries, total, req.Page, req.PageSize), nil
}
