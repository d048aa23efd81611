package service

import (
	"context"
	"errors"
	"maps"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/events"
	"github.com/accio/servicemeow/internal/repository"
	"github.com/accio/servicemeow/internal/sanitize"
	"github.com/accio/servicemeow/internal/sla"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

const (
	defaultTicketPageSize = 25
	maxTicketPageSize     = 100
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	slaConfigs  repository.SLAConfigRepository
	notes       repository.NoteRepository
	attachments repository.AttachmentRepository
	assignment  *AssignmentService
	audit       *AuditService
	noteService *NoteService
	tx          Transactor
	sanitizer   sanitize.Sanitizer
	calculator  *sla.Calculator
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	clock       Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	SLAConfigRepo  repository.SLAConfigRepository
	NoteRepo       repository.NoteRepository
	AttachmentRepo repository.AttachmentRepository
	Assignment     *AssignmentService
	Audit          *AuditService
	Notes          *NoteService
	Tx             Transactor
	Sanitizer      sanitize.Sanitizer
	Calculator     *sla.Calculator
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title           string
	Description     string
	Priority        domain.TicketPriority
	AssignedGroupID uuid.UUID
	AssignedUserID  *uuid.UUID
}

// TicketPatch is a sparse update. Unset fields are left alone.
type TicketPatch struct {
	Title           domain.Optional[string]
	Description     domain.Optional[string]
	Status          domain.Optional[domain.TicketStatus]
	Priority        domain.Optional[domain.TicketPriority]
	AssignedGroupID domain.Optional[uuid.UUID]
	AssignedUserID  domain.Optional[uuid.UUID]
}

// TicketListQuery describes list filters as received from callers.
type TicketListQuery struct {
	// Status is a single status or a comma separated list.
	Status          string
	Priority        string
	AssignedGroupID *uuid.UUID
	AssignedUserID  *uuid.UUID
	CreatedByID     *uuid.UUID
	Search          *string
	SLABreached     bool
	SortBy          string
	SortOrder       string
	Page            PageRequest
}

// TicketDetail is a ticket with its SLA projections and related records.
type TicketDetail struct {
	Ticket      *domain.Ticket
	SLAStatus   *sla.ResolveStatus
	MTTAStatus  *sla.AssignStatus
	Notes       []domain.TicketNote
	Attachments []domain.Attachment
	AuditLog    []domain.AuditLogEntry
}

// NewTicketService creates a ticket service.
func NewTicketService(deps TicketDependencies) *TicketService {
	calculator := deps.Calculator
	if calculator == nil {
		calculator = sla.NewCalculator()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		slaConfigs:  deps.SLAConfigRepo,
		notes:       deps.NoteRepo,
		attachments: deps.AttachmentRepo,
		assignment:  deps.Assignment,
		audit:       deps.Audit,
		noteService: deps.Notes,
		tx:          deps.Tx,
		sanitizer:   deps.Sanitizer,
		calculator:  calculator,
		dispatcher:  deps.Dispatcher,
		logger:      loggerOrNop(deps.Logger).Named("tickets"),
		clock:       clockOrDefault(deps.Clock),
	}
}

// Create opens a ticket with frozen SLA targets and a "created" audit entry.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !input.Priority.IsValid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(input.Priority)})
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	var ticketID uuid.UUID
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.assignment.Validate(ctx, input.AssignedGroupID, input.AssignedUserID); err != nil {
			return err
		}

		number, err := s.tickets.NextTicketNumber(ctx)
		if err != nil {
			return err
		}

		now := s.clock()
		ticket := &domain.Ticket{
			TicketNumber:    number,
			Title:           title,
			Description:     s.sanitizer.Sanitize(input.Description),
			Status:          domain.TicketStatusOpen,
			Priority:        input.Priority,
			AssignedGroupID: input.AssignedGroupID,
			AssignedUserID:  input.AssignedUserID,
			CreatedByID:     actor.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if input.AssignedUserID != nil {
			ticket.FirstAssignedAt = &now
		}

		cfg, err := s.slaConfigs.GetByPriority(ctx, input.Priority)
		switch {
		case err == nil:
			resolve, assign := cfg.TargetResolveMinutes, cfg.TargetAssignMinutes
			ticket.SLATargetMinutes = &resolve
			ticket.SLATargetAssignMinutes = &assign
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return err
		}

		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		ticketID = ticket.ID

		_, err = s.audit.Record(ctx, AuditRecord{
			TicketID: ticket.ID,
			Actor:    actor,
			Action:   domain.AuditActionCreated,
			Metadata: map[string]any{"ticket_number": number},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketCreated, ticket, actor, ticket.CreatedAt, events.TicketCreatedPayload{
		Title:           ticket.Title,
		Priority:        ticket.Priority,
		AssignedGroupID: ticket.AssignedGroupID,
		AssignedUserID:  ticket.AssignedUserID,
	}))
	return ticket, nil
}

// Update applies a sparse patch, writing one "updated" audit entry per changed field.
// A patch that changes nothing performs no write.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, patch TicketPatch) (*domain.Ticket, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var changes []events.FieldChange
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		changes, err = s.applyPatch(ctx, actor, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.finishUpdate(ctx, actor, id, changes)
}

// applyPatch diffs and writes a validated patch. ctx must carry the caller's transaction.
func (s *TicketService) applyPatch(ctx context.Context, actor domain.Actor, id uuid.UUID, patch TicketPatch) ([]events.FieldChange, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": id.String()})
	}

	groupID := ticket.AssignedGroupID
	if patch.AssignedGroupID.Set {
		groupID = *patch.AssignedGroupID.Value
	}
	userID := ticket.AssignedUserID
	if patch.AssignedUserID.Set {
		userID = patch.AssignedUserID.Value
	}

	var group *domain.Group
	if patch.AssignedGroupID.Set || patch.AssignedUserID.Set {
		group, err = s.assignment.Validate(ctx, groupID, userID)
		if err != nil {
			return nil, err
		}
	}

	now := s.clock()
	var changes []events.FieldChange
	record := func(field string, oldValue, newValue *string) {
		changes = append(changes, events.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}

	if patch.Title.Set {
		title := strings.TrimSpace(*patch.Title.Value)
		if title != ticket.Title {
			record("title", strPtr(ticket.Title), strPtr(title))
			ticket.Title = title
		}
	}
	if patch.Description.Set {
		description := s.sanitizer.Sanitize(*patch.Description.Value)
		if description != ticket.Description {
			record("description", strPtr(ticket.Description), strPtr(description))
			ticket.Description = description
		}
	}
	if patch.Status.Set && *patch.Status.Value != ticket.Status {
		status := *patch.Status.Value
		record("status", strPtr(ticket.Status.String()), strPtr(status.String()))
		ticket.Status = status
		if status == domain.TicketStatusResolved {
			ticket.ResolvedAt = &now
		}
	}
	if patch.Priority.Set && *patch.Priority.Value != ticket.Priority {
		priority := *patch.Priority.Value
		record("priority", strPtr(ticket.Priority.String()), strPtr(priority.String()))
		ticket.Priority = priority
	}
	if patch.AssignedGroupID.Set && groupID != ticket.AssignedGroupID {
		record("assigned_group_id", strPtr(ticket.AssignedGroupName), strPtr(group.Name))
		ticket.AssignedGroupID = groupID
		ticket.AssignedGroupName = group.Name
	}
	if patch.AssignedUserID.Set && !sameUser(ticket.AssignedUserID, userID) {
		var newName *string
		if userID != nil {
			newName, err = s.userDisplayName(ctx, *userID)
			if err != nil {
				return nil, err
			}
			if ticket.FirstAssignedAt == nil {
				ticket.FirstAssignedAt = &now
			}
		}
		record("assigned_user_id", ticket.AssignedUserName, newName)
		ticket.AssignedUserID = userID
		ticket.AssignedUserName = newName
	}

	if len(changes) == 0 {
		return nil, nil
	}

	ticket.UpdatedAt = now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": id.String()})
	}
	for _, change := range changes {
		if _, err := s.audit.Record(ctx, AuditRecord{
			TicketID:     ticket.ID,
			Actor:        actor,
			Action:       domain.AuditActionUpdated,
			FieldChanged: strPtr(change.Field),
			OldValue:     change.OldValue,
			NewValue:     change.NewValue,
		}); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// finishUpdate reloads the committed ticket and announces the changes.
func (s *TicketService) finishUpdate(ctx context.Context, actor domain.Actor, id uuid.UUID, changes []events.FieldChange) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketUpdated, ticket, actor, ticket.UpdatedAt, events.TicketUpdatedPayload{Changes: changes}))
	}
	return ticket, nil
}

// Resolve adds an optional public resolution note and marks the ticket resolved in one transaction.
func (s *TicketService) Resolve(ctx context.Context, actor domain.Actor, id uuid.UUID, resolutionNote string) (*domain.Ticket, error) {
	var (
		note       *domain.TicketNote
		noteTicket *domain.Ticket
		changes    []events.FieldChange
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if strings.TrimSpace(resolutionNote) != "" {
			note, noteTicket, err = s.noteService.addInTx(ctx, actor, id, resolutionNote, false)
			if err != nil {
				return err
			}
		}
		changes, err = s.applyPatch(ctx, actor, id, TicketPatch{Status: domain.Some(domain.TicketStatusResolved)})
		return err
	})
	if err != nil {
		return nil, err
	}

	if note != nil {
		s.noteService.afterAdd(ctx, actor, noteTicket, note)
	}
	return s.finishUpdate(ctx, actor, id, changes)
}

// BulkUpdate applies the same status and assignment patch to every ticket in one transaction.
// The first failing ticket aborts the batch and nothing is written.
func (s *TicketService) BulkUpdate(ctx context.Context, actor domain.Actor, ids []uuid.UUID, patch TicketPatch) ([]*domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("ticket_ids must not be empty", nil)
	}
	if patch.Title.Set || patch.Description.Set || patch.Priority.Set {
		return nil, apperrors.NewValidationError("bulk update only changes status and assignment", nil)
	}
	if !patch.Status.Set && !patch.AssignedGroupID.Set && !patch.AssignedUserID.Set {
		return nil, apperrors.NewValidationError("nothing to update", nil)
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	ids = uniqueIDs(ids)
	changes := make([][]events.FieldChange, len(ids))
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for i, id := range ids {
			changed, err := s.applyPatch(ctx, actor, id, patch)
			if err != nil {
				return bulkItemError(id, err)
			}
			changes[i] = changed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tickets := make([]*domain.Ticket, 0, len(ids))
	for i, id := range ids {
		ticket, err := s.finishUpdate(ctx, actor, id, changes[i])
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	s.logger.Info("bulk update applied", zap.Int("tickets", len(ids)), zap.Stringer("actor_id", actor.ID))
	return tickets, nil
}

// bulkItemError tags a domain error with the ticket that caused it.
func bulkItemError(id uuid.UUID, err error) error {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code == apperrors.CodeInternal {
		return err
	}
	details := map[string]any{"ticket_id": id.String()}
	maps.Copy(details, domainErr.Details)
	tagged := apperrors.NewDomainError(domainErr.Code, id.String()+": "+domainErr.Message, domainErr.HTTPStatus, details)
	tagged.Err = domainErr.Err
	return tagged
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// SoftDelete marks the ticket resolved and records a "deleted" entry. The row is kept.
func (s *TicketService) SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	var deleted *domain.Ticket
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			return notFound(err, "ticket", map[string]any{"ticket_id": id.String()})
		}

		now := s.clock()
		ticket.Status = domain.TicketStatusResolved
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
		}
		ticket.UpdatedAt = now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return notFound(err, "ticket", map[string]any{"ticket_id": id.String()})
		}
		if _, err := s.audit.Record(ctx, AuditRecord{
			TicketID: ticket.ID,
			Actor:    actor,
			Action:   domain.AuditActionDeleted,
		}); err != nil {
			return err
		}
		deleted = ticket
		return nil
	})
	if err != nil {
		return err
	}

	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketDeleted, deleted, actor, deleted.UpdatedAt, nil))
	return nil
}

// Get loads a ticket with group and user names.
func (s *TicketService) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_id": id.String()})
	}
	return ticket, nil
}

// GetByNumber loads a ticket by its ASM- number, case-insensitively.
func (s *TicketService) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	normalized := strings.ToUpper(strings.TrimSpace(number))
	ticket, err := s.tickets.GetByNumber(ctx, normalized)
	if err != nil {
		return nil, notFound(err, "ticket", map[string]any{"ticket_number": normalized})
	}
	return ticket, nil
}

// ResolveTicketRef accepts a UUID or an ASM- ticket number and returns the ticket id.
func (s *TicketService) ResolveTicketRef(ctx context.Context, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(strings.ToUpper(ref), domain.TicketNumberPrefix) {
		ticket, err := s.GetByNumber(ctx, ref)
		if err != nil {
			return uuid.Nil, err
		}
		return ticket.ID, nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("invalid ticket identifier", map[string]any{"ticket": ref})
	}
	return id, nil
}

// GetDetail loads a ticket together with its SLA projections, notes, attachments and audit trail.
func (s *TicketService) GetDetail(ctx context.Context, id uuid.UUID) (*TicketDetail, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	notes, err := s.notes.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	auditLog, err := s.audit.ListForTicket(ctx, id)
	if err != nil {
		return nil, err
	}

	return &TicketDetail{
		Ticket:      ticket,
		SLAStatus:   s.calculator.ResolveStatus(ticket),
		MTTAStatus:  s.calculator.AssignStatus(ticket),
		Notes:       notes,
		Attachments: attachments,
		AuditLog:    auditLog,
	}, nil
}

// List returns one page of tickets matching the query.
func (s *TicketService) List(ctx context.Context, query TicketListQuery) (Page[domain.Ticket], error) {
	filter, err := buildListFilter(query)
	if err != nil {
		return Page[domain.Ticket]{}, err
	}
	req := query.Page.Normalize(defaultTicketPageSize, maxTicketPageSize)
	filter.Limit = req.PageSize
	filter.Offset = req.Offset()

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return Page[domain.Ticket]{}, err
	}
	return NewPage(tickets, total, req.Page, req.PageSize), nil
}

// ListMine returns the tickets currently assigned to the actor.
func (s *TicketService) ListMine(ctx context.Context, actor domain.Actor, status string, page PageRequest) (Page[domain.Ticket], error) {
	return s.List(ctx, TicketListQuery{
		Status:         status,
		AssignedUserID: &actor.ID,
		Page:           page,
	})
}

func buildListFilter(query TicketListQuery) (repository.TicketListFilter, error) {
	filter := repository.TicketListFilter{
		AssignedGroupID: query.AssignedGroupID,
		AssignedUserID:  query.AssignedUserID,
		CreatedByID:     query.CreatedByID,
		Search:          query.Search,
		SLABreached:     query.SLABreached,
		SortBy:          query.SortBy,
		SortOrder:       query.SortOrder,
	}

	for _, raw := range strings.Split(query.Status, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return filter, apperrors.NewValidationError(err.Error(), map[string]any{"status": raw})
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	if raw := strings.TrimSpace(query.Priority); raw != "" {
		priority, err := domain.ParseTicketPriority(raw)
		if err != nil {
			return filter, apperrors.NewValidationError(err.Error(), map[string]any{"priority": raw})
		}
		filter.Priority = &priority
	}
	return filter, nil
}

func validatePatch(patch TicketPatch) error {
	if patch.AssignedGroupID.IsNull() {
		return apperrors.NewValidationError("assigned_group_id cannot be null", nil)
	}
	nullable := []struct {
		field  string
		isNull bool
	}{
		{"title", patch.Title.IsNull()},
		{"description", patch.Description.IsNull()},
		{"status", patch.Status.IsNull()},
		{"priority", patch.Priority.IsNull()},
	}
	for _, n := range nullable {
		if n.isNull {
			return apperrors.NewValidationError(n.field+" cannot be null", nil)
		}
	}
	if patch.Title.Set && strings.TrimSpace(*patch.Title.Value) == "" {
		return apperrors.NewValidationError("title cannot be empty", nil)
	}
	if patch.Status.Set && !patch.Status.Value.IsValid() {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": string(*patch.Status.Value)})
	}
	if patch.Priority.Set && !patch.Priority.Value.IsValid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(*patch.Priority.Value)})
	}
	return nil
}

func sameUser(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *TicketService) userDisplayName(ctx context.Context, id uuid.UUID) (*string, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return strPtr(id.String()), nil
		}
		return nil, err
	}
	return strPtr(user.FullName), nil
}
