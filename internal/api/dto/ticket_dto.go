package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/service"
	"github.com/accio/servicemeow/internal/sla"
)

// CreateTicketRequest payload. Description must be present but may be empty.
type CreateTicketRequest struct {
	Title           string  `json:"title" validate:"required,max=500"`
	Description     *string `json:"description" validate:"required"`
	Priority        string  `json:"priority" validate:"required,oneof=critical high medium low"`
	AssignedGroupID string  `json:"assigned_group_id" validate:"required,uuid"`
	AssignedUserID  *string `json:"assigned_user_id" validate:"omitempty,uuid"`
}

// ToInput converts a validated request into service input.
func (r CreateTicketRequest) ToInput() service.TicketCreateInput {
	input := service.TicketCreateInput{
		Title:           r.Title,
		Description:     *r.Description,
		Priority:        domain.TicketPriority(r.Priority),
		AssignedGroupID: uuid.MustParse(r.AssignedGroupID),
	}
	if r.AssignedUserID != nil {
		userID := uuid.MustParse(*r.AssignedUserID)
		input.AssignedUserID = &userID
	}
	return input
}

// UpdateTicketRequest is a sparse patch. A key that is present with null differs from an absent key.
type UpdateTicketRequest struct {
	Title           domain.Optional[string]                `json:"title"`
	Description     domain.Optional[string]                `json:"description"`
	Status          domain.Optional[domain.TicketStatus]   `json:"status"`
	Priority        domain.Optional[domain.TicketPriority] `json:"priority"`
	AssignedGroupID domain.Optional[uuid.UUID]             `json:"assigned_group_id"`
	AssignedUserID  domain.Optional[uuid.UUID]             `json:"assigned_user_id"`
}

// ToPatch converts the request into a service patch.
func (r UpdateTicketRequest) ToPatch() service.TicketPatch {
	return service.TicketPatch{
		Title:           r.Title,
		Description:     r.Description,
		Status:          r.Status,
		Priority:        r.Priority,
		AssignedGroupID: r.AssignedGroupID,
		AssignedUserID:  r.AssignedUserID,
	}
}

// ResolveTicketRequest carries an optional public note written before the ticket is resolved.
type ResolveTicketRequest struct {
	ResolutionNote string `json:"resolution_note" validate:"max=20000"`
}

// BulkUpdateTicketsRequest applies one status and assignment change to many tickets.
// Tickets accept UUIDs or ticket numbers, group and user accept a name or UUID.
// A null user unassigns.
type BulkUpdateTicketsRequest struct {
	TicketIDs []string                             `json:"ticket_ids" validate:"required,min=1,max=100,dive,required"`
	Status    domain.Optional[domain.TicketStatus] `json:"status"`
	Group     *string                              `json:"group"`
	User      domain.Optional[string]              `json:"user"`
}

// BulkUpdateResponse lists the tickets as committed.
type BulkUpdateResponse struct {
	Updated []TicketResponse `json:"updated"`
	Count   int              `json:"count"`
}

// NewBulkUpdateResponse maps the updated tickets.
func NewBulkUpdateResponse(tickets []*domain.Ticket) BulkUpdateResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketResponse(t))
	}
	return BulkUpdateResponse{Updated: out, Count: len(out)}
}

// SystemInfoResponse advertises the enums and limits clients need before writing.
type SystemInfoResponse struct {
	Service            string                  `json:"service"`
	Version            string                  `json:"version"`
	Statuses           []domain.TicketStatus   `json:"statuses"`
	Priorities         []domain.TicketPriority `json:"priorities"`
	Roles              []domain.UserRole       `json:"roles"`
	TicketNumberFormat string                  `json:"ticket_number_format"`
	MaxPageSize        int                     `json:"max_page_size"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID                     uuid.UUID             `json:"id"`
	TicketNumber           string                `json:"ticket_number"`
	Title                  string                `json:"title"`
	Description            string                `json:"description"`
	Status                 domain.TicketStatus   `json:"status"`
	Priority               domain.TicketPriority `json:"priority"`
	AssignedGroupID        uuid.UUID             `json:"assigned_group_id"`
	AssignedGroupName      string                `json:"assigned_group_name"`
	AssignedUserID         *uuid.UUID            `json:"assigned_user_id"`
	AssignedUserName       *string               `json:"assigned_user_name"`
	CreatedByID            uuid.UUID             `json:"created_by_id"`
	CreatedByName          string                `json:"created_by_name"`
	CreatedAt              time.Time             `json:"created_at"`
	UpdatedAt              time.Time             `json:"updated_at"`
	ResolvedAt             *time.Time            `json:"resolved_at"`
	FirstAssignedAt        *time.Time            `json:"first_assigned_at"`
	SLATargetMinutes       *int                  `json:"sla_target_minutes"`
	SLATargetAssignMinutes *int                  `json:"sla_target_assign_minutes"`
}

// TicketListItem omits the description.
type TicketListItem struct {
	ID                     uuid.UUID             `json:"id"`
	TicketNumber           string                `json:"ticket_number"`
	Title                  string                `json:"title"`
	Status                 domain.TicketStatus   `json:"status"`
	Priority               domain.TicketPriority `json:"priority"`
	AssignedGroupID        uuid.UUID             `json:"assigned_group_id"`
	AssignedGroupName      string                `json:"assigned_group_name"`
	AssignedUserID         *uuid.UUID            `json:"assigned_user_id"`
	AssignedUserName       *string               `json:"assigned_user_name"`
	CreatedByID            uuid.UUID             `json:"created_by_id"`
	CreatedByName          string                `json:"created_by_name"`
	CreatedAt              time.Time             `json:"created_at"`
	SLATargetMinutes       *int                  `json:"sla_target_minutes"`
	SLATargetAssignMinutes *int                  `json:"sla_target_assign_minutes"`
}

// TicketDetailResponse adds SLA projections and child records.
type TicketDetailResponse struct {
	TicketResponse
	Notes       []NoteResponse       `json:"notes"`
	Attachments []AttachmentResponse `json:"attachments"`
	AuditLog    []AuditLogResponse   `json:"audit_log"`
	SLAStatus   *sla.ResolveStatus   `json:"sla_status"`
	MTTAStatus  *sla.AssignStatus    `json:"mtta_status"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                     t.ID,
		TicketNumber:           t.TicketNumber,
		Title:                  t.Title,
		Description:            t.Description,
		Status:                 t.Status,
		Priority:               t.Priority,
		AssignedGroupID:        t.AssignedGroupID,
		AssignedGroupName:      t.AssignedGroupName,
		AssignedUserID:         t.AssignedUserID,
		AssignedUserName:       t.AssignedUserName,
		CreatedByID:            t.CreatedByID,
		CreatedByName:          t.CreatedByName,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
		ResolvedAt:             t.ResolvedAt,
		FirstAssignedAt:        t.FirstAssignedAt,
		SLATargetMinutes:       t.SLATargetMinutes,
		SLATargetAssignMinutes: t.SLATargetAssignMinutes,
	}
}

// NewTicketListPage maps a page of tickets.
func NewTicketListPage(page service.Page[domain.Ticket]) service.Page[TicketListItem] {
	items := make([]TicketListItem, 0, len(page.Items))
	for i := range page.Items {
		t := &page.Items[i]
		items = append(items, TicketListItem{
			ID:                     t.ID,
			TicketNumber:           t.TicketNumber,
			Title:                  t.Title,
			Status:                 t.Status,
			Priority:               t.Priority,
			AssignedGroupID:        t.AssignedGroupID,
			AssignedGroupName:      t.AssignedGroupName,
			AssignedUserID:         t.AssignedUserID,
			AssignedUserName:       t.AssignedUserName,
			CreatedByID:            t.CreatedByID,
			CreatedByName:          t.CreatedByName,
			CreatedAt:              t.CreatedAt,
			SLATargetMinutes:       t.SLATargetMinutes,
			SLATargetAssignMinutes: t.SLATargetAssignMinutes,
		})
	}
	return service.Page[TicketListItem]{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Pages:    page.Pages,
	}
}

// NewTicketDetailResponse maps a ticket with its related records.
func NewTicketDetailResponse(detail *service.TicketDetail) TicketDetailResponse {
	return TicketDetailResponse{
		TicketResponse: NewTicketResponse(detail.Ticket),
		Notes:          NewNoteResponses(detail.Notes),
		Attachments:    NewAttachmentResponses(detail.Attachments),
		AuditLog:       NewAuditLogResponses(detail.AuditLog),
		SLAStatus:      detail.SLAStatus,
		MTTAStatus:     detail.MTTAStatus,
	}
}

// AuditLogResponse is one ledger entry.
type AuditLogResponse struct {
	ID           uuid.UUID          `json:"id"`
	TicketID     uuid.UUID          `json:"ticket_id"`
	TicketNumber *string            `json:"ticket_number,omitempty"`
	ActorID      *uuid.UUID         `json:"actor_id"`
	ActorType    domain.ActorType   `json:"actor_type"`
	ActorName    *string            `json:"actor_name"`
	Action       domain.AuditAction `json:"action"`
	FieldChanged *string            `json:"field_changed"`
	OldValue     *string            `json:"old_value"`
	NewValue     *string            `json:"new_value"`
	Metadata     map[string]any     `json:"metadata"`
	CreatedAt    time.Time          `json:"created_at"`
}

// NewAuditLogResponses maps ledger entries.
func NewAuditLogResponses(entries []domain.AuditLogEntry) []AuditLogResponse {
	out := make([]AuditLogResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, AuditLogResponse{
			ID:           e.ID,
			TicketID:     e.TicketID,
			TicketNumber: e.TicketNumber,
			ActorID:      e.ActorID,
			ActorType:    e.ActorType,
			ActorName:    e.ActorName,
			Action:       e.Action,
			FieldChanged: e.FieldChanged,
			OldValue:     e.OldValue,
			NewValue:     e.NewValue,
			Metadata:     e.Metadata,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}

// NewAuditLogPage maps a page of activity.
func NewAuditLogPage(page service.Page[domain.AuditLogEntry]) service.Page[AuditLogResponse] {
	return service.Page[AuditLogResponse]{
		Items:    NewAuditLogResponses(page.Items),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Pages:    page.Pages,
	}
}
