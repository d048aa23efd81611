package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/api/dto"
	"github.com/accio/servicemeow/internal/auth"
	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/service"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

const maxPageSize = 100

// TicketAPI is the ticket lifecycle surface used by the handler.
type TicketAPI interface {
	TicketResolver
	Create(ctx context.Context, actor domain.Actor, input service.TicketCreateInput) (*domain.Ticket, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, patch service.TicketPatch) (*domain.Ticket, error)
	SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*service.TicketDetail, error)
	List(ctx context.Context, query service.TicketListQuery) (service.Page[domain.Ticket], error)
	ListMine(ctx context.Context, actor domain.Actor, status string, page service.PageRequest) (service.Page[domain.Ticket], error)
	Resolve(ctx context.Context, actor domain.Actor, id uuid.UUID, resolutionNote string) (*domain.Ticket, error)
	BulkUpdate(ctx context.Context, actor domain.Actor, ids []uuid.UUID, patch service.TicketPatch) ([]*domain.Ticket, error)
}

// AuditReader lists a ticket's ledger.
type AuditReader interface {
	ListForTicket(ctx context.Context, ticketID uuid.UUID) ([]domain.AuditLogEntry, error)
}

// TicketsHandler serves ticket endpoints.
type TicketsHandler struct {
	tickets TicketAPI
	audit   AuditReader
	groups  RefResolver
	users   RefResolver
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketAPI, audit AuditReader, groups, users RefResolver) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, audit: audit, groups: groups, users: users}
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}

	var req dto.CreateTicketRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	ticket, err := h.tickets.Create(c.UserContext(), actor, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewTicketResponse(ticket))
}

// List handles GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	page, err := pageParams(c, maxPageSize)
	if err != nil {
		return err
	}
	slaBreached, err := optionalBool(c, "sla_breached")
	if err != nil {
		return err
	}

	query := service.TicketListQuery{
		Status:      c.Query("status"),
		Priority:    c.Query("priority"),
		SLABreached: slaBreached,
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
		Page:        page,
	}
	if query.AssignedGroupID, err = optionalRef(c, "assigned_group_id", h.groups); err != nil {
		return err
	}
	if query.AssignedUserID, err = optionalRef(c, "assigned_user_id", h.users); err != nil {
		return err
	}
	if query.CreatedByID, err = optionalRef(c, "created_by_id", h.users); err != nil {
		return err
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query.Search = &search
	}

	result, err := h.tickets.List(c.UserContext(), query)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketListPage(result))
}

// Mine handles GET /tickets/mine: tickets assigned to the caller.
func (h *TicketsHandler) Mine(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c, maxPageSize)
	if err != nil {
		return err
	}

	result, err := h.tickets.ListMine(c.UserContext(), actor, c.Query("status"), page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketListPage(result))
}

// Get handles GET /tickets/:id with notes, attachments, audit trail and SLA status.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	id, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}
	detail, err := h.tickets.GetDetail(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketDetailResponse(detail))
}

// GetByNumber handles GET /tickets/by-number/:number.
func (h *TicketsHandler) GetByNumber(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// Update handles PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}

	var req dto.UpdateTicketRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}
	if req.AssignedGroupID.IsNull() {
		return apperrors.NewValidationError("assigned_group_id cannot be null", map[string]any{"field": "assigned_group_id"})
	}

	ticket, err := h.tickets.Update(c.UserContext(), actor, id, req.ToPatch())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// Resolve handles POST /tickets/:id/resolve. The body is optional.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}

	var req dto.ResolveTicketRequest
	if len(c.Body()) > 0 {
		if err := dto.Decode(c.Body(), &req); err != nil {
			return err
		}
	}

	ticket, err := h.tickets.Resolve(c.UserContext(), actor, id, req.ResolutionNote)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// BulkUpdate handles POST /tickets/bulk-update. Either every ticket changes or none does.
func (h *TicketsHandler) BulkUpdate(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}

	var req dto.BulkUpdateTicketsRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	ids := make([]uuid.UUID, 0, len(req.TicketIDs))
	for _, ref := range req.TicketIDs {
		id, err := h.tickets.ResolveTicketRef(ctx, ref)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	patch := service.TicketPatch{Status: req.Status}
	if req.Group != nil {
		groupID, err := h.groups.ResolveRef(ctx, *req.Group)
		if err != nil {
			return err
		}
		patch.AssignedGroupID = domain.Some(groupID)
	}
	switch {
	case req.User.IsNull():
		patch.AssignedUserID = domain.Null[uuid.UUID]()
	case req.User.Set:
		userID, err := h.users.ResolveRef(ctx, *req.User.Value)
		if err != nil {
			return err
		}
		patch.AssignedUserID = domain.Some(userID)
	}

	tickets, err := h.tickets.BulkUpdate(ctx, actor, ids, patch)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewBulkUpdateResponse(tickets))
}

// Delete handles DELETE /tickets/:id. Tickets are resolved, never removed.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}
	if err := h.tickets.SoftDelete(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AuditLog handles GET /tickets/:id/audit-log, newest first.
func (h *TicketsHandler) AuditLog(c *fiber.Ctx) error {
	id, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}
	if _, err := h.tickets.Get(c.UserContext(), id); err != nil {
		return err
	}
	entries, err := h.audit.ListForTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewAuditLogResponses(entries))
}
