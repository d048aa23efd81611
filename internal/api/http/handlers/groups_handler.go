package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/api/dto"
	"github.com/accio/servicemeow/internal/service"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// GroupsHandler serves group and membership endpoints.
type GroupsHandler struct {
	groups *service.GroupService
}

// NewGroupsHandler constructs handler.
func NewGroupsHandler(groups *service.GroupService) *GroupsHandler {
	return &GroupsHandler{groups: groups}
}

// Create handles POST /groups.
func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateGroupRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}
	group, err := h.groups.Create(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewGroupResponse(group))
}

// List handles GET /groups.
func (h *GroupsHandler) List(c *fiber.Ctx) error {
	page, err := pageParams(c, maxPageSize)
	if err != nil {
		return err
	}
	result, err := h.groups.List(c.UserContext(), page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewGroupPage(result))
}

// Get handles GET /groups/:id. The id may also be a group name.
func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	id, err := h.groups.ResolveRef(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	detail, err := h.groups.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewGroupDetailResponse(detail))
}

// Update handles PATCH /groups/:id.
func (h *GroupsHandler) Update(c *fiber.Ctx) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateGroupRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}
	group, err := h.groups.Update(c.UserContext(), id, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewGroupResponse(group))
}

// AddMember handles POST /groups/:id/members.
func (h *GroupsHandler) AddMember(c *fiber.Ctx) error {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AddMemberRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}
	membership, err := h.groups.AddMember(c.UserContext(), groupID, uuid.MustParse(req.UserID), req.IsLead)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewGroupMemberResponse(membership))
}

// RemoveMember handles DELETE /groups/:id/members/:userId.
func (h *GroupsHandler) RemoveMember(c *fiber.Ctx) error {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathUUID(c, "userId")
	if err != nil {
		return err
	}
	if err := h.groups.RemoveMember(c.UserContext(), groupID, userID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SLAConfigHandler serves per-priority SLA targets.
type SLAConfigHandler struct {
	configs *service.SLAConfigService
}

// NewSLAConfigHandler constructs handler.
func NewSLAConfigHandler(configs *service.SLAConfigService) *SLAConfigHandler {
	return &SLAConfigHandler{configs: configs}
}

// List handles GET /sla-config.
func (h *SLAConfigHandler) List(c *fiber.Ctx) error {
	configs, err := h.configs.List(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewSLAConfigItems(configs))
}

// Update handles PATCH /sla-config (admin). Existing tickets keep their frozen targets.
func (h *SLAConfigHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateSLAConfigRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}
	configs, err := h.configs.BulkUpsert(c.UserContext(), req.ToDomain())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewSLAConfigItems(configs))
}

// DashboardHandler serves aggregate views.
type DashboardHandler struct {
	dashboard *service.DashboardService
	groups    RefResolver
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService, groups RefResolver) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, groups: groups}
}

// Summary handles GET /dashboard/summary.
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.dashboard.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, summary)
}

// SLAMetrics handles GET /dashboard/sla.
func (h *DashboardHandler) SLAMetrics(c *fiber.Ctx) error {
	query := service.SLAMetricsQuery{Priority: c.Query("priority")}
	var err error
	if query.GroupID, err = optionalRef(c, "group_id", h.groups); err != nil {
		return err
	}
	if query.DateFrom, err = optionalTime(c, "date_from"); err != nil {
		return err
	}
	if query.DateTo, err = optionalTime(c, "date_to"); err != nil {
		return err
	}

	metrics, err := h.dashboard.SLAMetrics(c.UserContext(), query)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, metrics)
}

// Activity handles GET /dashboard/activity.
func (h *DashboardHandler) Activity(c *fiber.Ctx) error {
	page, err := pageParams(c, maxPageSize)
	if err != nil {
		return err
	}
	result, err := h.dashboard.Activity(c.UserContext(), page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewAuditLogPage(result))
}

// optionalTime accepts RFC 3339 timestamps or plain dates.
func optionalTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError("invalid timestamp", map[string]any{key: raw})
}
