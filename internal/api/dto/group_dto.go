package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/service"
)

// CreateGroupRequest payload.
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
}

// UpdateGroupRequest payload. Description may be cleared with null.
type UpdateGroupRequest struct {
	Name        *string                 `json:"name" validate:"omitempty,max=255"`
	Description domain.Optional[string] `json:"description"`
}

// ToInput converts the request.
func (r UpdateGroupRequest) ToInput() service.GroupUpdateInput {
	return service.GroupUpdateInput{Name: r.Name, Description: r.Description}
}

// AddMemberRequest payload.
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	IsLead bool   `json:"is_lead"`
}

// GroupResponse is a group with its member count.
type GroupResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupMemberResponse is one membership.
type GroupMemberResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
	IsLead   bool      `json:"is_lead"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupDetailResponse adds members.
type GroupDetailResponse struct {
	GroupResponse
	Members []GroupMemberResponse `json:"members"`
}

// NewGroupResponse maps a group.
func NewGroupResponse(g *domain.Group) GroupResponse {
	description := ""
	if g.Description != nil {
		description = *g.Description
	}
	return GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: description,
		MemberCount: g.MemberCount,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// NewGroupMemberResponse maps a membership.
func NewGroupMemberResponse(m *domain.GroupMembership) GroupMemberResponse {
	return GroupMemberResponse{
		UserID:   m.UserID,
		Username: m.Username,
		FullName: m.FullName,
		IsLead:   m.IsLead,
		JoinedAt: m.CreatedAt,
	}
}

// NewGroupDetailResponse maps a group with members.
func NewGroupDetailResponse(detail *service.GroupDetail) GroupDetailResponse {
	members := make([]GroupMemberResponse, 0, len(detail.Members))
	for i := range detail.Members {
		members = append(members, NewGroupMemberResponse(&detail.Members[i]))
	}
	resp := GroupDetailResponse{GroupResponse: NewGroupResponse(detail.Group), Members: members}
	resp.MemberCount = len(members)
	return resp
}

// NewGroupPage maps a page of groups.
func NewGroupPage(page service.Page[domain.Group]) service.Page[GroupResponse] {
	items := make([]GroupResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, NewGroupResponse(&page.Items[i]))
	}
	return service.Page[GroupResponse]{Items: items, Total: page.Total, Page: page.Page, PageSize: page.PageSize, Pages: page.Pages}
}

// SLAConfigItem is the target pair for one priority.
type SLAConfigItem struct {
	Priority             string `json:"priority" validate:"required,oneof=critical high medium low"`
	TargetAssignMinutes  int    `json:"target_assign_minutes" validate:"gte=0"`
	TargetResolveMinutes int    `json:"target_resolve_minutes" validate:"gte=0"`
}

// UpdateSLAConfigRequest is a bulk upsert.
type UpdateSLAConfigRequest struct {
	Configs []SLAConfigItem `json:"configs" validate:"required,min=1,dive"`
}

// ToDomain converts the request.
func (r UpdateSLAConfigRequest) ToDomain() []domain.SlaConfig {
	out := make([]domain.SlaConfig, 0, len(r.Configs))
	for _, item := range r.Configs {
		out = append(out, domain.SlaConfig{
			Priority:             domain.TicketPriority(item.Priority),
			TargetAssignMinutes:  item.TargetAssignMinutes,
			TargetResolveMinutes: item.TargetResolveMinutes,
		})
	}
	return out
}

// NewSLAConfigItems maps config rows.
func NewSLAConfigItems(configs []domain.SlaConfig) []SLAConfigItem {
	out := make([]SLAConfigItem, 0, len(configs))
	for _, c := range configs {
		out = append(out, SLAConfigItem{
			Priority:             c.Priority.String(),
			TargetAssignMinutes:  c.TargetAssignMinutes,
			TargetResolveMinutes: c.TargetResolveMinutes,
		})
	}
	return out
}
