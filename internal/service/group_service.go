package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/repository"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// GroupUpdateInput is a partial group update; nil fields are unchanged.
type GroupUpdateInput struct {
	Name        *string
	Description domain.Optional[string]
}

// GroupDetail is a group with its members.
type GroupDetail struct {
	Group   *domain.Group
	Members []domain.GroupMembership
}

// GroupService manages groups and their memberships.
type GroupService struct {
	groups repository.GroupRepository
	users  repository.UserRepository
}

// NewGroupService constructs the service.
func NewGroupService(groups repository.GroupRepository, users repository.UserRepository) *GroupService {
	return &GroupService{groups: groups, users: users}
}

// Create adds a group. Names are unique.
func (s *GroupService) Create(ctx context.Context, name string, description *string) (*domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	group := &domain.Group{Name: name, Description: description}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, groupConflict(err, name)
	}
	return group, nil
}

// List pages through groups with member counts.
func (s *GroupService) List(ctx context.Context, req PageRequest) (Page[domain.Group], error) {
	req = req.Normalize(50, 100)
	groups, total, err := s.groups.List(ctx, req.PageSize, req.Offset())
	if err != nil {
		return Page[domain.Group]{}, err
	}
	return NewPage(groups, total, req.Page, req.PageSize), nil
}

// Get returns a group with its members.
func (s *GroupService) Get(ctx context.Context, id uuid.UUID) (*GroupDetail, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "group", map[string]any{"group_id": id.String()})
	}
	members, err := s.groups.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &GroupDetail{Group: group, Members: members}, nil
}

// Update renames or re-describes a group.
func (s *GroupService) Update(ctx context.Context, id uuid.UUID, input GroupUpdateInput) (*domain.Group, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "group", map[string]any{"group_id": id.String()})
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		group.Name = name
	}
	if input.Description.Set {
		group.Description = input.Description.Value
	}
	if err := s.groups.Update(ctx, group); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("group", map[string]any{"group_id": id.String()})
		}
		return nil, groupConflict(err, group.Name)
	}
	return group, nil
}

// AddMember links a user to a group.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID uuid.UUID, isLead bool) (*domain.GroupMembership, error) {
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		return nil, notFound(err, "group", map[string]any{"group_id": groupID.String()})
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", map[string]any{"user_id": userID.String()})
	}

	membership := &domain.GroupMembership{
		GroupID:  groupID,
		UserID:   userID,
		IsLead:   isLead,
		Username: user.Username,
		FullName: user.FullName,
	}
	if err := s.groups.AddMember(ctx, membership); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("user is already a member of this group", map[string]any{
				"group_id": groupID.String(),
				"user_id":  userID.String(),
			})
		}
		return nil, err
	}
	return membership, nil
}

// RemoveMember unlinks a user. Tickets already assigned to the user are left as they are.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return notFound(err, "membership", map[string]any{
			"group_id": groupID.String(),
			"user_id":  userID.String(),
		})
	}
	return nil
}

// ResolveRef accepts a UUID or a group name.
func (s *GroupService) ResolveRef(ctx context.Context, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	group, err := s.groups.GetByName(ctx, ref)
	if err != nil {
		return uuid.Nil, notFound(err, "group", map[string]any{"group": ref})
	}
	return group.ID, nil
}

func groupConflict(err error, name string) error {
	if apperrors.IsUniqueViolation(err) {
		return apperrors.NewConflict("group name already exists", map[string]any{"name": name})
	}
	return err
}
