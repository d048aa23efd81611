package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/repository"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// AssignmentService checks that a ticket's group and user fit together.
type AssignmentService struct {
	groups repository.GroupRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(groups repository.GroupRepository) *AssignmentService {
	return &AssignmentService{groups: groups}
}

// Validate requires the group to exist and, when a user is given, that the user belongs to it.
// Only ticket create and update call this; removing a membership later leaves tickets untouched.
func (s *AssignmentService) Validate(ctx context.Context, groupID uuid.UUID, userID *uuid.UUID) (*domain.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, notFound(err, "assigned group", map[string]any{"group_id": groupID.String()})
	}
	if userID == nil {
		return group, nil
	}

	if _, err := s.groups.GetMembership(ctx, groupID, *userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("assigned user is not a member of the assigned group", map[string]any{
				"group_id": groupID.String(),
				"user_id":  userID.String(),
			})
		}
		return nil, err
	}
	return group, nil
}
