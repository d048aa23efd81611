package domain

import (
	"time"

	"github.com/google/uuid"
)

// Group is a team tickets are routed to.
type Group struct {
	ID          uuid.UUID
	Name        string
	Description *string
	MemberCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GroupMembership links a user to a group.
type GroupMembership struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	UserID    uuid.UUID
	IsLead    bool
	CreatedAt time.Time

	Username string
	FullName string
}
