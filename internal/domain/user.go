package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserRole controls what a user may administer.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleAgent   UserRole = "agent"
)

// UserRoles lists every role from most to least privileged.
var UserRoles = []UserRole{UserRoleAdmin, UserRoleManager, UserRoleAgent}

// IsValid reports whether r is a known role.
func (r UserRole) IsValid() bool {
	for _, candidate := range UserRoles {
		if r == candidate {
			return true
		}
	}
	return false
}

// User is a help-desk operator.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Role         UserRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// APIKey authenticates automation on behalf of a user.
type APIKey struct {
	ID         uuid.UUID
	Name       string
	KeyPrefix  string
	KeyHash    string
	UserID     uuid.UUID
	IsActive   bool
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AuthKind records how a caller authenticated.
type AuthKind string

const (
	AuthKindJWT    AuthKind = "jwt"
	AuthKindAPIKey AuthKind = "api_key"
	AuthKindSystem AuthKind = "system"
)

// Actor is the authenticated identity attributed to a mutation.
type Actor struct {
	ID       uuid.UUID
	Role     UserRole
	Kind     AuthKind
	APIKeyID *uuid.UUID
}

// SystemActor is used by background jobs and CLI commands.
var SystemActor = Actor{Kind: AuthKindSystem}

// AuditType maps the auth kind onto the audit actor type.
func (a Actor) AuditType() ActorType {
	switch a.Kind {
	case AuthKindAPIKey:
		return ActorTypeAPIKey
	case AuthKindSystem:
		return ActorTypeSystem
	default:
		return ActorTypeUser
	}
}

// AuditID returns the actor id, or nil for system actions.
func (a Actor) AuditID() *uuid.UUID {
	if a.Kind == AuthKindSystem || a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == UserRoleAdmin
}
