package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/service"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an access token. The refresh token travels in a cookie.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreateUserRequest payload.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=5"`
	Role     string `json:"role" validate:"omitempty,oneof=admin manager agent"`
}

// ToInput converts the request.
func (r CreateUserRequest) ToInput() service.UserCreateInput {
	return service.UserCreateInput{
		Username: r.Username,
		Email:    r.Email,
		FullName: r.FullName,
		Password: r.Password,
		Role:     domain.UserRole(r.Role),
	}
}

// UpdateUserRequest payload. Absent fields are left alone.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin manager agent"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password" validate:"omitempty,min=5"`
}

// ToInput converts the request.
func (r UpdateUserRequest) ToInput() service.UserUpdateInput {
	input := service.UserUpdateInput{
		Email:    r.Email,
		FullName: r.FullName,
		IsActive: r.IsActive,
		Password: r.Password,
	}
	if r.Role != nil {
		role := domain.UserRole(*r.Role)
		input.Role = &role
	}
	return input
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=5"`
}

// UserResponse is a user without credentials.
type UserResponse struct {
	ID        uuid.UUID       `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	FullName  string          `json:"full_name"`
	Role      domain.UserRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewUserResponse maps a user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUserPage maps a page of users.
func NewUserPage(page service.Page[domain.User]) service.Page[UserResponse] {
	items := make([]UserResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, NewUserResponse(&page.Items[i]))
	}
	return service.Page[UserResponse]{Items: items, Total: page.Total, Page: page.Page, PageSize: page.PageSize, Pages: page.Pages}
}

// CreateAPIKeyRequest payload.
type CreateAPIKeyRequest struct {
	Name      string     `json:"name" validate:"required,max=255"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// APIKeyResponse describes a key without its secret.
type APIKeyResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// APIKeyCreateResponse includes the plain key, returned once.
type APIKeyCreateResponse struct {
	APIKeyResponse
	PlainKey string `json:"plain_key"`
}

// NewAPIKeyResponse maps a key.
func NewAPIKeyResponse(k *domain.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		IsActive:   k.IsActive,
		LastUsedAt: k.LastUsedAt,
		ExpiresAt:  k.ExpiresAt,
		CreatedAt:  k.CreatedAt,
	}
}
