package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/auth"
	"github.com/accio/servicemeow/internal/config"
	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/repository"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// UserCreateInput describes a new account.
type UserCreateInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Role     domain.UserRole
}

// UserUpdateInput is a partial account update; nil fields are unchanged.
type UserUpdateInput struct {
	Email    *string
	FullName *string
	Role     *domain.UserRole
	IsActive *bool
	Password *string
}

// UserService manages operator accounts.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		users:      users,
		bcryptCost: cfg.BcryptCost,
		logger:     loggerOrNop(logger).Named("users"),
	}
}

// Create adds an account. Duplicate usernames or emails are a conflict.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	if input.Role == "" {
		input.Role = domain.UserRoleAgent
	}
	if !input.Role.IsValid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(input.Role)})
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password must be at least 5 characters", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.TrimSpace(input.Email),
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("username or email already exists", map[string]any{
				"username": user.Username,
				"email":    user.Email,
			})
		}
		return nil, err
	}
	return user, nil
}

// Get loads an account by id.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", map[string]any{"user_id": id.String()})
	}
	return user, nil
}

// List pages through accounts in creation order.
func (s *UserService) List(ctx context.Context, req PageRequest) (Page[domain.User], error) {
	req = req.Normalize(25, 100)
	users, total, err := s.users.List(ctx, req.PageSize, req.Offset())
	if err != nil {
		return Page[domain.User]{}, err
	}
	return NewPage(users, total, req.Page, req.PageSize), nil
}

// Update applies the supplied fields.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, input UserUpdateInput) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		user.Email = strings.TrimSpace(*input.Email)
	}
	if input.FullName != nil {
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(*input.Role)})
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, apperrors.NewValidationError("password must be at least 5 characters", nil)
		}
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already exists", map[string]any{"email": user.Email})
		}
		return nil, notFound(err, "user", map[string]any{"user_id": id.String()})
	}
	return user, nil
}

// ResolveRef accepts a UUID or a username.
func (s *UserService) ResolveRef(ctx context.Context, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	user, err := s.users.GetByUsername(ctx, ref)
	if err != nil {
		return uuid.Nil, notFound(err, "user", map[string]any{"user": ref})
	}
	return user.ID, nil
}

// EnsureAdmin creates the bootstrap admin when the username is free.
func (s *UserService) EnsureAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	if _, err := s.users.GetByUsername(ctx, cfg.AdminUsername); err == nil {
		return false, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	if _, err := s.Create(ctx, UserCreateInput{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		FullName: "Administrator",
		Password: cfg.AdminPassword,
		Role:     domain.UserRoleAdmin,
	}); err != nil {
		return false, err
	}
	s.logger.Info("bootstrap admin created", zap.String("username", cfg.AdminUsername))
	return true, nil
}
