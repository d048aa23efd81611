package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/auth"
	"github.com/accio/servicemeow/internal/config"
	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/repository"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

const minPasswordLength = 5

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	User             *domain.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// CreatedAPIKey carries the plain key, which is only available at creation.
type CreatedAPIKey struct {
	Key      *domain.APIKey
	PlainKey string
}

// AuthService coordinates login, token refresh and API key flows.
type AuthService struct {
	users      repository.UserRepository
	keys       repository.APIKeyRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	clock      Clock
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	APIKeyRepo repository.APIKeyRepository
	Logger     *zap.Logger
	Clock      Clock
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		keys:       deps.APIKeyRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes, cfg.RefreshTokenTTLHours),
		bcryptCost: cfg.BcryptCost,
		logger:     loggerOrNop(deps.Logger).Named("auth"),
		clock:      clockOrDefault(deps.Clock),
	}
}

// Login authenticates a user by username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("account is disabled")
	}
	return s.issue(user)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.NewUnauthorized("no refresh token")
	}
	claims, err := s.tokenMgr.ParseToken(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token")
	}
	user, err := s.ActiveUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*TokenPair, error) {
	access, accessExp, err := s.tokenMgr.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokenMgr.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ActiveUser loads the token subject and requires the account to be active.
func (s *AuthService) ActiveUser(ctx context.Context, userID string) (*domain.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token subject")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("user not found or inactive")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("user not found or inactive")
	}
	return user, nil
}

// VerifyAPIKey finds the active key matching plain and returns its active owner.
func (s *AuthService) VerifyAPIKey(ctx context.Context, plain string) (*domain.User, *domain.APIKey, error) {
	candidates, err := s.keys.ListByPrefix(ctx, auth.APIKeyLookup(plain))
	if err != nil {
		return nil, nil, err
	}

	for i := range candidates {
		key := &candidates[i]
		if auth.ComparePassword(key.KeyHash, plain) != nil {
			continue
		}
		if key.ExpiresAt != nil && !key.ExpiresAt.After(s.clock()) {
			return nil, nil, apperrors.NewUnauthorized("api key expired")
		}
		user, err := s.users.GetByID(ctx, key.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, apperrors.NewUnauthorized("api key owner inactive")
			}
			return nil, nil, err
		}
		if !user.IsActive {
			return nil, nil, apperrors.NewUnauthorized("api key owner inactive")
		}
		if err := s.keys.TouchLastUsed(ctx, key.ID); err != nil {
			s.logger.Warn("touch api key failed", zap.String("api_key_id", key.ID.String()), zap.Error(err))
		}
		return user, key, nil
	}
	return nil, nil, apperrors.NewUnauthorized("invalid api key")
}

// CreateAPIKey issues a key for the user. The plain value is not stored.
func (s *AuthService) CreateAPIKey(ctx context.Context, userID uuid.UUID, name string, expiresAt *time.Time) (*CreatedAPIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if expiresAt != nil && !expiresAt.After(s.clock()) {
		return nil, apperrors.NewValidationError("expires_at must be in the future", nil)
	}

	generated, err := auth.GenerateAPIKey(s.bcryptCost)
	if err != nil {
		return nil, err
	}
	key := &domain.APIKey{
		Name:      name,
		KeyPrefix: generated.Prefix,
		KeyHash:   generated.Hash,
		UserID:    userID,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, err
	}
	return &CreatedAPIKey{Key: key, PlainKey: generated.Plain}, nil
}

// ListAPIKeys returns the user's keys, newest first.
func (s *AuthService) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error) {
	return s.keys.ListByUser(ctx, userID)
}

// RevokeAPIKey deactivates one of the user's keys.
func (s *AuthService) RevokeAPIKey(ctx context.Context, userID, keyID uuid.UUID) error {
	if err := s.keys.Deactivate(ctx, keyID, userID); err != nil {
		return notFound(err, "api key", map[string]any{"api_key_id": keyID.String()})
	}
	return nil
}

// ChangeOwnPassword verifies the current password before storing the new hash.
func (s *AuthService) ChangeOwnPassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.NewValidationError("password must be at least 5 characters", nil)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFound(err, "user", map[string]any{"user_id": userID.String()})
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewBadRequest("current password is incorrect", nil)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
