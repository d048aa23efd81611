package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/accio/servicemeow/internal/domain"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

const (
	actorKey = "auth_actor"

	// APIKeyHeader carries a plain API key.
	APIKeyHeader = "api_key"
)

// ActiveUserLoader loads an active user for a verified token subject.
type ActiveUserLoader interface {
	ActiveUser(ctx context.Context, userID string) (*domain.User, error)
}

// APIKeyVerifier resolves a plain API key to its owner.
type APIKeyVerifier interface {
	VerifyAPIKey(ctx context.Context, plain string) (*domain.User, *domain.APIKey, error)
}

// AuthMiddleware validates bearer tokens or API keys and stores the actor.
type AuthMiddleware struct {
	tokens *TokenManager
	users  ActiveUserLoader
	keys   APIKeyVerifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users ActiveUserLoader, keys APIKeyVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, keys: keys}
}

// Handle enforces authentication for protected routes. Bearer tokens win over API keys.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.NewUnauthorized("invalid authorization header")
		}

		claims, err := m.tokens.ParseToken(parts[1], TokenTypeAccess)
		if err != nil {
			return apperrors.NewUnauthorized("invalid or expired token")
		}

		user, err := m.users.ActiveUser(c.UserContext(), claims.Subject)
		if err != nil {
			return err
		}
		c.Locals(actorKey, domain.Actor{ID: user.ID, Role: user.Role, Kind: domain.AuthKindJWT})
		return c.Next()
	}

	if plain := c.Get(APIKeyHeader); plain != "" {
		user, key, err := m.keys.VerifyAPIKey(c.UserContext(), plain)
		if err != nil {
			return err
		}
		keyID := key.ID
		c.Locals(actorKey, domain.Actor{ID: user.ID, Role: user.Role, Kind: domain.AuthKindAPIKey, APIKeyID: &keyID})
		return c.Next()
	}

	return apperrors.NewUnauthorized("authentication required")
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorKey).(domain.Actor)
	return actor, ok
}

// MustActor returns the actor or an unauthorized error.
func MustActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}
