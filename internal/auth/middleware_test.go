package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accio/servicemeow/internal/domain"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

type fakeUsers struct {
	users map[string]*domain.User
}

func (f *fakeUsers) ActiveUser(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok || !user.IsActive {
		return nil, apperrors.NewUnauthorized("user not found or inactive")
	}
	return user, nil
}

type fakeKeys struct {
	plain string
	user  *domain.User
	key   *domain.APIKey
}

func (f *fakeKeys) VerifyAPIKey(_ context.Context, plain string) (*domain.User, *domain.APIKey, error) {
	if plain != f.plain {
		return nil, nil, apperrors.NewUnauthorized("invalid api key")
	}
	return f.user, f.key, nil
}

func newTestApp(t *testing.T, mw *AuthMiddleware, guards ...fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if de := apperrors.ToDomainError(err); de != nil {
				return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
			}
			return c.SendStatus(http.StatusInternalServerError)
		},
	})
	handlers := append([]fiber.Handler{mw.Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		actor, err := MustActor(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"kind": actor.Kind, "role": actor.Role})
	})
	app.Get("/me", handlers...)
	return app
}

func TestMiddlewareAuthenticatesBearerAndAPIKey(t *testing.T) {
	tm := NewTokenManager("secret", 15, 24)
	admin := &domain.User{ID: uuid.New(), Role: domain.UserRoleAdmin, IsActive: true}
	agent := &domain.User{ID: uuid.New(), Role: domain.UserRoleAgent, IsActive: true}
	users := &fakeUsers{users: map[string]*domain.User{admin.ID.String(): admin, agent.ID.String(): agent}}
	keys := &fakeKeys{plain: "asm_abc", user: agent, key: &domain.APIKey{ID: uuid.New()}}
	app := newTestApp(t, NewAuthMiddleware(tm, users, keys))

	token, _, err := tm.GenerateAccessToken(admin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(APIKeyHeader, "asm_abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejections(t *testing.T) {
	tm := NewTokenManager("secret", 15, 24)
	inactive := &domain.User{ID: uuid.New(), Role: domain.UserRoleAgent}
	users := &fakeUsers{users: map[string]*domain.User{inactive.ID.String(): inactive}}
	app := newTestApp(t, NewAuthMiddleware(tm, users, &fakeKeys{plain: "asm_ok"}))

	refresh, _, err := tm.GenerateRefreshToken(inactive)
	require.NoError(t, err)
	access, _, err := tm.GenerateAccessToken(inactive)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"no credentials", "", ""},
		{"malformed header", "Authorization", "Token abc"},
		{"refresh token as access", "Authorization", "Bearer " + refresh},
		{"inactive user", "Authorization", "Bearer " + access},
		{"bad api key", APIKeyHeader, "asm_nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tm := NewTokenManager("secret", 15, 24)
	agent := &domain.User{ID: uuid.New(), Role: domain.UserRoleAgent, IsActive: true}
	manager := &domain.User{ID: uuid.New(), Role: domain.UserRoleManager, IsActive: true}
	users := &fakeUsers{users: map[string]*domain.User{agent.ID.String(): agent, manager.ID.String(): manager}}
	app := newTestApp(t, NewAuthMiddleware(tm, users, &fakeKeys{}), RequireManager())

	for user, want := range map[*domain.User]int{agent: http.StatusForbidden, manager: http.StatusOK} {
		token, _, err := tm.GenerateAccessToken(user)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, string(user.Role))
	}
}
