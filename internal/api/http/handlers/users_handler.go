package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/accio/servicemeow/internal/api/dto"
	"github.com/accio/servicemeow/internal/auth"
	"github.com/accio/servicemeow/internal/service"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// AuthHandler exposes login, refresh and logout.
type AuthHandler struct {
	auth         *service.AuthService
	secureCookie bool
}

// NewAuthHandler constructs handler. secureCookie marks the refresh cookie Secure.
func NewAuthHandler(authService *service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: authService, secureCookie: secureCookie}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	pair, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	return respond(c, http.StatusOK, dto.TokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer", ExpiresAt: pair.AccessExpiresAt})
}

// Refresh handles POST /auth/refresh using the refresh token cookie.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(RefreshCookie)
	if token == "" {
		return apperrors.NewUnauthorized("refresh token missing")
	}

	pair, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	return respond(c, http.StatusOK, dto.TokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer", ExpiresAt: pair.AccessExpiresAt})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(RefreshCookie)
	return respond(c, http.StatusOK, fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookie,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// UsersHandler exposes profile and user administration endpoints.
type UsersHandler struct {
	users *service.UserService
	auth  *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, authService *service.AuthService) *UsersHandler {
	return &UsersHandler{users: users, auth: authService}
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserResponse(user))
}

// ChangePassword handles POST /users/me/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}
	if err := h.auth.ChangeOwnPassword(c.UserContext(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Create handles POST /users (admin).
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewUserResponse(user))
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	page, err := pageParams(c, maxPageSize)
	if err != nil {
		return err
	}
	result, err := h.users.List(c.UserContext(), page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserPage(result))
}

// Get handles GET /users/:id. The id may also be a username.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := h.users.ResolveRef(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserResponse(user))
}

// Update handles PATCH /users/:id (admin).
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), id, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserResponse(user))
}

// APIKeysHandler manages the caller's API keys.
type APIKeysHandler struct {
	auth *service.AuthService
}

// NewAPIKeysHandler constructs handler.
func NewAPIKeysHandler(authService *service.AuthService) *APIKeysHandler {
	return &APIKeysHandler{auth: authService}
}

// Create handles POST /api-keys. The plain key is only returned here.
func (h *APIKeysHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateAPIKeyRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}
	created, err := h.auth.CreateAPIKey(c.UserContext(), actor.ID, req.Name, req.ExpiresAt)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.APIKeyCreateResponse{
		APIKeyResponse: dto.NewAPIKeyResponse(created.Key),
		PlainKey:       created.PlainKey,
	})
}

// List handles GET /api-keys.
func (h *APIKeysHandler) List(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	keys, err := h.auth.ListAPIKeys(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	out := make([]dto.APIKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, dto.NewAPIKeyResponse(&keys[i]))
	}
	return respond(c, http.StatusOK, out)
}

// Revoke handles DELETE /api-keys/:id.
func (h *APIKeysHandler) Revoke(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.auth.RevokeAPIKey(c.UserContext(), actor.ID, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
