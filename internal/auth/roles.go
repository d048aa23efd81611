package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/accio/servicemeow/internal/domain"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// RequireRole ensures the actor holds one of the allowed roles.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
		names = append(names, string(role))
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewForbidden(fmt.Sprintf("role %s not authorized, required one of: %s",
				actor.Role, strings.Join(names, ", ")))
		}
		return c.Next()
	}
}

// RequireAdmin is shorthand for admin-only routes.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.UserRoleAdmin)
}

// RequireManager allows admins and managers.
func RequireManager() fiber.Handler {
	return RequireRole(domain.UserRoleAdmin, domain.UserRoleManager)
}
