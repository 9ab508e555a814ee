package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/bi-triage-agent/pkg/util/errorutil"
)

// RequireRole ensures the principal carries one of the allowed roles.
func RequireRole(allowed ...string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAdmin is RequireRole(RoleAdmin).
func RequireAdmin() fiber.Handler {
	return RequireRole(RoleAdmin)
}
