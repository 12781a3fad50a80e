package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ksicht/ksicht-api/internal/utils"
)

// RequireStaff lets through staff members and superusers only.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if !principal.IsStaff() {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// RequireParticipant lets through authenticated participants. Staff may act as participants too.
func RequireParticipant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.UserID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if principal.Role != RoleParticipant && !principal.IsStaff() {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
