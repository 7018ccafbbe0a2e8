package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/internal/pkg/auth"
)

const (
	// Locals keys populated for authenticated admin requests.
	KeyAdminID       = "ADMIN_ID"
	KeyAdminUsername = "ADMIN_USERNAME"
	KeyAdminRole     = "ADMIN_ROLE"
)

// AdminAuthMiddleware authenticates requests carrying a signed admin token.
func AdminAuthMiddleware(issuer *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals(KeyAdminID, claims.Subject)
		c.Locals(KeyAdminUsername, claims.Username)
		c.Locals(KeyAdminRole, claims.Role)

		return c.Next()
	}
}

// RequireAdminRole restricts a route to full admins; staff tokens get 403.
func RequireAdminRole(c *fiber.Ctx) error {
	if role, ok := c.Locals(KeyAdminRole).(string); !ok || role != models.AdminRoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient permissions"})
	}
	return c.Next()
}

func extractBearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
