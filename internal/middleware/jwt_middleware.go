package middleware

import (
	"log/slog"
	"strings"

	"bakery/internal/models"
	"bakery/internal/services"

	"github.com/gofiber/fiber/v2"
)

const requesterKey = "requester"

// TokenValidator resolves a bearer token to the identity it was issued to.
type TokenValidator interface {
	ValidateToken(token string) (services.Requester, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(auth TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		req, err := auth.ValidateToken(parts[1])
		if err != nil {
			slog.Debug("JWT validation failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(requesterKey, req)
		c.Locals("user_id", req.ID)
		c.Locals("role", string(req.Role))
		return c.Next()
	}
}

// OnlyBakers rejects requesters that do not have the baker role. It must run
// after AuthRequired.
func OnlyBakers() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentRequester(c).Role != models.RoleBaker {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Access denied, bakers only",
			})
		}
		return c.Next()
	}
}

// CurrentRequester returns the identity stored by AuthRequired, or the zero
// Requester on public routes.
func CurrentRequester(c *fiber.Ctx) services.Requester {
	req, _ := c.Locals(requesterKey).(services.Requester)
	return req
}
