package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

// nowFunc is swapped in tests to pin tier expiry decisions.
var nowFunc = time.Now

// RequireAuth ensures an authenticated user and returns JSON 401 otherwise.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}
	return c.Next()
}

// RequireSessionAuth rejects requests authenticated with an API key. Key
// management itself must come through a session or bearer token, so a
// leaked key cannot mint more keys.
func RequireSessionAuth(c *fiber.Ctx) error {
	if c.Locals(localAPIKeyScopes) != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "this endpoint is not available to API keys",
		})
	}
	return c.Next()
}

// RequireAdmin ensures an authenticated admin.
func RequireAdmin(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}
