package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

// APIKeyAuth authenticates requests carrying a user API key. Only the SHA-256
// hash of the key is ever compared against the database. Requests without a
// key pass through untouched; sessions and bearer tokens are handled by the
// UserContext middleware.
func APIKeyAuth(keys repository.APIKeyRepository, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractAPIKey(c)
		if raw == "" {
			return c.Next()
		}

		key, err := keys.GetByHash(models.HashAPIKey(raw))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			log.Printf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		now := nowFunc()
		if !key.IsActive(now) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "API key revoked or expired"})
		}

		user, err := users.GetByID(key.UserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}

		// Refresh last-used timestamp best-effort.
		key.TouchUsage()
		if err := keys.Update(key); err != nil {
			log.Printf("failed to update api key usage timestamp for user %d: %v", user.ID, err)
		}

		usercontext.Set(c, usercontext.UserContext{
			UserID:     user.ID,
			Username:   user.DiscordUsername,
			IsLoggedIn: true,
			IsAdmin:    user.IsAdmin,
			Tier:       user.EffectiveTier(now),
		})
		c.Locals(localAPIKeyScopes, key.ScopeList())

		return c.Next()
	}
}

const localAPIKeyScopes = "API_KEY_SCOPES"

// RequireScope gates a route on an API key scope. Requests authenticated via
// session or bearer token carry no scope list and pass unrestricted.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scopes, ok := c.Locals(localAPIKeyScopes).([]string)
		if !ok {
			return c.Next()
		}
		for _, s := range scopes {
			if s == scope || s == models.SCOPE_FULL_ACCESS {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "API key lacks required scope: " + scope,
		})
	}
}

func extractAPIKey(c *fiber.Ctx) string {
	if key := strings.TrimSpace(c.Get("X-API-Key")); key != "" {
		return key
	}
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		raw := strings.TrimSpace(auth[7:])
		if strings.HasPrefix(raw, "pa_") {
			return raw
		}
	}
	return ""
}
