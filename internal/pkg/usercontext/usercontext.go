package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
)

// Shared Locals keys used across controllers and middlewares
const (
	ContextKey       = "USER_CONTEXT"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     uint              `json:"user_id"`
	Username   string            `json:"username"`
	IsLoggedIn bool              `json:"is_logged_in"`
	IsAdmin    bool              `json:"is_admin"`
	Tier       entitlements.Tier `json:"tier"`
}

// Set stores the user context on the request.
func Set(c *fiber.Ctx, ctx UserContext) {
	c.Locals(ContextKey, ctx)
	c.Locals(KeyFromProtected, true)
	c.Locals(KeyUserID, ctx.UserID)
	c.Locals(KeyUsername, ctx.Username)
	c.Locals(KeyIsAdmin, ctx.IsAdmin)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(ContextKey); ctx != nil {
		if uc, ok := ctx.(UserContext); ok {
			return uc
		}
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false, Tier: entitlements.TierFree}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}
