package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/constants"
	"github.com/plexdev/plexaddons-api/internal/pkg/security"
	"github.com/plexdev/plexaddons-api/internal/pkg/session"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

// UserContext resolves the requesting user from either a web session or a
// bearer token and stores the result on the request. The effective tier is
// computed from the user's database row on every request, so temporary tier
// grants and their expiries apply without any session invalidation.
func UserContext(users repository.UserRepository, tokens *security.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session store on the OAuth routes; touching
		// ours there causes cross-store cookie collisions.
		if strings.HasPrefix(c.Path(), "/auth/") {
			return c.Next()
		}

		if userID, ok := userIDFromBearer(c, tokens); ok {
			setContextFromDB(c, users, userID)
			return c.Next()
		}

		if userID, ok := userIDFromSession(c); ok {
			setContextFromDB(c, users, userID)
			return c.Next()
		}

		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}
}

func userIDFromBearer(c *fiber.Ctx, tokens *security.TokenIssuer) (uint, bool) {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return 0, false
	}
	raw := strings.TrimSpace(auth[7:])
	// API keys share the Authorization header but carry their own prefix
	// and are handled by the API key middleware.
	if strings.HasPrefix(raw, "pa_") {
		return 0, false
	}
	claims, err := tokens.Validate(raw)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

func userIDFromSession(c *fiber.Ctx) (uint, bool) {
	store := session.GetSessionStore()
	if store == nil {
		return 0, false
	}
	sess, err := store.Get(c)
	if err != nil {
		return 0, false
	}
	userID, ok := sess.Get(constants.SessionKeyUserID).(uint)
	return userID, ok && userID > 0
}

func setContextFromDB(c *fiber.Ctx, users repository.UserRepository, userID uint) {
	user, err := users.GetByID(userID)
	if err != nil {
		log.Printf("user context: lookup of user %d failed: %v", userID, err)
		usercontext.Set(c, usercontext.UserContext{})
		return
	}

	usercontext.Set(c, usercontext.UserContext{
		UserID:     user.ID,
		Username:   user.DiscordUsername,
		IsLoggedIn: true,
		IsAdmin:    user.IsAdmin,
		Tier:       user.EffectiveTier(nowFunc()),
	})
}
