package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/internal/pkg/constants"
	"github.com/plexdev/plexaddons-api/internal/pkg/security"
	"github.com/plexdev/plexaddons-api/internal/pkg/session"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

// HandleAuthDiscordCallback completes the OAuth flow, upserts the account
// and opens a web session.
func HandleAuthDiscordCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "oauth_failed", "Discord authentication failed")
	}

	users := deps.Repos.User
	user, err := users.GetByDiscordID(u.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &models.User{
			DiscordID:       u.UserID,
			DiscordUsername: firstNonEmpty(u.NickName, u.Name, "Unknown"),
			DiscordAvatar:   avatarHash(u.RawData),
			Email:           u.Email,
		}
		if err := users.Create(user); err != nil {
			return internalError(c, "Failed to create account")
		}
	} else if err != nil {
		return internalError(c, "Failed to load account")
	} else {
		// Refresh profile data Discord may have changed since last login.
		user.DiscordUsername = firstNonEmpty(u.NickName, u.Name, user.DiscordUsername)
		user.DiscordAvatar = avatarHash(u.RawData)
		if u.Email != "" {
			user.Email = u.Email
		}
		if err := users.Update(user); err != nil {
			log.Errorf("oauth callback: profile refresh for user %d failed: %v", user.ID, err)
		}
	}

	if err := users.UpdateLastLogin(user.ID, time.Now()); err != nil {
		log.Errorf("oauth callback: last login update for user %d failed: %v", user.ID, err)
	}

	store := session.GetSessionStore()
	sess, err := store.Get(c)
	if err != nil {
		return internalError(c, "Failed to open session")
	}
	sess.Set(constants.SessionKeyUserID, user.ID)
	sess.Set(constants.SessionKeyUsername, user.DiscordUsername)
	sess.Set(constants.SessionKeyIsAdmin, user.IsAdmin)
	if err := sess.Save(); err != nil {
		return internalError(c, "Failed to save session")
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.DiscordUsername,
		"is_admin": user.IsAdmin,
	})
}

// HandleAuthLogout destroys the web session.
func HandleAuthLogout(c *fiber.Ctx) error {
	if err := gothfiber.Logout(c); err != nil {
		log.Errorf("logout: clearing oauth session failed: %v", err)
	}

	store := session.GetSessionStore()
	sess, err := store.Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			log.Errorf("logout: destroying session failed: %v", err)
		}
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleAuthToken exchanges an authenticated session for a bearer token
// usable against the API without cookies.
func HandleAuthToken(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	token, err := deps.Tokens.Issue(security.TokenClaims{
		UserID:   uc.UserID,
		Username: uc.Username,
		IsAdmin:  uc.IsAdmin,
	})
	if err != nil {
		return internalError(c, "Failed to issue token")
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"token_type": "Bearer",
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func avatarHash(raw map[string]interface{}) string {
	if raw == nil {
		return ""
	}
	if hash, ok := raw["avatar"].(string); ok {
		return hash
	}
	return ""
}
