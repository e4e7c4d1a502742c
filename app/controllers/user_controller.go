package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/internal/pkg/apikeys"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
	"github.com/plexdev/plexaddons-api/internal/pkg/utils"
	"github.com/plexdev/plexaddons-api/internal/pkg/webhook"
)

// HandleGetMe returns account information plus the live usage snapshot for
// the authenticated user.
func HandleGetMe(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	now := time.Now()
	tier := user.EffectiveTier(now)
	snap, err := deps.Quota.SnapshotFor(user, tier)
	if err != nil {
		return internalError(c, "Failed to compute usage")
	}

	response := fiber.Map{
		"id":                user.ID,
		"discord_id":        user.DiscordID,
		"username":          user.DiscordUsername,
		"avatar_url":        utils.DiscordAvatarURL(user.DiscordID, user.DiscordAvatar, 128),
		"email":             user.Email,
		"is_admin":          user.IsAdmin,
		"tier":              tier,
		"subscription_tier": user.SubscriptionTier,
		"created_at":        user.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":     formatTimePtr(user.LastLoginAt),
		"usage": fiber.Map{
			"storage_used_bytes":  snap.StorageUsedBytes,
			"storage_quota_bytes": snap.StorageQuotaBytes,
			"addon_count":         snap.AddonCount,
		},
		"limits": fiber.Map{
			"version_limit": deps.Quota.VersionLimitFor(tier),
			"api_key_limit": apikeys.MaxKeysFor(tier),
			"webhooks":      tier == entitlements.TierPremium,
		},
		"webhook": fiber.Map{
			"url":     user.WebhookURL,
			"enabled": user.WebhookEnabled,
		},
	}

	if user.TempTier != "" && user.TempTierExpiresAt != nil && user.TempTierExpiresAt.After(now) {
		response["temp_tier"] = user.TempTier
		response["temp_tier_expires_at"] = user.TempTierExpiresAt.UTC().Format(time.RFC3339)
	}

	return c.JSON(response)
}

type webhookSettingsRequest struct {
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
	// RotateSecret requests a fresh signing secret even when one exists.
	RotateSecret bool `json:"rotate_secret"`
}

// HandleUpdateWebhookSettings configures the outgoing webhook endpoint.
// Premium only; the signing secret is returned exactly once per rotation.
func HandleUpdateWebhookSettings(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	if user.EffectiveTier(time.Now()) != entitlements.TierPremium {
		return jsonError(c, fiber.StatusForbidden, "tier_forbidden", "Webhooks require a Premium plan")
	}

	var req webhookSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}
	if req.Enabled && !strings.HasPrefix(req.URL, "https://") {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_webhook_url", "Webhook URL must use https")
	}

	var freshSecret string
	if req.RotateSecret || user.WebhookSecret == "" {
		freshSecret, err = webhook.GenerateSecret()
		if err != nil {
			return internalError(c, "Failed to generate webhook secret")
		}
		user.WebhookSecret = freshSecret
	}
	user.WebhookURL = req.URL
	user.WebhookEnabled = req.Enabled

	if err := deps.Repos.User.Update(user); err != nil {
		return internalError(c, "Failed to save webhook settings")
	}

	response := fiber.Map{
		"url":     user.WebhookURL,
		"enabled": user.WebhookEnabled,
	}
	if freshSecret != "" {
		response["secret"] = freshSecret
	}
	return c.JSON(response)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
