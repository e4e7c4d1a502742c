package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/internal/pkg/apikeys"
)

type issueKeyRequest struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// HandleIssueAPIKey creates a new API key. The raw secret appears in this
// response and nowhere else.
func HandleIssueAPIKey(c *fiber.Ctx) error {
	var req issueKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	raw, key, err := deps.APIKeys.Issue(user, req.Name, req.Scopes, req.ExpiresAt)
	if err != nil {
		switch {
		case errors.Is(err, apikeys.ErrKeysNotAvailable):
			return jsonError(c, fiber.StatusForbidden, "tier_forbidden", "API keys require a Pro or Premium plan")
		case errors.Is(err, apikeys.ErrKeyLimitReached):
			return jsonError(c, fiber.StatusForbidden, "key_limit_reached", "Active API key limit reached for your plan")
		case errors.Is(err, apikeys.ErrScopeNotAllowed):
			return jsonError(c, fiber.StatusForbidden, "scope_not_allowed", "One of the requested scopes is not available on your plan")
		default:
			return internalError(c, "Failed to issue API key")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key":     raw,
		"details": key,
	})
}

// HandleListAPIKeys lists the authenticated user's keys, secrets omitted.
func HandleListAPIKeys(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	keys, err := deps.APIKeys.List(user)
	if err != nil {
		return internalError(c, "Failed to list API keys")
	}

	return c.JSON(fiber.Map{"api_keys": keys})
}

// HandleRevokeAPIKey deactivates a key immediately.
func HandleRevokeAPIKey(c *fiber.Ctx) error {
	keyID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid key id")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	if err := deps.APIKeys.Revoke(user, keyID); err != nil {
		if errors.Is(err, apikeys.ErrKeyNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "API key not found")
		}
		return internalError(c, "Failed to revoke API key")
	}

	return c.JSON(fiber.Map{"message": "API key revoked"})
}
