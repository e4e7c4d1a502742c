package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/internal/pkg/admin"
	"github.com/plexdev/plexaddons-api/internal/pkg/billing"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
	"github.com/plexdev/plexaddons-api/internal/pkg/ratelimit"
)

type tempTierRequest struct {
	Tier string `json:"tier"`
	// Duration is a Go duration string, e.g. "168h" for a week.
	Duration string `json:"duration"`
}

// HandleGrantTempTier grants a user a temporary tier override.
func HandleGrantTempTier(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid user id")
	}

	var req tempTierRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_duration", "Duration must be a value like '72h'")
	}

	adminUser, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	user, err := deps.Admin.GrantTempTier(adminUser, userID, entitlements.Tier(req.Tier), duration, ratelimit.ClientIP(c))
	if err != nil {
		switch {
		case errors.Is(err, admin.ErrUserNotFound):
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		case errors.Is(err, admin.ErrBadDuration):
			return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_duration", "Duration must be positive")
		default:
			return internalError(c, "Failed to grant temporary tier")
		}
	}

	return c.JSON(fiber.Map{
		"user_id":              user.ID,
		"temp_tier":            user.TempTier,
		"temp_tier_expires_at": formatTimePtr(user.TempTierExpiresAt),
	})
}

// HandleRevokeTempTier removes a user's temporary tier override.
func HandleRevokeTempTier(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid user id")
	}

	adminUser, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	user, err := deps.Admin.RevokeTempTier(adminUser, userID, ratelimit.ClientIP(c))
	if err != nil {
		if errors.Is(err, admin.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return internalError(c, "Failed to revoke temporary tier")
	}

	return c.JSON(fiber.Map{
		"user_id": user.ID,
		"tier":    user.SubscriptionTier,
	})
}

// HandleListAuditLog pages through the admin audit trail.
func HandleListAuditLog(c *fiber.Ctx) error {
	offset, limit := pagination(c, 50, 200)

	entries, err := deps.Admin.ListAuditLog(offset, limit)
	if err != nil {
		return internalError(c, "Failed to list audit log")
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"offset":  offset,
		"limit":   limit,
	})
}

// HandleAdminStats recomputes and returns the platform counters, bypassing
// the cache so admins always see fresh numbers.
func HandleAdminStats(c *fiber.Ctx) error {
	if err := deps.Statistics.Refresh(); err != nil {
		return internalError(c, "Failed to refresh statistics")
	}
	data, err := deps.Statistics.Snapshot()
	if err != nil {
		return internalError(c, "Failed to load statistics")
	}
	return c.JSON(data)
}

// HandleAdminListTickets lists tickets by status for the support queue.
func HandleAdminListTickets(c *fiber.Ctx) error {
	status := c.Query("status", "open")
	offset, limit := pagination(c, 25, 100)

	list, err := deps.Repos.Ticket.ListByStatus(status, offset, limit)
	if err != nil {
		return internalError(c, "Failed to list tickets")
	}

	return c.JSON(fiber.Map{
		"tickets": list,
		"status":  status,
		"offset":  offset,
		"limit":   limit,
	})
}

// HandleApplySubscription ingests a normalized subscription event and
// reconciles the affected user's tier. Payment providers land here through
// the edge service that verifies their webhook signatures.
func HandleApplySubscription(c *fiber.Ctx) error {
	var in billing.NormalizedSubscription
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	sub, err := deps.Billing.ApplySubscription(in)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_subscription", "Subscription event is incomplete or references no user")
	}

	return c.JSON(sub)
}

// HandleAdminSearchUsers finds users by Discord name or id.
func HandleAdminSearchUsers(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Query parameter 'q' is required")
	}

	users, err := deps.Repos.User.Search(query)
	if err != nil {
		return internalError(c, "Failed to search users")
	}

	return c.JSON(fiber.Map{"users": users})
}
