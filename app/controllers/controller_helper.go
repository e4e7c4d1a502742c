package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/admin"
	"github.com/plexdev/plexaddons-api/internal/pkg/addons"
	"github.com/plexdev/plexaddons-api/internal/pkg/apikeys"
	"github.com/plexdev/plexaddons-api/internal/pkg/billing"
	"github.com/plexdev/plexaddons-api/internal/pkg/metrics/counter"
	"github.com/plexdev/plexaddons-api/internal/pkg/organizations"
	"github.com/plexdev/plexaddons-api/internal/pkg/quota"
	"github.com/plexdev/plexaddons-api/internal/pkg/security"
	"github.com/plexdev/plexaddons-api/internal/pkg/statistics"
	"github.com/plexdev/plexaddons-api/internal/pkg/tickets"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
	"github.com/plexdev/plexaddons-api/internal/pkg/versions"
)

// Dependencies bundles the services the controllers dispatch to. Initialize
// must run once at startup before any route is registered.
type Dependencies struct {
	Repos         *repository.Repositories
	Addons        *addons.Service
	Versions      *versions.Service
	Tickets       *tickets.Service
	APIKeys       *apikeys.Service
	Organizations *organizations.Service
	Admin         *admin.Service
	Billing       *billing.Service
	Quota         *quota.Enforcer
	Statistics    *statistics.Service
	Downloads     *counter.Counter
	Tokens        *security.TokenIssuer
}

var deps Dependencies

// Initialize wires the controller package to its services.
func Initialize(d Dependencies) {
	deps = d
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

func internalError(c *fiber.Ctx, message string) error {
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", message)
}

// currentUser loads the authenticated user's row. Controllers behind
// RequireAuth can expect a row to exist; a missing one means the account was
// deleted mid-session.
func currentUser(c *fiber.Ctx) (*models.User, error) {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return nil, gorm.ErrRecordNotFound
	}
	return deps.Repos.User.GetByID(uc.UserID)
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// pagination reads offset/limit query params with sane bounds.
func pagination(c *fiber.Ctx, defaultLimit, maxLimit int) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit = c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit
}

// storageQuotaResponse rejects a write that would exceed the storage quota,
// including current usage so the caller can see how far over they are.
func storageQuotaResponse(c *fiber.Ctx, user *models.User) error {
	body := fiber.Map{
		"error":   "storage_quota_exceeded",
		"message": "Storage quota exceeded. Delete old content or upgrade your plan.",
	}
	tier := user.EffectiveTier(time.Now())
	if snap, err := deps.Quota.SnapshotFor(user, tier); err == nil {
		body["tier"] = tier
		body["storage_used_bytes"] = snap.StorageUsedBytes
		body["storage_quota_bytes"] = snap.StorageQuotaBytes
	}
	return c.Status(fiber.StatusForbidden).JSON(body)
}

func versionLimitResponse(c *fiber.Ctx, user *models.User, addonID uint) error {
	tier := user.EffectiveTier(time.Now())
	body := fiber.Map{
		"error":   "version_limit_exceeded",
		"message": "Version history limit reached for your plan. Delete old versions or upgrade your plan.",
		"tier":    tier,
	}
	if limit := deps.Quota.VersionLimitFor(tier); limit > 0 {
		body["version_limit"] = limit
	}
	if count, err := deps.Repos.Version.CountByAddon(addonID); err == nil {
		body["version_count"] = count
	}
	return c.Status(fiber.StatusForbidden).JSON(body)
}

// addonFromSlug resolves the addon route param. When it returns false the
// error response has already been written and the handler should stop.
func addonFromSlug(c *fiber.Ctx) (*models.Addon, bool) {
	addon, err := deps.Addons.GetBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, addons.ErrAddonNotFound) {
			_ = jsonError(c, fiber.StatusNotFound, "not_found", "Addon not found")
		} else {
			_ = internalError(c, "Failed to load addon")
		}
		return nil, false
	}
	return addon, true
}
