package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/internal/pkg/versions"
)

type versionRequest struct {
	Version          string `json:"version"`
	ReleaseDate      string `json:"release_date"`
	DownloadURL      string `json:"download_url"`
	ChangelogURL     string `json:"changelog_url"`
	Description      string `json:"description"`
	ChangelogContent string `json:"changelog_content"`
	Breaking         bool   `json:"breaking"`
	Urgent           bool   `json:"urgent"`
}

func (r versionRequest) toInput() (versions.PublishInput, error) {
	in := versions.PublishInput{
		Version:          r.Version,
		DownloadURL:      r.DownloadURL,
		ChangelogURL:     r.ChangelogURL,
		Description:      r.Description,
		ChangelogContent: r.ChangelogContent,
		Breaking:         r.Breaking,
		Urgent:           r.Urgent,
	}
	if r.ReleaseDate != "" {
		date, err := time.Parse("2006-01-02", r.ReleaseDate)
		if err != nil {
			return in, err
		}
		in.ReleaseDate = date
	}
	return in, nil
}

// HandleListVersions lists an addon's versions, newest first.
func HandleListVersions(c *fiber.Ctx) error {
	addon, ok := addonFromSlug(c)
	if !ok {
		return nil
	}
	offset, limit := pagination(c, 25, 100)

	list, err := deps.Repos.Version.ListByAddon(addon.ID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to list versions")
	}
	total, err := deps.Repos.Version.CountByAddon(addon.ID)
	if err != nil {
		return internalError(c, "Failed to count versions")
	}

	return c.JSON(fiber.Map{
		"versions": list,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

// HandleGetLatestVersion returns the newest version by release date.
func HandleGetLatestVersion(c *fiber.Ctx) error {
	addon, ok := addonFromSlug(c)
	if !ok {
		return nil
	}

	version, err := deps.Versions.Latest(addon.ID)
	if err != nil {
		if errors.Is(err, versions.ErrVersionNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Addon has no versions")
		}
		return internalError(c, "Failed to load version")
	}

	return c.JSON(version)
}

// HandlePublishVersion publishes a new version for an addon.
func HandlePublishVersion(c *fiber.Ctx) error {
	addon, ok := addonFromSlug(c)
	if !ok {
		return nil
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}
	if addon.OwnerID != user.ID && !user.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "You do not own this addon")
	}

	var req versionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}
	in, err := req.toInput()
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_release_date", "release_date must be formatted YYYY-MM-DD")
	}

	version, err := deps.Versions.Publish(addon, user, in)
	if err != nil {
		return versionErrorResponse(c, err, user, addon.ID)
	}

	return c.Status(fiber.StatusCreated).JSON(version)
}

// HandleUpdateVersion edits an existing version's metadata.
func HandleUpdateVersion(c *fiber.Ctx) error {
	addon, ok := addonFromSlug(c)
	if !ok {
		return nil
	}

	versionID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid version id")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}
	if addon.OwnerID != user.ID && !user.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "You do not own this addon")
	}

	var req versionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}
	in, err := req.toInput()
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_release_date", "release_date must be formatted YYYY-MM-DD")
	}

	version, err := deps.Versions.Update(addon, user, versionID, in)
	if err != nil {
		return versionErrorResponse(c, err, user, addon.ID)
	}

	return c.JSON(version)
}

// HandleDeleteVersion removes a version and releases its storage.
func HandleDeleteVersion(c *fiber.Ctx) error {
	addon, ok := addonFromSlug(c)
	if !ok {
		return nil
	}

	versionID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid version id")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}
	if addon.OwnerID != user.ID && !user.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "You do not own this addon")
	}

	if err := deps.Versions.Delete(addon, user, versionID); err != nil {
		if errors.Is(err, versions.ErrVersionNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Version not found")
		}
		return internalError(c, "Failed to delete version")
	}

	return c.JSON(fiber.Map{"message": "Version deleted"})
}

// HandleDownloadVersion counts the download and redirects to the hosted file.
func HandleDownloadVersion(c *fiber.Ctx) error {
	addon, ok := addonFromSlug(c)
	if !ok {
		return nil
	}

	version, err := deps.Repos.Version.GetByAddonAndVersion(addon.ID, c.Params("version"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Version not found")
	}

	if err := deps.Downloads.AddDownload(version.ID); err != nil {
		// Losing a counter tick must not block the download itself.
		log.Errorf("download counter for version %d failed: %v", version.ID, err)
	}

	return c.Redirect(version.DownloadURL, fiber.StatusFound)
}

func versionErrorResponse(c *fiber.Ctx, err error, user *models.User, addonID uint) error {
	switch {
	case errors.Is(err, versions.ErrInvalidVersion):
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_version", "Version must follow MAJOR.MINOR.PATCH")
	case errors.Is(err, versions.ErrDuplicateVersion):
		return jsonError(c, fiber.StatusConflict, "duplicate_version", "This version already exists for the addon")
	case errors.Is(err, versions.ErrStorageQuotaExceeded):
		return storageQuotaResponse(c, user)
	case errors.Is(err, versions.ErrVersionLimitExceeded):
		return versionLimitResponse(c, user, addonID)
	case errors.Is(err, versions.ErrVersionNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Version not found")
	default:
		return internalError(c, "Failed to save version")
	}
}
