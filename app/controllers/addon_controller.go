package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/internal/pkg/addons"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

type addonRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Homepage    *string `json:"homepage"`
	External    *bool   `json:"external"`
	IsPublic    *bool   `json:"is_public"`
}

// HandleListAddons returns the public addon directory.
func HandleListAddons(c *fiber.Ctx) error {
	offset, limit := pagination(c, 25, 100)

	list, err := deps.Repos.Addon.ListPublic(offset, limit)
	if err != nil {
		return internalError(c, "Failed to list addons")
	}
	total, err := deps.Repos.Addon.Count()
	if err != nil {
		return internalError(c, "Failed to count addons")
	}

	return c.JSON(fiber.Map{
		"addons": list,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// HandleListMyAddons returns the authenticated user's addons.
func HandleListMyAddons(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	offset, limit := pagination(c, 25, 100)

	list, err := deps.Repos.Addon.GetByOwner(uc.UserID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to list addons")
	}

	return c.JSON(fiber.Map{
		"addons": list,
		"offset": offset,
		"limit":  limit,
	})
}

// HandleGetAddon returns a single addon by slug.
func HandleGetAddon(c *fiber.Ctx) error {
	addon, ok := addonFromSlug(c)
	if !ok {
		return nil
	}

	uc := usercontext.GetUserContext(c)
	if !addon.IsPublic && addon.OwnerID != uc.UserID && !uc.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Addon not found")
	}

	return c.JSON(addon)
}

// HandleCreateAddon registers a new addon for the authenticated user.
func HandleCreateAddon(c *fiber.Ctx) error {
	var req addonRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	in := addons.CreateInput{Name: req.Name}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Homepage != nil {
		in.Homepage = *req.Homepage
	}
	if req.External != nil {
		in.External = *req.External
	}
	if req.IsPublic != nil {
		in.IsPublic = *req.IsPublic
	} else {
		in.IsPublic = true
	}

	addon, err := deps.Addons.Create(user, in)
	if err != nil {
		switch {
		case errors.Is(err, addons.ErrInvalidName):
			return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_name", "Addon name cannot be turned into a valid slug")
		case errors.Is(err, addons.ErrStorageQuotaExceeded):
			return storageQuotaResponse(c, user)
		default:
			return internalError(c, "Failed to create addon")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(addon)
}

// HandleUpdateAddon updates addon metadata. Owner or admin only.
func HandleUpdateAddon(c *fiber.Ctx) error {
	addon, ok := addonFromSlug(c)
	if !ok {
		return nil
	}

	var req addonRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	in := addons.UpdateInput{
		Description: req.Description,
		Homepage:    req.Homepage,
		External:    req.External,
		IsPublic:    req.IsPublic,
	}
	if req.Name != "" {
		in.Name = &req.Name
	}

	updated, err := deps.Addons.Update(addon, user, in)
	if err != nil {
		switch {
		case errors.Is(err, addons.ErrNotOwner):
			return jsonError(c, fiber.StatusForbidden, "forbidden", "You do not own this addon")
		case errors.Is(err, addons.ErrInvalidName):
			return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_name", "Addon name cannot be turned into a valid slug")
		case errors.Is(err, addons.ErrStorageQuotaExceeded):
			return storageQuotaResponse(c, user)
		default:
			return internalError(c, "Failed to update addon")
		}
	}

	return c.JSON(updated)
}

// HandleDeleteAddon removes an addon and all of its versions.
func HandleDeleteAddon(c *fiber.Ctx) error {
	addon, ok := addonFromSlug(c)
	if !ok {
		return nil
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	if err := deps.Addons.Delete(addon, user); err != nil {
		if errors.Is(err, addons.ErrNotOwner) {
			return jsonError(c, fiber.StatusForbidden, "forbidden", "You do not own this addon")
		}
		return internalError(c, "Failed to delete addon")
	}

	return c.JSON(fiber.Map{"message": "Addon deleted"})
}
