package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/app/models"
)

// HandlePing is the liveness endpoint.
func HandlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleListTags returns the fixed tag catalog for addon categorization.
func HandleListTags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tags": models.AddonTags})
}

// HandlePublicStats exposes the cached platform counters.
func HandlePublicStats(c *fiber.Ctx) error {
	data, err := deps.Statistics.Snapshot()
	if err != nil {
		return internalError(c, "Failed to load statistics")
	}
	return c.JSON(data)
}
