package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"app/renderers"
)

// Version is the build version, overridable at link time.
var Version = "1.0.0"

// HandleHealth reports service liveness.
// GET /api/v1/health
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{
		"healthy": true,
		"time":    time.Now().UTC(),
	}})
}

// HandleVersion reports the build version and the available report formats.
// GET /api/v1/version
func HandleVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{
		"version": Version,
		"formats": renderers.Formats(),
	}})
}
