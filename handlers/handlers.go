package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"app/analytics"
	"app/forecast"
	"app/models"
	"app/renderers"
	"app/reports"
	"app/store"
)

// Package-level services, wired once from main. Handlers stay plain
// functions so routes can reference them directly.
var (
	dataStore    store.Store
	reportSvc    *reports.Coordinator
	analyticsSvc *analytics.Service
	forecastSvc  *forecast.Service
)

// Init wires the handler package to a store and a model artifact dir.
func Init(st store.Store, modelDir string) {
	dataStore = st
	reportSvc = reports.NewCoordinator(st)
	analyticsSvc = analytics.New(st)
	forecastSvc = forecast.NewService(st, modelDir)
}

// requestMetadata builds the report header block from the authenticated
// claims, falling back to anonymous values when auth is disabled.
func requestMetadata(c *fiber.Ctx) renderers.Metadata {
	meta := renderers.Metadata{
		Organization: "Tienda de Ropa",
		User:         "Sistema",
		Timestamp:    time.Now(),
	}
	if claims, ok := c.Locals("claims").(*models.JwtClaims); ok && claims != nil {
		if claims.Name != "" {
			meta.User = claims.Name
		}
		if claims.Organization != "" {
			meta.Organization = claims.Organization
		}
		meta.Role = claims.Role
		meta.Email = claims.Email
	}
	return meta
}

// reportError maps pipeline errors onto HTTP responses. Parse and query
// failures, plus an unregistered format key, are the caller's fault and
// carry their message; render failures and everything else are a 500 with a
// generic body.
func reportError(c *fiber.Ctx, err error) error {
	var parseErr *models.PromptParseError
	if errors.As(err, &parseErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": parseErr.Msg, "tag": parseErr.Tag})
	}
	var queryErr *models.QueryBuildError
	if errors.As(err, &queryErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": queryErr.Msg})
	}
	var formatErr *models.UnknownFormatError
	if errors.As(err, &formatErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": formatErr.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo generar el reporte"})
}
