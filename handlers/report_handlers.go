package handlers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"app/models"
	"app/renderers"
	"app/reports"
)

// HandleGenerateReport turns a natural-language prompt into a downloadable
// report file.
// POST /api/v1/reports/generate
func HandleGenerateReport(c *fiber.Ctx) error {
	var body struct {
		Prompt string `json:"prompt"`
		Format string `json:"format"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Cuerpo de la petición inválido"})
	}
	if body.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "El campo prompt es obligatorio"})
	}

	out, err := reportSvc.GenerateFromPrompt(c.Context(), body.Prompt, body.Format, requestMetadata(c))
	if err != nil {
		log.Printf("[REPORTS] generate failed: %v", err)
		return reportError(c, err)
	}
	return sendReport(c, out)
}

// HandlePredefinedReport renders one of the fixed report kinds.
// POST /api/v1/reports/predefined
func HandlePredefinedReport(c *fiber.Ctx) error {
	var body struct {
		ReportType string            `json:"report_type"`
		Type       string            `json:"type"`
		Format     string            `json:"format"`
		Filters    map[string]string `json:"filters"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Cuerpo de la petición inválido"})
	}
	kind := body.ReportType
	if kind == "" {
		kind = body.Type
	}

	out, err := reportSvc.GeneratePredefined(c.Context(), models.ReportKind(kind), body.Format, body.Filters, requestMetadata(c))
	if err != nil {
		log.Printf("[REPORTS] predefined %q failed: %v", kind, err)
		return reportError(c, err)
	}
	return sendReport(c, out)
}

// HandlePreviewReport compiles a prompt and returns the first rows as JSON
// instead of a file.
// POST /api/v1/reports/preview
func HandlePreviewReport(c *fiber.Ctx) error {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Cuerpo de la petición inválido"})
	}
	if body.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "El campo prompt es obligatorio"})
	}

	preview, err := reportSvc.PreviewFromPrompt(c.Context(), body.Prompt)
	if err != nil {
		log.Printf("[REPORTS] preview failed: %v", err)
		return reportError(c, err)
	}
	return c.JSON(fiber.Map{
		"status":     "success",
		"data":       preview.Rows,
		"sections":   preview.Sections,
		"columns":    preview.Columns,
		"metadata":   preview.Meta,
		"config":     preview.Spec,
		"total_rows": preview.TotalRows,
		"truncated":  preview.Truncated,
		"message":    "Vista previa generada",
	})
}

// HandleListTemplates lists the built-in report shortcuts.
// GET /api/v1/reports/templates
func HandleListTemplates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{
		"templates": reports.Templates(),
		"formats":   renderers.Formats(),
	}})
}

// sendReport streams a rendered report as an attachment.
func sendReport(c *fiber.Ctx, out *reports.Output) error {
	c.Set(fiber.HeaderContentType, out.MediaType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, out.Filename))
	return c.Send(out.Bytes)
}
