package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"app/config"
)

// HandleBusinessInsights asks Gemini for a narrative reading of the current
// analytics overview, optionally steered by a question from the user.
// POST /api/v1/ai/insights
func HandleBusinessInsights(c *fiber.Ctx) error {
	if config.AppConfig.GeminiAPIKey == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "error",
			"message": "El servicio de insights no está configurado",
		})
	}

	var body struct {
		Question string `json:"question"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Cuerpo de la petición inválido"})
		}
	}

	overview, err := analyticsSvc.Overview(c.Context(), 12, time.Now())
	if err != nil {
		log.Printf("[AI] insights overview failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudieron calcular las métricas"})
	}
	metrics, err := json.Marshal(overview)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudieron serializar las métricas"})
	}

	question := body.Question
	if question == "" {
		question = "¿Cuáles son los puntos más relevantes y qué acciones recomiendas?"
	}
	prompt := fmt.Sprintf(
		"Eres el analista de datos de una tienda de ropa online. "+
			"Con base en estas métricas en JSON, responde en español y en tono ejecutivo.\n\nMétricas:\n%s\n\nPregunta: %s",
		metrics, question,
	)

	ctx := c.Context()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Printf("[AI] error creating Gemini client: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo inicializar el servicio de insights"})
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-1.5-pro-latest")
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Printf("[AI] error generating insights: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudieron generar los insights"})
	}

	var answer string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				answer += string(text)
			}
		}
	}

	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{
		"question": question,
		"insights": answer,
	}})
}
