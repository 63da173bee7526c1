package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"app/models"
	"app/utils"
)

// HandleTrainModel trains a new forecasting model and activates it.
// POST /api/v1/ai/train-model
func HandleTrainModel(c *fiber.Ctx) error {
	params := models.DefaultTrainParams()
	var body struct {
		MonthsBack  *int     `json:"months_back"`
		NEstimators *int     `json:"n_estimators"`
		MaxDepth    *int     `json:"max_depth"`
		TestSize    *float64 `json:"test_size"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Cuerpo de la petición inválido"})
		}
	}
	if body.MonthsBack != nil {
		if *body.MonthsBack < 6 || *body.MonthsBack > 60 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "months_back debe estar entre 6 y 60"})
		}
		params.MonthsBack = *body.MonthsBack
	}
	if body.NEstimators != nil {
		if *body.NEstimators < 10 || *body.NEstimators > 500 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "n_estimators debe estar entre 10 y 500"})
		}
		params.NEstimators = *body.NEstimators
	}
	if body.MaxDepth != nil {
		if *body.MaxDepth < 3 || *body.MaxDepth > 50 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "max_depth debe estar entre 3 y 50"})
		}
		params.MaxDepth = *body.MaxDepth
	}
	if body.TestSize != nil {
		if *body.TestSize < 0.1 || *body.TestSize > 0.4 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "test_size debe estar entre 0.1 y 0.4"})
		}
		params.TestSize = *body.TestSize
	}

	model, info, err := forecastSvc.Train(c.Context(), params)
	if err != nil {
		log.Printf("[AI] training failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo entrenar el modelo"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "Modelo entrenado y activado correctamente",
		"data": fiber.Map{
			"model":         model,
			"training_info": info,
		},
	})
}

// HandleActiveModel returns the currently active model.
// GET /api/v1/ai/active-model
func HandleActiveModel(c *fiber.Ctx) error {
	model, err := dataStore.ActiveModel(c.Context())
	if err != nil {
		if errors.Is(err, models.ErrNoActiveModel) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": models.ErrNoActiveModel.Error()})
		}
		log.Printf("[AI] active model lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo consultar el modelo activo"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": model})
}

// HandleListModels lists every trained model, newest first.
// GET /api/v1/ai/models
func HandleListModels(c *fiber.Ctx) error {
	list, err := dataStore.ListModels(c.Context())
	if err != nil {
		log.Printf("[AI] model list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudieron listar los modelos"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": list})
}

// HandleSalesForecast predicts sales for the coming months.
// POST /api/v1/ai/predictions/sales-forecast
func HandleSalesForecast(c *fiber.Ctx) error {
	var body struct {
		Categoria string `json:"categoria"`
		NMonths   int    `json:"n_months"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Cuerpo de la petición inválido"})
		}
	}
	if body.NMonths == 0 {
		body.NMonths = 1
	}
	if body.NMonths < 1 || body.NMonths > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "n_months debe estar entre 1 y 12"})
	}

	results, err := forecastSvc.PredictNextNMonths(c.Context(), body.NMonths, body.Categoria)
	if err != nil {
		return forecastErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": results})
}

// HandleForecastDashboard returns history plus forecasts for the overview
// screen.
// GET /api/v1/ai/dashboard?months_back=12&months_forward=3
func HandleForecastDashboard(c *fiber.Ctx) error {
	monthsBack := c.QueryInt("months_back", 12)
	monthsForward := c.QueryInt("months_forward", 3)
	if monthsForward < 1 || monthsForward > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "months_forward debe estar entre 1 y 12"})
	}

	dashboard, err := forecastSvc.Dashboard(c.Context(), monthsBack, monthsForward)
	if err != nil {
		return forecastErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "success", "data": dashboard})
}

// HandlePredictionsHistory lists persisted predictions. limit is the page
// size (pageSize is accepted as an alias).
// GET /api/v1/ai/predictions/history?categoria=&limit=&page=
func HandlePredictionsHistory(c *fiber.Ctx) error {
	categoria := c.Query("categoria")
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("limit", c.QueryInt("pageSize", 50))
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	all, err := dataStore.ListPredictions(c.Context(), categoria, page*pageSize)
	if err != nil {
		log.Printf("[AI] prediction history failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo consultar el historial"})
	}

	pagination := utils.CreatePagination(len(all), page, pageSize)
	start := (pagination.CurrentPage - 1) * pagination.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pagination.PageSize
	if end > len(all) {
		end = len(all)
	}

	return c.JSON(fiber.Map{"status": "success", "data": fiber.Map{
		"items":      all[start:end],
		"pagination": pagination,
	}})
}

// HandleValidatePrediction compares a prediction with the units actually
// sold in its period and persists the error.
// POST /api/v1/ai/predictions/:predictionId/validate
func HandleValidatePrediction(c *fiber.Ctx) error {
	id := c.Params("predictionId")
	comparison, err := forecastSvc.ComparePredictionWithReal(c.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrPredictionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": models.ErrPredictionNotFound.Error()})
		}
		log.Printf("[AI] prediction validation failed for %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo validar la predicción"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": comparison})
}

// forecastErrorResponse maps forecasting errors onto HTTP responses: a
// missing active model or artifact is the caller's problem to fix by
// training; everything else is a 500.
func forecastErrorResponse(c *fiber.Ctx, err error) error {
	if errors.Is(err, models.ErrNoActiveModel) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": models.ErrNoActiveModel.Error()})
	}
	if errors.Is(err, models.ErrModelArtifactMissing) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": "error", "message": models.ErrModelArtifactMissing.Error()})
	}
	var shapeErr *models.FeatureShapeError
	if errors.As(err, &shapeErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": "error", "message": shapeErr.Error()})
	}
	log.Printf("[AI] forecast failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo generar la predicción"})
}
