package routes

import (
	"app/handlers"
	"app/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes defines all the routes for the application.
func SetupRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/health", handlers.HandleHealth)
	api.Get("/version", handlers.HandleVersion)

	// --- Report Routes ---
	reports := api.Group("/reports", middleware.Authenticate)
	reports.Post("/generate", handlers.HandleGenerateReport)
	reports.Post("/predefined", handlers.HandlePredefinedReport)
	reports.Post("/preview", handlers.HandlePreviewReport)
	reports.Get("/templates", handlers.HandleListTemplates)

	// --- Analytics Routes ---
	analytics := api.Group("/analytics", middleware.Authenticate)
	analytics.Get("/overview", handlers.HandleAnalyticsOverview)
	analytics.Get("/summary", handlers.HandleAnalyticsSummary)
	analytics.Get("/sales", handlers.HandleSalesByMonth)
	analytics.Get("/products", handlers.HandleTopProducts)
	analytics.Get("/inventory", handlers.HandleInventorySummary)
	analytics.Get("/customers", handlers.HandleCustomerAnalytics)
	analytics.Get("/orders", handlers.HandleOrdersByStatus)
	analytics.Get("/yearly_comparison", handlers.HandleYearlyComparison)

	// --- AI Routes ---
	ai := api.Group("/ai", middleware.Authenticate)
	ai.Post("/train-model", middleware.CheckRole("admin"), handlers.HandleTrainModel)
	ai.Get("/active-model", handlers.HandleActiveModel)
	ai.Get("/models", handlers.HandleListModels)
	ai.Get("/dashboard", handlers.HandleForecastDashboard)
	ai.Post("/predictions/sales-forecast", handlers.HandleSalesForecast)
	ai.Get("/predictions/history", handlers.HandlePredictionsHistory)
	ai.Post("/predictions/:predictionId/validate", handlers.HandleValidatePrediction)
	ai.Post("/insights", handlers.HandleBusinessInsights)
}
