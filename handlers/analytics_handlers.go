package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleAnalyticsOverview returns the combined business overview. A days
// query param is accepted as an alternative window and rounded up to whole
// months.
// GET /api/v1/analytics/overview?months=12&days=
func HandleAnalyticsOverview(c *fiber.Ctx) error {
	months := c.QueryInt("months", 0)
	if months <= 0 {
		if days := c.QueryInt("days", 0); days > 0 {
			months = (days + 29) / 30
		} else {
			months = 12
		}
	}
	overview, err := analyticsSvc.Overview(c.Context(), months, time.Now())
	if err != nil {
		log.Printf("[ANALYTICS] overview failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo calcular el resumen"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": overview})
}

// HandleAnalyticsSummary returns sales totals and averages.
// GET /api/v1/analytics/summary
func HandleAnalyticsSummary(c *fiber.Ctx) error {
	summary, err := analyticsSvc.Summary(c.Context())
	if err != nil {
		log.Printf("[ANALYTICS] summary failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo calcular el resumen"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": summary})
}

// HandleSalesByMonth returns the dense monthly sales series.
// GET /api/v1/analytics/sales?months=12
func HandleSalesByMonth(c *fiber.Ctx) error {
	months := c.QueryInt("months", 12)
	series, err := analyticsSvc.SalesByMonth(c.Context(), months, time.Now())
	if err != nil {
		log.Printf("[ANALYTICS] sales by month failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudieron calcular las ventas mensuales"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": series})
}

// HandleTopProducts ranks products by units sold.
// GET /api/v1/analytics/products?limit=10
func HandleTopProducts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	products, err := analyticsSvc.TopSellingProducts(c.Context(), limit)
	if err != nil {
		log.Printf("[ANALYTICS] top products failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudieron calcular los productos más vendidos"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": products})
}

// HandleInventorySummary returns catalog and stock counts.
// GET /api/v1/analytics/inventory
func HandleInventorySummary(c *fiber.Ctx) error {
	inventory, err := analyticsSvc.InventorySummary(c.Context())
	if err != nil {
		log.Printf("[ANALYTICS] inventory failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo calcular el inventario"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": inventory})
}

// HandleCustomerAnalytics returns customer counts and top spenders.
// GET /api/v1/analytics/customers
func HandleCustomerAnalytics(c *fiber.Ctx) error {
	customers, err := analyticsSvc.CustomerAnalytics(c.Context(), time.Now())
	if err != nil {
		log.Printf("[ANALYTICS] customers failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudieron calcular las métricas de clientes"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": customers})
}

// HandleOrdersByStatus returns order counts per state.
// GET /api/v1/analytics/orders
func HandleOrdersByStatus(c *fiber.Ctx) error {
	counts, err := analyticsSvc.OrdersByStatus(c.Context())
	if err != nil {
		log.Printf("[ANALYTICS] orders by status failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudieron contar los pedidos"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": counts})
}

// HandleYearlyComparison compares the business year over year.
// GET /api/v1/analytics/yearly_comparison
func HandleYearlyComparison(c *fiber.Ctx) error {
	comparison, err := analyticsSvc.YearlyComparison(c.Context())
	if err != nil {
		log.Printf("[ANALYTICS] yearly comparison failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "No se pudo calcular la comparativa anual"})
	}
	return c.JSON(fiber.Map{"status": "success", "data": comparison})
}
