package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"app/models"
	"app/store"
)

func newTestApp(t *testing.T) (*fiber.App, *store.Mem) {
	st := store.NewMem()
	st.Orders = []models.OrderFact{
		{
			OrderID: "o1", OrderNumber: "PED-0001", CustomerRef: "c1", CustomerName: "Ana García",
			Status: models.StatusEntregado, CreatedAt: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
			Total: decimal.NewFromInt(90),
			Lines: []models.OrderLine{{ProductRef: "p1", ProductName: "Vestido Floral", Category: "Vestidos", Quantity: 2, UnitPrice: decimal.NewFromInt(45), LineTotal: decimal.NewFromInt(90)}},
		},
	}
	st.Customers = []models.CustomerFact{
		{CustomerRef: "c1", Name: "Ana García", Email: "ana@example.com", RegisteredAt: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
	}
	Init(st, t.TempDir())

	app := fiber.New()
	app.Get("/api/v1/health", HandleHealth)
	app.Get("/api/v1/version", HandleVersion)
	app.Post("/api/v1/reports/generate", HandleGenerateReport)
	app.Post("/api/v1/reports/predefined", HandlePredefinedReport)
	app.Post("/api/v1/reports/preview", HandlePreviewReport)
	app.Get("/api/v1/reports/templates", HandleListTemplates)
	app.Get("/api/v1/analytics/overview", HandleAnalyticsOverview)
	app.Post("/api/v1/ai/train-model", HandleTrainModel)
	app.Get("/api/v1/ai/active-model", HandleActiveModel)
	app.Post("/api/v1/ai/predictions/sales-forecast", HandleSalesForecast)
	app.Post("/api/v1/ai/predictions/:predictionId/validate", HandleValidatePrediction)
	return app, st
}

func TestHandleHealth(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHandleListTemplates(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/reports/templates", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var payload struct {
		Status string `json:"status"`
		Data   struct {
			Templates []models.ReportTemplate `json:"templates"`
			Formats   []models.ReportFormat   `json:"formats"`
		} `json:"data"`
	}
	body, _ := io.ReadAll(resp.Body)
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "success", payload.Status)
	assert.NotEmpty(t, payload.Data.Templates)
	assert.Contains(t, payload.Data.Formats, models.FormatPDF)
}

func TestHandleGenerateReport_MissingPrompt(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/reports/generate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleGenerateReport_UnknownKind(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/reports/generate", strings.NewReader(`{"prompt":"hazme un informe bonito"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var payload struct {
		Status string `json:"status"`
		Tag    string `json:"tag"`
	}
	body, _ := io.ReadAll(resp.Body)
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "error", payload.Status)
	assert.Equal(t, models.ParseTagUnknownKind, payload.Tag)
}

func TestHandleGenerateReport_CSVDownload(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/reports/generate", strings.NewReader(`{"prompt":"reporte de ventas en csv"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 10000)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".csv")

	body, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(body, []byte("\xEF\xBB\xBF")))
}

func TestHandleGenerateReport_UnknownFormatIsBadRequest(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/reports/generate", strings.NewReader(`{"prompt":"reporte de ventas","format":"dbf"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestReportErrorMapping(t *testing.T) {
	app := fiber.New()
	app.Get("/render-fail", func(c *fiber.Ctx) error {
		return reportError(c, &models.RenderError{Msg: "flujo de bytes no escribible"})
	})
	app.Get("/bad-format", func(c *fiber.Ctx) error {
		return reportError(c, &models.UnknownFormatError{Format: "dbf"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/render-fail", nil))
	assert.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.NotContains(t, string(body), "flujo de bytes")

	resp, err = app.Test(httptest.NewRequest("GET", "/bad-format", nil))
	assert.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandlePredefinedReport_UnknownType(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/reports/predefined", strings.NewReader(`{"report_type":"facturas","format":"pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandlePreviewReport(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/reports/preview", strings.NewReader(`{"prompt":"reporte de ventas"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHandleActiveModel_NotFoundWithoutTraining(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/ai/active-model", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestHandleSalesForecast_NotFoundWithoutModel(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/ai/predictions/sales-forecast", strings.NewReader(`{"n_months":3}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestHandleSalesForecast_ValidatesMonths(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/ai/predictions/sales-forecast", strings.NewReader(`{"n_months":24}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleTrainModel_ValidatesParams(t *testing.T) {
	app, _ := newTestApp(t)

	for _, body := range []string{
		`{"n_estimators":5}`,
		`{"max_depth":100}`,
		`{"test_size":0.9}`,
		`{"months_back":3}`,
	} {
		req := httptest.NewRequest("POST", "/api/v1/ai/train-model", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode, "body %s", body)
	}
}

func TestHandleTrainModel_TrainsAndActivates(t *testing.T) {
	app, st := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/ai/train-model", strings.NewReader(`{"n_estimators":10,"max_depth":4}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 60000)
	assert.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Model        json.RawMessage `json:"model"`
			TrainingInfo json.RawMessage `json:"training_info"`
		} `json:"data"`
	}
	body, _ := io.ReadAll(resp.Body)
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "success", payload.Status)
	assert.NotEmpty(t, payload.Message)
	assert.NotEmpty(t, payload.Data.Model)
	assert.NotEmpty(t, payload.Data.TrainingInfo)

	model, err := st.ActiveModel(context.Background())
	assert.NoError(t, err)
	assert.True(t, model.Active)
}

func TestHandleValidatePrediction_UnknownID(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/ai/predictions/no-such-id/validate", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestHandleAnalyticsOverview(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/analytics/overview?months=6", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
