package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"app/models"
	"app/store"
)

var testNow = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

func seedStore() *store.Mem {
	st := store.NewMem()
	st.Orders = []models.OrderFact{
		{
			OrderID: "o1", OrderNumber: "PED-0001", CustomerRef: "c1", CustomerName: "Ana García",
			Status: models.StatusEntregado, CreatedAt: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
			Total: decimal.NewFromInt(100),
			Lines: []models.OrderLine{{ProductRef: "p1", ProductName: "Vestido Floral", Category: "Vestidos", Quantity: 2, UnitPrice: decimal.NewFromInt(50), LineTotal: decimal.NewFromInt(100)}},
		},
		{
			OrderID: "o2", OrderNumber: "PED-0002", CustomerRef: "c2", CustomerName: "Luis Pérez",
			Status: models.StatusEnviado, CreatedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			Total: decimal.NewFromInt(60),
			Lines: []models.OrderLine{{ProductRef: "p2", ProductName: "Jeans Slim", Category: "Jeans", Quantity: 1, UnitPrice: decimal.NewFromInt(60), LineTotal: decimal.NewFromInt(60)}},
		},
		{
			OrderID: "o3", OrderNumber: "PED-0003", CustomerRef: "c1", CustomerName: "Ana García",
			Status: models.StatusCancelado, CreatedAt: time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
			Total: decimal.NewFromInt(999),
			Lines: []models.OrderLine{{ProductRef: "p1", ProductName: "Vestido Floral", Category: "Vestidos", Quantity: 9, UnitPrice: decimal.NewFromInt(111), LineTotal: decimal.NewFromInt(999)}},
		},
	}
	st.ProductList = []models.ProductFact{
		{ProductRef: "p1", Name: "Vestido Floral", Brand: "Zara", Categories: []string{"Vestidos"}, Price: decimal.NewFromInt(50), StockBySize: map[string]int{"S": 2}, Active: true},
		{ProductRef: "p2", Name: "Jeans Slim", Brand: "Levis", Categories: []string{"Jeans"}, Price: decimal.NewFromInt(60), StockBySize: map[string]int{}, Active: true},
	}
	st.Customers = []models.CustomerFact{
		{CustomerRef: "c1", Name: "Ana García", Email: "ana@example.com", RegisteredAt: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
		{CustomerRef: "c2", Name: "Luis Pérez", Email: "luis@example.com", RegisteredAt: time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)},
	}
	return st
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 50.0, PercentChange(100, 150))
	assert.Equal(t, -25.0, PercentChange(100, 75))
	assert.Equal(t, 100.0, PercentChange(0, 30))
	assert.Equal(t, 0.0, PercentChange(0, 0))
}

func TestSummary_ExcludesNonRevenueOrders(t *testing.T) {
	svc := New(seedStore())

	summary, err := svc.Summary(context.Background())
	assert.NoError(t, err)
	// the cancelled 999 order never counts
	assert.True(t, summary.TotalVentas.Equal(decimal.NewFromInt(160)))
	assert.Equal(t, 2, summary.TotalPedidos)
	assert.True(t, summary.TicketPromedio.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, 2, summary.TotalClientes)
}

func TestSalesByMonth_DenseZeroFilled(t *testing.T) {
	svc := New(seedStore())

	series, err := svc.SalesByMonth(context.Background(), 6, testNow)
	assert.NoError(t, err)
	assert.Len(t, series, 6)
	assert.Equal(t, "Feb 2025", series[0].Label)
	assert.Equal(t, "Jul 2025", series[5].Label)

	// months without revenue orders come back zero-filled
	assert.True(t, series[1].TotalSales.IsZero())
	assert.Equal(t, 0, series[1].OrderCount)
	assert.True(t, series[3].TotalSales.Equal(decimal.NewFromInt(100)))
	assert.True(t, series[5].TotalSales.Equal(decimal.NewFromInt(60)))
}

func TestInventorySummary(t *testing.T) {
	svc := New(seedStore())

	inv, err := svc.InventorySummary(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, inv.ProductosActivos)
	assert.Equal(t, 2, inv.StockTotal)
	assert.Equal(t, 1, inv.SinStock)
	assert.Equal(t, 2, inv.Categorias)
}

func TestCustomerAnalytics(t *testing.T) {
	svc := New(seedStore())

	ca, err := svc.CustomerAnalytics(context.Background(), testNow)
	assert.NoError(t, err)
	assert.Equal(t, 2, ca.TotalClientes)
	assert.Equal(t, 1, ca.NuevosEsteMes)
	assert.Equal(t, 2, ca.ClientesActivo)
	assert.Equal(t, "Ana García", ca.TopClientes[0].Name)
}

func TestTopSellingProducts(t *testing.T) {
	svc := New(seedStore())

	top, err := svc.TopSellingProducts(context.Background(), 10)
	assert.NoError(t, err)
	assert.Len(t, top, 2)
	assert.Equal(t, "Vestido Floral", top[0].Name)
	assert.Equal(t, 2, top[0].Units)
}

func TestOverview_Composite(t *testing.T) {
	svc := New(seedStore())

	overview, err := svc.Overview(context.Background(), 6, testNow)
	assert.NoError(t, err)
	assert.Len(t, overview.SalesByMonth, 6)
	assert.NotEmpty(t, overview.TopProducts)
	assert.NotEmpty(t, overview.OrdersByStatus)
	assert.Equal(t, 2024, overview.Yearly.PreviousYear)
	assert.Equal(t, 2025, overview.Yearly.CurrentYear)
}
