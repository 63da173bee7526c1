package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"app/models"
	"app/store"
)

func seedStore() *store.Mem {
	st := store.NewMem()
	st.Orders = []models.OrderFact{
		{
			OrderID:      "o1",
			OrderNumber:  "PED-0001",
			CustomerRef:  "c1",
			CustomerName: "Ana García",
			Status:       models.StatusEntregado,
			CreatedAt:    time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC),
			Total:        decimal.NewFromInt(150),
			Lines: []models.OrderLine{
				{ProductRef: "p1", ProductName: "Vestido Floral", Category: "Vestidos", Quantity: 2, UnitPrice: decimal.NewFromInt(45), LineTotal: decimal.NewFromInt(90)},
				{ProductRef: "p2", ProductName: "Jeans Slim", Category: "Jeans", Quantity: 1, UnitPrice: decimal.NewFromInt(60), LineTotal: decimal.NewFromInt(60)},
			},
		},
		{
			OrderID:      "o2",
			OrderNumber:  "PED-0002",
			CustomerRef:  "c2",
			CustomerName: "Luis Pérez",
			Status:       models.StatusPagoRecibido,
			CreatedAt:    time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
			Total:        decimal.NewFromInt(90),
			Lines: []models.OrderLine{
				{ProductRef: "p1", ProductName: "Vestido Floral", Category: "Vestidos", Quantity: 2, UnitPrice: decimal.NewFromInt(45), LineTotal: decimal.NewFromInt(90)},
			},
		},
		{
			OrderID:      "o3",
			OrderNumber:  "PED-0003",
			CustomerRef:  "c1",
			CustomerName: "Ana García",
			Status:       models.StatusCancelado,
			CreatedAt:    time.Date(2025, 6, 20, 18, 0, 0, 0, time.UTC),
			Total:        decimal.NewFromInt(60),
			Lines: []models.OrderLine{
				{ProductRef: "p2", ProductName: "Jeans Slim", Category: "Jeans", Quantity: 1, UnitPrice: decimal.NewFromInt(60), LineTotal: decimal.NewFromInt(60)},
			},
		},
	}
	st.ProductList = []models.ProductFact{
		{ProductRef: "p1", Name: "Vestido Floral", Brand: "Zara", Categories: []string{"Vestidos"}, Price: decimal.NewFromInt(45), StockBySize: map[string]int{"S": 3, "M": 2}, Active: true},
		{ProductRef: "p2", Name: "Jeans Slim", Brand: "Levis", Categories: []string{"Jeans"}, Price: decimal.NewFromInt(60), StockBySize: map[string]int{"M": 0}, Active: true},
		{ProductRef: "p3", Name: "Blusa Retirada", Brand: "Zara", Categories: []string{"Blusas"}, Price: decimal.NewFromInt(25), Active: false},
	}
	st.Customers = []models.CustomerFact{
		{CustomerRef: "c1", Name: "Ana García", Email: "ana@example.com", RegisteredAt: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
		{CustomerRef: "c2", Name: "Luis Pérez", Email: "luis@example.com", RegisteredAt: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)},
	}
	return st
}

func TestCompile_VentasPorProducto(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{
		Kind:    models.ReportVentas,
		Format:  models.FormatPDF,
		Filters: map[string]string{},
		GroupBy: []models.GroupKey{models.GroupProducto},
	}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Equal(t, []string{"producto", "precio", "cantidad_vendida", "total_ventas"}, data.Columns)
	assert.Len(t, data.Rows, 2)

	// p1 sold 4 units across two orders, p2 twice (including a cancelled one)
	assert.Equal(t, "Vestido Floral", data.Rows[0]["producto"])
	assert.Equal(t, 4, data.Rows[0]["cantidad_vendida"])
	assert.Equal(t, "Jeans Slim", data.Rows[1]["producto"])
	assert.Equal(t, 2, data.Rows[1]["cantidad_vendida"])
	assert.Equal(t, 2, data.Meta.TotalRecords)
}

func TestCompile_VentasFlatNewestFirst(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{Kind: models.ReportVentas, Filters: map[string]string{}}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Len(t, data.Rows, 3)
	assert.Equal(t, "PED-0003", data.Rows[0]["numero_pedido"])
	assert.Equal(t, "PED-0001", data.Rows[2]["numero_pedido"])
}

func TestCompile_VentasNoPeriodSpansAllOrders(t *testing.T) {
	st := seedStore()
	st.Orders = append(st.Orders, models.OrderFact{
		OrderID:      "o0",
		OrderNumber:  "PED-0000",
		CustomerRef:  "c2",
		CustomerName: "Luis Pérez",
		Status:       models.StatusEntregado,
		CreatedAt:    time.Date(2023, 11, 2, 10, 0, 0, 0, time.UTC),
		Total:        decimal.NewFromInt(40),
	})
	c := NewCompiler(st)
	spec := &models.ReportSpec{Kind: models.ReportVentas, Filters: map[string]string{}}

	// Without a period the base set is every order on record, however old.
	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Len(t, data.Rows, 4)
	assert.Equal(t, 4, data.Meta.TotalRecords)
	assert.Equal(t, "PED-0000", data.Rows[3]["numero_pedido"])
}

func TestCompile_VentasCategoryFilterNarrowsLines(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{
		Kind:    models.ReportVentas,
		Filters: map[string]string{models.FilterCategoria: "Vestidos"},
		GroupBy: []models.GroupKey{models.GroupProducto},
	}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Len(t, data.Rows, 1)
	assert.Equal(t, "Vestido Floral", data.Rows[0]["producto"])
}

func TestCompile_VentasStatusFilter(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{
		Kind:    models.ReportVentas,
		Filters: map[string]string{models.FilterEstado: string(models.StatusCancelado)},
	}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Len(t, data.Rows, 1)
	assert.Equal(t, "PED-0003", data.Rows[0]["numero_pedido"])
}

func TestCompile_VentasPeriodBounds(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{
		Kind:    models.ReportVentas,
		Filters: map[string]string{},
		Period: &models.ReportPeriod{
			Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 5, 23, 59, 59, 0, time.UTC),
			Label: "Inicio de junio",
		},
	}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Len(t, data.Rows, 1)
	assert.Equal(t, "Inicio de junio", data.Meta.PeriodLabel)
}

func TestCompile_RejectsUnsupportedFilter(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{
		Kind:    models.ReportVentas,
		Filters: map[string]string{models.FilterMarca: "Zara"},
	}

	_, err := c.Compile(context.Background(), spec)
	assert.Error(t, err)
	_, ok := err.(*models.QueryBuildError)
	assert.True(t, ok)
}

func TestCompile_ProductosActiveOnly(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{Kind: models.ReportProductos, Filters: map[string]string{}}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Len(t, data.Rows, 2)
	for _, row := range data.Rows {
		assert.NotEqual(t, "Blusa Retirada", row["producto"])
	}
}

func TestCompile_ProductosPorCategoria(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{
		Kind:    models.ReportProductos,
		Filters: map[string]string{},
		GroupBy: []models.GroupKey{models.GroupCategoria},
	}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Equal(t, []string{"categoria", "productos"}, data.Columns)
	assert.Len(t, data.Rows, 2)
}

func TestCompile_ClientesOrderedBySpend(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{Kind: models.ReportClientes, Filters: map[string]string{}}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Len(t, data.Rows, 2)
	// Ana's only revenue order totals 150 (the cancelled one doesn't count)
	assert.Equal(t, "Ana García", data.Rows[0]["cliente"])
	assert.Equal(t, "Luis Pérez", data.Rows[1]["cliente"])
}

func TestCompile_Limit(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{Kind: models.ReportVentas, Filters: map[string]string{}, Limit: 1}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Len(t, data.Rows, 1)
	assert.Equal(t, 1, data.Meta.TotalRecords)
}

func TestCompile_AnalyticsSections(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{Kind: models.ReportAnalytics, Filters: map[string]string{}}

	data, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	assert.Empty(t, data.Rows)
	assert.Len(t, data.Sections, 7)
	assert.Equal(t, "Resumen", data.Sections[0].Title)
	assert.Equal(t, "Comparativa anual", data.Sections[6].Title)
}

func TestCompile_IsDeterministic(t *testing.T) {
	c := NewCompiler(seedStore())
	spec := &models.ReportSpec{
		Kind:    models.ReportVentas,
		Filters: map[string]string{},
		GroupBy: []models.GroupKey{models.GroupProducto},
	}

	first, err := c.Compile(context.Background(), spec)
	assert.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := c.Compile(context.Background(), spec)
		assert.NoError(t, err)
		assert.Equal(t, first.Rows, again.Rows)
		assert.Equal(t, first.Columns, again.Columns)
	}
}
