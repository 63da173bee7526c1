package analytics

import (
	"context"
	"fmt"
	"time"

	"app/models"
	"app/store"

	"github.com/shopspring/decimal"
)

// Service exposes the pure aggregation primitives every report and the
// forecasting dashboard are built from. All reads go through the store
// contract; nothing here touches SQL.
type Service struct {
	st store.Store
}

// New builds an analytics service over a store.
func New(st store.Store) *Service {
	return &Service{st: st}
}

// Summary is the headline block of the analytics dashboard.
type Summary struct {
	TotalVentas    decimal.Decimal `json:"total_ventas"`
	TotalPedidos   int             `json:"total_pedidos"`
	TicketPromedio decimal.Decimal `json:"ticket_promedio"`
	TotalClientes  int             `json:"total_clientes"`
	TotalProductos int             `json:"total_productos"`
}

// InventorySummary aggregates the active catalog.
type InventorySummary struct {
	ProductosActivos int `json:"productos_activos"`
	StockTotal       int `json:"stock_total"`
	SinStock         int `json:"sin_stock"`
	Categorias       int `json:"categorias"`
}

// CustomerAnalytics aggregates the customer base.
type CustomerAnalytics struct {
	TotalClientes  int                    `json:"total_clientes"`
	NuevosEsteMes  int                    `json:"nuevos_este_mes"`
	TopClientes    []models.CustomerSpend `json:"top_clientes"`
	GastoPromedio  decimal.Decimal        `json:"gasto_promedio"`
	ClientesActivo int                    `json:"clientes_con_pedidos"`
}

// MonthSales is one dense sales_by_month row.
type MonthSales struct {
	Label      string          `json:"mes"`
	TotalSales decimal.Decimal `json:"total_ventas"`
	OrderCount int             `json:"pedidos"`
}

// YearTotals are the per-year aggregates of the yearly comparison.
type YearTotals struct {
	Ventas          decimal.Decimal   `json:"ventas"`
	Pedidos         int               `json:"pedidos"`
	NuevosClientes  int               `json:"nuevos_clientes"`
	NuevosProductos int               `json:"nuevos_productos"`
	TicketPromedio  decimal.Decimal   `json:"ticket_promedio"`
	Mensual         []decimal.Decimal `json:"mensual"` // 12 buckets, Ene..Dic
}

// MetricDelta carries the absolute and percentage change of one metric
// between the two compared years.
type MetricDelta struct {
	Metric     string  `json:"metrica"`
	Previous   float64 `json:"anterior"`
	Current    float64 `json:"actual"`
	Delta      float64 `json:"diferencia"`
	DeltaPct   float64 `json:"variacion_pct"`
	PrevLabel  string  `json:"anio_anterior"`
	CurrLabel  string  `json:"anio_actual"`
}

// YearlyComparison compares two calendar years.
type YearlyComparison struct {
	PreviousYear int           `json:"anio_anterior"`
	CurrentYear  int           `json:"anio_actual"`
	Previous     YearTotals    `json:"totales_anterior"`
	Current      YearTotals    `json:"totales_actual"`
	Comparison   []MetricDelta `json:"comparacion"`
}

// Overview is the composite analytics payload.
type Overview struct {
	Summary        Summary              `json:"summary"`
	Inventory      InventorySummary     `json:"inventory_summary"`
	Customers      CustomerAnalytics    `json:"customer_analytics"`
	SalesByMonth   []MonthSales         `json:"sales_by_month"`
	TopProducts    []models.ProductUnits `json:"top_products"`
	OrdersByStatus []models.StatusCount `json:"orders_by_status"`
	Yearly         YearlyComparison     `json:"yearly_comparison"`
}

// PercentChange implements the shared percentage law: ((new-old)/old)*100
// when old > 0; 100 when old = 0 and new > 0; otherwise 0.
func PercentChange(old, new float64) float64 {
	if old > 0 {
		return (new - old) / old * 100
	}
	if new > 0 {
		return 100
	}
	return 0
}

// Summary aggregates all-time revenue-recognized sales plus catalog and
// customer counts.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	buckets, err := s.st.SalesMonthBuckets(ctx, time.Time{}, farFuture())
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	orders := 0
	for _, b := range buckets {
		total = total.Add(b.Revenue)
		orders += b.OrderCount
	}
	ticket := decimal.Zero
	if orders > 0 {
		ticket = total.DivRound(decimal.NewFromInt(int64(orders)), 2)
	}
	customers, err := s.st.CustomersRegisteredBetween(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	products, err := s.st.Products(ctx, "", "", false)
	if err != nil {
		return nil, err
	}
	return &Summary{
		TotalVentas:    total,
		TotalPedidos:   orders,
		TicketPromedio: ticket,
		TotalClientes:  len(customers),
		TotalProductos: len(products),
	}, nil
}

// InventorySummary aggregates the active catalog: product count, total
// stock, out-of-stock count and distinct categories.
func (s *Service) InventorySummary(ctx context.Context) (*InventorySummary, error) {
	products, err := s.st.Products(ctx, "", "", true)
	if err != nil {
		return nil, err
	}
	out := &InventorySummary{ProductosActivos: len(products)}
	categories := map[string]bool{}
	for _, p := range products {
		stock := p.StockTotal()
		out.StockTotal += stock
		if stock == 0 {
			out.SinStock++
		}
		for _, c := range p.Categories {
			categories[c] = true
		}
	}
	out.Categorias = len(categories)
	return out, nil
}

// CustomerAnalytics aggregates the customer base with a top-5 by spend.
func (s *Service) CustomerAnalytics(ctx context.Context, now time.Time) (*CustomerAnalytics, error) {
	spending, err := s.st.CustomerSpending(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nuevos, err := s.st.CountNewCustomers(ctx, monthStart, now)
	if err != nil {
		return nil, err
	}
	out := &CustomerAnalytics{
		TotalClientes: len(spending),
		NuevosEsteMes: nuevos,
		GastoPromedio: decimal.Zero,
	}
	total := decimal.Zero
	for _, cs := range spending {
		total = total.Add(cs.TotalSpent)
		if cs.OrderCount > 0 {
			out.ClientesActivo++
		}
	}
	if len(spending) > 0 {
		out.GastoPromedio = total.DivRound(decimal.NewFromInt(int64(len(spending))), 2)
	}
	top := 5
	if len(spending) < top {
		top = len(spending)
	}
	out.TopClientes = spending[:top]
	return out, nil
}

// SalesByMonth emits exactly `months` dense rows ending at the month of
// `now`, zero-filled where no orders exist, labeled "Mon YYYY".
func (s *Service) SalesByMonth(ctx context.Context, months int, now time.Time) ([]MonthSales, error) {
	if months <= 0 {
		months = 6
	}
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0).Add(-time.Second)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)

	buckets, err := s.st.SalesMonthBuckets(ctx, start, end)
	if err != nil {
		return nil, err
	}
	type key struct{ y, m int }
	index := make(map[key]models.MonthBucket, len(buckets))
	for _, b := range buckets {
		index[key{b.Year, b.Month}] = b
	}

	out := make([]MonthSales, 0, months)
	cursor := start
	for i := 0; i < months; i++ {
		k := key{cursor.Year(), int(cursor.Month())}
		row := MonthSales{
			Label:      models.SpanishMonthShort(k.m) + " " + fmt.Sprint(k.y),
			TotalSales: decimal.Zero,
		}
		if b, ok := index[k]; ok {
			row.TotalSales = b.Revenue
			row.OrderCount = b.OrderCount
		}
		out = append(out, row)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out, nil
}

// TopSellingProducts ranks products by units sold across all history, ties
// broken by product id ascending (the store guarantees the tie-break).
func (s *Service) TopSellingProducts(ctx context.Context, limit int) ([]models.ProductUnits, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.st.TopProducts(ctx, time.Time{}, time.Time{}, limit)
}

// OrdersByStatus is the all-time status breakdown.
func (s *Service) OrdersByStatus(ctx context.Context) ([]models.StatusCount, error) {
	return s.st.OrdersByStatus(ctx, time.Time{}, time.Time{})
}

func (s *Service) yearTotals(ctx context.Context, year int, loc *time.Location) (YearTotals, error) {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(year, 12, 31, 23, 59, 59, 0, loc)

	totals := YearTotals{
		Ventas:         decimal.Zero,
		TicketPromedio: decimal.Zero,
		Mensual:        make([]decimal.Decimal, 12),
	}
	for i := range totals.Mensual {
		totals.Mensual[i] = decimal.Zero
	}

	buckets, err := s.st.SalesMonthBuckets(ctx, start, end)
	if err != nil {
		return totals, err
	}
	for _, b := range buckets {
		totals.Ventas = totals.Ventas.Add(b.Revenue)
		totals.Pedidos += b.OrderCount
		totals.Mensual[b.Month-1] = b.Revenue
	}
	if totals.Pedidos > 0 {
		totals.TicketPromedio = totals.Ventas.DivRound(decimal.NewFromInt(int64(totals.Pedidos)), 2)
	}
	if totals.NuevosClientes, err = s.st.CountNewCustomers(ctx, start, end); err != nil {
		return totals, err
	}
	if totals.NuevosProductos, err = s.st.CountNewProducts(ctx, start, end); err != nil {
		return totals, err
	}
	return totals, nil
}

// YearlyComparison produces per-year totals for 2024 and 2025 plus deltas
// for ventas, pedidos, nuevos_clientes, nuevos_productos and
// ticket_promedio.
func (s *Service) YearlyComparison(ctx context.Context) (*YearlyComparison, error) {
	const prevYear, currYear = 2024, 2025
	loc := time.UTC

	prev, err := s.yearTotals(ctx, prevYear, loc)
	if err != nil {
		return nil, err
	}
	curr, err := s.yearTotals(ctx, currYear, loc)
	if err != nil {
		return nil, err
	}

	delta := func(metric string, old, new float64) MetricDelta {
		return MetricDelta{
			Metric:    metric,
			Previous:  old,
			Current:   new,
			Delta:     new - old,
			DeltaPct:  PercentChange(old, new),
			PrevLabel: fmt.Sprint(prevYear),
			CurrLabel: fmt.Sprint(currYear),
		}
	}
	prevVentas, _ := prev.Ventas.Float64()
	currVentas, _ := curr.Ventas.Float64()
	prevTicket, _ := prev.TicketPromedio.Float64()
	currTicket, _ := curr.TicketPromedio.Float64()

	return &YearlyComparison{
		PreviousYear: prevYear,
		CurrentYear:  currYear,
		Previous:     prev,
		Current:      curr,
		Comparison: []MetricDelta{
			delta("ventas", prevVentas, currVentas),
			delta("pedidos", float64(prev.Pedidos), float64(curr.Pedidos)),
			delta("nuevos_clientes", float64(prev.NuevosClientes), float64(curr.NuevosClientes)),
			delta("nuevos_productos", float64(prev.NuevosProductos), float64(curr.NuevosProductos)),
			delta("ticket_promedio", prevTicket, currTicket),
		},
	}, nil
}

// Overview assembles the full composite payload.
func (s *Service) Overview(ctx context.Context, months int, now time.Time) (*Overview, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}
	inventory, err := s.InventorySummary(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.CustomerAnalytics(ctx, now)
	if err != nil {
		return nil, err
	}
	if months <= 0 {
		months = 6
	}
	byMonth, err := s.SalesByMonth(ctx, months, now)
	if err != nil {
		return nil, err
	}
	topProducts, err := s.TopSellingProducts(ctx, 10)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.OrdersByStatus(ctx)
	if err != nil {
		return nil, err
	}
	yearly, err := s.YearlyComparison(ctx)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Summary:        *summary,
		Inventory:      *inventory,
		Customers:      *customers,
		SalesByMonth:   byMonth,
		TopProducts:    topProducts,
		OrdersByStatus: byStatus,
		Yearly:         *yearly,
	}, nil
}

func farFuture() time.Time {
	return time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
}
