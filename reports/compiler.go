package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"app/analytics"
	"app/models"
	"app/store"

	"github.com/shopspring/decimal"
)

// Compiler executes a ReportSpec against the data layer and produces
// ReportData. It is pure over the store's read contract: same spec + same
// data = same row sequence.
type Compiler struct {
	st        store.Store
	analytics *analytics.Service
}

// NewCompiler builds a compiler over a store.
func NewCompiler(st store.Store) *Compiler {
	return &Compiler{st: st, analytics: analytics.New(st)}
}

// allowedFilters is the closed enumeration of filter fields per kind; the
// compiler rejects anything else instead of interpolating field names.
var allowedFilters = map[models.ReportKind][]string{
	models.ReportVentas:    {models.FilterEstado, models.FilterCategoria},
	models.ReportProductos: {models.FilterCategoria, models.FilterMarca},
	models.ReportClientes:  {},
	models.ReportAnalytics: {},
}

func validateFilters(spec *models.ReportSpec) error {
	allowed := allowedFilters[spec.Kind]
	for key := range spec.Filters {
		ok := false
		for _, a := range allowed {
			if a == key {
				ok = true
				break
			}
		}
		if !ok {
			return &models.QueryBuildError{
				Msg: fmt.Sprintf("el filtro %q no está soportado para reportes de %s", key, spec.Kind),
			}
		}
	}
	if spec.Limit < 0 {
		return &models.QueryBuildError{Msg: "el límite debe ser un número positivo"}
	}
	return nil
}

func periodBounds(spec *models.ReportSpec) (time.Time, time.Time) {
	if spec.Period == nil {
		return time.Time{}, time.Time{}
	}
	return spec.Period.Start, spec.Period.End
}

// Compile dispatches on the report kind.
func (c *Compiler) Compile(ctx context.Context, spec *models.ReportSpec) (*models.ReportData, error) {
	if err := validateFilters(spec); err != nil {
		return nil, err
	}

	var data *models.ReportData
	var err error
	switch spec.Kind {
	case models.ReportVentas:
		data, err = c.compileVentas(ctx, spec)
	case models.ReportProductos:
		data, err = c.compileProductos(ctx, spec)
	case models.ReportClientes:
		data, err = c.compileClientes(ctx, spec)
	case models.ReportAnalytics:
		data, err = c.compileAnalytics(ctx, spec)
	default:
		return nil, &models.QueryBuildError{Msg: fmt.Sprintf("tipo de reporte desconocido: %q", spec.Kind)}
	}
	if err != nil {
		return nil, err
	}

	data.Meta.FiltersApplied = spec.Filters
	data.Meta.GroupBy = spec.GroupBy
	data.Meta.GeneratedAt = time.Now()
	if spec.Period != nil {
		data.Meta.PeriodLabel = spec.Period.Label
	}
	return data, nil
}

func hasGroup(spec *models.ReportSpec, key models.GroupKey) bool {
	for _, g := range spec.GroupBy {
		if g == key {
			return true
		}
	}
	return false
}

func applyLimit(rows []models.Row, limit int) []models.Row {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func (c *Compiler) compileVentas(ctx context.Context, spec *models.ReportSpec) (*models.ReportData, error) {
	start, end := periodBounds(spec)
	status := models.OrderStatus(spec.Filters[models.FilterEstado])
	orders, err := c.st.OrdersBetween(ctx, start, end, status, false)
	if err != nil {
		return nil, err
	}

	// A category filter narrows order lines, and drops orders left without
	// matching lines.
	if category := spec.Filters[models.FilterCategoria]; category != "" {
		filtered := orders[:0]
		for _, o := range orders {
			lines := make([]models.OrderLine, 0, len(o.Lines))
			for _, l := range o.Lines {
				if strings.EqualFold(l.Category, category) {
					lines = append(lines, l)
				}
			}
			if len(lines) > 0 {
				o.Lines = lines
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	// Only one grouping applies; producto wins over mes over cliente.
	switch {
	case hasGroup(spec, models.GroupProducto):
		return ventasPorProducto(orders, spec.Limit), nil
	case hasGroup(spec, models.GroupMes):
		return ventasPorMes(orders, spec.Limit), nil
	case hasGroup(spec, models.GroupCliente):
		return ventasPorCliente(orders, spec.Limit), nil
	}

	columns := []string{"numero_pedido", "fecha", "cliente", "estado", "total", "articulos"}
	rows := make([]models.Row, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, models.Row{
			"numero_pedido": o.OrderNumber,
			"fecha":         o.CreatedAt,
			"cliente":       o.CustomerName,
			"estado":        string(o.Status),
			"total":         o.Total,
			"articulos":     len(o.Lines),
		})
	}
	rows = applyLimit(rows, spec.Limit)
	return &models.ReportData{
		Columns: columns,
		Rows:    rows,
		Meta:    models.ReportMetadata{TotalRecords: len(rows)},
	}, nil
}

func ventasPorProducto(orders []models.OrderFact, limit int) *models.ReportData {
	type agg struct {
		ref     string
		name    string
		price   decimal.Decimal
		units   int
		revenue decimal.Decimal
	}
	byProduct := make(map[string]*agg)
	for _, o := range orders {
		for _, l := range o.Lines {
			a, ok := byProduct[l.ProductRef]
			if !ok {
				a = &agg{ref: l.ProductRef, name: l.ProductName, price: l.UnitPrice, revenue: decimal.Zero}
				byProduct[l.ProductRef] = a
			}
			a.units += l.Quantity
			a.revenue = a.revenue.Add(l.LineTotal)
		}
	}
	aggs := make([]*agg, 0, len(byProduct))
	for _, a := range byProduct {
		aggs = append(aggs, a)
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].units != aggs[j].units {
			return aggs[i].units > aggs[j].units
		}
		return aggs[i].ref < aggs[j].ref
	})

	rows := make([]models.Row, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, models.Row{
			"producto":         a.name,
			"precio":           a.price,
			"cantidad_vendida": a.units,
			"total_ventas":     a.revenue,
		})
	}
	rows = applyLimit(rows, limit)
	return &models.ReportData{
		Columns: []string{"producto", "precio", "cantidad_vendida", "total_ventas"},
		Rows:    rows,
		Meta:    models.ReportMetadata{TotalRecords: len(rows)},
	}
}

func ventasPorMes(orders []models.OrderFact, limit int) *models.ReportData {
	type key struct{ y, m int }
	type agg struct {
		count   int
		revenue decimal.Decimal
	}
	buckets := make(map[key]*agg)
	for _, o := range orders {
		k := key{o.CreatedAt.Year(), int(o.CreatedAt.Month())}
		a, ok := buckets[k]
		if !ok {
			a = &agg{revenue: decimal.Zero}
			buckets[k] = a
		}
		a.count++
		a.revenue = a.revenue.Add(o.Total)
	}
	keys := make([]key, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].y != keys[j].y {
			return keys[i].y < keys[j].y
		}
		return keys[i].m < keys[j].m
	})

	rows := make([]models.Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, models.Row{
			"mes":      models.SpanishMonthShort(k.m) + " " + fmt.Sprint(k.y),
			"pedidos":  buckets[k].count,
			"ingresos": buckets[k].revenue,
		})
	}
	rows = applyLimit(rows, limit)
	return &models.ReportData{
		Columns: []string{"mes", "pedidos", "ingresos"},
		Rows:    rows,
		Meta:    models.ReportMetadata{TotalRecords: len(rows)},
	}
}

func ventasPorCliente(orders []models.OrderFact, limit int) *models.ReportData {
	type agg struct {
		ref   string
		name  string
		count int
		spent decimal.Decimal
	}
	byCustomer := make(map[string]*agg)
	for _, o := range orders {
		a, ok := byCustomer[o.CustomerRef]
		if !ok {
			a = &agg{ref: o.CustomerRef, name: o.CustomerName, spent: decimal.Zero}
			byCustomer[o.CustomerRef] = a
		}
		a.count++
		a.spent = a.spent.Add(o.Total)
	}
	aggs := make([]*agg, 0, len(byCustomer))
	for _, a := range byCustomer {
		aggs = append(aggs, a)
	}
	sort.Slice(aggs, func(i, j int) bool {
		cmp := aggs[i].spent.Cmp(aggs[j].spent)
		if cmp != 0 {
			return cmp > 0
		}
		return aggs[i].ref < aggs[j].ref
	})

	rows := make([]models.Row, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, models.Row{
			"cliente":       a.name,
			"pedidos":       a.count,
			"total_gastado": a.spent,
		})
	}
	rows = applyLimit(rows, limit)
	return &models.ReportData{
		Columns: []string{"cliente", "pedidos", "total_gastado"},
		Rows:    rows,
		Meta:    models.ReportMetadata{TotalRecords: len(rows)},
	}
}

func (c *Compiler) compileProductos(ctx context.Context, spec *models.ReportSpec) (*models.ReportData, error) {
	products, err := c.st.Products(ctx, spec.Filters[models.FilterCategoria], spec.Filters[models.FilterMarca], true)
	if err != nil {
		return nil, err
	}

	if hasGroup(spec, models.GroupCategoria) {
		counts := make(map[string]int)
		for _, p := range products {
			for _, cat := range p.Categories {
				counts[cat]++
			}
		}
		cats := make([]string, 0, len(counts))
		for cat := range counts {
			cats = append(cats, cat)
		}
		sort.Slice(cats, func(i, j int) bool {
			if counts[cats[i]] != counts[cats[j]] {
				return counts[cats[i]] > counts[cats[j]]
			}
			return cats[i] < cats[j]
		})
		rows := make([]models.Row, 0, len(cats))
		for _, cat := range cats {
			rows = append(rows, models.Row{"categoria": cat, "productos": counts[cat]})
		}
		rows = applyLimit(rows, spec.Limit)
		return &models.ReportData{
			Columns: []string{"categoria", "productos"},
			Rows:    rows,
			Meta:    models.ReportMetadata{TotalRecords: len(rows)},
		}, nil
	}

	columns := []string{"producto", "marca", "categorias", "precio", "stock_total", "activo"}
	rows := make([]models.Row, 0, len(products))
	for _, p := range products {
		rows = append(rows, models.Row{
			"producto":    p.Name,
			"marca":       p.Brand,
			"categorias":  strings.Join(p.Categories, ", "),
			"precio":      p.Price,
			"stock_total": p.StockTotal(),
			"activo":      p.Active,
		})
	}
	rows = applyLimit(rows, spec.Limit)
	return &models.ReportData{
		Columns: columns,
		Rows:    rows,
		Meta:    models.ReportMetadata{TotalRecords: len(rows)},
	}, nil
}

func (c *Compiler) compileClientes(ctx context.Context, spec *models.ReportSpec) (*models.ReportData, error) {
	start, end := periodBounds(spec)
	spending, err := c.st.CustomerSpending(ctx, start, end)
	if err != nil {
		return nil, err
	}

	rows := make([]models.Row, 0, len(spending))
	for _, cs := range spending {
		rows = append(rows, models.Row{
			"cliente":       cs.Name,
			"email":         cs.Email,
			"pedidos":       cs.OrderCount,
			"total_gastado": cs.TotalSpent,
		})
	}
	rows = applyLimit(rows, spec.Limit)
	return &models.ReportData{
		Columns: []string{"cliente", "email", "pedidos", "total_gastado"},
		Rows:    rows,
		Meta:    models.ReportMetadata{TotalRecords: len(rows)},
	}, nil
}

func (c *Compiler) compileAnalytics(ctx context.Context, spec *models.ReportSpec) (*models.ReportData, error) {
	now := time.Now()
	overview, err := c.analytics.Overview(ctx, 6, now)
	if err != nil {
		return nil, err
	}

	kv := func(metric string, value interface{}) models.Row {
		return models.Row{"concepto": metric, "valor": value}
	}

	sections := []models.ReportSection{
		{
			Title:   "Resumen",
			Columns: []string{"concepto", "valor"},
			Rows: []models.Row{
				kv("Ventas totales", overview.Summary.TotalVentas),
				kv("Total pedidos", overview.Summary.TotalPedidos),
				kv("Ticket promedio", overview.Summary.TicketPromedio),
				kv("Total clientes", overview.Summary.TotalClientes),
				kv("Total productos", overview.Summary.TotalProductos),
			},
		},
		{
			Title:   "Inventario",
			Columns: []string{"concepto", "valor"},
			Rows: []models.Row{
				kv("Productos activos", overview.Inventory.ProductosActivos),
				kv("Stock total", overview.Inventory.StockTotal),
				kv("Productos sin stock", overview.Inventory.SinStock),
				kv("Categorías", overview.Inventory.Categorias),
			},
		},
		{
			Title:   "Clientes",
			Columns: []string{"concepto", "valor"},
			Rows: []models.Row{
				kv("Total clientes", overview.Customers.TotalClientes),
				kv("Nuevos este mes", overview.Customers.NuevosEsteMes),
				kv("Clientes con pedidos", overview.Customers.ClientesActivo),
				kv("Gasto promedio", overview.Customers.GastoPromedio),
			},
		},
	}

	monthRows := make([]models.Row, 0, len(overview.SalesByMonth))
	for _, m := range overview.SalesByMonth {
		monthRows = append(monthRows, models.Row{
			"mes":          m.Label,
			"total_ventas": m.TotalSales,
			"pedidos":      m.OrderCount,
		})
	}
	sections = append(sections, models.ReportSection{
		Title:   "Ventas por mes",
		Columns: []string{"mes", "total_ventas", "pedidos"},
		Rows:    monthRows,
	})

	productRows := make([]models.Row, 0, len(overview.TopProducts))
	for _, p := range overview.TopProducts {
		productRows = append(productRows, models.Row{
			"producto":         p.Name,
			"cantidad_vendida": p.Units,
			"total_ventas":     p.Revenue,
		})
	}
	sections = append(sections, models.ReportSection{
		Title:   "Productos más vendidos",
		Columns: []string{"producto", "cantidad_vendida", "total_ventas"},
		Rows:    productRows,
	})

	statusRows := make([]models.Row, 0, len(overview.OrdersByStatus))
	for _, sc := range overview.OrdersByStatus {
		statusRows = append(statusRows, models.Row{
			"estado":  string(sc.Status),
			"pedidos": sc.Count,
		})
	}
	sections = append(sections, models.ReportSection{
		Title:   "Pedidos por estado",
		Columns: []string{"estado", "pedidos"},
		Rows:    statusRows,
	})

	yearlyRows := make([]models.Row, 0, len(overview.Yearly.Comparison))
	for _, d := range overview.Yearly.Comparison {
		yearlyRows = append(yearlyRows, models.Row{
			"metrica":       d.Metric,
			d.PrevLabel:     d.Previous,
			d.CurrLabel:     d.Current,
			"diferencia":    d.Delta,
			"variacion_pct": d.DeltaPct,
		})
	}
	sections = append(sections, models.ReportSection{
		Title:   "Comparativa anual",
		Columns: []string{"metrica", fmt.Sprint(overview.Yearly.PreviousYear), fmt.Sprint(overview.Yearly.CurrentYear), "diferencia", "variacion_pct"},
		Rows:    yearlyRows,
	})

	total := 0
	for _, s := range sections {
		total += len(s.Rows)
	}
	return &models.ReportData{
		Sections: sections,
		Meta:     models.ReportMetadata{TotalRecords: total},
	}, nil
}
