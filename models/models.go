package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the lifecycle states of a customer order.
type OrderStatus string

const (
	StatusPendiente    OrderStatus = "pendiente"
	StatusPagoRecibido OrderStatus = "pago_recibido"
	StatusConfirmado   OrderStatus = "confirmado"
	StatusPreparando   OrderStatus = "preparando"
	StatusEnviado      OrderStatus = "enviado"
	StatusEntregado    OrderStatus = "entregado"
	StatusCancelado    OrderStatus = "cancelado"
)

// RevenueStates are the order states counted as real sales in analytics
// and forecasting. Cancelled and still-unpaid orders are excluded.
var RevenueStates = []OrderStatus{
	StatusPagoRecibido,
	StatusConfirmado,
	StatusPreparando,
	StatusEnviado,
	StatusEntregado,
}

// IsRevenueState reports whether orders in this state count as revenue.
func IsRevenueState(s OrderStatus) bool {
	for _, r := range RevenueStates {
		if r == s {
			return true
		}
	}
	return false
}

// OrderLine is one line of an order: a product in a size, at the price it
// was sold.
type OrderLine struct {
	ProductRef  string          `json:"productId"`
	ProductName string          `json:"productName"`
	Category    string          `json:"category"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// OrderFact is the read model of an order as consumed by reporting and
// forecasting. Order numbers are unique by a storage constraint; the
// (out of scope) write path regenerates on collision.
type OrderFact struct {
	OrderID      string          `json:"orderId"`
	OrderNumber  string          `json:"orderNumber"`
	CustomerRef  string          `json:"customerId"`
	CustomerName string          `json:"customerName"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	Total        decimal.Decimal `json:"total"`
	Lines        []OrderLine     `json:"lines"`
}

// ProductFact is the read model of a catalog product.
type ProductFact struct {
	ProductRef  string          `json:"productId"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Categories  []string        `json:"categories"`
	Price       decimal.Decimal `json:"price"`
	StockBySize map[string]int  `json:"stockBySize"`
	Active      bool            `json:"active"`
}

// StockTotal sums the stock of a product across sizes.
func (p ProductFact) StockTotal() int {
	total := 0
	for _, q := range p.StockBySize {
		total += q
	}
	return total
}

// HasCategory does a case-insensitive exact match over the product's
// categories.
func (p ProductFact) HasCategory(category string) bool {
	for _, c := range p.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// PrimaryCategory is the first category of the product, or "Sin categoría".
func (p ProductFact) PrimaryCategory() string {
	if len(p.Categories) > 0 {
		return p.Categories[0]
	}
	return "Sin categoría"
}

// CustomerFact is the read model of a registered customer.
type CustomerFact struct {
	CustomerRef  string    `json:"customerId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// MonthBucket is a (year, month) sales bucket produced by the data layer.
type MonthBucket struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	OrderCount int             `json:"orderCount"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// Label formats the bucket as "Mon YYYY" (Ene 2025).
func (b MonthBucket) Label() string {
	return SpanishMonthShort(b.Month) + " " + strconv.Itoa(b.Year)
}

// CategoryMonthUnits is the units sold for one category in one month.
type CategoryMonthUnits struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Category string `json:"category"`
	Units    int    `json:"units"`
}

// CustomerSpend aggregates a customer's order activity.
type CustomerSpend struct {
	CustomerRef string          `json:"customerId"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	OrderCount  int             `json:"orderCount"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
}

// ProductUnits aggregates a product's sales across order lines.
type ProductUnits struct {
	ProductRef string          `json:"productId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Units      int             `json:"units"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// StatusCount is the number of orders in one state.
type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int         `json:"count"`
}

var spanishMonthsShort = [...]string{
	"Ene", "Feb", "Mar", "Abr", "May", "Jun",
	"Jul", "Ago", "Sep", "Oct", "Nov", "Dic",
}

// SpanishMonthShort returns the three-letter Spanish month abbreviation.
func SpanishMonthShort(month int) string {
	if month < 1 || month > 12 {
		return "?"
	}
	return spanishMonthsShort[month-1]
}
