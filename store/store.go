package store

import (
	"context"
	"time"

	"app/models"
)

// Store is the read/write contract the reporting and forecasting core runs
// against. The compiler, the analytics primitives and the feature builder
// are pure over this interface; Postgres and the in-memory test double both
// implement it.
//
// Month bucketing is deliberately a store operation: the compiler consumes
// typed (year, month) buckets and never assembles date-extraction SQL.
type Store interface {
	// OrdersBetween returns orders with created_at in [start, end], newest
	// first, with their lines loaded. An empty status means all states;
	// revenueOnly restricts to the revenue-recognized state set.
	OrdersBetween(ctx context.Context, start, end time.Time, status models.OrderStatus, revenueOnly bool) ([]models.OrderFact, error)

	// Products returns catalog products, optionally restricted to active
	// ones and filtered by case-insensitive exact category/brand match.
	Products(ctx context.Context, category, brand string, activeOnly bool) ([]models.ProductFact, error)

	// CustomersRegisteredBetween returns customers whose registration falls
	// in [start, end]. Zero times mean an open bound.
	CustomersRegisteredBetween(ctx context.Context, start, end time.Time) ([]models.CustomerFact, error)

	// CustomerSpending aggregates order count and total spent per customer
	// for customers registered in [start, end] (zero times = all), sorted
	// by total spent descending then customer id.
	CustomerSpending(ctx context.Context, start, end time.Time) ([]models.CustomerSpend, error)

	// SalesMonthBuckets buckets revenue-recognized orders by (year, month)
	// over [start, end], in chronological order. Months without orders are
	// absent; callers densify.
	SalesMonthBuckets(ctx context.Context, start, end time.Time) ([]models.MonthBucket, error)

	// TopProducts ranks products by units sold across order lines of
	// revenue-recognized orders in [start, end]; ties break by product id
	// ascending. Zero times mean all history.
	TopProducts(ctx context.Context, start, end time.Time, limit int) ([]models.ProductUnits, error)

	// OrdersByStatus counts orders per state over [start, end] (zero times
	// = all), ordered by count descending then state.
	OrdersByStatus(ctx context.Context, start, end time.Time) ([]models.StatusCount, error)

	// UnitsByMonthCategory returns units sold per (year, month, primary
	// category) for revenue-recognized orders in [start, end].
	UnitsByMonthCategory(ctx context.Context, start, end time.Time) ([]models.CategoryMonthUnits, error)

	// ActualUnits returns the observed units for one month-category bucket.
	// Category "Total" sums all categories.
	ActualUnits(ctx context.Context, year, month int, category string) (float64, error)

	// CountNewCustomers counts customers registered in [start, end].
	CountNewCustomers(ctx context.Context, start, end time.Time) (int, error)

	// CountNewProducts counts products created in [start, end].
	CountNewProducts(ctx context.Context, start, end time.Time) (int, error)

	// InsertModelAndActivate persists a trained model and makes it the
	// single active one: the insert and the deactivation of every other
	// model happen in one transaction.
	InsertModelAndActivate(ctx context.Context, m *models.ForecastModel) error

	// ActiveModel returns the active model, or models.ErrNoActiveModel.
	ActiveModel(ctx context.Context) (*models.ForecastModel, error)

	// ListModels returns every trained model, newest first.
	ListModels(ctx context.Context) ([]models.ForecastModel, error)

	// InsertPrediction persists one emitted prediction.
	InsertPrediction(ctx context.Context, p *models.Prediction) error

	// GetPrediction returns one prediction by id.
	GetPrediction(ctx context.Context, id string) (*models.Prediction, error)

	// UpdatePredictionActual fills actual_quantity and the absolute error
	// of a prediction once ground truth is known.
	UpdatePredictionActual(ctx context.Context, id string, actual, absError float64) error

	// ListPredictions returns predictions newest first, optionally filtered
	// by category, capped at limit.
	ListPredictions(ctx context.Context, category string, limit int) ([]models.Prediction, error)
}
