package forecast

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"app/analytics"
	"app/models"
)

// TotalCategory is the pseudo-category meaning "all categories combined".
const TotalCategory = "Total"

// firstForecastMonth is the first month forecasts target: the month that
// contains today plus 30 days.
func firstForecastMonth(now time.Time) time.Time {
	t := now.AddDate(0, 0, 30)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// PredictNextMonth forecasts one category (or the total) for the next
// forecast month, persisting the prediction.
func (s *Service) PredictNextMonth(ctx context.Context, category string) (*models.ForecastResult, error) {
	pred, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.predictMonth(ctx, pred, firstForecastMonth(s.now()), category)
}

// PredictNextNMonths forecasts n consecutive months for one category. The
// period labels are consecutive YYYY-MM values starting at the first
// forecast month. Any failure aborts the batch.
func (s *Service) PredictNextNMonths(ctx context.Context, n int, category string) ([]models.ForecastResult, error) {
	if n <= 0 {
		n = 1
	}
	pred, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	base := firstForecastMonth(s.now())
	out := make([]models.ForecastResult, 0, n)
	for i := 0; i < n; i++ {
		r, err := s.predictMonth(ctx, pred, base.AddDate(0, i, 0), category)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// PredictAllCategories forecasts n months for every known category. A
// category that fails is logged and skipped; the rest still come back.
func (s *Service) PredictAllCategories(ctx context.Context, n int) (map[string][]models.ForecastResult, error) {
	pred, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	base := firstForecastMonth(s.now())
	out := make(map[string][]models.ForecastResult, len(Categories))
	for _, cat := range Categories {
		results := make([]models.ForecastResult, 0, n)
		failed := false
		for i := 0; i < n; i++ {
			r, err := s.predictMonth(ctx, pred, base.AddDate(0, i, 0), cat)
			if err != nil {
				log.Printf("[FORECAST] prediction failed for category %s: %v", cat, err)
				failed = true
				break
			}
			results = append(results, *r)
		}
		if !failed {
			out[cat] = results
		}
	}
	return out, nil
}

func (s *Service) predictMonth(ctx context.Context, pred *Predictor, target time.Time, category string) (*models.ForecastResult, error) {
	cat := category
	if cat == "" {
		cat = TotalCategory
	}
	oneHot := cat
	if oneHot == TotalCategory {
		oneHot = ""
	}

	row, input, err := PredictionRow(target, oneHot, pred.Model.FeatureColumns)
	if err != nil {
		return nil, err
	}
	value := pred.forest.Predict(row)
	if value < 0 {
		value = 0
	}
	value = math.Round(value*100) / 100

	p := &models.Prediction{
		ID:           uuid.NewString(),
		ModelID:      pred.Model.ID,
		PeriodLabel:  target.Format("2006-01"),
		Category:     cat,
		Predicted:    value,
		FeatureInput: input,
		CreatedAt:    s.now(),
	}
	if err := s.st.InsertPrediction(ctx, p); err != nil {
		return nil, err
	}

	return &models.ForecastResult{
		PredictionID: p.ID,
		Period:       p.PeriodLabel,
		Category:     cat,
		Predicted:    value,
		Confidence:   models.ConfidenceFromR2(pred.Model.Metrics.R2),
	}, nil
}

// ModelInfo is the dashboard's view of the active model.
type ModelInfo struct {
	Version        string              `json:"version"`
	TrainedAt      time.Time           `json:"trained_at"`
	Metrics        models.ModelMetrics `json:"metrics"`
	FeatureColumns []string            `json:"feature_columns"`
}

// Dashboard combines sales history, forecasts and model detail for the
// forecasting overview screen.
type Dashboard struct {
	Historical    []analytics.MonthSales             `json:"historico"`
	CategorySales []models.CategoryMonthUnits        `json:"ventas_por_categoria"`
	ForecastTotal []models.ForecastResult            `json:"prediccion_total"`
	PerCategory   map[string][]models.ForecastResult `json:"prediccion_por_categoria"`
	TopProducts   []models.ProductUnits              `json:"productos_mas_vendidos"`
	Model         ModelInfo                          `json:"modelo"`
}

// Dashboard builds the forecasting overview: monthsBack of history plus
// monthsForward of total and per-category forecasts.
func (s *Service) Dashboard(ctx context.Context, monthsBack, monthsForward int) (*Dashboard, error) {
	if monthsBack <= 0 {
		monthsBack = 12
	}
	if monthsForward <= 0 {
		monthsForward = 3
	}
	pred, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	historical, err := analytics.New(s.st).SalesByMonth(ctx, monthsBack, s.now())
	if err != nil {
		return nil, err
	}
	window := monthsWindow(monthsBack, s.now())
	windowEnd := window[len(window)-1].AddDate(0, 1, 0).Add(-time.Second)
	categorySales, err := s.st.UnitsByMonthCategory(ctx, window[0], windowEnd)
	if err != nil {
		return nil, err
	}
	total, err := s.PredictNextNMonths(ctx, monthsForward, TotalCategory)
	if err != nil {
		return nil, err
	}
	perCategory, err := s.PredictAllCategories(ctx, monthsForward)
	if err != nil {
		return nil, err
	}
	top, err := s.st.TopProducts(ctx, time.Time{}, farFutureDate(), 5)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Historical:    historical,
		CategorySales: categorySales,
		ForecastTotal: total,
		PerCategory:   perCategory,
		TopProducts:   top,
		Model: ModelInfo{
			Version:        pred.Model.Version,
			TrainedAt:      pred.Model.TrainedAt,
			Metrics:        pred.Model.Metrics,
			FeatureColumns: pred.Model.FeatureColumns,
		},
	}, nil
}

func farFutureDate() time.Time {
	return time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
}

// Comparison contrasts one persisted prediction with observed reality.
// ErrorPct is only defined when something was actually sold.
type Comparison struct {
	Prediction models.Prediction `json:"prediccion"`
	Actual     float64           `json:"real"`
	AbsError   float64           `json:"error_absoluto"`
	ErrorPct   *float64          `json:"error_porcentual,omitempty"`
}

// ComparePredictionWithReal looks up the units actually sold in a
// prediction's period and persists the resulting error.
func (s *Service) ComparePredictionWithReal(ctx context.Context, predictionID string) (*Comparison, error) {
	p, err := s.st.GetPrediction(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	period, err := time.Parse("2006-01", p.PeriodLabel)
	if err != nil {
		return nil, fmt.Errorf("periodo de predicción inválido %q: %w", p.PeriodLabel, err)
	}

	actual, err := s.st.ActualUnits(ctx, period.Year(), int(period.Month()), p.Category)
	if err != nil {
		return nil, err
	}
	absError := math.Abs(p.Predicted - actual)
	if err := s.st.UpdatePredictionActual(ctx, p.ID, actual, absError); err != nil {
		return nil, err
	}
	p.ActualQty = &actual
	p.AbsError = &absError

	cmp := &Comparison{Prediction: *p, Actual: actual, AbsError: absError}
	if actual > 0 {
		pct := absError / actual * 100
		cmp.ErrorPct = &pct
	}
	return cmp, nil
}
