package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"app/models"
	"app/store"
)

// Categories is the fixed category list the model is trained over; the
// one-hot feature columns are derived from it.
var Categories = []string{"Blusas", "Vestidos", "Jeans", "Jackets"}

// FeatureColumns is the canonical training column order. It is persisted
// into every artifact and must be reused verbatim at prediction time.
var FeatureColumns = []string{
	"year", "month", "month_sin", "month_cos", "quarter",
	"cat_Blusas", "cat_Vestidos", "cat_Jeans", "cat_Jackets",
}

// syntheticThreshold is the raw sample count below which synthetic backfill
// kicks in.
const syntheticThreshold = 50

// FeatureSet is the dense training matrix: one row per (month, category)
// cell of the requested window, zero-filled where nothing was sold.
type FeatureSet struct {
	X         [][]float64
	Y         []float64
	Columns   []string
	Synthetic int
}

// seasonalMultiplier reflects the clothing sales calendar: holiday peak in
// Nov-Dec, summer bump, post-holiday slump.
func seasonalMultiplier(month int) float64 {
	switch {
	case month == 11 || month == 12:
		return 1.5
	case month >= 6 && month <= 8:
		return 1.2
	case month == 1 || month == 2:
		return 0.7
	default:
		return 1.0
	}
}

// syntheticBase is the per-category baseline used by the synthetic
// generator: monthly unit volume and price base.
var syntheticBase = map[string]struct {
	units float64
	price float64
}{
	"Blusas":   {units: 30, price: 25},
	"Vestidos": {units: 25, price: 45},
	"Jeans":    {units: 20, price: 40},
	"Jackets":  {units: 15, price: 60},
}

// monthsWindow returns the first day of each month of a window of `months`
// months ending at the month of `now`, oldest first.
func monthsWindow(months int, now time.Time) []time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]time.Time, 0, months)
	for i := months - 1; i >= 0; i-- {
		out = append(out, first.AddDate(0, -i, 0))
	}
	return out
}

// syntheticUnits generates deterministic backfill for one (month, category)
// cell. The generator only ever observes its own seeded source, never the
// global random state.
func syntheticUnits(rng *rand.Rand, month int, category string) float64 {
	base, ok := syntheticBase[category]
	if !ok {
		base.units = 20
	}
	jitter := 0.8 + rng.Float64()*0.4
	return math.Round(base.units * seasonalMultiplier(month) * jitter)
}

// featureVector encodes one (date, category) cell into the canonical
// column order. Cyclical month encodings keep December adjacent to January.
func featureVector(year, month int, category string) []float64 {
	angle := 2 * math.Pi * float64(month) / 12
	row := []float64{
		float64(year),
		float64(month),
		math.Sin(angle),
		math.Cos(angle),
		math.Ceil(float64(month) / 3),
	}
	for _, cat := range Categories {
		if cat == category {
			row = append(row, 1)
		} else {
			row = append(row, 0)
		}
	}
	return row
}

// BuildTrainingSet assembles the dense (month × category) training grid
// over monthsBack months ending at the current month. When fewer than
// syntheticThreshold raw observations exist, seeded synthetic samples are
// merged in so a model can still be trained on a fresh shop.
func BuildTrainingSet(ctx context.Context, st store.Store, monthsBack int, now time.Time, seed int64) (*FeatureSet, error) {
	if monthsBack <= 0 {
		monthsBack = 36
	}
	window := monthsWindow(monthsBack, now)
	start := window[0]
	end := window[len(window)-1].AddDate(0, 1, 0).Add(-time.Second)

	raw, err := st.UnitsByMonthCategory(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical units: %w", err)
	}

	type key struct {
		y, m int
		cat  string
	}
	units := make(map[key]float64, len(raw))
	observed := make(map[string]bool)
	for _, u := range raw {
		units[key{u.Year, u.Month, u.Category}] += float64(u.Units)
		observed[u.Category] = true
	}

	synthetic := 0
	if len(raw) < syntheticThreshold {
		rng := rand.New(rand.NewSource(seed))
		for _, month := range window {
			for _, cat := range Categories {
				units[key{month.Year(), int(month.Month()), cat}] += syntheticUnits(rng, int(month.Month()), cat)
				synthetic++
			}
		}
		for _, cat := range Categories {
			observed[cat] = true
		}
	}

	// Grid categories: the fixed list first, then anything else observed.
	categories := append([]string{}, Categories...)
	extra := make([]string, 0)
	for cat := range observed {
		known := false
		for _, c := range Categories {
			if c == cat {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, cat)
		}
	}
	sort.Strings(extra)
	categories = append(categories, extra...)

	fs := &FeatureSet{
		Columns:   append([]string{}, FeatureColumns...),
		Synthetic: synthetic,
	}
	for _, month := range window {
		for _, cat := range categories {
			fs.X = append(fs.X, featureVector(month.Year(), int(month.Month()), cat))
			fs.Y = append(fs.Y, units[key{month.Year(), int(month.Month()), cat}])
		}
	}
	return fs, nil
}

// PredictionRow builds a single feature row for a target date and category
// in the exact column order captured at training time. Category "" or
// "Total" leaves every one-hot at zero. A column the builder does not know
// is a FeatureShapeError: it means the artifact and this code disagree.
func PredictionRow(target time.Time, category string, columns []string) ([]float64, map[string]float64, error) {
	angle := 2 * math.Pi * float64(int(target.Month())) / 12
	known := map[string]float64{
		"year":      float64(target.Year()),
		"month":     float64(int(target.Month())),
		"month_sin": math.Sin(angle),
		"month_cos": math.Cos(angle),
		"quarter":   math.Ceil(float64(int(target.Month())) / 3),
	}
	for _, cat := range Categories {
		value := 0.0
		if cat == category {
			value = 1
		}
		known["cat_"+cat] = value
	}

	row := make([]float64, 0, len(columns))
	input := make(map[string]float64, len(columns))
	for _, col := range columns {
		v, ok := known[col]
		if !ok {
			return nil, nil, &models.FeatureShapeError{Column: col}
		}
		row = append(row, v)
		input[col] = v
	}
	return row, input, nil
}
