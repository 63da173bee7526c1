package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"app/models"

	"github.com/shopspring/decimal"
)

// Mem is an in-memory Store used by the test suites. It mirrors the
// Postgres implementation's ordering and filtering semantics exactly, so
// compiler and forecasting tests exercise the same contract the production
// store provides.
type Mem struct {
	mu          sync.Mutex
	Orders      []models.OrderFact
	ProductList []models.ProductFact
	Customers   []models.CustomerFact
	Models      []models.ForecastModel
	Predictions []models.Prediction
}

// NewMem returns an empty in-memory store.
func NewMem() *Mem {
	return &Mem{}
}

func inRange(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}

func (s *Mem) OrdersBetween(_ context.Context, start, end time.Time, status models.OrderStatus, revenueOnly bool) ([]models.OrderFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.OrderFact, 0)
	for _, o := range s.Orders {
		if !inRange(o.CreatedAt, start, end) {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		if revenueOnly && !models.IsRevenueState(o.Status) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out, nil
}

func (s *Mem) Products(_ context.Context, category, brand string, activeOnly bool) ([]models.ProductFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ProductFact, 0)
	for _, p := range s.ProductList {
		if activeOnly && !p.Active {
			continue
		}
		if brand != "" && !strings.EqualFold(p.Brand, brand) {
			continue
		}
		if category != "" && !p.HasCategory(category) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ProductRef < out[j].ProductRef
	})
	return out, nil
}

func (s *Mem) CustomersRegisteredBetween(_ context.Context, start, end time.Time) ([]models.CustomerFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CustomerFact, 0)
	for _, c := range s.Customers {
		if inRange(c.RegisteredAt, start, end) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.After(out[j].RegisteredAt)
		}
		return out[i].CustomerRef < out[j].CustomerRef
	})
	return out, nil
}

func (s *Mem) CustomerSpending(_ context.Context, start, end time.Time) ([]models.CustomerSpend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spend := make(map[string]*models.CustomerSpend)
	order := make([]string, 0)
	for _, c := range s.Customers {
		if !inRange(c.RegisteredAt, start, end) {
			continue
		}
		spend[c.CustomerRef] = &models.CustomerSpend{
			CustomerRef: c.CustomerRef,
			Name:        c.Name,
			Email:       c.Email,
			TotalSpent:  decimal.Zero,
		}
		order = append(order, c.CustomerRef)
	}
	for _, o := range s.Orders {
		if !models.IsRevenueState(o.Status) {
			continue
		}
		if cs, ok := spend[o.CustomerRef]; ok {
			cs.OrderCount++
			cs.TotalSpent = cs.TotalSpent.Add(o.Total)
		}
	}
	out := make([]models.CustomerSpend, 0, len(order))
	for _, ref := range order {
		out = append(out, *spend[ref])
	}
	sort.SliceStable(out, func(i, j int) bool {
		cmp := out[i].TotalSpent.Cmp(out[j].TotalSpent)
		if cmp != 0 {
			return cmp > 0
		}
		return out[i].CustomerRef < out[j].CustomerRef
	})
	return out, nil
}

func (s *Mem) SalesMonthBuckets(_ context.Context, start, end time.Time) ([]models.MonthBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ y, m int }
	buckets := make(map[key]*models.MonthBucket)
	for _, o := range s.Orders {
		if !inRange(o.CreatedAt, start, end) || !models.IsRevenueState(o.Status) {
			continue
		}
		k := key{o.CreatedAt.Year(), int(o.CreatedAt.Month())}
		b, ok := buckets[k]
		if !ok {
			b = &models.MonthBucket{Year: k.y, Month: k.m, Revenue: decimal.Zero}
			buckets[k] = b
		}
		b.OrderCount++
		b.Revenue = b.Revenue.Add(o.Total)
	}
	out := make([]models.MonthBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (s *Mem) TopProducts(_ context.Context, start, end time.Time, limit int) ([]models.ProductUnits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := make(map[string]*models.ProductUnits)
	for _, o := range s.Orders {
		if !inRange(o.CreatedAt, start, end) || !models.IsRevenueState(o.Status) {
			continue
		}
		for _, l := range o.Lines {
			pu, ok := agg[l.ProductRef]
			if !ok {
				pu = &models.ProductUnits{
					ProductRef: l.ProductRef,
					Name:       l.ProductName,
					Price:      l.UnitPrice,
					Revenue:    decimal.Zero,
				}
				agg[l.ProductRef] = pu
			}
			pu.Units += l.Quantity
			pu.Revenue = pu.Revenue.Add(l.LineTotal)
		}
	}
	out := make([]models.ProductUnits, 0, len(agg))
	for _, pu := range agg {
		out = append(out, *pu)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units > out[j].Units
		}
		return out[i].ProductRef < out[j].ProductRef
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Mem) OrdersByStatus(_ context.Context, start, end time.Time) ([]models.StatusCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.OrderStatus]int)
	for _, o := range s.Orders {
		if inRange(o.CreatedAt, start, end) {
			counts[o.Status]++
		}
	}
	out := make([]models.StatusCount, 0, len(counts))
	for st, n := range counts {
		out = append(out, models.StatusCount{Status: st, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

func (s *Mem) UnitsByMonthCategory(_ context.Context, start, end time.Time) ([]models.CategoryMonthUnits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		y, m int
		cat  string
	}
	agg := make(map[key]int)
	for _, o := range s.Orders {
		if !inRange(o.CreatedAt, start, end) || !models.IsRevenueState(o.Status) {
			continue
		}
		for _, l := range o.Lines {
			cat := l.Category
			if cat == "" {
				cat = "Sin categoría"
			}
			agg[key{o.CreatedAt.Year(), int(o.CreatedAt.Month()), cat}] += l.Quantity
		}
	}
	out := make([]models.CategoryMonthUnits, 0, len(agg))
	for k, units := range agg {
		out = append(out, models.CategoryMonthUnits{Year: k.y, Month: k.m, Category: k.cat, Units: units})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Category < b.Category
	})
	return out, nil
}

func (s *Mem) ActualUnits(_ context.Context, year, month int, category string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, o := range s.Orders {
		if o.CreatedAt.Year() != year || int(o.CreatedAt.Month()) != month || !models.IsRevenueState(o.Status) {
			continue
		}
		for _, l := range o.Lines {
			if category == "" || category == "Total" || strings.EqualFold(l.Category, category) {
				total += l.Quantity
			}
		}
	}
	return float64(total), nil
}

func (s *Mem) CountNewCustomers(_ context.Context, start, end time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.Customers {
		if inRange(c.RegisteredAt, start, end) {
			n++
		}
	}
	return n, nil
}

func (s *Mem) CountNewProducts(_ context.Context, start, end time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// the in-memory catalog carries no creation dates; treat every product
	// as pre-existing
	return 0, nil
}

func (s *Mem) InsertModelAndActivate(_ context.Context, m *models.ForecastModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Models {
		s.Models[i].Active = false
	}
	m.Active = true
	s.Models = append(s.Models, *m)
	return nil
}

func (s *Mem) ActiveModel(_ context.Context) (*models.ForecastModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active *models.ForecastModel
	for i := range s.Models {
		m := &s.Models[i]
		if m.Active && (active == nil || m.TrainedAt.After(active.TrainedAt)) {
			active = m
		}
	}
	if active == nil {
		return nil, models.ErrNoActiveModel
	}
	cp := *active
	return &cp, nil
}

func (s *Mem) ListModels(_ context.Context) ([]models.ForecastModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ForecastModel, len(s.Models))
	copy(out, s.Models)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TrainedAt.After(out[j].TrainedAt)
	})
	return out, nil
}

func (s *Mem) InsertPrediction(_ context.Context, p *models.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Predictions = append(s.Predictions, *p)
	return nil
}

func (s *Mem) GetPrediction(_ context.Context, id string) (*models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.Predictions {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrPredictionNotFound, id)
}

func (s *Mem) UpdatePredictionActual(_ context.Context, id string, actual, absError float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Predictions {
		if s.Predictions[i].ID == id {
			a, e := actual, absError
			s.Predictions[i].ActualQty = &a
			s.Predictions[i].AbsError = &e
			return nil
		}
	}
	return fmt.Errorf("%w: %s", models.ErrPredictionNotFound, id)
}

func (s *Mem) ListPredictions(_ context.Context, category string, limit int) ([]models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Prediction, 0)
	for _, p := range s.Predictions {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
