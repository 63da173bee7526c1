package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"app/models"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PG implements Store over a pgx connection pool.
type PG struct {
	db *pgxpool.Pool
}

// NewPG wraps a pool in the Store contract.
func NewPG(db *pgxpool.Pool) *PG {
	return &PG{db: db}
}

func revenueStateStrings() []string {
	out := make([]string, len(models.RevenueStates))
	for i, s := range models.RevenueStates {
		out[i] = string(s)
	}
	return out
}

func (s *PG) OrdersBetween(ctx context.Context, start, end time.Time, status models.OrderStatus, revenueOnly bool) ([]models.OrderFact, error) {
	// A zero bound means the range is open on that side.
	query := `
		SELECT o.id, o.order_number, o.customer_id, c.name, o.status, o.created_at, o.total
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE 1=1
	`
	args := []interface{}{}
	if !start.IsZero() {
		query += fmt.Sprintf(" AND o.created_at >= $%d", len(args)+1)
		args = append(args, start)
	}
	if !end.IsZero() {
		query += fmt.Sprintf(" AND o.created_at <= $%d", len(args)+1)
		args = append(args, end)
	}
	if status != "" {
		query += fmt.Sprintf(" AND o.status = $%d", len(args)+1)
		args = append(args, string(status))
	}
	if revenueOnly {
		query += fmt.Sprintf(" AND o.status = ANY($%d)", len(args)+1)
		args = append(args, revenueStateStrings())
	}
	query += " ORDER BY o.created_at DESC, o.id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.OrderFact, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var o models.OrderFact
		if err := rows.Scan(&o.OrderID, &o.OrderNumber, &o.CustomerRef, &o.CustomerName, &o.Status, &o.CreatedAt, &o.Total); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.OrderID)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(orders) == 0 {
		return orders, nil
	}

	// Single pass for all lines instead of one query per order.
	lineQuery := `
		SELECT i.order_id, i.product_id, p.name, COALESCE(pc.category, 'Sin categoría'),
		       i.size, i.quantity, i.unit_price, i.subtotal
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		LEFT JOIN LATERAL (
			SELECT category FROM product_categories
			WHERE product_id = p.id ORDER BY category LIMIT 1
		) pc ON true
		WHERE i.order_id = ANY($1)
		ORDER BY i.order_id, i.id
	`
	lineRows, err := s.db.Query(ctx, lineQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer lineRows.Close()

	byOrder := make(map[string][]models.OrderLine, len(orders))
	for lineRows.Next() {
		var orderID string
		var l models.OrderLine
		if err := lineRows.Scan(&orderID, &l.ProductRef, &l.ProductName, &l.Category, &l.Size, &l.Quantity, &l.UnitPrice, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		byOrder[orderID] = append(byOrder[orderID], l)
	}
	if lineRows.Err() != nil {
		return nil, lineRows.Err()
	}
	for i := range orders {
		orders[i].Lines = byOrder[orders[i].OrderID]
	}
	return orders, nil
}

func (s *PG) Products(ctx context.Context, category, brand string, activeOnly bool) ([]models.ProductFact, error) {
	query := `
		SELECT p.id, p.name, p.brand, p.price, p.active,
		       COALESCE(array_agg(DISTINCT pc.category) FILTER (WHERE pc.category IS NOT NULL), '{}')
		FROM products p
		LEFT JOIN product_categories pc ON pc.product_id = p.id
		WHERE 1=1
	`
	args := []interface{}{}
	if activeOnly {
		query += " AND p.active = true"
	}
	if brand != "" {
		query += fmt.Sprintf(" AND LOWER(p.brand) = LOWER($%d)", len(args)+1)
		args = append(args, brand)
	}
	if category != "" {
		query += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM product_categories x
			WHERE x.product_id = p.id AND LOWER(x.category) = LOWER($%d))`, len(args)+1)
		args = append(args, category)
	}
	query += " GROUP BY p.id, p.name, p.brand, p.price, p.active ORDER BY p.name, p.id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]models.ProductFact, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var p models.ProductFact
		if err := rows.Scan(&p.ProductRef, &p.Name, &p.Brand, &p.Price, &p.Active, &p.Categories); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.StockBySize = map[string]int{}
		products = append(products, p)
		ids = append(ids, p.ProductRef)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(products) == 0 {
		return products, nil
	}

	stockRows, err := s.db.Query(ctx,
		`SELECT product_id, size, quantity FROM product_stock WHERE product_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock: %w", err)
	}
	defer stockRows.Close()

	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p.ProductRef] = i
	}
	for stockRows.Next() {
		var productID, size string
		var qty int
		if err := stockRows.Scan(&productID, &size, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		if i, ok := index[productID]; ok {
			products[i].StockBySize[size] = qty
		}
	}
	return products, stockRows.Err()
}

func (s *PG) CustomersRegisteredBetween(ctx context.Context, start, end time.Time) ([]models.CustomerFact, error) {
	query := `SELECT id, name, email, phone, created_at FROM customers WHERE 1=1`
	args := []interface{}{}
	if !start.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", len(args)+1)
		args = append(args, start)
	}
	if !end.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", len(args)+1)
		args = append(args, end)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]models.CustomerFact, 0)
	for rows.Next() {
		var c models.CustomerFact
		if err := rows.Scan(&c.CustomerRef, &c.Name, &c.Email, &c.Phone, &c.RegisteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *PG) CustomerSpending(ctx context.Context, start, end time.Time) ([]models.CustomerSpend, error) {
	query := `
		SELECT c.id, c.name, c.email,
		       COUNT(o.id), COALESCE(SUM(o.total), 0)
		FROM customers c
		LEFT JOIN orders o ON o.customer_id = c.id AND o.status = ANY($1)
		WHERE 1=1
	`
	args := []interface{}{revenueStateStrings()}
	if !start.IsZero() {
		query += fmt.Sprintf(" AND c.created_at >= $%d", len(args)+1)
		args = append(args, start)
	}
	if !end.IsZero() {
		query += fmt.Sprintf(" AND c.created_at <= $%d", len(args)+1)
		args = append(args, end)
	}
	query += `
		GROUP BY c.id, c.name, c.email
		ORDER BY COALESCE(SUM(o.total), 0) DESC, c.id
	`
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer spending: %w", err)
	}
	defer rows.Close()

	spending := make([]models.CustomerSpend, 0)
	for rows.Next() {
		var cs models.CustomerSpend
		if err := rows.Scan(&cs.CustomerRef, &cs.Name, &cs.Email, &cs.OrderCount, &cs.TotalSpent); err != nil {
			return nil, fmt.Errorf("failed to scan customer spending: %w", err)
		}
		spending = append(spending, cs)
	}
	return spending, rows.Err()
}

func (s *PG) SalesMonthBuckets(ctx context.Context, start, end time.Time) ([]models.MonthBucket, error) {
	rows, err := s.db.Query(ctx, `
		SELECT EXTRACT(YEAR FROM d)::int, EXTRACT(MONTH FROM d)::int, COUNT(*), COALESCE(SUM(total), 0)
		FROM (
			SELECT date_trunc('month', created_at) AS d, total
			FROM orders
			WHERE created_at BETWEEN $1 AND $2 AND status = ANY($3)
		) t
		GROUP BY d
		ORDER BY d
	`, start, end, revenueStateStrings())
	if err != nil {
		return nil, fmt.Errorf("failed to query month buckets: %w", err)
	}
	defer rows.Close()

	buckets := make([]models.MonthBucket, 0)
	for rows.Next() {
		var b models.MonthBucket
		if err := rows.Scan(&b.Year, &b.Month, &b.OrderCount, &b.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan month bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (s *PG) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]models.ProductUnits, error) {
	query := `
		SELECT p.id, p.name, p.price,
		       COALESCE(SUM(i.quantity), 0), COALESCE(SUM(i.subtotal), 0)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		JOIN products p ON p.id = i.product_id
		WHERE o.status = ANY($1)
	`
	args := []interface{}{revenueStateStrings()}
	if !start.IsZero() {
		query += fmt.Sprintf(" AND o.created_at >= $%d", len(args)+1)
		args = append(args, start)
	}
	if !end.IsZero() {
		query += fmt.Sprintf(" AND o.created_at <= $%d", len(args)+1)
		args = append(args, end)
	}
	query += `
		GROUP BY p.id, p.name, p.price
		ORDER BY COALESCE(SUM(i.quantity), 0) DESC, p.id
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	products := make([]models.ProductUnits, 0)
	for rows.Next() {
		var pu models.ProductUnits
		if err := rows.Scan(&pu.ProductRef, &pu.Name, &pu.Price, &pu.Units, &pu.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		products = append(products, pu)
	}
	return products, rows.Err()
}

func (s *PG) OrdersByStatus(ctx context.Context, start, end time.Time) ([]models.StatusCount, error) {
	query := `SELECT status, COUNT(*) FROM orders WHERE 1=1`
	args := []interface{}{}
	if !start.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", len(args)+1)
		args = append(args, start)
	}
	if !end.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", len(args)+1)
		args = append(args, end)
	}
	query += " GROUP BY status ORDER BY COUNT(*) DESC, status"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by status: %w", err)
	}
	defer rows.Close()

	counts := make([]models.StatusCount, 0)
	for rows.Next() {
		var sc models.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}

func (s *PG) UnitsByMonthCategory(ctx context.Context, start, end time.Time) ([]models.CategoryMonthUnits, error) {
	rows, err := s.db.Query(ctx, `
		SELECT EXTRACT(YEAR FROM o.created_at)::int,
		       EXTRACT(MONTH FROM o.created_at)::int,
		       COALESCE(pc.category, 'Sin categoría'),
		       COALESCE(SUM(i.quantity), 0)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		LEFT JOIN LATERAL (
			SELECT category FROM product_categories
			WHERE product_id = i.product_id ORDER BY category LIMIT 1
		) pc ON true
		WHERE o.created_at BETWEEN $1 AND $2 AND o.status = ANY($3)
		GROUP BY 1, 2, 3
		ORDER BY 1, 2, 3
	`, start, end, revenueStateStrings())
	if err != nil {
		return nil, fmt.Errorf("failed to query units by month and category: %w", err)
	}
	defer rows.Close()

	units := make([]models.CategoryMonthUnits, 0)
	for rows.Next() {
		var u models.CategoryMonthUnits
		if err := rows.Scan(&u.Year, &u.Month, &u.Category, &u.Units); err != nil {
			return nil, fmt.Errorf("failed to scan units bucket: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (s *PG) ActualUnits(ctx context.Context, year, month int, category string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(i.quantity), 0)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE EXTRACT(YEAR FROM o.created_at) = $1
		  AND EXTRACT(MONTH FROM o.created_at) = $2
		  AND o.status = ANY($3)
	`
	args := []interface{}{year, month, revenueStateStrings()}
	if category != "" && category != "Total" {
		query += ` AND EXISTS (
			SELECT 1 FROM product_categories pc
			WHERE pc.product_id = i.product_id AND LOWER(pc.category) = LOWER($4))`
		args = append(args, category)
	}
	var total float64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to query actual units: %w", err)
	}
	return total, nil
}

func (s *PG) CountNewCustomers(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM customers WHERE created_at BETWEEN $1 AND $2`, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count new customers: %w", err)
	}
	return n, nil
}

func (s *PG) CountNewProducts(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE created_at BETWEEN $1 AND $2`, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count new products: %w", err)
	}
	return n, nil
}

func (s *PG) InsertModelAndActivate(ctx context.Context, m *models.ForecastModel) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin activation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	columns, err := json.Marshal(m.FeatureColumns)
	if err != nil {
		return err
	}
	params, err := json.Marshal(m.Params)
	if err != nil {
		return err
	}

	// Clear peers first, then insert active: readers inside a snapshot see
	// either the old active model or the new one, never two.
	if _, err := tx.Exec(ctx, `UPDATE forecast_models SET active = false WHERE active = true`); err != nil {
		return fmt.Errorf("failed to deactivate previous models: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO forecast_models
			(id, version, trained_at, feature_columns, params,
			 mae, mse, rmse, r2, training_samples, artifact_path, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, true)
	`, m.ID, m.Version, m.TrainedAt, columns, params,
		m.Metrics.MAE, m.Metrics.MSE, m.Metrics.RMSE, m.Metrics.R2,
		m.TrainingSamples, m.ArtifactPath)
	if err != nil {
		return fmt.Errorf("failed to insert model: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	m.Active = true
	return nil
}

func (s *PG) scanModel(row pgx.Row) (*models.ForecastModel, error) {
	var m models.ForecastModel
	var columns, params []byte
	err := row.Scan(&m.ID, &m.Version, &m.TrainedAt, &columns, &params,
		&m.Metrics.MAE, &m.Metrics.MSE, &m.Metrics.RMSE, &m.Metrics.R2,
		&m.TrainingSamples, &m.ArtifactPath, &m.Active)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(columns, &m.FeatureColumns); err != nil {
		return nil, fmt.Errorf("failed to decode feature columns: %w", err)
	}
	if err := json.Unmarshal(params, &m.Params); err != nil {
		return nil, fmt.Errorf("failed to decode hyperparameters: %w", err)
	}
	return &m, nil
}

const modelColumns = `id, version, trained_at, feature_columns, params,
	mae, mse, rmse, r2, training_samples, artifact_path, active`

func (s *PG) ActiveModel(ctx context.Context) (*models.ForecastModel, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+modelColumns+`
		FROM forecast_models
		WHERE active = true
		ORDER BY trained_at DESC
		LIMIT 1
	`)
	m, err := s.scanModel(row)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNoActiveModel
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active model: %w", err)
	}
	return m, nil
}

func (s *PG) ListModels(ctx context.Context) ([]models.ForecastModel, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+modelColumns+`
		FROM forecast_models
		ORDER BY trained_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	list := make([]models.ForecastModel, 0)
	for rows.Next() {
		m, err := s.scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

func (s *PG) InsertPrediction(ctx context.Context, p *models.Prediction) error {
	features, err := json.Marshal(p.FeatureInput)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO predictions
			(id, model_id, period_label, category, predicted, feature_input, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.ModelID, p.PeriodLabel, p.Category, p.Predicted, features, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

func (s *PG) GetPrediction(ctx context.Context, id string) (*models.Prediction, error) {
	var p models.Prediction
	var features []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, model_id, period_label, category, predicted, feature_input,
		       actual, abs_error, created_at
		FROM predictions WHERE id = $1
	`, id).Scan(&p.ID, &p.ModelID, &p.PeriodLabel, &p.Category, &p.Predicted,
		&features, &p.ActualQty, &p.AbsError, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrPredictionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load prediction: %w", err)
	}
	if err := json.Unmarshal(features, &p.FeatureInput); err != nil {
		return nil, fmt.Errorf("failed to decode feature input: %w", err)
	}
	return &p, nil
}

func (s *PG) UpdatePredictionActual(ctx context.Context, id string, actual, absError float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE predictions SET actual = $2, abs_error = $3 WHERE id = $1`,
		id, actual, absError)
	if err != nil {
		return fmt.Errorf("failed to update prediction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", models.ErrPredictionNotFound, id)
	}
	return nil
}

func (s *PG) ListPredictions(ctx context.Context, category string, limit int) ([]models.Prediction, error) {
	query := `
		SELECT id, model_id, period_label, category, predicted, feature_input,
		       actual, abs_error, created_at
		FROM predictions
		WHERE 1=1
	`
	args := []interface{}{}
	if category != "" {
		query += fmt.Sprintf(" AND LOWER(category) = LOWER($%d)", len(args)+1)
		args = append(args, category)
	}
	query += " ORDER BY created_at DESC, id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	list := make([]models.Prediction, 0)
	for rows.Next() {
		var p models.Prediction
		var features []byte
		if err := rows.Scan(&p.ID, &p.ModelID, &p.PeriodLabel, &p.Category, &p.Predicted,
			&features, &p.ActualQty, &p.AbsError, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		if err := json.Unmarshal(features, &p.FeatureInput); err != nil {
			return nil, fmt.Errorf("failed to decode feature input: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
