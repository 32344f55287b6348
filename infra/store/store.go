// Package store persists orders, products, lines and jobs in Postgres.
// It implements the reader and job-store interfaces the core engines
// consume; everything algorithmic stays out of here.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopfloor-planner/core/model"
)

// Config defines the database connection settings.
type Config struct {
	DSN string `json:"dsn"`
}

// Validate checks that a DSN is configured.
func (c Config) Validate() error {
	if c.DSN == "" {
		return errors.New("database dsn is required")
	}
	return nil
}

// Store wraps pgxpool for Postgres persistence.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PendingOrders returns pending or confirmed orders with their items and
// products, optionally limited to the given order IDs, ordered by due date.
func (s *Store) PendingOrders(ctx context.Context, orderIDs []uuid.UUID) ([]model.Order, error) {
	query := `
		SELECT id, order_no, customer_name, due_date, priority, status
		FROM orders
		WHERE status IN ('pending', 'confirmed')`
	args := []any{}
	if len(orderIDs) > 0 {
		query += ` AND id = ANY($1)`
		args = append(args, orderIDs)
	}
	query += ` ORDER BY due_date`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.OrderNo, &o.CustomerName, &o.DueDate, &o.Priority, &o.Status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	itemRows, err := s.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.quantity,
		       p.id, p.sku, p.name, p.standard_cycle_time, p.setup_time, p.yield_rate, p.learned_cycle_time
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.created_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item model.OrderItem
		var learned pgtype.Float8
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.Quantity,
			&item.Product.ID, &item.Product.SKU, &item.Product.Name,
			&item.Product.StandardCycleTime, &item.Product.SetupTime,
			&item.Product.YieldRate, &learned); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if learned.Valid {
			v := learned.Float64
			item.Product.LearnedCycleTime = &v
		}
		item.ProductID = item.Product.ID
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return orders, nil
}

// ActiveLines returns all active production lines with their allow-lists
// and changeover matrices decoded.
func (s *Store) ActiveLines(ctx context.Context) ([]model.ProductionLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, status, allowed_products, changeover_matrix
		FROM production_lines
		WHERE status = $1
		ORDER BY name`, model.LineStatusActive)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var lines []model.ProductionLine
	for rows.Next() {
		var line model.ProductionLine
		var allowedJSON, matrixJSON []byte
		if err := rows.Scan(&line.ID, &line.Name, &line.Status, &allowedJSON, &matrixJSON); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		if line.Allowed, err = decodeAllowedProducts(allowedJSON); err != nil {
			return nil, fmt.Errorf("line %s allowed_products: %w", line.Name, err)
		}
		if line.Changeover, err = decodeChangeoverMatrix(matrixJSON); err != nil {
			return nil, fmt.Errorf("line %s changeover_matrix: %w", line.Name, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return lines, nil
}

// ProductByID fetches a product; found is false when it does not exist.
func (s *Store) ProductByID(ctx context.Context, id uuid.UUID) (model.Product, bool, error) {
	var p model.Product
	var learned pgtype.Float8
	err := s.pool.QueryRow(ctx, `
		SELECT id, sku, name, standard_cycle_time, setup_time, yield_rate, learned_cycle_time
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.StandardCycleTime, &p.SetupTime, &p.YieldRate, &learned)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, fmt.Errorf("query product: %w", err)
	}
	if learned.Valid {
		v := learned.Float64
		p.LearnedCycleTime = &v
	}
	return p, true, nil
}

// OpenJobs returns all planned and in-progress jobs joined with their
// product SKUs, ordered by planned start.
func (s *Store) OpenJobs(ctx context.Context) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT j.id, j.order_item_id, j.production_line_id, j.product_id,
		       j.planned_start, j.planned_end, j.quantity, j.changeover_minutes,
		       j.status, COALESCE(j.notes, ''), p.sku, j.created_at, j.updated_at
		FROM scheduled_jobs j
		JOIN products p ON p.id = j.product_id
		WHERE j.status IN ($1, $2)
		ORDER BY j.planned_start`, model.JobStatusPlanned, model.JobStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("query open jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// JobFilter narrows CurrentJobs results.
type JobFilter struct {
	Status           string
	ProductionLineID uuid.UUID
	Skip             int
	Limit            int
}

// CurrentJobs returns jobs ordered by planned start. Without a status
// filter only non-terminal jobs are returned.
func (s *Store) CurrentJobs(ctx context.Context, f JobFilter) ([]model.Job, error) {
	query := `
		SELECT j.id, j.order_item_id, j.production_line_id, j.product_id,
		       j.planned_start, j.planned_end, j.quantity, j.changeover_minutes,
		       j.status, COALESCE(j.notes, ''), p.sku, j.created_at, j.updated_at
		FROM scheduled_jobs j
		JOIN products p ON p.id = j.product_id`
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" WHERE j.status = $%d", len(args))
	} else {
		args = append(args, model.JobStatusPlanned, model.JobStatusInProgress)
		query += " WHERE j.status IN ($1, $2)"
	}
	if f.ProductionLineID != uuid.Nil {
		args = append(args, f.ProductionLineID)
		query += fmt.Sprintf(" AND j.production_line_id = $%d", len(args))
	}
	query += " ORDER BY j.planned_start"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Skip > 0 {
		args = append(args, f.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// SavePlan marks existing planned jobs for the affected order items as
// superseded and inserts the new jobs in one transaction, so no order
// item ever carries two planned jobs at once.
func (s *Store) SavePlan(ctx context.Context, jobs []model.Job) ([]model.Job, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	itemIDs := make([]uuid.UUID, len(jobs))
	for i, j := range jobs {
		itemIDs[i] = j.OrderItemID
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE scheduled_jobs SET status = $1, updated_at = NOW()
		WHERE order_item_id = ANY($2) AND status = $3`,
		model.JobStatusSuperseded, itemIDs, model.JobStatusPlanned); err != nil {
		return nil, fmt.Errorf("supersede planned jobs: %w", err)
	}

	now := time.Now().UTC()
	persisted := make([]model.Job, len(jobs))
	for i, j := range jobs {
		j.ID = uuid.New()
		j.CreatedAt = now
		j.UpdatedAt = now
		if _, err := tx.Exec(ctx, `
			INSERT INTO scheduled_jobs
				(id, order_item_id, production_line_id, product_id, planned_start,
				 planned_end, quantity, changeover_minutes, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $11)`,
			j.ID, j.OrderItemID, j.ProductionLineID, j.ProductID, j.PlannedStart,
			j.PlannedEnd, j.Quantity, j.ChangeoverMinutes, j.Status, j.Notes, now); err != nil {
			return nil, fmt.Errorf("insert job: %w", err)
		}
		persisted[i] = j
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return persisted, nil
}

func scanJobs(rows pgx.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.OrderItemID, &j.ProductionLineID, &j.ProductID,
			&j.PlannedStart, &j.PlannedEnd, &j.Quantity, &j.ChangeoverMinutes,
			&j.Status, &j.Notes, &j.ProductSKU, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
