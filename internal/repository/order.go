package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/IntakeDesk/internal/model"
)

// orderColumns renders dob back to YYYY-MM-DD so it scans into *string.
const orderColumns = `id, patient_first_name, patient_last_name, to_char(dob, 'YYYY-MM-DD'), status, created_at, updated_at`

// OrderRepository stores orders in Postgres.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository constructs a repository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List returns every order, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// Create inserts an order and returns it with its assigned id.
func (r *OrderRepository) Create(ctx context.Context, req model.CreateOrderRequest) (*model.Order, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO orders (patient_first_name, patient_last_name, dob, status, created_at, updated_at)
		VALUES ($1, $2, CAST($3::text AS DATE), $4, $5, $5)
		RETURNING `+orderColumns,
		req.PatientFirstName, req.PatientLastName, req.DOB, string(req.Status), now)
	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// Get returns an order by id.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	return o, nil
}

// Update overwrites the mutable fields of an order.
func (r *OrderRepository) Update(ctx context.Context, order *model.Order) (*model.Order, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET patient_first_name=$1,
			patient_last_name=$2,
			dob=CAST($3::text AS DATE),
			status=$4,
			updated_at=$5
		WHERE id=$6
		RETURNING `+orderColumns,
		order.PatientFirstName, order.PatientLastName, order.DOB, string(order.Status), time.Now().UTC(), order.ID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("update order: %w", err)
	}
	return o, nil
}

// Delete removes an order.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.PatientFirstName, &o.PatientLastName, &o.DOB, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}
