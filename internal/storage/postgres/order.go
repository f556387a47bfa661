package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sawamura722/cardcapital/internal/domain/order"
)

const orderColumns = `id, user_id, order_date, total_amount, status, location, first_name, last_name`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithLines persists the order and its lines in one transaction, lines
// in the given order. Nothing is written if any insert fails.
func (r *OrderRepository) CreateWithLines(ctx context.Context, o *order.Order, lines []order.Line) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.UserID, o.OrderDate, o.TotalAmount, o.Status, o.Location, o.FirstName, o.LastName)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for i, l := range lines {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_lines (order_id, product_id, quantity, price, position)
			 VALUES ($1, $2, $3, $4, $5)`,
			o.ID, l.ProductID, l.Quantity, l.Price, i)
		if err != nil {
			return fmt.Errorf("creating line %d of order %q: %w", i, o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order. It returns order.ErrNotFound when no
// matching order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY order_date DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userID, err)
	}
	return collectOrders(rows)
}

// List returns every order, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY order_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return collectOrders(rows)
}

// ListLines returns the order's lines in their original cart order.
func (r *OrderRepository) ListLines(ctx context.Context, orderID string) ([]order.Line, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, quantity, price
		 FROM order_lines WHERE order_id = $1 ORDER BY position`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("listing lines for %q: %w", orderID, err)
	}
	return collectLines(rows)
}

// ListAllLines returns every order line; used for dashboard aggregation.
func (r *OrderRepository) ListAllLines(ctx context.Context) ([]order.Line, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, quantity, price FROM order_lines`)
	if err != nil {
		return nil, fmt.Errorf("listing order lines: %w", err)
	}
	return collectLines(rows)
}

// Delete removes the order; its lines go with it via ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func collectOrders(rows pgx.Rows) ([]order.Order, error) {
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func collectLines(rows pgx.Rows) ([]order.Line, error) {
	defer rows.Close()

	var out []order.Line
	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.Quantity, &l.Price); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.UserID, &o.OrderDate, &o.TotalAmount, &o.Status,
		&o.Location, &o.FirstName, &o.LastName)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
