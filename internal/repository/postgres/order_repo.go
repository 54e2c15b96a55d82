// internal/repository/postgres/order_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rayslaund-service/internal/domain/order"
	"rayslaund-service/internal/events"
	xerrors "rayslaund-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	db  *pgxpool.Pool
	bus *events.Bus
}

func NewOrderRepository(db *pgxpool.Pool, bus *events.Bus) *OrderRepository {
	return &OrderRepository{db: db, bus: bus}
}

// Create inserts a new order. Line items and pickup location are stored as
// JSONB; the total is computed by the caller at creation time and never
// recomputed afterwards.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	query := `
		INSERT INTO orders (
			id, customer_id, customer_name, items, total_amount, status,
			pickup_location, delivery_code, confirmed_by_customer
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	var locationJSON []byte
	if o.PickupLocation != nil {
		locationJSON, err = json.Marshal(o.PickupLocation)
		if err != nil {
			return fmt.Errorf("failed to marshal pickup location: %w", err)
		}
	}

	err = r.db.QueryRow(
		ctx, query,
		o.ID, o.CustomerID, o.CustomerName, itemsJSON, o.TotalAmount, o.Status,
		locationJSON, o.DeliveryCode, o.ConfirmedByCustomer,
	).Scan(&o.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.bus.Publish(events.CollectionOrders)
	return nil
}

const orderColumns = `
	id, customer_id, customer_name, items, total_amount, status,
	pickup_location, staff_id, delivery_code, confirmed_by_customer,
	created_at, completed_at
`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	var itemsJSON []byte
	var locationJSON []byte

	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerName, &itemsJSON, &o.TotalAmount, &o.Status,
		&locationJSON, &o.StaffID, &o.DeliveryCode, &o.ConfirmedByCustomer,
		&o.CreatedAt, &o.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}
	if len(locationJSON) > 0 {
		if err := json.Unmarshal(locationJSON, &o.PickupLocation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pickup location: %w", err)
		}
	}

	return &o, nil
}

// FindByID retrieves an order by ID
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return o, nil
}

// Update writes the mutable order fields back in one statement. This is the
// write half of the engine's read-modify-write; last writer wins.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	query := `
		UPDATE orders
		SET status = $2, staff_id = $3, confirmed_by_customer = $4, completed_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, o.ID, o.Status, o.StaffID, o.ConfirmedByCustomer, o.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	r.bus.Publish(events.CollectionOrders)
	return nil
}

// ListByCustomer retrieves a customer's orders, newest first
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListActive retrieves all non-terminal orders for the staff board
func (r *OrderRepository) ListActive(ctx context.Context) ([]order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status != $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, order.StatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("failed to list active orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// List retrieves orders with filters and pagination for the admin board.
// Search matches order id or customer name.
func (r *OrderRepository) List(ctx context.Context, filters *order.OrderListFilters) ([]order.Order, int64, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}
	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(id ILIKE $%d OR customer_name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		` ORDER BY COALESCE(completed_at, created_at) DESC` +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	return orders, total, err
}

// RevenueSummary aggregates totals over delivered orders
func (r *OrderRepository) RevenueSummary(ctx context.Context) (*order.RevenueSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(total_amount) FILTER (WHERE status = $1), 0),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status != $1)
		FROM orders
	`

	var s order.RevenueSummary
	err := r.db.QueryRow(ctx, query, order.StatusDelivered).Scan(
		&s.TotalRevenue, &s.DeliveredOrders, &s.ActiveOrders,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize revenue: %w", err)
	}

	return &s, nil
}

func collectOrders(rows pgx.Rows) ([]order.Order, error) {
	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
