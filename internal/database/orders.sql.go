package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (customer_id, order_type, status)
VALUES ($1, $2, 'pending')
RETURNING id, customer_id, order_type, status, total_bill, created_at
`

type CreateOrderParams struct {
	CustomerID uuid.UUID
	OrderType  string
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.CustomerID, arg.OrderType)
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderType, &o.Status, &o.TotalBill, &o.CreatedAt)
	return o, err
}

const getOrder = `
SELECT id, customer_id, order_type, status, total_bill, created_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderType, &o.Status, &o.TotalBill, &o.CreatedAt)
	return o, err
}

const getOrderForUpdate = `
SELECT id, customer_id, order_type, status, total_bill, created_at
FROM orders
WHERE id = $1
FOR UPDATE
`

// GetOrderForUpdate locks the order row for the duration of the enclosing
// transaction, serializing concurrent item additions and payments.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderType, &o.Status, &o.TotalBill, &o.CreatedAt)
	return o, err
}

const listRecentOrders = `
SELECT id, customer_id, order_type, status, total_bill, created_at
FROM orders
ORDER BY created_at DESC
LIMIT $1
`

func (q *Queries) ListRecentOrders(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listRecentOrders, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.OrderType, &o.Status, &o.TotalBill, &o.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listPendingOrders = `
SELECT id, customer_id, order_type, status, total_bill, created_at
FROM orders
WHERE status = 'pending'
ORDER BY created_at ASC
`

// ListPendingOrders returns the kitchen queue, oldest ticket first.
func (q *Queries) ListPendingOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listPendingOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.OrderType, &o.Status, &o.TotalBill, &o.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const setOrderTotal = `
UPDATE orders
SET total_bill = $2
WHERE id = $1
RETURNING id, customer_id, order_type, status, total_bill, created_at
`

type SetOrderTotalParams struct {
	ID        uuid.UUID
	TotalBill pgtype.Numeric
}

func (q *Queries) SetOrderTotal(ctx context.Context, arg SetOrderTotalParams) (Order, error) {
	row := q.db.QueryRow(ctx, setOrderTotal, arg.ID, arg.TotalBill)
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderType, &o.Status, &o.TotalBill, &o.CreatedAt)
	return o, err
}

const transitionOrderStatus = `
UPDATE orders
SET status = $3
WHERE id = $1 AND status = $2
RETURNING id, customer_id, order_type, status, total_bill, created_at
`

type TransitionOrderStatusParams struct {
	ID         uuid.UUID
	FromStatus string
	Status     string
}

// TransitionOrderStatus flips the status only when the order is still in
// FromStatus. Returns pgx.ErrNoRows when the order is absent or has moved on.
func (q *Queries) TransitionOrderStatus(ctx context.Context, arg TransitionOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, transitionOrderStatus, arg.ID, arg.FromStatus, arg.Status)
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderType, &o.Status, &o.TotalBill, &o.CreatedAt)
	return o, err
}

const completeOrder = `
UPDATE orders
SET status = 'completed'
WHERE id = $1
RETURNING id, customer_id, order_type, status, total_bill, created_at
`

func (q *Queries) CompleteOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, completeOrder, id)
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderType, &o.Status, &o.TotalBill, &o.CreatedAt)
	return o, err
}
