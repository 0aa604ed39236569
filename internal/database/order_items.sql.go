package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, quantity, sub_total)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, menu_item_id, quantity, sub_total
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	SubTotal   pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.MenuItemID, arg.Quantity, arg.SubTotal)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.SubTotal)
	return i, err
}

const getOrderItemByMenuItem = `
SELECT id, order_id, menu_item_id, quantity, sub_total
FROM order_items
WHERE order_id = $1 AND menu_item_id = $2
`

type GetOrderItemByMenuItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
}

func (q *Queries) GetOrderItemByMenuItem(ctx context.Context, arg GetOrderItemByMenuItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, getOrderItemByMenuItem, arg.OrderID, arg.MenuItemID)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.SubTotal)
	return i, err
}

const updateOrderItemQuantity = `
UPDATE order_items
SET quantity = $2, sub_total = $3
WHERE id = $1
RETURNING id, order_id, menu_item_id, quantity, sub_total
`

type UpdateOrderItemQuantityParams struct {
	ID       uuid.UUID
	Quantity int32
	SubTotal pgtype.Numeric
}

func (q *Queries) UpdateOrderItemQuantity(ctx context.Context, arg UpdateOrderItemQuantityParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItemQuantity, arg.ID, arg.Quantity, arg.SubTotal)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.SubTotal)
	return i, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, menu_item_id, quantity, sub_total
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.SubTotal); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrderItemsWithNames = `
SELECT oi.id, oi.menu_item_id, m.name, oi.quantity, oi.sub_total
FROM order_items oi
JOIN menu_items m ON m.id = oi.menu_item_id
WHERE oi.order_id = $1
ORDER BY m.name
`

type ListOrderItemsWithNamesRow struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Quantity   int32
	SubTotal   pgtype.Numeric
}

func (q *Queries) ListOrderItemsWithNames(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsWithNamesRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsWithNames, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemsWithNamesRow
	for rows.Next() {
		var i ListOrderItemsWithNamesRow
		if err := rows.Scan(&i.ID, &i.MenuItemID, &i.Name, &i.Quantity, &i.SubTotal); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const sumOrderItemSubtotals = `
SELECT COALESCE(SUM(sub_total), 0)::NUMERIC(10,2)
FROM order_items
WHERE order_id = $1
`

func (q *Queries) SumOrderItemSubtotals(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, sumOrderItemSubtotals, orderID)
	var sum pgtype.Numeric
	err := row.Scan(&sum)
	return sum, err
}
