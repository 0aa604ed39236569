package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createPayment = `
INSERT INTO payments (order_id, amount, payment_method, payment_status)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, amount, payment_method, payment_status, paid_at
`

type CreatePaymentParams struct {
	OrderID       uuid.UUID
	Amount        pgtype.Numeric
	PaymentMethod string
	PaymentStatus string
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment, arg.OrderID, arg.Amount, arg.PaymentMethod, arg.PaymentStatus)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.PaymentMethod, &p.PaymentStatus, &p.PaidAt)
	return p, err
}

const listPaymentsByOrder = `
SELECT id, order_id, amount, payment_method, payment_status, paid_at
FROM payments
WHERE order_id = $1
ORDER BY paid_at
`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.PaymentMethod, &p.PaymentStatus, &p.PaidAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
