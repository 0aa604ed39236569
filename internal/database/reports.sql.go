package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const getDailySales = `
SELECT COALESCE(SUM(total_bill), 0)::NUMERIC(10,2)
FROM orders
WHERE status = 'completed' AND created_at >= $1
`

// GetDailySales sums completed orders created at or after the given instant,
// normally local midnight.
func (q *Queries) GetDailySales(ctx context.Context, since time.Time) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, getDailySales, since)
	var sum pgtype.Numeric
	err := row.Scan(&sum)
	return sum, err
}

const countOrdersByStatus = `
SELECT COUNT(*)
FROM orders
WHERE status = $1
`

func (q *Queries) CountOrdersByStatus(ctx context.Context, status string) (int64, error) {
	row := q.db.QueryRow(ctx, countOrdersByStatus, status)
	var count int64
	err := row.Scan(&count)
	return count, err
}
