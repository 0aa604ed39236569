package database

import (
	"context"
)

const createCustomer = `
INSERT INTO customers (name, phone)
VALUES ($1, $2)
RETURNING id, name, phone, created_at
`

type CreateCustomerParams struct {
	Name  string
	Phone string
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer, arg.Name, arg.Phone)
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt)
	return c, err
}

const getCustomerByPhone = `
SELECT id, name, phone, created_at
FROM customers
WHERE phone = $1
`

func (q *Queries) GetCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomerByPhone, phone)
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt)
	return c, err
}

const listCustomers = `
SELECT id, name, phone, created_at
FROM customers
ORDER BY name
`

func (q *Queries) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
