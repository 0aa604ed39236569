package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createMenuItem = `
INSERT INTO menu_items (name, price, description, is_available)
VALUES ($1, $2, $3, $4)
RETURNING id, name, price, description, is_available, created_at, updated_at
`

type CreateMenuItemParams struct {
	Name        string
	Price       pgtype.Numeric
	Description pgtype.Text
	IsAvailable bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem, arg.Name, arg.Price, arg.Description, arg.IsAvailable)
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Description, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const getMenuItem = `
SELECT id, name, price, description, is_available, created_at, updated_at
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, id)
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Description, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const listMenuItems = `
SELECT id, name, price, description, is_available, created_at, updated_at
FROM menu_items
ORDER BY name
`

func (q *Queries) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.Description, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const listAvailableMenuItems = `
SELECT id, name, price, description, is_available, created_at, updated_at
FROM menu_items
WHERE is_available
ORDER BY name
`

func (q *Queries) ListAvailableMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listAvailableMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.Description, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const toggleMenuItemAvailability = `
UPDATE menu_items
SET is_available = NOT is_available, updated_at = now()
WHERE id = $1
RETURNING id, name, price, description, is_available, created_at, updated_at
`

func (q *Queries) ToggleMenuItemAvailability(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, toggleMenuItemAvailability, id)
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Description, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
