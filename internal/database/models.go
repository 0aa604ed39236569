package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Customer struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	CreatedAt time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Price       pgtype.Numeric
	Description pgtype.Text
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	OrderType  string
	Status     string
	TotalBill  pgtype.Numeric
	CreatedAt  time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int32
	SubTotal   pgtype.Numeric
}

type Payment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Amount        pgtype.Numeric
	PaymentMethod string
	PaymentStatus string
	PaidAt        time.Time
}
