package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warung-pos/api/internal/database"
	"github.com/warung-pos/api/internal/enum"
)

// Errors returned by the order service.
var (
	ErrNameRequired         = errors.New("customer name is required")
	ErrPhoneRequired        = errors.New("customer phone is required")
	ErrInvalidOrderType     = errors.New("invalid order_type")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotPending      = errors.New("order not found or not pending")
	ErrOrderNotPayable      = errors.New("order cannot accept payment")
	ErrInsufficientAmount   = errors.New("amount does not cover the bill")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order workflow.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetCustomerByPhone(ctx context.Context, phone string) (database.Customer, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderItemByMenuItem(ctx context.Context, arg database.GetOrderItemByMenuItemParams) (database.OrderItem, error)
	UpdateOrderItemQuantity(ctx context.Context, arg database.UpdateOrderItemQuantityParams) (database.OrderItem, error)
	SumOrderItemSubtotals(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	SetOrderTotal(ctx context.Context, arg database.SetOrderTotalParams) (database.Order, error)
	TransitionOrderStatus(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	CompleteOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// allowedTransitions is the closed status transition table. `cancelled` is a
// declared status with no inbound edge: no exposed operation reaches it.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending: {enum.OrderStatusBilled, enum.OrderStatusCompleted},
	enum.OrderStatusBilled:  {enum.OrderStatusCompleted},
}

// CanTransition reports whether the status change is in the transition table.
func CanTransition(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CustomerName  string
	CustomerPhone string
	OrderType     string
	Items         []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single requested line. MenuItemID is kept as a
// string: ids that do not parse or do not resolve are skipped, not rejected.
type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
}

// CreateOrderResult is the created order with its persisted lines.
type CreateOrderResult struct {
	Order    database.Order
	Customer database.Customer
	Items    []database.OrderItem
}

// PayResult is the recorded payment and the completed order.
type PayResult struct {
	Order   database.Order
	Payment database.Payment
}

// OrderService handles the order lifecycle: creation, item additions,
// the kitchen-done transition, and payment.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService. store must be backed by the
// pool; newStore builds tx-scoped stores for the multi-step mutations.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore}
}

// CreateOrder resolves the customer by phone (creating one on first sight),
// opens a pending order, and inserts one line per resolvable menu item with
// sub_total = price x quantity. Requested ids that do not resolve, and lines
// with a non-positive quantity, are skipped without error. The order total is
// the sum of the inserted lines.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.CustomerName == "" {
		return nil, ErrNameRequired
	}
	if req.CustomerPhone == "" {
		return nil, ErrPhoneRequired
	}
	if req.OrderType != enum.OrderTypeDineIn && req.OrderType != enum.OrderTypeTakeaway {
		return nil, ErrInvalidOrderType
	}

	// Customer resolution happens outside the order transaction: a unique
	// violation on the losing side of a concurrent insert would poison the
	// whole tx, so get-or-create retries the lookup instead.
	customer, err := s.resolveCustomer(ctx, req.CustomerName, req.CustomerPhone)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerID: customer.ID,
		OrderType:  req.OrderType,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	total := decimal.Zero
	var items []database.OrderItem
	for _, line := range mergeLines(req.Items) {
		menuItemID, err := uuid.Parse(line.MenuItemID)
		if err != nil {
			continue
		}
		menuItem, err := store.GetMenuItem(ctx, menuItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("get menu item: %w", err)
		}

		subTotal := numericToDecimal(menuItem.Price).Mul(decimal.NewFromInt32(line.Quantity))
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: menuItem.ID,
			Quantity:   line.Quantity,
			SubTotal:   decimalToNumeric(subTotal),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
		total = total.Add(subTotal)
	}

	order, err = store.SetOrderTotal(ctx, database.SetOrderTotalParams{
		ID:        order.ID,
		TotalBill: decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("set order total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Customer: customer, Items: items}, nil
}

// AddItem adds quantity of a menu item to a pending order. An existing line
// for the same menu item absorbs the quantity and is re-priced at the current
// menu price. An unknown menu item or non-positive quantity is a no-op. The
// order total is recomputed from scratch afterwards.
func (s *OrderService) AddItem(ctx context.Context, orderID uuid.UUID, menuItemID string, quantity int32) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	itemID, parseErr := uuid.Parse(menuItemID)
	if parseErr != nil || quantity <= 0 {
		return &order, nil
	}
	menuItem, err := store.GetMenuItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &order, nil
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}

	price := numericToDecimal(menuItem.Price)
	existing, err := store.GetOrderItemByMenuItem(ctx, database.GetOrderItemByMenuItemParams{
		OrderID:    order.ID,
		MenuItemID: menuItem.ID,
	})
	switch {
	case err == nil:
		newQuantity := existing.Quantity + quantity
		subTotal := price.Mul(decimal.NewFromInt32(newQuantity))
		if _, err := store.UpdateOrderItemQuantity(ctx, database.UpdateOrderItemQuantityParams{
			ID:       existing.ID,
			Quantity: newQuantity,
			SubTotal: decimalToNumeric(subTotal),
		}); err != nil {
			return nil, fmt.Errorf("update order item: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		subTotal := price.Mul(decimal.NewFromInt32(quantity))
		if _, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: menuItem.ID,
			Quantity:   quantity,
			SubTotal:   decimalToNumeric(subTotal),
		}); err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	default:
		return nil, fmt.Errorf("get order item: %w", err)
	}

	// Full reconciliation rather than an incremental update: the total is
	// always the sum of the current lines.
	sum, err := store.SumOrderItemSubtotals(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("sum order items: %w", err)
	}
	order, err = store.SetOrderTotal(ctx, database.SetOrderTotalParams{
		ID:        order.ID,
		TotalBill: sum,
	})
	if err != nil {
		return nil, fmt.Errorf("set order total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &order, nil
}

// MarkKitchenDone transitions a pending order to billed. The conditional
// UPDATE makes the check-and-set atomic; a second call finds the order no
// longer pending and fails.
func (s *OrderService) MarkKitchenDone(ctx context.Context, orderID uuid.UUID) (*database.Order, error) {
	order, err := s.store.TransitionOrderStatus(ctx, database.TransitionOrderStatusParams{
		ID:         orderID,
		FromStatus: enum.OrderStatusPending,
		Status:     enum.OrderStatusBilled,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotPending
		}
		return nil, fmt.Errorf("transition order status: %w", err)
	}
	return &order, nil
}

// Pay records a payment that fully covers the order's total and completes the
// order. Underpayment writes nothing. Orders outside the transition table
// (already completed, or cancelled) cannot accept payment.
func (s *OrderService) Pay(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, method string) (*PayResult, error) {
	if method != enum.PaymentMethodCash && method != enum.PaymentMethodCard {
		return nil, ErrInvalidPaymentMethod
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !CanTransition(order.Status, enum.OrderStatusCompleted) {
		return nil, ErrOrderNotPayable
	}

	if amount.LessThan(numericToDecimal(order.TotalBill)) {
		return nil, ErrInsufficientAmount
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:       order.ID,
		Amount:        decimalToNumeric(amount),
		PaymentMethod: method,
		PaymentStatus: enum.PaymentStatusPaid,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	order, err = store.CompleteOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &PayResult{Order: order, Payment: payment}, nil
}

// resolveCustomer finds a customer by phone, creating one on first contact.
// A 23505 on the insert means a concurrent request won the create; the
// follow-up lookup then succeeds.
func (s *OrderService) resolveCustomer(ctx context.Context, name, phone string) (database.Customer, error) {
	customer, err := s.store.GetCustomerByPhone(ctx, phone)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Customer{}, fmt.Errorf("get customer: %w", err)
	}

	customer, err = s.store.CreateCustomer(ctx, database.CreateCustomerParams{
		Name:  name,
		Phone: phone,
	})
	if err == nil {
		return customer, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		customer, err = s.store.GetCustomerByPhone(ctx, phone)
		if err != nil {
			return database.Customer{}, fmt.Errorf("get customer after conflict: %w", err)
		}
		return customer, nil
	}
	return database.Customer{}, fmt.Errorf("create customer: %w", err)
}

// mergeLines collapses repeated menu item ids into one line each, preserving
// first-seen order. The storage layer enforces one line per (order, item).
func mergeLines(items []CreateOrderItemRequest) []CreateOrderItemRequest {
	merged := make([]CreateOrderItemRequest, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if i, ok := index[item.MenuItemID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.MenuItemID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
