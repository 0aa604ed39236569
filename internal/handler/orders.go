package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/warung-pos/api/internal/database"
	"github.com/warung-pos/api/internal/enum"
	"github.com/warung-pos/api/internal/metrics"
	"github.com/warung-pos/api/internal/service"
	"github.com/warung-pos/api/internal/view"
	"github.com/warung-pos/api/internal/ws"
	"go.uber.org/zap"
)

const recentOrdersLimit = 50

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	AddItem(ctx context.Context, orderID uuid.UUID, menuItemID string, quantity int32) (*database.Order, error)
	Pay(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, method string) (*service.PayResult, error)
}

// OrderStore defines the database methods needed by the order pages.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListRecentOrders(ctx context.Context, limit int32) ([]database.Order, error)
	ListOrderItemsWithNames(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsWithNamesRow, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	ListAvailableMenuItems(ctx context.Context) ([]database.MenuItem, error)
	ListCustomers(ctx context.Context) ([]database.Customer, error)
}

// OrderHandler handles the POS order pages and the order creation API.
type OrderHandler struct {
	svc    OrderServicer
	store  OrderStore
	view   *view.View
	hub    *ws.Hub
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, v *view.View, hub *ws.Hub, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, view: v, hub: hub, logger: logger}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.ListPage)
	r.Get("/order/new", h.NewPage)
	r.Post("/order/new", h.Create)
	r.Get("/order/{id}", h.Detail)
	r.Post("/order/{id}/add_item", h.AddItem)
	r.Post("/order/{id}/pay", h.Pay)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName  string                   `json:"customerName"`
	CustomerPhone string                   `json:"customerPhone"`
	OrderType     string                   `json:"orderType"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ID       string `json:"id"`
	Quantity int32  `json:"quantity"`
}

type createOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
}

// --- Page view models ---

type orderView struct {
	ID        uuid.UUID
	ShortID   string
	OrderType string
	Status    string
	TotalBill string
	CreatedAt string
}

type orderLineView struct {
	Name     string
	Quantity int32
	SubTotal string
}

type paymentView struct {
	Amount        string
	PaymentMethod string
	PaymentStatus string
	PaidAt        string
}

type ordersPage struct {
	Orders []orderView
}

type createOrderPage struct {
	MenuItems []menuItemView
	Customers []database.Customer
}

type orderDetailPage struct {
	Order     orderView
	Items     []orderLineView
	Payments  []paymentView
	MenuItems []menuItemView
	CanPay    bool
}

func toOrderView(o database.Order) orderView {
	return orderView{
		ID:        o.ID,
		ShortID:   o.ID.String()[:8],
		OrderType: o.OrderType,
		Status:    o.Status,
		TotalBill: numericToString(o.TotalBill),
		CreatedAt: o.CreatedAt.Format("2006-01-02 15:04"),
	}
}

// --- Handlers ---

// ListPage handles GET /orders: the most recent 50 orders, newest first.
func (h *OrderHandler) ListPage(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListRecentOrders(r.Context(), recentOrdersLimit)
	if err != nil {
		h.logger.Error("list orders", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := ordersPage{Orders: make([]orderView, len(orders))}
	for i, o := range orders {
		page.Orders[i] = toOrderView(o)
	}

	if err := h.view.Render(w, "orders", page); err != nil {
		h.logger.Error("render orders", zap.Error(err))
	}
}

// NewPage handles GET /order/new: the POS screen.
func (h *OrderHandler) NewPage(w http.ResponseWriter, r *http.Request) {
	menuItems, err := h.store.ListAvailableMenuItems(r.Context())
	if err != nil {
		h.logger.Error("list menu items", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		h.logger.Error("list customers", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := createOrderPage{
		MenuItems: make([]menuItemView, len(menuItems)),
		Customers: customers,
	}
	for i, m := range menuItems {
		page.MenuItems[i] = toMenuItemView(m)
	}

	if err := h.view.Render(w, "create_order", page); err != nil {
		h.logger.Error("render create order", zap.Error(err))
	}
}

// Create handles POST /order/new with a JSON body from the POS screen.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false, "error": "invalid request body",
		})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			MenuItemID: item.ID,
			Quantity:   item.Quantity,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		OrderType:     req.OrderType,
		Items:         items,
	})
	if err != nil {
		metrics.RecordOrderOperation("create", false)
		if errors.Is(err, service.ErrNameRequired) || errors.Is(err, service.ErrPhoneRequired) || errors.Is(err, service.ErrInvalidOrderType) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false, "error": err.Error(),
			})
			return
		}
		h.logger.Error("create order", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false, "error": "internal server error",
		})
		return
	}

	metrics.RecordOrderOperation("create", true)
	h.notifyKitchen("order_created", result.Order.ID)

	writeJSON(w, http.StatusOK, createOrderResponse{
		Success: true,
		OrderID: result.Order.ID.String(),
	})
}

// Detail handles GET /order/{id}.
func (h *OrderHandler) Detail(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get order", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	lines, err := h.store.ListOrderItemsWithNames(r.Context(), orderID)
	if err != nil {
		h.logger.Error("list order items", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("list payments", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	menuItems, err := h.store.ListAvailableMenuItems(r.Context())
	if err != nil {
		h.logger.Error("list menu items", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := orderDetailPage{
		Order:     toOrderView(order),
		Items:     make([]orderLineView, len(lines)),
		Payments:  make([]paymentView, len(payments)),
		MenuItems: make([]menuItemView, len(menuItems)),
		CanPay:    service.CanTransition(order.Status, enum.OrderStatusCompleted),
	}
	for i, line := range lines {
		page.Items[i] = orderLineView{
			Name:     line.Name,
			Quantity: line.Quantity,
			SubTotal: numericToString(line.SubTotal),
		}
	}
	for i, p := range payments {
		page.Payments[i] = paymentView{
			Amount:        numericToString(p.Amount),
			PaymentMethod: p.PaymentMethod,
			PaymentStatus: p.PaymentStatus,
			PaidAt:        p.PaidAt.Format("2006-01-02 15:04"),
		}
	}
	for i, m := range menuItems {
		page.MenuItems[i] = toMenuItemView(m)
	}

	if err := h.view.Render(w, "order_detail", page); err != nil {
		h.logger.Error("render order detail", zap.Error(err))
	}
}

// AddItem handles POST /order/{id}/add_item (form fields menu_item_id,
// quantity). Success and the silent no-op cases both land back on the order
// page; an absent or non-pending order is a 400.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Cannot add items to this order", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	quantity, err := strconv.ParseInt(r.PostFormValue("quantity"), 10, 32)
	if err != nil {
		http.Error(w, "quantity must be an integer", http.StatusBadRequest)
		return
	}

	_, err = h.svc.AddItem(r.Context(), orderID, r.PostFormValue("menu_item_id"), int32(quantity))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) || errors.Is(err, service.ErrOrderNotPending) {
			http.Error(w, "Cannot add items to this order", http.StatusBadRequest)
			return
		}
		h.logger.Error("add order item", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/order/"+orderID.String(), http.StatusSeeOther)
}

// Pay handles POST /order/{id}/pay (form fields amount, payment_method).
// Underpayment redirects back to the order page without a message; the
// attempt is still visible in the logs and metrics.
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(r.PostFormValue("amount"))
	if err != nil {
		http.Error(w, "amount must be a number", http.StatusBadRequest)
		return
	}

	_, err = h.svc.Pay(r.Context(), orderID, amount, r.PostFormValue("payment_method"))
	if err != nil {
		metrics.RecordOrderOperation("pay", false)
		switch {
		case errors.Is(err, service.ErrInsufficientAmount):
			h.logger.Warn("underpayment rejected",
				zap.String("order_id", orderID.String()),
				zap.String("amount", amount.StringFixed(2)))
			http.Redirect(w, r, "/order/"+orderID.String(), http.StatusSeeOther)
		case errors.Is(err, service.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, service.ErrOrderNotPayable):
			http.Error(w, "order cannot accept payment", http.StatusConflict)
		case errors.Is(err, service.ErrInvalidPaymentMethod):
			http.Error(w, "invalid payment method", http.StatusBadRequest)
		default:
			h.logger.Error("pay order", zap.Error(err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	metrics.RecordOrderOperation("pay", true)
	http.Redirect(w, r, "/orders", http.StatusSeeOther)
}

// notifyKitchen broadcasts an order event to connected kitchen displays.
// Displays treat any event as a cue to refresh their ticket list.
func (h *OrderHandler) notifyKitchen(eventType string, orderID uuid.UUID) {
	if h.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{"id": orderID.String()})
	if err != nil {
		return
	}
	h.hub.Broadcast(ws.Event{Type: eventType, Payload: payload})
}
