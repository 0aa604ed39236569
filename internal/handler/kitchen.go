package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warung-pos/api/internal/database"
	"github.com/warung-pos/api/internal/metrics"
	"github.com/warung-pos/api/internal/service"
	"github.com/warung-pos/api/internal/view"
	"github.com/warung-pos/api/internal/ws"
	"go.uber.org/zap"
)

// KitchenStore defines the database methods needed by the kitchen feed.
// Satisfied by *database.Queries; narrow interface for testability.
type KitchenStore interface {
	ListPendingOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsWithNames(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsWithNamesRow, error)
}

// KitchenServicer defines the service methods needed by the kitchen display.
// Satisfied by *service.OrderService.
type KitchenServicer interface {
	MarkKitchenDone(ctx context.Context, orderID uuid.UUID) (*database.Order, error)
}

// KitchenHandler serves the kitchen display page and its polling API.
type KitchenHandler struct {
	svc    KitchenServicer
	store  KitchenStore
	view   *view.View
	hub    *ws.Hub
	logger *zap.Logger
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(svc KitchenServicer, store KitchenStore, v *view.View, hub *ws.Hub, logger *zap.Logger) *KitchenHandler {
	return &KitchenHandler{svc: svc, store: store, view: v, hub: hub, logger: logger}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/kitchen", h.Page)
	r.Get("/api/kitchen_orders", h.PendingOrders)
	r.Post("/api/order/{id}/kitchen_done", h.KitchenDone)
}

type kitchenOrderResponse struct {
	ID        string                `json:"id"`
	OrderType string                `json:"order_type"`
	CreatedAt string                `json:"created_at"`
	Items     []kitchenItemResponse `json:"items"`
}

type kitchenItemResponse struct {
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
}

// Page handles GET /kitchen.
func (h *KitchenHandler) Page(w http.ResponseWriter, r *http.Request) {
	if err := h.view.Render(w, "kitchen", nil); err != nil {
		h.logger.Error("render kitchen", zap.Error(err))
	}
}

// PendingOrders handles GET /api/kitchen_orders: every pending order,
// oldest first, with its lines. Timestamps are wall-clock strings because
// the display only shows when the ticket came in.
func (h *KitchenHandler) PendingOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListPendingOrders(r.Context())
	if err != nil {
		h.logger.Error("list pending orders", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false, "error": "internal server error",
		})
		return
	}

	resp := make([]kitchenOrderResponse, 0, len(orders))
	for _, o := range orders {
		lines, err := h.store.ListOrderItemsWithNames(r.Context(), o.ID)
		if err != nil {
			h.logger.Error("list order items", zap.Error(err), zap.String("order_id", o.ID.String()))
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false, "error": "internal server error",
			})
			return
		}
		items := make([]kitchenItemResponse, len(lines))
		for i, line := range lines {
			items[i] = kitchenItemResponse{Name: line.Name, Quantity: line.Quantity}
		}
		resp = append(resp, kitchenOrderResponse{
			ID:        o.ID.String(),
			OrderType: o.OrderType,
			CreatedAt: o.CreatedAt.Format("03:04 PM"),
			Items:     items,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// KitchenDone handles POST /api/order/{id}/kitchen_done: moves a pending
// order to billed. The transition is first-click-wins; a second click sees
// the order as no longer pending.
func (h *KitchenHandler) KitchenDone(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false, "message": "Order not found or not pending",
		})
		return
	}

	order, err := h.svc.MarkKitchenDone(r.Context(), orderID)
	if err != nil {
		metrics.RecordOrderOperation("kitchen_done", false)
		if errors.Is(err, service.ErrOrderNotPending) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false, "message": "Order not found or not pending",
			})
			return
		}
		h.logger.Error("kitchen done", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false, "error": "internal server error",
		})
		return
	}

	metrics.RecordOrderOperation("kitchen_done", true)
	h.notify("order_billed", order.ID)

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *KitchenHandler) notify(eventType string, orderID uuid.UUID) {
	if h.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{"id": orderID.String()})
	if err != nil {
		return
	}
	h.hub.Broadcast(ws.Event{Type: eventType, Payload: payload})
}
