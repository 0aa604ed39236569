package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/warung-pos/api/internal/enum"
	"github.com/warung-pos/api/internal/view"
	"go.uber.org/zap"
)

// DashboardStore defines the database methods needed by the dashboard.
// Satisfied by *database.Queries; narrow interface for testability.
type DashboardStore interface {
	GetDailySales(ctx context.Context, since time.Time) (pgtype.Numeric, error)
	CountOrdersByStatus(ctx context.Context, status string) (int64, error)
}

// DashboardHandler serves the landing page with today's headline numbers.
type DashboardHandler struct {
	store  DashboardStore
	view   *view.View
	logger *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store DashboardStore, v *view.View, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, view: v, logger: logger}
}

// RegisterRoutes registers the dashboard page on the given Chi router.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
}

type dashboardPage struct {
	DailySales   string
	PendingCount int64
}

// Index handles GET /. Both figures are recomputed on every request; the
// sales window starts at local midnight.
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sales, err := h.store.GetDailySales(r.Context(), startOfDay)
	if err != nil {
		h.logger.Error("get daily sales", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pending, err := h.store.CountOrdersByStatus(r.Context(), enum.OrderStatusPending)
	if err != nil {
		h.logger.Error("count pending orders", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.view.Render(w, "index", dashboardPage{
		DailySales:   numericToString(sales),
		PendingCount: pending,
	}); err != nil {
		h.logger.Error("render dashboard", zap.Error(err))
	}
}
