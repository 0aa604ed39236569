package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/warung-pos/api/internal/database"
	"github.com/warung-pos/api/internal/view"
	"go.uber.org/zap"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context) ([]database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	ToggleMenuItemAvailability(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

// MenuHandler handles the staff-facing menu management page.
type MenuHandler struct {
	store  MenuStore
	view   *view.View
	logger *zap.Logger
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore, v *view.View, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{store: store, view: v, logger: logger}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/{id}/toggle", h.Toggle)
}

type menuItemView struct {
	ID          uuid.UUID
	Name        string
	Price       string
	Description string
	IsAvailable bool
}

type menuPage struct {
	Items []menuItemView
}

func toMenuItemView(m database.MenuItem) menuItemView {
	v := menuItemView{
		ID:          m.ID,
		Name:        m.Name,
		Price:       numericToString(m.Price),
		IsAvailable: m.IsAvailable,
	}
	if m.Description.Valid {
		v.Description = m.Description.String
	}
	return v
}

// List handles GET /menu.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context())
	if err != nil {
		h.logger.Error("list menu items", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := menuPage{Items: make([]menuItemView, len(items))}
	for i, m := range items {
		page.Items[i] = toMenuItemView(m)
	}

	if err := h.view.Render(w, "menu", page); err != nil {
		h.logger.Error("render menu", zap.Error(err))
	}
}

// Create handles POST /menu (form submission from the menu page).
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := r.PostFormValue("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	price, err := decimal.NewFromString(r.PostFormValue("price"))
	if err != nil || price.IsNegative() {
		http.Error(w, "price must be a non-negative number", http.StatusBadRequest)
		return
	}

	var description pgtype.Text
	if s := r.PostFormValue("description"); s != "" {
		description = pgtype.Text{String: s, Valid: true}
	}
	// Checkboxes are present in the form only when ticked.
	isAvailable := r.PostForm.Has("is_available")

	var priceNumeric pgtype.Numeric
	_ = priceNumeric.Scan(price.StringFixed(2))

	_, err = h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:        name,
		Price:       priceNumeric,
		Description: description,
		IsAvailable: isAvailable,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "menu item with this name already exists", http.StatusConflict)
			return
		}
		h.logger.Error("create menu item", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/menu", http.StatusSeeOther)
}

// Toggle handles POST /menu/{id}/toggle, flipping availability.
func (h *MenuHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid menu item ID", http.StatusBadRequest)
		return
	}

	if _, err := h.store.ToggleMenuItemAvailability(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "menu item not found", http.StatusNotFound)
			return
		}
		h.logger.Error("toggle menu item", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/menu", http.StatusSeeOther)
}
