package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warung-pos/api/internal/database"
	"github.com/warung-pos/api/internal/handler"
	"github.com/warung-pos/api/internal/metrics"
	"github.com/warung-pos/api/internal/service"
	"github.com/warung-pos/api/internal/view"
	"github.com/warung-pos/api/internal/ws"
	"go.uber.org/zap"
)

// New creates a Chi router with all application routes wired up.
func New(queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, v *view.View, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// WebSocket feed for kitchen displays
	r.Get("/ws/kitchen", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore)

	dashboardHandler := handler.NewDashboardHandler(queries, v, logger)
	dashboardHandler.RegisterRoutes(r)

	menuHandler := handler.NewMenuHandler(queries, v, logger)
	r.Route("/menu", menuHandler.RegisterRoutes)

	orderHandler := handler.NewOrderHandler(orderService, queries, v, hub, logger)
	orderHandler.RegisterRoutes(r)

	kitchenHandler := handler.NewKitchenHandler(orderService, queries, v, hub, logger)
	kitchenHandler.RegisterRoutes(r)

	return r
}
