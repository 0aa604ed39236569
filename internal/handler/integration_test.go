//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/warung-pos/api/internal/database"
	"github.com/warung-pos/api/internal/router"
	"github.com/warung-pos/api/internal/view"
	"github.com/warung-pos/api/internal/ws"
	"go.uber.org/zap"
)

// noRedirectClient surfaces 303s instead of following them, so redirects can
// be asserted directly.
var noRedirectClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

// TestIntegrationOrderLifecycle exercises the full order workflow against a
// real PostgreSQL database: menu setup, order creation, kitchen feed, the
// kitchen-done transition, underpayment rejection, and final payment.
func TestIntegrationOrderLifecycle(t *testing.T) {
	ctx := context.Background()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runTestMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	queries := database.New(pool)
	v, err := view.New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit; Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	r := router.New(queries, pool, hub, v, zap.NewNop())
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Health check ---
	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: got %d, want 200", resp.StatusCode)
	}

	// --- 2. Create two menu items via the form endpoint ---
	postForm(t, server, "/menu", url.Values{
		"name": {"Nasi Goreng"}, "price": {"9.50"}, "is_available": {"on"},
	}, http.StatusSeeOther)
	postForm(t, server, "/menu", url.Values{
		"name": {"Es Teh Manis"}, "price": {"4.00"}, "is_available": {"on"},
	}, http.StatusSeeOther)

	nasiID := menuItemID(t, ctx, pool, "Nasi Goreng")
	tehID := menuItemID(t, ctx, pool, "Es Teh Manis")

	// Duplicate name is rejected
	postForm(t, server, "/menu", url.Values{
		"name": {"Nasi Goreng"}, "price": {"1.00"},
	}, http.StatusConflict)

	// --- 3. Create an order: 2x9.50 + 1x4.00, one unknown id skipped ---
	createResp := postJSON(t, server, "/order/new", map[string]interface{}{
		"customerName":  "Budi",
		"customerPhone": "0811111111",
		"orderType":     "dine-in",
		"items": []map[string]interface{}{
			{"id": nasiID.String(), "quantity": 2},
			{"id": tehID.String(), "quantity": 1},
			{"id": uuid.New().String(), "quantity": 5},
		},
	}, http.StatusOK)
	if createResp["success"] != true {
		t.Fatalf("create order: success=%v, body=%v", createResp["success"], createResp)
	}
	orderID := uuid.MustParse(createResp["order_id"].(string))

	if got := orderTotal(t, ctx, pool, orderID); got != "23.00" {
		t.Fatalf("total_bill after create: got %s, want 23.00", got)
	}

	// Same phone resolves to the same customer
	createResp2 := postJSON(t, server, "/order/new", map[string]interface{}{
		"customerName":  "Someone Else",
		"customerPhone": "0811111111",
		"orderType":     "takeaway",
	}, http.StatusOK)
	order2ID := uuid.MustParse(createResp2["order_id"].(string))
	var customers int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&customers); err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if customers != 1 {
		t.Fatalf("customers: got %d, want 1 (same phone must reuse the customer)", customers)
	}

	// --- 4. Kitchen feed shows both pending orders, oldest first ---
	feed := getKitchenFeed(t, server)
	if len(feed) != 2 {
		t.Fatalf("kitchen feed: got %d tickets, want 2", len(feed))
	}
	if feed[0]["id"] != orderID.String() {
		t.Fatalf("feed order: first ticket %v, want %s (oldest first)", feed[0]["id"], orderID)
	}

	// --- 5. Adding the same item merges the line and keeps total = sum ---
	postForm(t, server, "/order/"+orderID.String()+"/add_item", url.Values{
		"menu_item_id": {nasiID.String()},
		"quantity":     {"1"},
	}, http.StatusSeeOther)

	if got := orderTotal(t, ctx, pool, orderID); got != "32.50" {
		t.Fatalf("total_bill after add: got %s, want 32.50", got)
	}
	var lines int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = $1`, orderID).Scan(&lines); err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if lines != 2 {
		t.Fatalf("order lines: got %d, want 2 (repeat add must merge)", lines)
	}

	// --- 6. Kitchen done: pending -> billed, second click fails ---
	doneResp := postJSON(t, server, "/api/order/"+orderID.String()+"/kitchen_done", nil, http.StatusOK)
	if doneResp["success"] != true {
		t.Fatalf("kitchen done: %v", doneResp)
	}
	postJSON(t, server, "/api/order/"+orderID.String()+"/kitchen_done", nil, http.StatusNotFound)

	// Billed orders no longer accept items
	postForm(t, server, "/order/"+orderID.String()+"/add_item", url.Values{
		"menu_item_id": {tehID.String()},
		"quantity":     {"1"},
	}, http.StatusBadRequest)

	// --- 7. Underpayment bounces back without writing anything ---
	loc := postFormLocation(t, server, "/order/"+orderID.String()+"/pay", url.Values{
		"amount": {"32.49"}, "payment_method": {"cash"},
	}, http.StatusSeeOther)
	if loc != "/order/"+orderID.String() {
		t.Fatalf("underpayment redirect: got %s, want back to the order", loc)
	}
	var payments int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE order_id = $1`, orderID).Scan(&payments); err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if payments != 0 {
		t.Fatalf("payments after underpayment: got %d, want 0", payments)
	}

	// --- 8. Overpayment completes the order and records the tendered amount ---
	loc = postFormLocation(t, server, "/order/"+orderID.String()+"/pay", url.Values{
		"amount": {"50.00"}, "payment_method": {"cash"},
	}, http.StatusSeeOther)
	if loc != "/orders" {
		t.Fatalf("payment redirect: got %s, want /orders", loc)
	}

	var status string
	if err := pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&status); err != nil {
		t.Fatalf("get order status: %v", err)
	}
	if status != "completed" {
		t.Fatalf("order status: got %s, want completed", status)
	}

	var amount string
	if err := pool.QueryRow(ctx, `SELECT amount::text FROM payments WHERE order_id = $1`, orderID).Scan(&amount); err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if amount != "50.00" {
		t.Fatalf("payment amount: got %s, want 50.00", amount)
	}

	// A completed order cannot be paid again
	postFormLocation(t, server, "/order/"+orderID.String()+"/pay", url.Values{
		"amount": {"50.00"}, "payment_method": {"cash"},
	}, http.StatusConflict)

	// --- 9. The pending order can be paid straight from pending ---
	postFormLocation(t, server, "/order/"+order2ID.String()+"/pay", url.Values{
		"amount": {"0.00"}, "payment_method": {"card"},
	}, http.StatusSeeOther)
	if err := pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, order2ID).Scan(&status); err != nil {
		t.Fatalf("get order2 status: %v", err)
	}
	if status != "completed" {
		t.Fatalf("order2 status: got %s, want completed", status)
	}

	// --- 10. Completed orders drop off the kitchen feed ---
	feed = getKitchenFeed(t, server)
	if len(feed) != 0 {
		t.Fatalf("kitchen feed after completion: got %d tickets, want 0", len(feed))
	}
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runTestMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this test file's package directory. Go test sets cwd
	// to the package directory.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../db/migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

// --- DB helpers ---

func menuItemID(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	if err := pool.QueryRow(ctx, `SELECT id FROM menu_items WHERE name = $1`, name).Scan(&id); err != nil {
		t.Fatalf("lookup menu item %q: %v", name, err)
	}
	return id
}

func orderTotal(t *testing.T, ctx context.Context, pool *pgxpool.Pool, orderID uuid.UUID) string {
	t.Helper()
	var total string
	if err := pool.QueryRow(ctx, `SELECT total_bill::text FROM orders WHERE id = $1`, orderID).Scan(&total); err != nil {
		t.Fatalf("get order total: %v", err)
	}
	return total
}

// --- HTTP helpers ---

func postJSON(t *testing.T, server *httptest.Server, path string, body interface{}, wantStatus int) map[string]interface{} {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest("POST", server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s: status %d, want %d", path, resp.StatusCode, wantStatus)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func postForm(t *testing.T, server *httptest.Server, path string, form url.Values, wantStatus int) {
	t.Helper()
	postFormLocation(t, server, path, form, wantStatus)
}

func postFormLocation(t *testing.T, server *httptest.Server, path string, form url.Values, wantStatus int) string {
	t.Helper()

	req, err := http.NewRequest("POST", server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := noRedirectClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s: status %d, want %d", path, resp.StatusCode, wantStatus)
	}
	return resp.Header.Get("Location")
}

func getKitchenFeed(t *testing.T, server *httptest.Server) []map[string]interface{} {
	t.Helper()

	resp, err := http.Get(server.URL + "/api/kitchen_orders")
	if err != nil {
		t.Fatalf("GET /api/kitchen_orders: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("kitchen feed: status %d, want 200", resp.StatusCode)
	}

	var feed []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	return feed
}
