package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastopro/internal/core"
	"gastopro/internal/export"
	"gastopro/internal/log"
	"gastopro/internal/services"
	"gastopro/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	logger := log.New(log.Config{Level: slog.LevelError, Component: log.ComponentHTTP})

	srv := NewServer(":0", Deps{
		Store:        store,
		Transactions: services.NewTransactionService(store, nil, logger),
		Recurring:    services.NewRecurringService(store, logger),
		Assistant:    services.NewAssistant(store, logger),
		Exporter:     export.NewService(store, logger),
		Logger:       logger,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, store
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateListDeleteTransaction(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date":      "2025-06-10",
		"type":      "expense",
		"category":  "alimentos",
		"note":      "almuerzo",
		"amount":    12500,
		"accountId": "debit",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(12500), created.Amount.Cents)

	rec = do(t, srv, http.MethodGet, "/api/transactions?year=2025&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	rec = do(t, srv, http.MethodGet, "/api/transactions?type=income", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed)

	rec = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTransactionRejectsBadPayloads(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []map[string]any{
		{"date": "2025-06-10", "type": "refund", "category": "otros", "amount": 100},
		{"date": "2025-06-10", "type": "expense", "category": "", "amount": 100},
		{"date": "2025-06-10", "type": "expense", "category": "otros", "amount": 0},
		{"date": "10/06/2025", "type": "expense", "category": "otros", "amount": 100},
	}
	for i, payload := range cases {
		rec := do(t, srv, http.MethodPost, "/api/transactions", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "case %d: %s", i, rec.Body.String())
	}
}

func TestTransferEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"date": "2025-06-10", "fromAccountId": "cash", "toAccountId": "debit", "amount": 20000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var legs []core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &legs))
	require.Len(t, legs, 2)
	assert.True(t, legs[0].IsTransfer())

	rec = do(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"date": "2025-06-10", "fromAccountId": "cash", "toAccountId": "cash", "amount": 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/accounts", nil)
	var accounts []core.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 3)

	rec = do(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Ahorro UF"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created core.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, srv, http.MethodPut, "/api/accounts/"+created.ID, map[string]any{"name": "Ahorro CLP"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/accounts/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// An account holding transactions cannot be removed.
	rec = do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2025-06-10", "type": "expense", "category": "otros", "amount": 100, "accountId": "cash",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/accounts/cash", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBudgetEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPut, "/api/budgets", map[string]any{
		"category": "alimentos", "limit": 100000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/budgets", nil)
	var budgets map[string]core.Money
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &budgets))
	assert.Equal(t, int64(100000), budgets["alimentos"].Cents)

	rec = do(t, srv, http.MethodPut, "/api/budgets", map[string]any{"category": "", "limit": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoalAndDepositEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/goals", map[string]any{
		"name": "Vacaciones", "target": 500000, "emoji": "🏖️",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var goal core.SavingsGoal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &goal))

	rec = do(t, srv, http.MethodPost, fmt.Sprintf("/api/goals/%s/deposit", goal.ID), map[string]any{
		"date": "2025-06-10", "amount": 30000, "accountId": "debit",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dep depositResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dep))
	assert.Equal(t, int64(30000), dep.Goal.Balance.Cents)
	assert.Equal(t, core.CategoryAhorro, dep.Transaction.Category)

	rec = do(t, srv, http.MethodPost, "/api/goals/no-such-goal/deposit", map[string]any{
		"date": "2025-06-10", "amount": 100,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/goals/"+goal.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTemplateEndpointsAndDashboardMaterialization(t *testing.T) {
	srv, store := newTestServer(t)

	// Warm the cache first: creating a template must purge it, or the
	// next render serves the empty month for the whole TTL.
	rec := do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/templates", map[string]any{
		"type": "expense", "category": "vivienda", "amount": 45000000, "note": "Arriendo", "accountId": "debit",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dash DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, int64(45000000), dash.Totals.Expense.Cents, "the template materialized before summarizing")

	txs, _ := store.ListTransactions(context.Background())
	require.Len(t, txs, 1)
	assert.Equal(t, "2025-06-01", txs[0].Date.String())

	// A second render must not duplicate the materialized row.
	rec = do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	txs, _ = store.ListTransactions(context.Background())
	assert.Len(t, txs, 1)
}

func TestDashboardReflectsWritesImmediately(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Zero(t, dash.Totals.Expense.Cents)

	rec = do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2025-06-10", "type": "expense", "category": "alimentos", "amount": 5000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=6", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, int64(5000), dash.Totals.Expense.Cents, "writes purge the dashboard cache")
	assert.Len(t, dash.Trend, 6)
	assert.Len(t, dash.Budgets, len(core.SpendCategories()))
	assert.Len(t, dash.Balances, 3)
}

func TestFXEndpointWithoutClient(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/fx", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp fxResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Live)
	assert.Equal(t, 0.001, resp.Rates.USD)
	assert.Equal(t, 0.0009, resp.Rates.EUR)
}

func TestPreferenceEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	// Unset seeded keys fall back to defaults.
	rec := do(t, srv, http.MethodGet, "/api/preferences?key=catIcons", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var icons map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &icons))
	assert.NotEmpty(t, icons[core.CategoryAlimentos])

	rec = do(t, srv, http.MethodPut, "/api/preferences", map[string]any{
		"key": "catIcons", "value": map[string]string{"alimentos": "🌮"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/preferences?key=catIcons", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &icons))
	assert.Equal(t, "🌮", icons["alimentos"])

	rec = do(t, srv, http.MethodGet, "/api/preferences?key=unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/preferences", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportAndImportEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2025-06-10", "type": "expense", "category": "alimentos", "amount": 5000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/export/json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "gastopro-export.json")
	exported := rec.Body.Bytes()

	rec = do(t, srv, http.MethodGet, "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "id,type,category,amount,date,note,tags,accountId")

	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(exported))
	req.RemoteAddr = "127.0.0.1:12345"
	rec2 := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusOK, rec2.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader([]byte(`[]`)))
	req.RemoteAddr = "127.0.0.1:12345"
	rec2 = httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestAssistantEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/assistant", map[string]any{"prompt": "resumen del mes"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Reply, "Este mes")

	rec = do(t, srv, http.MethodGet, "/api/assistant", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs []services.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 2)

	rec = do(t, srv, http.MethodPost, "/api/assistant", map[string]any{"prompt": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/accounts", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Contains(t, metrics, "rate_limit_hits")
	assert.Contains(t, metrics, "suspicious_requests")
}
