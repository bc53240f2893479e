package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/backend/internal/alerts"
	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/metrics"
	"retailhub/backend/internal/service"
	"retailhub/backend/internal/store/memory"
)

// newTestAPI wires the real service and auth manager over a seeded
// in-memory store so requests run the complete path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded(nil)
	m := metrics.New()
	svc := service.New(repo, alerts.NewEngine(nil, 0), service.WithMetrics(m))
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, Options{AllowedOrigin: "*", LoginRateLimit: 5, Metrics: m})
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp domain.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHandleHealth(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])
}

func TestHandleLogin(t *testing.T) {
	h := newTestAPI(t).Handler()

	login(t, h, "admin", "admin123")

	rec := do(t, h, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrongpassword"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestAPI(t).Handler()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/v1/products", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/v1/products", "not-a-jwt", nil).Code)
}

func TestCatalogReadsAndAdminWrites(t *testing.T) {
	h := newTestAPI(t).Handler()
	cashier := login(t, h, "cashier", "staff123")
	admin := login(t, h, "admin", "admin123")

	rec := do(t, h, http.MethodGet, "/api/v1/products", cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["products"], 5)

	req := domain.ProductCreateRequest{SKU: "SKU-NEW-1", Name: "Flour 1kg"}
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/api/v1/products", cashier, req).Code)
	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/products", admin, req).Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/v1/products", admin, req).Code)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/shops/99", admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/shops/abc", admin, nil).Code)
}

func TestStockMovementRoleGates(t *testing.T) {
	h := newTestAPI(t).Handler()
	cashier := login(t, h, "cashier", "staff123")
	staff := login(t, h, "staff", "staff123")
	manager := login(t, h, "manager", "staff123")

	add := domain.AddStockRequest{ShopID: 1, ProductID: 1, Quantity: 5}
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/api/v1/stock/add", cashier, add).Code)

	rec := do(t, h, http.MethodPost, "/api/v1/stock/add", staff, add)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res domain.StockResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Success)
	require.NotNil(t, res.Stock)
	assert.Equal(t, int64(45), res.Stock.Quantity)

	adjust := domain.AdjustStockRequest{ShopID: 1, ProductID: 1, Quantity: 30, Notes: "count"}
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/api/v1/stock/adjust", staff, adjust).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/stock/adjust", manager, adjust).Code)

	rec = do(t, h, http.MethodPost, "/api/v1/stock/reduce", staff, domain.ReduceStockRequest{ShopID: 1, ProductID: 1, Quantity: 31})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.CodeInsufficientStock, decodeBody(t, rec)["code"])
}

func TestStockListingAndLedger(t *testing.T) {
	h := newTestAPI(t).Handler()
	staff := login(t, h, "staff", "staff123")

	rec := do(t, h, http.MethodGet, "/api/v1/stock?shop_id=2&limit=2", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["stock"], 2)
	page := body["pagination"].(map[string]any)
	assert.EqualValues(t, 5, page["total"])

	rec = do(t, h, http.MethodGet, "/api/v1/stock/shops/1/products/2", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/stock/transactions?shop_id=1&type=purchase", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["transactions"], 5)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/stock?shop_id=x", staff, nil).Code)
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	h := newTestAPI(t).Handler()
	cashier := login(t, h, "cashier", "staff123")
	manager := login(t, h, "manager", "staff123")

	sale := domain.SaleCreateRequest{
		ShopID: 1,
		Items:  []domain.SaleItemRequest{{ProductID: 2, Quantity: 3, UnitPrice: decimal.NewFromInt(5)}},
	}
	rec := do(t, h, http.MethodPost, "/api/v1/sales", cashier, sale)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.SaleResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.True(t, created.Success)
	assert.True(t, created.TotalAmount.Equal(decimal.NewFromInt(15)))

	path := "/api/v1/sales/" + jsonID(created.SaleID) + "/cancel"
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, path, cashier, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, path, manager, nil).Code)

	rec = do(t, h, http.MethodPost, path, manager, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.CodeNotCancellable, decodeBody(t, rec)["code"])
}

func TestSaleRejectsShortStockAndBadPayload(t *testing.T) {
	h := newTestAPI(t).Handler()
	cashier := login(t, h, "cashier", "staff123")

	rec := do(t, h, http.MethodPost, "/api/v1/sales", cashier, domain.SaleCreateRequest{
		ShopID: 2,
		Items:  []domain.SaleItemRequest{{ProductID: 1, Quantity: 1000, UnitPrice: decimal.NewFromInt(5)}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.CodeInsufficientStock, decodeBody(t, rec)["code"])

	rec = do(t, h, http.MethodPost, "/api/v1/sales", cashier, map[string]any{"shop_id": 1, "items": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/sales", cashier, map[string]any{"shop_id": 1, "bogus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuotationsAreManagerOnly(t *testing.T) {
	h := newTestAPI(t).Handler()
	staff := login(t, h, "staff", "staff123")
	manager := login(t, h, "manager", "staff123")

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/api/v1/quotations", staff, nil).Code)

	rec := do(t, h, http.MethodGet, "/api/v1/quotations", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "quotations")
}

func TestLowStockAlertsAndReconcile(t *testing.T) {
	h := newTestAPI(t).Handler()
	staff := login(t, h, "staff", "staff123")
	admin := login(t, h, "admin", "admin123")

	rec := do(t, h, http.MethodGet, "/api/v1/alerts/low-stock?shop_id=2", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.AlertReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.NotEmpty(t, report.Alerts)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/alerts/low-stock?level=severe", staff, nil).Code)

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/api/v1/ledger/reconcile", staff, nil).Code)
	rec = do(t, h, http.MethodGet, "/api/v1/ledger/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recon domain.ReconcileReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&recon))
	assert.Empty(t, recon.Drifts)
}

func jsonID(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
