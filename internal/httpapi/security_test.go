package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Referrer-Policy"))
}

func TestLoginRateLimitReturns429(t *testing.T) {
	h := newTestAPI(t).Handler()

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"admin","password":"wrong-pass"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:5000"
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		if i < 5 {
			require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
		} else {
			require.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	h := newTestAPI(t).Handler()
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"username":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreflightAnsweredWithoutAuth(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := do(t, h, http.MethodOptions, "/api/v1/stock/add", "", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestMetricsEndpointServesMovementCounters(t *testing.T) {
	h := newTestAPI(t).Handler()
	staff := login(t, h, "staff", "staff123")
	require.Equal(t, http.StatusOK,
		do(t, h, http.MethodPost, "/api/v1/stock/add", staff, domain.AddStockRequest{ShopID: 1, ProductID: 1, Quantity: 1}).Code)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "retailhub_")
}

func TestWriteFailureMasksInternalErrors(t *testing.T) {
	api := newTestAPI(t)
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("load stock: %w: %w", store.ErrPersistence, errors.New("connection reset")), http.StatusInternalServerError},
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: bad sku", store.ErrValidation), http.StatusBadRequest},
		{store.ErrDuplicate, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		api.writeFailure(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		if tc.status >= 500 {
			assert.NotContains(t, rec.Body.String(), "connection reset")
			assert.Contains(t, rec.Body.String(), "internal server error")
		}
	}
}

func TestCodeStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, codeStatus(domain.CodeValidation))
	assert.Equal(t, http.StatusNotFound, codeStatus(domain.CodeNotFound))
	assert.Equal(t, http.StatusConflict, codeStatus(domain.CodeInsufficientStock))
	assert.Equal(t, http.StatusConflict, codeStatus(domain.CodeInvalidTransition))
	assert.Equal(t, http.StatusConflict, codeStatus(domain.CodeAlreadyProcessed))
}
