package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovementCountsEntriesAndUnits(t *testing.T) {
	m := New()
	m.Movement("sale", -3)
	m.Movement("sale", -2)
	m.Movement("purchase", 10)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.movements.WithLabelValues("sale")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.units.WithLabelValues("sale")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.units.WithLabelValues("purchase")))
}

func TestFailureDriftAndJob(t *testing.T) {
	m := New()
	m.Failure("reduce_stock", "insufficient_stock")
	m.Drift(3)
	err := m.Job("ledger:reconcile", errors.New("boom"))
	require.Error(t, err)
	require.NoError(t, m.Job("ledger:reconcile", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("reduce_stock", "insufficient_stock")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.drift))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("ledger:reconcile", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("ledger:reconcile", "success")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Movement("sale", 1)
	m.Failure("op", "code")
	m.Track("op", time.Now())
	m.Drift(1)
	assert.NoError(t, m.Job("task", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Movement("adjustment", 4)
	m.Track("adjust_stock", time.Now())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "retailhub_stock_movements_total")
	assert.Contains(t, rec.Body.String(), "retailhub_operation_duration_seconds")
}
