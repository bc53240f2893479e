package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for stock movements and core operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	movements *prometheus.CounterVec
	units     *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	drift     prometheus.Gauge
	jobs      *prometheus.CounterVec
}

// New registers the collectors on a private registry, which Handler serves.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retailhub_stock_movements_total",
			Help: "Ledger entries written, by transaction type.",
		}, []string{"type"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retailhub_stock_units_total",
			Help: "Absolute units moved, by transaction type.",
		}, []string{"type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retailhub_operation_failures_total",
			Help: "Rejected or failed operations, by operation and result code.",
		}, []string{"op", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "retailhub_operation_duration_seconds",
			Help:    "Duration of core operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		drift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retailhub_ledger_drift_rows",
			Help: "Stock rows whose quantity disagrees with the ledger at the last reconciliation.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retailhub_jobs_total",
			Help: "Background job runs, by task type and status.",
		}, []string{"task", "status"}),
	}
	registry.MustRegister(m.movements, m.units, m.failures, m.duration, m.drift, m.jobs)
	return m
}

func (m *Metrics) Movement(txType string, delta int64) {
	if m == nil {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.movements.WithLabelValues(txType).Inc()
	m.units.WithLabelValues(txType).Add(float64(delta))
}

func (m *Metrics) Failure(op string, code string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op, code).Inc()
}

// Track observes the time since start. Use as defer m.Track(op, time.Now()).
func (m *Metrics) Track(op string, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Drift(rows int) {
	if m == nil {
		return
	}
	m.drift.Set(float64(rows))
}

// Job counts one background job run and returns err untouched.
func (m *Metrics) Job(task string, err error) error {
	if m == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.jobs.WithLabelValues(task, status).Inc()
	return err
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
