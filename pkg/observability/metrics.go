package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Access decision metrics
	AccessDecisionsTotal   *prometheus.CounterVec
	AccessDecisionDuration *prometheus.HistogramVec

	// Quota metrics
	QuotaChecksTotal  *prometheus.CounterVec
	UsageRecordsTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Reconciliation metrics
	ReconcileRunsTotal  *prometheus.CounterVec
	ReconcileDuration   prometheus.Histogram
	ReconcileAggregates prometheus.Gauge

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meridian_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_access_decisions_total",
				Help: "Total number of access decisions by reason",
			},
			[]string{"reason", "allowed"},
		),
		AccessDecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meridian_access_decision_duration_seconds",
				Help:    "Access decision evaluation duration in seconds",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"allowed"},
		),

		QuotaChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_quota_checks_total",
				Help: "Total number of quota checks by metric and resulting state",
			},
			[]string{"metric", "state"},
		),
		UsageRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_usage_records_total",
				Help: "Total number of usage records appended",
			},
			[]string{"metric", "type"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),

		ReconcileRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meridian_reconcile_runs_total",
				Help: "Total number of reconciliation runs",
			},
			[]string{"status"},
		),
		ReconcileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meridian_reconcile_duration_seconds",
				Help:    "Reconciliation sweep duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
			},
		),
		ReconcileAggregates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "meridian_reconcile_aggregates",
				Help: "Number of aggregates recomputed in the last reconciliation",
			},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "meridian_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "meridian_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AccessDecisionsTotal,
		m.AccessDecisionDuration,
		m.QuotaChecksTotal,
		m.UsageRecordsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ReconcileRunsTotal,
		m.ReconcileDuration,
		m.ReconcileAggregates,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// ObserveDecision records an access decision outcome.
func (m *Metrics) ObserveDecision(reason string, allowed bool, duration time.Duration) {
	allowedLabel := strconv.FormatBool(allowed)
	m.AccessDecisionsTotal.WithLabelValues(reason, allowedLabel).Inc()
	m.AccessDecisionDuration.WithLabelValues(allowedLabel).Observe(duration.Seconds())
}

// ObserveQuotaCheck records a quota check outcome.
func (m *Metrics) ObserveQuotaCheck(metric, state string) {
	m.QuotaChecksTotal.WithLabelValues(metric, state).Inc()
}

// UpdateDBStats pushes connection pool stats into the gauges.
func (m *Metrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.DBConnectionsActive.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// MetricsHandler returns the /metrics endpoint handler for the registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
