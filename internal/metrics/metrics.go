package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPDurationSeconds *prometheus.HistogramVec
	CacheHitsTotal      *prometheus.CounterVec
	RateLimitedTotal    prometheus.Counter

	// Search metrics
	SearchResults       prometheus.Histogram
	PartsLookupFailures prometheus.Counter

	// Import metrics
	ImportRowsTotal      *prometheus.CounterVec
	DipSwitchImportsRows prometheus.Histogram

	// Reconcile metrics
	ReconcileChangesTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "printerdocs_http_requests_total",
				Help: "Total HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "printerdocs_http_duration_seconds",
				Help:    "HTTP request duration in seconds by route",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"route"},
		),

		CacheHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "printerdocs_cache_requests_total",
				Help: "Response cache lookups by result",
			},
			[]string{"result"}, // result: hit, miss
		),

		RateLimitedTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "printerdocs_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		SearchResults: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "printerdocs_search_results",
				Help:    "Number of error codes returned per search",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),

		PartsLookupFailures: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "printerdocs_parts_lookup_failures_total",
				Help: "Spare-part lookups that failed and were returned empty",
			},
		),

		ImportRowsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "printerdocs_import_rows_total",
				Help: "Imported error-code rows by outcome",
			},
			[]string{"outcome"}, // outcome: upserted, skipped
		),

		DipSwitchImportsRows: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "printerdocs_dipswitch_import_rows",
				Help:    "Rows per DIP-switch replacement",
				Buckets: []float64{0, 8, 32, 128, 512, 2048},
			},
		),

		ReconcileChangesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "printerdocs_reconcile_changes_total",
				Help: "Rows changed by reconciliation by action",
			},
			[]string{"action"}, // action: printer_created, printer_merged, code_moved, code_dropped, starred_deleted, dip_renamed, dip_deleted
		),
	}
}

// RecordHTTP records a served request
func (m *Metrics) RecordHTTP(route, method, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPDurationSeconds.WithLabelValues(route).Observe(duration)
}

// RecordCache records a response cache lookup
func (m *Metrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheHitsTotal.WithLabelValues(result).Inc()
}

// RecordRateLimited records a request dropped by the rate limiter
func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

// RecordSearch records the size of a search result
func (m *Metrics) RecordSearch(results int) {
	m.SearchResults.Observe(float64(results))
}

// RecordPartsLookupFailure records a degraded parts lookup
func (m *Metrics) RecordPartsLookupFailure() {
	m.PartsLookupFailures.Inc()
}

// RecordImport records the row outcomes of one import
func (m *Metrics) RecordImport(upserted, skipped int) {
	m.ImportRowsTotal.WithLabelValues("upserted").Add(float64(upserted))
	m.ImportRowsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordDipSwitchImport records the size of a DIP-switch replacement
func (m *Metrics) RecordDipSwitchImport(rows int) {
	m.DipSwitchImportsRows.Observe(float64(rows))
}

// RecordReconcile adds n changes of the given action
func (m *Metrics) RecordReconcile(action string, n int64) {
	if n > 0 {
		m.ReconcileChangesTotal.WithLabelValues(action).Add(float64(n))
	}
}
