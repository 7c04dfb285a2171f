// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Collector metrics
	TradesStored      *prometheus.CounterVec
	DuplicatesSkipped *prometheus.CounterVec
	CollectErrors     *prometheus.CounterVec

	// Cycle search metrics
	CyclesEvaluated   *prometheus.CounterVec
	CyclesFound       *prometheus.CounterVec
	EvaluationErrors  *prometheus.CounterVec
	EvaluationLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tradecycle"
	}

	return &Metrics{
		TradesStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "trades_stored_total",
			Help:      "Total number of trades stored by pair",
		}, []string{"pair"}),
		DuplicatesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of duplicate trades skipped on insert",
		}, []string{"pair"}),
		CollectErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "errors_total",
			Help:      "Total number of trade collection errors by pair",
		}, []string{"pair"}),

		CyclesEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycles",
			Name:      "evaluated_total",
			Help:      "Total number of cycle evaluations by exchange",
		}, []string{"exchange"}),
		CyclesFound: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycles",
			Name:      "found_total",
			Help:      "Total number of profitable cycles found by exchange",
		}, []string{"exchange"}),
		EvaluationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycles",
			Name:      "evaluation_errors_total",
			Help:      "Total number of failed cycle evaluations by exchange",
		}, []string{"exchange"}),
		EvaluationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycles",
			Name:      "evaluation_latency_seconds",
			Help:      "Cycle evaluation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"exchange"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTradesStored records stored trades and skipped duplicates for a
// pair.
func RecordTradesStored(pair string, stored, duplicates int) {
	DefaultMetrics.TradesStored.WithLabelValues(pair).Add(float64(stored))
	DefaultMetrics.DuplicatesSkipped.WithLabelValues(pair).Add(float64(duplicates))
}

// RecordCollectError records a trade collection error for a pair.
func RecordCollectError(pair string) {
	DefaultMetrics.CollectErrors.WithLabelValues(pair).Inc()
}

// RecordCycleEvaluated records one cycle evaluation and its latency.
func RecordCycleEvaluated(exchange string, seconds float64) {
	DefaultMetrics.CyclesEvaluated.WithLabelValues(exchange).Inc()
	DefaultMetrics.EvaluationLatency.WithLabelValues(exchange).Observe(seconds)
}

// RecordCycleFound records a profitable cycle.
func RecordCycleFound(exchange string) {
	DefaultMetrics.CyclesFound.WithLabelValues(exchange).Inc()
}

// RecordEvaluationError records a failed cycle evaluation.
func RecordEvaluationError(exchange string) {
	DefaultMetrics.EvaluationErrors.WithLabelValues(exchange).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
