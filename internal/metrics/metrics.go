// Package metrics exposes Prometheus instrumentation for the coverage
// analysis engine and its HTTP surface.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "covergo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "covergo_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	analysisRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "covergo_analysis_runs_total",
			Help: "Completed coverage analysis runs by execution mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "covergo_analysis_duration_seconds",
			Help:    "Wall-clock duration of coverage analysis runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	satellitesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "covergo_satellites_skipped_total",
			Help: "Element sets skipped because SGP4 initialization failed.",
		},
	)

	evaluationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "covergo_evaluation_errors_total",
			Help: "Per-instant propagation or transform failures treated as not visible.",
		},
	)

	schedulerFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "covergo_scheduler_fallbacks_total",
			Help: "Parallel runs demoted to sequential execution.",
		},
	)

	catalogSets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "covergo_catalog_element_sets",
			Help: "Element sets in the currently loaded catalog.",
		},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "covergo_catalog_age_seconds",
			Help: "Age of the currently loaded catalog.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		analysisRunsTotal,
		analysisDurationSeconds,
		satellitesSkippedTotal,
		evaluationErrorsTotal,
		schedulerFallbacksTotal,
		catalogSets,
		catalogAgeSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAnalysis records one finished analysis run.
func RecordAnalysis(mode, outcome string, duration time.Duration) {
	analysisRunsTotal.WithLabelValues(mode, outcome).Inc()
	analysisDurationSeconds.Observe(duration.Seconds())
}

// AddSkippedSatellites counts element sets dropped at ephemeris construction.
func AddSkippedSatellites(n int) {
	satellitesSkippedTotal.Add(float64(n))
}

// IncEvaluationErrors counts one per-(satellite, instant) evaluation failure.
func IncEvaluationErrors() {
	evaluationErrorsTotal.Inc()
}

// IncSchedulerFallback counts one parallel-to-sequential demotion.
func IncSchedulerFallback() {
	schedulerFallbacksTotal.Inc()
}

// SetCatalogSets publishes the size of the loaded catalog.
func SetCatalogSets(n int) {
	catalogSets.Set(float64(n))
}

// SetCatalogAge publishes the age of the loaded catalog in seconds.
func SetCatalogAge(seconds float64) {
	catalogAgeSeconds.Set(seconds)
}

// ObserveHTTP records one HTTP request. The path should already be a route
// template, not a raw URL, to keep label cardinality bounded.
func ObserveHTTP(path, method, code string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(normalizeRoute(path), method, code).Inc()
	httpDurationSeconds.WithLabelValues(normalizeRoute(path), method).Observe(duration.Seconds())
}

// knownRoutes are the exact paths the service serves.
var knownRoutes = map[string]bool{
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/api/v1/stats":    true,
	"/api/v1/analysis": true,
}

// knownPrefixes collapse parameterized routes to a single label.
var knownPrefixes = []struct {
	prefix string
	label  string
}{
	{"/api/v1/analysis/", "/api/v1/analysis/{id}"},
}

// normalizeRoute maps a request path to a bounded set of metric labels.
// Unknown paths (bots, scanners) collapse to "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	for _, p := range knownPrefixes {
		if strings.HasPrefix(path, p.prefix) {
			return p.label
		}
	}
	return "other"
}
