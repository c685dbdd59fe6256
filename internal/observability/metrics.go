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
	// Forecast metrics
	ForecastRequests *prometheus.CounterVec
	ForecastDuration *prometheus.HistogramVec
	ForecastSteps    prometheus.Counter
	UnknownEncodings prometheus.Counter

	// Artifact metrics
	ArtifactResolutions *prometheus.CounterVec
	ArtifactTier        *prometheus.GaugeVec
	ResolveDuration     prometheus.Histogram

	// History metrics
	HistorySourceErrors *prometheus.CounterVec
	HistoryRecords      prometheus.Gauge

	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	RateLimited  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Ingestion metrics
	RecordsIngested *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "demand_forecast"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		ForecastRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "requests_total",
			Help:      "Total number of forecast requests by tier and status",
		}, []string{"tier", "status"}),
		ForecastDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "duration_seconds",
			Help:      "Autoregressive forecast duration in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"tier"}),
		ForecastSteps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "steps_total",
			Help:      "Total number of forecast steps predicted",
		}),
		UnknownEncodings: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "unknown_product_encodings_total",
			Help:      "Forecasts for products the encoder was not fit on",
		}),

		ArtifactResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifact",
			Name:      "resolutions_total",
			Help:      "Artifact resolutions by tier and status",
		}, []string{"tier", "status"}),
		ArtifactTier: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "artifact",
			Name:      "active",
			Help:      "1 for the tier of the published artifact",
		}, []string{"tier"}),
		ResolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "artifact",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving the artifact",
			Buckets:   prometheus.DefBuckets,
		}),

		HistorySourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "source_errors_total",
			Help:      "History source failures by source",
		}, []string{"source"}),
		HistoryRecords: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "records",
			Help:      "Number of demand records held by the published artifact",
		}),

		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Forecast cache lookups by backend and result",
		}, []string{"backend", "result"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		RecordsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_total",
			Help:      "Demand records written by target store",
		}, []string{"store"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordForecast records one completed or failed forecast request.
func RecordForecast(tier, status string, seconds float64, steps int) {
	DefaultMetrics.ForecastRequests.WithLabelValues(tier, status).Inc()
	if status == "success" {
		DefaultMetrics.ForecastDuration.WithLabelValues(tier).Observe(seconds)
		DefaultMetrics.ForecastSteps.Add(float64(steps))
	}
}

// RecordUnknownEncoding counts a forecast that fell back to the default product code.
func RecordUnknownEncoding() {
	DefaultMetrics.UnknownEncodings.Inc()
}

// RecordResolution records an artifact resolution attempt.
// On success the active tier gauge is moved to tier.
func RecordResolution(tier, status string, seconds float64, records int) {
	DefaultMetrics.ArtifactResolutions.WithLabelValues(tier, status).Inc()
	DefaultMetrics.ResolveDuration.Observe(seconds)
	if status != "success" {
		return
	}
	for _, t := range []string{"tuned", "base", "fallback"} {
		v := 0.0
		if t == tier {
			v = 1
		}
		DefaultMetrics.ArtifactTier.WithLabelValues(t).Set(v)
	}
	DefaultMetrics.HistoryRecords.Set(float64(records))
}

// RecordHistorySourceError counts a failed history source.
func RecordHistorySourceError(source string) {
	DefaultMetrics.HistorySourceErrors.WithLabelValues(source).Inc()
}

// RecordCache records a cache lookup.
func RecordCache(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheRequests.WithLabelValues(backend, result).Inc()
}

// RecordHTTPRequest records a served request.
func RecordHTTPRequest(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}

// RecordRateLimited counts a rejected request.
func RecordRateLimited() {
	DefaultMetrics.RateLimited.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordIngested counts records written to a store.
func RecordIngested(store string, n int) {
	DefaultMetrics.RecordsIngested.WithLabelValues(store).Add(float64(n))
}
