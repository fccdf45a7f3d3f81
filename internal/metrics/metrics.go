// Package metrics provides Prometheus metrics for the webgen server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webgen_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webgen_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Completion metrics
	completionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webgen_completions_total",
			Help: "Total completion calls by provider and result",
		},
		[]string{"provider", "result"},
	)

	completionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webgen_completion_duration_seconds",
			Help:    "Completion call duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	// Project tree metrics
	fileChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webgen_file_changes_total",
			Help: "Files touched by synchronization, by action",
		},
		[]string{"action"},
	)

	editsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webgen_edits_total",
			Help: "Total editor content replacements",
		},
		[]string{"applied"},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webgen_sessions_active",
			Help: "Number of live editing sessions",
		},
	)

	// SSE metrics
	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webgen_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCompletion records one completion call.
func RecordCompletion(provider string, duration time.Duration, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	completionsTotal.WithLabelValues(provider, result).Inc()
	completionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordFileChange records one synchronized file.
func RecordFileChange(action string) {
	fileChangesTotal.WithLabelValues(action).Inc()
}

// RecordEdit records an editor replacement.
func RecordEdit(applied bool) {
	editsTotal.WithLabelValues(strconv.FormatBool(applied)).Inc()
}

// SetSessionsActive sets the live session count.
func SetSessionsActive(count int) {
	sessionsActive.Set(float64(count))
}

// SSEConnected tracks SSE connection lifecycle.
func SSEConnected() {
	sseConnectionsActive.Inc()
}

// SSEDisconnected tracks SSE connection lifecycle.
func SSEDisconnected() {
	sseConnectionsActive.Dec()
}
