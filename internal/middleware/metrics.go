package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wen_tracker_analyses_total",
		Help: "Total number of analysis cycles executed",
	}, []string{"mode", "status"})

	messagesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wen_tracker_messages_analyzed_total",
		Help: "Total number of messages run through the classifier",
	})

	occurrencesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wen_tracker_occurrences_total",
		Help: "Total number of WEN occurrences counted",
	})

	lastOccurrenceCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wen_tracker_last_occurrence_count",
		Help: "WEN occurrence count of the most recent analysis",
	})

	// Upstream metrics
	upstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wen_tracker_upstream_errors_total",
		Help: "Total number of failed upstream requests",
	}, []string{"mode"})

	// HTTP metrics
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wen_tracker_http_request_duration_seconds",
		Help:    "Duration of API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wen_tracker_cache_hits_total",
		Help: "Total number of summary cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wen_tracker_cache_misses_total",
		Help: "Total number of summary cache misses",
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wen_tracker_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"client"})

	// Monitor metrics
	monitorCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wen_tracker_monitor_cycles_total",
		Help: "Total number of monitor cycles",
	}, []string{"status"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordAnalysis records one completed pipeline run
func (m *Metrics) RecordAnalysis(mode, status string, messagesSeen, occurrences int) {
	analysesTotal.WithLabelValues(mode, status).Inc()
	if status == "success" {
		messagesAnalyzed.Add(float64(messagesSeen))
		occurrencesFound.Add(float64(occurrences))
		lastOccurrenceCount.Set(float64(occurrences))
	}
}

// RecordUpstreamError records a failed upstream request
func (m *Metrics) RecordUpstreamError(mode string) {
	upstreamErrors.WithLabelValues(mode).Inc()
}

// RecordHTTPRequest records an API request
func (m *Metrics) RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	httpRequestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

// RecordCacheHit records a summary cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a summary cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded(client string) {
	rateLimitExceeded.WithLabelValues(client).Inc()
}

// RecordMonitorCycle records one monitor loop iteration
func (m *Metrics) RecordMonitorCycle(status string) {
	monitorCycles.WithLabelValues(status).Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
