// Package metrics collects and exposes Prometheus metrics for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers request and prediction metrics.
type Collector struct {
	httpStatus  *prometheus.CounterVec
	httpLatency prometheus.Histogram
	predictions *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aquasense_http_status_total",
			Help: "Responses by HTTP status code",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aquasense_http_latency_seconds",
			Help:    "Request handling latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aquasense_predictions_total",
			Help: "Prediction requests by model variant and outcome",
		}, []string{"variant", "outcome"}),
	}

	reg.MustRegister(c.httpStatus, c.httpLatency, c.predictions)
	return c
}

// RecordHTTPStatus counts a response status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLatency observes how long a request took.
func (c *Collector) RecordLatency(d time.Duration) {
	c.httpLatency.Observe(d.Seconds())
}

// RecordPrediction counts a prediction attempt. outcome is one of
// "ok", "validation_error", "not_loaded", "error".
func (c *Collector) RecordPrediction(variant, outcome string) {
	c.predictions.WithLabelValues(variant, outcome).Inc()
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Middleware records status and latency for every request.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.RecordHTTPStatus(rec.status)
		c.RecordLatency(time.Since(start))
	})
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
