package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizeRuns counts optimizations by seed heuristic and feasibility
	OptimizeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cacheplan_optimize_runs_total", Help: "Optimization runs by seed heuristic and validity."},
		[]string{"seed_heuristic", "valid"},
	)
	// OptimizeScore is the final score of the most recent run per source
	OptimizeScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "cacheplan_optimize_score", Help: "Final score of the latest run."},
		[]string{"source"},
	)
	// SearchImprovements counts accepted local search moves
	SearchImprovements = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cacheplan_search_improvements_total", Help: "Accepted local search candidates by operator."},
		[]string{"operator"},
	)
	// OptimizeDuration records wall time of a full optimization in seconds
	OptimizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cacheplan_optimize_duration_seconds", Help: "Optimization duration in seconds.", Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60}},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizeRuns)
		Registry.MustRegister(OptimizeScore)
		Registry.MustRegister(SearchImprovements)
		Registry.MustRegister(OptimizeDuration)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
