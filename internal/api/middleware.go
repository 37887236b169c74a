package api

import (
	"bufio"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cacheplan/internal/metrics"
)

// Handler wires every route behind rate limiting and request metrics.
func (s *Server) Handler() http.Handler {
	metrics.RegisterDefault()
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/optimize", s.OptimizeHandler)
	mux.HandleFunc("/v1/optimizer/config", s.OptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/search-metrics", s.SearchMetricsHandler)

	mux.HandleFunc("/v1/runs", s.RunsHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /submission
	mux.HandleFunc("/v1/runs/stream", s.RunStreamHandler)

	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/debug/vars", s.DebugJSON)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return s.instrument(s.rateLimit(mux))
}

// rateLimit rejects /v1 traffic beyond the configured rate with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) >= 4 && r.URL.Path[:4] == "/v1/" && !s.limiter.Allow() {
			res := s.limiter.Reserve()
			delay := res.Delay()
			res.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack lets the websocket upgrade reach the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
