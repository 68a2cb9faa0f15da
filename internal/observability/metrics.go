package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the portal.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	revocations      prometheus.Counter
	partialResults   prometheus.Counter
}

// NewMetrics initialises the registry and the portal collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medportal_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medportal_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medportal_upstream_requests_total",
		Help: "Gateway calls by endpoint and status. Status 0 means no response.",
	}, []string{"endpoint", "code"})
	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medportal_upstream_request_duration_seconds",
		Help:    "Gateway call duration per endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	revocations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medportal_session_revocations_total",
		Help: "Sessions cleared because the gateway rejected their token.",
	})
	partial := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medportal_permission_partial_results_total",
		Help: "Permission aggregations that could not load every role.",
	})
	registry.MustRegister(
		requests, duration, upstream, upstreamDuration, revocations, partial,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		upstreamTotal:    upstream,
		upstreamDuration: upstreamDuration,
		revocations:      revocations,
		partialResults:   partial,
	}
}

// Handler returns the http.Handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveUpstream records one gateway call.
func (m *Metrics) ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.upstreamDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveRevocation counts a forced sign-out.
func (m *Metrics) ObserveRevocation() {
	if m == nil {
		return
	}
	m.revocations.Inc()
}

// ObservePartialPermissions counts a degraded permission aggregation.
func (m *Metrics) ObservePartialPermissions() {
	if m == nil {
		return
	}
	m.partialResults.Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
