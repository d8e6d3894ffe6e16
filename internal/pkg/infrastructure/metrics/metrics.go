package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	registry  *prometheus.Registry
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

// NewServerMetrics registers the request metrics in a registry of their own
// so that several servers can coexist in one process (i.e. in tests)
func NewServerMetrics() *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gateway",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests per resource and operation.",
	}, []string{"resource", "operation", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gateway",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"resource", "operation"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		requests,
		latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &ServerMetrics{registry: registry, Requests: requests, LatencyMS: latency}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ServerMetrics) Observe(resource, operation string, status int, elapsed time.Duration) {
	m.Requests.WithLabelValues(resource, operation, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(resource, operation).Observe(float64(elapsed.Milliseconds()))
}

// Instrument wraps next so that every request is counted and timed. A nil
// receiver returns next unchanged.
func (m *ServerMetrics) Instrument(resource, operation string, next http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.Observe(resource, operation, status, time.Since(start))
	}
}
