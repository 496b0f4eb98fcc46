package api

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is created before the toolbox so tool outcomes can be observed.
type Metrics struct {
	registry          *prometheus.Registry
	requestTotal      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	rateLimitRejected *prometheus.CounterVec
	queueEnqueued     *prometheus.CounterVec
	toolOperations    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactkit_api_requests_total",
			Help: "Total HTTP requests handled by the API.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "artifactkit_api_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactkit_api_rate_limit_rejections_total",
			Help: "Total API requests rejected by rate limiting.",
		}, []string{"route"}),
		queueEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactkit_queue_jobs_enqueued_total",
			Help: "Total export jobs enqueued to the processing queue.",
		}, []string{"queue"}),
		toolOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactkit_tool_operations_total",
			Help: "Tool operations by tool and outcome.",
		}, []string{"tool", "outcome"}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.rateLimitRejected,
		m.queueEnqueued,
		m.toolOperations,
	)
	return m
}

// ObserveTool matches tools.Deps.Observe.
func (m *Metrics) ObserveTool(tool string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.toolOperations.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) metricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := routeLabel(r.URL.Path)
		status := statusLabel(recorder.status)

		m.requestTotal.WithLabelValues(r.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}

// routeLabel collapses path parameters so label cardinality stays bounded.
func routeLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "jobs" && parts[3] == "start":
		return "/v1/jobs/{id}/start"
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "jobs":
		return "/v1/jobs/{id}"
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "history":
		return "/v1/history/{collection}/{id}"
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "history":
		return "/v1/history/{collection}"
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "notes":
		return "/v1/notes/{site}"
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "notifications":
		return "/v1/notifications/{id}"
	case len(parts) <= 3 && (parts[0] == "v1" || parts[0] == "healthz" || parts[0] == "metrics"):
		return "/" + strings.Join(parts, "/")
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets the preview websocket upgrade through the middleware chain.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}
