package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry           *prometheus.Registry
	jobsTotal          *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
	activeJobs         prometheus.Gauge
	pagesExportedTotal *prometheus.CounterVec
	inputBytesTotal    prometheus.Counter
	outputBytesTotal   *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactkit_worker_jobs_total",
			Help: "Total export jobs by source type, format and final status.",
		}, []string{"source_type", "format", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "artifactkit_worker_job_duration_seconds",
			Help:    "Total processing duration for each export job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source_type", "format", "status"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "artifactkit_worker_active_jobs",
			Help: "Current number of export jobs being processed.",
		}),
		pagesExportedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactkit_worker_pages_exported_total",
			Help: "Pages or archive entries written by successful jobs.",
		}, []string{"format"}),
		inputBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artifactkit_worker_input_bytes_total",
			Help: "Source bytes read by successful jobs.",
		}),
		outputBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactkit_worker_output_bytes_total",
			Help: "Output bytes written by successful jobs.",
		}, []string{"format"}),
	}

	registry.MustRegister(
		m.jobsTotal,
		m.jobDuration,
		m.activeJobs,
		m.pagesExportedTotal,
		m.inputBytesTotal,
		m.outputBytesTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
