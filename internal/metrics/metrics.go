// Package metrics provides Prometheus metrics for the plugin forge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the forge.
type Metrics struct {
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	StreamEventsTotal  *prometheus.CounterVec
	PatchesTotal       *prometheus.CounterVec
	JobsActive         prometheus.Gauge
	ErrorsTotal        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_generations_total",
				Help: "Total number of generation requests by mode and status.",
			},
			[]string{"mode", "status"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forge_generation_duration_seconds",
				Help:    "Generation duration by mode.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		StreamEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_stream_events_total",
				Help: "Total streamed generation events by event type.",
			},
			[]string{"type"},
		),
		PatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_patches_total",
				Help: "Total files changed by patch kind (fix or update).",
			},
			[]string{"kind"},
		),
		JobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "forge_jobs_active",
				Help: "Number of background generation jobs currently running.",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.GenerationsTotal)
	reg.MustRegister(m.GenerationDuration)
	reg.MustRegister(m.StreamEventsTotal)
	reg.MustRegister(m.PatchesTotal)
	reg.MustRegister(m.JobsActive)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordGeneration increments the generation counter.
func (m *Metrics) RecordGeneration(mode, status string) {
	m.GenerationsTotal.WithLabelValues(mode, status).Inc()
}

// ObserveGeneration records a generation duration in seconds.
func (m *Metrics) ObserveGeneration(mode string, seconds float64) {
	m.GenerationDuration.WithLabelValues(mode).Observe(seconds)
}

// RecordStreamEvent increments the stream event counter.
func (m *Metrics) RecordStreamEvent(eventType string) {
	m.StreamEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordPatches adds n changed files for the given patch kind.
func (m *Metrics) RecordPatches(kind string, n int) {
	m.PatchesTotal.WithLabelValues(kind).Add(float64(n))
}

// JobStarted increments the active jobs gauge.
func (m *Metrics) JobStarted() { m.JobsActive.Inc() }

// JobFinished decrements the active jobs gauge.
func (m *Metrics) JobFinished() { m.JobsActive.Dec() }

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
