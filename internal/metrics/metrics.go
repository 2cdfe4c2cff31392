// Package metrics exposes Prometheus counters for uploads, decode failures,
// export fallbacks and model calls. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsight"

type Metrics struct {
	registry *prometheus.Registry

	uploads         *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	exportFallbacks *prometheus.CounterVec
	llmCalls        *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Documents decoded successfully, by format.",
		}, []string{"format"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Uploads rejected, by format and error kind.",
		}, []string{"format", "kind"}),
		exportFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_fallbacks_total",
			Help:      "Exports that returned a fallback error document, by kind.",
		}, []string{"kind"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Language model calls, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Language model call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.uploads,
		m.decodeFailures,
		m.exportFallbacks,
		m.llmCalls,
		m.llmLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Upload(format string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(format).Inc()
}

// DecodeFailure counts a rejected upload. kind is "decode" or "validation".
func (m *Metrics) DecodeFailure(format, kind string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(format, kind).Inc()
}

func (m *Metrics) ExportFallback(kind string) {
	if m == nil {
		return
	}
	m.exportFallbacks.WithLabelValues(kind).Inc()
}

// LLMCall records one model call. outcome is "ok", "error" or "rejected".
func (m *Metrics) LLMCall(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(operation, outcome).Inc()
	m.llmLatency.WithLabelValues(operation).Observe(d.Seconds())
}
