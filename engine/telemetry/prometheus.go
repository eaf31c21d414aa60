// Package telemetry exports pipeline metrics in Prometheus format.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter collects node-generation pipeline metrics. All methods are safe on
// a nil receiver so instrumentation can be optional in tests.
type Exporter struct {
	registry *prometheus.Registry

	nodeGenerations   *prometheus.CounterVec
	generationLatency prometheus.Histogram

	collaboratorCalls     *prometheus.CounterVec
	collaboratorFailures  *prometheus.CounterVec
	collaboratorFallbacks *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one).
	Registry *prometheus.Registry

	// Buckets for the generation latency histogram, in seconds.
	LatencyBuckets []float64
}

// DefaultConfig returns the default exporter configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewExporter creates a Prometheus metrics exporter.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.nodeGenerations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parallellives",
		Name:      "node_generations_total",
		Help:      "Node generations by terminal status.",
	}, []string{"status"})

	e.generationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "parallellives",
		Name:      "node_generation_duration_seconds",
		Help:      "End-to-end node generation latency.",
		Buckets:   cfg.LatencyBuckets,
	})

	e.collaboratorCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parallellives",
		Name:      "collaborator_calls_total",
		Help:      "External collaborator calls.",
	}, []string{"collaborator"})

	e.collaboratorFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parallellives",
		Name:      "collaborator_failures_total",
		Help:      "External collaborator calls that failed after retries.",
	}, []string{"collaborator"})

	e.collaboratorFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parallellives",
		Name:      "collaborator_fallbacks_total",
		Help:      "Documented fallback values substituted for failed collaborators.",
	}, []string{"collaborator"})

	e.cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parallellives",
		Name:      "cache_hits_total",
		Help:      "Resolver cache hits.",
	}, []string{"cache"})

	e.cacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parallellives",
		Name:      "cache_misses_total",
		Help:      "Resolver cache misses.",
	}, []string{"cache"})

	registry.MustRegister(
		e.nodeGenerations, e.generationLatency,
		e.collaboratorCalls, e.collaboratorFailures, e.collaboratorFallbacks,
		e.cacheHits, e.cacheMisses,
	)
	return e
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	if e == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ObserveGeneration records one finished node generation.
func (e *Exporter) ObserveGeneration(status string, elapsed time.Duration) {
	if e == nil {
		return
	}
	e.nodeGenerations.WithLabelValues(status).Inc()
	e.generationLatency.Observe(elapsed.Seconds())
}

// ObserveCollaborator records a collaborator call outcome.
func (e *Exporter) ObserveCollaborator(name string, err error, fallback bool) {
	if e == nil {
		return
	}
	e.collaboratorCalls.WithLabelValues(name).Inc()
	if err != nil {
		e.collaboratorFailures.WithLabelValues(name).Inc()
	}
	if fallback {
		e.collaboratorFallbacks.WithLabelValues(name).Inc()
	}
}

// ObserveCache records a cache lookup outcome.
func (e *Exporter) ObserveCache(name string, hit bool) {
	if e == nil {
		return
	}
	if hit {
		e.cacheHits.WithLabelValues(name).Inc()
		return
	}
	e.cacheMisses.WithLabelValues(name).Inc()
}
