package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups   *prometheus.CounterVec
	PhaseDuration  *prometheus.HistogramVec
	SourceArticles *prometheus.CounterVec
	LateResults    prometheus.Counter
	Cycles         *prometheus.CounterVec
	CacheFallbacks prometheus.Counter
}

func NewMetrics() *Metrics {
	const namespace = "emarknews"

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Category cache lookups by tier and result",
			},
			[]string{"tier", "result"},
		),
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Duration of each fetch phase",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 5, 10},
			},
			[]string{"phase"},
		),
		SourceArticles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_articles_total",
				Help:      "Articles returned per source",
			},
			[]string{"source"},
		),
		LateResults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "late_results_total",
				Help:      "Fetches that finished after their phase deadline",
			},
		),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Completed refresh cycles by outcome",
			},
			[]string{"outcome"},
		),
		CacheFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_fallbacks_total",
				Help:      "Cache operations served by the in-process fallback",
			},
		),
	}

	m.registry.MustRegister(
		m.CacheLookups,
		m.PhaseDuration,
		m.SourceArticles,
		m.LateResults,
		m.Cycles,
		m.CacheFallbacks,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry returns the registry to expose over HTTP.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
