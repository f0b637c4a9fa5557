package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the memoization layer. Collectors are registered on
// the given Registerer; exposing them over HTTP is the host's concern.
type Metrics struct {
	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	staleServes *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates and registers the cache collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netinsights",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Widget results served from a fresh cache entry.",
		}, []string{"widget"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netinsights",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Widget requests that required a recompute.",
		}, []string{"widget"}),
		staleServes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netinsights",
			Subsystem: "cache",
			Name:      "stale_serves_total",
			Help:      "Stale values served after a failed recompute.",
		}, []string{"widget"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netinsights",
			Subsystem: "cache",
			Name:      "compute_failures_total",
			Help:      "Widget computations that returned an error.",
		}, []string{"widget"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "netinsights",
			Subsystem: "cache",
			Name:      "compute_duration_seconds",
			Help:      "Widget computation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"widget"}),
	}
	reg.MustRegister(m.hits, m.misses, m.staleServes, m.failures, m.duration)
	return m
}

// nil-receiver guards let the service run uninstrumented.

func (m *Metrics) hit(widget string) {
	if m != nil {
		m.hits.WithLabelValues(widget).Inc()
	}
}

func (m *Metrics) miss(widget string) {
	if m != nil {
		m.misses.WithLabelValues(widget).Inc()
	}
}

func (m *Metrics) staleServe(widget string) {
	if m != nil {
		m.staleServes.WithLabelValues(widget).Inc()
	}
}

func (m *Metrics) failure(widget string) {
	if m != nil {
		m.failures.WithLabelValues(widget).Inc()
	}
}

func (m *Metrics) observe(widget string, d time.Duration) {
	if m != nil {
		m.duration.WithLabelValues(widget).Observe(d.Seconds())
	}
}
