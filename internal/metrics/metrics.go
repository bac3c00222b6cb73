// Package metrics wraps prometheus collectors for the gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default histogram buckets for query duration, in seconds.
var defaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics holds the gateway's prometheus collectors. Construct with New and
// inject into consumers — there is no package-level instance.
type Metrics struct {
	registry *prometheus.Registry

	queriesTotal      *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	queryErrorsTotal  *prometheus.CounterVec
	truncationsTotal  *prometheus.CounterVec
	pooledConnections *prometheus.GaugeVec
}

// New creates a Metrics with its own registry, including the default Go and
// process collectors.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of executed graph queries",
			},
			[]string{"graph", "status"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Graph query duration in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"graph"},
		),
		queryErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_errors_total",
				Help:      "Total number of query errors by kind",
			},
			[]string{"kind"},
		),
		truncationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "result_truncations_total",
				Help:      "Total number of truncated result sets by kind",
			},
			[]string{"kind"},
		),
		pooledConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pooled_connections",
				Help:      "Idle pooled connections per graph",
			},
			[]string{"graph"},
		),
	}

	registry.MustRegister(
		m.queriesTotal,
		m.queryDuration,
		m.queryErrorsTotal,
		m.truncationsTotal,
		m.pooledConnections,
	)
	return m
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuery records one query execution.
func (m *Metrics) ObserveQuery(graph, status string, d time.Duration) {
	m.queriesTotal.WithLabelValues(graph, status).Inc()
	m.queryDuration.WithLabelValues(graph).Observe(d.Seconds())
}

// RecordError records a query error by taxonomy kind.
func (m *Metrics) RecordError(kind string) {
	m.queryErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordTruncation records a truncated result set by kind.
func (m *Metrics) RecordTruncation(kind string) {
	m.truncationsTotal.WithLabelValues(kind).Inc()
}

// SetPooledConnections updates the idle connection gauge for a graph.
func (m *Metrics) SetPooledConnections(graph string, n int) {
	m.pooledConnections.WithLabelValues(graph).Set(float64(n))
}
