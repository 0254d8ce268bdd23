// Package metrics records pipeline analysis counters on a private Prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for the pipelines service.
type Metrics struct {
	registry *prometheus.Registry

	parsed       *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	droppedEdges prometheus.Counter
	duration     prometheus.Histogram
	graphNodes   prometheus.Histogram
}

// New creates a Metrics with its own registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		parsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipelines_parsed_total",
			Help: "Total pipelines analyzed, by DAG outcome and transport",
		}, []string{"is_dag", "transport"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipelines_rejected_total",
			Help: "Total pipeline submissions rejected before analysis, by reason",
		}, []string{"reason"}),
		droppedEdges: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipelines_dropped_edges_total",
			Help: "Total submitted edges that referenced an unknown node",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipelines_parse_duration_seconds",
			Help:    "Pipeline analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),
		graphNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipelines_graph_nodes",
			Help:    "Number of node records per analyzed pipeline",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 10000},
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveParse records one completed analysis.
func (m *Metrics) ObserveParse(transport string, isDAG bool, nodes, dropped int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.parsed.WithLabelValues(strconv.FormatBool(isDAG), transport).Inc()
	m.droppedEdges.Add(float64(dropped))
	m.duration.Observe(elapsed.Seconds())
	m.graphNodes.Observe(float64(nodes))
}

// ObserveRejected records a submission that never reached the analyzer.
// reason is a short fixed label such as "decode" or "validation".
func (m *Metrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
