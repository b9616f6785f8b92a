package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "workflow"

// PrometheusMetrics instruments the runtime. All metrics live under
// the "workflow" namespace and are registered on construction.
type PrometheusMetrics struct {
	nodesInflight prometheus.Gauge
	levelSize     prometheus.Gauge
	nodeDuration  *prometheus.HistogramVec
	nodeResults   *prometheus.CounterVec
	creditsUsed   prometheus.Counter
}

// NewPrometheusMetrics registers the runtime metrics on the given
// registerer. A nil registerer uses the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		nodesInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "nodes_inflight",
			Help:      "Number of node executions currently in flight.",
		}),
		levelSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "level_size",
			Help:      "Number of nodes in the level currently executing.",
		}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "node_duration_seconds",
			Help:      "Wall-clock duration of node executions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"node_type"}),
		nodeResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "node_results_total",
			Help:      "Node results applied, partitioned by terminal status.",
		}, []string{"status"}),
		creditsUsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "credits_used_total",
			Help:      "Compute credits recorded across all executions.",
		}),
	}
}

// NodeStarted marks one node execution in flight.
func (m *PrometheusMetrics) NodeStarted() {
	if m == nil {
		return
	}
	m.nodesInflight.Inc()
}

// NodeFinished records one finished node execution.
func (m *PrometheusMetrics) NodeFinished(nodeType string, d time.Duration) {
	if m == nil {
		return
	}
	m.nodesInflight.Dec()
	m.nodeDuration.WithLabelValues(nodeType).Observe(d.Seconds())
}

// LevelStarted records the size of the level entering execution.
func (m *PrometheusMetrics) LevelStarted(size int) {
	if m == nil {
		return
	}
	m.levelSize.Set(float64(size))
}

// ResultApplied counts one applied node result by status.
func (m *PrometheusMetrics) ResultApplied(status NodeStatus) {
	if m == nil {
		return
	}
	m.nodeResults.WithLabelValues(string(status)).Inc()
}

// CreditsUsed adds to the usage counter.
func (m *PrometheusMetrics) CreditsUsed(usage int) {
	if m == nil || usage <= 0 {
		return
	}
	m.creditsUsed.Add(float64(usage))
}
