package workflow

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetrics(t *testing.T) {
	t.Run("run updates counters", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := NewPrometheusMetrics(reg)

		exec := runWorkflow(t, testRegistry(t), nil, diamondWorkflow(), WithMetrics(metrics))
		if exec.Status != StatusCompleted {
			t.Fatalf("status = %s", exec.Status)
		}

		if got := testutil.ToFloat64(metrics.nodeResults.WithLabelValues("completed")); got != 4 {
			t.Fatalf("completed results = %v, want 4", got)
		}
		if got := testutil.ToFloat64(metrics.creditsUsed); got != float64(exec.Usage) {
			t.Fatalf("credits counter = %v, usage = %d", got, exec.Usage)
		}
		if got := testutil.ToFloat64(metrics.nodesInflight); got != 0 {
			t.Fatalf("inflight = %v after termination", got)
		}
	})

	t.Run("nil receiver is safe", func(t *testing.T) {
		var m *PrometheusMetrics
		m.NodeStarted()
		m.NodeFinished("add", 0)
		m.LevelStarted(3)
		m.ResultApplied(NodeCompleted)
		m.CreditsUsed(5)
	})
}
