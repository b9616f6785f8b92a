package services

import (
	"context"
	"sync"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
	"github.com/dafthunk-com/dafthunk-sub004/workflow/emit"
)

// EmitterMonitor is a workflow.MonitoringService that forwards every
// execution snapshot as an event on an emit.Emitter, which is how
// monitoring dashboards built on the emit pipeline receive live
// progress. An empty session id is a no-op per the contract.
type EmitterMonitor struct {
	emitter emit.Emitter
}

// NewEmitterMonitor returns a monitor publishing on emitter.
func NewEmitterMonitor(emitter emit.Emitter) *EmitterMonitor {
	return &EmitterMonitor{emitter: emitter}
}

// SendUpdate publishes one "monitor_update" event carrying the
// session, derived status and per-node statuses.
func (m *EmitterMonitor) SendUpdate(ctx context.Context, sessionID string, exec *workflow.WorkflowExecution) error {
	if sessionID == "" || exec == nil {
		return nil
	}
	nodes := make(map[string]any, len(exec.NodeExecutions))
	for _, ne := range exec.NodeExecutions {
		nodes[ne.NodeID] = string(ne.Status)
	}
	m.emitter.Emit(emit.Event{
		ExecutionID: exec.ID,
		WorkflowID:  exec.WorkflowID,
		Msg:         "monitor_update",
		Meta: map[string]any{
			"session": sessionID,
			"status":  string(exec.Status),
			"nodes":   nodes,
			"usage":   exec.Usage,
		},
	})
	return nil
}

// RecordingMonitor is a workflow.MonitoringService that keeps every
// snapshot it receives, for tests asserting the update cadence.
type RecordingMonitor struct {
	mu      sync.Mutex
	updates map[string][]*workflow.WorkflowExecution
}

// NewRecordingMonitor returns an empty monitor.
func NewRecordingMonitor() *RecordingMonitor {
	return &RecordingMonitor{updates: make(map[string][]*workflow.WorkflowExecution)}
}

// SendUpdate records the snapshot under its session id.
func (m *RecordingMonitor) SendUpdate(ctx context.Context, sessionID string, exec *workflow.WorkflowExecution) error {
	if sessionID == "" {
		return nil
	}
	m.mu.Lock()
	m.updates[sessionID] = append(m.updates[sessionID], exec)
	m.mu.Unlock()
	return nil
}

// Updates returns the snapshots received for one session, in order.
func (m *RecordingMonitor) Updates(sessionID string) []*workflow.WorkflowExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*workflow.WorkflowExecution, len(m.updates[sessionID]))
	copy(out, m.updates[sessionID])
	return out
}
