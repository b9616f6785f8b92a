// Package emit provides the observability seam of the workflow
// runtime. The runtime publishes an Event at run start, at every level
// boundary, after every applied node result, and at termination;
// emitters decide what to do with them. Implementations must be safe
// for concurrent use and should never block the runtime for long.
package emit

import "time"

// Event is one observability record. ExecutionID groups the events of
// one run; Level and NodeID locate the event within it. Meta carries
// message-specific details and must stay JSON-serializable.
type Event struct {
	ExecutionID string         `json:"executionId"`
	WorkflowID  string         `json:"workflowId,omitempty"`
	Level       int            `json:"level"`
	NodeID      string         `json:"nodeId,omitempty"`
	Msg         string         `json:"msg"`
	Meta        map[string]any `json:"meta,omitempty"`
	Time        time.Time      `json:"time"`
}

// Messages the runtime emits. Node implementations may emit their own;
// consumers should tolerate unknown messages.
const (
	MsgExecutionStart = "execution_start"
	MsgExecutionEnd   = "execution_end"
	MsgLevelStart     = "level_start"
	MsgNodeCompleted  = "node_completed"
	MsgNodeSkipped    = "node_skipped"
	MsgNodeError      = "node_error"
	MsgValidationFail = "validation_failed"
	MsgCreditDenied   = "credit_denied"
)

// Emitter receives runtime events.
type Emitter interface {
	Emit(event Event)
}
