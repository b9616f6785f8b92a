package workflow

import "time"

// ExecutionStatus is the derived status of a run. It is never stored
// on ExecutionState; Status computes it on demand.
type ExecutionStatus string

const (
	StatusExecuting ExecutionStatus = "executing"
	StatusCompleted ExecutionStatus = "completed"
	StatusError     ExecutionStatus = "error"
)

// NodeStatus is the terminal status of one node within a run.
type NodeStatus string

const (
	NodeCompleted NodeStatus = "completed"
	NodeSkipped   NodeStatus = "skipped"
	NodeError     NodeStatus = "error"
	NodePending   NodeStatus = "pending"
)

// SkipReason classifies why a node was skipped.
type SkipReason string

const (
	// SkipUpstreamFailure marks a skip cascaded from an errored
	// ancestor. It promotes the workflow status to error.
	SkipUpstreamFailure SkipReason = "upstream_failure"
	// SkipConditionalBranch marks a legitimately unvisited branch: an
	// upstream node ran and deliberately left the feeding output
	// unpopulated. It does not fail the workflow.
	SkipConditionalBranch SkipReason = "conditional_branch"
)

// NodeResult is the outcome of executing (or deciding not to execute)
// one node. Exactly one shape applies per Status:
//
//   - NodeCompleted: Outputs in wire form, plus Usage.
//   - NodeSkipped: SkipReason and BlockedBy.
//   - NodeError: Error message, plus any Usage consumed before failing.
//   - NodePending: EventType and Timeout, reserved for long-running
//     nodes that yield back to the runtime.
type NodeResult struct {
	NodeID     string           `json:"nodeId"`
	Status     NodeStatus       `json:"status"`
	Outputs    map[string]Value `json:"outputs,omitempty"`
	Error      string           `json:"error,omitempty"`
	Usage      int              `json:"usage,omitempty"`
	SkipReason SkipReason       `json:"skipReason,omitempty"`
	BlockedBy  []string         `json:"blockedBy,omitempty"`
	EventType  string           `json:"eventType,omitempty"`
	Timeout    time.Duration    `json:"timeout,omitempty"`
}

// CompletedResult builds a completed NodeResult. A nil outputs map is
// normalized to an empty one so output presence always holds.
func CompletedResult(nodeID string, outputs map[string]Value, usage int) NodeResult {
	if outputs == nil {
		outputs = map[string]Value{}
	}
	return NodeResult{NodeID: nodeID, Status: NodeCompleted, Outputs: outputs, Usage: usage}
}

// SkippedResult builds a skipped NodeResult.
func SkippedResult(nodeID string, reason SkipReason, blockedBy []string) NodeResult {
	return NodeResult{NodeID: nodeID, Status: NodeSkipped, SkipReason: reason, BlockedBy: blockedBy}
}

// ErrorResult builds an errored NodeResult.
func ErrorResult(nodeID, message string, usage int) NodeResult {
	return NodeResult{NodeID: nodeID, Status: NodeError, Error: message, Usage: usage}
}

// NodeExecution is the persisted record of one node within a run.
type NodeExecution struct {
	NodeID     string           `json:"nodeId"`
	Status     NodeStatus       `json:"status"`
	Outputs    map[string]Value `json:"outputs,omitempty"`
	Error      string           `json:"error,omitempty"`
	Usage      int              `json:"usage,omitempty"`
	SkipReason SkipReason       `json:"skipReason,omitempty"`
	BlockedBy  []string         `json:"blockedBy,omitempty"`
}

// WorkflowExecution is the persisted and returned record of one run.
// The same shape is delivered to the monitoring service after every
// state mutation.
type WorkflowExecution struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflowId"`
	OrganizationID string          `json:"organizationId"`
	DeploymentID   string          `json:"deploymentId,omitempty"`
	Status         ExecutionStatus `json:"status"`
	Error          string          `json:"error,omitempty"`
	NodeExecutions []NodeExecution `json:"nodeExecutions"`
	Usage          int             `json:"usage"`
	StartedAt      time.Time       `json:"startedAt"`
	EndedAt        time.Time       `json:"endedAt,omitempty"`
}
