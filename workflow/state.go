package workflow

// ExecutionState is the mutable per-run state. It is owned exclusively
// by the runtime's single applier goroutine and therefore carries no
// locks: executors only read prior-level data, and results are applied
// between levels in the level's fixed iteration order.
//
// After every ApplyNodeResult the following hold for each node id n:
//
//  1. n is in at most one of ExecutedNodes, SkippedNodes, NodeErrors.
//  2. NodeOutputs[n] exists iff n is in ExecutedNodes.
//  3. n appears in each set at most once.
//  4. NodeUsage[n] > 0 implies n executed or errored.
type ExecutionState struct {
	NodeOutputs   map[string]map[string]Value `json:"nodeOutputs"`
	ExecutedNodes []string                    `json:"executedNodes"`
	SkippedNodes  []string                    `json:"skippedNodes"`
	NodeErrors    map[string]string           `json:"nodeErrors"`
	NodeUsage     map[string]int              `json:"nodeUsage"`
}

// NewExecutionState returns an empty state.
func NewExecutionState() *ExecutionState {
	return &ExecutionState{
		NodeOutputs: make(map[string]map[string]Value),
		NodeErrors:  make(map[string]string),
		NodeUsage:   make(map[string]int),
	}
}

// Executed reports whether the node completed.
func (s *ExecutionState) Executed(nodeID string) bool {
	_, ok := s.NodeOutputs[nodeID]
	return ok
}

// Skipped reports whether the node was skipped.
func (s *ExecutionState) Skipped(nodeID string) bool {
	for _, id := range s.SkippedNodes {
		if id == nodeID {
			return true
		}
	}
	return false
}

// Errored reports whether the node failed.
func (s *ExecutionState) Errored(nodeID string) bool {
	_, ok := s.NodeErrors[nodeID]
	return ok
}

// Settled reports whether the node reached any terminal state.
func (s *ExecutionState) Settled(nodeID string) bool {
	return s.Executed(nodeID) || s.Skipped(nodeID) || s.Errored(nodeID)
}

// ApplyNodeResult is the only mutator of ExecutionState. A result for
// an already settled node is ignored, preserving the partition
// invariant on replayed or duplicated results. Pending results are
// recorded nowhere; the node stays unsettled until a terminal result
// arrives.
func (s *ExecutionState) ApplyNodeResult(res NodeResult) {
	if s.Settled(res.NodeID) {
		return
	}
	switch res.Status {
	case NodeCompleted:
		outputs := res.Outputs
		if outputs == nil {
			outputs = map[string]Value{}
		}
		s.NodeOutputs[res.NodeID] = outputs
		s.ExecutedNodes = append(s.ExecutedNodes, res.NodeID)
		if res.Usage > 0 {
			s.NodeUsage[res.NodeID] = res.Usage
		}
	case NodeSkipped:
		s.SkippedNodes = append(s.SkippedNodes, res.NodeID)
	case NodeError:
		s.NodeErrors[res.NodeID] = res.Error
		if res.Usage > 0 {
			s.NodeUsage[res.NodeID] = res.Usage
		}
	}
}

// TotalUsage sums the usage recorded across all nodes.
func (s *ExecutionState) TotalUsage() int {
	total := 0
	for _, u := range s.NodeUsage {
		total += u
	}
	return total
}

// Status derives the workflow status from the context and state. It is
// a pure function: no status field is ever stored.
//
// Rules, in order: any unsettled node means executing; any node error
// means error; any skip classified as upstream_failure means error;
// otherwise completed.
func (s *ExecutionState) Status(ec *ExecutionContext) ExecutionStatus {
	for _, id := range ec.NodeOrder {
		if !s.Settled(id) {
			return StatusExecuting
		}
	}
	if len(s.NodeErrors) > 0 {
		return StatusError
	}
	for _, id := range s.SkippedNodes {
		reason, _ := InferSkipReason(ec.Workflow, s, id)
		if reason == SkipUpstreamFailure {
			return StatusError
		}
	}
	return StatusCompleted
}

// InferSkipReason classifies one skipped node by walking its inbound
// edges. Failure blockers dominate conditional blockers; the returned
// ids are the originating blockers, transitively resolved through
// skipped ancestors. A skip with no identifiable blocker defaults to
// upstream_failure, the conservative reading.
func InferSkipReason(w *Workflow, s *ExecutionState, nodeID string) (SkipReason, []string) {
	return inferSkipReason(w, s, nodeID, map[string]bool{nodeID: true})
}

func inferSkipReason(w *Workflow, s *ExecutionState, nodeID string, visiting map[string]bool) (SkipReason, []string) {
	var failureBlockers, conditionalBlockers []string

	for _, e := range w.InboundEdges(nodeID) {
		switch {
		case s.Errored(e.Source):
			failureBlockers = append(failureBlockers, e.Source)
		case s.Skipped(e.Source):
			if visiting[e.Source] {
				continue
			}
			visiting[e.Source] = true
			reason, blockers := inferSkipReason(w, s, e.Source, visiting)
			if len(blockers) == 0 {
				blockers = []string{e.Source}
			}
			if reason == SkipUpstreamFailure {
				failureBlockers = append(failureBlockers, blockers...)
			} else {
				conditionalBlockers = append(conditionalBlockers, blockers...)
			}
		case s.Executed(e.Source):
			if _, ok := s.NodeOutputs[e.Source][e.SourceOutput]; !ok {
				// The upstream ran but deliberately left this
				// output unpopulated.
				conditionalBlockers = append(conditionalBlockers, e.Source)
			}
		}
	}

	if len(failureBlockers) > 0 {
		return SkipUpstreamFailure, dedupe(failureBlockers)
	}
	if len(conditionalBlockers) > 0 {
		return SkipConditionalBranch, dedupe(conditionalBlockers)
	}
	return SkipUpstreamFailure, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Snapshot assembles the execution record for the current state, with
// node entries in the run's flat node order. Unsettled nodes carry no
// entry; monitoring consumers infer in-flight nodes from their absence.
func Snapshot(ec *ExecutionContext, s *ExecutionState) *WorkflowExecution {
	exec := &WorkflowExecution{
		ID:             ec.ExecutionID,
		WorkflowID:     ec.WorkflowID,
		OrganizationID: ec.OrganizationID,
		DeploymentID:   ec.DeploymentID,
		Status:         s.Status(ec),
		Usage:          s.TotalUsage(),
	}
	for _, id := range ec.NodeOrder {
		switch {
		case s.Executed(id):
			exec.NodeExecutions = append(exec.NodeExecutions, NodeExecution{
				NodeID:  id,
				Status:  NodeCompleted,
				Outputs: s.NodeOutputs[id],
				Usage:   s.NodeUsage[id],
			})
		case s.Errored(id):
			exec.NodeExecutions = append(exec.NodeExecutions, NodeExecution{
				NodeID: id,
				Status: NodeError,
				Error:  s.NodeErrors[id],
				Usage:  s.NodeUsage[id],
			})
		case s.Skipped(id):
			reason, blockedBy := InferSkipReason(ec.Workflow, s, id)
			exec.NodeExecutions = append(exec.NodeExecutions, NodeExecution{
				NodeID:     id,
				Status:     NodeSkipped,
				SkipReason: reason,
				BlockedBy:  blockedBy,
			})
		}
	}
	return exec
}
