package workflow

import (
	"reflect"
	"testing"
)

func stateContext(w *Workflow) *ExecutionContext {
	levels, err := Plan(w)
	if err != nil {
		panic(err)
	}
	return &ExecutionContext{
		Workflow:  w,
		Levels:    levels,
		NodeOrder: FlattenLevels(levels),
	}
}

func TestApplyNodeResult(t *testing.T) {
	t.Run("partition holds across statuses", func(t *testing.T) {
		s := NewExecutionState()
		s.ApplyNodeResult(CompletedResult("a", map[string]Value{"out": 1.0}, 2))
		s.ApplyNodeResult(SkippedResult("b", SkipConditionalBranch, nil))
		s.ApplyNodeResult(ErrorResult("c", "boom", 1))

		if !s.Executed("a") || s.Skipped("a") || s.Errored("a") {
			t.Fatal("a should only be executed")
		}
		if !s.Skipped("b") || s.Executed("b") || s.Errored("b") {
			t.Fatal("b should only be skipped")
		}
		if !s.Errored("c") || s.Executed("c") || s.Skipped("c") {
			t.Fatal("c should only be errored")
		}
		if s.TotalUsage() != 3 {
			t.Fatalf("usage = %d, want 3", s.TotalUsage())
		}
	})

	t.Run("settled nodes ignore later results", func(t *testing.T) {
		s := NewExecutionState()
		s.ApplyNodeResult(CompletedResult("a", map[string]Value{"out": 1.0}, 0))
		s.ApplyNodeResult(ErrorResult("a", "late failure", 5))
		if s.Errored("a") {
			t.Fatal("second result should be ignored")
		}
		if s.TotalUsage() != 0 {
			t.Fatal("ignored result must not add usage")
		}
	})

	t.Run("nil outputs normalize to empty map", func(t *testing.T) {
		s := NewExecutionState()
		s.ApplyNodeResult(CompletedResult("a", nil, 0))
		outs, ok := s.NodeOutputs["a"]
		if !ok || outs == nil {
			t.Fatal("completed node must have a non-nil outputs map")
		}
	})

	t.Run("pending results leave the node unsettled", func(t *testing.T) {
		s := NewExecutionState()
		s.ApplyNodeResult(NodeResult{NodeID: "a", Status: NodePending})
		if s.Settled("a") {
			t.Fatal("pending must not settle")
		}
	})
}

func TestStatus(t *testing.T) {
	w := planWorkflow([]string{"a", "b"}, [][2]string{{"a", "b"}})
	ec := stateContext(w)

	t.Run("unsettled means executing", func(t *testing.T) {
		s := NewExecutionState()
		s.ApplyNodeResult(CompletedResult("a", map[string]Value{"out": 1.0}, 0))
		if got := s.Status(ec); got != StatusExecuting {
			t.Fatalf("status = %s, want executing", got)
		}
	})

	t.Run("node error means error", func(t *testing.T) {
		s := NewExecutionState()
		s.ApplyNodeResult(ErrorResult("a", "boom", 0))
		s.ApplyNodeResult(SkippedResult("b", SkipUpstreamFailure, []string{"a"}))
		if got := s.Status(ec); got != StatusError {
			t.Fatalf("status = %s, want error", got)
		}
	})

	t.Run("conditional skips still complete", func(t *testing.T) {
		// a executes but leaves "out" unpopulated, so b's skip is a
		// branch not taken.
		s := NewExecutionState()
		s.ApplyNodeResult(CompletedResult("a", map[string]Value{}, 0))
		s.ApplyNodeResult(SkippedResult("b", SkipConditionalBranch, []string{"a"}))
		if got := s.Status(ec); got != StatusCompleted {
			t.Fatalf("status = %s, want completed", got)
		}
	})

	t.Run("all executed means completed", func(t *testing.T) {
		s := NewExecutionState()
		s.ApplyNodeResult(CompletedResult("a", map[string]Value{"out": 1.0}, 0))
		s.ApplyNodeResult(CompletedResult("b", map[string]Value{"out": 2.0}, 0))
		if got := s.Status(ec); got != StatusCompleted {
			t.Fatalf("status = %s, want completed", got)
		}
	})
}

func TestInferSkipReason(t *testing.T) {
	t.Run("errored upstream classifies as failure", func(t *testing.T) {
		w := planWorkflow([]string{"a", "b"}, [][2]string{{"a", "b"}})
		s := NewExecutionState()
		s.ApplyNodeResult(ErrorResult("a", "boom", 0))
		s.ApplyNodeResult(SkippedResult("b", "", nil))
		reason, blockedBy := InferSkipReason(w, s, "b")
		if reason != SkipUpstreamFailure {
			t.Fatalf("reason = %s, want upstream_failure", reason)
		}
		if !reflect.DeepEqual(blockedBy, []string{"a"}) {
			t.Fatalf("blockedBy = %v, want [a]", blockedBy)
		}
	})

	t.Run("unpopulated output classifies as branch", func(t *testing.T) {
		w := planWorkflow([]string{"cond", "branch"}, [][2]string{{"cond", "branch"}})
		s := NewExecutionState()
		s.ApplyNodeResult(CompletedResult("cond", map[string]Value{}, 0))
		s.ApplyNodeResult(SkippedResult("branch", "", nil))
		reason, blockedBy := InferSkipReason(w, s, "branch")
		if reason != SkipConditionalBranch {
			t.Fatalf("reason = %s, want conditional_branch", reason)
		}
		if !reflect.DeepEqual(blockedBy, []string{"cond"}) {
			t.Fatalf("blockedBy = %v, want [cond]", blockedBy)
		}
	})

	t.Run("failure dominates conditional", func(t *testing.T) {
		w := &Workflow{
			ID: "wf",
			Nodes: []Node{
				{ID: "fail", Type: "t", Outputs: []Parameter{{Name: "out", Type: TypeAny}}},
				{ID: "cond", Type: "t", Outputs: []Parameter{{Name: "onTrue", Type: TypeAny}}},
				{ID: "join", Type: "t", Inputs: []Parameter{
					{Name: "x", Type: TypeAny},
					{Name: "y", Type: TypeAny},
				}},
			},
			Edges: []Edge{
				{Source: "fail", SourceOutput: "out", Target: "join", TargetInput: "x"},
				{Source: "cond", SourceOutput: "onTrue", Target: "join", TargetInput: "y"},
			},
		}
		s := NewExecutionState()
		s.ApplyNodeResult(ErrorResult("fail", "boom", 0))
		s.ApplyNodeResult(CompletedResult("cond", map[string]Value{}, 0))
		s.ApplyNodeResult(SkippedResult("join", "", nil))
		reason, blockedBy := InferSkipReason(w, s, "join")
		if reason != SkipUpstreamFailure {
			t.Fatalf("reason = %s, want upstream_failure", reason)
		}
		if !reflect.DeepEqual(blockedBy, []string{"fail"}) {
			t.Fatalf("blockedBy = %v, want [fail]", blockedBy)
		}
	})

	t.Run("blockers resolve through skipped ancestors", func(t *testing.T) {
		// a errors, b skips because of a, c skips because of b. c's
		// blocker is the originating a, not the intermediate b.
		w := planWorkflow([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
		s := NewExecutionState()
		s.ApplyNodeResult(ErrorResult("a", "boom", 0))
		s.ApplyNodeResult(SkippedResult("b", "", nil))
		s.ApplyNodeResult(SkippedResult("c", "", nil))
		reason, blockedBy := InferSkipReason(w, s, "c")
		if reason != SkipUpstreamFailure {
			t.Fatalf("reason = %s, want upstream_failure", reason)
		}
		if !reflect.DeepEqual(blockedBy, []string{"a"}) {
			t.Fatalf("blockedBy = %v, want [a]", blockedBy)
		}
	})

	t.Run("no identifiable blocker defaults to failure", func(t *testing.T) {
		w := planWorkflow([]string{"solo"}, nil)
		s := NewExecutionState()
		s.ApplyNodeResult(SkippedResult("solo", "", nil))
		reason, blockedBy := InferSkipReason(w, s, "solo")
		if reason != SkipUpstreamFailure {
			t.Fatalf("reason = %s, want upstream_failure", reason)
		}
		if blockedBy != nil {
			t.Fatalf("blockedBy = %v, want nil", blockedBy)
		}
	})
}

func TestSnapshot(t *testing.T) {
	w := planWorkflow([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
	ec := stateContext(w)
	ec.ExecutionID = "exec-1"
	ec.WorkflowID = "wf-1"
	ec.OrganizationID = "org-1"

	s := NewExecutionState()
	s.ApplyNodeResult(CompletedResult("a", map[string]Value{"out": 1.0}, 3))
	s.ApplyNodeResult(ErrorResult("b", "boom", 1))
	s.ApplyNodeResult(SkippedResult("c", "", nil))

	exec := Snapshot(ec, s)
	if exec.Status != StatusError {
		t.Fatalf("status = %s, want error", exec.Status)
	}
	if exec.Usage != 4 {
		t.Fatalf("usage = %d, want 4", exec.Usage)
	}
	if len(exec.NodeExecutions) != 3 {
		t.Fatalf("got %d node executions, want 3", len(exec.NodeExecutions))
	}
	order := []string{exec.NodeExecutions[0].NodeID, exec.NodeExecutions[1].NodeID, exec.NodeExecutions[2].NodeID}
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Fatalf("node order = %v", order)
	}
	skipped := exec.NodeExecutions[2]
	if skipped.Status != NodeSkipped || skipped.SkipReason != SkipUpstreamFailure {
		t.Fatalf("skipped entry = %+v", skipped)
	}
	if !reflect.DeepEqual(skipped.BlockedBy, []string{"b"}) {
		t.Fatalf("blockedBy = %v, want [b]", skipped.BlockedBy)
	}
}
