package workflow

import (
	"strings"
	"testing"
)

func numberOut(name string) []Parameter {
	return []Parameter{{Name: name, Type: TypeNumber}}
}

func numberIn(names ...string) []Parameter {
	params := make([]Parameter, len(names))
	for i, n := range names {
		params[i] = Parameter{Name: n, Type: TypeNumber, Required: true}
	}
	return params
}

func TestValidate(t *testing.T) {
	t.Run("valid workflow has no errors", func(t *testing.T) {
		w := &Workflow{
			ID:      "wf",
			Trigger: TriggerManual,
			Nodes: []Node{
				{ID: "a", Type: "number", Outputs: numberOut("value")},
				{ID: "b", Type: "double", Inputs: numberIn("x"), Outputs: numberOut("value")},
			},
			Edges: []Edge{{Source: "a", SourceOutput: "value", Target: "b", TargetInput: "x"}},
		}
		if errs := Validate(w); len(errs) != 0 {
			t.Fatalf("expected no errors, got %v", errs)
		}
	})

	t.Run("missing edge endpoints", func(t *testing.T) {
		w := &Workflow{
			ID:    "wf",
			Nodes: []Node{{ID: "a", Type: "number", Outputs: numberOut("value")}},
			Edges: []Edge{{Source: "ghost", SourceOutput: "value", Target: "missing", TargetInput: "x"}},
		}
		errs := Validate(w)
		if len(errs) != 2 {
			t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
		}
	})

	t.Run("undeclared output and input", func(t *testing.T) {
		w := &Workflow{
			ID: "wf",
			Nodes: []Node{
				{ID: "a", Type: "number", Outputs: numberOut("value")},
				{ID: "b", Type: "sink", Inputs: []Parameter{{Name: "x", Type: TypeNumber}}},
			},
			Edges: []Edge{{Source: "a", SourceOutput: "nope", Target: "b", TargetInput: "also-nope"}},
		}
		errs := Validate(w)
		if len(errs) != 2 {
			t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
		}
	})

	t.Run("cycle reported by node id", func(t *testing.T) {
		w := &Workflow{
			ID: "wf",
			Nodes: []Node{
				{ID: "a", Type: "t", Inputs: numberIn("x"), Outputs: numberOut("value")},
				{ID: "b", Type: "t", Inputs: numberIn("x"), Outputs: numberOut("value")},
			},
			Edges: []Edge{
				{Source: "a", SourceOutput: "value", Target: "b", TargetInput: "x"},
				{Source: "b", SourceOutput: "value", Target: "a", TargetInput: "x"},
			},
		}
		errs := Validate(w)
		var cycleErrs int
		for _, e := range errs {
			if strings.Contains(e.Message, "cycle") {
				cycleErrs++
			}
		}
		if cycleErrs != 2 {
			t.Fatalf("expected both cycle members reported, got %v", errs)
		}
	})

	t.Run("incompatible edge types", func(t *testing.T) {
		w := &Workflow{
			ID: "wf",
			Nodes: []Node{
				{ID: "a", Type: "t", Outputs: []Parameter{{Name: "out", Type: TypeString}}},
				{ID: "b", Type: "t", Inputs: []Parameter{{Name: "in", Type: TypeNumber}}},
			},
			Edges: []Edge{{Source: "a", SourceOutput: "out", Target: "b", TargetInput: "in"}},
		}
		errs := Validate(w)
		if len(errs) != 1 || !strings.Contains(errs[0].Message, "incompatible") {
			t.Fatalf("expected one incompatibility error, got %v", errs)
		}
	})

	t.Run("any and blob family are interchangeable", func(t *testing.T) {
		w := &Workflow{
			ID: "wf",
			Nodes: []Node{
				{ID: "a", Type: "t", Outputs: []Parameter{
					{Name: "img", Type: TypeImage},
					{Name: "anything", Type: TypeAny},
				}},
				{ID: "b", Type: "t", Inputs: []Parameter{
					{Name: "doc", Type: TypeDocument},
					{Name: "num", Type: TypeNumber},
				}},
			},
			Edges: []Edge{
				{Source: "a", SourceOutput: "img", Target: "b", TargetInput: "doc"},
				{Source: "a", SourceOutput: "anything", Target: "b", TargetInput: "num"},
			},
		}
		if errs := Validate(w); len(errs) != 0 {
			t.Fatalf("expected no errors, got %v", errs)
		}
	})

	t.Run("required input unconnected without default", func(t *testing.T) {
		w := &Workflow{
			ID:    "wf",
			Nodes: []Node{{ID: "a", Type: "t", Inputs: numberIn("x")}},
		}
		errs := Validate(w)
		if len(errs) != 1 || !strings.Contains(errs[0].Message, "required input") {
			t.Fatalf("expected required-input error, got %v", errs)
		}
	})

	t.Run("required input with default is fine", func(t *testing.T) {
		w := &Workflow{
			ID: "wf",
			Nodes: []Node{{ID: "a", Type: "t", Inputs: []Parameter{
				{Name: "x", Type: TypeNumber, Required: true, Value: 5.0},
			}}},
		}
		if errs := Validate(w); len(errs) != 0 {
			t.Fatalf("expected no errors, got %v", errs)
		}
	})

	t.Run("unknown parameter type", func(t *testing.T) {
		w := &Workflow{
			ID:    "wf",
			Nodes: []Node{{ID: "a", Type: "t", Inputs: []Parameter{{Name: "x", Type: "mystery"}}}},
		}
		errs := Validate(w)
		if len(errs) != 1 || !strings.Contains(errs[0].Message, "unknown type") {
			t.Fatalf("expected unknown-type error, got %v", errs)
		}
	})

	t.Run("duplicate node id", func(t *testing.T) {
		w := &Workflow{
			ID: "wf",
			Nodes: []Node{
				{ID: "a", Type: "t"},
				{ID: "a", Type: "t"},
			},
		}
		errs := Validate(w)
		if len(errs) != 1 || !strings.Contains(errs[0].Message, "duplicate") {
			t.Fatalf("expected duplicate-id error, got %v", errs)
		}
	})
}
