package workflow

import (
	"fmt"
	"strings"
)

// ValidationError describes one structural defect in a workflow.
// NodeID or Edge is set when the defect is attributable to one.
type ValidationError struct {
	Message string `json:"message"`
	NodeID  string `json:"nodeId,omitempty"`
	Edge    *Edge  `json:"edge,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string { return e.Message }

// JoinValidationErrors flattens validation errors into the single
// message recorded on a rejected execution.
func JoinValidationErrors(errs []ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Validate rejects a workflow before any execution work begins if it
// cannot possibly complete. All rules run; the result collects one
// error per offense, in rule order. An empty result means the workflow
// may be planned and run.
//
// Rules:
//   - node ids are unique and parameter type tags are known
//   - every edge endpoint refers to an existing node
//   - every edge sourceOutput / targetInput is declared on its node
//   - no cycles (residual nodes of a Kahn pass are reported by id)
//   - edge endpoints are type compatible ("any" accepts every tag,
//     blob-family tags are interchangeable)
//   - every required input is connected by at least one edge or has a
//     default value
func Validate(w *Workflow) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool, len(w.Nodes))
	for i := range w.Nodes {
		n := &w.Nodes[i]
		if seen[n.ID] {
			errs = append(errs, ValidationError{
				Message: fmt.Sprintf("duplicate node id %q", n.ID),
				NodeID:  n.ID,
			})
		}
		seen[n.ID] = true
		for _, p := range n.Inputs {
			if !p.Type.Valid() {
				errs = append(errs, ValidationError{
					Message: fmt.Sprintf("node %q input %q has unknown type %q", n.ID, p.Name, p.Type),
					NodeID:  n.ID,
				})
			}
		}
		for _, p := range n.Outputs {
			if !p.Type.Valid() {
				errs = append(errs, ValidationError{
					Message: fmt.Sprintf("node %q output %q has unknown type %q", n.ID, p.Name, p.Type),
					NodeID:  n.ID,
				})
			}
		}
	}

	for i := range w.Edges {
		e := w.Edges[i]
		src, srcOK := w.Node(e.Source)
		if !srcOK {
			errs = append(errs, ValidationError{
				Message: fmt.Sprintf("edge source %q does not exist", e.Source),
				Edge:    &w.Edges[i],
			})
		}
		dst, dstOK := w.Node(e.Target)
		if !dstOK {
			errs = append(errs, ValidationError{
				Message: fmt.Sprintf("edge target %q does not exist", e.Target),
				Edge:    &w.Edges[i],
			})
		}

		var out, in *Parameter
		if srcOK {
			var ok bool
			out, ok = src.Output(e.SourceOutput)
			if !ok {
				errs = append(errs, ValidationError{
					Message: fmt.Sprintf("edge references undeclared output %q on node %q", e.SourceOutput, e.Source),
					Edge:    &w.Edges[i],
				})
			}
		}
		if dstOK {
			var ok bool
			in, ok = dst.Input(e.TargetInput)
			if !ok {
				errs = append(errs, ValidationError{
					Message: fmt.Sprintf("edge references undeclared input %q on node %q", e.TargetInput, e.Target),
					Edge:    &w.Edges[i],
				})
			}
		}
		if out != nil && in != nil && !out.Type.Compatible(in.Type) {
			errs = append(errs, ValidationError{
				Message: fmt.Sprintf("edge %s.%s -> %s.%s connects incompatible types %q and %q",
					e.Source, e.SourceOutput, e.Target, e.TargetInput, out.Type, in.Type),
				Edge: &w.Edges[i],
			})
		}
	}

	for _, id := range cycleNodes(w) {
		errs = append(errs, ValidationError{
			Message: fmt.Sprintf("node %q participates in a cycle", id),
			NodeID:  id,
		})
	}

	for i := range w.Nodes {
		n := &w.Nodes[i]
		for _, p := range n.Inputs {
			if !p.Required || p.Value != nil {
				continue
			}
			if len(w.InputEdges(n.ID, p.Name)) == 0 {
				errs = append(errs, ValidationError{
					Message: fmt.Sprintf("required input %q of node %q is not connected and has no default", p.Name, n.ID),
					NodeID:  n.ID,
				})
			}
		}
	}

	return errs
}

// cycleNodes runs a Kahn pass and returns, in workflow order, the node
// ids left with non-zero in-degree. A non-empty result means those
// nodes form one or more cycles.
func cycleNodes(w *Workflow) []string {
	indeg := make(map[string]int, len(w.Nodes))
	for i := range w.Nodes {
		indeg[w.Nodes[i].ID] = 0
	}
	for _, e := range w.Edges {
		if _, ok := indeg[e.Target]; !ok {
			continue
		}
		if _, ok := indeg[e.Source]; !ok {
			continue
		}
		indeg[e.Target]++
	}

	queue := make([]string, 0, len(w.Nodes))
	for i := range w.Nodes {
		if indeg[w.Nodes[i].ID] == 0 {
			queue = append(queue, w.Nodes[i].ID)
		}
	}
	removed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		removed++
		for _, e := range w.Edges {
			if e.Source != id {
				continue
			}
			if _, ok := indeg[e.Target]; !ok {
				continue
			}
			indeg[e.Target]--
			if indeg[e.Target] == 0 {
				queue = append(queue, e.Target)
			}
		}
	}
	if removed == len(w.Nodes) {
		return nil
	}

	var cyclic []string
	for i := range w.Nodes {
		if indeg[w.Nodes[i].ID] > 0 {
			cyclic = append(cyclic, w.Nodes[i].ID)
		}
	}
	return cyclic
}
