// Package nodes provides the built-in node types of the workflow
// runtime: numeric math, conditional branching, date handling, HTTP
// requests, a stepwise node exercising the durable-step seam, and an
// LLM chat node over the providers in the llm subpackage. The set is
// representative rather than exhaustive; domain deployments register
// their own types alongside these.
package nodes

import "github.com/dafthunk-com/dafthunk-sub004/workflow"

// Register adds every built-in node type that needs no external model
// or credential to the registry. The LLM chat node is registered
// separately with RegisterChat because it closes over a provider.
func Register(r *workflow.Registry) error {
	registrations := []struct {
		meta    workflow.NodeTypeMetadata
		factory workflow.Factory
	}{
		{numberMeta, func() workflow.Executable { return &numberNode{} }},
		{addMeta, func() workflow.Executable { return &addNode{} }},
		{subtractMeta, func() workflow.Executable { return &subtractNode{} }},
		{multiplyMeta, func() workflow.Executable { return &multiplyNode{} }},
		{divideMeta, func() workflow.Executable { return &divideNode{} }},
		{conditionMeta, func() workflow.Executable { return &conditionNode{} }},
		{formatDateMeta, func() workflow.Executable { return &formatDateNode{} }},
		{parseDateMeta, func() workflow.Executable { return &parseDateNode{} }},
		{httpRequestMeta, func() workflow.Executable { return &httpRequestNode{} }},
		{multiStepAddMeta, func() workflow.Executable { return &multiStepAddNode{} }},
	}
	for _, reg := range registrations {
		if err := r.Register(reg.meta, reg.factory); err != nil {
			return err
		}
	}
	return nil
}
