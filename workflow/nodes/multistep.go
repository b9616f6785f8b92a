package nodes

import (
	"context"
	"errors"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

var multiStepAddMeta = workflow.NodeTypeMetadata{
	Type:        "multi-step-add",
	Label:       "Multi-Step Add",
	Description: "Adds two numbers and doubles the sum across two durable steps.",
	Inputs: []workflow.Parameter{
		{Name: "a", Type: workflow.TypeNumber, Required: true},
		{Name: "b", Type: workflow.TypeNumber, Required: true},
	},
	Outputs: []workflow.Parameter{
		{Name: "result", Type: workflow.TypeNumber},
	},
}

// multiStepAddNode journals each internal step independently: on a
// durable runner, a replay resumes after the last recorded step
// instead of recomputing it.
type multiStepAddNode struct{}

// Stepwise tells the runtime to run this node unwrapped so its
// internal steps own the journal entries.
func (n *multiStepAddNode) Stepwise() {}

func (n *multiStepAddNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	a, aOK := nc.NumberInput("a")
	b, bOK := nc.NumberInput("b")
	if !aOK || !bOK {
		return workflow.ExecResult{}, errors.New("a and b must be numbers")
	}

	sum, err := nc.Step(ctx, "sum", func(ctx context.Context) (workflow.Value, error) {
		return a + b, nil
	})
	if err != nil {
		return workflow.ExecResult{}, err
	}
	sumN, ok := workflow.AsNumber(sum)
	if !ok {
		return workflow.ExecResult{}, errors.New("sum step returned a non-number")
	}

	doubled, err := nc.Step(ctx, "double", func(ctx context.Context) (workflow.Value, error) {
		return sumN * 2, nil
	})
	if err != nil {
		return workflow.ExecResult{}, err
	}
	result, ok := workflow.AsNumber(doubled)
	if !ok {
		return workflow.ExecResult{}, errors.New("double step returned a non-number")
	}

	return workflow.ExecResult{Outputs: map[string]workflow.Value{"result": result}}, nil
}
