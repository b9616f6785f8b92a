package nodes

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

var conditionMeta = workflow.NodeTypeMetadata{
	Type:        "condition",
	Label:       "Condition",
	Description: "Evaluates a boolean expression over the incoming value and routes it to exactly one of two branches.",
	Inputs: []workflow.Parameter{
		{Name: "value", Type: workflow.TypeAny, Required: true},
		{Name: "expression", Type: workflow.TypeString, Required: true},
	},
	Outputs: []workflow.Parameter{
		{Name: "onTrue", Type: workflow.TypeAny},
		{Name: "onFalse", Type: workflow.TypeAny},
	},
}

// conditionNode populates exactly one output per run. The untaken
// branch stays absent from the outputs, which downstream skip
// classification reads as a conditional fork.
type conditionNode struct{}

func (n *conditionNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	expression, ok := nc.StringInput("expression")
	if !ok {
		return workflow.ExecResult{}, fmt.Errorf("expression must be a string")
	}
	value, _ := nc.Input("value")

	program, err := expr.Compile(expression, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return workflow.ExecResult{}, fmt.Errorf("compiling expression %q: %w", expression, err)
	}
	out, err := expr.Run(program, map[string]any{"value": value})
	if err != nil {
		return workflow.ExecResult{}, fmt.Errorf("evaluating expression %q: %w", expression, err)
	}
	taken, ok := out.(bool)
	if !ok {
		return workflow.ExecResult{}, fmt.Errorf("expression %q did not evaluate to a boolean", expression)
	}

	if taken {
		return workflow.ExecResult{Outputs: map[string]workflow.Value{"onTrue": value}}, nil
	}
	return workflow.ExecResult{Outputs: map[string]workflow.Value{"onFalse": value}}, nil
}
