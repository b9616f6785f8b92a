package nodes

import (
	"context"
	"errors"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

var numberMeta = workflow.NodeTypeMetadata{
	Type:        "number",
	Label:       "Number",
	Description: "Emits a numeric constant, usually set as the input's default value.",
	Inputs: []workflow.Parameter{
		{Name: "value", Type: workflow.TypeNumber, Required: true},
	},
	Outputs: []workflow.Parameter{
		{Name: "value", Type: workflow.TypeNumber},
	},
}

type numberNode struct{}

func (n *numberNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	v, ok := nc.NumberInput("value")
	if !ok {
		return workflow.ExecResult{}, errors.New("value must be a number")
	}
	return workflow.ExecResult{Outputs: map[string]workflow.Value{"value": v}}, nil
}

var addMeta = workflow.NodeTypeMetadata{
	Type:        "add",
	Label:       "Add",
	Description: "Adds two numbers.",
	Inputs: []workflow.Parameter{
		{Name: "a", Type: workflow.TypeNumber, Required: true},
		{Name: "b", Type: workflow.TypeNumber, Required: true},
	},
	Outputs: []workflow.Parameter{
		{Name: "result", Type: workflow.TypeNumber},
	},
}

type addNode struct{}

func (n *addNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	a, b, err := binaryOperands(nc)
	if err != nil {
		return workflow.ExecResult{}, err
	}
	return workflow.ExecResult{Outputs: map[string]workflow.Value{"result": a + b}}, nil
}

var subtractMeta = workflow.NodeTypeMetadata{
	Type:        "subtract",
	Label:       "Subtract",
	Description: "Subtracts b from a.",
	Inputs: []workflow.Parameter{
		{Name: "a", Type: workflow.TypeNumber, Required: true},
		{Name: "b", Type: workflow.TypeNumber, Required: true},
	},
	Outputs: []workflow.Parameter{
		{Name: "result", Type: workflow.TypeNumber},
	},
}

type subtractNode struct{}

func (n *subtractNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	a, b, err := binaryOperands(nc)
	if err != nil {
		return workflow.ExecResult{}, err
	}
	return workflow.ExecResult{Outputs: map[string]workflow.Value{"result": a - b}}, nil
}

var multiplyMeta = workflow.NodeTypeMetadata{
	Type:        "multiply",
	Label:       "Multiply",
	Description: "Multiplies two numbers.",
	Inputs: []workflow.Parameter{
		{Name: "a", Type: workflow.TypeNumber, Required: true},
		{Name: "b", Type: workflow.TypeNumber, Required: true},
	},
	Outputs: []workflow.Parameter{
		{Name: "result", Type: workflow.TypeNumber},
	},
}

type multiplyNode struct{}

func (n *multiplyNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	a, b, err := binaryOperands(nc)
	if err != nil {
		return workflow.ExecResult{}, err
	}
	return workflow.ExecResult{Outputs: map[string]workflow.Value{"result": a * b}}, nil
}

var divideMeta = workflow.NodeTypeMetadata{
	Type:        "divide",
	Label:       "Divide",
	Description: "Divides a by b; fails on division by zero.",
	Inputs: []workflow.Parameter{
		{Name: "a", Type: workflow.TypeNumber, Required: true},
		{Name: "b", Type: workflow.TypeNumber, Required: true},
	},
	Outputs: []workflow.Parameter{
		{Name: "result", Type: workflow.TypeNumber},
	},
}

type divideNode struct{}

func (n *divideNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	a, b, err := binaryOperands(nc)
	if err != nil {
		return workflow.ExecResult{}, err
	}
	if b == 0 {
		return workflow.ExecResult{}, errors.New("division by zero")
	}
	return workflow.ExecResult{Outputs: map[string]workflow.Value{"result": a / b}}, nil
}

func binaryOperands(nc *workflow.NodeContext) (float64, float64, error) {
	a, ok := nc.NumberInput("a")
	if !ok {
		return 0, 0, errors.New("a must be a number")
	}
	b, ok := nc.NumberInput("b")
	if !ok {
		return 0, 0, errors.New("b must be a number")
	}
	return a, b, nil
}
