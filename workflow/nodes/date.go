package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

var formatDateMeta = workflow.NodeTypeMetadata{
	Type:        "format-date",
	Label:       "Format Date",
	Description: "Formats an ISO date using a Go layout string.",
	Inputs: []workflow.Parameter{
		{Name: "date", Type: workflow.TypeDate, Required: true},
		{Name: "layout", Type: workflow.TypeString, Value: time.RFC3339},
	},
	Outputs: []workflow.Parameter{
		{Name: "formatted", Type: workflow.TypeString},
	},
}

type formatDateNode struct{}

func (n *formatDateNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	raw, ok := nc.StringInput("date")
	if !ok {
		return workflow.ExecResult{}, fmt.Errorf("date must be an ISO string")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return workflow.ExecResult{}, fmt.Errorf("parsing date %q: %w", raw, err)
	}
	layout, ok := nc.StringInput("layout")
	if !ok {
		layout = time.RFC3339
	}
	return workflow.ExecResult{Outputs: map[string]workflow.Value{"formatted": t.Format(layout)}}, nil
}

var parseDateMeta = workflow.NodeTypeMetadata{
	Type:        "parse-date",
	Label:       "Parse Date",
	Description: "Parses a date string into the normalized ISO form.",
	Inputs: []workflow.Parameter{
		{Name: "value", Type: workflow.TypeString, Required: true},
		{Name: "layout", Type: workflow.TypeString, Value: time.RFC3339},
	},
	Outputs: []workflow.Parameter{
		{Name: "date", Type: workflow.TypeDate},
	},
}

type parseDateNode struct{}

func (n *parseDateNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	raw, ok := nc.StringInput("value")
	if !ok {
		return workflow.ExecResult{}, fmt.Errorf("value must be a string")
	}
	layout, ok := nc.StringInput("layout")
	if !ok {
		layout = time.RFC3339
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return workflow.ExecResult{}, fmt.Errorf("parsing %q with layout %q: %w", raw, layout, err)
	}
	return workflow.ExecResult{Outputs: map[string]workflow.Value{"date": t}}, nil
}
