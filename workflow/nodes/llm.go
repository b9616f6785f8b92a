package nodes

import (
	"context"
	"fmt"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
	"github.com/dafthunk-com/dafthunk-sub004/workflow/nodes/llm"
)

// RegisterChat registers the "llm-chat" node type over the given
// provider. It is separate from Register because the node closes over
// a configured ChatModel.
func RegisterChat(r *workflow.Registry, model llm.ChatModel) error {
	if model == nil {
		return workflow.Errorf(workflow.CodeValidation, "llm-chat requires a chat model")
	}
	meta := workflow.NodeTypeMetadata{
		Type:        "llm-chat",
		Label:       "LLM Chat",
		Description: "Sends a prompt to a chat model and emits the reply.",
		Usage:       10,
		Inputs: []workflow.Parameter{
			{Name: "prompt", Type: workflow.TypeString, Required: true},
			{Name: "system", Type: workflow.TypeString},
			{Name: "model", Type: workflow.TypeString},
			{Name: "maxTokens", Type: workflow.TypeNumber},
		},
		Outputs: []workflow.Parameter{
			{Name: "text", Type: workflow.TypeString},
			{Name: "provider", Type: workflow.TypeString},
		},
	}
	return r.Register(meta, func() workflow.Executable {
		return &chatNode{model: model}
	})
}

type chatNode struct {
	model llm.ChatModel
}

func (n *chatNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	prompt, ok := nc.StringInput("prompt")
	if !ok {
		return workflow.ExecResult{}, fmt.Errorf("prompt must be a string")
	}

	req := llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	}
	if system, ok := nc.StringInput("system"); ok {
		req.System = system
	}
	if model, ok := nc.StringInput("model"); ok {
		req.Model = model
	}
	if maxTokens, ok := nc.NumberInput("maxTokens"); ok {
		req.MaxTokens = int(maxTokens)
	}

	resp, err := n.model.Complete(ctx, req)
	if err != nil {
		return workflow.ExecResult{}, fmt.Errorf("chat completion: %w", err)
	}
	return workflow.ExecResult{
		Outputs: map[string]workflow.Value{
			"text":     resp.Text,
			"provider": n.model.Name(),
		},
		Usage: resp.Tokens,
	}, nil
}
