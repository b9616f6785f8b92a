package nodes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

var httpRequestMeta = workflow.NodeTypeMetadata{
	Type:        "http-request",
	Label:       "HTTP Request",
	Description: "Performs an HTTP request and emits the response.",
	Usage:       1,
	Inputs: []workflow.Parameter{
		{Name: "url", Type: workflow.TypeString, Required: true},
		{Name: "method", Type: workflow.TypeString, Value: http.MethodGet},
		{Name: "body", Type: workflow.TypeString},
		{Name: "headers", Type: workflow.TypeJSON},
	},
	Outputs: []workflow.Parameter{
		{Name: "status", Type: workflow.TypeNumber},
		{Name: "body", Type: workflow.TypeString},
		{Name: "headers", Type: workflow.TypeJSON},
	},
}

// httpRequestNode shares one client across executions; per-request
// cancellation comes from the step context.
type httpRequestNode struct{}

var httpClient = &http.Client{Timeout: 30 * time.Second}

const maxResponseBody = 10 << 20

func (n *httpRequestNode) Execute(ctx context.Context, nc *workflow.NodeContext) (workflow.ExecResult, error) {
	url, ok := nc.StringInput("url")
	if !ok {
		return workflow.ExecResult{}, fmt.Errorf("url must be a string")
	}
	method, ok := nc.StringInput("method")
	if !ok || method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if raw, ok := nc.StringInput("body"); ok && raw != "" {
		body = strings.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, body)
	if err != nil {
		return workflow.ExecResult{}, fmt.Errorf("building request: %w", err)
	}
	if headers, ok := nc.Input("headers"); ok {
		if m, ok := headers.(map[string]any); ok {
			for k, v := range m {
				if s, ok := v.(string); ok {
					req.Header.Set(k, s)
				}
			}
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return workflow.ExecResult{}, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return workflow.ExecResult{}, fmt.Errorf("reading response: %w", err)
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		respHeaders[k] = resp.Header.Get(k)
	}

	return workflow.ExecResult{
		Outputs: map[string]workflow.Value{
			"status":  float64(resp.StatusCode),
			"body":    string(data),
			"headers": respHeaders,
		},
		Usage: httpRequestMeta.Usage,
	}, nil
}
