package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ExecResult is what a node implementation returns on success. Outputs
// are in node form; the executor maps them back to wire form using the
// node's declared output types. An output a conditional node decides
// not to take is simply absent from the map.
type ExecResult struct {
	Outputs map[string]Value
	Usage   int
}

// Executable is the capability interface every node implementation
// satisfies. Implementations must be safe to call once per node
// instance per run; a fresh instance is produced by the registry
// factory for every execution.
type Executable interface {
	Execute(ctx context.Context, nc *NodeContext) (ExecResult, error)
}

// Stepwise marks implementations that drive their own durable steps
// through NodeContext.Step and NodeContext.Sleep. The runtime runs
// them directly instead of wrapping the whole node in a single step,
// so each internal step is independently durable.
type Stepwise interface {
	Executable
	Stepwise()
}

// NodeContext is the view of the run handed to a node implementation:
// the gathered inputs in node form, the injected services, the trigger
// payload, and the durable-step hooks already namespaced to the node.
type NodeContext struct {
	NodeID         string
	NodeName       string
	Inputs         map[string]Value
	Env            *Env
	Trigger        *TriggerPayload
	OrganizationID string
	ExecutionID    string

	steps StepRunner
}

// Input returns the gathered value of one input. Inputs fed by several
// edges hold an ordered []Value.
func (nc *NodeContext) Input(name string) (Value, bool) {
	v, ok := nc.Inputs[name]
	return v, ok
}

// NumberInput returns one input as a float64.
func (nc *NodeContext) NumberInput(name string) (float64, bool) {
	v, ok := nc.Inputs[name]
	if !ok {
		return 0, false
	}
	return AsNumber(v)
}

// StringInput returns one input as a string.
func (nc *NodeContext) StringInput(name string) (string, bool) {
	v, ok := nc.Inputs[name]
	if !ok {
		return "", false
	}
	return AsString(v)
}

// BoolInput returns one input as a bool.
func (nc *NodeContext) BoolInput(name string) (bool, bool) {
	v, ok := nc.Inputs[name]
	if !ok {
		return false, false
	}
	return AsBool(v)
}

// Step runs fn exactly once under the deterministic step name
// "node:{nodeID}:{name}". On a durable runner, replays return the
// recorded value without re-executing fn.
func (nc *NodeContext) Step(ctx context.Context, name string, fn StepFunc) (Value, error) {
	return nc.steps.Do(ctx, fmt.Sprintf("node:%s:%s", nc.NodeID, name), fn)
}

// Sleep suspends for d under the deterministic step name
// "node:{nodeID}:{name}". On a durable runner, a replayed sleep
// returns immediately.
func (nc *NodeContext) Sleep(ctx context.Context, name string, d time.Duration) error {
	return nc.steps.Sleep(ctx, fmt.Sprintf("node:%s:%s", nc.NodeID, name), d)
}

// NodeTypeMetadata describes a registered node type. Usage is the
// static per-invocation estimate the pre-flight credit check sums over
// the workflow's nodes.
type NodeTypeMetadata struct {
	Type        string
	Label       string
	Description string
	Usage       int
	Inputs      []Parameter
	Outputs     []Parameter
}

// Factory produces a fresh Executable for one node execution.
type Factory func() Executable

type registration struct {
	meta    NodeTypeMetadata
	factory Factory
}

// Registry maps node type strings to implementations. Safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]registration)}
}

// Register adds a node type. Registering a duplicate type or a nil
// factory is an error.
func (r *Registry) Register(meta NodeTypeMetadata, factory Factory) error {
	if meta.Type == "" {
		return Errorf(CodeValidation, "node type metadata has empty type")
	}
	if factory == nil {
		return Errorf(CodeValidation, "node type %q registered with nil factory", meta.Type)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[meta.Type]; exists {
		return Errorf(CodeValidation, "node type %q already registered", meta.Type)
	}
	r.types[meta.Type] = registration{meta: meta, factory: factory}
	return nil
}

// New produces a fresh implementation for the given node type.
func (r *Registry) New(nodeType string) (Executable, error) {
	r.mu.RLock()
	reg, ok := r.types[nodeType]
	r.mu.RUnlock()
	if !ok {
		return nil, Errorf(CodeNodeError, "unknown node type %q", nodeType)
	}
	return reg.factory(), nil
}

// Metadata returns the metadata of a registered node type.
func (r *Registry) Metadata(nodeType string) (NodeTypeMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.types[nodeType]
	return reg.meta, ok
}

// EstimateUsage sums the static usage estimates of every node in the
// workflow. Unregistered types contribute zero; they fail at execution
// time instead.
func (r *Registry) EstimateUsage(w *Workflow) int {
	total := 0
	for i := range w.Nodes {
		if meta, ok := r.Metadata(w.Nodes[i].Type); ok {
			total += meta.Usage
		}
	}
	return total
}
