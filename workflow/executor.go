package workflow

import (
	"context"
	"fmt"
)

// NodeExecutor executes exactly one node and returns exactly one
// NodeResult, without mutating shared state. It never returns an
// error and never panics outward: implementation failures, panics and
// missing services all become error results.
type NodeExecutor struct {
	registry *Registry
	mapper   *Mapper
	env      *Env
}

// NewNodeExecutor builds an executor over the given registry, mapper
// and services.
func NewNodeExecutor(registry *Registry, mapper *Mapper, env *Env) *NodeExecutor {
	if env == nil {
		env = &Env{}
	}
	return &NodeExecutor{registry: registry, mapper: mapper, env: env}
}

// ExecuteNode gathers the node's inputs from the state, invokes the
// implementation, and maps its outputs back to wire form. The steps
// runner is handed to the implementation for its internal durable
// steps.
func (x *NodeExecutor) ExecuteNode(ctx context.Context, ec *ExecutionContext, state *ExecutionState, nodeID string, steps StepRunner) NodeResult {
	node, ok := ec.Workflow.Node(nodeID)
	if !ok {
		return ErrorResult(nodeID, fmt.Sprintf("node %q not found in workflow", nodeID), 0)
	}

	impl, err := x.registry.New(node.Type)
	if err != nil {
		return ErrorResult(nodeID, err.Error(), 0)
	}

	inputs, skip, errRes := x.gatherInputs(ctx, ec, state, node)
	if errRes != nil {
		return *errRes
	}
	if skip != nil {
		return *skip
	}

	if errRes := x.resolveServiceInputs(ctx, ec, node, inputs); errRes != nil {
		return *errRes
	}

	nc := &NodeContext{
		NodeID:         node.ID,
		NodeName:       node.Name,
		Inputs:         inputs,
		Env:            x.env,
		Trigger:        ec.Trigger,
		OrganizationID: ec.OrganizationID,
		ExecutionID:    ec.ExecutionID,
		steps:          steps,
	}

	res, err := x.invoke(ctx, impl, nc)
	if err != nil {
		return ErrorResult(nodeID, err.Error(), res.Usage)
	}

	outputs, mapErr := x.mapOutputs(ctx, ec, node, res.Outputs)
	if mapErr != nil {
		return ErrorResult(nodeID, mapErr.Error(), res.Usage)
	}
	return CompletedResult(nodeID, outputs, res.Usage)
}

// gatherInputs applies the input-gathering policy: edges contribute in
// workflow-edge-declaration order, defaults fill inputs no edge
// delivered a value to, and a required input with neither contribution
// nor default skips the node.
func (x *NodeExecutor) gatherInputs(ctx context.Context, ec *ExecutionContext, state *ExecutionState, node *Node) (map[string]Value, *NodeResult, *NodeResult) {
	inputs := make(map[string]Value, len(node.Inputs))

	for _, p := range node.Inputs {
		var contributions []Value
		for _, e := range ec.Workflow.InputEdges(node.ID, p.Name) {
			if !state.Executed(e.Source) {
				continue
			}
			out, ok := state.NodeOutputs[e.Source][e.SourceOutput]
			if !ok {
				// Upstream ran but took another branch.
				continue
			}
			contributions = append(contributions, out)
		}

		if len(contributions) == 0 {
			if p.Value != nil {
				contributions = []Value{p.Value}
			} else if p.Required {
				reason, blockedBy := InferSkipReason(ec.Workflow, state, node.ID)
				skip := SkippedResult(node.ID, reason, blockedBy)
				return nil, &skip, nil
			} else {
				continue
			}
		}

		converted := make([]Value, len(contributions))
		for i, c := range contributions {
			v, err := x.mapper.APIToNode(ctx, p.Type, c)
			if err != nil {
				errRes := ErrorResult(node.ID, fmt.Sprintf("input %q: %v", p.Name, err), 0)
				return nil, nil, &errRes
			}
			converted[i] = v
		}
		if len(converted) == 1 {
			inputs[p.Name] = converted[0]
		} else {
			inputs[p.Name] = converted
		}
	}

	return inputs, nil, nil
}

// resolveServiceInputs replaces runtime-only parameter kinds with the
// handle the corresponding service resolves: secret names become
// secret values, integration ids become IntegrationInfo, and
// queue/database/dataset ids become live handles. An email input with
// no value is filled from the trigger payload.
func (x *NodeExecutor) resolveServiceInputs(ctx context.Context, ec *ExecutionContext, node *Node, inputs map[string]Value) *NodeResult {
	fail := func(format string, args ...any) *NodeResult {
		r := ErrorResult(node.ID, fmt.Sprintf(format, args...), 0)
		return &r
	}

	for _, p := range node.Inputs {
		switch p.Type {
		case TypeSecret:
			name, ok := AsString(inputs[p.Name])
			if !ok {
				continue
			}
			if x.env.Credentials == nil {
				return fail("%s: input %q needs a credential service", CodeMissingDependency, p.Name)
			}
			secret, err := x.env.Credentials.GetSecret(ctx, name)
			if err != nil {
				return fail("input %q: resolving secret %q: %v", p.Name, name, err)
			}
			inputs[p.Name] = secret
		case TypeIntegration:
			id, ok := AsString(inputs[p.Name])
			if !ok {
				continue
			}
			if x.env.Credentials == nil {
				return fail("%s: input %q needs a credential service", CodeMissingDependency, p.Name)
			}
			info, err := x.env.Credentials.GetIntegration(ctx, id)
			if err != nil {
				return fail("input %q: resolving integration %q: %v", p.Name, id, err)
			}
			inputs[p.Name] = info
		case TypeQueue:
			id, ok := AsString(inputs[p.Name])
			if !ok {
				continue
			}
			if x.env.Queues == nil {
				return fail("%s: input %q needs a queue service", CodeMissingDependency, p.Name)
			}
			q, err := x.env.Queues.Resolve(ctx, id, ec.OrganizationID)
			if err != nil {
				return fail("input %q: resolving queue %q: %v", p.Name, id, err)
			}
			if q == nil {
				return fail("input %q: queue %q not found", p.Name, id)
			}
			inputs[p.Name] = q
		case TypeDatabase:
			id, ok := AsString(inputs[p.Name])
			if !ok {
				continue
			}
			if x.env.Databases == nil {
				return fail("%s: input %q needs a database service", CodeMissingDependency, p.Name)
			}
			conn, err := x.env.Databases.Resolve(ctx, id, ec.OrganizationID)
			if err != nil {
				return fail("input %q: resolving database %q: %v", p.Name, id, err)
			}
			if conn == nil {
				return fail("input %q: database %q not found", p.Name, id)
			}
			inputs[p.Name] = conn
		case TypeDataset:
			id, ok := AsString(inputs[p.Name])
			if !ok {
				continue
			}
			if x.env.Datasets == nil {
				return fail("%s: input %q needs a dataset service", CodeMissingDependency, p.Name)
			}
			ds, err := x.env.Datasets.Resolve(ctx, id, ec.OrganizationID)
			if err != nil {
				return fail("input %q: resolving dataset %q: %v", p.Name, id, err)
			}
			if ds == nil {
				return fail("input %q: dataset %q not found", p.Name, id)
			}
			inputs[p.Name] = ds
		case TypeEmail:
			if _, ok := inputs[p.Name]; !ok && ec.Trigger != nil && ec.Trigger.Email != nil {
				inputs[p.Name] = *ec.Trigger.Email
			}
		}
	}
	return nil
}

// invoke calls the implementation with panic recovery so a misbehaving
// node becomes an error result instead of tearing down the level.
func (x *NodeExecutor) invoke(ctx context.Context, impl Executable, nc *NodeContext) (res ExecResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node implementation panicked: %v", r)
		}
	}()
	return impl.Execute(ctx, nc)
}

// mapOutputs converts declared outputs to wire form. Outputs the
// implementation did not populate stay absent, which is how
// conditional forks mark the untaken branch. Undeclared output names
// are dropped.
func (x *NodeExecutor) mapOutputs(ctx context.Context, ec *ExecutionContext, node *Node, raw map[string]Value) (map[string]Value, error) {
	outputs := make(map[string]Value, len(raw))
	for _, p := range node.Outputs {
		v, ok := raw[p.Name]
		if !ok {
			continue
		}
		if list, isList := v.([]Value); isList {
			converted := make([]Value, len(list))
			for i, item := range list {
				c, err := x.mapper.NodeToAPI(ctx, p.Type, item, ec.OrganizationID, ec.ExecutionID)
				if err != nil {
					return nil, fmt.Errorf("output %q: %w", p.Name, err)
				}
				converted[i] = c
			}
			outputs[p.Name] = converted
			continue
		}
		c, err := x.mapper.NodeToAPI(ctx, p.Type, v, ec.OrganizationID, ec.ExecutionID)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", p.Name, err)
		}
		outputs[p.Name] = c
	}
	return outputs, nil
}
