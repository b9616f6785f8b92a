package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dafthunk-com/dafthunk-sub004/workflow/emit"
)

// Runtime drives workflow executions: validate, plan, pre-flight the
// credit check, then execute level by level with bounded parallelism
// within each level, applying results through the single-threaded
// state sink and emitting a monitoring update after every mutation.
// One Runtime serves many concurrent Run calls.
type Runtime struct {
	registry *Registry
	env      *Env
	emitter  emit.Emitter
	metrics  *PrometheusMetrics
	steps    StepRunner

	maxConcurrent int
	stepTimeout   time.Duration
	now           func() time.Time
}

// RunParams describes one execution request.
type RunParams struct {
	Workflow       *Workflow
	OrganizationID string
	// ExecutionID is generated when empty. Durable hosts pass the id
	// their step journal is keyed by.
	ExecutionID    string
	DeploymentID   string
	Trigger        *TriggerPayload
	MonitorSession string

	// Credit pre-flight inputs, forwarded to the credit service.
	IncludedCredits    int
	SubscriptionStatus string
	OverageLimit       int
}

// NewRuntime builds a runtime over a node registry and injected
// services. env may be nil when no node needs a service.
func NewRuntime(registry *Registry, env *Env, opts ...Option) (*Runtime, error) {
	if registry == nil {
		return nil, Errorf(CodeValidation, "runtime requires a node registry")
	}
	if env == nil {
		env = &Env{}
	}
	r := &Runtime{
		registry:      registry,
		env:           env,
		emitter:       emit.NewNullEmitter(),
		maxConcurrent: 8,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.steps == nil {
		r.steps = &EphemeralRunner{Timeout: r.stepTimeout}
	}
	return r, nil
}

// Run executes the workflow to termination and returns the persisted
// execution record. Node-level failures never fail the call; they are
// recorded in the result. Run itself errs only when the terminal save
// to the execution store fails.
func (r *Runtime) Run(ctx context.Context, p RunParams) (*WorkflowExecution, error) {
	if p.Workflow == nil {
		return nil, Errorf(CodeValidation, "run requires a workflow")
	}
	if p.ExecutionID == "" {
		p.ExecutionID = uuid.NewString()
	}
	startedAt := r.now()

	if errs := Validate(p.Workflow); len(errs) > 0 {
		msg := JoinValidationErrors(errs)
		r.emit(emit.Event{
			ExecutionID: p.ExecutionID,
			WorkflowID:  p.Workflow.ID,
			Msg:         emit.MsgValidationFail,
			Meta:        map[string]any{"error": msg},
		})
		return r.abort(ctx, p, startedAt, Errorf(CodeValidation, "%s", msg))
	}

	levels, err := Plan(p.Workflow)
	if err != nil {
		return r.abort(ctx, p, startedAt, err)
	}

	ec := &ExecutionContext{
		Workflow:       p.Workflow,
		Levels:         levels,
		NodeOrder:      FlattenLevels(levels),
		WorkflowID:     p.Workflow.ID,
		OrganizationID: p.OrganizationID,
		ExecutionID:    p.ExecutionID,
		DeploymentID:   p.DeploymentID,
		Trigger:        p.Trigger,
		MonitorSession: p.MonitorSession,
	}

	if r.env.Credits != nil {
		ok, err := r.env.Credits.HasEnoughCredits(ctx, CreditCheck{
			OrganizationID:     p.OrganizationID,
			Included:           p.IncludedCredits,
			Estimated:          r.registry.EstimateUsage(p.Workflow),
			SubscriptionStatus: p.SubscriptionStatus,
			OverageLimit:       p.OverageLimit,
		})
		if err != nil {
			return r.abort(ctx, p, startedAt, fmt.Errorf("credit check: %w", err))
		}
		if !ok {
			r.emit(emit.Event{
				ExecutionID: p.ExecutionID,
				WorkflowID:  p.Workflow.ID,
				Msg:         emit.MsgCreditDenied,
			})
			return r.abort(ctx, p, startedAt, Errorf(CodeCreditExceeded, "organization %q lacks credits for this run", p.OrganizationID))
		}
	}

	if r.env.Credentials != nil {
		if err := r.env.Credentials.Initialize(ctx, p.OrganizationID); err != nil {
			return r.abort(ctx, p, startedAt, fmt.Errorf("initializing credentials: %w", err))
		}
	}

	r.emit(emit.Event{
		ExecutionID: ec.ExecutionID,
		WorkflowID:  ec.WorkflowID,
		Msg:         emit.MsgExecutionStart,
		Meta:        map[string]any{"levels": len(levels), "nodes": len(ec.NodeOrder)},
	})

	state := NewExecutionState()
	executor := NewNodeExecutor(r.registry, NewMapper(r.env.Objects), r.env)

	for levelIdx, level := range levels {
		if ctx.Err() != nil {
			// Cooperative cancellation: results already applied are
			// kept and the record closes with the derived status.
			break
		}
		r.metrics.LevelStarted(len(level))
		r.emit(emit.Event{
			ExecutionID: ec.ExecutionID,
			WorkflowID:  ec.WorkflowID,
			Level:       levelIdx,
			Msg:         emit.MsgLevelStart,
			Meta:        map[string]any{"size": len(level)},
		})

		results := r.runLevel(ctx, ec, state, executor, level)

		for _, res := range results {
			state.ApplyNodeResult(res)
			r.metrics.ResultApplied(res.Status)
			r.emitResult(ec, levelIdx, res)
			r.sendMonitorUpdate(ctx, ec, state, startedAt)
		}
	}

	return r.finish(ctx, ec, state, startedAt)
}

// runLevel fans out one level's nodes with bounded parallelism and
// returns their results in the level's declared order. Nodes in one
// level are independent by construction, so executors read the state
// without locks while nothing mutates it.
func (r *Runtime) runLevel(ctx context.Context, ec *ExecutionContext, state *ExecutionState, executor *NodeExecutor, level []string) []NodeResult {
	results := make([]NodeResult, len(level))
	sem := make(chan struct{}, r.maxConcurrent)
	var wg sync.WaitGroup

	for i, nodeID := range level {
		wg.Add(1)
		go func(idx int, nodeID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = r.runNode(ctx, ec, state, executor, nodeID)
		}(i, nodeID)
	}
	wg.Wait()
	return results
}

// runNode executes one node through the durable-step seam. Simple
// nodes are wrapped in a single step named "node:{id}"; stepwise nodes
// run directly and journal their own sub-steps.
func (r *Runtime) runNode(ctx context.Context, ec *ExecutionContext, state *ExecutionState, executor *NodeExecutor, nodeID string) NodeResult {
	nodeType := ""
	if node, ok := ec.Workflow.Node(nodeID); ok {
		nodeType = node.Type
	}
	start := r.now()
	r.metrics.NodeStarted()
	defer func() { r.metrics.NodeFinished(nodeType, r.now().Sub(start)) }()

	if r.isStepwise(nodeType) {
		return executor.ExecuteNode(ctx, ec, state, nodeID, r.steps)
	}

	v, err := r.steps.Do(ctx, "node:"+nodeID, func(stepCtx context.Context) (Value, error) {
		return executor.ExecuteNode(stepCtx, ec, state, nodeID, r.steps), nil
	})
	if err != nil {
		return ErrorResult(nodeID, err.Error(), 0)
	}
	return decodeNodeResult(nodeID, v)
}

func (r *Runtime) isStepwise(nodeType string) bool {
	if nodeType == "" {
		return false
	}
	impl, err := r.registry.New(nodeType)
	if err != nil {
		return false
	}
	_, ok := impl.(Stepwise)
	return ok
}

// abort closes a run that never started executing nodes: validation
// failures, credit denial, and service initialization errors.
func (r *Runtime) abort(ctx context.Context, p RunParams, startedAt time.Time, cause error) (*WorkflowExecution, error) {
	exec := &WorkflowExecution{
		ID:             p.ExecutionID,
		WorkflowID:     p.Workflow.ID,
		OrganizationID: p.OrganizationID,
		DeploymentID:   p.DeploymentID,
		Status:         StatusError,
		Error:          cause.Error(),
		StartedAt:      startedAt,
		EndedAt:        r.now(),
	}
	if r.env.Monitor != nil && p.MonitorSession != "" {
		_ = r.env.Monitor.SendUpdate(ctx, p.MonitorSession, exec)
	}
	if r.env.Executions != nil {
		return r.env.Executions.Save(ctx, exec)
	}
	return exec, nil
}

// finish derives the terminal status, records usage with the credit
// service, persists the record and returns it.
func (r *Runtime) finish(ctx context.Context, ec *ExecutionContext, state *ExecutionState, startedAt time.Time) (*WorkflowExecution, error) {
	exec := Snapshot(ec, state)
	exec.StartedAt = startedAt
	exec.EndedAt = r.now()

	if r.env.Credits != nil && exec.Usage > 0 {
		if err := r.env.Credits.RecordUsage(ctx, ec.OrganizationID, exec.Usage); err != nil {
			r.emit(emit.Event{
				ExecutionID: ec.ExecutionID,
				WorkflowID:  ec.WorkflowID,
				Msg:         emit.MsgExecutionEnd,
				Meta:        map[string]any{"error": fmt.Sprintf("recording usage: %v", err)},
			})
		}
	}
	r.metrics.CreditsUsed(exec.Usage)

	r.emit(emit.Event{
		ExecutionID: ec.ExecutionID,
		WorkflowID:  ec.WorkflowID,
		Msg:         emit.MsgExecutionEnd,
		Meta:        map[string]any{"status": string(exec.Status), "usage": exec.Usage},
	})
	r.sendMonitorUpdate(ctx, ec, state, startedAt)

	if r.env.Executions != nil {
		return r.env.Executions.Save(ctx, exec)
	}
	return exec, nil
}

func (r *Runtime) emit(event emit.Event) {
	if event.Time.IsZero() {
		event.Time = r.now()
	}
	r.emitter.Emit(event)
}

func (r *Runtime) emitResult(ec *ExecutionContext, level int, res NodeResult) {
	event := emit.Event{
		ExecutionID: ec.ExecutionID,
		WorkflowID:  ec.WorkflowID,
		Level:       level,
		NodeID:      res.NodeID,
	}
	switch res.Status {
	case NodeCompleted:
		event.Msg = emit.MsgNodeCompleted
		event.Meta = map[string]any{"usage": res.Usage}
	case NodeSkipped:
		event.Msg = emit.MsgNodeSkipped
		event.Meta = map[string]any{"skipReason": string(res.SkipReason)}
	case NodeError:
		event.Msg = emit.MsgNodeError
		event.Meta = map[string]any{"error": res.Error}
	default:
		return
	}
	r.emit(event)
}

func (r *Runtime) sendMonitorUpdate(ctx context.Context, ec *ExecutionContext, state *ExecutionState, startedAt time.Time) {
	if r.env.Monitor == nil || ec.MonitorSession == "" {
		return
	}
	exec := Snapshot(ec, state)
	exec.StartedAt = startedAt
	// Monitoring failures never fail the run.
	_ = r.env.Monitor.SendUpdate(ctx, ec.MonitorSession, exec)
}

// decodeNodeResult recovers a NodeResult from the seam. A durable
// journal replays step values after a JSON round-trip, so the result
// may come back as a generic map.
func decodeNodeResult(nodeID string, v Value) NodeResult {
	switch res := v.(type) {
	case NodeResult:
		return res
	case *NodeResult:
		if res != nil {
			return *res
		}
	case map[string]any:
		data, err := json.Marshal(res)
		if err != nil {
			break
		}
		var out NodeResult
		if err := json.Unmarshal(data, &out); err != nil {
			break
		}
		if out.NodeID == "" {
			out.NodeID = nodeID
		}
		return out
	}
	return ErrorResult(nodeID, fmt.Sprintf("step returned unexpected value of type %T", v), 0)
}
