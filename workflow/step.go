package workflow

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// StepFunc is the unit of work the durable-step seam runs. The
// returned value must be JSON-serializable when used with a persisted
// journal.
type StepFunc func(ctx context.Context) (Value, error)

// StepRunner abstracts "run this function once and remember the
// result". The runtime invokes it for every node execution (under the
// name "node:{nodeId}") and for every internal step of a stepwise node
// (under "node:{nodeId}:{name}"). Step names are deterministic so
// replay is correct.
type StepRunner interface {
	Do(ctx context.Context, name string, fn StepFunc) (Value, error)
	Sleep(ctx context.Context, name string, d time.Duration) error
}

// DefaultStepTimeout bounds a durable step that does not configure its
// own timeout.
const DefaultStepTimeout = 10 * time.Minute

// EphemeralRunner runs steps in-process with no persistence and no
// retries; errors propagate directly. A non-zero Timeout bounds each
// step, otherwise only the caller's context does.
type EphemeralRunner struct {
	Timeout time.Duration
}

// Do calls fn, optionally bounded by the runner's timeout.
func (r *EphemeralRunner) Do(ctx context.Context, name string, fn StepFunc) (Value, error) {
	return runStep(ctx, name, fn, r.Timeout)
}

// Sleep waits for d or until the context is done.
func (r *EphemeralRunner) Sleep(ctx context.Context, name string, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Journal persists step values for one durable execution, keyed by
// (executionID, stepName). Implementations must be safe for concurrent
// use.
type Journal interface {
	Lookup(ctx context.Context, executionID, stepName string) (Value, bool, error)
	Record(ctx context.Context, executionID, stepName string, v Value) error
}

// MemoryJournal is an in-process Journal, used by tests and by hosts
// that only need replay within one process lifetime.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[string]map[string]Value
}

// NewMemoryJournal returns an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string]map[string]Value)}
}

// Lookup returns the recorded value of a step, if any.
func (j *MemoryJournal) Lookup(ctx context.Context, executionID, stepName string) (Value, bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	steps, ok := j.entries[executionID]
	if !ok {
		return nil, false, nil
	}
	v, ok := steps[stepName]
	return v, ok, nil
}

// Record persists one step value.
func (j *MemoryJournal) Record(ctx context.Context, executionID, stepName string, v Value) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	steps, ok := j.entries[executionID]
	if !ok {
		steps = make(map[string]Value)
		j.entries[executionID] = steps
	}
	steps[stepName] = v
	return nil
}

// Steps returns how many steps are recorded for an execution.
func (j *MemoryJournal) Steps(executionID string) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries[executionID])
}

// DurableRunner runs steps against a journal: a step whose name is
// already recorded for this execution replays the recorded value
// without re-executing. Each fresh step is bounded by the configured
// timeout and retried per the configured policy before its error
// propagates.
type DurableRunner struct {
	journal     Journal
	executionID string

	// Timeout bounds each step attempt. Zero means DefaultStepTimeout.
	Timeout time.Duration
	// Retries is the number of additional attempts after a failure.
	// The default of zero matches the runtime's contract: retries are
	// a property of the seam host, not of node declarations.
	Retries int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
}

// NewDurableRunner returns a runner journaling under executionID.
func NewDurableRunner(journal Journal, executionID string) *DurableRunner {
	return &DurableRunner{
		journal:     journal,
		executionID: executionID,
		Timeout:     DefaultStepTimeout,
		BaseDelay:   100 * time.Millisecond,
	}
}

// Do runs fn under name, replaying the journaled value when one
// exists. On success the value is recorded before it is returned, so a
// crash after Do always replays consistently.
func (r *DurableRunner) Do(ctx context.Context, name string, fn StepFunc) (Value, error) {
	if v, ok, err := r.journal.Lookup(ctx, r.executionID, name); err != nil {
		return nil, err
	} else if ok {
		return v, nil
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultStepTimeout
	}

	var v Value
	var err error
	for attempt := 0; ; attempt++ {
		v, err = runStep(ctx, name, fn, timeout)
		if err == nil || attempt >= r.Retries || ctx.Err() != nil {
			break
		}
		timer := time.NewTimer(backoffDelay(r.BaseDelay, attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if recErr := r.journal.Record(ctx, r.executionID, name, v); recErr != nil {
		return nil, recErr
	}
	return v, nil
}

// Sleep waits for d once per step name: a replayed sleep whose marker
// is journaled returns immediately.
func (r *DurableRunner) Sleep(ctx context.Context, name string, d time.Duration) error {
	if _, ok, err := r.journal.Lookup(ctx, r.executionID, name); err != nil {
		return err
	} else if ok {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.journal.Record(ctx, r.executionID, name, true)
}

// runStep executes fn in its own goroutine and bounds it with timeout
// when non-zero. A hung fn leaks its goroutine until it returns; the
// caller gets a step_timeout error and moves on.
func runStep(ctx context.Context, name string, fn StepFunc, timeout time.Duration) (Value, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   Value
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(stepCtx)
		done <- outcome{v: v, err: err}
	}()

	select {
	case out := <-done:
		return out.v, out.err
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Errorf(CodeStepTimeout, "step %q exceeded timeout of %s", name, timeout)
	}
}

// backoffDelay computes exponential backoff with jitter.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt)
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d + jitter
}
