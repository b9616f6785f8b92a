package workflow

import (
	"time"

	"github.com/dafthunk-com/dafthunk-sub004/workflow/emit"
)

// Option configures a Runtime. Options are applied in order by
// NewRuntime; a failing option aborts construction.
type Option func(*Runtime) error

// WithEmitter sets the observability emitter. The default discards
// all events.
func WithEmitter(e emit.Emitter) Option {
	return func(r *Runtime) error {
		if e == nil {
			return Errorf(CodeValidation, "emitter must not be nil")
		}
		r.emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(r *Runtime) error {
		r.metrics = m
		return nil
	}
}

// WithStepRunner sets the durable-step seam implementation. The
// default is an EphemeralRunner with the runtime's step timeout.
func WithStepRunner(s StepRunner) Option {
	return func(r *Runtime) error {
		if s == nil {
			return Errorf(CodeValidation, "step runner must not be nil")
		}
		r.steps = s
		return nil
	}
}

// WithMaxConcurrent bounds how many nodes of one level execute at
// once. The default is 8.
func WithMaxConcurrent(n int) Option {
	return func(r *Runtime) error {
		if n < 1 {
			return Errorf(CodeValidation, "max concurrent must be at least 1, got %d", n)
		}
		r.maxConcurrent = n
		return nil
	}
}

// WithStepTimeout bounds each step of the default ephemeral runner.
// It has no effect when WithStepRunner is also given.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Runtime) error {
		if d < 0 {
			return Errorf(CodeValidation, "step timeout must not be negative")
		}
		r.stepTimeout = d
		return nil
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) error {
		if now == nil {
			return Errorf(CodeValidation, "clock must not be nil")
		}
		r.now = now
		return nil
	}
}
