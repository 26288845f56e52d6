// Package blueprint provides the three execution strategies built on the
// shared executor: PlanExecute (single static plan), DesignExecute
// (structured control flow enabled), and GoalSeeking (iterative
// plan/execute/evaluate bounded by a budget).
package blueprint

import (
	"context"
	"log/slog"

	"github.com/OpenSymbolicAI/parapet/internal/exec"
	"github.com/OpenSymbolicAI/parapet/internal/plan"
	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// Result is the outcome of one blueprint run: the trace, the final value,
// the terminal status, and, for goal seeking, the full round history.
type Result struct {
	RunID   types.ID
	Trace   *exec.Trace
	Final   any
	Status  exec.Status
	History []Round
}

// Runner executes plan documents through the shared parse → validate →
// execute pipeline. It backs both PlanExecute and DesignExecute and is
// reused by the goal seeker for each round.
type Runner struct {
	reg      primitive.Registry
	executor *exec.Executor
	coercion plan.CoercionPolicy
	logger   *slog.Logger
}

// RunnerOption is a functional option for configuring a Runner.
type RunnerOption func(*Runner)

// WithExecutor sets the executor. If not provided, a default executor is
// created.
func WithExecutor(e *exec.Executor) RunnerOption {
	return func(r *Runner) {
		r.executor = e
	}
}

// WithCoercionPolicy sets the literal coercion policy used during
// validation. The executor must be configured with the same policy.
func WithCoercionPolicy(p plan.CoercionPolicy) RunnerOption {
	return func(r *Runner) {
		r.coercion = p
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner over a frozen registry.
func NewRunner(reg primitive.Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		reg:    reg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.executor == nil {
		r.executor = exec.New(exec.WithCoercion(r.coercion), exec.WithLogger(r.logger))
	}
	return r
}

// PlanExecute parses, validates, and executes a single static plan once.
// Plans containing conditional or loop steps are rejected; DesignExecute
// is the strategy with structured control flow enabled.
func (r *Runner) PlanExecute(ctx context.Context, doc []byte) (*Result, error) {
	return r.run(ctx, doc, false)
}

// DesignExecute parses, validates, and executes a plan once with
// conditional and loop step kinds enabled. It shares all state and
// invariants with PlanExecute.
func (r *Runner) DesignExecute(ctx context.Context, doc []byte) (*Result, error) {
	return r.run(ctx, doc, true)
}

func (r *Runner) run(ctx context.Context, doc []byte, controlFlow bool) (*Result, error) {
	result := &Result{
		RunID:  types.NewID(),
		Trace:  exec.NewTrace(),
		Status: exec.StatusFailed,
	}

	p, err := plan.Parse(doc)
	if err != nil {
		return result, err
	}
	if !controlFlow && p.HasControlFlow() {
		return result, types.NewError(types.PLAN_MALFORMED,
			"plan uses conditional or loop steps; use DesignExecute")
	}
	if err := plan.Validate(p, r.reg, plan.WithCoercion(r.coercion)); err != nil {
		r.logger.Warn("plan rejected by validator", "run_id", result.RunID, "error", err)
		return result, err
	}

	tr, status, execErr := r.executor.Execute(ctx, p, r.reg, nil)
	result.Trace = tr
	result.Status = status
	result.Final, _ = tr.Final()

	r.logger.Info("blueprint run finished",
		"run_id", result.RunID,
		"status", status,
		"records", tr.Len(),
	)

	return result, execErr
}

// runPlan is the goal seeker's entry: identical pipeline, but the parsed
// plan is returned for the round history.
func (r *Runner) runPlan(ctx context.Context, doc []byte) (*plan.Plan, *exec.Trace, exec.Status, error) {
	p, err := plan.Parse(doc)
	if err != nil {
		return nil, exec.NewTrace(), exec.StatusFailed, err
	}
	if err := plan.Validate(p, r.reg, plan.WithCoercion(r.coercion)); err != nil {
		return p, exec.NewTrace(), exec.StatusFailed, err
	}
	tr, status, execErr := r.executor.Execute(ctx, p, r.reg, nil)
	return p, tr, status, execErr
}
