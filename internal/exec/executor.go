package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/OpenSymbolicAI/parapet/internal/firewall"
	"github.com/OpenSymbolicAI/parapet/internal/plan"
	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// Executor walks a validated plan against a frozen registry, invoking
// primitives through the symbolic firewall and recording a trace.
//
// A single Executor is safe for concurrent use: all per-execution state
// (binding environment, trace, replay guard) is created inside Execute.
type Executor struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	gate        *firewall.Gate
	stepTimeout time.Duration
	coercion    plan.CoercionPolicy
	maxParallel int
}

// Option is a functional option for configuring an Executor.
type Option func(*Executor)

// WithLogger configures the logger for the executor.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithTracer configures an OpenTelemetry tracer for the executor.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = t
	}
}

// WithGate configures the firewall gate shared with the validator.
func WithGate(g *firewall.Gate) Option {
	return func(e *Executor) {
		e.gate = g
	}
}

// WithStepTimeout configures the per-step invocation timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.stepTimeout = d
	}
}

// WithCoercion sets the literal coercion policy. It must match the policy
// the plan was validated with.
func WithCoercion(p plan.CoercionPolicy) Option {
	return func(e *Executor) {
		e.coercion = p
	}
}

// WithMaxParallel allows up to n independent read-only call steps to run
// concurrently. Correctness is defined by the sequential walk; parallel
// execution is a pure optimization and n <= 1 disables it.
func WithMaxParallel(n int) Option {
	return func(e *Executor) {
		e.maxParallel = n
	}
}

// New creates an Executor with the given options.
// Default values:
//   - stepTimeout: 1 minute
//   - logger: slog.Default()
//   - gate: a fresh firewall gate
func New(opts ...Option) *Executor {
	e := &Executor{
		stepTimeout: time.Minute,
		logger:      slog.Default(),
		maxParallel: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.gate == nil {
		e.gate = firewall.NewGate()
	}
	return e
}

// Execute runs a validated plan against the registry and returns the
// trace together with a terminal status. The walk is deterministic: steps
// execute in dependency order, the first failure at any nesting depth
// halts the walk, and the partial trace up to that point is returned.
// There is no automatic retry and no rollback of prior steps.
//
// seed provides the initial binding context and may be nil.
func (e *Executor) Execute(ctx context.Context, p *plan.Plan, reg primitive.Registry, seed map[int]any) (*Trace, Status, error) {
	tr := NewTrace()
	defer tr.seal()

	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "plan.execute",
			trace.WithAttributes(
				attribute.Int("plan.steps", len(p.Steps)),
			),
		)
		defer span.End()
	}

	e.logger.Debug("starting plan execution", "steps", len(p.Steps))

	w := &walker{
		exec:  e,
		reg:   reg,
		guard: e.gate.NewRun(),
		trace: tr,
	}

	env := NewEnv(seed)
	err := w.runSteps(ctx, p.Steps, env, "", -1, -1)

	status := StatusSuccess
	switch {
	case err == nil:
	case errors.Is(err, &types.ParapetError{Code: types.EXECUTION_CANCELLED}):
		status = StatusCancelled
	default:
		status = StatusFailed
	}

	if span != nil {
		if err != nil {
			span.SetStatus(codes.Error, string(status))
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "plan execution completed")
		}
		span.SetAttributes(attribute.Int("plan.records", tr.Len()))
	}

	e.logger.Debug("plan execution finished", "status", status, "records", tr.Len())

	return tr, status, err
}

// walker carries the per-execution state of one walk.
type walker struct {
	exec  *Executor
	reg   primitive.Registry
	guard *firewall.RunGuard
	trace *Trace
}

// runSteps executes a step sequence within one binding scope. scope names
// the enclosing iteration scope for the replay guard; loopID and iter
// locate the sequence inside its immediately enclosing loop (-1 at the
// top level).
func (w *walker) runSteps(ctx context.Context, steps []plan.Step, env *Env, scope string, loopID, iter int) error {
	if w.exec.maxParallel > 1 && loopID == -1 {
		return w.runStepsParallel(ctx, steps, env, scope)
	}

	for i := range steps {
		if err := w.runStep(ctx, &steps[i], env, scope, loopID, iter); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) runStep(ctx context.Context, step *plan.Step, env *Env, scope string, loopID, iter int) error {
	if err := ctx.Err(); err != nil {
		return types.WrapError(types.EXECUTION_CANCELLED, "execution cancelled", err)
	}

	switch step.Kind {
	case plan.StepCall:
		return w.runCall(ctx, step, env, scope, loopID, iter)
	case plan.StepConditional:
		return w.runConditional(ctx, step, env, scope, loopID, iter)
	case plan.StepLoop:
		return w.runLoop(ctx, step, env, scope)
	default:
		return types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("step %d has unknown kind %q", step.ID, step.Kind))
	}
}

func (w *walker) runCall(ctx context.Context, step *plan.Step, env *Env, scope string, loopID, iter int) error {
	prim, err := w.exec.gate.CheckInvocable(w.reg, step.Primitive)
	if err != nil {
		return err
	}
	if err := w.guard.ApproveInvocation(scope, step.ID, prim); err != nil {
		return err
	}

	inputs, err := w.resolveArgs(step, prim.Signature(), env)
	if err != nil {
		return err
	}

	rec, output, err := w.invoke(ctx, step, prim, inputs, loopID, iter)
	w.trace.append(rec)
	if err != nil {
		return err
	}

	if err := env.Set(step.ID, output); err != nil {
		return err
	}
	return nil
}

// invoke runs one primitive with a step-scoped timeout, an optional span,
// and a trace record reflecting the outcome.
func (w *walker) invoke(ctx context.Context, step *plan.Step, prim primitive.Primitive, inputs map[string]any, loopID, iter int) (Record, any, error) {
	stepCtx, cancel := context.WithTimeout(ctx, w.exec.stepTimeout)
	defer cancel()

	var span trace.Span
	if w.exec.tracer != nil {
		stepCtx, span = w.exec.tracer.Start(stepCtx, "step.execute",
			trace.WithAttributes(
				attribute.Int("step.id", step.ID),
				attribute.String("step.primitive", step.Primitive),
				attribute.String("step.mode", string(prim.Mode())),
			),
		)
		defer span.End()
	}

	w.exec.logger.Debug("invoking primitive", "step_id", step.ID, "primitive", step.Primitive)

	start := time.Now()
	output, invokeErr := w.reg.Invoke(stepCtx, step.Primitive, inputs)
	duration := time.Since(start)

	rec := Record{
		StepID:    step.ID,
		Primitive: step.Primitive,
		Inputs:    inputs,
		Mode:      prim.Mode(),
		LoopID:    loopID,
		Iteration: iter,
		StartedAt: start,
		Duration:  duration,
	}

	if invokeErr != nil {
		// Cancellation of the surrounding context is a distinguished
		// outcome, not a primitive failure.
		if ctx.Err() != nil {
			invokeErr = types.WrapError(types.EXECUTION_CANCELLED,
				fmt.Sprintf("step %d cancelled", step.ID), ctx.Err())
			rec.Outcome = OutcomeCancelled
		} else {
			rec.Outcome = OutcomeFailed
		}
		rec.Err = invokeErr

		if span != nil {
			span.SetStatus(codes.Error, "primitive invocation failed")
			span.RecordError(invokeErr)
		}
		w.exec.logger.Warn("primitive invocation failed",
			"step_id", step.ID, "primitive", step.Primitive, "error", invokeErr)

		return rec, nil, invokeErr
	}

	rec.Outcome = OutcomeSuccess
	rec.Output = output

	if span != nil {
		span.SetStatus(codes.Ok, "step completed")
		span.SetAttributes(attribute.Int64("step.duration_ms", duration.Milliseconds()))
	}

	return rec, output, nil
}

func (w *walker) runConditional(ctx context.Context, step *plan.Step, env *Env, scope string, loopID, iter int) error {
	hold, err := w.evalCondition(step.ID, step.Cond, env)
	if err != nil {
		return err
	}

	// Exactly one branch runs, inline in the current scope: its bindings
	// become visible to subsequent steps, the other branch's never exist.
	branch := step.Then
	if !hold {
		branch = step.Else
	}
	for i := range branch {
		if err := w.runStep(ctx, &branch[i], env, scope, loopID, iter); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) runLoop(ctx context.Context, step *plan.Step, env *Env, scope string) error {
	switch {
	case step.Count != nil:
		n, err := w.resolveCount(step, env)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := w.runIteration(ctx, step, env, scope, i, i); err != nil {
				return err
			}
		}

	case step.Over != nil:
		seq, err := w.resolveSequence(step, env)
		if err != nil {
			return err
		}
		for i, elem := range seq {
			if err := w.runIteration(ctx, step, env, scope, i, elem); err != nil {
				return err
			}
		}

	case step.While != nil:
		for i := 0; i < step.MaxIterations; i++ {
			hold, err := w.evalCondition(step.ID, step.While, env)
			if err != nil {
				return err
			}
			if !hold {
				break
			}
			if err := w.runIteration(ctx, step, env, scope, i, i); err != nil {
				return err
			}
		}
	}

	return nil
}

// runIteration executes the loop body once in a fresh iteration scope.
// The scope, and every binding created in it, is discarded when the
// iteration ends.
func (w *walker) runIteration(ctx context.Context, step *plan.Step, env *Env, scope string, iter int, cursor any) error {
	iterEnv := env.child()
	if step.CursorID >= 0 {
		if err := iterEnv.Set(step.CursorID, cursor); err != nil {
			return err
		}
	}

	iterScope := fmt.Sprintf("%s/%d#%d", scope, step.ID, iter)
	return w.runSteps(ctx, step.Body, iterEnv, iterScope, step.ID, iter)
}
