package exec

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/OpenSymbolicAI/parapet/internal/plan"
	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// runStepsParallel walks a top-level step sequence, running maximal runs
// of consecutive read-only call steps as dependency waves. Everything
// else — control flow and effecting calls — is a barrier executed
// sequentially, so observable behavior degrades exactly to the
// sequential walk. Only read_only primitives are scheduled concurrently:
// their permission flag marks them safe to run speculatively, which is
// what allows discarding results recorded past a failure.
func (w *walker) runStepsParallel(ctx context.Context, steps []plan.Step, env *Env, scope string) error {
	i := 0
	for i < len(steps) {
		step := &steps[i]

		if step.Kind != plan.StepCall {
			if err := w.runStep(ctx, step, env, scope, -1, -1); err != nil {
				return err
			}
			i++
			continue
		}

		// Gather the pool of consecutive read-only calls starting here.
		var pool []*plan.Step
		var prims []primitive.Primitive
		j := i
		for j < len(steps) && steps[j].Kind == plan.StepCall {
			prim, err := w.exec.gate.CheckInvocable(w.reg, steps[j].Primitive)
			if err != nil {
				return err
			}
			if prim.Mode() != primitive.ModeReadOnly {
				break
			}
			pool = append(pool, &steps[j])
			prims = append(prims, prim)
			j++
		}

		if len(pool) < 2 {
			// Effecting call, or a lone read-only call: nothing to overlap.
			if err := w.runStep(ctx, step, env, scope, -1, -1); err != nil {
				return err
			}
			i++
			continue
		}

		if err := w.runPool(ctx, pool, prims, env, scope); err != nil {
			return err
		}
		i = j
	}
	return nil
}

// runPool executes a pool of read-only call steps in dependency waves.
// Within a wave steps run concurrently; records are committed and
// bindings written in step-id order at the wave boundary, so the trace is
// identical to the sequential walk's.
func (w *walker) runPool(ctx context.Context, pool []*plan.Step, prims []primitive.Primitive, env *Env, scope string) error {
	remaining := make(map[int]int, len(pool)) // step id -> pool index
	for idx, s := range pool {
		remaining[s.ID] = idx
	}

	for len(remaining) > 0 {
		ready := w.readySteps(pool, remaining, env)
		if len(ready) == 0 {
			return types.NewError(types.REFERENCE_UNRESOLVED,
				fmt.Sprintf("no runnable step among %d remaining; unresolved dependencies", len(remaining)))
		}

		var mu sync.Mutex
		records := make(map[int]Record, len(ready))
		outputs := make(map[int]any, len(ready))

		// Deliberately no group context: a failing sibling must not cancel
		// the others, or a lower-id step could surface a cancelled outcome
		// that the sequential walk would never produce.
		var g errgroup.Group
		g.SetLimit(w.exec.maxParallel)

		for _, idx := range ready {
			step, prim := pool[idx], prims[idx]
			g.Go(func() error {
				if err := w.guard.ApproveInvocation(scope, step.ID, prim); err != nil {
					return err
				}
				inputs, err := w.resolveArgs(step, prim.Signature(), env)
				if err != nil {
					return err
				}
				rec, output, invokeErr := w.invoke(ctx, step, prim, inputs, -1, -1)
				mu.Lock()
				records[step.ID] = rec
				outputs[step.ID] = output
				mu.Unlock()
				_ = invokeErr // surfaced via the record during commit
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// Commit in id order; stop at the first failure, discarding
		// speculative results past it.
		ids := make([]int, 0, len(records))
		for id := range records {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		for _, id := range ids {
			rec := records[id]
			w.trace.append(rec)
			if rec.Err != nil {
				return rec.Err
			}
			if err := env.Set(id, outputs[id]); err != nil {
				return err
			}
			delete(remaining, id)
		}
	}

	return nil
}

// readySteps returns pool indexes of remaining steps whose references are
// all bound, sorted by step id for determinism.
func (w *walker) readySteps(pool []*plan.Step, remaining map[int]int, env *Env) []int {
	var ready []int
	for _, idx := range remaining {
		step := pool[idx]
		if w.depsBound(step, env) {
			ready = append(ready, idx)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return pool[ready[i]].ID < pool[ready[j]].ID
	})
	return ready
}

func (w *walker) depsBound(step *plan.Step, env *Env) bool {
	for _, arg := range step.Args {
		if arg.Kind != plan.ArgRef {
			continue
		}
		if _, ok := env.Get(arg.Ref); !ok {
			return false
		}
	}
	return true
}
