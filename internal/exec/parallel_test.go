package exec

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenSymbolicAI/parapet/internal/types"
)

func TestParallel_MatchesSequentialTrace(t *testing.T) {
	h := newHarness(t)
	doc := `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 2}
  - id: 1
    kind: call
    primitive: mul
    args: {a: 3, b: 4}
  - id: 2
    kind: call
    primitive: add
    args: {a: {ref: 0}, b: {ref: 1}}
  - id: 3
    kind: call
    primitive: sub
    args: {a: {ref: 2}, b: {ref: 0}}
`

	p := mustPlan(t, h, doc)
	seqTrace, seqStatus, err := newExecutor().Execute(context.Background(), p, h.reg, nil)
	require.NoError(t, err)

	p = mustPlan(t, h, doc)
	parTrace, parStatus, err := newExecutor(WithMaxParallel(4)).Execute(context.Background(), p, h.reg, nil)
	require.NoError(t, err)

	assert.Equal(t, seqStatus, parStatus)
	assert.Equal(t, project(seqTrace), project(parTrace),
		"parallel execution must be trace-equivalent to the sequential walk")

	final, ok := parTrace.Final()
	require.True(t, ok)
	assert.Equal(t, 12.0, final)
}

func TestParallel_FailureDiscardsSpeculativeResults(t *testing.T) {
	h := newHarness(t)
	p := mustPlan(t, h, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 1}
  - id: 1
    kind: call
    primitive: fail
    args: {}
  - id: 2
    kind: call
    primitive: add
    args: {a: 2, b: 2}
  - id: 3
    kind: call
    primitive: add
    args: {a: 3, b: 3}
`)

	tr, status, err := newExecutor(WithMaxParallel(4)).Execute(context.Background(), p, h.reg, nil)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, status)
	assert.Equal(t, types.PRIMITIVE_EXECUTION_FAILED, types.CodeOf(err))

	recs := tr.Records()
	require.Len(t, recs, 2, "results of steps past the failing id are discarded")
	assert.Equal(t, 0, recs[0].StepID)
	assert.Equal(t, OutcomeSuccess, recs[0].Outcome)
	assert.Equal(t, 1, recs[1].StepID)
	assert.Equal(t, OutcomeFailed, recs[1].Outcome)
}

func TestParallel_EffectingCallIsBarrier(t *testing.T) {
	h := newHarness(t)
	p := mustPlan(t, h, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 1}
  - id: 1
    kind: call
    primitive: mul
    args: {a: 2, b: 2}
  - id: 2
    kind: call
    primitive: note
    args: {value: checkpoint}
  - id: 3
    kind: call
    primitive: add
    args: {a: {ref: 0}, b: {ref: 1}}
`)

	tr, status, err := newExecutor(WithMaxParallel(4)).Execute(context.Background(), p, h.reg, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
	assert.Equal(t, []string{"checkpoint"}, h.observed())

	var ids []int
	for _, r := range tr.Records() {
		ids = append(ids, r.StepID)
	}
	assert.True(t, sort.IntsAreSorted(ids), "records commit in step-id order, got %v", ids)
	assert.Equal(t, []int{0, 1, 2, 3}, ids)
}

func TestParallel_ControlFlowRunsSequentially(t *testing.T) {
	h := newHarness(t)
	p := mustPlan(t, h, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 1}
  - id: 1
    kind: loop
    count: 2
    cursor: 2
    body:
      - id: 3
        kind: call
        primitive: add
        args: {a: {ref: 2}, b: {ref: 0}}
  - id: 4
    kind: call
    primitive: add
    args: {a: {ref: 0}, b: 1}
`)

	seq := mustPlan(t, h, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 1}
  - id: 1
    kind: loop
    count: 2
    cursor: 2
    body:
      - id: 3
        kind: call
        primitive: add
        args: {a: {ref: 2}, b: {ref: 0}}
  - id: 4
    kind: call
    primitive: add
    args: {a: {ref: 0}, b: 1}
`)

	parTrace, parStatus, err := newExecutor(WithMaxParallel(4)).Execute(context.Background(), p, h.reg, nil)
	require.NoError(t, err)
	seqTrace, seqStatus, err := newExecutor().Execute(context.Background(), seq, h.reg, nil)
	require.NoError(t, err)

	assert.Equal(t, seqStatus, parStatus)
	assert.Equal(t, project(seqTrace), project(parTrace))
}

func TestEnv_SingleAssignment(t *testing.T) {
	env := NewEnv(nil)
	require.NoError(t, env.Set(0, "once"))

	err := env.Set(0, "twice")
	require.Error(t, err)
	assert.Equal(t, types.FIREWALL_VIOLATION, types.CodeOf(err))

	v, ok := env.Get(0)
	require.True(t, ok)
	assert.Equal(t, "once", v, "the first write wins")
}

func TestEnv_IterationScopes(t *testing.T) {
	root := NewEnv(map[int]any{0: "outer"})

	iter := root.child()
	require.NoError(t, iter.Set(1, "inner"))

	v, ok := iter.Get(0)
	require.True(t, ok)
	assert.Equal(t, "outer", v, "outer bindings are readable from the iteration scope")

	err := iter.Set(0, "shadow")
	require.Error(t, err)
	assert.Equal(t, types.FIREWALL_VIOLATION, types.CodeOf(err), "outer bindings may not be rebound")

	_, ok = root.Get(1)
	assert.False(t, ok, "iteration bindings never reach the outer scope")

	next := root.child()
	assert.NoError(t, next.Set(1, "fresh"), "each iteration scope starts empty")
}
