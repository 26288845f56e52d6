package blueprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenSymbolicAI/parapet/internal/exec"
	"github.com/OpenSymbolicAI/parapet/internal/plan"
	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

func arithmeticRegistry(t *testing.T) primitive.Registry {
	t.Helper()
	reg := primitive.NewRegistry()

	binary := func(name string, f func(a, b float64) float64) {
		sig := primitive.Signature{
			Params: []primitive.Param{
				{Name: "a", Type: primitive.TypeFloat},
				{Name: "b", Type: primitive.TypeFloat},
			},
			Returns: primitive.TypeFloat,
		}
		p := primitive.MustFunc(name, "", sig, primitive.ModeReadOnly,
			func(_ context.Context, args map[string]any) (any, error) {
				a, _ := args["a"].(float64)
				b, _ := args["b"].(float64)
				return f(a, b), nil
			})
		require.NoError(t, reg.Register(p))
	}
	binary("add", func(a, b float64) float64 { return a + b })
	binary("mul", func(a, b float64) float64 { return a * b })

	reg.Freeze()
	return reg
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return NewRunner(arithmeticRegistry(t), WithCoercionPolicy(plan.CoercePermissive))
}

func TestRunner_PlanExecute(t *testing.T) {
	runner := newTestRunner(t)

	result, err := runner.PlanExecute(context.Background(), []byte(`
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 2, b: 3}
  - id: 1
    kind: call
    primitive: add
    args: {a: {ref: 0}, b: {ref: 0}}
`))
	require.NoError(t, err)
	assert.Equal(t, exec.StatusSuccess, result.Status)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Trace.Len())
	assert.Equal(t, 10.0, result.Final)
}

func TestRunner_PlanExecute_RejectsControlFlow(t *testing.T) {
	runner := newTestRunner(t)

	result, err := runner.PlanExecute(context.Background(), []byte(`
steps:
  - id: 0
    kind: loop
    count: 2
    body:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1, b: 1}
`))
	require.Error(t, err)
	assert.Equal(t, types.PLAN_MALFORMED, types.CodeOf(err))
	assert.Equal(t, 0, result.Trace.Len(), "nothing may execute")
}

func TestRunner_PlanExecute_UnknownPrimitive(t *testing.T) {
	runner := newTestRunner(t)

	// The registry declares add and mul; subtract must be rejected before
	// any step runs.
	result, err := runner.PlanExecute(context.Background(), []byte(`
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 2, b: 3}
  - id: 1
    kind: call
    primitive: subtract
    args: {a: {ref: 0}, b: 1}
`))
	require.Error(t, err)
	assert.Equal(t, types.PRIMITIVE_UNKNOWN, types.CodeOf(err))
	assert.Equal(t, exec.StatusFailed, result.Status)
	assert.Equal(t, 0, result.Trace.Len(), "validation rejects the whole plan; step 0 never runs")
}

func TestRunner_PlanExecute_MalformedDocument(t *testing.T) {
	runner := newTestRunner(t)

	result, err := runner.PlanExecute(context.Background(), []byte(`steps: []`))
	require.Error(t, err)
	assert.Equal(t, types.PLAN_MALFORMED, types.CodeOf(err))
	assert.Equal(t, 0, result.Trace.Len())
}

func TestRunner_DesignExecute(t *testing.T) {
	runner := newTestRunner(t)

	result, err := runner.DesignExecute(context.Background(), []byte(`
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 2}
  - id: 1
    kind: conditional
    cond: {left: {ref: 0}, op: gt, right: 2}
    then:
      - id: 2
        kind: call
        primitive: mul
        args: {a: {ref: 0}, b: 4}
  - id: 3
    kind: loop
    count: 2
    cursor: 4
    body:
      - id: 5
        kind: call
        primitive: add
        args: {a: {ref: 4}, b: {ref: 0}}
`))
	require.NoError(t, err)
	assert.Equal(t, exec.StatusSuccess, result.Status)
	assert.Equal(t, 4, result.Trace.Len(), "call, then branch, two loop iterations")
	assert.Equal(t, 4.0, result.Final, "last iteration output is the final value")
}

func TestBudget_Validate(t *testing.T) {
	tests := []struct {
		name    string
		budget  Budget
		wantErr bool
	}{
		{name: "rounds only", budget: Budget{MaxRounds: 3}, wantErr: false},
		{name: "duration only", budget: Budget{MaxDuration: 1000}, wantErr: false},
		{name: "both zero", budget: Budget{}, wantErr: true},
		{name: "negative rounds", budget: Budget{MaxRounds: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.budget.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
