package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

func declare(t *testing.T, reg primitive.Registry, name string, params []primitive.Param, returns primitive.ValueType) {
	t.Helper()
	sig := primitive.Signature{Params: params, Returns: returns}
	p, err := primitive.NewFunc(name, "", sig, primitive.ModeReadOnly,
		func(_ context.Context, _ map[string]any) (any, error) { return nil, nil })
	require.NoError(t, err)
	require.NoError(t, reg.Register(p))
}

func testRegistry(t *testing.T) primitive.Registry {
	t.Helper()
	reg := primitive.NewRegistry()
	declare(t, reg, "add", []primitive.Param{
		{Name: "a", Type: primitive.TypeFloat},
		{Name: "b", Type: primitive.TypeFloat},
	}, primitive.TypeFloat)
	declare(t, reg, "concat", []primitive.Param{
		{Name: "a", Type: primitive.TypeString},
		{Name: "b", Type: primitive.TypeString},
	}, primitive.TypeString)
	declare(t, reg, "length", []primitive.Param{
		{Name: "s", Type: primitive.TypeString},
	}, primitive.TypeInt)
	declare(t, reg, "seq", []primitive.Param{
		{Name: "n", Type: primitive.TypeInt},
	}, primitive.TypeList)
	declare(t, reg, "sum", []primitive.Param{
		{Name: "values", Type: primitive.TypeList},
	}, primitive.TypeFloat)
	reg.Freeze()
	return reg
}

func mustParse(t *testing.T, doc string) *Plan {
	t.Helper()
	p, err := Parse([]byte(doc))
	require.NoError(t, err)
	return p
}

func TestValidate_LinearPlan(t *testing.T) {
	reg := testRegistry(t)
	p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 2.0, b: 3.0}
  - id: 1
    kind: call
    primitive: add
    args: {a: {ref: 0}, b: {ref: 0}}
`)

	assert.NoError(t, Validate(p, reg))
}

func TestValidate_UnknownPrimitive(t *testing.T) {
	reg := testRegistry(t)
	p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: subtract
    args: {a: 2.0, b: 3.0}
`)

	err := Validate(p, reg)
	require.Error(t, err)
	assert.Equal(t, types.PRIMITIVE_UNKNOWN, types.CodeOf(err))
}

func TestValidate_Arity(t *testing.T) {
	reg := testRegistry(t)

	t.Run("missing argument", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 2.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.TYPE_MISMATCH, types.CodeOf(err))
	})

	t.Run("unknown parameter", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 2.0, b: 3.0, c: 4.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.TYPE_MISMATCH, types.CodeOf(err))
	})
}

func TestValidate_TypeChecking(t *testing.T) {
	reg := testRegistry(t)

	t.Run("string literal where float declared", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: two, b: 3.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.TYPE_MISMATCH, types.CodeOf(err))
	})

	t.Run("int literal where float declared is strict mismatch", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 2, b: 3}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.TYPE_MISMATCH, types.CodeOf(err))
	})

	t.Run("int literal where float declared passes permissive", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 2, b: 3}
`)
		assert.NoError(t, Validate(p, reg, WithCoercion(CoercePermissive)))
	})

	t.Run("float literal where int declared is never coerced", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: seq
    args: {n: 3.5}
`)
		err := Validate(p, reg, WithCoercion(CoercePermissive))
		require.Error(t, err)
		assert.Equal(t, types.TYPE_MISMATCH, types.CodeOf(err))
	})

	t.Run("reference type flows through", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: length
    args: {s: probe}
  - id: 1
    kind: call
    primitive: concat
    args: {a: {ref: 0}, b: suffix}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.TYPE_MISMATCH, types.CodeOf(err),
			"length returns int, concat declares string")
	})
}

func TestValidate_References(t *testing.T) {
	reg := testRegistry(t)

	t.Run("self reference", func(t *testing.T) {
		p := &Plan{Steps: []Step{{
			ID: 0, Kind: StepCall, Primitive: "add",
			Args: map[string]Arg{"a": RefArg(0), "b": LiteralArg(1.0)},
		}}}
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.REFERENCE_UNRESOLVED, types.CodeOf(err))
	})

	t.Run("forward reference", func(t *testing.T) {
		p := &Plan{Steps: []Step{
			{
				ID: 0, Kind: StepCall, Primitive: "add",
				Args: map[string]Arg{"a": RefArg(1), "b": LiteralArg(1.0)},
			},
			{
				ID: 1, Kind: StepCall, Primitive: "add",
				Args: map[string]Arg{"a": LiteralArg(1.0), "b": LiteralArg(1.0)},
			},
		}}
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.REFERENCE_UNRESOLVED, types.CodeOf(err))
	})

	t.Run("reference to nonexistent binding", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 3
    kind: call
    primitive: add
    args: {a: {ref: 1}, b: 1.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.REFERENCE_UNRESOLVED, types.CodeOf(err))
	})
}

func TestValidate_BranchScoping(t *testing.T) {
	reg := testRegistry(t)

	t.Run("branch sees outer bindings", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1.0, b: 1.0}
  - id: 1
    kind: conditional
    cond: {left: {ref: 0}, op: gt, right: 1.0}
    then:
      - id: 2
        kind: call
        primitive: add
        args: {a: {ref: 0}, b: 1.0}
`)
		assert.NoError(t, Validate(p, reg))
	})

	t.Run("branch binding is invisible after the conditional", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: conditional
    cond: {left: 1, op: eq, right: 1}
    then:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1.0, b: 1.0}
  - id: 2
    kind: call
    primitive: add
    args: {a: {ref: 1}, b: 1.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.REFERENCE_UNRESOLVED, types.CodeOf(err))
	})

	t.Run("then binding is invisible in else", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: conditional
    cond: {left: 1, op: eq, right: 1}
    then:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1.0, b: 1.0}
    else:
      - id: 2
        kind: call
        primitive: add
        args: {a: {ref: 1}, b: 1.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.REFERENCE_UNRESOLVED, types.CodeOf(err))
	})
}

func TestValidate_LoopScoping(t *testing.T) {
	reg := testRegistry(t)

	t.Run("body may use the cursor and outer bindings", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1.0, b: 1.0}
  - id: 1
    kind: loop
    count: 3
    cursor: 2
    body:
      - id: 3
        kind: call
        primitive: seq
        args: {n: {ref: 2}}
      - id: 4
        kind: call
        primitive: add
        args: {a: {ref: 0}, b: 1.0}
`)
		assert.NoError(t, Validate(p, reg))
	})

	t.Run("body binding is invisible after the loop", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: loop
    count: 3
    body:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1.0, b: 1.0}
  - id: 2
    kind: call
    primitive: add
    args: {a: {ref: 1}, b: 1.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.REFERENCE_UNRESOLVED, types.CodeOf(err))
	})

	t.Run("cursor is invisible after the loop", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: loop
    count: 3
    cursor: 1
    body:
      - id: 2
        kind: call
        primitive: add
        args: {a: 1.0, b: 1.0}
  - id: 3
    kind: call
    primitive: seq
    args: {n: {ref: 1}}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.REFERENCE_UNRESOLVED, types.CodeOf(err))
	})

	t.Run("count must be an int", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: loop
    count: lots
    body:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1.0, b: 1.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.TYPE_MISMATCH, types.CodeOf(err))
	})

	t.Run("over must be a list", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: loop
    over: 42
    body:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1.0, b: 1.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.TYPE_MISMATCH, types.CodeOf(err))
	})
}

func TestValidate_ConditionOperands(t *testing.T) {
	reg := testRegistry(t)

	t.Run("ordering over lists is rejected", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: conditional
    cond: {left: [1, 2], op: lt, right: [3, 4]}
    then:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1.0, b: 1.0}
`)
		err := Validate(p, reg)
		require.Error(t, err)
		assert.Equal(t, types.TYPE_MISMATCH, types.CodeOf(err))
	})

	t.Run("equality over any pair is allowed", func(t *testing.T) {
		p := mustParse(t, `
steps:
  - id: 0
    kind: conditional
    cond: {left: [1, 2], op: eq, right: [1, 2]}
    then:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1.0, b: 1.0}
`)
		assert.NoError(t, Validate(p, reg))
	})
}

func TestValidate_Deterministic(t *testing.T) {
	reg := testRegistry(t)
	p := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 2.0, b: 3.0}
  - id: 1
    kind: loop
    count: 2
    cursor: 2
    body:
      - id: 3
        kind: call
        primitive: add
        args: {a: {ref: 0}, b: 1.0}
`)

	for i := 0; i < 5; i++ {
		assert.NoError(t, Validate(p, reg), "round %d", i)
	}

	bad := mustParse(t, `
steps:
  - id: 0
    kind: call
    primitive: subtract
    args: {a: 2.0, b: 3.0}
`)
	for i := 0; i < 5; i++ {
		err := Validate(bad, reg)
		require.Error(t, err)
		assert.Equal(t, types.PRIMITIVE_UNKNOWN, types.CodeOf(err), "round %d", i)
	}
}
