package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenSymbolicAI/parapet/internal/types"
)

func TestParse_LinearPlan(t *testing.T) {
	doc := []byte(`
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 2, b: 3}
  - id: 1
    kind: call
    primitive: add
    args: {a: {ref: 0}, b: 4.5}
`)

	p, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)

	first := p.Steps[0]
	assert.Equal(t, 0, first.ID)
	assert.Equal(t, StepCall, first.Kind)
	assert.Equal(t, "add", first.Primitive)
	assert.Equal(t, LiteralArg(2), first.Args["a"])
	assert.Equal(t, LiteralArg(3), first.Args["b"])

	second := p.Steps[1]
	assert.Equal(t, RefArg(0), second.Args["a"])
	assert.Equal(t, LiteralArg(4.5), second.Args["b"])

	assert.False(t, p.HasControlFlow())
	assert.Equal(t, []string{"add"}, p.Primitives())
}

func TestParse_Conditional(t *testing.T) {
	doc := []byte(`
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 1}
  - id: 1
    kind: conditional
    cond: {left: {ref: 0}, op: gt, right: 1}
    then:
      - id: 2
        kind: call
        primitive: mul
        args: {a: {ref: 0}, b: 10}
    else:
      - id: 3
        kind: call
        primitive: sub
        args: {a: {ref: 0}, b: 10}
`)

	p, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)

	cond := p.Steps[1]
	assert.Equal(t, StepConditional, cond.Kind)
	require.NotNil(t, cond.Cond)
	assert.Equal(t, RefArg(0), cond.Cond.Left)
	assert.Equal(t, OpGt, cond.Cond.Op)
	assert.Equal(t, LiteralArg(1), cond.Cond.Right)
	require.Len(t, cond.Then, 1)
	require.Len(t, cond.Else, 1)
	assert.Equal(t, 2, cond.Then[0].ID)
	assert.Equal(t, 3, cond.Else[0].ID)

	assert.True(t, p.HasControlFlow())
	assert.Equal(t, []string{"add", "mul", "sub"}, p.Primitives())
}

func TestParse_Loop(t *testing.T) {
	doc := []byte(`
steps:
  - id: 0
    kind: loop
    count: 3
    cursor: 1
    body:
      - id: 2
        kind: call
        primitive: add
        args: {a: {ref: 1}, b: 1}
`)

	p, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, p.Steps, 1)

	loop := p.Steps[0]
	assert.Equal(t, StepLoop, loop.Kind)
	require.NotNil(t, loop.Count)
	assert.Equal(t, LiteralArg(3), *loop.Count)
	assert.Equal(t, 1, loop.CursorID)
	require.Len(t, loop.Body, 1)
	assert.Equal(t, RefArg(1), loop.Body[0].Args["a"])
}

func TestParse_WhileLoop(t *testing.T) {
	doc := []byte(`
steps:
  - id: 0
    kind: call
    primitive: length
    args: {s: probe}
  - id: 1
    kind: loop
    while: {left: {ref: 0}, op: gt, right: 0}
    max_iterations: 5
    body:
      - id: 2
        kind: call
        primitive: add
        args: {a: 1, b: 1}
`)

	p, err := Parse(doc)
	require.NoError(t, err)

	loop := p.Steps[1]
	require.NotNil(t, loop.While)
	assert.Equal(t, 5, loop.MaxIterations)
	assert.Equal(t, -1, loop.CursorID, "loops without a cursor declaration get -1")
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "not yaml",
			doc:  "steps: [::",
		},
		{
			name: "no steps",
			doc:  "steps: []",
		},
		{
			name: "missing id",
			doc: `
steps:
  - kind: call
    primitive: add
    args: {a: 1, b: 2}
`,
		},
		{
			name: "missing kind",
			doc: `
steps:
  - id: 0
    primitive: add
`,
		},
		{
			name: "unknown kind",
			doc: `
steps:
  - id: 0
    kind: teleport
`,
		},
		{
			name: "duplicate id",
			doc: `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 2}
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 2}
`,
		},
		{
			name: "non-monotonic ids",
			doc: `
steps:
  - id: 3
    kind: call
    primitive: add
    args: {a: 1, b: 2}
  - id: 1
    kind: call
    primitive: add
    args: {a: 1, b: 2}
`,
		},
		{
			name: "nested id collides with outer",
			doc: `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: 1, b: 2}
  - id: 1
    kind: conditional
    cond: {left: {ref: 0}, op: eq, right: 2}
    then:
      - id: 0
        kind: call
        primitive: add
        args: {a: 1, b: 2}
`,
		},
		{
			name: "call without primitive",
			doc: `
steps:
  - id: 0
    kind: call
    args: {a: 1}
`,
		},
		{
			name: "negative ref",
			doc: `
steps:
  - id: 0
    kind: call
    primitive: add
    args: {a: {ref: -1}, b: 2}
`,
		},
		{
			name: "conditional without cond",
			doc: `
steps:
  - id: 0
    kind: conditional
    then:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1, b: 2}
`,
		},
		{
			name: "conditional with empty then",
			doc: `
steps:
  - id: 0
    kind: conditional
    cond: {left: 1, op: eq, right: 1}
`,
		},
		{
			name: "condition with unknown operator",
			doc: `
steps:
  - id: 0
    kind: conditional
    cond: {left: 1, op: resembles, right: 1}
    then:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1, b: 2}
`,
		},
		{
			name: "loop without driver",
			doc: `
steps:
  - id: 0
    kind: loop
    body:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1, b: 2}
`,
		},
		{
			name: "loop with two drivers",
			doc: `
steps:
  - id: 0
    kind: loop
    count: 3
    over: [1, 2]
    body:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1, b: 2}
`,
		},
		{
			name: "while loop without max_iterations",
			doc: `
steps:
  - id: 0
    kind: loop
    while: {left: 1, op: eq, right: 1}
    body:
      - id: 1
        kind: call
        primitive: add
        args: {a: 1, b: 2}
`,
		},
		{
			name: "loop with empty body",
			doc: `
steps:
  - id: 0
    kind: loop
    count: 3
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Equal(t, types.PLAN_MALFORMED, types.CodeOf(err))
		})
	}
}

func TestParse_NormalizesLiterals(t *testing.T) {
	doc := []byte(`
steps:
  - id: 0
    kind: call
    primitive: sum
    args:
      values: [1, 2.5, three]
`)

	p, err := Parse(doc)
	require.NoError(t, err)

	arg := p.Steps[0].Args["values"]
	require.Equal(t, ArgLiteral, arg.Kind)
	assert.Equal(t, []any{1, 2.5, "three"}, arg.Literal)
}
