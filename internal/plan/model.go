package plan

import "github.com/OpenSymbolicAI/parapet/internal/primitive"

// StepKind identifies the kind of a plan step.
type StepKind string

const (
	// StepCall invokes a registered primitive with resolved arguments.
	StepCall StepKind = "call"

	// StepConditional evaluates a boolean condition over earlier bindings
	// and executes exactly one of two sub-plans.
	StepConditional StepKind = "conditional"

	// StepLoop executes a body sub-plan once per iteration with
	// iteration-scoped bindings.
	StepLoop StepKind = "loop"
)

// ArgKind discriminates between literal arguments and step references.
type ArgKind int

const (
	// ArgLiteral is a concrete value embedded in the plan document.
	ArgLiteral ArgKind = iota

	// ArgRef refers to the binding produced by an earlier step id.
	ArgRef
)

// Arg is a single argument of a call step or operand of a condition:
// either a literal value or a reference to an earlier step's binding.
type Arg struct {
	Kind    ArgKind
	Literal any
	Ref     int
}

// LiteralArg builds a literal Arg.
func LiteralArg(v any) Arg {
	return Arg{Kind: ArgLiteral, Literal: v}
}

// RefArg builds a reference Arg pointing at the given step id.
func RefArg(id int) Arg {
	return Arg{Kind: ArgRef, Ref: id}
}

// CompareOp is a comparison operator usable in conditions.
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpLt CompareOp = "lt"
	OpLe CompareOp = "le"
	OpGt CompareOp = "gt"
	OpGe CompareOp = "ge"
)

// Condition is a boolean expression over bindings visible at the point it
// appears: a comparison between two operands, each a literal or reference.
type Condition struct {
	Left  Arg
	Op    CompareOp
	Right Arg
}

// Step is one node of a plan. Ids are assigned monotonically across the
// whole document, nested sub-plans included, and are unique plan-wide.
// Fields beyond ID and Kind are populated per kind.
type Step struct {
	ID   int
	Kind StepKind

	// call
	Primitive string
	Args      map[string]Arg

	// conditional
	Cond *Condition
	Then []Step
	Else []Step

	// loop: exactly one of Count, Over, While drives the iteration.
	// CursorID is the binding id under which the per-iteration cursor
	// (element for Over, zero-based index otherwise) is published inside
	// the iteration scope; -1 when the loop declares no cursor.
	Count         *Arg
	Over          *Arg
	While         *Condition
	MaxIterations int
	CursorID      int
	Body          []Step
}

// Plan is a validated, ordered collection of steps forming a DAG.
// A Plan is immutable after Validate succeeds.
type Plan struct {
	Steps []Step
}

// HasControlFlow reports whether the plan contains any conditional or
// loop steps at any depth. The PlanExecute blueprint rejects such plans.
func (p *Plan) HasControlFlow() bool {
	return hasControlFlow(p.Steps)
}

func hasControlFlow(steps []Step) bool {
	for i := range steps {
		if steps[i].Kind != StepCall {
			return true
		}
	}
	return false
}

// Primitives returns the distinct primitive names called anywhere in the
// plan, in first-use order.
func (p *Plan) Primitives() []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(steps []Step)
	walk = func(steps []Step) {
		for i := range steps {
			s := &steps[i]
			switch s.Kind {
			case StepCall:
				if !seen[s.Primitive] {
					seen[s.Primitive] = true
					names = append(names, s.Primitive)
				}
			case StepConditional:
				walk(s.Then)
				walk(s.Else)
			case StepLoop:
				walk(s.Body)
			}
		}
	}
	walk(p.Steps)
	return names
}

// literalType infers the declared type of a literal argument value.
func literalType(v any) primitive.ValueType {
	return primitive.TypeOf(v)
}
