package plan

import (
	"fmt"

	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// CoercionPolicy controls how literal argument types are matched against
// declared parameter types. Strict matching is the default; permissive
// matching additionally allows int literals where a float is declared.
type CoercionPolicy int

const (
	CoerceStrict CoercionPolicy = iota
	CoercePermissive
)

// ValidateOption configures a validation run.
type ValidateOption func(*validator)

// WithCoercion sets the literal coercion policy for validation. The
// executor must be configured with the same policy.
func WithCoercion(p CoercionPolicy) ValidateOption {
	return func(v *validator) {
		v.coercion = p
	}
}

// Validate statically checks a parsed plan against a registry. It resolves
// every call step's primitive name, checks argument types and arity,
// rejects forward and cyclic references, and recurses into sub-plans with
// proper binding scopes. Validation is pure and deterministic: it invokes
// no primitive and re-validating the same (plan, registry) pair always
// yields the same verdict.
//
// Scoping follows the domination rule: a reference may only target a
// binding defined on every path that reaches the referencing step. Branch
// bindings are therefore referenceable only later within the same branch,
// and loop-body bindings only within the same iteration scope.
func Validate(p *Plan, reg primitive.Registry, opts ...ValidateOption) error {
	if p == nil || len(p.Steps) == 0 {
		return types.NewError(types.PLAN_MALFORMED, "plan has no steps")
	}

	v := &validator{reg: reg, coercion: CoerceStrict}
	for _, opt := range opts {
		opt(v)
	}

	scope := make(bindingScope)
	return v.checkSteps(p.Steps, scope)
}

// bindingScope maps binding ids visible at a point in the walk to the
// declared type of their value.
type bindingScope map[int]primitive.ValueType

func (s bindingScope) clone() bindingScope {
	out := make(bindingScope, len(s))
	for k, t := range s {
		out[k] = t
	}
	return out
}

type validator struct {
	reg      primitive.Registry
	coercion CoercionPolicy
}

func (v *validator) checkSteps(steps []Step, scope bindingScope) error {
	for i := range steps {
		if err := v.checkStep(&steps[i], scope); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) checkStep(step *Step, scope bindingScope) error {
	switch step.Kind {
	case StepCall:
		return v.checkCall(step, scope)
	case StepConditional:
		return v.checkConditional(step, scope)
	case StepLoop:
		return v.checkLoop(step, scope)
	default:
		return types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("step %d has unknown kind %q", step.ID, step.Kind))
	}
}

func (v *validator) checkCall(step *Step, scope bindingScope) error {
	prim, err := v.reg.Lookup(step.Primitive)
	if err != nil {
		return types.WrapError(types.PRIMITIVE_UNKNOWN,
			fmt.Sprintf("call step %d references undeclared primitive %q", step.ID, step.Primitive), err)
	}

	sig := prim.Signature()

	// Arity: every declared parameter bound, no extras.
	for _, param := range sig.Params {
		if _, ok := step.Args[param.Name]; !ok {
			return types.NewError(types.TYPE_MISMATCH,
				fmt.Sprintf("call step %d is missing argument for parameter %q of %s", step.ID, param.Name, step.Primitive))
		}
	}
	for name := range step.Args {
		if _, ok := sig.Param(name); !ok {
			return types.NewError(types.TYPE_MISMATCH,
				fmt.Sprintf("call step %d passes unknown parameter %q to %s", step.ID, name, step.Primitive))
		}
	}

	for _, param := range sig.Params {
		arg := step.Args[param.Name]
		argType, err := v.argType(step.ID, arg, scope)
		if err != nil {
			return err
		}
		if !v.compatible(argType, param.Type) {
			return types.NewError(types.TYPE_MISMATCH,
				fmt.Sprintf("call step %d argument %q has type %s, parameter declares %s",
					step.ID, param.Name, argType, param.Type))
		}
	}

	// The call's output becomes a binding visible to subsequent steps in
	// this scope.
	scope[step.ID] = sig.Returns
	return nil
}

func (v *validator) checkConditional(step *Step, scope bindingScope) error {
	if err := v.checkCondition(step.ID, step.Cond, scope); err != nil {
		return err
	}

	// Each branch sees the outer scope; neither branch's bindings survive
	// into the outer scope, since only one branch runs and references must
	// dominate.
	if err := v.checkSteps(step.Then, scope.clone()); err != nil {
		return err
	}
	if err := v.checkSteps(step.Else, scope.clone()); err != nil {
		return err
	}
	return nil
}

func (v *validator) checkLoop(step *Step, scope bindingScope) error {
	cursorType := primitive.TypeInt

	switch {
	case step.Count != nil:
		t, err := v.argType(step.ID, *step.Count, scope)
		if err != nil {
			return err
		}
		if !v.compatible(t, primitive.TypeInt) {
			return types.NewError(types.TYPE_MISMATCH,
				fmt.Sprintf("loop step %d count has type %s, expected int", step.ID, t))
		}
	case step.Over != nil:
		t, err := v.argType(step.ID, *step.Over, scope)
		if err != nil {
			return err
		}
		if !v.compatible(t, primitive.TypeList) {
			return types.NewError(types.TYPE_MISMATCH,
				fmt.Sprintf("loop step %d iterates over type %s, expected list", step.ID, t))
		}
		// Element types are not declared; the cursor is checked at runtime.
		cursorType = primitive.TypeAny
	case step.While != nil:
		if err := v.checkCondition(step.ID, step.While, scope); err != nil {
			return err
		}
	default:
		return types.NewError(types.PLAN_MALFORMED,
			fmt.Sprintf("loop step %d has no iteration driver", step.ID))
	}

	// Body bindings live in a fresh per-iteration scope: outer bindings
	// are readable, the cursor is defined at loop entry, and nothing
	// defined inside leaks out.
	bodyScope := scope.clone()
	if step.CursorID >= 0 {
		bodyScope[step.CursorID] = cursorType
	}
	return v.checkSteps(step.Body, bodyScope)
}

func (v *validator) checkCondition(stepID int, cond *Condition, scope bindingScope) error {
	if cond == nil {
		return types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("step %d is missing its condition", stepID))
	}

	leftType, err := v.argType(stepID, cond.Left, scope)
	if err != nil {
		return err
	}
	rightType, err := v.argType(stepID, cond.Right, scope)
	if err != nil {
		return err
	}

	switch cond.Op {
	case OpEq, OpNe:
		// Any pair of values may be compared for equality.
	case OpLt, OpLe, OpGt, OpGe:
		if !orderable(leftType) || !orderable(rightType) {
			return types.NewError(types.TYPE_MISMATCH,
				fmt.Sprintf("step %d condition compares %s against %s with %s; ordering requires numeric or string operands",
					stepID, leftType, rightType, cond.Op))
		}
	default:
		return types.NewError(types.PLAN_MALFORMED,
			fmt.Sprintf("step %d condition has unknown operator %q", stepID, cond.Op))
	}
	return nil
}

// argType resolves the declared type of an argument. References must
// target a visible binding with a strictly smaller id than the
// referencing step; anything else is an unresolved reference. Together
// with monotonic id assignment this categorically rejects forward and
// cyclic references.
func (v *validator) argType(stepID int, arg Arg, scope bindingScope) (primitive.ValueType, error) {
	if arg.Kind == ArgLiteral {
		return literalType(arg.Literal), nil
	}

	if arg.Ref >= stepID {
		return "", types.NewError(types.REFERENCE_UNRESOLVED,
			fmt.Sprintf("step %d references step %d, which is not earlier in the plan", stepID, arg.Ref))
	}
	t, ok := scope[arg.Ref]
	if !ok {
		return "", types.NewError(types.REFERENCE_UNRESOLVED,
			fmt.Sprintf("step %d references binding %d, which is not visible at this point", stepID, arg.Ref))
	}
	return t, nil
}

func (v *validator) compatible(actual, declared primitive.ValueType) bool {
	if declared == primitive.TypeAny || actual == primitive.TypeAny {
		return true
	}
	if actual == declared {
		return true
	}
	if v.coercion == CoercePermissive && declared == primitive.TypeFloat && actual == primitive.TypeInt {
		return true
	}
	return false
}

func orderable(t primitive.ValueType) bool {
	switch t {
	case primitive.TypeInt, primitive.TypeFloat, primitive.TypeString, primitive.TypeAny:
		return true
	default:
		return false
	}
}
