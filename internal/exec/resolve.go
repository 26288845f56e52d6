package exec

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/OpenSymbolicAI/parapet/internal/plan"
	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// resolveArgs materializes a call step's argument map from the binding
// environment, applying the literal coercion policy against the declared
// signature. Validation has already checked types; the runtime checks
// here only guard against bindings that legitimately cannot be proven
// statically (TypeAny values).
func (w *walker) resolveArgs(step *plan.Step, sig primitive.Signature, env *Env) (map[string]any, error) {
	inputs := make(map[string]any, len(step.Args))
	for _, param := range sig.Params {
		arg := step.Args[param.Name]
		v, err := w.resolveArg(step.ID, arg, env)
		if err != nil {
			return nil, err
		}
		inputs[param.Name] = w.coerce(v, param.Type)
	}
	return inputs, nil
}

func (w *walker) resolveArg(stepID int, arg plan.Arg, env *Env) (any, error) {
	if arg.Kind == plan.ArgLiteral {
		return arg.Literal, nil
	}
	v, ok := env.Get(arg.Ref)
	if !ok {
		return nil, types.NewError(types.REFERENCE_UNRESOLVED,
			fmt.Sprintf("step %d references binding %d, which holds no value", stepID, arg.Ref))
	}
	return v, nil
}

// coerce applies the configured literal coercion policy to a resolved
// value. Strict mode passes values through untouched.
func (w *walker) coerce(v any, declared primitive.ValueType) any {
	if w.exec.coercion != plan.CoercePermissive || declared != primitive.TypeFloat {
		return v
	}
	if n, ok := asInt(v); ok {
		return float64(n)
	}
	return v
}

func (w *walker) resolveCount(step *plan.Step, env *Env) (int, error) {
	v, err := w.resolveArg(step.ID, *step.Count, env)
	if err != nil {
		return 0, err
	}
	n, ok := asInt(v)
	if !ok {
		return 0, types.NewError(types.TYPE_MISMATCH,
			fmt.Sprintf("loop step %d count resolved to %T, expected int", step.ID, v))
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

func (w *walker) resolveSequence(step *plan.Step, env *Env) ([]any, error) {
	v, err := w.resolveArg(step.ID, *step.Over, env)
	if err != nil {
		return nil, err
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, types.NewError(types.TYPE_MISMATCH,
			fmt.Sprintf("loop step %d iterates over %T, expected list", step.ID, v))
	}
	return seq, nil
}

// evalCondition evaluates a boolean comparison over current bindings.
func (w *walker) evalCondition(stepID int, cond *plan.Condition, env *Env) (bool, error) {
	left, err := w.resolveArg(stepID, cond.Left, env)
	if err != nil {
		return false, err
	}
	right, err := w.resolveArg(stepID, cond.Right, env)
	if err != nil {
		return false, err
	}

	switch cond.Op {
	case plan.OpEq:
		return valuesEqual(left, right), nil
	case plan.OpNe:
		return !valuesEqual(left, right), nil
	case plan.OpLt, plan.OpLe, plan.OpGt, plan.OpGe:
		c, err := compareOrdered(left, right)
		if err != nil {
			return false, types.WrapError(types.TYPE_MISMATCH,
				fmt.Sprintf("step %d condition cannot be evaluated", stepID), err)
		}
		switch cond.Op {
		case plan.OpLt:
			return c < 0, nil
		case plan.OpLe:
			return c <= 0, nil
		case plan.OpGt:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	default:
		return false, types.NewError(types.PLAN_MALFORMED,
			fmt.Sprintf("step %d condition has unknown operator %q", stepID, cond.Op))
	}
}

// valuesEqual compares two values, treating numeric values of different
// widths as equal when they represent the same number.
func valuesEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareOrdered returns -1, 0, or 1. Both operands must be numeric, or
// both strings.
func compareOrdered(a, b any) (int, error) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, fmt.Errorf("cannot order %T against %T", a, b)
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return 0, fmt.Errorf("cannot order %T against %T", a, b)
		}
		return strings.Compare(as, bs), nil
	}
	return 0, fmt.Errorf("values of type %T are not orderable", a)
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint:
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		return int(x), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	if n, ok := asInt(v); ok {
		return float64(n), true
	}
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
