// Package builtins provides the built-in primitive set: arithmetic,
// string, and collection operations, all read-only, plus an effecting
// emit primitive that writes to a configured sink. The CLI registers
// them as its demo catalog; tests use them as deterministic fixtures.
package builtins

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/OpenSymbolicAI/parapet/internal/primitive"
)

// Config holds dependencies for the builtin primitives.
type Config struct {
	// EmitWriter receives the output of the emit primitive. Required for
	// emit to be registered; when nil, emit is skipped.
	EmitWriter io.Writer
}

// Register registers all builtin primitives with the provided registry.
// Returns the first error encountered during registration.
func Register(reg primitive.Registry, cfg Config) error {
	prims := []primitive.Primitive{
		addPrimitive(),
		subPrimitive(),
		mulPrimitive(),
		divPrimitive(),
		concatPrimitive(),
		upperPrimitive(),
		lowerPrimitive(),
		lengthPrimitive(),
		seqPrimitive(),
		sumPrimitive(),
		pickPrimitive(),
	}
	if cfg.EmitWriter != nil {
		prims = append(prims, emitPrimitive(cfg.EmitWriter))
	}

	for _, p := range prims {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

func binaryFloatSig() primitive.Signature {
	return primitive.Signature{
		Params: []primitive.Param{
			{Name: "a", Type: primitive.TypeFloat},
			{Name: "b", Type: primitive.TypeFloat},
		},
		Returns: primitive.TypeFloat,
	}
}

func addPrimitive() primitive.Primitive {
	return primitive.MustFunc("add", "Add two numbers", binaryFloatSig(), primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			a, b, err := floatPair(args)
			if err != nil {
				return nil, err
			}
			return a + b, nil
		})
}

func subPrimitive() primitive.Primitive {
	return primitive.MustFunc("sub", "Subtract b from a", binaryFloatSig(), primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			a, b, err := floatPair(args)
			if err != nil {
				return nil, err
			}
			return a - b, nil
		})
}

func mulPrimitive() primitive.Primitive {
	return primitive.MustFunc("mul", "Multiply two numbers", binaryFloatSig(), primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			a, b, err := floatPair(args)
			if err != nil {
				return nil, err
			}
			return a * b, nil
		})
}

func divPrimitive() primitive.Primitive {
	return primitive.MustFunc("div", "Divide a by b", binaryFloatSig(), primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			a, b, err := floatPair(args)
			if err != nil {
				return nil, err
			}
			if b == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return a / b, nil
		})
}

func concatPrimitive() primitive.Primitive {
	sig := primitive.Signature{
		Params: []primitive.Param{
			{Name: "a", Type: primitive.TypeString},
			{Name: "b", Type: primitive.TypeString},
		},
		Returns: primitive.TypeString,
	}
	return primitive.MustFunc("concat", "Concatenate two strings", sig, primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			a, _ := args["a"].(string)
			b, _ := args["b"].(string)
			return a + b, nil
		})
}

func upperPrimitive() primitive.Primitive {
	return stringUnary("upper", "Uppercase a string", strings.ToUpper)
}

func lowerPrimitive() primitive.Primitive {
	return stringUnary("lower", "Lowercase a string", strings.ToLower)
}

func stringUnary(name, desc string, fn func(string) string) primitive.Primitive {
	sig := primitive.Signature{
		Params:  []primitive.Param{{Name: "s", Type: primitive.TypeString}},
		Returns: primitive.TypeString,
	}
	return primitive.MustFunc(name, desc, sig, primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			s, ok := args["s"].(string)
			if !ok {
				return nil, fmt.Errorf("s must be a string, got %T", args["s"])
			}
			return fn(s), nil
		})
}

func lengthPrimitive() primitive.Primitive {
	sig := primitive.Signature{
		Params:  []primitive.Param{{Name: "v", Type: primitive.TypeAny}},
		Returns: primitive.TypeInt,
	}
	return primitive.MustFunc("length", "Length of a string or list", sig, primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			switch x := args["v"].(type) {
			case string:
				return len(x), nil
			case []any:
				return len(x), nil
			default:
				return nil, fmt.Errorf("length expects a string or list, got %T", x)
			}
		})
}

func seqPrimitive() primitive.Primitive {
	sig := primitive.Signature{
		Params:  []primitive.Param{{Name: "n", Type: primitive.TypeInt}},
		Returns: primitive.TypeList,
	}
	return primitive.MustFunc("seq", "List of integers 0..n-1", sig, primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			n, ok := args["n"].(int)
			if !ok {
				return nil, fmt.Errorf("n must be an int, got %T", args["n"])
			}
			if n < 0 {
				return nil, fmt.Errorf("n must be non-negative, got %d", n)
			}
			out := make([]any, n)
			for i := 0; i < n; i++ {
				out[i] = i
			}
			return out, nil
		})
}

func sumPrimitive() primitive.Primitive {
	sig := primitive.Signature{
		Params:  []primitive.Param{{Name: "values", Type: primitive.TypeList}},
		Returns: primitive.TypeFloat,
	}
	return primitive.MustFunc("sum", "Sum of a list of numbers", sig, primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			values, ok := args["values"].([]any)
			if !ok {
				return nil, fmt.Errorf("values must be a list, got %T", args["values"])
			}
			total := 0.0
			for i, v := range values {
				f, ok := toFloat(v)
				if !ok {
					return nil, fmt.Errorf("element %d is not a number: %T", i, v)
				}
				total += f
			}
			return total, nil
		})
}

func pickPrimitive() primitive.Primitive {
	sig := primitive.Signature{
		Params: []primitive.Param{
			{Name: "values", Type: primitive.TypeList},
			{Name: "index", Type: primitive.TypeInt},
		},
		Returns: primitive.TypeAny,
	}
	return primitive.MustFunc("pick", "Element of a list by index", sig, primitive.ModeReadOnly,
		func(_ context.Context, args map[string]any) (any, error) {
			values, ok := args["values"].([]any)
			if !ok {
				return nil, fmt.Errorf("values must be a list, got %T", args["values"])
			}
			index, ok := args["index"].(int)
			if !ok {
				return nil, fmt.Errorf("index must be an int, got %T", args["index"])
			}
			if index < 0 || index >= len(values) {
				return nil, fmt.Errorf("index %d out of range for list of %d", index, len(values))
			}
			return values[index], nil
		})
}

// emitPrimitive writes its value to the configured sink. It is the one
// effecting builtin: the executor never re-runs or reorders it.
func emitPrimitive(w io.Writer) primitive.Primitive {
	var mu sync.Mutex
	sig := primitive.Signature{
		Params:  []primitive.Param{{Name: "value", Type: primitive.TypeAny}},
		Returns: primitive.TypeAny,
	}
	return primitive.MustFunc("emit", "Write a value to the output sink", sig, primitive.ModeEffecting,
		func(_ context.Context, args map[string]any) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			if _, err := fmt.Fprintln(w, args["value"]); err != nil {
				return nil, err
			}
			return args["value"], nil
		})
}

func floatPair(args map[string]any) (float64, float64, error) {
	a, ok := toFloat(args["a"])
	if !ok {
		return 0, 0, fmt.Errorf("a must be a number, got %T", args["a"])
	}
	b, ok := toFloat(args["b"])
	if !ok {
		return 0, 0, fmt.Errorf("b must be a number, got %T", args["b"])
	}
	return a, b, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}
