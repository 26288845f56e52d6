package primitive

import (
	"context"

	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// Primitive represents an atomic, declared operation that a plan may call.
// Primitives are the only callables a plan can ever address: the registry
// is a closed world, and the validator resolves every call step against it
// before execution begins.
type Primitive interface {
	// Name returns the unique identifier for this primitive
	Name() string

	// Description returns a human-readable description of what this primitive does
	Description() string

	// Signature returns the declared parameter list and return type
	Signature() Signature

	// Mode returns the permission flag (read_only or effecting)
	Mode() Mode

	// Invoke runs the primitive with already-resolved arguments keyed by
	// parameter name. Context is used for cancellation and deadlines;
	// primitives must cooperate with cancellation. Each primitive is
	// responsible for its own atomicity; the executor never rolls back.
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// InvokeFunc is the function shape adapted by Func.
type InvokeFunc func(ctx context.Context, args map[string]any) (any, error)

// Func adapts a plain Go function into a Primitive with a declared
// signature and mode.
type Func struct {
	name        string
	description string
	signature   Signature
	mode        Mode
	fn          InvokeFunc
}

// NewFunc creates a Primitive from a function. The signature is declared,
// not inferred; the validator trusts it, so the function must honor it.
func NewFunc(name, description string, sig Signature, mode Mode, fn InvokeFunc) (*Func, error) {
	if name == "" {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "primitive name cannot be empty")
	}
	if fn == nil {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "primitive function cannot be nil")
	}
	if mode != ModeReadOnly && mode != ModeEffecting {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "primitive mode must be read_only or effecting")
	}
	return &Func{
		name:        name,
		description: description,
		signature:   sig,
		mode:        mode,
		fn:          fn,
	}, nil
}

// MustFunc is like NewFunc but panics on invalid declarations. Intended for
// startup-time registration of built-in primitives.
func MustFunc(name, description string, sig Signature, mode Mode, fn InvokeFunc) *Func {
	p, err := NewFunc(name, description, sig, mode, fn)
	if err != nil {
		panic(err)
	}
	return p
}

func (f *Func) Name() string         { return f.name }
func (f *Func) Description() string  { return f.description }
func (f *Func) Signature() Signature { return f.signature }
func (f *Func) Mode() Mode           { return f.mode }

func (f *Func) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return f.fn(ctx, args)
}
