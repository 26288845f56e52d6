package primitive

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// Registry manages primitive registration, lookup, and invocation.
// It is built once at startup and frozen; a frozen registry is immutable
// and may be shared across any number of concurrent executions without
// synchronization on the caller's side.
type Registry interface {
	// Register adds a primitive to the registry
	Register(p Primitive) error

	// Lookup retrieves a primitive by name, returning an error if not found
	Lookup(name string) (Primitive, error)

	// List returns descriptors for all registered primitives, sorted by name
	List() []Descriptor

	// Invoke runs a primitive by name with the given arguments, recording metrics
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)

	// Freeze makes the registry immutable; further Register calls fail
	Freeze()

	// Metrics returns invocation metrics for a specific primitive
	Metrics(name string) (Metrics, error)
}

// DefaultRegistry implements Registry with thread-safe operations.
type DefaultRegistry struct {
	mu         sync.RWMutex
	primitives map[string]Primitive
	metrics    map[string]*Metrics
	frozen     bool
}

// NewRegistry creates a new empty DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		primitives: make(map[string]Primitive),
		metrics:    make(map[string]*Metrics),
	}
}

// Register adds a primitive to the registry.
// Returns PRIMITIVE_DUPLICATE if the name is already present and
// REGISTRY_FROZEN after Freeze has been called.
func (r *DefaultRegistry) Register(p Primitive) error {
	if p == nil {
		return types.NewError(types.PRIMITIVE_UNKNOWN, "primitive cannot be nil")
	}

	name := p.Name()
	if name == "" {
		return types.NewError(types.PRIMITIVE_UNKNOWN, "primitive name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return types.NewError(types.REGISTRY_FROZEN, fmt.Sprintf("cannot register %q: registry is frozen", name))
	}
	if _, exists := r.primitives[name]; exists {
		return types.NewError(types.PRIMITIVE_DUPLICATE, fmt.Sprintf("primitive %q already registered", name))
	}

	r.primitives[name] = p
	r.metrics[name] = NewMetrics()

	return nil
}

// Lookup retrieves a primitive by name.
// Returns PRIMITIVE_UNKNOWN if the primitive doesn't exist.
func (r *DefaultRegistry) Lookup(name string) (Primitive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.primitives[name]
	if !exists {
		return nil, types.NewError(types.PRIMITIVE_UNKNOWN, fmt.Sprintf("primitive %q not found", name))
	}
	return p, nil
}

// List returns descriptors for all registered primitives, sorted by name
// so the output is stable for prompts and rendering.
func (r *DefaultRegistry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.primitives))
	for _, p := range r.primitives {
		descriptors = append(descriptors, NewDescriptor(p))
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})

	return descriptors
}

// Invoke runs a primitive by name with the given arguments, recording metrics.
// Returns PRIMITIVE_UNKNOWN if the primitive doesn't exist.
func (r *DefaultRegistry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	p, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	output, invokeErr := p.Invoke(ctx, args)
	duration := time.Since(start)

	r.mu.Lock()
	if metrics, exists := r.metrics[name]; exists {
		if invokeErr != nil {
			metrics.RecordFailure(duration)
		} else {
			metrics.RecordSuccess(duration)
		}
	}
	r.mu.Unlock()

	if invokeErr != nil {
		return nil, types.WrapError(types.PRIMITIVE_EXECUTION_FAILED,
			fmt.Sprintf("primitive %q invocation failed", name), invokeErr)
	}

	return output, nil
}

// Freeze makes the registry immutable. Registration happens once at
// startup; everything after Freeze only reads.
func (r *DefaultRegistry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Metrics returns invocation metrics for a specific primitive.
// Returns PRIMITIVE_UNKNOWN if the primitive doesn't exist.
func (r *DefaultRegistry) Metrics(name string) (Metrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics, exists := r.metrics[name]
	if !exists {
		return Metrics{}, types.NewError(types.PRIMITIVE_UNKNOWN, fmt.Sprintf("primitive %q not found", name))
	}

	// Return a copy to prevent external modification
	return *metrics, nil
}
