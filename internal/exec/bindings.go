package exec

import (
	"fmt"

	"github.com/OpenSymbolicAI/parapet/internal/firewall"
)

// Env is the single-assignment binding environment of one execution. Loop
// iterations get a child Env chained to the outer one: outer bindings are
// readable, iteration-local bindings are written into the child and
// discarded with it at the iteration boundary.
//
// An Env is exclusive to one logical walker and never shared across
// executions.
type Env struct {
	parent *Env
	vals   map[int]any
}

// NewEnv creates a root environment, optionally seeded with initial
// context bindings.
func NewEnv(seed map[int]any) *Env {
	vals := make(map[int]any, len(seed))
	for id, v := range seed {
		vals[id] = v
	}
	return &Env{vals: vals}
}

// child creates an iteration scope chained to e.
func (e *Env) child() *Env {
	return &Env{parent: e, vals: make(map[int]any)}
}

// Get resolves a binding id, walking outward through enclosing scopes.
func (e *Env) Get(id int) (any, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vals[id]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set writes a binding exactly once. Writing an id already defined in this
// or any enclosing scope is a firewall violation: bindings are never
// mutated after first write, and outer bindings may not be rebound from a
// loop body.
func (e *Env) Set(id int, v any) error {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vals[id]; ok {
			return firewall.NewViolation(firewall.RuleSingleAssignment,
				fmt.Sprintf("binding %d is already defined and cannot be rebound", id))
		}
	}
	e.vals[id] = v
	return nil
}
