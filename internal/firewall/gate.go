// Package firewall enforces the symbolic boundary between plan execution
// and planning collaborators. The gate keeps the primitive namespace
// closed, prevents effecting primitives from being replayed, and scrubs
// every payload that crosses toward a planner or evaluator so that no
// concrete binding value ever reaches model context.
package firewall

import (
	"fmt"
	"sync"

	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// Rule identifies which firewall rule a violation breached.
type Rule string

const (
	// RuleClosedWorld: only registry-declared names are ever invocable.
	RuleClosedWorld Rule = "closed_world"

	// RuleDataIsolation: binding values never cross into planner or
	// evaluator payloads.
	RuleDataIsolation Rule = "data_isolation"

	// RuleEffectReplay: an effecting primitive is never re-invoked for the
	// same step in the same scope.
	RuleEffectReplay Rule = "effect_replay"

	// RuleSingleAssignment: a binding id is written at most once per scope.
	RuleSingleAssignment Rule = "single_assignment"
)

// ViolationError reports a breached firewall rule. Violations always fail
// closed and abort the execution; they are never downgraded to warnings,
// and the distinct type keeps them separable from ordinary execution
// failures for audit purposes.
type ViolationError struct {
	Rule   Rule
	Detail string
}

// Error implements the error interface
func (e *ViolationError) Error() string {
	return fmt.Sprintf("firewall violation (%s): %s", e.Rule, e.Detail)
}

// NewViolation creates a ViolationError wrapped in a ParapetError carrying
// the FIREWALL_VIOLATION code, so both errors.As on the violation and
// code-based matching work.
func NewViolation(rule Rule, detail string) error {
	return types.WrapError(types.FIREWALL_VIOLATION,
		"execution aborted", &ViolationError{Rule: rule, Detail: detail})
}

// Gate is the cross-cutting firewall checkpoint shared by the validator
// (symbol resolution) and the executor (around every primitive call).
// A Gate is stateless and safe for concurrent use; per-execution replay
// state lives in the RunGuard it issues.
type Gate struct{}

// NewGate creates a Gate.
func NewGate() *Gate {
	return &Gate{}
}

// CheckInvocable resolves a primitive name against the registry under the
// closed-world rule. Any name the registry does not declare fails closed.
func (g *Gate) CheckInvocable(reg primitive.Registry, name string) (primitive.Primitive, error) {
	p, err := reg.Lookup(name)
	if err != nil {
		return nil, NewViolation(RuleClosedWorld,
			fmt.Sprintf("primitive %q is not declared in the registry", name))
	}
	return p, nil
}

// NewRun issues a RunGuard scoped to one execution.
func (g *Gate) NewRun() *RunGuard {
	return &RunGuard{invoked: make(map[invocationKey]bool)}
}

type invocationKey struct {
	scope  string
	stepID int
}

// RunGuard tracks primitive invocations within a single execution and
// enforces the permission flag: read_only primitives may be re-run, an
// effecting primitive may fire at most once per step per scope. Loop
// iterations are distinct scopes, so a body step firing once per
// iteration is legal.
type RunGuard struct {
	mu      sync.Mutex
	invoked map[invocationKey]bool
}

// ApproveInvocation authorizes the invocation of p for the given step in
// the given scope, recording it. Returns a firewall violation when an
// effecting primitive would be replayed.
func (rg *RunGuard) ApproveInvocation(scope string, stepID int, p primitive.Primitive) error {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	key := invocationKey{scope: scope, stepID: stepID}
	if rg.invoked[key] && p.Mode() == primitive.ModeEffecting {
		return NewViolation(RuleEffectReplay,
			fmt.Sprintf("effecting primitive %q would be re-invoked for step %d", p.Name(), stepID))
	}
	rg.invoked[key] = true
	return nil
}
