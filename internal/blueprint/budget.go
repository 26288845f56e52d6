package blueprint

import (
	"fmt"
	"time"

	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// Budget bounds a goal-seeking run. Zero values mean unbounded for that
// dimension; a Budget with both dimensions zero is rejected so the loop
// can never run indefinitely.
type Budget struct {
	// MaxRounds is the maximum number of plan/execute/evaluate rounds.
	MaxRounds int

	// MaxDuration is the wall-clock bound for the whole run.
	MaxDuration time.Duration
}

// Validate checks that the budget actually bounds the loop.
func (b Budget) Validate() error {
	if b.MaxRounds < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "budget max rounds cannot be negative")
	}
	if b.MaxRounds == 0 && b.MaxDuration <= 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "budget must bound rounds or duration")
	}
	return nil
}

// budgetTracker enforces a Budget across rounds. The tracker belongs to
// one goal-seeking run and is not safe for concurrent use.
type budgetTracker struct {
	budget  Budget
	rounds  int
	started time.Time
}

func newBudgetTracker(b Budget) *budgetTracker {
	return &budgetTracker{budget: b, started: time.Now()}
}

// startRound authorizes one more round, consuming it. Returns
// BUDGET_EXCEEDED when the round or time budget is exhausted; exhaustion
// is a terminal outcome, not a defect.
func (t *budgetTracker) startRound() error {
	if t.budget.MaxRounds > 0 && t.rounds >= t.budget.MaxRounds {
		return types.NewError(types.BUDGET_EXCEEDED,
			fmt.Sprintf("round budget of %d exhausted", t.budget.MaxRounds))
	}
	if t.budget.MaxDuration > 0 && time.Since(t.started) >= t.budget.MaxDuration {
		return types.NewError(types.BUDGET_EXCEEDED,
			fmt.Sprintf("time budget of %s exhausted", t.budget.MaxDuration))
	}
	t.rounds++
	return nil
}

// roundsUsed returns the number of rounds consumed so far.
func (t *budgetTracker) roundsUsed() int {
	return t.rounds
}
