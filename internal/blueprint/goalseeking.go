package blueprint

import (
	"context"
	"errors"
	"log/slog"

	"github.com/OpenSymbolicAI/parapet/internal/exec"
	"github.com/OpenSymbolicAI/parapet/internal/firewall"
	"github.com/OpenSymbolicAI/parapet/internal/plan"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// Planner is the external planning collaborator. It receives the goal and
// a firewall-scrubbed view of prior rounds, and produces a candidate plan
// document. The core makes no assumption about how the document was
// produced; its contracts hold regardless.
type Planner interface {
	ProposePlan(ctx context.Context, goal string, view firewall.PlannerView) ([]byte, error)
}

// Evaluator is the external evaluation collaborator judging goal
// satisfaction. Like the planner, it only ever sees a scrubbed view.
type Evaluator interface {
	Assess(ctx context.Context, goal string, view firewall.PlannerView) (Verdict, error)
}

// Verdict is the evaluator's judgment for one round.
type Verdict struct {
	Satisfied bool
	Reason    string
}

// Round captures one plan/execute/evaluate iteration of a goal-seeking run.
type Round struct {
	ID      types.ID
	Doc     []byte
	Plan    *plan.Plan
	Trace   *exec.Trace
	Status  exec.Status
	Verdict *Verdict
	Err     error
}

// GoalSeeker iterates planning and execution until the evaluator is
// satisfied or the budget is exhausted. Validation failures consume a
// round and are fed back to the planner as structural feedback, never as
// data; a corrected plan may then be submitted, since no side effect has
// occurred.
type GoalSeeker struct {
	runner    *Runner
	planner   Planner
	evaluator Evaluator
	budget    Budget
	logger    *slog.Logger
}

// GoalSeekerOption is a functional option for configuring a GoalSeeker.
type GoalSeekerOption func(*GoalSeeker)

// WithGoalSeekerLogger sets the logger.
func WithGoalSeekerLogger(l *slog.Logger) GoalSeekerOption {
	return func(g *GoalSeeker) {
		g.logger = l
	}
}

// NewGoalSeeker creates a GoalSeeker.
func NewGoalSeeker(runner *Runner, planner Planner, evaluator Evaluator, budget Budget, opts ...GoalSeekerOption) (*GoalSeeker, error) {
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	g := &GoalSeeker{
		runner:    runner,
		planner:   planner,
		evaluator: evaluator,
		budget:    budget,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Seek runs the goal-seeking loop. It returns the history of all rounds
// together with the terminal status: Success once the evaluator is
// satisfied, BudgetExceeded when the budget runs out, Cancelled on
// context cancellation. Budget exhaustion is a terminal outcome, not an
// error.
func (g *GoalSeeker) Seek(ctx context.Context, goal string) (*Result, error) {
	result := &Result{
		RunID: types.NewID(),
		Trace: exec.NewTrace(),
	}
	tracker := newBudgetTracker(g.budget)
	view := g.scrubbed(nil, nil)
	var history []firewall.RoundOutline

	for {
		if err := ctx.Err(); err != nil {
			result.Status = exec.StatusCancelled
			return result, types.WrapError(types.EXECUTION_CANCELLED, "goal seeking cancelled", err)
		}
		if err := tracker.startRound(); err != nil {
			g.logger.Info("goal seeking budget exhausted",
				"run_id", result.RunID, "rounds", tracker.roundsUsed(),
			)
			result.Status = exec.StatusBudgetExceeded
			return result, nil
		}

		round := Round{ID: types.NewID()}

		doc, err := g.planner.ProposePlan(ctx, goal, view)
		if err != nil {
			round.Err = types.WrapError(types.PLANNER_FAILED, "planner did not produce a plan", err)
			result.History = append(result.History, round)
			result.Status = exec.StatusFailed
			return result, round.Err
		}
		round.Doc = doc

		p, tr, status, execErr := g.runner.runPlan(ctx, doc)
		round.Plan = p
		round.Trace = tr
		round.Status = status
		round.Err = execErr

		view = g.scrubbed(p, tr)
		if execErr != nil && tr.Len() == 0 {
			// Plan rejected before any side effect: feed the structural
			// error code back so the planner can submit a corrected plan.
			view.Records = append(view.Records, firewall.RecordOutline{
				StepID:  -1,
				Outcome: "rejected",
				Code:    types.CodeOf(execErr),
			})
		}

		// The view keeps every completed round, so later planner calls see
		// the whole run's scrubbed outcomes, not just the latest plan.
		history = append(history, firewall.RoundOutline{
			Round:   tracker.roundsUsed(),
			Steps:   view.Steps,
			Records: view.Records,
		})
		view.Rounds = history

		verdict, err := g.evaluator.Assess(ctx, goal, view)
		if err != nil {
			round.Err = types.WrapError(types.EVALUATOR_FAILED, "evaluator did not produce a verdict", err)
			result.History = append(result.History, round)
			result.Status = exec.StatusFailed
			return result, round.Err
		}
		round.Verdict = &verdict
		result.History = append(result.History, round)

		g.logger.Info("goal seeking round finished",
			"run_id", result.RunID,
			"round", tracker.roundsUsed(),
			"status", status,
			"satisfied", verdict.Satisfied,
		)

		if verdict.Satisfied {
			result.Trace = tr
			result.Status = status
			result.Final, _ = tr.Final()
			return result, execErr
		}

		if execErr != nil && errors.Is(execErr, &types.ParapetError{Code: types.EXECUTION_CANCELLED}) {
			result.Status = exec.StatusCancelled
			return result, execErr
		}
	}
}

// scrubbed builds the only payload shape that may cross toward the
// planner or evaluator. Binding values never pass this point.
func (g *GoalSeeker) scrubbed(p *plan.Plan, tr *exec.Trace) firewall.PlannerView {
	var records []firewall.RecordOutline
	if tr != nil {
		records = tr.Outline()
	}
	return firewall.Scrub(g.runner.reg.List(), p, records)
}
