// Package planner provides planning and evaluation collaborators for the
// goal-seeking blueprint: an LLM-backed planner built on langchaingo and
// deterministic implementations for tests and static pipelines.
//
// Collaborators live outside the symbolic firewall. Everything they
// receive arrives as a scrubbed PlannerView; nothing in this package ever
// sees a binding value.
package planner

import (
	"context"
	"fmt"

	"github.com/OpenSymbolicAI/parapet/internal/blueprint"
	"github.com/OpenSymbolicAI/parapet/internal/firewall"
)

// Decomposition is a worked example pairing a natural-language intent
// with a reference plan document. Decompositions are few-shot material
// for the planner prompt only; the core never consumes them at runtime.
type Decomposition struct {
	Intent         string `yaml:"intent"`
	ExpandedIntent string `yaml:"expanded_intent"`
	ReferencePlan  string `yaml:"reference_plan"`
}

// Static is a Planner that replays a fixed sequence of plan documents,
// one per round. Useful for tests and for re-running recorded plans.
type Static struct {
	docs [][]byte
	next int
}

// NewStatic creates a Static planner over the given documents.
func NewStatic(docs ...[]byte) *Static {
	return &Static{docs: docs}
}

// ProposePlan returns the next document in the sequence. Once exhausted,
// it keeps returning the last document; budget enforcement is the
// controller's job.
func (s *Static) ProposePlan(_ context.Context, _ string, _ firewall.PlannerView) ([]byte, error) {
	if len(s.docs) == 0 {
		return nil, fmt.Errorf("static planner has no documents")
	}
	doc := s.docs[s.next]
	if s.next < len(s.docs)-1 {
		s.next++
	}
	return doc, nil
}

// EvaluatorFunc adapts a function into a blueprint.Evaluator.
type EvaluatorFunc func(ctx context.Context, goal string, view firewall.PlannerView) (blueprint.Verdict, error)

// Assess implements blueprint.Evaluator.
func (f EvaluatorFunc) Assess(ctx context.Context, goal string, view firewall.PlannerView) (blueprint.Verdict, error) {
	return f(ctx, goal, view)
}

// SuccessEvaluator is satisfied as soon as a round's records all report a
// success outcome. It inspects only scrubbed outcomes, never values.
func SuccessEvaluator() EvaluatorFunc {
	return func(_ context.Context, _ string, view firewall.PlannerView) (blueprint.Verdict, error) {
		if len(view.Records) == 0 {
			return blueprint.Verdict{Satisfied: false, Reason: "no steps executed"}, nil
		}
		for _, r := range view.Records {
			if r.Outcome != "success" {
				return blueprint.Verdict{
					Satisfied: false,
					Reason:    fmt.Sprintf("step %d ended with outcome %s", r.StepID, r.Outcome),
				}, nil
			}
		}
		return blueprint.Verdict{Satisfied: true, Reason: "all steps succeeded"}, nil
	}
}
