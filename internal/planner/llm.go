package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/OpenSymbolicAI/parapet/internal/blueprint"
	"github.com/OpenSymbolicAI/parapet/internal/firewall"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// LLM is a Planner backed by a langchaingo model. The prompt it builds
// contains only firewall-approved material: the goal text, declared
// primitive signatures, plan structure, scrubbed outcomes, and authored
// decompositions.
type LLM struct {
	model          llms.Model
	decompositions []Decomposition
	temperature    float64
	logger         *slog.Logger
}

// LLMOption is a functional option for configuring an LLM planner.
type LLMOption func(*LLM)

// WithDecompositions supplies worked examples for the prompt.
func WithDecompositions(ds ...Decomposition) LLMOption {
	return func(l *LLM) {
		l.decompositions = append(l.decompositions, ds...)
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) LLMOption {
	return func(l *LLM) {
		l.temperature = t
	}
}

// WithLLMLogger sets the logger.
func WithLLMLogger(log *slog.Logger) LLMOption {
	return func(l *LLM) {
		l.logger = log
	}
}

// NewLLM creates an LLM planner over a langchaingo model.
func NewLLM(model llms.Model, opts ...LLMOption) *LLM {
	l := &LLM{
		model:       model,
		temperature: 0.2,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ProposePlan asks the model for a plan document and extracts it from the
// response.
func (l *LLM) ProposePlan(ctx context.Context, goal string, view firewall.PlannerView) ([]byte, error) {
	prompt := l.buildPrompt(goal, view)

	l.logger.Debug("requesting plan from model", "prompt_bytes", len(prompt))

	response, err := llms.GenerateFromSinglePrompt(ctx, l.model, prompt,
		llms.WithTemperature(l.temperature),
	)
	if err != nil {
		return nil, types.NewRetryableError(types.PLANNER_FAILED, fmt.Sprintf("model call failed: %v", err))
	}

	doc, err := ExtractDocument(response)
	if err != nil {
		return nil, types.WrapError(types.PLANNER_FAILED, "model response contained no plan document", err)
	}
	return doc, nil
}

func (l *LLM) buildPrompt(goal string, view firewall.PlannerView) string {
	var b strings.Builder

	b.WriteString("You are a planner. Produce a plan as a YAML document with a top-level `steps` list.\n")
	b.WriteString("Each step has an integer `id` (strictly increasing) and a `kind` of call, conditional, or loop.\n")
	b.WriteString("A call step names a `primitive` from the catalog below and binds `args` by parameter name;\n")
	b.WriteString("an argument is a literal or `{ref: N}` referencing an earlier step's output.\n")
	b.WriteString("Only catalog primitives may be called. Reply with the YAML document in a code block.\n\n")

	b.WriteString(view.Render())
	b.WriteByte('\n')

	for i, d := range l.decompositions {
		fmt.Fprintf(&b, "example %d:\nintent: %s\n", i+1, d.Intent)
		if d.ExpandedIntent != "" {
			fmt.Fprintf(&b, "expanded intent: %s\n", d.ExpandedIntent)
		}
		fmt.Fprintf(&b, "plan:\n```yaml\n%s\n```\n\n", strings.TrimSpace(d.ReferencePlan))
	}

	fmt.Fprintf(&b, "goal: %s\n", goal)

	return b.String()
}

// LLMEvaluator judges goal satisfaction from the scrubbed view using a
// langchaingo model. The model sees outcomes and structure, never values.
type LLMEvaluator struct {
	model  llms.Model
	logger *slog.Logger
}

// NewLLMEvaluator creates an LLM-backed evaluator.
func NewLLMEvaluator(model llms.Model) *LLMEvaluator {
	return &LLMEvaluator{model: model, logger: slog.Default()}
}

// Assess implements blueprint.Evaluator.
func (e *LLMEvaluator) Assess(ctx context.Context, goal string, view firewall.PlannerView) (blueprint.Verdict, error) {
	var b strings.Builder
	b.WriteString("Judge whether the executed plan below satisfied the goal.\n")
	b.WriteString("You see plan structure and per-step outcomes only.\n")
	b.WriteString("Reply with a single line: SATISFIED <reason> or UNSATISFIED <reason>.\n\n")
	b.WriteString(view.Render())
	fmt.Fprintf(&b, "\ngoal: %s\n", goal)

	response, err := llms.GenerateFromSinglePrompt(ctx, e.model, b.String())
	if err != nil {
		return blueprint.Verdict{}, types.NewRetryableError(types.EVALUATOR_FAILED, fmt.Sprintf("model call failed: %v", err))
	}

	line := strings.TrimSpace(response)
	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "SATISFIED"):
		return blueprint.Verdict{Satisfied: true, Reason: strings.TrimSpace(line[len("SATISFIED"):])}, nil
	case strings.HasPrefix(upper, "UNSATISFIED"):
		return blueprint.Verdict{Satisfied: false, Reason: strings.TrimSpace(line[len("UNSATISFIED"):])}, nil
	default:
		return blueprint.Verdict{}, types.NewError(types.EVALUATOR_FAILED,
			"model verdict did not start with SATISFIED or UNSATISFIED")
	}
}
