package plan

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// rawStep mirrors the plan document schema. Documents are YAML; JSON
// documents parse through the same path since YAML is a superset.
type rawStep struct {
	ID        *int               `yaml:"id"`
	Kind      string             `yaml:"kind"`
	Primitive string             `yaml:"primitive"`
	Args      map[string]any     `yaml:"args"`
	Cond      *rawCondition      `yaml:"cond"`
	Then      []rawStep          `yaml:"then"`
	Else      []rawStep          `yaml:"else"`
	Count     *any               `yaml:"count"`
	Over      *any               `yaml:"over"`
	While     *rawCondition      `yaml:"while"`
	MaxIter   int                `yaml:"max_iterations"`
	Cursor    *int               `yaml:"cursor"`
	Body      []rawStep          `yaml:"body"`
}

type rawCondition struct {
	Left  any    `yaml:"left"`
	Op    string `yaml:"op"`
	Right any    `yaml:"right"`
}

type rawDocument struct {
	Steps []rawStep `yaml:"steps"`
}

// Parse decodes a plan document into a Plan, checking structure only:
// known step kinds, required fields, unique and monotonically increasing
// ids. It performs no registry resolution and no type checking; that is
// Validate's job.
func Parse(doc []byte) (*Plan, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, types.WrapError(types.PLAN_MALFORMED, "plan document is not valid YAML", err)
	}
	if len(raw.Steps) == 0 {
		return nil, types.NewError(types.PLAN_MALFORMED, "plan has no steps")
	}

	b := &builder{lastID: -1, seen: make(map[int]bool)}
	steps, err := b.buildSteps(raw.Steps)
	if err != nil {
		return nil, err
	}

	return &Plan{Steps: steps}, nil
}

// builder tracks id assignment across the whole document, nested
// sub-plans included. Ids must be unique and strictly increasing in
// document order; cursor ids participate in the same sequence.
type builder struct {
	lastID int
	seen   map[int]bool
}

func (b *builder) takeID(id int, what string) error {
	if id < 0 {
		return types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("%s id %d is negative", what, id))
	}
	if b.seen[id] {
		return types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("duplicate %s id %d", what, id))
	}
	if id <= b.lastID {
		return types.NewError(types.PLAN_MALFORMED,
			fmt.Sprintf("%s id %d is not monotonically increasing (previous id %d)", what, id, b.lastID))
	}
	b.seen[id] = true
	b.lastID = id
	return nil
}

func (b *builder) buildSteps(raws []rawStep) ([]Step, error) {
	steps := make([]Step, 0, len(raws))
	for i := range raws {
		step, err := b.buildStep(&raws[i])
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (b *builder) buildStep(raw *rawStep) (Step, error) {
	if raw.ID == nil {
		return Step{}, types.NewError(types.PLAN_MALFORMED, "step is missing an id")
	}
	id := *raw.ID
	if err := b.takeID(id, "step"); err != nil {
		return Step{}, err
	}

	switch StepKind(raw.Kind) {
	case StepCall:
		return b.buildCall(id, raw)
	case StepConditional:
		return b.buildConditional(id, raw)
	case StepLoop:
		return b.buildLoop(id, raw)
	case "":
		return Step{}, types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("step %d is missing a kind", id))
	default:
		return Step{}, types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("step %d has unknown kind %q", id, raw.Kind))
	}
}

func (b *builder) buildCall(id int, raw *rawStep) (Step, error) {
	if raw.Primitive == "" {
		return Step{}, types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("call step %d is missing a primitive name", id))
	}
	args := make(map[string]Arg, len(raw.Args))
	for name, v := range raw.Args {
		arg, err := argFromValue(v)
		if err != nil {
			return Step{}, types.WrapError(types.PLAN_MALFORMED,
				fmt.Sprintf("call step %d argument %q is malformed", id, name), err)
		}
		args[name] = arg
	}
	return Step{ID: id, Kind: StepCall, Primitive: raw.Primitive, Args: args}, nil
}

func (b *builder) buildConditional(id int, raw *rawStep) (Step, error) {
	if raw.Cond == nil {
		return Step{}, types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("conditional step %d is missing cond", id))
	}
	cond, err := conditionFromRaw(raw.Cond)
	if err != nil {
		return Step{}, types.WrapError(types.PLAN_MALFORMED,
			fmt.Sprintf("conditional step %d condition is malformed", id), err)
	}
	if len(raw.Then) == 0 {
		return Step{}, types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("conditional step %d has an empty then branch", id))
	}

	thenSteps, err := b.buildSteps(raw.Then)
	if err != nil {
		return Step{}, err
	}
	elseSteps, err := b.buildSteps(raw.Else)
	if err != nil {
		return Step{}, err
	}

	return Step{ID: id, Kind: StepConditional, Cond: &cond, Then: thenSteps, Else: elseSteps}, nil
}

func (b *builder) buildLoop(id int, raw *rawStep) (Step, error) {
	step := Step{ID: id, Kind: StepLoop, CursorID: -1, MaxIterations: raw.MaxIter}

	drivers := 0
	if raw.Count != nil {
		drivers++
		arg, err := argFromValue(*raw.Count)
		if err != nil {
			return Step{}, types.WrapError(types.PLAN_MALFORMED,
				fmt.Sprintf("loop step %d count is malformed", id), err)
		}
		step.Count = &arg
	}
	if raw.Over != nil {
		drivers++
		arg, err := argFromValue(*raw.Over)
		if err != nil {
			return Step{}, types.WrapError(types.PLAN_MALFORMED,
				fmt.Sprintf("loop step %d over is malformed", id), err)
		}
		step.Over = &arg
	}
	if raw.While != nil {
		drivers++
		cond, err := conditionFromRaw(raw.While)
		if err != nil {
			return Step{}, types.WrapError(types.PLAN_MALFORMED,
				fmt.Sprintf("loop step %d while condition is malformed", id), err)
		}
		step.While = &cond
		if raw.MaxIter <= 0 {
			return Step{}, types.NewError(types.PLAN_MALFORMED,
				fmt.Sprintf("loop step %d uses while and must declare max_iterations > 0", id))
		}
	}
	if drivers != 1 {
		return Step{}, types.NewError(types.PLAN_MALFORMED,
			fmt.Sprintf("loop step %d must declare exactly one of count, over, while", id))
	}

	if raw.Cursor != nil {
		if err := b.takeID(*raw.Cursor, "cursor"); err != nil {
			return Step{}, err
		}
		step.CursorID = *raw.Cursor
	}

	if len(raw.Body) == 0 {
		return Step{}, types.NewError(types.PLAN_MALFORMED, fmt.Sprintf("loop step %d has an empty body", id))
	}
	body, err := b.buildSteps(raw.Body)
	if err != nil {
		return Step{}, err
	}
	step.Body = body

	return step, nil
}

// argFromValue interprets a decoded document value as an Arg. A one-key
// mapping {ref: N} is a step reference; everything else is a literal.
func argFromValue(v any) (Arg, error) {
	if m, ok := v.(map[string]any); ok {
		if rv, exists := m["ref"]; exists && len(m) == 1 {
			id, ok := asInt(rv)
			if !ok {
				return Arg{}, fmt.Errorf("ref must be an integer step id, got %T", rv)
			}
			if id < 0 {
				return Arg{}, fmt.Errorf("ref must be a non-negative step id, got %d", id)
			}
			return RefArg(id), nil
		}
	}
	return LiteralArg(normalizeLiteral(v)), nil
}

func conditionFromRaw(raw *rawCondition) (Condition, error) {
	left, err := argFromValue(raw.Left)
	if err != nil {
		return Condition{}, fmt.Errorf("left operand: %w", err)
	}
	right, err := argFromValue(raw.Right)
	if err != nil {
		return Condition{}, fmt.Errorf("right operand: %w", err)
	}
	op := CompareOp(raw.Op)
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
	default:
		return Condition{}, fmt.Errorf("unknown comparison operator %q", raw.Op)
	}
	return Condition{Left: left, Op: op, Right: right}, nil
}

// normalizeLiteral canonicalizes decoded YAML scalars so literals compare
// and type-check uniformly: all integer widths become int, float32 becomes
// float64, map keys stay strings.
func normalizeLiteral(v any) any {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case uint64:
		return int(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeLiteral(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeLiteral(e)
		}
		return out
	default:
		return v
	}
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case uint64:
		return int(x), true
	default:
		return 0, false
	}
}
