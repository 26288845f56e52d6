package firewall

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OpenSymbolicAI/parapet/internal/plan"
	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// StepOutline is the structural projection of a plan step: ids, kinds,
// primitive names, and nesting. Argument values are deliberately absent;
// references are represented only as the referenced id.
type StepOutline struct {
	ID        int            `json:"id"`
	Kind      plan.StepKind  `json:"kind"`
	Primitive string         `json:"primitive,omitempty"`
	Refs      []int          `json:"refs,omitempty"`
	Then      []StepOutline  `json:"then,omitempty"`
	Else      []StepOutline  `json:"else,omitempty"`
	Body      []StepOutline  `json:"body,omitempty"`
}

// RecordOutline is the scrubbed projection of one trace record: outcome
// and error code only, never resolved inputs, outputs, or primitive error
// text.
type RecordOutline struct {
	StepID    int             `json:"step_id"`
	Primitive string          `json:"primitive"`
	Outcome   string          `json:"outcome"`
	Code      types.ErrorCode `json:"code,omitempty"`
	LoopID    int             `json:"loop_id,omitempty"`
	Iteration int             `json:"iteration,omitempty"`
}

// RoundOutline groups the scrubbed projection of one goal-seeking round:
// the round number, the proposed plan's structure, and its outcomes.
type RoundOutline struct {
	Round   int             `json:"round"`
	Steps   []StepOutline   `json:"steps,omitempty"`
	Records []RecordOutline `json:"records,omitempty"`
}

// PlannerView is the only payload shape permitted to cross toward a
// planning or evaluation collaborator: declared primitive signatures,
// plan structure, and scrubbed outcomes. Steps and Records describe the
// latest plan; Rounds carries the full per-round history of a
// goal-seeking run, latest round included.
type PlannerView struct {
	Primitives []primitive.Descriptor `json:"primitives"`
	Steps      []StepOutline          `json:"steps,omitempty"`
	Records    []RecordOutline        `json:"records,omitempty"`
	Rounds     []RoundOutline         `json:"rounds,omitempty"`
}

// Scrub assembles a PlannerView from registry descriptors, an optional
// plan, and scrubbed trace outlines. It is the single construction point
// for planner-bound payloads.
func Scrub(descriptors []primitive.Descriptor, p *plan.Plan, records []RecordOutline) PlannerView {
	view := PlannerView{
		Primitives: descriptors,
		Records:    records,
	}
	if p != nil {
		view.Steps = OutlinePlan(p)
	}
	return view
}

// OutlinePlan projects a plan onto its control-flow structure.
func OutlinePlan(p *plan.Plan) []StepOutline {
	return outlineSteps(p.Steps)
}

func outlineSteps(steps []plan.Step) []StepOutline {
	out := make([]StepOutline, 0, len(steps))
	for i := range steps {
		s := &steps[i]
		o := StepOutline{ID: s.ID, Kind: s.Kind}
		switch s.Kind {
		case plan.StepCall:
			o.Primitive = s.Primitive
			o.Refs = argRefs(s.Args)
		case plan.StepConditional:
			o.Refs = condRefs(s.Cond)
			o.Then = outlineSteps(s.Then)
			o.Else = outlineSteps(s.Else)
		case plan.StepLoop:
			if s.Over != nil && s.Over.Kind == plan.ArgRef {
				o.Refs = append(o.Refs, s.Over.Ref)
			}
			if s.Count != nil && s.Count.Kind == plan.ArgRef {
				o.Refs = append(o.Refs, s.Count.Ref)
			}
			o.Refs = append(o.Refs, condRefs(s.While)...)
			o.Body = outlineSteps(s.Body)
		}
		out = append(out, o)
	}
	return out
}

func argRefs(args map[string]plan.Arg) []int {
	var refs []int
	for _, a := range args {
		if a.Kind == plan.ArgRef {
			refs = append(refs, a.Ref)
		}
	}
	// Args is a map; sort so outlines render deterministically.
	sort.Ints(refs)
	return refs
}

func condRefs(c *plan.Condition) []int {
	if c == nil {
		return nil
	}
	var refs []int
	if c.Left.Kind == plan.ArgRef {
		refs = append(refs, c.Left.Ref)
	}
	if c.Right.Kind == plan.ArgRef {
		refs = append(refs, c.Right.Ref)
	}
	return refs
}

// Render produces a deterministic textual form of the view for planner
// prompts. Only names, signatures, structure, and outcome labels appear.
func (v PlannerView) Render() string {
	var b strings.Builder

	b.WriteString("primitives:\n")
	for _, d := range v.Primitives {
		fmt.Fprintf(&b, "  - %s%s [%s]", d.Name, d.Signature.String(), d.Mode)
		if d.Description != "" {
			fmt.Fprintf(&b, ": %s", d.Description)
		}
		b.WriteByte('\n')
	}

	// Earlier rounds render before the latest plan, oldest first.
	for _, r := range v.Rounds[:max(0, len(v.Rounds)-1)] {
		fmt.Fprintf(&b, "round %d:\n", r.Round)
		if len(r.Steps) > 0 {
			b.WriteString("  plan:\n")
			renderOutlines(&b, r.Steps, 2)
		}
		renderRecords(&b, "  outcomes:\n", "    ", r.Records)
	}

	if len(v.Steps) > 0 {
		b.WriteString("plan:\n")
		renderOutlines(&b, v.Steps, 1)
	}
	renderRecords(&b, "outcomes:\n", "  ", v.Records)

	return b.String()
}

func renderRecords(b *strings.Builder, header, indent string, records []RecordOutline) {
	if len(records) == 0 {
		return
	}
	b.WriteString(header)
	for _, r := range records {
		fmt.Fprintf(b, "%s- step %d", indent, r.StepID)
		if r.Primitive != "" {
			fmt.Fprintf(b, " %s", r.Primitive)
		}
		fmt.Fprintf(b, ": %s", r.Outcome)
		if r.Code != "" {
			fmt.Fprintf(b, " (%s)", r.Code)
		}
		b.WriteByte('\n')
	}
}

func renderOutlines(b *strings.Builder, outlines []StepOutline, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, o := range outlines {
		fmt.Fprintf(b, "%s- step %d: %s", indent, o.ID, o.Kind)
		if o.Primitive != "" {
			fmt.Fprintf(b, " %s", o.Primitive)
		}
		if len(o.Refs) > 0 {
			fmt.Fprintf(b, " refs=%v", o.Refs)
		}
		b.WriteByte('\n')
		if len(o.Then) > 0 {
			fmt.Fprintf(b, "%s  then:\n", indent)
			renderOutlines(b, o.Then, depth+2)
		}
		if len(o.Else) > 0 {
			fmt.Fprintf(b, "%s  else:\n", indent)
			renderOutlines(b, o.Else, depth+2)
		}
		if len(o.Body) > 0 {
			fmt.Fprintf(b, "%s  body:\n", indent)
			renderOutlines(b, o.Body, depth+2)
		}
	}
}
