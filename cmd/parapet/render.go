package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/OpenSymbolicAI/parapet/internal/blueprint"
	"github.com/OpenSymbolicAI/parapet/internal/exec"
	"github.com/OpenSymbolicAI/parapet/internal/primitive"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func renderResult(r *blueprint.Result) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("trace"))
	b.WriteByte('\n')
	for _, rec := range r.Trace.Records() {
		b.WriteString(renderRecord(rec))
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "%s %s", headerStyle.Render("status"), renderStatus(r.Status))
	if r.Status == exec.StatusSuccess {
		fmt.Fprintf(&b, "\n%s %v", headerStyle.Render("final"), r.Final)
	}
	return b.String()
}

func renderSeekResult(r *blueprint.Result) string {
	var b strings.Builder

	for i, round := range r.History {
		fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("round %d", i+1)))
		if round.Err != nil {
			fmt.Fprintf(&b, "  %s\n", failedStyle.Render(round.Err.Error()))
		}
		if round.Trace != nil {
			for _, rec := range round.Trace.Records() {
				fmt.Fprintf(&b, "  %s\n", renderRecord(rec))
			}
		}
		if round.Verdict != nil {
			verdict := "unsatisfied"
			style := failedStyle
			if round.Verdict.Satisfied {
				verdict = "satisfied"
				style = successStyle
			}
			fmt.Fprintf(&b, "  verdict: %s %s\n", style.Render(verdict), dimStyle.Render(round.Verdict.Reason))
		}
	}

	fmt.Fprintf(&b, "%s %s after %d round(s)", headerStyle.Render("status"), renderStatus(r.Status), len(r.History))
	if r.Status == exec.StatusSuccess {
		fmt.Fprintf(&b, "\n%s %v", headerStyle.Render("final"), r.Final)
	}
	return b.String()
}

func renderRecord(rec exec.Record) string {
	loc := ""
	if rec.LoopID >= 0 {
		loc = dimStyle.Render(fmt.Sprintf(" [loop %d iter %d]", rec.LoopID, rec.Iteration))
	}
	switch rec.Outcome {
	case exec.OutcomeSuccess:
		return fmt.Sprintf("  step %d %s%s -> %v %s",
			rec.StepID, rec.Primitive, loc, rec.Output, dimStyle.Render(rec.Duration.String()))
	default:
		return fmt.Sprintf("  step %d %s%s -> %s",
			rec.StepID, rec.Primitive, loc, failedStyle.Render(string(rec.Outcome)))
	}
}

func renderStatus(s exec.Status) string {
	if s == exec.StatusSuccess {
		return successStyle.Render(string(s))
	}
	return failedStyle.Render(string(s))
}

func renderCatalog(descriptors []primitive.Descriptor) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("primitives"))
	b.WriteByte('\n')
	for _, d := range descriptors {
		mode := dimStyle.Render(fmt.Sprintf("[%s]", d.Mode))
		fmt.Fprintf(&b, "  %s%s %s", d.Name, d.Signature.String(), mode)
		if d.Description != "" {
			fmt.Fprintf(&b, "  %s", dimStyle.Render(d.Description))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
