package exec

import (
	"sync"
	"time"

	"github.com/OpenSymbolicAI/parapet/internal/firewall"
	"github.com/OpenSymbolicAI/parapet/internal/primitive"
	"github.com/OpenSymbolicAI/parapet/internal/types"
)

// Status is the terminal status of one execution.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"

	// StatusBudgetExceeded is produced by the goal-seeking controller when
	// its round or time budget runs out; the executor itself never returns it.
	StatusBudgetExceeded Status = "budget_exceeded"
)

// Outcome is the per-record outcome of a single step.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Record is one entry of an execution trace: the resolved inputs, output,
// permission flag, and outcome of a single call step. Records of loop-body
// steps carry the enclosing loop id and zero-based iteration index.
type Record struct {
	StepID    int            `json:"step_id"`
	Primitive string         `json:"primitive"`
	Inputs    map[string]any `json:"inputs"`
	Output    any            `json:"output,omitempty"`
	Mode      primitive.Mode `json:"mode"`
	Outcome   Outcome        `json:"outcome"`
	Err       error          `json:"-"`
	LoopID    int            `json:"loop_id"`
	Iteration int            `json:"iteration"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}

// Trace is the append-only record of one execution. It is exclusive to
// one execution while running and immutable after the run seals it.
type Trace struct {
	mu      sync.Mutex
	records []Record
	sealed  bool
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

func (t *Trace) append(r Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return
	}
	t.records = append(t.records, r)
}

func (t *Trace) seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
}

// Records returns a copy of the ordered step records. Mutating the
// returned slice leaves the trace untouched.
func (t *Trace) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of records.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Final returns the output of the last successful record, which is the
// final value of a completed execution. ok is false for an empty or
// fully-failed trace.
func (t *Trace) Final() (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.records) - 1; i >= 0; i-- {
		if t.records[i].Outcome == OutcomeSuccess {
			return t.records[i].Output, true
		}
	}
	return nil, false
}

// Iterations groups the records of one loop step by iteration index, in
// iteration order. Records of nested loops are attributed to their
// immediately enclosing loop.
func (t *Trace) Iterations(loopID int) [][]Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out [][]Record
	for _, r := range t.records {
		if r.LoopID != loopID {
			continue
		}
		for len(out) <= r.Iteration {
			out = append(out, nil)
		}
		out[r.Iteration] = append(out[r.Iteration], r)
	}
	return out
}

// Outline projects the trace into its firewall-safe form: step ids,
// primitive names, outcomes, and error codes. Inputs, outputs, and
// primitive error text never appear in the outline.
func (t *Trace) Outline() []firewall.RecordOutline {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]firewall.RecordOutline, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, firewall.RecordOutline{
			StepID:    r.StepID,
			Primitive: r.Primitive,
			Outcome:   string(r.Outcome),
			Code:      types.CodeOf(r.Err),
			LoopID:    r.LoopID,
			Iteration: r.Iteration,
		})
	}
	return out
}
