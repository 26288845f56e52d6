package primitive

import (
	"fmt"
	"time"
)

// ValueType is the declared type of a primitive parameter or return value.
// The validator checks plan arguments against these before any execution.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeBool   ValueType = "bool"
	TypeList   ValueType = "list"
	TypeMap    ValueType = "map"

	// TypeAny accepts every value. Used sparingly by collection primitives.
	TypeAny ValueType = "any"
)

// Mode is the permission flag of a primitive.
type Mode string

const (
	// ModeReadOnly marks primitives guaranteed to have no externally
	// observable effect. They are safe to re-run or run speculatively.
	ModeReadOnly Mode = "read_only"

	// ModeEffecting marks primitives with external side effects. The core
	// never retries or re-orders them.
	ModeEffecting Mode = "effecting"
)

// Param is a single named, typed parameter of a primitive signature.
type Param struct {
	Name string    `json:"name" yaml:"name"`
	Type ValueType `json:"type" yaml:"type"`
}

// Signature declares the ordered parameter list and return type of a
// primitive. Signatures are immutable once the primitive is registered.
type Signature struct {
	Params  []Param   `json:"params" yaml:"params"`
	Returns ValueType `json:"returns" yaml:"returns"`
}

// Param returns the declared parameter with the given name, or false.
func (s Signature) Param(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// String renders the signature as "(a: int, b: int) -> float".
func (s Signature) String() string {
	out := "("
	for i, p := range s.Params {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	return out + ") -> " + string(s.Returns)
}

// Descriptor contains primitive metadata for discovery and introspection.
// It carries everything the planner is allowed to see about a primitive:
// name, declared signature, permission mode. Never values.
type Descriptor struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Signature   Signature `json:"signature"`
	Mode        Mode      `json:"mode"`
}

// NewDescriptor creates a Descriptor from a Primitive.
func NewDescriptor(p Primitive) Descriptor {
	return Descriptor{
		Name:        p.Name(),
		Description: p.Description(),
		Signature:   p.Signature(),
		Mode:        p.Mode(),
	}
}

// Metrics tracks primitive invocation statistics. Metrics are updated by
// the registry during invocation and read out for monitoring.
type Metrics struct {
	TotalCalls    int64         `json:"total_calls"`
	SuccessCalls  int64         `json:"success_calls"`
	FailedCalls   int64         `json:"failed_calls"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	LastInvokedAt *time.Time    `json:"last_invoked_at,omitempty"`
}

// NewMetrics creates a new Metrics instance with zero values
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordSuccess records a successful invocation with the given duration.
func (m *Metrics) RecordSuccess(duration time.Duration) {
	m.TotalCalls++
	m.SuccessCalls++
	m.TotalDuration += duration
	m.AvgDuration = m.TotalDuration / time.Duration(m.TotalCalls)
	now := time.Now()
	m.LastInvokedAt = &now
}

// RecordFailure records a failed invocation with the given duration.
func (m *Metrics) RecordFailure(duration time.Duration) {
	m.TotalCalls++
	m.FailedCalls++
	m.TotalDuration += duration
	m.AvgDuration = m.TotalDuration / time.Duration(m.TotalCalls)
	now := time.Now()
	m.LastInvokedAt = &now
}

// SuccessRate returns the success rate between 0.0 and 1.0.
func (m *Metrics) SuccessRate() float64 {
	if m.TotalCalls == 0 {
		return 0.0
	}
	return float64(m.SuccessCalls) / float64(m.TotalCalls)
}

// TypeOf infers the declared ValueType of a concrete Go value. Integers of
// all widths map to TypeInt, float32/float64 to TypeFloat. Returns TypeAny
// for values with no declared equivalent (including nil).
func TypeOf(v any) ValueType {
	switch v.(type) {
	case string:
		return TypeString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case bool:
		return TypeBool
	case []any:
		return TypeList
	case map[string]any:
		return TypeMap
	default:
		return TypeAny
	}
}
