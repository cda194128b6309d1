// Package phase sequences a project through coarse phases.
//
// A workspace moves ANALYSIS → IMPLEMENTATION → FINALIZATION → COMPLETED.
// The current phase is inferred from completed-task counts per phase; this is
// a heuristic and can disagree with the real state of a project whose tasks
// are mis-tagged.
package phase

import (
	"strings"

	"github.com/randalmurphal/teamlead/internal/rules"
)

// Phase is a project stage.
type Phase string

const (
	Analysis       Phase = "ANALYSIS"
	Implementation Phase = "IMPLEMENTATION"
	Finalization   Phase = "FINALIZATION"
	Completed      Phase = "COMPLETED"
)

// Sequence is the strict order of phases.
var Sequence = []Phase{Analysis, Implementation, Finalization, Completed}

func index(p Phase) int {
	for i, s := range Sequence {
		if s == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the canonical phases.
func (p Phase) Valid() bool {
	return index(p) >= 0
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	return string(p)
}

// Validate normalizes a free-form phase string. Exact names win, then the
// synonym table, and anything else is ANALYSIS. It never fails.
func Validate(raw string) Phase {
	return ValidateWith(rules.Default(), raw)
}

// ValidateWith is Validate against a specific rule set.
func ValidateWith(r *rules.Rules, raw string) Phase {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	if norm == "" {
		return Analysis
	}
	if p := Phase(norm); p.Valid() {
		return p
	}
	if mapped, ok := r.Phase.Synonyms[norm]; ok {
		if p := Phase(mapped); p.Valid() {
			return p
		}
	}
	return Analysis
}

// Next returns the phase after current. ok is false for the terminal phase
// and for unknown input.
func Next(current Phase) (next Phase, ok bool) {
	i := index(current)
	if i < 0 || i+1 >= len(Sequence) {
		return "", false
	}
	return Sequence[i+1], true
}

// Previous returns the phase before current. ok is false for ANALYSIS.
func Previous(current Phase) (prev Phase, ok bool) {
	i := index(current)
	if i <= 0 {
		return "", false
	}
	return Sequence[i-1], true
}

// IsValidTransition reports whether to is exactly one step after from.
func IsValidTransition(from, to Phase) bool {
	i, j := index(from), index(to)
	return i >= 0 && j == i+1
}

// Describe returns the human description of a phase.
func Describe(p Phase) string {
	return DescribeWith(rules.Default(), p)
}

// DescribeWith is Describe against a specific rule set.
func DescribeWith(r *rules.Rules, p Phase) string {
	if d, ok := r.Phase.Descriptions[string(p)]; ok {
		return d
	}
	return r.Phase.DefaultDescription
}
