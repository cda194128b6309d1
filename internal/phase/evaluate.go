package phase

import (
	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/task"
)

// Progress is the task tally for one phase.
type Progress struct {
	Total     int
	Completed int
}

// Ratio returns Completed/Total, or 0 when the phase has no tasks.
func (p Progress) Ratio() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// Evaluation is a ratio-based view of phase readiness. It complements
// Determine, which only counts completions.
type Evaluation struct {
	Current     Phase
	Recommended Phase
	ByPhase     map[Phase]Progress
}

// Ready reports whether the evaluation recommends moving forward.
func (e Evaluation) Ready() bool {
	return e.Recommended != e.Current
}

// EvaluateTransition inspects per-phase completion ratios. The workspace is in
// IMPLEMENTATION once some ANALYSIS work is done and IMPLEMENTATION work
// exists (likewise for FINALIZATION); it is ready to advance when the current
// phase is more than 80%, 70% or 90% complete respectively.
func EvaluateTransition(tasks []*task.Task) Evaluation {
	return EvaluateTransitionWith(rules.Default(), tasks)
}

// EvaluateTransitionWith is EvaluateTransition with phase synonyms from r.
func EvaluateTransitionWith(r *rules.Rules, tasks []*task.Task) Evaluation {
	by := map[Phase]Progress{Analysis: {}, Implementation: {}, Finalization: {}}
	for _, t := range tasks {
		p := ValidateWith(r, t.Phase())
		pr, ok := by[p]
		if !ok {
			continue
		}
		pr.Total++
		if t.Status == task.StatusCompleted {
			pr.Completed++
		}
		by[p] = pr
	}

	current := Analysis
	if by[Analysis].Completed > 0 && by[Implementation].Total > 0 {
		current = Implementation
	}
	if by[Implementation].Completed > 0 && by[Finalization].Total > 0 {
		current = Finalization
	}

	recommended := current
	switch {
	case current == Analysis && by[Analysis].Ratio() > 0.8:
		recommended = Implementation
	case current == Implementation && by[Implementation].Ratio() > 0.7:
		recommended = Finalization
	case current == Finalization && by[Finalization].Ratio() > 0.9:
		recommended = Completed
	}

	return Evaluation{Current: current, Recommended: recommended, ByPhase: by}
}
