package task

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// IsValidPriority returns true if the priority is a valid priority value.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// ParsePriority returns p as a Priority, or PriorityMedium when it is unknown.
func ParsePriority(p string) Priority {
	if IsValidPriority(Priority(p)) {
		return Priority(p)
	}
	return PriorityMedium
}

// CreationType records which path created a task.
type CreationType string

const (
	CreationManual              CreationType = "manual"
	CreationPMCompletion        CreationType = "pm_completion"
	CreationAutoHandoff         CreationType = "auto_handoff"
	CreationPhaseTransition     CreationType = "phase_transition"
	CreationFailureIntervention CreationType = "failure_intervention"
	CreationPeriodicAssessment  CreationType = "periodic_assessment"
	CreationFinalDeliverable    CreationType = "final_deliverable_aggregation"
	CreationProjectCompletion   CreationType = "project_completion"
)
