package task

// Keys stored in Task.ContextData. The map is read schema-on-read, so every
// accessor tolerates missing keys and values of the wrong type.
const (
	KeyProjectPhase             = "project_phase"
	KeyPlanningTaskMarker       = "planning_task_marker"
	KeyDelegationDepth          = "delegation_depth"
	KeyFailureCount             = "failure_count"
	KeyLastError                = "last_error"
	KeyRetryScheduled           = "retry_scheduled"
	KeyFailureReportIDs         = "failure_report_ids"
	KeyAutoGeneratedByPM        = "auto_generated_by_pm"
	KeySourcePMTaskName         = "source_pm_task_name"
	KeyOriginalPMPhase          = "original_pm_phase"
	KeyPMTaskPhase              = "pm_task_phase"
	KeyPhaseValidated           = "phase_validated"
	KeyPhaseValidationTimestamp = "phase_validation_timestamp"
	KeyExpectedCompletion       = "expected_completion_criteria"
	KeyPMCompletionTimestamp    = "pm_completion_timestamp"
	KeyCreatedByTaskID          = "created_by_task_id"
	KeyCreatedByAgentID         = "created_by_agent_id"
	KeyCreationMethod           = "creation_method"
	KeyCreationType             = "creation_type"
	KeyCreatedAt                = "created_at"
	KeyPhaseTransition          = "phase_transition"
	KeyTargetPhase              = "target_phase"
	KeyCompletedPhase           = "completed_phase"
	KeyPhaseTriggerTimestamp    = "phase_trigger_timestamp"
	KeyInterventionType         = "intervention_type"
	KeyFailedTaskID             = "failed_task_id"
	KeyFailedTaskName           = "failed_task_name"
	KeyFailedAgentID            = "failed_agent_id"
	KeyAssessmentNumber         = "assessment_number"
	KeyCompletedTasksCount      = "completed_tasks_count"
	KeyIsFinalDeliverable       = "is_final_deliverable"
	KeyDeliverableAggregation   = "deliverable_aggregation"
	KeyDeliverableType          = "deliverable_type"
	KeyTriggersCompletion       = "triggers_project_completion"
	KeyAggregatedData           = "aggregated_data"
	KeyWorkspaceGoal            = "workspace_goal"
)

// Context returns the value stored under key.
func (t *Task) Context(key string) (any, bool) {
	if t == nil || t.ContextData == nil {
		return nil, false
	}
	v, ok := t.ContextData[key]
	return v, ok
}

// ContextString returns the string stored under key, or "".
func (t *Task) ContextString(key string) string {
	v, _ := t.Context(key)
	s, _ := v.(string)
	return s
}

// ContextStrings returns the string list stored under key. A JSON round
// trip turns []string into []any, so both forms are accepted.
func (t *Task) ContextStrings(key string) []string {
	v, _ := t.Context(key)
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// ContextBool returns the bool stored under key, or false.
func (t *Task) ContextBool(key string) bool {
	v, _ := t.Context(key)
	b, _ := v.(bool)
	return b
}

// ContextInt returns the integer stored under key, or 0.
// JSON numbers decode as float64, so both forms are accepted.
func (t *Task) ContextInt(key string) int {
	v, _ := t.Context(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// SetContext stores value under key, allocating the map if needed.
func (t *Task) SetContext(key string, value any) {
	if t.ContextData == nil {
		t.ContextData = make(map[string]any)
	}
	t.ContextData[key] = value
}

// Phase returns the raw project phase recorded on the task.
// Callers validate it through the phase package.
func (t *Task) Phase() string {
	return t.ContextString(KeyProjectPhase)
}

// DelegationDepth returns how many automatic handoffs precede this task.
func (t *Task) DelegationDepth() int {
	return t.ContextInt(KeyDelegationDepth)
}

// FailureCount returns how many times the task has failed.
func (t *Task) FailureCount() int {
	return t.ContextInt(KeyFailureCount)
}

// IsPlanningTask reports whether the task was created as a phase planning task.
func (t *Task) IsPlanningTask() bool {
	return t.ContextBool(KeyPlanningTaskMarker)
}
