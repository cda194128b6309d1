package lifecycle

import "github.com/randalmurphal/teamlead/internal/phase"

// Branch is the path a completion took through the executor.
type Branch string

const (
	BranchNone       Branch = "none"
	BranchManager    Branch = "manager"
	BranchSpecialist Branch = "specialist"
)

// Decision is the outcome of handling one completion.
type Decision string

const (
	DecisionAlreadyAnalyzed    Decision = "already_analyzed"
	DecisionManagerProcessed   Decision = "pm_task_processed"
	DecisionPlanInvalid        Decision = "pm_plan_invalid"
	DecisionNoAutoGeneration   Decision = "specialist_task_completed_no_auto_gen"
	DecisionFilteredOut        Decision = "filtered_out_conservative"
	DecisionWorkspaceLimits    Decision = "workspace_limits_exceeded"
	DecisionDuplicatePrevented Decision = "duplicate_prevented"
	DecisionNoAction           Decision = "analysis_complete_no_action"
	DecisionAutoTaskCreated    Decision = "auto_task_created"
	DecisionHandoffBlocked     Decision = "handoff_blocked_max_depth"
	DecisionHandoffError       Decision = "handoff_error"
	DecisionPhaseTransition    Decision = "phase_transition_triggered"
	DecisionDegraded           Decision = "degraded_no_action"
	DecisionError              Decision = "error_processing_task"
)

// Analysis is the deterministic follow-up assessment of a specialist task.
type Analysis struct {
	RequiresFollowUp  bool        `json:"requires_follow_up"`
	Confidence        float64     `json:"confidence_score"`
	SuggestedHandoffs []string    `json:"suggested_handoffs,omitempty"`
	ProjectStatus     string      `json:"project_status"`
	Reasoning         string      `json:"reasoning"`
	NextPhase         phase.Phase `json:"next_phase,omitempty"`
}

// Report describes what HandleTaskCompletion did.
type Report struct {
	TaskID            string    `json:"task_id"`
	WorkspaceID       string    `json:"workspace_id"`
	Branch            Branch    `json:"branch"`
	Decision          Decision  `json:"decision"`
	Reason            string    `json:"reason,omitempty"`
	Analysis          *Analysis `json:"analysis,omitempty"`
	CreatedTaskIDs    []string  `json:"created_task_ids,omitempty"`
	SkippedSubtasks   int       `json:"skipped_subtasks,omitempty"`
	DeliverableTaskID string    `json:"deliverable_task_id,omitempty"`
	PlanningTaskID    string    `json:"planning_task_id,omitempty"`
	ProjectCompleted  bool      `json:"project_completed,omitempty"`
	Degraded          []string  `json:"degraded,omitempty"`
}
