package lifecycle

import (
	"log/slog"

	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/util"
)

const maxLoggedReasoning = 200

func (e *Executor) logAnalysis(t *task.Task, rep *Report) {
	e.logDecision(t, rep.Decision, rep.Analysis, rep.Reason)
}

// logDecision writes the structured record that monitoring keys on.
func (e *Executor) logDecision(t *task.Task, decision Decision, a *Analysis, extra string) {
	var confidence float64
	var reasoning string
	if a != nil {
		confidence = a.Confidence
		reasoning = a.Reasoning
		if len([]rune(reasoning)) > maxLoggedReasoning {
			reasoning = util.Truncate(reasoning, maxLoggedReasoning) + "..."
		}
	}
	cfg := e.Config()
	e.logger.Info("task completion analysis",
		"task", t.ID,
		"task_name", t.Name,
		"workspace", t.WorkspaceID,
		"agent", t.AgentID,
		"assigned_to_role", t.AssignedToRole,
		"priority", t.Priority,
		"decision", decision,
		"confidence", confidence,
		"reasoning", reasoning,
		"extra_info", extra,
		slog.Group("analyzer_config",
			"auto_generation_enabled", cfg.AutoGenerationEnabled,
			"handoff_creation_enabled", cfg.HandoffCreationEnabled,
			"confidence_threshold", cfg.ConfidenceThreshold))
}
