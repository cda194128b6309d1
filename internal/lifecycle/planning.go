package lifecycle

import (
	"context"
	"strings"

	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/roles"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

// CheckPhaseCompletionAndTriggerPM creates a planning task for the manager
// when the workspace has just entered a new phase. It returns the new task
// id and true, or "" and false when nothing was created.
func (e *Executor) CheckPhaseCompletionAndTriggerPM(ctx context.Context, workspaceID string) (string, bool) {
	return e.checkPhaseCompletion(ctx, workspaceID, nil)
}

func (e *Executor) checkPhaseCompletion(ctx context.Context, workspaceID string, rep *Report) (string, bool) {
	current := e.phases.DetermineWorkspaceCurrentPhase(ctx, workspaceID)

	// The phase that just completed precedes the current one; the planning
	// target is the phase after it.
	completed, ok := phase.Previous(current)
	if !ok {
		e.logger.Debug("no completed phase yet", "workspace", workspaceID, "phase", current)
		return "", false
	}
	target, _ := phase.Next(completed)

	tmpl, ok := e.rules.Planning.Templates[string(target)]
	if !ok {
		e.logger.Info("project in final phase", "workspace", workspaceID, "phase", current)
		return "", false
	}

	out := attempt(e, rep, "load_snapshot", func() (*snapshot, error) {
		return e.loadSnapshot(ctx, workspaceID)
	})
	snap, ok := out.Get()
	if !ok {
		// Treat an unreadable workspace as already planned.
		return "", false
	}
	if existing := FindOpenPlanningTask(snap.tasks, target); existing != nil {
		e.logger.Info("phase planning already exists",
			"workspace", workspaceID,
			"phase", target,
			"task", existing.ID)
		return "", false
	}

	pm := roles.FindProjectManager(e.rules, snap.agents)
	if pm == nil {
		e.logger.Warn("no project manager to plan phase",
			"workspace", workspaceID,
			"phase", target,
			"available", team.Describe(team.Active(snap.agents)))
		return "", false
	}

	desc, err := render("phase_planning.md", planningData{
		TargetPhase:    string(target),
		CompletedPhase: string(completed),
		Focus:          tmpl.Focus,
		Examples:       tmpl.Examples,
		Description:    phase.DescribeWith(e.rules, target),
		Team:           team.Active(snap.agents),
	})
	if err != nil {
		e.logger.Error("render planning description", "workspace", workspaceID, "error", err)
		return "", false
	}

	planning := &task.Task{
		WorkspaceID:    workspaceID,
		Name:           "Phase Planning: " + tmpl.Title,
		Description:    desc,
		Status:         task.StatusPending,
		AgentID:        pm.ID,
		AssignedToRole: pm.Role,
		Priority:       task.PriorityHigh,
		CreationType:   task.CreationPhaseTransition,
		ContextData: map[string]any{
			task.KeyProjectPhase:          string(target),
			task.KeyPhaseTransition:       string(completed) + "_TO_" + string(target),
			task.KeyPlanningTaskMarker:    true,
			task.KeyPhaseValidated:        true,
			task.KeyTargetPhase:           string(target),
			task.KeyCompletedPhase:        string(completed),
			task.KeyPhaseTriggerTimestamp: e.timestamp(),
		},
	}
	if !e.createTask(ctx, rep, "create_planning_task", planning) {
		return "", false
	}
	e.logger.Info("phase planning task created",
		"workspace", workspaceID,
		"task", planning.ID,
		"transition", planning.ContextString(task.KeyPhaseTransition),
		"agent", pm.Name)
	return planning.ID, true
}

// FindOpenPlanningTask returns a pending or in-progress planning task for
// target, matched by marker or by name.
func FindOpenPlanningTask(tasks []*task.Task, target phase.Phase) *task.Task {
	phaseName := strings.ToLower(string(target))
	for _, t := range tasks {
		if !task.IsOpen(t.Status) {
			continue
		}
		if t.IsPlanningTask() && t.Phase() == string(target) {
			return t
		}
		name := strings.ToLower(t.Name)
		if strings.Contains(name, "phase planning") && strings.Contains(name, phaseName) {
			return t
		}
	}
	return nil
}
