package lifecycle

import (
	"context"
	"fmt"

	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/roles"
	"github.com/randalmurphal/teamlead/internal/task"
)

// CreatePeriodicAssessmentTask asks the project manager for a progress review
// every AssessmentInterval completions. Assessment #N is created at most
// once; "" means no assessment is due.
func (e *Executor) CreatePeriodicAssessmentTask(ctx context.Context, workspaceID string) (string, error) {
	snap, err := e.loadSnapshot(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("periodic assessment: %w", err)
	}

	interval := e.Config().AssessmentInterval
	completed := task.Count(snap.tasks).Completed
	if interval <= 0 || completed == 0 || completed%interval != 0 {
		return "", nil
	}
	number := completed / interval

	for _, t := range snap.tasks {
		if t.CreationType == task.CreationPeriodicAssessment && t.ContextInt(task.KeyAssessmentNumber) == number {
			e.logger.Debug("assessment already created", "workspace", workspaceID, "number", number, "task", t.ID)
			return "", nil
		}
	}

	pm := roles.FindProjectManager(e.rules, snap.agents)
	if pm == nil {
		return "", teamerrors.ErrNoManager(workspaceID)
	}

	eval := phase.EvaluateTransitionWith(e.rules, snap.tasks)
	desc, err := render("assessment.md", assessmentData{Completed: completed, Phase: string(eval.Recommended)})
	if err != nil {
		return "", err
	}
	assessment := &task.Task{
		WorkspaceID:    workspaceID,
		Name:           fmt.Sprintf("Project Progress Assessment #%d", number),
		Description:    desc,
		Status:         task.StatusPending,
		AgentID:        pm.ID,
		AssignedToRole: pm.Role,
		Priority:       task.PriorityHigh,
		CreationType:   task.CreationPeriodicAssessment,
		ContextData: map[string]any{
			task.KeyAssessmentNumber:    number,
			task.KeyCompletedTasksCount: completed,
			task.KeyProjectPhase:        string(eval.Current),
		},
	}
	if !e.createTask(ctx, nil, "create_assessment", assessment) {
		return "", fmt.Errorf("assessment #%d for workspace %s was not stored", number, workspaceID)
	}
	e.logger.Info("periodic assessment created",
		"workspace", workspaceID,
		"task", assessment.ID,
		"number", number,
		"completed", completed)
	return assessment.ID, nil
}
