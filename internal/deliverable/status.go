package deliverable

import (
	"context"
	"fmt"

	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

// ProjectStatus summarizes a workspace for operators.
type ProjectStatus struct {
	Workspace         *team.Workspace  `json:"workspace"`
	Counts            task.Counts      `json:"counts"`
	Phase             phase.Phase      `json:"phase"`
	Evaluation        phase.Evaluation `json:"evaluation"`
	Readiness         Readiness        `json:"readiness"`
	DeliverableType   string           `json:"deliverable_type"`
	DeliverableTaskID string           `json:"deliverable_task_id,omitempty"`
}

// ProjectStatus reports phase, readiness and the deliverable task of a
// workspace.
func (a *Aggregator) ProjectStatus(ctx context.Context, workspaceID string, th phase.Thresholds) (*ProjectStatus, error) {
	ws, err := a.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("get workspace %s: %w", workspaceID, err)
	}
	if ws == nil {
		return nil, teamerrors.ErrWorkspaceNotFound(workspaceID)
	}
	tasks, err := a.store.ListTasks(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list tasks %s: %w", workspaceID, err)
	}

	s := &ProjectStatus{
		Workspace:       ws,
		Counts:          task.Count(tasks),
		Phase:           phase.DetermineWith(a.all, tasks, th),
		Evaluation:      phase.EvaluateTransitionWith(a.all, tasks),
		Readiness:       EvaluateReadiness(tasks, ws, a.cfg, a.now()),
		DeliverableType: DetectType(ws.Goal, a.rules),
	}
	if existing := FindExisting(tasks, a.rules); existing != nil {
		s.DeliverableTaskID = existing.ID
	}
	return s, nil
}
