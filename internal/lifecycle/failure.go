package lifecycle

import (
	"context"
	"fmt"
	"slices"

	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/roles"
	"github.com/randalmurphal/teamlead/internal/task"
)

// failureEscalationThreshold is the failure count at which a task is handed
// to the project manager instead of being retried.
const failureEscalationThreshold = 3

// Failure is one reported task failure. ReportID identifies the report;
// a report whose id the task has already counted is not counted again.
type Failure struct {
	TaskID      string
	WorkspaceID string
	Error       string
	ReportID    string
}

// HandleFailedTask records a failure. Below the escalation threshold the
// task is reset to pending for a retry and its id is returned. At the
// threshold an intervention task is created for the project manager and its
// id is returned.
func (e *Executor) HandleFailedTask(ctx context.Context, taskID, errDetails, workspaceID string) (string, error) {
	return e.HandleFailure(ctx, Failure{TaskID: taskID, WorkspaceID: workspaceID, Error: errDetails})
}

// HandleFailure is HandleFailedTask for a report that may be delivered more
// than once. A repeated ReportID returns the id the first delivery produced
// without touching the failure count.
func (e *Executor) HandleFailure(ctx context.Context, f Failure) (string, error) {
	taskID, errDetails, workspaceID := f.TaskID, f.Error, f.WorkspaceID
	snap, err := e.loadSnapshot(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("handle failed task %s: %w", taskID, err)
	}
	t := task.ByID(snap.tasks)[taskID]
	if t == nil {
		return "", teamerrors.ErrTaskNotFound(taskID)
	}

	seen := t.ContextStrings(task.KeyFailureReportIDs)
	if f.ReportID != "" && slices.Contains(seen, f.ReportID) {
		next := t.ID
		if t.Status == task.StatusFailed {
			if open := openIntervention(snap.tasks, taskID); open != nil {
				next = open.ID
			}
		}
		e.logger.Info("failure report already counted",
			"task", taskID,
			"report", f.ReportID,
			"failure_count", t.FailureCount())
		return next, nil
	}

	count := t.FailureCount() + 1
	t.SetContext(task.KeyFailureCount, count)
	if f.ReportID != "" {
		seen = append(slices.Clone(seen), f.ReportID)
		if len(seen) > failureEscalationThreshold {
			seen = seen[len(seen)-failureEscalationThreshold:]
		}
		t.SetContext(task.KeyFailureReportIDs, seen)
	}
	t.SetContext(task.KeyLastError, errDetails)
	t.UpdatedAt = e.now()

	if count < failureEscalationThreshold {
		t.Status = task.StatusPending
		t.SetContext(task.KeyRetryScheduled, true)
		if err := e.store.UpdateTask(ctx, t); err != nil {
			return "", fmt.Errorf("reschedule task %s: %w", taskID, err)
		}
		e.logger.Info("failed task rescheduled",
			"task", taskID,
			"failure_count", count,
			"error", errDetails)
		return t.ID, nil
	}

	t.Status = task.StatusFailed
	t.SetContext(task.KeyRetryScheduled, false)
	if err := e.store.UpdateTask(ctx, t); err != nil {
		return "", fmt.Errorf("record failure of task %s: %w", taskID, err)
	}

	if open := openIntervention(snap.tasks, taskID); open != nil {
		e.logger.Info("intervention already open", "task", taskID, "intervention", open.ID)
		return open.ID, nil
	}

	pm := roles.FindProjectManager(e.rules, snap.agents)
	if pm == nil {
		return "", teamerrors.ErrNoManager(workspaceID)
	}

	desc, err := render("intervention.md", interventionData{
		FailureCount: count,
		TaskName:     t.Name,
		Error:        errDetails,
	})
	if err != nil {
		return "", err
	}
	intervention := &task.Task{
		WorkspaceID:     workspaceID,
		Name:            "INTERVENTION: Handle Failed Task - " + t.Name,
		Description:     desc,
		Status:          task.StatusPending,
		AgentID:         pm.ID,
		AssignedToRole:  pm.Role,
		Priority:        task.PriorityHigh,
		CreatedByTaskID: taskID,
		CreationType:    task.CreationFailureIntervention,
		ContextData: map[string]any{
			task.KeyInterventionType: "failed_task",
			task.KeyFailedTaskID:     taskID,
			task.KeyFailedTaskName:   t.Name,
			task.KeyFailedAgentID:    t.AgentID,
			task.KeyFailureCount:     count,
			task.KeyLastError:        errDetails,
			task.KeyProjectPhase:     string(phase.ValidateWith(e.rules, t.Phase())),
		},
	}
	if !e.createTask(ctx, nil, "create_intervention", intervention) {
		return "", fmt.Errorf("intervention for task %s was not stored", taskID)
	}
	e.logger.Warn("failed task escalated to project manager",
		"task", taskID,
		"failure_count", count,
		"intervention", intervention.ID,
		"agent", pm.Name)
	return intervention.ID, nil
}

func openIntervention(tasks []*task.Task, taskID string) *task.Task {
	for _, other := range tasks {
		if task.IsOpen(other.Status) &&
			other.CreationType == task.CreationFailureIntervention &&
			other.ContextString(task.KeyFailedTaskID) == taskID {
			return other
		}
	}
	return nil
}
