package lifecycle

import (
	"context"
	"fmt"

	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

type phaseCorrection struct {
	Task      string
	Original  string
	Corrected phase.Phase
}

// handleManagerCompletion creates the sub-tasks a manager defined.
func (e *Executor) handleManagerCompletion(ctx context.Context, t *task.Task, result task.Result, workspaceID string, rep *Report) {
	plan, err := ParsePlan(result.DetailedResultsJSON, e.rules)
	if err != nil {
		e.logger.Error("manager plan rejected",
			"task", t.ID,
			"error", err)
		rep.Decision = DecisionPlanInvalid
		rep.Reason = err.Error()
		return
	}
	e.logger.Info("manager plan accepted",
		"task", t.ID,
		"phase", plan.RawPhase,
		"validated_phase", plan.CurrentPhase,
		"sub_tasks", len(plan.Subtasks))

	out := attempt(e, rep, "load_snapshot", func() (*snapshot, error) {
		return e.loadSnapshot(ctx, workspaceID)
	})
	snap, ok := out.Get()
	if !ok {
		rep.Decision = DecisionDegraded
		rep.Reason = "workspace snapshot unavailable"
		return
	}

	byID := task.ByID(snap.tasks)
	var corrections []phaseCorrection

	for i, entry := range plan.Subtasks {
		if entry.Err != nil {
			e.logger.Warn("skipping invalid sub-task",
				"task", t.ID,
				"error", entry.Err)
			rep.SkippedSubtasks++
			continue
		}
		spec := entry.Spec

		rawPhase := spec.ProjectPhase
		if rawPhase == "" {
			e.logger.Warn("sub-task missing project_phase, using plan phase",
				"sub_task", spec.Name,
				"phase", plan.CurrentPhase)
			rawPhase = string(plan.CurrentPhase)
		}
		subPhase := phase.ValidateWith(e.rules, rawPhase)
		if rawPhase != string(subPhase) {
			corrections = append(corrections, phaseCorrection{Task: spec.Name, Original: rawPhase, Corrected: subPhase})
		}

		agent := e.matcher.Match(spec.TargetAgentRole, snap.agents)
		if agent == nil {
			e.logger.Warn("no agent for role, skipping sub-task",
				"role", spec.TargetAgentRole,
				"sub_task", spec.Name,
				"available", team.Describe(team.Active(snap.agents)))
			rep.SkippedSubtasks++
			continue
		}

		chain := DelegationChain(byID, t.ID)
		if loop, why := IsDelegationLoop(t.AgentID, agent.ID, chain); loop {
			e.logger.Warn("sub-task delegation cycles back into the chain",
				"sub_task", spec.Name,
				"source_agent", t.AgentID,
				"target_agent", agent.ID,
				"chain", chain,
				"reason", why)
		}

		now := e.timestamp()
		sub := &task.Task{
			WorkspaceID:      workspaceID,
			Name:             spec.Name,
			Description:      spec.Description,
			Status:           task.StatusPending,
			AgentID:          agent.ID,
			AssignedToRole:   spec.TargetAgentRole,
			Priority:         task.ParsePriority(spec.Priority),
			ParentTaskID:     t.ID,
			CreatedByTaskID:  t.ID,
			CreatedByAgentID: t.AgentID,
			CreationType:     task.CreationPMCompletion,
			ContextData: map[string]any{
				task.KeyAutoGeneratedByPM:        true,
				task.KeySourcePMTaskName:         t.Name,
				task.KeyProjectPhase:             string(subPhase),
				task.KeyOriginalPMPhase:          rawPhase,
				task.KeyPMTaskPhase:              string(plan.CurrentPhase),
				task.KeyPhaseValidated:           true,
				task.KeyPhaseValidationTimestamp: now,
				task.KeyExpectedCompletion:       spec.CompletionCriteria,
				task.KeyPMCompletionTimestamp:    now,
			},
		}
		if !e.createTask(ctx, rep, "create_subtask", sub) {
			rep.SkippedSubtasks++
			continue
		}
		byID[sub.ID] = sub
		rep.CreatedTaskIDs = append(rep.CreatedTaskIDs, sub.ID)
		e.logger.Info("sub-task created",
			"task", sub.ID,
			"index", i,
			"name", sub.Name,
			"agent", agent.Name,
			"phase", subPhase)
	}

	if len(corrections) > 0 {
		e.logger.Warn("sub-task phases corrected", "corrections", corrections)
	}
	e.logger.Info("manager task processed",
		"task", t.ID,
		"created", len(rep.CreatedTaskIDs),
		"defined", len(plan.Subtasks),
		"phase", plan.CurrentPhase)
	rep.Decision = DecisionManagerProcessed
	rep.Reason = fmt.Sprintf("created %d/%d sub-tasks", len(rep.CreatedTaskIDs), len(plan.Subtasks))
}
