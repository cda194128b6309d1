package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/util"
)

// handleSpecialistCompletion runs the gates in order; the first that rejects
// ends processing with no task created.
func (e *Executor) handleSpecialistCompletion(ctx context.Context, t *task.Task, result task.Result, workspaceID string, rep *Report) {
	cfg := e.Config()
	if !cfg.AutoGenerationEnabled {
		e.logger.Info("auto-generation disabled for specialist tasks", "task", t.ID)
		rep.Decision = DecisionNoAutoGeneration
		return
	}

	if ok, why := PassesContentFilter(t.Name, result, e.rules.Filter); !ok {
		e.logger.Debug("specialist task filtered out", "task", t.ID, "reason", why)
		rep.Decision = DecisionFilteredOut
		rep.Reason = why
		return
	}

	out := attempt(e, rep, "load_snapshot", func() (*snapshot, error) {
		return e.loadSnapshot(ctx, workspaceID)
	})
	snap, ok := out.Get()
	if !ok {
		rep.Decision = DecisionDegraded
		rep.Reason = "workspace snapshot unavailable"
		return
	}

	if ok, why := PassesQuota(snap.tasks, e.rules.Quota, cfg.MaxAutoTasksPerWorkspace); !ok {
		e.logger.Info("workspace at limits, no auto-generation",
			"workspace", workspaceID,
			"reason", why)
		rep.Decision = DecisionWorkspaceLimits
		rep.Reason = why
		return
	}

	if dup, why := e.isDuplicateHandoff(t, workspaceID, snap.tasks, cfg); dup {
		e.logger.Warn("duplicate handoff prevented", "task", t.ID, "reason", why)
		rep.Decision = DecisionDuplicatePrevented
		rep.Reason = why
		return
	}

	analysis := Analyze(t, result, task.Count(snap.tasks), e.rules)
	rep.Analysis = &analysis

	fires := cfg.HandoffCreationEnabled &&
		analysis.RequiresFollowUp &&
		analysis.Confidence >= cfg.ConfidenceThreshold &&
		len(analysis.SuggestedHandoffs) > 0
	if !fires {
		e.logger.Info("analysis complete, no follow-up",
			"task", t.ID,
			"confidence", analysis.Confidence)
		rep.Decision = DecisionNoAction
		return
	}

	e.logger.Warn("creating automatic follow-up task",
		"task", t.ID,
		"confidence", analysis.Confidence)
	e.executeHandoff(ctx, t, result, workspaceID, cfg, rep)
}

// PassesContentFilter is the cheap first gate: only plain completed
// analysis-style tasks with short outputs that do not announce completion
// are candidates for a follow-up.
func PassesContentFilter(name string, result task.Result, f rules.FilterRules) (bool, string) {
	if !result.IsCompleted() {
		return false, "result status is not completed"
	}
	if word, ok := util.ContainsAny(name, f.CompletionWords); ok {
		return false, fmt.Sprintf("name contains completion word %q", word)
	}
	output := result.Output()
	if phrase, ok := util.ContainsAny(output, f.CompletionPhrases); ok {
		return false, fmt.Sprintf("output contains completion phrase %q", phrase)
	}
	if n := utf8.RuneCountInString(output); n > f.MaxOutputChars {
		return false, fmt.Sprintf("output too long (%d > %d chars)", n, f.MaxOutputChars)
	}
	if _, ok := util.ContainsAny(name, f.NameIndicators); ok {
		return true, ""
	}
	if _, ok := util.ContainsAny(name, f.AllowedPhrases); ok {
		return true, ""
	}
	return false, "name has no analysis indicator"
}

// PassesQuota is the workspace limit gate.
func PassesQuota(tasks []*task.Task, q rules.QuotaRules, maxAutoTasks int) (bool, string) {
	c := task.Count(tasks)
	switch {
	case c.Pending > q.MaxPending:
		return false, fmt.Sprintf("%d pending tasks (max %d)", c.Pending, q.MaxPending)
	case c.CompletionRatio() < q.MinCompletionRatio:
		return false, fmt.Sprintf("completion ratio %.2f below %.2f", c.CompletionRatio(), q.MinCompletionRatio)
	case c.Total < q.MinTotalTasks:
		return false, fmt.Sprintf("%d tasks (min %d)", c.Total, q.MinTotalTasks)
	}
	if maxAutoTasks > 0 {
		auto := 0
		for _, t := range tasks {
			if t.CreationType == task.CreationAutoHandoff {
				auto++
			}
		}
		if auto >= maxAutoTasks {
			return false, fmt.Sprintf("%d automatic follow-ups already (max %d)", auto, maxAutoTasks)
		}
	}
	return true, ""
}

func handoffKey(workspaceID, agentID string) string {
	return workspaceID + "/" + agentID
}

// isDuplicateHandoff checks the handoff caches and then the names of recent
// completions.
func (e *Executor) isDuplicateHandoff(t *task.Task, workspaceID string, tasks []*task.Task, cfg Config) (bool, string) {
	now := e.now()
	e.mu.Lock()
	last, hasAgent := e.handoffs[handoffKey(workspaceID, t.AgentID)]
	wsLast, hasWorkspace := e.workspaceHandoffs[workspaceID]
	e.mu.Unlock()

	if hasAgent && now.Sub(last) < cfg.HandoffTTL {
		return true, fmt.Sprintf("handoff for this agent %s ago", now.Sub(last).Round(time.Second))
	}
	if hasWorkspace && now.Sub(wsLast) < cfg.Cooldown {
		return true, fmt.Sprintf("workspace cooldown active (last handoff %s ago)", now.Sub(wsLast).Round(time.Second))
	}

	var others []*task.Task
	for _, other := range task.Filter(tasks, task.StatusCompleted) {
		if other.ID != t.ID {
			others = append(others, other)
		}
	}
	d := e.rules.Duplicate
	return IsDuplicateName(t.Name, task.RecentlyUpdated(others, d.RecentWindow), d)
}

// IsDuplicateName compares a candidate task name with recent completions.
// Any recent handoff-style name, or a word overlap above the similarity
// threshold, marks the candidate as a duplicate.
func IsDuplicateName(name string, recent []*task.Task, d rules.DuplicateRules) (bool, string) {
	for _, r := range recent {
		if kw, ok := util.ContainsAny(r.Name, d.HandoffKeywords); ok {
			return true, fmt.Sprintf("recent task %q mentions %q", r.Name, kw)
		}
		if sim := util.Jaccard(name, r.Name); sim > d.SimilarityThreshold {
			return true, fmt.Sprintf("name overlaps %.0f%% with recent task %q", sim*100, r.Name)
		}
	}
	return false, ""
}

// Analyze is the deterministic follow-up analysis. It fires only when the
// summary is long enough and matches several distinct follow-up phrases.
func Analyze(t *task.Task, result task.Result, counts task.Counts, r *rules.Rules) Analysis {
	a := Analysis{
		ProjectStatus: "completed",
		Reasoning:     "Deterministic analysis - no follow-up detected",
	}
	ar := r.Analysis
	summary := result.Summary
	matches := util.CountContained(summary, ar.FollowUpPatterns)
	length := utf8.RuneCountInString(summary)

	if matches >= ar.MinMatches && length > ar.MinOutputChars {
		a.RequiresFollowUp = true
		a.Confidence = ar.Confidence
		a.ProjectStatus = "in_progress"
		a.SuggestedHandoffs = []string{"Continue the next step identified by " + strings.TrimSpace(t.Name)}
		a.NextPhase = phase.ValidateWith(r, t.Phase())
		a.Reasoning = fmt.Sprintf("Matched %d follow-up patterns", matches)
	}
	a.Reasoning += fmt.Sprintf(" | Output: %dchars, Pending: %d", length, counts.Pending)
	return a
}

// executeHandoff creates the single follow-up task for t.
func (e *Executor) executeHandoff(ctx context.Context, t *task.Task, result task.Result, workspaceID string, cfg Config, rep *Report) {
	depth := t.DelegationDepth()
	if depth >= cfg.MaxDelegationDepth {
		e.logger.Warn("handoff blocked at maximum delegation depth",
			"task", t.ID,
			"depth", depth)
		rep.Decision = DecisionHandoffBlocked
		rep.Reason = fmt.Sprintf("delegation depth %d", depth)
		return
	}

	// Mark the caches before creating so a concurrent completion is rejected.
	now := e.now()
	e.mu.Lock()
	e.handoffs[handoffKey(workspaceID, t.AgentID)] = now
	e.workspaceHandoffs[workspaceID] = now
	e.mu.Unlock()

	source := result.Summary
	if strings.TrimSpace(source) == "" {
		source = t.Description
	}
	desc, err := render("follow_up.md", followUpData{
		Depth:         depth + 1,
		SourceName:    t.Name,
		SourceSummary: util.Truncate(source, 200),
	})
	if err != nil {
		e.logger.Error("render follow-up description", "task", t.ID, "error", err)
		rep.Decision = DecisionHandoffError
		rep.Reason = err.Error()
		return
	}

	follow := &task.Task{
		WorkspaceID:      workspaceID,
		Name:             "AUTO: Follow-up for " + util.Truncate(t.Name, 30) + "...",
		Description:      desc,
		Status:           task.StatusPending,
		Priority:         task.PriorityMedium,
		ParentTaskID:     t.ID,
		CreatedByTaskID:  t.ID,
		CreatedByAgentID: t.AgentID,
		CreationType:     task.CreationAutoHandoff,
		ContextData: map[string]any{
			task.KeyCreatedByTaskID:  t.ID,
			task.KeyCreatedByAgentID: t.AgentID,
			task.KeyCreationMethod:   "automated_handoff",
			task.KeyDelegationDepth:  depth + 1,
			task.KeyProjectPhase:     string(phase.ValidateWith(e.rules, t.Phase())),
			task.KeyCreatedAt:        e.timestamp(),
		},
	}
	if !e.createTask(ctx, rep, "create_follow_up", follow) {
		rep.Decision = DecisionHandoffError
		rep.Reason = "follow-up task could not be stored"
		return
	}
	rep.CreatedTaskIDs = append(rep.CreatedTaskIDs, follow.ID)
	rep.Decision = DecisionAutoTaskCreated
	e.logger.Warn("automatic follow-up created, notify the project manager",
		"task", follow.ID,
		"source", t.ID,
		"depth", depth+1)
}
