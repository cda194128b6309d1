package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/task"
)

const followUpSummary = "Initial analysis indicates need for deeper pricing review. " +
	"Research suggests next step is a survey of the top ten competitors in the region."

func specialistSetup() (*memStore, *task.Task) {
	store := newMemStore()
	store.addAgent("rs", "Rae", "Research Specialist")
	subject := store.addTask(completedTask("t-comp", "Competitor research", "rs", "ANALYSIS"))
	store.addTask(completedTask("t-aud", "Audience profiling", "rs", "ANALYSIS"))
	store.addTask(completedTask("t-brand", "Brand audit", "rs", "ANALYSIS"))
	store.addTask(completedTask("t-price", "Pricing survey", "rs", "ANALYSIS"))
	return store, subject
}

func completedResult(summary string) task.Result {
	return task.Result{Status: "completed", Summary: summary}
}

func TestSpecialistFollowUpThenDuplicatePrevented(t *testing.T) {
	t.Parallel()

	store, subject := specialistSetup()
	rec := newFakeRecorder()
	e := newTestExecutor(store, nil, WithConfig(enabledConfig()), WithRecorder(rec))

	rep := e.HandleTaskCompletion(context.Background(), subject, completedResult(followUpSummary), testWorkspace)

	assert.Equal(t, BranchSpecialist, rep.Branch)
	require.Equal(t, DecisionAutoTaskCreated, rep.Decision, rep.Reason)
	require.NotNil(t, rep.Analysis)
	assert.True(t, rep.Analysis.RequiresFollowUp)
	assert.InDelta(t, 0.7, rep.Analysis.Confidence, 1e-9)

	auto := store.createdBy(task.CreationAutoHandoff)
	require.Len(t, auto, 1)
	follow := auto[0]
	assert.Equal(t, "AUTO: Follow-up for Competitor research...", follow.Name)
	assert.Equal(t, "t-comp", follow.ParentTaskID)
	assert.Equal(t, "rs", follow.CreatedByAgentID)
	assert.Equal(t, 1, follow.DelegationDepth())
	assert.Equal(t, "automated_handoff", follow.ContextString(task.KeyCreationMethod))
	assert.Equal(t, "ANALYSIS", follow.Phase())
	assert.Contains(t, follow.Description, "[Delegation Depth: 1]")
	assert.Contains(t, follow.Description, "(Generated from: Competitor research)")
	assert.Equal(t, 1, rec.created[task.CreationAutoHandoff])

	next := store.task("t-brand")
	rep = e.HandleTaskCompletion(context.Background(), next, completedResult(followUpSummary), testWorkspace)
	assert.Equal(t, DecisionDuplicatePrevented, rep.Decision)
	assert.Len(t, store.createdBy(task.CreationAutoHandoff), 1)
}

func TestSpecialistWorkspaceCooldownAcrossAgents(t *testing.T) {
	t.Parallel()

	store, subject := specialistSetup()
	store.addAgent("rs2", "Rob", "Research Specialist")
	other := store.addTask(completedTask("t-other", "Market research", "rs2", "ANALYSIS"))
	e := newTestExecutor(store, nil, WithConfig(enabledConfig()))

	rep := e.HandleTaskCompletion(context.Background(), subject, completedResult(followUpSummary), testWorkspace)
	require.Equal(t, DecisionAutoTaskCreated, rep.Decision, rep.Reason)

	rep = e.HandleTaskCompletion(context.Background(), other, completedResult(followUpSummary), testWorkspace)
	assert.Equal(t, DecisionDuplicatePrevented, rep.Decision)
	assert.Contains(t, rep.Reason, "cooldown")
}

func TestSpecialistHandoffBlockedAtMaxDepth(t *testing.T) {
	t.Parallel()

	store, subject := specialistSetup()
	subject.SetContext(task.KeyDelegationDepth, 2)
	e := newTestExecutor(store, nil, WithConfig(enabledConfig()))

	rep := e.HandleTaskCompletion(context.Background(), subject, completedResult(followUpSummary), testWorkspace)

	assert.Equal(t, DecisionHandoffBlocked, rep.Decision)
	assert.Empty(t, store.createdBy(task.CreationAutoHandoff))
}

func TestSpecialistBelowThresholdTakesNoAction(t *testing.T) {
	t.Parallel()

	store, subject := specialistSetup()
	e := newTestExecutor(store, nil)
	e.EnableAutoGeneration(true, 0)

	rep := e.HandleTaskCompletion(context.Background(), subject, completedResult(followUpSummary), testWorkspace)

	assert.Equal(t, DecisionNoAction, rep.Decision)
	require.NotNil(t, rep.Analysis)
	assert.True(t, rep.Analysis.RequiresFollowUp)
	assert.Empty(t, store.createdBy(task.CreationAutoHandoff))
}

func TestSpecialistHandoffsDisabledTakesNoAction(t *testing.T) {
	t.Parallel()

	store, subject := specialistSetup()
	e := newTestExecutor(store, nil)
	e.EnableAutoGeneration(false, 0.5)

	rep := e.HandleTaskCompletion(context.Background(), subject, completedResult(followUpSummary), testWorkspace)

	assert.Equal(t, DecisionNoAction, rep.Decision)
	assert.Empty(t, store.createdBy(task.CreationAutoHandoff))
}

func TestSpecialistGateDecisions(t *testing.T) {
	t.Parallel()

	t.Run("filtered by name", func(t *testing.T) {
		store, _ := specialistSetup()
		done := store.addTask(completedTask("t-x", "Final copy delivered", "rs", ""))
		e := newTestExecutor(store, nil, WithConfig(enabledConfig()))
		rep := e.HandleTaskCompletion(context.Background(), done, completedResult(followUpSummary), testWorkspace)
		assert.Equal(t, DecisionFilteredOut, rep.Decision)
	})

	t.Run("workspace limits", func(t *testing.T) {
		store, subject := specialistSetup()
		for _, id := range []string{"p1", "p2", "p3", "p4"} {
			store.addTask(&task.Task{ID: id, Name: "Open " + id, Status: task.StatusPending})
		}
		e := newTestExecutor(store, nil, WithConfig(enabledConfig()))
		rep := e.HandleTaskCompletion(context.Background(), subject, completedResult(followUpSummary), testWorkspace)
		assert.Equal(t, DecisionWorkspaceLimits, rep.Decision)
	})

	t.Run("snapshot failure degrades", func(t *testing.T) {
		store, subject := specialistSetup()
		store.errList = errors.New("connection reset")
		e := newTestExecutor(store, nil, WithConfig(enabledConfig()))
		rep := e.HandleTaskCompletion(context.Background(), subject, completedResult(followUpSummary), testWorkspace)
		assert.Equal(t, DecisionDegraded, rep.Decision)
		assert.Contains(t, rep.Degraded, "load_snapshot")
	})

	t.Run("create failure", func(t *testing.T) {
		store, subject := specialistSetup()
		store.errCreate = errors.New("disk full")
		e := newTestExecutor(store, nil, WithConfig(enabledConfig()))
		rep := e.HandleTaskCompletion(context.Background(), subject, completedResult(followUpSummary), testWorkspace)
		assert.Equal(t, DecisionHandoffError, rep.Decision)
		assert.Contains(t, rep.Degraded, "create_follow_up")
	})
}

func TestPassesContentFilter(t *testing.T) {
	t.Parallel()

	f := rules.Default().Filter
	tests := []struct {
		name     string
		taskName string
		result   task.Result
		want     bool
	}{
		{"analysis name passes", "Competitor analysis", completedResult("short"), true},
		{"allowed phrase passes", "Initial research on pricing", completedResult("short"), true},
		{"not completed", "Competitor analysis", task.Result{Status: "failed"}, false},
		{"completion word in name", "Research handoff", completedResult("short"), false},
		{"completion phrase in output", "Competitor analysis", completedResult("Objective achieved."), false},
		{"output too long", "Competitor analysis", completedResult(strings.Repeat("x", 1501)), false},
		{"no indicator", "Write captions", completedResult("short"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, why := PassesContentFilter(tt.taskName, tt.result, f)
			assert.Equal(t, tt.want, ok, why)
			if !tt.want {
				assert.NotEmpty(t, why)
			}
		})
	}
}

func TestPassesQuota(t *testing.T) {
	t.Parallel()

	q := rules.Default().Quota
	build := func(completed, pending, auto int) []*task.Task {
		var out []*task.Task
		for range completed {
			out = append(out, &task.Task{Status: task.StatusCompleted})
		}
		for range pending {
			out = append(out, &task.Task{Status: task.StatusPending})
		}
		for range auto {
			out = append(out, &task.Task{Status: task.StatusCompleted, CreationType: task.CreationAutoHandoff})
		}
		return out
	}

	tests := []struct {
		name  string
		tasks []*task.Task
		max   int
		want  bool
	}{
		{"healthy", build(9, 1, 0), 5, true},
		{"too many pending", build(20, 4, 0), 5, false},
		{"low completion ratio", build(6, 3, 0), 5, false},
		{"too few tasks", build(2, 0, 0), 5, false},
		{"auto quota exhausted", build(5, 0, 5), 5, false},
		{"auto quota unlimited", build(5, 0, 5), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, why := PassesQuota(tt.tasks, q, tt.max)
			assert.Equal(t, tt.want, ok, why)
		})
	}
}

func TestIsDuplicateName(t *testing.T) {
	t.Parallel()

	d := rules.Default().Duplicate
	recent := func(names ...string) []*task.Task {
		var out []*task.Task
		for _, n := range names {
			out = append(out, &task.Task{Name: n, Status: task.StatusCompleted})
		}
		return out
	}

	dup, _ := IsDuplicateName("alpha beta gamma delta epsilon", recent("alpha beta gamma delta zeta"), d)
	assert.True(t, dup, "4 of 6 words shared")

	dup, _ = IsDuplicateName("alpha beta gamma delta epsilon", recent("alpha beta gamma theta iota"), d)
	assert.False(t, dup, "3 of 7 words shared")

	dup, why := IsDuplicateName("Pricing review", recent("Next steps for outreach"), d)
	assert.True(t, dup)
	assert.Contains(t, why, "next")

	dup, _ = IsDuplicateName("Pricing review", nil, d)
	assert.False(t, dup)

	dup, why = IsDuplicateName("Audience profiling", recent("Editorial calendar", "Brand audit", "Pricing survey"), d)
	assert.False(t, dup, "names sharing no words")
	assert.Empty(t, why)

	zero := d
	zero.SimilarityThreshold = 0
	dup, _ = IsDuplicateName("Audience profiling", recent("Editorial calendar"), zero)
	assert.False(t, dup, "zero overlap never exceeds the threshold")
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	r := rules.Default()
	subject := completedTask("t-1", "Competitor research", "rs", "research")
	counts := task.Counts{Total: 4, Pending: 1, Completed: 3}

	a := Analyze(subject, completedResult(followUpSummary), counts, r)
	assert.True(t, a.RequiresFollowUp)
	assert.InDelta(t, 0.7, a.Confidence, 1e-9)
	assert.Equal(t, "in_progress", a.ProjectStatus)
	assert.Equal(t, phase.Analysis, a.NextPhase)
	assert.Len(t, a.SuggestedHandoffs, 1)
	assert.Contains(t, a.Reasoning, "Matched 2 follow-up patterns")
	assert.Contains(t, a.Reasoning, "Pending: 1")

	single := Analyze(subject, completedResult("Analysis indicates need for more work, but nothing else was noted in this summary at all today."), counts, r)
	assert.False(t, single.RequiresFollowUp)
	assert.Zero(t, single.Confidence)
	assert.Equal(t, "completed", single.ProjectStatus)

	short := Analyze(subject, completedResult("analysis indicates need for; research suggests next step"), counts, r)
	assert.False(t, short.RequiresFollowUp, "summary at or under the minimum length")
}
