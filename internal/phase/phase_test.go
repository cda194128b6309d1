package phase

import (
	"context"
	"errors"
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/task"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Phase
	}{
		{"ANALYSIS", Analysis},
		{"implementation", Implementation},
		{"  Finalization \n", Finalization},
		{"completed", Completed},
		{"research", Analysis},
		{"STRATEGY", Implementation},
		{"planning", Implementation},
		{"Execution", Finalization},
		{"creation", Finalization},
		{"content", Finalization},
		{"publishing", Finalization},
		{"", Analysis},
		{"   ", Analysis},
		{"garbage", Analysis},
		{"\x00\xff", Analysis},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Validate(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestNextAndPrevious(t *testing.T) {
	t.Parallel()

	next, ok := Next(Analysis)
	assert.True(t, ok)
	assert.Equal(t, Implementation, next)

	_, ok = Next(Completed)
	assert.False(t, ok, "COMPLETED is terminal")

	_, ok = Next(Phase("BOGUS"))
	assert.False(t, ok)

	p, steps := Analysis, 0
	for {
		n, ok := Next(p)
		if !ok {
			break
		}
		p = n
		steps++
	}
	assert.Equal(t, Completed, p)
	assert.Equal(t, 3, steps)

	prev, ok := Previous(Implementation)
	assert.True(t, ok)
	assert.Equal(t, Analysis, prev)
	_, ok = Previous(Analysis)
	assert.False(t, ok)
}

func TestIsValidTransition(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidTransition(Analysis, Implementation))
	assert.True(t, IsValidTransition(Finalization, Completed))
	assert.False(t, IsValidTransition(Analysis, Finalization), "skipping a phase")
	assert.False(t, IsValidTransition(Implementation, Analysis), "moving backwards")
	assert.False(t, IsValidTransition(Analysis, Analysis))
	assert.False(t, IsValidTransition(Phase("X"), Analysis))
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Describe(Analysis), "market research")
	assert.Equal(t, "General project work", Describe(Completed))
}

func completedIn(p string, n int) []*task.Task {
	var out []*task.Task
	for i := 0; i < n; i++ {
		out = append(out, &task.Task{
			Status:      task.StatusCompleted,
			ContextData: map[string]any{task.KeyProjectPhase: p},
		})
	}
	return out
}

func TestDetermine(t *testing.T) {
	t.Parallel()

	pending := &task.Task{Status: task.StatusPending, ContextData: map[string]any{task.KeyProjectPhase: "FINALIZATION"}}
	untagged := &task.Task{Status: task.StatusCompleted}

	tests := []struct {
		name  string
		tasks []*task.Task
		want  Phase
	}{
		{"empty", nil, Analysis},
		{"two analysis", completedIn("ANALYSIS", 2), Analysis},
		{"three analysis", completedIn("ANALYSIS", 3), Implementation},
		{"five analysis", completedIn("ANALYSIS", 5), Implementation},
		{"untagged counts as analysis", append(completedIn("ANALYSIS", 2), untagged), Implementation},
		{"synonyms are validated", completedIn("research", 3), Implementation},
		{"two implementation", completedIn("IMPLEMENTATION", 2), Finalization},
		{"two finalization", completedIn("FINALIZATION", 2), Completed},
		{"pending tasks ignored", append(completedIn("FINALIZATION", 1), pending, pending), Analysis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Determine(tt.tasks, Thresholds{}))
		})
	}
}

func TestDetermineCustomThresholds(t *testing.T) {
	t.Parallel()

	th := Thresholds{AnalysisToImplementation: 5}
	assert.Equal(t, Analysis, Determine(completedIn("ANALYSIS", 4), th))
	assert.Equal(t, Implementation, Determine(completedIn("ANALYSIS", 5), th))
	assert.Equal(t, Finalization, Determine(completedIn("IMPLEMENTATION", 2), th), "zero fields fall back to defaults")
}

// buildSynonymRules is the built-in rule set plus BUILD as an IMPLEMENTATION
// synonym.
func buildSynonymRules() *rules.Rules {
	r := *rules.Default()
	r.Phase.Synonyms = maps.Clone(r.Phase.Synonyms)
	r.Phase.Synonyms["BUILD"] = string(Implementation)
	r.Phase.Descriptions = maps.Clone(r.Phase.Descriptions)
	r.Phase.Descriptions[string(Implementation)] = "Building the thing"
	return &r
}

func TestCustomRuleSynonyms(t *testing.T) {
	t.Parallel()

	r := buildSynonymRules()
	tasks := completedIn("BUILD", 2)

	assert.Equal(t, Implementation, ValidateWith(r, "build"))
	assert.Equal(t, Analysis, Validate("build"), "built-in rules are untouched")
	assert.Equal(t, map[Phase]int{Implementation: 2}, CompletedByPhaseWith(r, tasks))
	assert.Equal(t, Finalization, DetermineWith(r, tasks, Thresholds{}))
	assert.Equal(t, Analysis, Determine(tasks, Thresholds{}))
	assert.Equal(t, 2, EvaluateTransitionWith(r, tasks).ByPhase[Implementation].Completed)
	assert.Equal(t, "Building the thing", DescribeWith(r, Implementation))

	m := NewManager(&fakeLister{tasks: tasks}, WithRules(r))
	assert.Equal(t, Finalization, m.DetermineWorkspaceCurrentPhase(context.Background(), "ws"))
}

type fakeLister struct {
	tasks []*task.Task
	err   error
}

func (f *fakeLister) ListTasks(context.Context, string) ([]*task.Task, error) {
	return f.tasks, f.err
}

func TestManagerDetermineWorkspaceCurrentPhase(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeLister{tasks: completedIn("ANALYSIS", 5)})
	assert.Equal(t, Implementation, m.DetermineWorkspaceCurrentPhase(context.Background(), "ws"))

	failing := NewManager(&fakeLister{err: errors.New("db down")})
	assert.Equal(t, Analysis, failing.DetermineWorkspaceCurrentPhase(context.Background(), "ws"))

	custom := NewManager(&fakeLister{tasks: completedIn("ANALYSIS", 5)}, WithThresholds(Thresholds{AnalysisToImplementation: 6}))
	assert.Equal(t, Analysis, custom.DetermineWorkspaceCurrentPhase(context.Background(), "ws"))
	assert.Equal(t, 6, custom.Thresholds().AnalysisToImplementation)
}

func TestEvaluateTransition(t *testing.T) {
	t.Parallel()

	t.Run("analysis nearly done recommends implementation", func(t *testing.T) {
		ev := EvaluateTransition(completedIn("ANALYSIS", 5))
		assert.Equal(t, Analysis, ev.Current)
		assert.Equal(t, Implementation, ev.Recommended)
		assert.True(t, ev.Ready())
		assert.Equal(t, Progress{Total: 5, Completed: 5}, ev.ByPhase[Analysis])
	})

	t.Run("implementation in progress", func(t *testing.T) {
		tasks := completedIn("ANALYSIS", 2)
		tasks = append(tasks,
			&task.Task{Status: task.StatusPending, ContextData: map[string]any{task.KeyProjectPhase: "IMPLEMENTATION"}},
			&task.Task{Status: task.StatusCompleted, ContextData: map[string]any{task.KeyProjectPhase: "IMPLEMENTATION"}},
		)
		ev := EvaluateTransition(tasks)
		assert.Equal(t, Implementation, ev.Current)
		assert.Equal(t, Implementation, ev.Recommended)
		assert.False(t, ev.Ready())
		assert.InDelta(t, 0.5, ev.ByPhase[Implementation].Ratio(), 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		ev := EvaluateTransition(nil)
		assert.Equal(t, Analysis, ev.Current)
		assert.False(t, ev.Ready())
	})
}
