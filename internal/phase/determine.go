package phase

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/task"
)

// Thresholds are the completed-task counts that advance a workspace.
type Thresholds struct {
	AnalysisToImplementation     int `yaml:"analysis_to_implementation"`
	ImplementationToFinalization int `yaml:"implementation_to_finalization"`
	FinalizationToCompleted      int `yaml:"finalization_to_completed"`
}

// DefaultThresholds returns the thresholds from the built-in rules (3/2/2).
func DefaultThresholds() Thresholds {
	t := rules.Default().Phase.Thresholds
	return Thresholds{
		AnalysisToImplementation:     t.AnalysisToImplementation,
		ImplementationToFinalization: t.ImplementationToFinalization,
		FinalizationToCompleted:      t.FinalizationToCompleted,
	}
}

// orDefault fills zero fields from DefaultThresholds.
func (t Thresholds) orDefault() Thresholds {
	d := DefaultThresholds()
	if t.AnalysisToImplementation <= 0 {
		t.AnalysisToImplementation = d.AnalysisToImplementation
	}
	if t.ImplementationToFinalization <= 0 {
		t.ImplementationToFinalization = d.ImplementationToFinalization
	}
	if t.FinalizationToCompleted <= 0 {
		t.FinalizationToCompleted = d.FinalizationToCompleted
	}
	return t
}

// CompletedByPhase counts completed tasks per validated phase. Tasks without
// a recorded phase count as ANALYSIS.
func CompletedByPhase(tasks []*task.Task) map[Phase]int {
	return CompletedByPhaseWith(rules.Default(), tasks)
}

// CompletedByPhaseWith is CompletedByPhase with phase synonyms from r.
func CompletedByPhaseWith(r *rules.Rules, tasks []*task.Task) map[Phase]int {
	counts := make(map[Phase]int, len(Sequence))
	for _, t := range tasks {
		if t.Status != task.StatusCompleted {
			continue
		}
		counts[ValidateWith(r, t.Phase())]++
	}
	return counts
}

// Determine infers the current phase from a task list.
func Determine(tasks []*task.Task, th Thresholds) Phase {
	return DetermineWith(rules.Default(), tasks, th)
}

// DetermineWith is Determine with phase synonyms from r.
func DetermineWith(r *rules.Rules, tasks []*task.Task, th Thresholds) Phase {
	th = th.orDefault()
	counts := CompletedByPhaseWith(r, tasks)
	switch {
	case counts[Finalization] >= th.FinalizationToCompleted:
		return Completed
	case counts[Implementation] >= th.ImplementationToFinalization:
		return Finalization
	case counts[Analysis] >= th.AnalysisToImplementation:
		return Implementation
	default:
		return Analysis
	}
}

// TaskLister is the read side of the task store.
type TaskLister interface {
	ListTasks(ctx context.Context, workspaceID string) ([]*task.Task, error)
}

// Manager determines workspace phases from the task store.
type Manager struct {
	tasks      TaskLister
	rules      *rules.Rules
	thresholds Thresholds
	logger     *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithThresholds overrides the default thresholds.
func WithThresholds(th Thresholds) ManagerOption {
	return func(m *Manager) { m.thresholds = th.orDefault() }
}

// WithRules sets the rule set used to read task phases.
func WithRules(r *rules.Rules) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.rules = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager reading tasks from tasks.
func NewManager(tasks TaskLister, opts ...ManagerOption) *Manager {
	m := &Manager{
		tasks:      tasks,
		rules:      rules.Default(),
		thresholds: DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Thresholds returns the thresholds in effect.
func (m *Manager) Thresholds() Thresholds {
	return m.thresholds
}

// DetermineWorkspaceCurrentPhase infers the phase of a workspace. A store
// failure is logged and reported as ANALYSIS.
func (m *Manager) DetermineWorkspaceCurrentPhase(ctx context.Context, workspaceID string) Phase {
	tasks, err := m.tasks.ListTasks(ctx, workspaceID)
	if err != nil {
		m.logger.Error("determine phase: list tasks failed",
			"workspace", workspaceID,
			"error", err)
		return Analysis
	}
	p := DetermineWith(m.rules, tasks, m.thresholds)
	m.logger.Debug("workspace phase determined",
		"workspace", workspaceID,
		"phase", p,
		"tasks", len(tasks))
	return p
}
