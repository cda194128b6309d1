// Package deliverable decides when a workspace has produced enough work for a
// final deliverable, and creates the task that assembles it.
package deliverable

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

// Store is the persistence the aggregator needs.
type Store interface {
	GetWorkspace(ctx context.Context, id string) (*team.Workspace, error)
	ListTasks(ctx context.Context, workspaceID string) ([]*task.Task, error)
	ListAgents(ctx context.Context, workspaceID string) ([]*team.Agent, error)
	CreateTask(ctx context.Context, t *task.Task) error
	UpdateWorkspaceStatus(ctx context.Context, id string, status team.WorkspaceStatus) error
}

// TaskObserver is told about the deliverable tasks the aggregator creates.
type TaskObserver interface {
	TaskCreated(ctx context.Context, t *task.Task) error
}

// Config controls when deliverables are created.
type Config struct {
	Enabled             bool    `yaml:"enabled"`
	ReadinessThreshold  float64 `yaml:"readiness_threshold"`
	MinCompletedTasks   int     `yaml:"min_completed_tasks"`
	AutoCompleteProject bool    `yaml:"auto_complete_project"`
}

// DefaultConfig returns the default deliverable configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		ReadinessThreshold:  0.70,
		MinCompletedTasks:   3,
		AutoCompleteProject: true,
	}
}

// Aggregator creates final deliverable tasks.
type Aggregator struct {
	store    Store
	cfg      Config
	rules    *rules.DeliverableRules
	all      *rules.Rules
	observer TaskObserver
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConfig sets the configuration.
func WithConfig(cfg Config) Option {
	return func(a *Aggregator) { a.cfg = cfg }
}

// WithRules replaces the built-in deliverable rules.
func WithRules(r *rules.Rules) Option {
	return func(a *Aggregator) {
		if r != nil {
			a.rules = &r.Deliverable
			a.all = r
		}
	}
}

// WithObserver announces created deliverable tasks to o.
func WithObserver(o TaskObserver) Option {
	return func(a *Aggregator) { a.observer = o }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Aggregator.
func New(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		cfg:    DefaultConfig(),
		rules:  &rules.Default().Deliverable,
		all:    rules.Default(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CheckAndCreateFinalDeliverable creates the final deliverable task when the
// workspace is ready and has none yet. It returns the new task id, or "".
func (a *Aggregator) CheckAndCreateFinalDeliverable(ctx context.Context, workspaceID string) (string, error) {
	if !a.cfg.Enabled {
		return "", nil
	}

	ws, err := a.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("get workspace %s: %w", workspaceID, err)
	}
	if ws == nil {
		a.logger.Warn("deliverable check for unknown workspace", "workspace", workspaceID)
		return "", nil
	}
	tasks, err := a.store.ListTasks(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("list tasks %s: %w", workspaceID, err)
	}

	ready := EvaluateReadiness(tasks, ws, a.cfg, a.now())
	a.logger.Info("deliverable readiness",
		"workspace", workspaceID,
		"completed", ready.Completed,
		"total", ready.Total,
		"pending", ready.Pending,
		"failed", ready.Failed,
		"finalization_completed", ready.FinalizationCompleted,
		"standard", ready.Standard,
		"high_completion", ready.HighCompletion,
		"finalization", ready.Finalization,
		"time_based", ready.TimeBased)
	if !ready.Ready() {
		return "", nil
	}

	if existing := FindExisting(tasks, a.rules); existing != nil {
		a.logger.Info("final deliverable already exists", "workspace", workspaceID, "task", existing.ID)
		return "", nil
	}

	completed := task.Filter(tasks, task.StatusCompleted)
	if len(completed) < a.cfg.MinCompletedTasks {
		a.logger.Info("not enough completed tasks for deliverable",
			"workspace", workspaceID,
			"completed", len(completed),
			"min", a.cfg.MinCompletedTasks)
		return "", nil
	}

	agents, err := a.store.ListAgents(ctx, workspaceID)
	if err != nil {
		return "", fmt.Errorf("list agents %s: %w", workspaceID, err)
	}

	typ := DetectType(ws.Goal, a.rules)
	agent, reason := SelectAgent(agents, typ, a.rules)
	if agent == nil {
		a.logger.Error("no agent can assemble the deliverable",
			"workspace", workspaceID,
			"type", typ,
			"agents", team.Describe(agents))
		return "", nil
	}

	agg := Aggregate(completed, typ)
	desc, err := renderDescription(ws.Goal, typ, agg)
	if err != nil {
		return "", err
	}

	now := a.now()
	t := &task.Task{
		WorkspaceID:    workspaceID,
		Name:           "FINAL DELIVERABLE: " + TypeTitle(typ),
		Description:    desc,
		Status:         task.StatusPending,
		AgentID:        agent.ID,
		AssignedToRole: agent.Role,
		Priority:       task.PriorityCritical,
		CreationType:   task.CreationFinalDeliverable,
		ContextData: map[string]any{
			task.KeyIsFinalDeliverable:     true,
			task.KeyDeliverableAggregation: true,
			task.KeyDeliverableType:        typ,
			task.KeyProjectPhase:           string(phase.Finalization),
			task.KeyAggregatedData:         agg,
			task.KeyWorkspaceGoal:          ws.Goal,
			task.KeyTriggersCompletion:     true,
			"data_quality_score":           agg.QualityScore,
			"agent_selection_reason":       reason,
			"creation_timestamp":           now.UTC().Format(time.RFC3339),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateTask(ctx, t); err != nil {
		return "", fmt.Errorf("create deliverable task: %w", err)
	}
	if a.observer != nil {
		if err := a.observer.TaskCreated(ctx, t); err != nil {
			a.logger.Warn("announce deliverable task", "task", t.ID, "error", err)
		}
	}
	a.logger.Info("final deliverable task created",
		"workspace", workspaceID,
		"task", t.ID,
		"type", typ,
		"agent", agent.Name,
		"quality_score", agg.QualityScore)
	return t.ID, nil
}

// CompleteProjectIfDelivered marks the workspace completed once its final
// deliverable task is done. It reports whether the workspace changed.
func (a *Aggregator) CompleteProjectIfDelivered(ctx context.Context, t *task.Task) (bool, error) {
	if !a.cfg.AutoCompleteProject || t == nil || !t.ContextBool(task.KeyIsFinalDeliverable) {
		return false, nil
	}
	if t.Status != task.StatusCompleted && (t.Result == nil || !t.Result.IsCompleted()) {
		return false, nil
	}

	ws, err := a.store.GetWorkspace(ctx, t.WorkspaceID)
	if err != nil {
		return false, fmt.Errorf("get workspace %s: %w", t.WorkspaceID, err)
	}
	if ws == nil || ws.Status == team.WorkspaceCompleted {
		return false, nil
	}
	if err := a.store.UpdateWorkspaceStatus(ctx, ws.ID, team.WorkspaceCompleted); err != nil {
		return false, fmt.Errorf("complete workspace %s: %w", ws.ID, err)
	}
	a.logger.Info("project completed", "workspace", ws.ID, "deliverable", t.ID)
	return true, nil
}
