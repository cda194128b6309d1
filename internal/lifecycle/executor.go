// Package lifecycle reacts to task completions and failures in a workspace.
//
// The Executor classifies every completed task as manager or specialist
// work. A manager completion fans out into the sub-tasks its plan defines. A
// specialist completion passes a chain of conservative gates and produces at
// most one follow-up task. After either branch the Executor asks the
// deliverable aggregator whether the project is ready for its final
// deliverable and checks whether a phase just completed.
//
// HandleTaskCompletion never returns an error: collaborator failures and
// panics degrade to "no action" and are logged.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/roles"
	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

// Store is the persistence the executor needs.
type Store interface {
	GetWorkspace(ctx context.Context, id string) (*team.Workspace, error)
	ListTasks(ctx context.Context, workspaceID string) ([]*task.Task, error)
	ListAgents(ctx context.Context, workspaceID string) ([]*team.Agent, error)
	GetAgent(ctx context.Context, id string) (*team.Agent, error)
	// CreateTask persists t and assigns t.ID when it is empty.
	CreateTask(ctx context.Context, t *task.Task) error
	UpdateTask(ctx context.Context, t *task.Task) error
}

// Aggregator decides whether a workspace is ready for its final deliverable
// and creates the deliverable task. It returns the new task id or "".
type Aggregator interface {
	CheckAndCreateFinalDeliverable(ctx context.Context, workspaceID string) (string, error)
}

// ProjectCompleter is implemented by aggregators that close a workspace once
// its final deliverable task is done.
type ProjectCompleter interface {
	CompleteProjectIfDelivered(ctx context.Context, t *task.Task) (bool, error)
}

// Recorder receives lifecycle counters.
type Recorder interface {
	RecordCompletion(branch Branch, decision Decision)
	RecordTaskCreated(creationType task.CreationType)
	RecordDegraded(call string)
	SetAnalyzed(n int)
}

// TaskObserver is told about every task the executor creates.
type TaskObserver interface {
	TaskCreated(ctx context.Context, t *task.Task) error
}

type nopRecorder struct{}

func (nopRecorder) RecordCompletion(Branch, Decision)   {}
func (nopRecorder) RecordTaskCreated(task.CreationType) {}
func (nopRecorder) RecordDegraded(string)               {}
func (nopRecorder) SetAnalyzed(int)                     {}

// Config holds the executor's policy knobs.
type Config struct {
	AutoGenerationEnabled    bool
	HandoffCreationEnabled   bool
	ConfidenceThreshold      float64
	MaxAutoTasksPerWorkspace int
	Cooldown                 time.Duration
	HandoffTTL               time.Duration
	MaxDelegationDepth       int
	AnalyzedCacheLimit       int
	AssessmentInterval       int
}

// DefaultConfig returns the conservative defaults: automatic follow-ups are
// off until explicitly enabled.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:      0.70,
		MaxAutoTasksPerWorkspace: 5,
		Cooldown:                 60 * time.Minute,
		HandoffTTL:               24 * time.Hour,
		MaxDelegationDepth:       2,
		AnalyzedCacheLimit:       1000,
		AssessmentInterval:       5,
	}
}

// Executor handles task completions for all workspaces of a process.
type Executor struct {
	store      Store
	aggregator Aggregator
	phases     *phase.Manager
	matcher    *roles.Matcher
	rules      *rules.Rules
	thresholds phase.Thresholds
	recorder   Recorder
	observer   TaskObserver
	logger     *slog.Logger
	now        func() time.Time

	mu                sync.Mutex
	cfg               Config
	analyzed          map[string]uint64
	analyzedSeq       uint64
	handoffs          map[string]time.Time
	workspaceHandoffs map[string]time.Time
	startedAt         time.Time
	lastCleanup       time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithConfig sets the policy configuration.
func WithConfig(cfg Config) Option {
	return func(e *Executor) { e.cfg = cfg }
}

// WithRules replaces the built-in rule tables.
func WithRules(r *rules.Rules) Option {
	return func(e *Executor) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithThresholds sets the phase thresholds.
func WithThresholds(th phase.Thresholds) Option {
	return func(e *Executor) { e.thresholds = th }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithObserver announces created tasks to o.
func WithObserver(o TaskObserver) Option {
	return func(e *Executor) { e.observer = o }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Executor. Construct one per process; aggregator may be nil
// to skip the deliverable check.
func New(store Store, aggregator Aggregator, opts ...Option) *Executor {
	e := &Executor{
		store:      store,
		aggregator: aggregator,
		rules:      rules.Default(),
		thresholds: phase.DefaultThresholds(),
		recorder:   nopRecorder{},
		logger:     slog.Default(),
		now:        time.Now,
		cfg:        DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.matcher = roles.NewMatcher(e.rules, e.logger)
	e.phases = phase.NewManager(store,
		phase.WithRules(e.rules),
		phase.WithThresholds(e.thresholds),
		phase.WithLogger(e.logger))
	e.resetState()

	e.logger.Info("task lifecycle executor initialized",
		"auto_generation", e.cfg.AutoGenerationEnabled,
		"handoff_creation", e.cfg.HandoffCreationEnabled,
		"confidence_threshold", e.cfg.ConfidenceThreshold)
	return e
}

func (e *Executor) resetState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.analyzed = make(map[string]uint64)
	e.analyzedSeq = 0
	e.handoffs = make(map[string]time.Time)
	e.workspaceHandoffs = make(map[string]time.Time)
	e.startedAt = e.now()
	e.lastCleanup = e.startedAt
	e.recorder.SetAnalyzed(0)
}

// Reset clears the analyzed set and the handoff caches.
func (e *Executor) Reset() {
	e.resetState()
}

// Config returns the configuration in effect.
func (e *Executor) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig replaces the configuration, for example after a config reload.
func (e *Executor) SetConfig(cfg Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.logger.Info("lifecycle config updated",
		"auto_generation", cfg.AutoGenerationEnabled,
		"handoff_creation", cfg.HandoffCreationEnabled,
		"confidence_threshold", cfg.ConfidenceThreshold)
}

// markAnalyzed records id and reports whether it was new.
func (e *Executor) markAnalyzed(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, seen := e.analyzed[id]; seen {
		return false
	}
	e.analyzedSeq++
	e.analyzed[id] = e.analyzedSeq
	e.recorder.SetAnalyzed(len(e.analyzed))
	return true
}

// HandleTaskCompletion processes one completed task. A task id is handled at
// most once per Executor; later calls return DecisionAlreadyAnalyzed.
func (e *Executor) HandleTaskCompletion(ctx context.Context, t *task.Task, result task.Result, workspaceID string) (rep Report) {
	if t == nil {
		e.logger.Error("task completion without a task", "workspace", workspaceID)
		return Report{WorkspaceID: workspaceID, Branch: BranchNone, Decision: DecisionError}
	}
	if workspaceID == "" {
		workspaceID = t.WorkspaceID
	}
	rep = Report{TaskID: t.ID, WorkspaceID: workspaceID, Branch: BranchNone}

	if !e.markAnalyzed(t.ID) {
		e.logger.Info("task already analyzed, skipping", "task", t.ID)
		rep.Decision = DecisionAlreadyAnalyzed
		e.recorder.RecordCompletion(rep.Branch, rep.Decision)
		return rep
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task completion handler panicked",
				"task", t.ID,
				"panic", r,
				"stack", string(debug.Stack()))
			rep.Decision = DecisionError
			rep.Reason = fmt.Sprintf("panic: %v", r)
			e.logAnalysis(t, &rep)
		}
		e.recorder.RecordCompletion(rep.Branch, rep.Decision)
	}()

	if e.isManagerTask(ctx, t, result, &rep) {
		rep.Branch = BranchManager
		e.logger.Info("processing manager task", "task", t.ID, "name", t.Name)
		e.handleManagerCompletion(ctx, t, result, workspaceID, &rep)
	} else {
		rep.Branch = BranchSpecialist
		e.logger.Info("processing specialist task", "task", t.ID, "name", t.Name)
		e.handleSpecialistCompletion(ctx, t, result, workspaceID, &rep)
	}
	e.logAnalysis(t, &rep)

	e.afterCompletion(ctx, t, workspaceID, &rep)
	return rep
}

// afterCompletion runs the deliverable and phase checks. Both are best effort.
func (e *Executor) afterCompletion(ctx context.Context, t *task.Task, workspaceID string, rep *Report) {
	if e.aggregator != nil {
		if pc, ok := e.aggregator.(ProjectCompleter); ok && t.ContextBool(task.KeyIsFinalDeliverable) {
			out := attempt(e, rep, "complete_project", func() (bool, error) {
				return pc.CompleteProjectIfDelivered(ctx, t)
			})
			if done, ok := out.Get(); ok && done {
				rep.ProjectCompleted = true
				e.logger.Info("project completed by final deliverable",
					"workspace", workspaceID,
					"task", t.ID)
			}
		}

		out := attempt(e, rep, "check_final_deliverable", func() (string, error) {
			return e.aggregator.CheckAndCreateFinalDeliverable(ctx, workspaceID)
		})
		if id, ok := out.Get(); ok && id != "" {
			rep.DeliverableTaskID = id
			e.recorder.RecordTaskCreated(task.CreationFinalDeliverable)
			e.logger.Info("final deliverable task created",
				"workspace", workspaceID,
				"task", id)
		}
	}

	if id, ok := e.checkPhaseCompletion(ctx, workspaceID, rep); ok {
		rep.PlanningTaskID = id
		e.logger.Info("phase completion detected, planning task created",
			"workspace", workspaceID,
			"task", id)
		e.logDecision(t, DecisionPhaseTransition, nil, "created planning task "+id)
	}
}

// createTask persists t and announces it. It reports whether t was stored.
func (e *Executor) createTask(ctx context.Context, rep *Report, call string, t *task.Task) bool {
	if t.CreatedAt.IsZero() {
		now := e.now()
		t.CreatedAt, t.UpdatedAt = now, now
	}
	out := attempt(e, rep, call, func() (struct{}, error) {
		return struct{}{}, e.store.CreateTask(ctx, t)
	})
	if out.IsDegraded() {
		return false
	}
	e.recorder.RecordTaskCreated(t.CreationType)
	if e.observer != nil {
		attempt(e, rep, "announce_task", func() (struct{}, error) {
			return struct{}{}, e.observer.TaskCreated(ctx, t)
		})
	}
	return true
}

func (e *Executor) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}
