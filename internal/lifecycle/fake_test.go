package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

const testWorkspace = "ws-1"

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// memStore is an in-memory Store. Reads return copies, like a database.
type memStore struct {
	mu        sync.Mutex
	workspace *team.Workspace
	agents    []*team.Agent
	tasks     []*task.Task
	nextID    int

	errList   error
	errAgent  error
	errCreate error
}

func newMemStore() *memStore {
	return &memStore{
		workspace: &team.Workspace{ID: testWorkspace, Name: "Launch", Status: team.WorkspaceActive, CreatedAt: testNow.Add(-time.Hour)},
	}
}

func cloneTask(t *task.Task) *task.Task {
	c := *t
	c.ContextData = maps.Clone(t.ContextData)
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	return &c
}

func (s *memStore) addAgent(id, name, role string) *team.Agent {
	a := &team.Agent{
		ID:          id,
		WorkspaceID: testWorkspace,
		Name:        name,
		Role:        role,
		Seniority:   team.SenioritySenior,
		Status:      team.AgentActive,
	}
	s.mu.Lock()
	s.agents = append(s.agents, a)
	s.mu.Unlock()
	return a
}

func (s *memStore) addTask(t *task.Task) *task.Task {
	if t.WorkspaceID == "" {
		t.WorkspaceID = testWorkspace
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, cloneTask(t))
	s.mu.Unlock()
	return t
}

func (s *memStore) task(id string) *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return cloneTask(t)
		}
	}
	return nil
}

func (s *memStore) createdBy(ct task.CreationType) []*task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*task.Task
	for _, t := range s.tasks {
		if t.CreationType == ct {
			out = append(out, cloneTask(t))
		}
	}
	return out
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *memStore) GetWorkspace(_ context.Context, id string) (*team.Workspace, error) {
	if s.workspace == nil || s.workspace.ID != id {
		return nil, nil
	}
	ws := *s.workspace
	return &ws, nil
}

func (s *memStore) ListTasks(_ context.Context, workspaceID string) ([]*task.Task, error) {
	if s.errList != nil {
		return nil, s.errList
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*task.Task
	for _, t := range s.tasks {
		if t.WorkspaceID == workspaceID {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (s *memStore) ListAgents(_ context.Context, workspaceID string) ([]*team.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*team.Agent
	for _, a := range s.agents {
		if a.WorkspaceID == workspaceID {
			c := *a
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memStore) GetAgent(_ context.Context, id string) (*team.Agent, error) {
	if s.errAgent != nil {
		return nil, s.errAgent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.agents {
		if a.ID == id {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateTask(_ context.Context, t *task.Task) error {
	if s.errCreate != nil {
		return s.errCreate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		s.nextID++
		t.ID = fmt.Sprintf("new-%d", s.nextID)
	}
	s.tasks = append(s.tasks, cloneTask(t))
	return nil
}

func (s *memStore) UpdateTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.tasks {
		if existing.ID == t.ID {
			s.tasks[i] = cloneTask(t)
			return nil
		}
	}
	return fmt.Errorf("task %s not found", t.ID)
}

type fakeAggregator struct {
	id    string
	err   error
	panic bool
	calls int
}

func (f *fakeAggregator) CheckAndCreateFinalDeliverable(context.Context, string) (string, error) {
	f.calls++
	if f.panic {
		panic("aggregator exploded")
	}
	return f.id, f.err
}

type fakeRecorder struct {
	mu        sync.Mutex
	decisions []Decision
	created   map[task.CreationType]int
	degraded  []string
	analyzed  int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{created: make(map[task.CreationType]int)}
}

func (r *fakeRecorder) RecordCompletion(_ Branch, d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
}

func (r *fakeRecorder) RecordTaskCreated(ct task.CreationType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created[ct]++
}

func (r *fakeRecorder) RecordDegraded(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.degraded = append(r.degraded, call)
}

func (r *fakeRecorder) SetAnalyzed(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzed = n
}

type fakeObserver struct {
	mu    sync.Mutex
	names []string
}

func (o *fakeObserver) TaskCreated(_ context.Context, t *task.Task) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, t.Name)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExecutor(store Store, agg Aggregator, opts ...Option) *Executor {
	base := []Option{
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return testNow }),
	}
	return New(store, agg, append(base, opts...)...)
}

func enabledConfig() Config {
	cfg := DefaultConfig()
	cfg.AutoGenerationEnabled = true
	cfg.HandoffCreationEnabled = true
	cfg.ConfidenceThreshold = 0.70
	return cfg
}

func completedTask(id, name, agentID, phase string) *task.Task {
	t := &task.Task{
		ID:        id,
		Name:      name,
		AgentID:   agentID,
		Status:    task.StatusCompleted,
		Priority:  task.PriorityMedium,
		UpdatedAt: testNow.Add(-time.Minute),
	}
	if phase != "" {
		t.SetContext(task.KeyProjectPhase, phase)
	}
	return t
}
