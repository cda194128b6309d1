package deliverable

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

const testWorkspace = "ws-1"

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type memStore struct {
	mu        sync.Mutex
	workspace *team.Workspace
	agents    []*team.Agent
	tasks     []*task.Task
	nextID    int
	reads     int
	errList   error
}

func newMemStore(goal string) *memStore {
	return &memStore{workspace: &team.Workspace{
		ID:        testWorkspace,
		Name:      "Bakery launch",
		Goal:      goal,
		Status:    team.WorkspaceActive,
		CreatedAt: testNow.Add(-time.Hour),
	}}
}

func (s *memStore) addAgent(id, name, role string, seniority team.Seniority) {
	s.agents = append(s.agents, &team.Agent{
		ID: id, WorkspaceID: testWorkspace, Name: name, Role: role,
		Seniority: seniority, Status: team.AgentActive,
	})
}

func (s *memStore) addTasks(status task.Status, phaseName string, n int) {
	for range n {
		s.nextID++
		t := &task.Task{
			ID:          fmt.Sprintf("t-%d", s.nextID),
			WorkspaceID: testWorkspace,
			Name:        fmt.Sprintf("Task %d", s.nextID),
			Status:      status,
		}
		if phaseName != "" {
			t.SetContext(task.KeyProjectPhase, phaseName)
		}
		s.tasks = append(s.tasks, t)
	}
}

func (s *memStore) GetWorkspace(_ context.Context, id string) (*team.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.workspace == nil || s.workspace.ID != id {
		return nil, nil
	}
	ws := *s.workspace
	return &ws, nil
}

func (s *memStore) ListTasks(_ context.Context, _ string) ([]*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.errList != nil {
		return nil, s.errList
	}
	return append([]*task.Task(nil), s.tasks...), nil
}

func (s *memStore) ListAgents(_ context.Context, _ string) ([]*team.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*team.Agent(nil), s.agents...), nil
}

func (s *memStore) CreateTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = fmt.Sprintf("t-%d", s.nextID)
	s.tasks = append(s.tasks, t)
	return nil
}

func (s *memStore) UpdateWorkspaceStatus(_ context.Context, id string, status team.WorkspaceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workspace == nil || s.workspace.ID != id {
		return fmt.Errorf("workspace %s not found", id)
	}
	s.workspace.Status = status
	return nil
}

type recordingObserver struct {
	names []string
}

func (o *recordingObserver) TaskCreated(_ context.Context, t *task.Task) error {
	o.names = append(o.names, t.Name)
	return nil
}

func newTestAggregator(store Store, opts ...Option) *Aggregator {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return testNow }),
	}
	return New(store, append(base, opts...)...)
}
