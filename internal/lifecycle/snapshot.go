package lifecycle

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

// snapshot is a point-in-time read of one workspace.
type snapshot struct {
	workspace *team.Workspace
	tasks     []*task.Task
	agents    []*team.Agent
}

// loadSnapshot reads the workspace, its tasks and its agents concurrently.
// A missing workspace is not an error; failing reads are.
func (e *Executor) loadSnapshot(ctx context.Context, workspaceID string) (*snapshot, error) {
	var s snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ws, err := e.store.GetWorkspace(gctx, workspaceID)
		if err != nil {
			return fmt.Errorf("get workspace %s: %w", workspaceID, err)
		}
		s.workspace = ws
		return nil
	})
	g.Go(func() error {
		tasks, err := e.store.ListTasks(gctx, workspaceID)
		if err != nil {
			return fmt.Errorf("list tasks %s: %w", workspaceID, err)
		}
		s.tasks = tasks
		return nil
	})
	g.Go(func() error {
		agents, err := e.store.ListAgents(gctx, workspaceID)
		if err != nil {
			return fmt.Errorf("list agents %s: %w", workspaceID, err)
		}
		s.agents = agents
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}
