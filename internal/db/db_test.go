package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/teamlead/internal/db/driver"
	"github.com/randalmurphal/teamlead/internal/deliverable"
	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/lifecycle"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

var (
	_ lifecycle.Store   = (*DB)(nil)
	_ deliverable.Store = (*DB)(nil)
)

func seedWorkspace(t *testing.T, d *DB) *team.Workspace {
	t.Helper()
	w := &team.Workspace{Name: "Launch", Goal: "Write a market analysis report"}
	require.NoError(t, d.CreateWorkspace(context.Background(), w))
	return w
}

func TestOpen_CreatesParentDirAndMigrates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "teamlead.db")
	d, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	assert.Equal(t, path, d.DSN())
	assert.Equal(t, driver.DialectSQLite, d.Dialect())

	ctx := context.Background()
	require.NoError(t, d.Migrate(ctx))
	require.NoError(t, d.Migrate(ctx), "migrations are idempotent")

	ws, err := d.ListWorkspaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestWorkspaceCRUD(t *testing.T) {
	t.Parallel()

	d := NewTestDB(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return created })

	w := seedWorkspace(t, d)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, team.WorkspaceActive, w.Status)

	got, err := d.GetWorkspace(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w.Goal, got.Goal)
	assert.True(t, got.CreatedAt.Equal(created))

	require.NoError(t, d.UpdateWorkspaceStatus(ctx, w.ID, team.WorkspaceCompleted))
	got, err = d.GetWorkspace(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, team.WorkspaceCompleted, got.Status)

	missing, err := d.GetWorkspace(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = d.UpdateWorkspaceStatus(ctx, "nope", team.WorkspaceCompleted)
	assert.ErrorIs(t, err, teamerrors.ErrWorkspaceNotFound("nope"))

	second := &team.Workspace{Name: "Second"}
	require.NoError(t, d.CreateWorkspace(ctx, second))
	all, err := d.ListWorkspaces(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAgentCRUD(t *testing.T) {
	t.Parallel()

	d := NewTestDB(t)
	ctx := context.Background()
	w := seedWorkspace(t, d)

	pm := &team.Agent{
		WorkspaceID: w.ID,
		Name:        "Alex",
		Role:        "Project Manager",
		Seniority:   team.SeniorityExpert,
		Tools:       []string{"search", "write"},
		Metadata:    map[string]any{"team": "core"},
	}
	require.NoError(t, d.CreateAgent(ctx, pm))
	assert.NotEmpty(t, pm.ID)
	assert.Equal(t, team.AgentActive, pm.Status)

	writer := &team.Agent{WorkspaceID: w.ID, Name: "Sam", Role: "Content Specialist"}
	require.NoError(t, d.CreateAgent(ctx, writer))
	assert.Equal(t, team.SenioritySenior, writer.Seniority)

	got, err := d.GetAgent(ctx, pm.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Project Manager", got.Role)
	assert.Equal(t, team.SeniorityExpert, got.Seniority)
	assert.Equal(t, []string{"search", "write"}, got.Tools)
	assert.Equal(t, "core", got.Metadata["team"])

	agents, err := d.ListAgents(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, agents, 2)

	other, err := d.ListAgents(ctx, "other-workspace")
	require.NoError(t, err)
	assert.Empty(t, other)

	missing, err := d.GetAgent(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAgentRequiresWorkspace(t *testing.T) {
	t.Parallel()

	d := NewTestDB(t)
	err := d.CreateAgent(context.Background(), &team.Agent{WorkspaceID: "ghost", Name: "x", Role: "y"})
	assert.Error(t, err, "foreign key rejects unknown workspace")
}

func TestTaskCRUD(t *testing.T) {
	t.Parallel()

	d := NewTestDB(t)
	ctx := context.Background()
	w := seedWorkspace(t, d)

	tk := &task.Task{
		WorkspaceID:    w.ID,
		Name:           "Research competitors",
		Description:    "List the top five competitors",
		AssignedToRole: "Research Specialist",
		Priority:       task.PriorityHigh,
		CreationType:   task.CreationPMCompletion,
		ContextData: map[string]any{
			task.KeyProjectPhase:    "ANALYSIS",
			task.KeyDelegationDepth: 1,
			task.KeyPhaseValidated:  true,
		},
	}
	require.NoError(t, d.CreateTask(ctx, tk))
	assert.NotEmpty(t, tk.ID)
	assert.Equal(t, task.StatusPending, tk.Status)

	got, err := d.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tk.Name, got.Name)
	assert.Equal(t, task.PriorityHigh, got.Priority)
	assert.Equal(t, task.CreationPMCompletion, got.CreationType)
	assert.Equal(t, "ANALYSIS", got.Phase())
	assert.Equal(t, 1, got.DelegationDepth(), "JSON numbers decode through ContextInt")
	assert.True(t, got.ContextBool(task.KeyPhaseValidated))
	assert.Nil(t, got.Result)

	got.Status = task.StatusCompleted
	got.AgentID = "agent-1"
	got.Result = &task.Result{Status: "completed", Summary: "Found five competitors", DetailedResultsJSON: `{"competitors":5}`}
	got.SetContext(task.KeyFailureCount, 2)
	require.NoError(t, d.UpdateTask(ctx, got))

	reloaded, err := d.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, reloaded.Status)
	assert.Equal(t, "agent-1", reloaded.AgentID)
	require.NotNil(t, reloaded.Result)
	assert.True(t, reloaded.Result.IsCompleted())
	assert.Equal(t, `{"competitors":5}`, reloaded.Result.DetailedResultsJSON)
	assert.Equal(t, 2, reloaded.FailureCount())

	missing, err := d.GetTask(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = d.UpdateTask(ctx, &task.Task{ID: "nope", Status: task.StatusFailed})
	assert.ErrorIs(t, err, teamerrors.ErrTaskNotFound("nope"))
}

func TestListTasksOrderAndScope(t *testing.T) {
	t.Parallel()

	d := NewTestDB(t)
	ctx := context.Background()
	w := seedWorkspace(t, d)
	other := &team.Workspace{Name: "Other"}
	require.NoError(t, d.CreateWorkspace(ctx, other))

	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	// Whole seconds and fractions must still sort chronologically.
	offsets := []time.Duration{0, 500 * time.Millisecond, time.Second}
	for i, off := range offsets {
		tk := &task.Task{WorkspaceID: w.ID, Name: []string{"first", "second", "third"}[i], CreatedAt: base.Add(off)}
		require.NoError(t, d.CreateTask(ctx, tk))
	}
	require.NoError(t, d.CreateTask(ctx, &task.Task{WorkspaceID: other.ID, Name: "elsewhere"}))

	tasks, err := d.ListTasks(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "first", tasks[0].Name)
	assert.Equal(t, "second", tasks[1].Name)
	assert.Equal(t, "third", tasks[2].Name)
}
