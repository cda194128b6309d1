package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	t.Parallel()

	tasks := []*Task{
		{ID: "a", Status: StatusCompleted},
		{ID: "b", Status: StatusCompleted},
		{ID: "c", Status: StatusFailed},
		{ID: "d", Status: StatusPending},
		{ID: "e", Status: StatusCanceled},
	}
	c := Count(tasks)
	assert.Equal(t, Counts{Total: 5, Pending: 1, Completed: 2, Failed: 1}, c)
	assert.InDelta(t, 0.4, c.CompletionRatio(), 1e-9)
	assert.InDelta(t, 0.2, c.FailureRatio(), 1e-9)
	assert.Zero(t, Count(nil).CompletionRatio())
}

func TestRecentlyUpdated(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*Task{
		{ID: "old", UpdatedAt: base},
		{ID: "new", UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "mid", UpdatedAt: base.Add(time.Hour)},
	}
	got := RecentlyUpdated(tasks, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "old", tasks[0].ID, "input order is kept")
}

func TestResult(t *testing.T) {
	t.Parallel()

	r := Result{Status: " Completed ", Summary: "done", DetailedResultsJSON: `{"x":1}`}
	assert.True(t, r.IsCompleted())
	assert.Equal(t, `done {"x":1}`, r.Output())
	assert.False(t, Result{Status: "failed"}.IsCompleted())
}

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	var tk Task
	assert.Empty(t, tk.Phase())
	assert.Zero(t, tk.DelegationDepth())

	tk.SetContext(KeyProjectPhase, "IMPLEMENTATION")
	tk.SetContext(KeyPlanningTaskMarker, true)
	tk.SetContext(KeyDelegationDepth, 2)
	assert.Equal(t, "IMPLEMENTATION", tk.Phase())
	assert.True(t, tk.IsPlanningTask())
	assert.Equal(t, 2, tk.DelegationDepth())

	// Wrong types read as zero values.
	tk.SetContext(KeyFailureCount, "three")
	assert.Zero(t, tk.FailureCount())
}

func TestContextIntAfterJSONRoundTrip(t *testing.T) {
	t.Parallel()

	var tk Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","context_data":{"failure_count":2}}`), &tk))
	assert.Equal(t, 2, tk.FailureCount())
}

func TestContextStrings(t *testing.T) {
	t.Parallel()

	var tk Task
	assert.Nil(t, tk.ContextStrings(KeyFailureReportIDs))

	tk.SetContext(KeyFailureReportIDs, []string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, tk.ContextStrings(KeyFailureReportIDs))

	var decoded Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","context_data":{"failure_report_ids":["a",7,"b"]}}`), &decoded))
	assert.Equal(t, []string{"a", "b"}, decoded.ContextStrings(KeyFailureReportIDs))
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PriorityHigh, ParsePriority("high"))
	assert.Equal(t, PriorityMedium, ParsePriority("urgent"))
	assert.Equal(t, PriorityMedium, ParsePriority(""))
}

func TestStatuses(t *testing.T) {
	t.Parallel()

	for _, s := range ValidStatuses() {
		assert.True(t, IsValidStatus(s), s)
	}
	assert.False(t, IsValidStatus("blocked"))
	assert.True(t, IsOpen(StatusInProgress))
	assert.False(t, IsOpen(StatusFailed))
}
