package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/teamlead/internal/lifecycle"
	"github.com/randalmurphal/teamlead/internal/task"
)

var _ lifecycle.Recorder = (*Recorder)(nil)

func TestRecorderCounters(t *testing.T) {
	t.Parallel()

	r := New()
	r.RecordCompletion(lifecycle.BranchManager, lifecycle.DecisionManagerProcessed)
	r.RecordCompletion(lifecycle.BranchManager, lifecycle.DecisionManagerProcessed)
	r.RecordCompletion(lifecycle.BranchSpecialist, lifecycle.DecisionNoAutoGeneration)
	r.RecordTaskCreated(task.CreationPMCompletion)
	r.RecordDegraded("check_deliverable")
	r.SetAnalyzed(7)

	assert.InDelta(t, 2, testutil.ToFloat64(r.completions.WithLabelValues("manager", "pm_task_processed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.completions.WithLabelValues("specialist", "specialist_task_completed_no_auto_gen")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.tasksCreated.WithLabelValues("pm_completion")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.degraded.WithLabelValues("check_deliverable")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(r.analyzed), 0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	r := New()
	r.RecordTaskCreated(task.CreationFinalDeliverable)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `teamlead_tasks_created_total{creation_type="final_deliverable_aggregation"} 1`)
	assert.Contains(t, body, "teamlead_analyzed_tasks 0")
	assert.Contains(t, body, "go_goroutines")
}
