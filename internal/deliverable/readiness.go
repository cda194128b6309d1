package deliverable

import (
	"strings"
	"time"

	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/task"
	"github.com/randalmurphal/teamlead/internal/team"
)

const (
	maxFailureRate  = 0.3
	timeBasedMinAge = 2 * time.Hour
)

// Readiness is the outcome of the deliverable readiness check. The workspace
// is ready when any of the four paths holds.
type Readiness struct {
	Total                 int     `json:"total"`
	Completed             int     `json:"completed"`
	Pending               int     `json:"pending"`
	Failed                int     `json:"failed"`
	FinalizationCompleted int     `json:"finalization_completed"`
	CompletionRate        float64 `json:"completion_rate"`
	FailureRate           float64 `json:"failure_rate"`

	Standard       bool `json:"standard"`
	HighCompletion bool `json:"high_completion"`
	Finalization   bool `json:"finalization"`
	TimeBased      bool `json:"time_based"`
}

// Ready reports whether any readiness path holds.
func (r Readiness) Ready() bool {
	return r.Standard || r.HighCompletion || r.Finalization || r.TimeBased
}

// EvaluateReadiness applies the readiness paths to a workspace's tasks.
// Only tasks explicitly tagged FINALIZATION count toward finalization
// progress.
func EvaluateReadiness(tasks []*task.Task, ws *team.Workspace, cfg Config, now time.Time) Readiness {
	c := task.Count(tasks)
	r := Readiness{
		Total:          c.Total,
		Completed:      c.Completed,
		Pending:        c.Pending,
		Failed:         c.Failed,
		CompletionRate: c.CompletionRatio(),
		FailureRate:    c.FailureRatio(),
	}
	if c.Total == 0 {
		return r
	}
	for _, t := range task.Filter(tasks, task.StatusCompleted) {
		if strings.EqualFold(strings.TrimSpace(t.Phase()), string(phase.Finalization)) {
			r.FinalizationCompleted++
		}
	}

	qualityOK := r.FailureRate <= maxFailureRate
	r.Standard = r.CompletionRate >= cfg.ReadinessThreshold &&
		r.Completed >= cfg.MinCompletedTasks &&
		r.Pending <= 5 &&
		r.FinalizationCompleted >= 1 &&
		qualityOK
	r.HighCompletion = r.CompletionRate >= 0.8 &&
		r.Completed >= 5 &&
		r.Pending <= 8 &&
		qualityOK
	r.Finalization = r.FinalizationCompleted >= 2 &&
		r.Completed >= 4 &&
		r.Pending <= 6
	r.TimeBased = ws.Age(now) > timeBasedMinAge &&
		r.CompletionRate >= 0.6 &&
		r.Completed >= 4 &&
		r.Pending <= 7
	return r
}
