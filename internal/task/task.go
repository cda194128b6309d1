package task

import (
	"sort"
	"strings"
	"time"
)

// Task is a unit of work assigned to an agent in a workspace.
type Task struct {
	ID               string         `json:"id" yaml:"id"`
	WorkspaceID      string         `json:"workspace_id" yaml:"workspace_id"`
	Name             string         `json:"name" yaml:"name"`
	Description      string         `json:"description,omitempty" yaml:"description,omitempty"`
	Status           Status         `json:"status" yaml:"status"`
	AgentID          string         `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	AssignedToRole   string         `json:"assigned_to_role,omitempty" yaml:"assigned_to_role,omitempty"`
	Priority         Priority       `json:"priority" yaml:"priority"`
	ParentTaskID     string         `json:"parent_task_id,omitempty" yaml:"parent_task_id,omitempty"`
	CreatedByTaskID  string         `json:"created_by_task_id,omitempty" yaml:"created_by_task_id,omitempty"`
	CreatedByAgentID string         `json:"created_by_agent_id,omitempty" yaml:"created_by_agent_id,omitempty"`
	CreationType     CreationType   `json:"creation_type,omitempty" yaml:"creation_type,omitempty"`
	ContextData      map[string]any `json:"context_data,omitempty" yaml:"context_data,omitempty"`
	Result           *Result        `json:"result,omitempty" yaml:"result,omitempty"`
	CreatedAt        time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" yaml:"updated_at"`
}

// Result is the output an agent reported when executing a task.
type Result struct {
	Status              string `json:"status" yaml:"status"`
	Summary             string `json:"summary,omitempty" yaml:"summary,omitempty"`
	DetailedResultsJSON string `json:"detailed_results_json,omitempty" yaml:"detailed_results_json,omitempty"`
}

// Output joins the summary and the detailed JSON, the text heuristics scan.
func (r Result) Output() string {
	return r.Summary + " " + r.DetailedResultsJSON
}

// IsCompleted reports whether the agent marked the result completed.
func (r Result) IsCompleted() bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), string(StatusCompleted))
}

// Counts summarizes a task list by status.
type Counts struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
	Failed     int
}

// CompletionRatio returns completed/total, or 0 for an empty list.
func (c Counts) CompletionRatio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Completed) / float64(c.Total)
}

// FailureRatio returns failed/total, or 0 for an empty list.
func (c Counts) FailureRatio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Failed) / float64(c.Total)
}

// Count tallies tasks by status.
func Count(tasks []*Task) Counts {
	c := Counts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			c.Pending++
		case StatusInProgress:
			c.InProgress++
		case StatusCompleted:
			c.Completed++
		case StatusFailed:
			c.Failed++
		}
	}
	return c
}

// Filter returns the tasks with the given status, preserving order.
func Filter(tasks []*Task, status Status) []*Task {
	var out []*Task
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// RecentlyUpdated returns up to n tasks ordered by UpdatedAt, newest first.
// The input slice is not modified.
func RecentlyUpdated(tasks []*Task, n int) []*Task {
	sorted := make([]*Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// ByID indexes tasks by id.
func ByID(tasks []*Task) map[string]*Task {
	m := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t
	}
	return m
}
