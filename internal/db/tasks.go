package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/task"
)

const taskColumns = `id, workspace_id, name, description, status, agent_id, assigned_to_role,
	priority, parent_task_id, created_by_task_id, created_by_agent_id, creation_type,
	context_data, result, created_at, updated_at`

// CreateTask inserts t, assigning an id, defaults and timestamps when unset.
func (d *DB) CreateTask(ctx context.Context, t *task.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = task.StatusPending
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	now := d.timestamp()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	contextData, result, err := encodeTaskJSON(t)
	if err != nil {
		return err
	}

	_, err = d.exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WorkspaceID, t.Name, t.Description, string(t.Status), t.AgentID, t.AssignedToRole,
		string(t.Priority), t.ParentTaskID, t.CreatedByTaskID, t.CreatedByAgentID, string(t.CreationType),
		contextData, result, formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create task %s: %w", t.ID, err)
	}
	return nil
}

// GetTask returns the task, or nil when it does not exist.
func (d *DB) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := d.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// UpdateTask overwrites the mutable fields of an existing task.
func (d *DB) UpdateTask(ctx context.Context, t *task.Task) error {
	t.UpdatedAt = d.timestamp()

	contextData, result, err := encodeTaskJSON(t)
	if err != nil {
		return err
	}

	res, err := d.exec(ctx, `
		UPDATE tasks SET
			name = ?, description = ?, status = ?, agent_id = ?, assigned_to_role = ?,
			priority = ?, parent_task_id = ?, context_data = ?, result = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Description, string(t.Status), t.AgentID, t.AssignedToRole,
		string(t.Priority), t.ParentTaskID, contextData, result, formatTime(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return teamerrors.ErrTaskNotFound(t.ID)
	}
	return nil
}

// ListTasks returns the workspace's tasks in creation order.
func (d *DB) ListTasks(ctx context.Context, workspaceID string) ([]*task.Task, error) {
	rows, err := d.query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE workspace_id = ? ORDER BY created_at, id`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func encodeTaskJSON(t *task.Task) (string, sql.NullString, error) {
	contextData, err := marshalJSON(t.ContextData, "{}")
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("marshal context for task %s: %w", t.ID, err)
	}
	var result sql.NullString
	if t.Result != nil {
		s, err := marshalJSON(t.Result, "")
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("marshal result for task %s: %w", t.ID, err)
		}
		result = sql.NullString{String: s, Valid: true}
	}
	return contextData, result, nil
}

func scanTask(s scanner) (*task.Task, error) {
	var (
		t                              task.Task
		status, priority, creationType string
		contextData, created, updated  string
		result                         sql.NullString
	)
	if err := s.Scan(
		&t.ID, &t.WorkspaceID, &t.Name, &t.Description, &status, &t.AgentID, &t.AssignedToRole,
		&priority, &t.ParentTaskID, &t.CreatedByTaskID, &t.CreatedByAgentID, &creationType,
		&contextData, &result, &created, &updated,
	); err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	t.Priority = task.ParsePriority(priority)
	t.CreationType = task.CreationType(creationType)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)

	if err := unmarshalJSON(contextData, &t.ContextData); err != nil {
		return nil, fmt.Errorf("unmarshal context for task %s: %w", t.ID, err)
	}
	if result.Valid && result.String != "" {
		var r task.Result
		if err := unmarshalJSON(result.String, &r); err != nil {
			return nil, fmt.Errorf("unmarshal result for task %s: %w", t.ID, err)
		}
		t.Result = &r
	}
	return &t, nil
}
