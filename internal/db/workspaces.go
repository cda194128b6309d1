package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/team"
)

const workspaceColumns = `id, name, goal, status, budget, created_at, updated_at`

// CreateWorkspace inserts w, assigning an id and timestamps when unset.
func (d *DB) CreateWorkspace(ctx context.Context, w *team.Workspace) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = team.WorkspaceActive
	}
	now := d.timestamp()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	_, err := d.exec(ctx, `
		INSERT INTO workspaces (`+workspaceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Goal, string(w.Status), w.Budget,
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create workspace %s: %w", w.ID, err)
	}
	return nil
}

// GetWorkspace returns the workspace, or nil when it does not exist.
func (d *DB) GetWorkspace(ctx context.Context, id string) (*team.Workspace, error) {
	row := d.queryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id)
	w, err := scanWorkspace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace %s: %w", id, err)
	}
	return w, nil
}

// ListWorkspaces returns all workspaces, oldest first.
func (d *DB) ListWorkspaces(ctx context.Context) ([]*team.Workspace, error) {
	rows, err := d.query(ctx, `SELECT `+workspaceColumns+` FROM workspaces ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*team.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// UpdateWorkspaceStatus sets the workspace status.
func (d *DB) UpdateWorkspaceStatus(ctx context.Context, id string, status team.WorkspaceStatus) error {
	res, err := d.exec(ctx,
		`UPDATE workspaces SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(d.timestamp()), id,
	)
	if err != nil {
		return fmt.Errorf("update workspace %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return teamerrors.ErrWorkspaceNotFound(id)
	}
	return nil
}

func scanWorkspace(s scanner) (*team.Workspace, error) {
	var (
		w                team.Workspace
		status           string
		created, updated string
	)
	if err := s.Scan(&w.ID, &w.Name, &w.Goal, &status, &w.Budget, &created, &updated); err != nil {
		return nil, err
	}
	w.Status = team.WorkspaceStatus(status)
	w.CreatedAt = parseTime(created)
	w.UpdatedAt = parseTime(updated)
	return &w, nil
}
