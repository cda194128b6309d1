package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/randalmurphal/teamlead/internal/team"
)

const agentColumns = `id, workspace_id, name, role, seniority, status, tools, metadata, created_at`

// CreateAgent inserts a, assigning an id when unset. New agents default to
// senior and active.
func (d *DB) CreateAgent(ctx context.Context, a *team.Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Seniority == "" {
		a.Seniority = team.SenioritySenior
	}
	if a.Status == "" {
		a.Status = team.AgentActive
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = d.timestamp()
	}

	tools, err := marshalJSON(a.Tools, "[]")
	if err != nil {
		return fmt.Errorf("marshal agent tools: %w", err)
	}
	metadata, err := marshalJSON(a.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("marshal agent metadata: %w", err)
	}

	_, err = d.exec(ctx, `
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.WorkspaceID, a.Name, a.Role, string(a.Seniority), string(a.Status),
		tools, metadata, formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create agent %s: %w", a.ID, err)
	}
	return nil
}

// GetAgent returns the agent, or nil when it does not exist.
func (d *DB) GetAgent(ctx context.Context, id string) (*team.Agent, error) {
	row := d.queryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return a, nil
}

// ListAgents returns the workspace's agents in creation order.
func (d *DB) ListAgents(ctx context.Context, workspaceID string) ([]*team.Agent, error) {
	rows, err := d.query(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE workspace_id = ? ORDER BY created_at, id`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var agents []*team.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func scanAgent(s scanner) (*team.Agent, error) {
	var (
		a                        team.Agent
		seniority, status        string
		tools, metadata, created string
	)
	if err := s.Scan(&a.ID, &a.WorkspaceID, &a.Name, &a.Role, &seniority, &status,
		&tools, &metadata, &created); err != nil {
		return nil, err
	}
	a.Seniority = team.Seniority(seniority)
	a.Status = team.AgentStatus(status)
	a.CreatedAt = parseTime(created)

	if err := unmarshalJSON(tools, &a.Tools); err != nil {
		return nil, fmt.Errorf("unmarshal agent tools: %w", err)
	}
	if err := unmarshalJSON(metadata, &a.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal agent metadata: %w", err)
	}
	return &a, nil
}

// marshalJSON encodes v, or returns empty for nil values.
func marshalJSON(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func unmarshalJSON(s string, dst any) error {
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}
