// Package team defines workspaces and the agents that work in them.
package team

import (
	"strings"
	"time"
)

// Seniority is an agent's experience level.
type Seniority string

const (
	SeniorityJunior Seniority = "junior"
	SenioritySenior Seniority = "senior"
	SeniorityExpert Seniority = "expert"
)

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	AgentCreated      AgentStatus = "created"
	AgentInitializing AgentStatus = "initializing"
	AgentActive       AgentStatus = "active"
	AgentPaused       AgentStatus = "paused"
	AgentError        AgentStatus = "error"
	AgentTerminated   AgentStatus = "terminated"
)

// Agent is an LLM-backed team member. The lifecycle only reads agents.
type Agent struct {
	ID          string         `json:"id" yaml:"id"`
	WorkspaceID string         `json:"workspace_id" yaml:"workspace_id"`
	Name        string         `json:"name" yaml:"name"`
	Role        string         `json:"role" yaml:"role"`
	Seniority   Seniority      `json:"seniority" yaml:"seniority"`
	Status      AgentStatus    `json:"status" yaml:"status"`
	Tools       []string       `json:"tools,omitempty" yaml:"tools,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at" yaml:"created_at"`
}

// IsActive reports whether the agent can receive work.
func (a *Agent) IsActive() bool {
	return a != nil && a.Status == AgentActive
}

// Active returns the active agents, preserving order.
func Active(agents []*Agent) []*Agent {
	var out []*Agent
	for _, a := range agents {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	return out
}

// Describe renders "name (role)" for log diagnostics.
func Describe(agents []*Agent) string {
	parts := make([]string, 0, len(agents))
	for _, a := range agents {
		parts = append(parts, a.Name+" ("+a.Role+")")
	}
	return strings.Join(parts, ", ")
}

// WorkspaceStatus is the lifecycle state of a workspace.
type WorkspaceStatus string

const (
	WorkspaceCreated   WorkspaceStatus = "created"
	WorkspaceActive    WorkspaceStatus = "active"
	WorkspacePaused    WorkspaceStatus = "paused"
	WorkspaceCompleted WorkspaceStatus = "completed"
	WorkspaceError     WorkspaceStatus = "error"
)

// Workspace is a project with a goal, a team and a task list.
type Workspace struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Goal      string          `json:"goal,omitempty" yaml:"goal,omitempty"`
	Status    WorkspaceStatus `json:"status" yaml:"status"`
	Budget    float64         `json:"budget,omitempty" yaml:"budget,omitempty"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" yaml:"updated_at"`
}

// Age returns how long the workspace has existed at now.
func (w *Workspace) Age(now time.Time) time.Duration {
	if w == nil || w.CreatedAt.IsZero() {
		return 0
	}
	return now.Sub(w.CreatedAt)
}
