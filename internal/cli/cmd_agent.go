package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/teamlead/internal/db"
	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/roles"
	"github.com/randalmurphal/teamlead/internal/team"
)

func newAgentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage the agents of a workspace",
	}
	cmd.AddCommand(newAgentAddCmd(a), newAgentListCmd(a))
	return cmd
}

func newAgentAddCmd(a *app) *cobra.Command {
	var (
		role      string
		seniority string
		status    string
		tools     []string
	)

	cmd := &cobra.Command{
		Use:   "add <workspace> <name>",
		Short: "Add an agent to a workspace",
		Example: `  teamlead agent add ws-1 "Maya" --role "Project Manager"
  teamlead agent add ws-1 "Ravi" --role "Backend Developer" --seniority expert`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(role) == "" {
				return teamerrors.ErrConfigMissing("--role")
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if _, err := requireWorkspace(cmd.Context(), store, args[0]); err != nil {
				return err
			}
			agent := &team.Agent{
				WorkspaceID: args[0],
				Name:        args[1],
				Role:        role,
				Seniority:   team.Seniority(seniority),
				Status:      team.AgentStatus(status),
				Tools:       tools,
			}
			if err := store.CreateAgent(cmd.Context(), agent); err != nil {
				return fmt.Errorf("create agent: %w", err)
			}
			return a.emit(cmd, agent, func(st Styles) error {
				a.printf(cmd, "%s %s (%s)\n", st.Success.Render("Added agent"), agent.ID, agent.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "", "agent role (required)")
	cmd.Flags().StringVar(&seniority, "seniority", string(team.SenioritySenior), "junior, senior or expert")
	cmd.Flags().StringVar(&status, "status", string(team.AgentActive), "agent status")
	cmd.Flags().StringSliceVar(&tools, "tools", nil, "tools the agent can use")
	return cmd
}

func newAgentListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <workspace>",
		Short: "List the agents of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			agents, err := store.ListAgents(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list agents: %w", err)
			}
			return a.emit(cmd, agents, func(Styles) error {
				if len(agents) == 0 {
					a.printf(cmd, "No agents in workspace %s.\n", args[0])
					return nil
				}
				tw := newTable(cmd)
				_, _ = fmt.Fprintln(tw, "ID\tNAME\tROLE\tSENIORITY\tSTATUS")
				for _, ag := range agents {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ag.ID, ag.Name, ag.Role, ag.Seniority, ag.Status)
				}
				return tw.Flush()
			})
		},
	}
}

type candidateView struct {
	AgentID string  `json:"agent_id"`
	Name    string  `json:"name"`
	Role    string  `json:"role"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
}

type matchView struct {
	Role       string          `json:"role"`
	Candidates []candidateView `json:"candidates"`
	Resolved   string          `json:"resolved_agent_id,omitempty"`
}

func newAgentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect how roles resolve to agents",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "match <workspace> <role>",
		Short: "Rank the agents of a workspace against a role",
		Long: `Rank the active agents of a workspace against a requested role, the same
way plan subtasks and handoffs are assigned. The resolved agent includes the
manager and specialist fallbacks.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.loadRules()
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			agents, err := store.ListAgents(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list agents: %w", err)
			}

			m := roles.NewMatcher(r, a.logger)
			view := matchView{Role: args[1], Candidates: []candidateView{}}
			for _, c := range m.Rank(args[1], agents) {
				view.Candidates = append(view.Candidates, candidateView{
					AgentID: c.Agent.ID,
					Name:    c.Agent.Name,
					Role:    c.Agent.Role,
					Score:   c.Score,
					Reason:  c.Reason,
				})
			}
			if best := m.Match(args[1], agents); best != nil {
				view.Resolved = best.ID
			}

			return a.emit(cmd, view, func(st Styles) error {
				tw := newTable(cmd)
				_, _ = fmt.Fprintln(tw, "AGENT\tROLE\tSCORE\tREASON")
				for _, c := range view.Candidates {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", c.Name, c.Role, c.Score, c.Reason)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if view.Resolved == "" {
					a.printf(cmd, "%s\n", st.Warning.Render("No agent resolves role "+args[1]))
				} else {
					a.printf(cmd, "Resolved: %s\n", view.Resolved)
				}
				return nil
			})
		},
	})
	return cmd
}

func requireWorkspace(ctx context.Context, store *db.DB, id string) (*team.Workspace, error) {
	ws, err := store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workspace %s: %w", id, err)
	}
	if ws == nil {
		return nil, teamerrors.ErrWorkspaceNotFound(id)
	}
	return ws, nil
}
