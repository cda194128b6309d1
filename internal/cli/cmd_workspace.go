package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/teamlead/internal/team"
)

func newWorkspaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage workspaces",
	}
	cmd.AddCommand(newWorkspaceCreateCmd(a), newWorkspaceListCmd(a))
	return cmd
}

func newWorkspaceCreateCmd(a *app) *cobra.Command {
	var goal string
	var budget float64

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace",
		Long: `Create a workspace. The goal decides which kind of final deliverable is
assembled (market research, content strategy, competitor analysis, ...).

Example:
  teamlead workspace create "Brew" --goal "Run market research for a coffee brand"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ws := &team.Workspace{Name: args[0], Goal: goal, Budget: budget, Status: team.WorkspaceActive}
			if err := store.CreateWorkspace(cmd.Context(), ws); err != nil {
				return fmt.Errorf("create workspace: %w", err)
			}
			return a.emit(cmd, ws, func(st Styles) error {
				a.printf(cmd, "%s %s\n", st.Success.Render("Created workspace"), ws.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "project goal")
	cmd.Flags().Float64Var(&budget, "budget", 0, "budget")
	return cmd
}

func newWorkspaceListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workspaces",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			list, err := store.ListWorkspaces(cmd.Context())
			if err != nil {
				return fmt.Errorf("list workspaces: %w", err)
			}
			return a.emit(cmd, list, func(Styles) error {
				if len(list) == 0 {
					a.printf(cmd, "No workspaces found.\n")
					return nil
				}
				tw := newTable(cmd)
				_, _ = fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tGOAL")
				for _, ws := range list {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ws.ID, ws.Name, ws.Status, truncate(ws.Goal, 60))
				}
				return tw.Flush()
			})
		},
	}
}
