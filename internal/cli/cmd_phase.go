package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/rules"
	"github.com/randalmurphal/teamlead/internal/task"
)

type phaseView struct {
	WorkspaceID string                         `json:"workspace_id"`
	Phase       phase.Phase                    `json:"phase"`
	Completed   map[phase.Phase]int            `json:"completed_by_phase"`
	Recommended phase.Phase                    `json:"recommended_phase"`
	Progress    map[phase.Phase]phase.Progress `json:"progress"`
	Thresholds  phase.Thresholds               `json:"thresholds"`
}

func newPhaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "phase <workspace>",
		Short: "Show the current project phase of a workspace",
		Long: `Show the phase derived from completed tasks (ANALYSIS, IMPLEMENTATION,
FINALIZATION, COMPLETED) next to the ratio-based recommendation.`,
		Args: cobra.ExactArgs(1),
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

			if _, err := requireWorkspace(cmd.Context(), store, args[0]); err != nil {
				return err
			}
			tasks, err := store.ListTasks(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			view := buildPhaseView(r, args[0], tasks, a.cfg.Phase.Thresholds)

			return a.emit(cmd, view, func(st Styles) error {
				a.printf(cmd, "%s %s\n", st.Title.Render("Phase:"), st.phaseStyle(view.Phase).Render(string(view.Phase)))
				a.printf(cmd, "  %s\n", phase.DescribeWith(r, view.Phase))
				tw := newTable(cmd)
				_, _ = fmt.Fprintln(tw, "PHASE\tCOMPLETED\tTOTAL\tRATIO")
				for _, p := range []phase.Phase{phase.Analysis, phase.Implementation, phase.Finalization} {
					pr := view.Progress[p]
					_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f%%\n", p, pr.Completed, pr.Total, pr.Ratio()*100)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if view.Recommended != view.Phase {
					a.printf(cmd, "Recommended: %s\n", view.Recommended)
				}
				return nil
			})
		},
	}
}

func buildPhaseView(r *rules.Rules, workspaceID string, tasks []*task.Task, th phase.Thresholds) phaseView {
	ev := phase.EvaluateTransitionWith(r, tasks)
	return phaseView{
		WorkspaceID: workspaceID,
		Phase:       phase.DetermineWith(r, tasks, th),
		Completed:   phase.CompletedByPhaseWith(r, tasks),
		Recommended: ev.Recommended,
		Progress:    ev.ByPhase,
		Thresholds:  th,
	}
}

func newPlanPhaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan-phase <workspace>",
		Short: "Create the manager's planning task for the phase just entered",
		Long: `Check whether the workspace has completed a phase and, if so, create the
planning task for the next one and assign it to the project manager. Nothing is
created when a planning task for that phase is already open.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openServices(cmd.Context(), wireOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if _, err := requireWorkspace(cmd.Context(), svc.store, args[0]); err != nil {
				return err
			}
			id, created := svc.executor.CheckPhaseCompletionAndTriggerPM(cmd.Context(), args[0])

			out := struct {
				WorkspaceID    string `json:"workspace_id"`
				Created        bool   `json:"created"`
				PlanningTaskID string `json:"planning_task_id,omitempty"`
			}{args[0], created, id}
			return a.emit(cmd, out, func(st Styles) error {
				if !created {
					a.printf(cmd, "No planning task needed.\n")
					return nil
				}
				a.printf(cmd, "%s %s\n", st.Success.Render("Created planning task"), id)
				return nil
			})
		},
	}
}
