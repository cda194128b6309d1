package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/teamlead/internal/deliverable"
	"github.com/randalmurphal/teamlead/internal/lifecycle"
)

func newDeliverableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deliverable <workspace>",
		Short: "Create the final deliverable task when the workspace is ready",
		Long: `Evaluate deliverable readiness and, when any readiness path holds and no
deliverable task exists yet, aggregate the completed work into a final
deliverable task assigned to the best-suited agent.`,
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
			id, err := svc.deliverable.CheckAndCreateFinalDeliverable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			status, err := svc.deliverable.ProjectStatus(cmd.Context(), args[0], a.cfg.Phase.Thresholds)
			if err != nil {
				return err
			}

			out := struct {
				Created   bool                  `json:"created"`
				TaskID    string                `json:"deliverable_task_id,omitempty"`
				Type      string                `json:"deliverable_type"`
				Readiness deliverable.Readiness `json:"readiness"`
			}{id != "", status.DeliverableTaskID, status.DeliverableType, status.Readiness}
			return a.emit(cmd, out, func(st Styles) error {
				switch {
				case out.Created:
					a.printf(cmd, "%s %s (%s)\n", st.Success.Render("Created deliverable task"), id, out.Type)
				case out.TaskID != "":
					a.printf(cmd, "Deliverable task already exists: %s\n", out.TaskID)
				default:
					a.printf(cmd, "%s\n", st.Warning.Render("Workspace is not ready for its final deliverable."))
				}
				printReadiness(a, cmd, out.Readiness)
				return nil
			})
		},
	}
}

func printReadiness(a *app, cmd *cobra.Command, r deliverable.Readiness) {
	a.printf(cmd, "  completed %d/%d (%.0f%%), failed %d, pending %d\n",
		r.Completed, r.Total, r.CompletionRate*100, r.Failed, r.Pending)
	a.printf(cmd, "  ready: standard=%t high_completion=%t finalization=%t time_based=%t\n",
		r.Standard, r.HighCompletion, r.Finalization, r.TimeBased)
}

func newAssessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assess <workspace>",
		Short: "Create the periodic progress assessment task if one is due",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openServices(cmd.Context(), wireOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if _, err := requireWorkspace(cmd.Context(), svc.store, args[0]); err != nil {
				return err
			}
			id, err := svc.executor.CreatePeriodicAssessmentTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := struct {
				Created bool   `json:"created"`
				TaskID  string `json:"assessment_task_id,omitempty"`
			}{id != "", id}
			return a.emit(cmd, out, func(st Styles) error {
				if id == "" {
					a.printf(cmd, "No assessment due (every %d completed tasks).\n", a.cfg.Lifecycle.AssessmentInterval)
					return nil
				}
				a.printf(cmd, "%s %s\n", st.Success.Render("Created assessment task"), id)
				return nil
			})
		},
	}
}

type statusView struct {
	Projects []*deliverable.ProjectStatus `json:"projects"`
	Executor lifecycle.Status             `json:"executor"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "status [workspace]",
		Aliases: []string{"st"},
		Short:   "Show project status and lifecycle settings",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openServices(cmd.Context(), wireOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			ids := args
			if len(ids) == 0 {
				list, err := svc.store.ListWorkspaces(cmd.Context())
				if err != nil {
					return fmt.Errorf("list workspaces: %w", err)
				}
				for _, ws := range list {
					ids = append(ids, ws.ID)
				}
			}

			view := statusView{Projects: []*deliverable.ProjectStatus{}, Executor: svc.executor.Status()}
			for _, id := range ids {
				ps, err := svc.deliverable.ProjectStatus(cmd.Context(), id, a.cfg.Phase.Thresholds)
				if err != nil {
					return err
				}
				view.Projects = append(view.Projects, ps)
			}

			return a.emit(cmd, view, func(st Styles) error {
				ex := view.Executor
				a.printf(cmd, "%s safety=%s risk=%s auto_generation=%t handoffs=%t confidence>=%.2f\n",
					st.Title.Render("Lifecycle:"), ex.SafetyMode, ex.RiskLevel,
					ex.AutoGenerationEnabled, ex.HandoffCreationEnabled, ex.ConfidenceThreshold)
				if len(view.Projects) == 0 {
					a.printf(cmd, "No workspaces found.\n")
					return nil
				}
				for _, ps := range view.Projects {
					a.printf(cmd, "\n%s %s (%s)\n", st.Title.Render(ps.Workspace.Name), ps.Workspace.ID, ps.Workspace.Status)
					a.printf(cmd, "  phase: %s\n", st.phaseStyle(ps.Phase).Render(string(ps.Phase)))
					a.printf(cmd, "  deliverable: %s", ps.DeliverableType)
					if ps.DeliverableTaskID != "" {
						a.printf(cmd, " (task %s)", ps.DeliverableTaskID)
					}
					a.printf(cmd, "\n")
					printReadiness(a, cmd, ps.Readiness)
				}
				return nil
			})
		},
	}
}
