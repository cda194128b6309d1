package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/teamlead/internal/db"
	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
	"github.com/randalmurphal/teamlead/internal/lifecycle"
	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/task"
)

// openOrFailed is the status a task must have to be completed or failed.
const openOrFailed = "pending, in_progress or failed"

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskAddCmd(a), newTaskListCmd(a))
	return cmd
}

func newTaskAddCmd(a *app) *cobra.Command {
	var (
		description string
		role        string
		agentID     string
		priority    string
		phaseName   string
		parentID    string
	)

	cmd := &cobra.Command{
		Use:   "add <workspace> <name>",
		Short: "Add a task to a workspace",
		Example: `  teamlead task add ws-1 "Research competitors" --role "Market Analyst" --phase analysis
  teamlead task add ws-1 "Project plan" --agent <pm-agent-id> --priority high`,
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

			if _, err := requireWorkspace(cmd.Context(), store, args[0]); err != nil {
				return err
			}
			if agentID != "" {
				ag, err := store.GetAgent(cmd.Context(), agentID)
				if err != nil {
					return fmt.Errorf("get agent %s: %w", agentID, err)
				}
				if ag == nil || ag.WorkspaceID != args[0] {
					return teamerrors.ErrAgentNotFound(agentID)
				}
			}

			t := &task.Task{
				WorkspaceID:    args[0],
				Name:           args[1],
				Description:    description,
				Status:         task.StatusPending,
				AgentID:        agentID,
				AssignedToRole: role,
				Priority:       task.ParsePriority(priority),
				ParentTaskID:   parentID,
				CreationType:   task.CreationManual,
			}
			if phaseName != "" {
				t.SetContext(task.KeyProjectPhase, string(phase.ValidateWith(r, phaseName)))
			}
			if err := store.CreateTask(cmd.Context(), t); err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			return a.emit(cmd, t, func(st Styles) error {
				a.printf(cmd, "%s %s\n", st.Success.Render("Created task"), t.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&role, "role", "r", "", "role the task is assigned to")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id the task is assigned to")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(task.PriorityMedium), "critical, high, medium or low")
	cmd.Flags().StringVar(&phaseName, "phase", "", "project phase (analysis, implementation, finalization)")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent task id")
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:     "list <workspace>",
		Aliases: []string{"ls"},
		Short:   "List the tasks of a workspace",
		Args:    cobra.ExactArgs(1),
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

			tasks, err := store.ListTasks(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			if status != "" {
				tasks = task.Filter(tasks, task.Status(status))
			}
			return a.emit(cmd, tasks, func(Styles) error {
				if len(tasks) == 0 {
					a.printf(cmd, "No tasks found.\n")
					return nil
				}
				tw := newTable(cmd)
				_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tPHASE\tPRIORITY\tCREATED BY\tNAME")
				for _, t := range tasks {
					creation := string(t.CreationType)
					if creation == "" {
						creation = "-"
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						t.ID, t.Status, phase.ValidateWith(r, t.Phase()), t.Priority, creation, truncate(t.Name, 50))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only tasks with this status")
	return cmd
}

func newCompleteCmd(a *app) *cobra.Command {
	var (
		summary    string
		details    string
		resultFile string
	)

	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task completed and run the lifecycle on it",
		Long: `Record a task result, mark the task completed and hand it to the lifecycle.

For a project manager task the output is parsed as a plan and subtasks are
created. For a specialist task a follow-up analysis runs when automatic
generation is enabled. Afterwards the final deliverable check and periodic
assessment run.

The result comes from --summary and --details, or from --result-file, a YAML
or JSON document with status, summary and detailed_results_json ("-" reads
stdin).`,
		Example: `  teamlead complete t-1 --summary "Market research done" --details '{"deliverables":["report.md"]}'
  teamlead complete t-2 --result-file result.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := task.Result{Status: string(task.StatusCompleted), Summary: summary, DetailedResultsJSON: details}
			if resultFile != "" {
				r, err := readResultFile(cmd.InOrStdin(), resultFile)
				if err != nil {
					return err
				}
				result = r
			}

			svc, err := a.openServices(cmd.Context(), wireOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			rep, err := completeTask(cmd.Context(), svc, args[0], result)
			if err != nil {
				return err
			}
			if err := a.emit(cmd, rep, func(st Styles) error {
				printReport(a, cmd, st, rep)
				return nil
			}); err != nil {
				return err
			}
			if rep.Decision == lifecycle.DecisionPlanInvalid {
				return teamerrors.ErrPlanInvalid(rep.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&summary, "summary", "", "result summary")
	cmd.Flags().StringVar(&details, "details", "", "detailed results as a JSON string")
	cmd.Flags().StringVarP(&resultFile, "result-file", "f", "", "read the result from a YAML or JSON file")
	return cmd
}

// completeTask persists the completion then runs the lifecycle.
func completeTask(ctx context.Context, svc *services, id string, result task.Result) (lifecycle.Report, error) {
	t, err := loadTask(ctx, svc.store, id)
	if err != nil {
		return lifecycle.Report{}, err
	}
	if t.Status == task.StatusCompleted {
		return lifecycle.Report{}, teamerrors.ErrTaskInvalidState(id, string(t.Status), openOrFailed)
	}
	if result.Status == "" {
		result.Status = string(task.StatusCompleted)
	}
	t.Status = task.StatusCompleted
	t.Result = &result
	if err := svc.store.UpdateTask(ctx, t); err != nil {
		return lifecycle.Report{}, fmt.Errorf("mark task %s completed: %w", id, err)
	}
	return svc.executor.HandleTaskCompletion(ctx, t, result, t.WorkspaceID), nil
}

func readResultFile(stdin io.Reader, path string) (task.Result, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return task.Result{}, fmt.Errorf("read result %s: %w", path, err)
	}

	var r task.Result
	if err := yaml.Unmarshal(data, &r); err != nil {
		return task.Result{}, fmt.Errorf("parse result %s: %w", path, err)
	}
	return r, nil
}

func printReport(a *app, cmd *cobra.Command, st Styles, rep lifecycle.Report) {
	a.printf(cmd, "%s %s\n", st.Title.Render("Task"), rep.TaskID)
	a.printf(cmd, "  branch:   %s\n", rep.Branch)
	a.printf(cmd, "  decision: %s\n", rep.Decision)
	if rep.Reason != "" {
		a.printf(cmd, "  reason:   %s\n", rep.Reason)
	}
	if rep.Analysis != nil {
		a.printf(cmd, "  analysis: follow-up=%t confidence=%.2f status=%s\n",
			rep.Analysis.RequiresFollowUp, rep.Analysis.Confidence, rep.Analysis.ProjectStatus)
	}
	for _, id := range rep.CreatedTaskIDs {
		a.printf(cmd, "  %s %s\n", st.Success.Render("created"), id)
	}
	if rep.SkippedSubtasks > 0 {
		a.printf(cmd, "  %s %d subtasks\n", st.Warning.Render("skipped"), rep.SkippedSubtasks)
	}
	if rep.PlanningTaskID != "" {
		a.printf(cmd, "  planning task: %s\n", rep.PlanningTaskID)
	}
	if rep.DeliverableTaskID != "" {
		a.printf(cmd, "  deliverable task: %s\n", rep.DeliverableTaskID)
	}
	if rep.ProjectCompleted {
		a.printf(cmd, "  %s\n", st.Success.Render("project completed"))
	}
	for _, call := range rep.Degraded {
		a.printf(cmd, "  %s %s\n", st.Warning.Render("degraded"), call)
	}
}

func newFailCmd(a *app) *cobra.Command {
	var errDetails string

	cmd := &cobra.Command{
		Use:   "fail <task-id>",
		Short: "Report a task failure to the project manager",
		Long: `Mark a task failed and hand it to the project manager. A retry is
scheduled for a first failure; repeated failures escalate to an intervention
task for the manager.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openServices(cmd.Context(), wireOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			t, err := loadTask(cmd.Context(), svc.store, args[0])
			if err != nil {
				return err
			}
			if t.Status == task.StatusCompleted {
				return teamerrors.ErrTaskInvalidState(t.ID, string(t.Status), openOrFailed)
			}
			id, err := svc.executor.HandleFailedTask(cmd.Context(), t.ID, errDetails, t.WorkspaceID)
			if err != nil {
				return err
			}

			out := struct {
				TaskID     string `json:"task_id"`
				HandlingID string `json:"handling_task_id"`
			}{t.ID, id}
			return a.emit(cmd, out, func(st Styles) error {
				if id == t.ID {
					a.printf(cmd, "%s %s\n", st.Warning.Render("Retry scheduled for"), id)
				} else {
					a.printf(cmd, "%s %s\n", st.Warning.Render("Escalated to manager task"), id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&errDetails, "error", "e", "", "error details")
	return cmd
}

func loadTask(ctx context.Context, store *db.DB, id string) (*task.Task, error) {
	t, err := store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	if t == nil {
		return nil, teamerrors.ErrTaskNotFound(id)
	}
	return t, nil
}
