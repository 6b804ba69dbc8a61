package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/report"
	"github.com/roach88/assetaudit/internal/tasks"
)

// TaskCreateOptions holds flags for the task create command.
type TaskCreateOptions struct {
	*RootOptions
	Form audit.CreateTaskForm
}

// TaskListOptions holds flags for the task list command.
type TaskListOptions struct {
	*RootOptions
	Status   string
	Priority string
	Search   string
}

// NewTaskCommand creates the task command group.
func NewTaskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, list and complete audit tasks",
	}
	cmd.AddCommand(newTaskCreateCommand(rootOpts))
	cmd.AddCommand(newTaskListCommand(rootOpts))
	cmd.AddCommand(newTaskShowCommand(rootOpts))
	cmd.AddCommand(newTaskCompleteCommand(rootOpts))
	cmd.AddCommand(newTaskStatsCommand(rootOpts))
	cmd.AddCommand(newTaskRefreshOverdueCommand(rootOpts))
	return cmd
}

func newTaskCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaskCreateOptions{RootOptions: rootOpts}
	var taskType, priority string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a Pending audit task",
		Long: `Create a Pending audit task.

--name, --assignee and --due are required. Type defaults to "IT Assets" and
priority to "Medium". --checklist seeds the checklist for the type.

Example:
  assetaudit task create --name "Server Room A" --assignee "J. Doe" --due 2025-01-15
  assetaudit task create --name "Lobby cameras" --type Security --priority High \
      --assignee Ann --due 2025-02-01 --checklist`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Form.Type = audit.TaskType(taskType)
			opts.Form.Priority = audit.Priority(priority)
			return withTask(opts.RootOptions, cmd, func(a *app) (audit.AuditTask, error) {
				return a.svc.CreateTask(cmd.Context(), opts.Form)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Form.AssetName, "name", "", "asset or location under audit")
	cmd.Flags().StringVar(&taskType, "type", "", "Compliance|Security|Financial|IT Assets|Inventory")
	cmd.Flags().StringVar(&priority, "priority", "", "Critical|High|Medium|Low")
	cmd.Flags().StringVar(&opts.Form.AssignedTo, "assignee", "", "person responsible")
	cmd.Flags().StringVar(&opts.Form.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Form.Notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&opts.Form.WithChecklist, "checklist", false, "seed the checklist for the task type")

	return cmd
}

func newTaskListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaskListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit tasks, newest first",
		Long: `List audit tasks, newest first.

Example:
  assetaudit task list
  assetaudit task list --status Overdue --format json
  assetaudit task list --search "server room"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTasks(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "only tasks with this status")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "only tasks with this priority")
	cmd.Flags().StringVar(&opts.Search, "search", "", "match asset name or assignee, case-insensitively")

	return cmd
}

func listTasks(opts *TaskListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.svc.ListTasks(cmd.Context(), tasks.Filter{
		Status:   audit.Status(opts.Status),
		Priority: audit.Priority(opts.Priority),
		Search:   opts.Search,
	})
	if err != nil {
		return outputError(formatter, ErrCodeStorage, err)
	}
	if opts.Format == "json" {
		return formatter.Success(list)
	}
	report.TaskList(cmd.OutOrStdout(), list)
	return nil
}

func newTaskShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <task-id>",
		Short:         "Show one audit task",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(rootOpts, cmd, func(a *app) (audit.AuditTask, error) {
				return a.svc.Get(cmd.Context(), args[0])
			})
		},
	}
}

func newTaskCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark an audit task Completed",
		Long: `Mark an audit task Completed.

When require_checklist is set in the config, completion is refused while
required checklist items are open.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(rootOpts, cmd, func(a *app) (audit.AuditTask, error) {
				return a.svc.MarkComplete(cmd.Context(), args[0])
			})
		},
	}
}

func newTaskStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Count audit tasks per status",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.svc.Stats(cmd.Context())
			if err != nil {
				return outputError(formatter, ErrCodeStorage, err)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(st)
			}
			report.Stats(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newTaskRefreshOverdueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "refresh-overdue",
		Short:         "Mark open tasks past their due date Overdue",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.svc.RefreshOverdue(cmd.Context())
			if err != nil {
				return outputError(formatter, ErrCodeStorage, err)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]int{"updated": n})
			}
			return formatter.Success(fmt.Sprintf("%d task(s) marked Overdue", n))
		},
	}
}

// withTask opens the app, runs one task operation and prints the
// resulting task.
func withTask(opts *RootOptions, cmd *cobra.Command, op func(a *app) (audit.AuditTask, error)) error {
	formatter := newFormatter(opts, cmd)
	a, err := openApp(opts, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := op(a)
	if err != nil {
		return outputError(formatter, ErrCodeStorage, err)
	}
	return printTask(opts, cmd, formatter, task)
}

func printTask(opts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter, task audit.AuditTask) error {
	if opts.Format == "json" {
		return formatter.Success(task)
	}
	report.TaskDetail(cmd.OutOrStdout(), task)
	return nil
}
