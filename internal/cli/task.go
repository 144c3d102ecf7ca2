package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/lorekit/lore/internal/core"
)

// NewTaskCommand creates the task command group.
func NewTaskCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Track tasks through their lifecycle",
	}
	cmd.AddCommand(newTaskAddCommand(opts))
	cmd.AddCommand(newTaskListCommand(opts))
	cmd.AddCommand(newTaskMoveCommand(opts))
	return cmd
}

func newTaskAddCommand(opts *RootOptions) *cobra.Command {
	var (
		session     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task in the open state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ses, err := app.resolveSession(cmd.Context(), session)
			if err != nil {
				return err
			}

			var descPtr *string
			if cmd.Flags().Changed("description") {
				descPtr = &description
			}
			t, err := app.svc.AddTask(cmd.Context(), ses, args[0], descPtr)
			if err != nil {
				return failure("add task", err)
			}
			return formatter(cmd, opts).Success(t, func(w io.Writer) {
				renderTask(w, t)
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (default: active session)")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	return cmd
}

func newTaskListCommand(opts *RootOptions) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			tasks, err := app.svc.ListTasks(cmd.Context(), core.TaskStatus(status), limit)
			if err != nil {
				return failure("list tasks", err)
			}
			return formatter(cmd, opts).Success(tasks, func(w io.Writer) {
				renderTasks(w, tasks)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open|in_progress|done|abandoned)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum tasks to list")
	return cmd
}

func newTaskMoveCommand(opts *RootOptions) *cobra.Command {
	var (
		session string
		reason  string
	)

	cmd := &cobra.Command{
		Use:   "move <task-id> <status>",
		Short: "Transition a task (open|in_progress|done|abandoned)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			ses, err := app.resolveSession(cmd.Context(), session)
			if err != nil {
				return err
			}

			var reasonPtr *string
			if cmd.Flags().Changed("reason") {
				reasonPtr = &reason
			}
			t, err := app.svc.MoveTask(cmd.Context(), ses, args[0], core.TaskStatus(args[1]), reasonPtr)
			if err != nil {
				return failure("move task", err)
			}
			return formatter(cmd, opts).Success(t, func(w io.Writer) {
				renderTask(w, t)
			})
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id (default: active session)")
	cmd.Flags().StringVar(&reason, "reason", "", "why the task moved (recorded in the trail)")
	return cmd
}
