package cli

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/St1cky1/taskflow/internal/entity"
	"github.com/St1cky1/taskflow/internal/usecase"
)

func (a *app) addCmd() *cobra.Command {
	var description, priority string

	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a task",
		Long: `Add a task. All arguments are joined into the title.

Examples:
  taskflow add Buy milk
  taskflow add "Pay bills" --priority high --description "electricity and water"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			c, closeFn, err := a.controller(cmd.Context(), printNotifier(out))
			if err != nil {
				return err
			}
			defer closeFn()

			task, err := c.AddTask(cmd.Context(), &entity.CreateTaskRequest{
				Title:       strings.Join(args, " "),
				Description: description,
				Priority:    priority,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %s  %s (%s)\n", task.ID, task.Title, task.Priority)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high (default medium)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := entity.ParseFilter(filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			c, closeFn, err := a.controller(cmd.Context(), printNotifier(out))
			if err != nil {
				return err
			}
			defer closeFn()

			c.SetFilter(f)
			tasks := slices.Collect(c.FilteredTasks())
			if len(tasks) == 0 {
				fmt.Fprintln(out, emptyMessage(f))
				return nil
			}
			for _, task := range tasks {
				printTask(out, task)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", string(entity.FilterAll), "all, active or completed")
	return cmd
}

func (a *app) toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Mark a task completed or active again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			c, closeFn, err := a.controller(cmd.Context(), printNotifier(out))
			if err != nil {
				return err
			}
			defer closeFn()

			id := args[0]
			if !hasTask(c, id) {
				return fmt.Errorf("task %s: %w", id, entity.ErrTaskNotFound)
			}
			if err := c.ToggleComplete(cmd.Context(), id); err != nil {
				return err
			}
			for _, task := range c.Tasks() {
				if task.ID == id && !task.Completed {
					fmt.Fprintf(out, "  %s is active again\n", task.Title)
				}
			}
			return nil
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := a.controller(cmd.Context(), printNotifier(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer closeFn()

			return c.DeleteTask(cmd.Context(), args[0])
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all completed tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			c, closeFn, err := a.controller(cmd.Context(), printNotifier(out))
			if err != nil {
				return err
			}
			defer closeFn()

			completed := c.Counts().Completed
			if completed == 0 {
				fmt.Fprintln(out, "No completed tasks to clear")
				return nil
			}
			if !yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Clear %d completed tasks?", completed)) {
				fmt.Fprintln(out, "Cancelled")
				return nil
			}

			_, err = c.ClearCompleted(cmd.Context())
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			c, closeFn, err := a.controller(cmd.Context(), printNotifier(out))
			if err != nil {
				return err
			}
			defer closeFn()

			counts := c.Counts()
			fmt.Fprintln(out, "Your Progress")
			fmt.Fprintf(out, "  %d of %d tasks completed (%d%%)\n",
				counts.Completed, counts.All, counts.CompletionPercentage())
			fmt.Fprintf(out, "  Total: %d  Active: %d  Done: %d\n", counts.All, counts.Active, counts.Completed)
			return nil
		},
	}
}

func hasTask(c *usecase.TaskListController, id string) bool {
	return slices.ContainsFunc(c.Tasks(), func(t entity.Task) bool { return t.ID == id })
}

func printTask(w io.Writer, task entity.Task) {
	check := "[ ]"
	if task.Completed {
		check = "[x]"
	}
	fmt.Fprintf(w, "%s %-36s  %-6s  %s\n", check, task.ID, task.Priority, task.Title)
	if task.Description != "" {
		fmt.Fprintf(w, "    %s\n", task.Description)
	}
}

func emptyMessage(f entity.Filter) string {
	switch f {
	case entity.FilterActive:
		return "All caught up! You've completed all your tasks."
	case entity.FilterCompleted:
		return "No completed tasks yet."
	default:
		return "No tasks yet. Add one with: taskflow add <title>"
	}
}

// confirm читает ответ y/yes из in
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
