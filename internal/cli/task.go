package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// clock is the time source used by commands, replaceable in tests.
var clock = time.Now

var (
	addDue      string
	addNotes    string
	addPriority string
	addRemind   bool
)

var addCmd = &cobra.Command{
	Use:   "add <title...>",
	Short: "Add a task",
	Long: `Add a task with an optional due date, priority and reminder.

Due dates accept 2006-01-02, "2006-01-02 15:04", today, tomorrow or +Nd,
optionally followed by a time ("tomorrow 09:30"). A reminder needs a due time
and fires at that minute.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := requireTasks(cmd)
		if err != nil {
			return err
		}

		draft := core.TaskDraft{
			Title:    strings.Join(args, " "),
			Notes:    addNotes,
			Priority: models.Priority(strings.ToLower(addPriority)),
		}
		if addDue != "" {
			due, hasTime, err := core.ParseDue(addDue, clock())
			if err != nil {
				return err
			}
			draft.DueDate = &due
			draft.HasTime = hasTime
		}
		if addRemind {
			draft.WantReminder = true
			ensurePermission(ctx, cmd.OutOrStdout())
		}

		task, err := TaskSvc.AddTask(ctx, draft)
		if err != nil {
			return fmt.Errorf("adding task: %s", core.UserMessage(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", describeTask(task))
		return nil
	},
}

var listFilter string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks by due date",
	Long: `List tasks ordered by due date, undated tasks last.

Use --filter to show only active or completed tasks. Due dates are coloured
red when overdue, orange when due today, yellow within two days and blue
after that. A * marks tasks with a reminder.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTasks(cmd); err != nil {
			return err
		}
		if err := TaskSvc.SetFilter(models.FilterMode(strings.ToLower(listFilter))); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		tasks := TaskSvc.FilteredTasks()
		counts := TaskSvc.Counts()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found.")
		} else {
			printTasks(out, tasks, clock())
		}
		fmt.Fprintf(out, "\n%d active, %d completed, %d total\n", counts.Active, counts.Completed, counts.All)
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle a task between completed and active",
	Long: `Mark a task completed, or reopen it if it is already completed.

The ID may be shortened to any unique prefix. A pending reminder is left in
place either way.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, task, err := resolveTask(cmd, args[0])
		if err != nil {
			return err
		}
		updated, err := TaskSvc.ToggleCompletion(ctx, task)
		if err != nil {
			return fmt.Errorf("updating task: %s", core.UserMessage(err))
		}
		verb := "Completed"
		if !updated.IsCompleted {
			verb = "Reopened"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, describeTask(updated))
		return nil
	},
}

var (
	editTitle    string
	editNotes    string
	editDue      string
	editNoDue    bool
	editPriority string
	editRemind   bool
	editNoRemind bool
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a task's title, notes, due date, priority or reminder",
	Long: `Change the fields of an existing task. Only the flags given are applied.

Changing the due date moves the reminder with it; removing the due time or
passing --no-remind cancels it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, task, err := resolveTask(cmd, args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()

		if flags.Changed("title") {
			task.Title = editTitle
		}
		if flags.Changed("notes") {
			task.Notes = editNotes
		}
		if flags.Changed("priority") {
			task.Priority = models.Priority(strings.ToLower(editPriority))
		}
		switch {
		case editNoDue:
			task.HasDueDate, task.HasTime, task.HasReminder = false, false, false
			task.DueDate = time.Time{}
		case flags.Changed("due"):
			due, hasTime, err := core.ParseDue(editDue, clock())
			if err != nil {
				return err
			}
			task.HasDueDate, task.DueDate, task.HasTime = true, due, hasTime
			if !hasTime {
				task.HasReminder = false
			}
		}
		switch {
		case editNoRemind:
			task.HasReminder = false
		case editRemind:
			task.HasReminder = true
			ensurePermission(ctx, cmd.OutOrStdout())
		}

		updated, err := TaskSvc.UpdateTask(ctx, task)
		if err != nil {
			return fmt.Errorf("updating task: %s", core.UserMessage(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", describeTask(updated))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a task and cancel its reminder",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, task, err := resolveTask(cmd, args[0])
		if err != nil {
			return err
		}
		if err := TaskSvc.DeleteTask(ctx, task); err != nil {
			return fmt.Errorf("deleting task: %s", core.UserMessage(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", describeTask(task))
		return nil
	},
}

// resolveTask reloads the task list and finds the task ref refers to.
func resolveTask(cmd *cobra.Command, ref string) (context.Context, models.Task, error) {
	ctx, err := requireTasks(cmd)
	if err != nil {
		return nil, models.Task{}, err
	}
	task, err := core.ResolveTaskRef(TaskSvc.Tasks(), ref)
	if err != nil {
		return nil, models.Task{}, err
	}
	return ctx, task, nil
}

// ensurePermission asks for reminder permission if it has not been granted
// yet and waits for the answer.
func ensurePermission(ctx context.Context, out io.Writer) {
	if TaskSvc.ReminderPermitted() {
		return
	}
	if granted := <-TaskSvc.RequestReminderPermission(ctx); !granted {
		fmt.Fprintln(out, "Reminders are not permitted; saving the task without one.")
	}
}

func init() {
	addCmd.Flags().StringVarP(&addDue, "due", "d", "", "Due date, e.g. 2025-03-10, \"tomorrow 09:30\", +3d")
	addCmd.Flags().StringVarP(&addNotes, "notes", "n", "", "Notes")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "", "Priority: low, medium or high (default from config)")
	addCmd.Flags().BoolVarP(&addRemind, "remind", "r", false, "Send a reminder at the due time")

	listCmd.Flags().StringVarP(&listFilter, "filter", "f", string(models.FilterAll), "Filter: all, active or completed")

	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVar(&editNotes, "notes", "", "New notes")
	editCmd.Flags().StringVar(&editDue, "due", "", "New due date")
	editCmd.Flags().BoolVar(&editNoDue, "no-due", false, "Remove the due date")
	editCmd.Flags().StringVar(&editPriority, "priority", "", "New priority")
	editCmd.Flags().BoolVar(&editRemind, "remind", false, "Send a reminder at the due time")
	editCmd.Flags().BoolVar(&editNoRemind, "no-remind", false, "Cancel the reminder")
	editCmd.MarkFlagsMutuallyExclusive("due", "no-due")
	editCmd.MarkFlagsMutuallyExclusive("remind", "no-remind")

	_ = addCmd.RegisterFlagCompletionFunc("priority", completePriorities)
	_ = editCmd.RegisterFlagCompletionFunc("priority", completePriorities)
	_ = listCmd.RegisterFlagCompletionFunc("filter", completeFilters)
	doneCmd.ValidArgsFunction = completeTaskRefs(false)
	editCmd.ValidArgsFunction = completeTaskRefs(false)
	rmCmd.ValidArgsFunction = completeTaskRefs(false)

	rootCmd.AddCommand(addCmd, listCmd, doneCmd, editCmd, rmCmd)
}
