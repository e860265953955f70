package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/internal/observability"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <task>",
	Short: "Show the recorded events for a task",
	Long: `Show what happened to a task: when it was created, edited, completed or
reopened, and when its reminder was scheduled, cancelled, delivered or failed.

The task may be given by ID prefix. A deleted task can still be looked up by
its full ID.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeTaskRefs(false),
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("event log not initialized (observability may be disabled)")
		}
		if _, err := requireTasks(cmd); err != nil {
			return err
		}

		ref := args[0]
		taskID, heading := ref, ref
		task, err := core.ResolveTaskRef(TaskSvc.Tasks(), ref)
		switch {
		case err == nil:
			taskID, heading = task.ID, describeTask(task)
		case !errors.Is(err, core.ErrNotFound):
			return err
		}

		events, readErr := EventLog.Read(observability.EventFilter{TaskID: taskID, Limit: historyLimit})
		if readErr != nil {
			return fmt.Errorf("reading history: %w", readErr)
		}
		if len(events) == 0 && err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "History of %s\n\n", heading)
		if len(events) == 0 {
			fmt.Fprintln(out, "No events recorded.")
			return nil
		}
		for _, e := range events {
			fmt.Fprintf(out, "  %s  %s\n", e.Time.In(clock().Location()).Format("2006-01-02 15:04"), e.Message)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 0, "Show only the newest N events (0 for all)")
	rootCmd.AddCommand(historyCmd)
}
