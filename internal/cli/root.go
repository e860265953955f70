package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "rwave",
	Short: "ReminderWave - tasks with due dates and reminders",
	Long: `ReminderWave (rwave) keeps a personal task list with optional due dates,
priorities and one-shot reminders.

Tasks are listed by due date. Overdue, today and upcoming views show what
needs attention, and the daemon delivers reminders when they fall due.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rwave %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// requireTasks returns the task service after reloading it from the store.
func requireTasks(cmd *cobra.Command) (context.Context, error) {
	if TaskSvc == nil {
		return nil, fmt.Errorf("task service not initialized")
	}
	ctx := commandContext(cmd)
	if err := TaskSvc.LoadTasks(ctx); err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	return ctx, nil
}
