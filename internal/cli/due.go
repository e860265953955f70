package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List open tasks past their due date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTasks(cmd); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		tasks := TaskSvc.OverdueTasks()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "Nothing overdue.")
			return nil
		}
		printTasks(out, tasks, clock())
		return nil
	},
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "List open tasks due today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTasks(cmd); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		tasks := TaskSvc.DueTodayTasks()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "Nothing due today.")
			return nil
		}
		printTasks(out, tasks, clock())
		return nil
	},
}

var upcomingDays int

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List open tasks due in the next few days",
	Long: `List open tasks due from now through the end of the day --days days ahead.

Tasks already past their due time are listed by "overdue" instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireTasks(cmd); err != nil {
			return err
		}
		days := upcomingDays
		if !cmd.Flags().Changed("days") {
			days = TaskSvc.UpcomingWindow()
		}
		if days < 0 {
			return fmt.Errorf("--days must not be negative")
		}

		out := cmd.OutOrStdout()
		tasks := TaskSvc.UpcomingTasks(days)
		if len(tasks) == 0 {
			fmt.Fprintf(out, "Nothing due in the next %d day(s).\n", days)
			return nil
		}
		printTasks(out, tasks, clock())
		return nil
	},
}

func init() {
	upcomingCmd.Flags().IntVar(&upcomingDays, "days", 0, "Days ahead to include (default from config)")
	rootCmd.AddCommand(overdueCmd, todayCmd, upcomingCmd)
}
