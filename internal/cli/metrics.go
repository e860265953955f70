package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/reminderwave/internal/mcp"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display task and reminder metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include tasks created, completed, reopened and deleted, tasks by
priority, and how many reminders were scheduled, cancelled, delivered or
failed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		since := strings.TrimSpace(metricsSince)
		if since == "" {
			since = "7d"
		}
		sinceTime, err := mcp.ParseSince(since, clock().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		// Table format.
		fmt.Fprintf(out, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks created:", metrics.TasksCreated)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks updated:", metrics.TasksUpdated)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks completed:", metrics.TasksCompleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks reopened:", metrics.TasksReopened)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks deleted:", metrics.TasksDeleted)
		fmt.Fprintf(out, "  %-24s %.0f%%\n", "Completion rate:", metrics.CompletionRate()*100)
		fmt.Fprintf(out, "  %-24s %d\n", "Reminders scheduled:", metrics.RemindersScheduled)
		fmt.Fprintf(out, "  %-24s %d\n", "Reminders cancelled:", metrics.RemindersCancelled)
		fmt.Fprintf(out, "  %-24s %d\n", "Reminders delivered:", metrics.RemindersDelivered)
		fmt.Fprintf(out, "  %-24s %d\n", "Reminder failures:", metrics.RemindersFailed)

		if len(metrics.TasksByPriority) > 0 {
			fmt.Fprintln(out, "\n  Tasks by priority:")
			priorities := make([]string, 0, len(metrics.TasksByPriority))
			for p := range metrics.TasksByPriority {
				priorities = append(priorities, p)
			}
			sort.Strings(priorities)
			for _, p := range priorities {
				fmt.Fprintf(out, "    %-20s %d\n", p+":", metrics.TasksByPriority[p])
			}
		}

		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
