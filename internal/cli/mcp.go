package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	rwmcp "github.com/valter-silva-au/reminderwave/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the rwave MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the rwave MCP server on stdio",
	Long: `Start the rwave MCP server on stdio transport.

The server exposes tasks as MCP tools that AI assistants can call:
list_tasks, get_task, add_task, toggle_task, delete_task, overdue_tasks,
upcoming_tasks, get_metrics, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}

		srv := rwmcp.NewServer(TaskSvc, MetricsCalc, AlertEngine, appVersion)
		if err := srv.Run(commandContext(cmd)); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
