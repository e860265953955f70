package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/valter-silva-au/reminderwave/internal/api"
	"github.com/valter-silva-au/reminderwave/internal/logger"
)

var (
	daemonAddr  string
	daemonNoAPI bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Deliver reminders and serve the HTTP API",
	Long: `Run in the foreground, delivering reminders as they fall due.

Due reminders are printed to the terminal and, when a Slack webhook is
configured, posted there as well. Unless --no-api is given, the task API and
Prometheus metrics are served on --addr (default from api.addr).
Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Dispatcher == nil {
			return fmt.Errorf("reminder dispatcher not initialized")
		}
		ctx := commandContext(cmd)
		log := logger.With("component", "daemon")

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return Dispatcher.Run(ctx)
		})

		if !daemonNoAPI {
			if TaskSvc == nil {
				return fmt.Errorf("task service not initialized")
			}
			addr := daemonAddr
			if addr == "" && Config != nil {
				addr = Config.API.Addr
			}
			var metrics http.Handler
			if Prom != nil {
				metrics = Prom.Handler()
			}
			srv := api.NewServer(TaskSvc, metrics, log)
			g.Go(func() error {
				return srv.Run(ctx, addr)
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Serving API on http://%s\n", addr)
		}

		if TaskSvc != nil && !TaskSvc.ReminderPermitted() {
			fmt.Fprintln(cmd.OutOrStdout(), "Reminders are not permitted yet; run 'rwave permission request' to allow them.")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Waiting for reminders. Press Ctrl+C to stop.")
		return g.Wait()
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonAddr, "addr", "", "API listen address (default from config)")
	daemonCmd.Flags().BoolVar(&daemonNoAPI, "no-api", false, "Only deliver reminders, do not serve the API")
	rootCmd.AddCommand(daemonCmd)
}
