package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/reminderwave/internal/scheduler"
)

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Inspect or change reminder permission",
}

var permissionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether reminders are permitted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}
		state := "not granted"
		if TaskSvc.ReminderPermitted() {
			state = "granted"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reminders: %s\n", state)
		return nil
	},
}

var permissionRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Ask for reminder permission now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskSvc == nil {
			return fmt.Errorf("task service not initialized")
		}
		granted := <-TaskSvc.RequestReminderPermission(commandContext(cmd))
		if granted {
			fmt.Fprintln(cmd.OutOrStdout(), "Reminders permitted.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Reminders not permitted.")
		}
		return nil
	},
}

var permissionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the saved answer so the next reminder asks again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if PermissionPath == "" {
			return fmt.Errorf("permission is set in configuration (reminders.permission), nothing to reset")
		}
		if err := scheduler.ResetPermission(PermissionPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Reminder permission reset.")
		return nil
	},
}

func init() {
	permissionCmd.AddCommand(permissionStatusCmd, permissionRequestCmd, permissionResetCmd)
	rootCmd.AddCommand(permissionCmd)
}
