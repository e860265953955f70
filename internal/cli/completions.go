package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// completeTaskRefs lists short task IDs with their titles. Completed tasks
// are skipped when openOnly is set.
func completeTaskRefs(openOnly bool) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 || TaskSvc == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		if err := TaskSvc.LoadTasks(commandContext(cmd)); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		prefix := strings.ToLower(toComplete)
		var refs []string
		for _, task := range TaskSvc.Tasks() {
			if openOnly && task.IsCompleted {
				continue
			}
			short := core.ShortID(task.ID)
			if prefix == "" || strings.HasPrefix(short, prefix) {
				refs = append(refs, short+"\t"+task.Title)
			}
		}

		return refs, cobra.ShellCompDirectiveNoFileComp
	}
}

// completePriorities returns a completion function for priority values.
func completePriorities(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.PriorityHigh) + "\tDo first",
		string(models.PriorityMedium) + "\tDefault",
		string(models.PriorityLow) + "\tWhen there is time",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeFilters returns a completion function for list filter modes.
func completeFilters(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.FilterAll) + "\tEvery task",
		string(models.FilterActive) + "\tOpen tasks",
		string(models.FilterCompleted) + "\tFinished tasks",
	}, cobra.ShellCompDirectiveNoFileComp
}
