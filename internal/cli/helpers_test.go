package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/internal/scheduler"
	"github.com/valter-silva-au/reminderwave/internal/storage"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// testNow is a fixed Tuesday morning used by command tests.
var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	svc   core.TaskService
	store core.TaskStore
	queue core.NotificationQueue
}

// setupTasks wires a real task service over in-memory storage into the
// package-level variables and restores them when the test ends.
func setupTasks(t *testing.T, granted bool) *testEnv {
	t.Helper()

	origSvc, origClock, origConfig := TaskSvc, clock, Config
	t.Cleanup(func() {
		TaskSvc, clock, Config = origSvc, origClock, origConfig
	})

	fixed := func() time.Time { return testNow }
	env := &testEnv{
		store: storage.NewMemoryTaskStore(),
		queue: storage.NewMemoryQueue(),
	}
	sched := scheduler.New(scheduler.NewStaticGate(granted), env.queue, scheduler.WithClock(fixed))
	env.svc = core.NewTaskService(env.store, sched, core.WithClock(fixed))

	TaskSvc = env.svc
	clock = fixed
	Config = nil
	return env
}

// add creates a task directly through the service.
func (e *testEnv) add(t *testing.T, draft core.TaskDraft) models.Task {
	t.Helper()
	task, err := e.svc.AddTask(context.Background(), draft)
	if err != nil {
		t.Fatalf("AddTask(%q) error = %v", draft.Title, err)
	}
	return task
}

func dueAt(t time.Time) *time.Time { return &t }

// resetFlags restores every flag under cmd to its default so values from a
// previous Execute do not leak into the next one.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}
