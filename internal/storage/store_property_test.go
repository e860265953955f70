package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/reminderwave/pkg/models"
	"pgregory.net/rapid"
)

func taskGenerator(id string) *rapid.Generator[models.Task] {
	return rapid.Custom(func(t *rapid.T) models.Task {
		created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local).
			Add(time.Duration(rapid.IntRange(0, 500_000).Draw(t, "createdMin")) * time.Minute)
		task := models.Task{
			ID:           id,
			Title:        rapid.StringMatching(`[A-Za-z0-9 ]{1,30}`).Draw(t, "title"),
			Notes:        rapid.StringMatching(`[A-Za-z0-9 .,]{0,60}`).Draw(t, "notes"),
			IsCompleted:  rapid.Bool().Draw(t, "completed"),
			Priority:     rapid.SampledFrom([]models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}).Draw(t, "priority"),
			CreatedAt:    created,
			LastModified: created,
		}
		if rapid.Bool().Draw(t, "hasDue") {
			task.HasDueDate = true
			task.HasTime = rapid.Bool().Draw(t, "hasTime")
			task.DueDate = created.Add(time.Duration(rapid.IntRange(0, 50_000).Draw(t, "dueMin")) * time.Minute)
			if !task.HasTime {
				task.DueDate = models.StartOfDay(task.DueDate, time.Local)
			}
			task.HasReminder = task.HasTime && rapid.Bool().Draw(t, "reminder")
		}
		return task
	})
}

// Whatever is created in the YAML store is listed back with the same fields.
func TestProperty_YAMLStoreRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "n")
		store := NewYAMLTaskStore(filepath.Join(t.TempDir(), "tasks.yaml"))
		ctx := context.Background()

		want := make(map[string]models.Task, n)
		for i := 0; i < n; i++ {
			task := taskGenerator(fmt.Sprintf("t%02d", i)).Draw(rt, "task")
			if err := store.Create(ctx, task); err != nil {
				rt.Fatalf("Create: %v", err)
			}
			want[task.ID] = task
		}

		got, err := store.List(ctx)
		if err != nil {
			rt.Fatalf("List: %v", err)
		}
		if len(got) != n {
			rt.Fatalf("listed %d tasks, want %d", len(got), n)
		}
		for _, g := range got {
			w := want[g.ID]
			if g.Title != w.Title || g.Notes != w.Notes || g.IsCompleted != w.IsCompleted ||
				g.Priority != w.Priority || g.HasDueDate != w.HasDueDate ||
				g.HasTime != w.HasTime || g.HasReminder != w.HasReminder {
				rt.Fatalf("task %s: got %+v, want %+v", g.ID, g, w)
			}
			if w.HasDueDate && !g.DueDate.Equal(w.DueDate) {
				rt.Fatalf("task %s due %v, want %v", g.ID, g.DueDate, w.DueDate)
			}
		}
	})
}
