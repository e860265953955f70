// Package storage provides TaskStore implementations: a YAML file, SQLite,
// PostgreSQL through GORM, and an in-memory map.
package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

type memoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
}

// NewMemoryTaskStore creates a TaskStore that keeps tasks in process memory.
// Nothing survives a restart.
func NewMemoryTaskStore() core.TaskStore {
	return &memoryTaskStore{tasks: make(map[string]models.Task)}
}

func (s *memoryTaskStore) List(ctx context.Context) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	models.SortByDueDate(tasks)
	return tasks, nil
}

func (s *memoryTaskStore) Create(ctx context.Context, task models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkWritable(task); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("creating task: task %s already exists", task.ID)
	}
	s.tasks[task.ID] = task
	return nil
}

func (s *memoryTaskStore) Update(ctx context.Context, task models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; !exists {
		return &core.NotFoundError{ID: task.ID}
	}
	task.LastModified = touch(task.LastModified)
	s.tasks[task.ID] = task
	return nil
}

func (s *memoryTaskStore) Delete(ctx context.Context, task models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; !exists {
		return &core.NotFoundError{ID: task.ID}
	}
	delete(s.tasks, task.ID)
	return nil
}

// now is the store clock; tests replace it.
var now = time.Now

// touch returns the LastModified stamp for an update: the current time, or
// prev when that is already later.
func touch(prev time.Time) time.Time {
	if t := now(); t.After(prev) {
		return t
	}
	return prev
}

// checkWritable rejects records no backend may persist.
func checkWritable(task models.Task) error {
	if task.ID == "" {
		return &core.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(task.Title) == "" {
		return &core.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return nil
}
