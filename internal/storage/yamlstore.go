package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
	"gopkg.in/yaml.v3"
)

// TaskFile represents the top-level structure of tasks.yaml.
type TaskFile struct {
	Version string                 `yaml:"version"`
	Tasks   map[string]models.Task `yaml:"tasks"`
}

const taskFileVersion = "1.0"

type yamlTaskStore struct {
	path string
	// mu serializes access within the process; the flock on path+".lock"
	// serializes it across processes such as the CLI and the daemon.
	mu sync.Mutex
}

// NewYAMLTaskStore creates a TaskStore backed by a single YAML file. Every
// operation re-reads the file so concurrent processes see each other's
// writes.
func NewYAMLTaskStore(path string) core.TaskStore {
	return &yamlTaskStore{path: path}
}

func (s *yamlTaskStore) List(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := s.withFile(ctx, false, func(f *TaskFile) error {
		tasks = make([]models.Task, 0, len(f.Tasks))
		for _, t := range f.Tasks {
			tasks = append(tasks, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	models.SortByDueDate(tasks)
	return tasks, nil
}

func (s *yamlTaskStore) Create(ctx context.Context, task models.Task) error {
	if err := checkWritable(task); err != nil {
		return err
	}
	return s.withFile(ctx, true, func(f *TaskFile) error {
		if _, exists := f.Tasks[task.ID]; exists {
			return fmt.Errorf("creating task: task %s already exists", task.ID)
		}
		f.Tasks[task.ID] = task
		return nil
	})
}

func (s *yamlTaskStore) Update(ctx context.Context, task models.Task) error {
	return s.withFile(ctx, true, func(f *TaskFile) error {
		if _, exists := f.Tasks[task.ID]; !exists {
			return &core.NotFoundError{ID: task.ID}
		}
		task.LastModified = touch(task.LastModified)
		f.Tasks[task.ID] = task
		return nil
	})
}

func (s *yamlTaskStore) Delete(ctx context.Context, task models.Task) error {
	return s.withFile(ctx, true, func(f *TaskFile) error {
		if _, exists := f.Tasks[task.ID]; !exists {
			return &core.NotFoundError{ID: task.ID}
		}
		delete(f.Tasks, task.ID)
		return nil
	})
}

// withFile loads the task file under lock, runs fn and, when write is set and
// fn succeeds, saves the result.
func (s *yamlTaskStore) withFile(ctx context.Context, write bool, fn func(*TaskFile) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating task directory: %w", err)
	}
	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	f, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	if !write {
		return nil
	}
	return s.save(f)
}

func (s *yamlTaskStore) load() (*TaskFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &TaskFile{Version: taskFileVersion, Tasks: make(map[string]models.Task)}, nil
		}
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	var f TaskFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("loading tasks: parsing YAML: %w", err)
	}
	if f.Tasks == nil {
		f.Tasks = make(map[string]models.Task)
	}
	if f.Version == "" {
		f.Version = taskFileVersion
	}
	return &f, nil
}

func (s *yamlTaskStore) save(f *TaskFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("saving tasks: marshaling YAML: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	return nil
}
