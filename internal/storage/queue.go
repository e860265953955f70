package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
	"gopkg.in/yaml.v3"
)

func sortByFireTime(ns []models.Notification) {
	sort.Slice(ns, func(i, j int) bool {
		if !ns[i].FireAt.Equal(ns[j].FireAt) {
			return ns[i].FireAt.Before(ns[j].FireAt)
		}
		return ns[i].TaskID < ns[j].TaskID
	})
}

func dueOf(pending map[string]models.Notification, now time.Time) []models.Notification {
	due := make([]models.Notification, 0)
	for _, n := range pending {
		if !n.FireAt.After(now) {
			due = append(due, n)
		}
	}
	sortByFireTime(due)
	return due
}

// ackIn removes n from pending when the registration for n.TaskID still
// fires at n.FireAt.
func ackIn(pending map[string]models.Notification, n models.Notification) {
	if cur, ok := pending[n.TaskID]; ok && cur.FireAt.Equal(n.FireAt) {
		delete(pending, n.TaskID)
	}
}

func allOf(pending map[string]models.Notification) []models.Notification {
	all := make([]models.Notification, 0, len(pending))
	for _, n := range pending {
		all = append(all, n)
	}
	sortByFireTime(all)
	return all
}

// --- memory ---

type memoryQueue struct {
	mu      sync.Mutex
	pending map[string]models.Notification
}

// NewMemoryQueue creates a NotificationQueue held in process memory.
func NewMemoryQueue() core.NotificationQueue {
	return &memoryQueue{pending: make(map[string]models.Notification)}
}

func (q *memoryQueue) Put(_ context.Context, n models.Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[n.TaskID] = n
	return nil
}

func (q *memoryQueue) Remove(_ context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, taskID)
	return nil
}

func (q *memoryQueue) Ack(_ context.Context, n models.Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	ackIn(q.pending, n)
	return nil
}

func (q *memoryQueue) Due(_ context.Context, now time.Time) ([]models.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return dueOf(q.pending, now), nil
}

func (q *memoryQueue) Pending(_ context.Context) ([]models.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return allOf(q.pending), nil
}

// --- file ---

// QueueFile represents the top-level structure of reminders.yaml.
type QueueFile struct {
	Version       string                         `yaml:"version"`
	Notifications map[string]models.Notification `yaml:"notifications"`
}

type fileQueue struct {
	path string
	mu   sync.Mutex
}

// NewFileQueue creates a NotificationQueue persisted to a YAML file so that
// the CLI can schedule reminders which a separate daemon process delivers.
func NewFileQueue(path string) core.NotificationQueue {
	return &fileQueue{path: path}
}

func (q *fileQueue) Put(ctx context.Context, n models.Notification) error {
	return q.withFile(ctx, true, func(f *QueueFile) {
		f.Notifications[n.TaskID] = n
	})
}

func (q *fileQueue) Remove(ctx context.Context, taskID string) error {
	return q.withFile(ctx, true, func(f *QueueFile) {
		delete(f.Notifications, taskID)
	})
}

func (q *fileQueue) Ack(ctx context.Context, n models.Notification) error {
	return q.withFile(ctx, true, func(f *QueueFile) {
		ackIn(f.Notifications, n)
	})
}

func (q *fileQueue) Due(ctx context.Context, now time.Time) ([]models.Notification, error) {
	var due []models.Notification
	err := q.withFile(ctx, false, func(f *QueueFile) {
		due = dueOf(f.Notifications, now)
	})
	return due, err
}

func (q *fileQueue) Pending(ctx context.Context) ([]models.Notification, error) {
	var all []models.Notification
	err := q.withFile(ctx, false, func(f *QueueFile) {
		all = allOf(f.Notifications)
	})
	return all, err
}

func (q *fileQueue) withFile(ctx context.Context, write bool, fn func(*QueueFile)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(q.path), 0o750); err != nil {
		return fmt.Errorf("creating queue directory: %w", err)
	}
	unlock, err := lockFile(q.path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	f := &QueueFile{Version: "1.0", Notifications: make(map[string]models.Notification)}
	data, err := os.ReadFile(q.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("loading reminder queue: %w", err)
	default:
		if err := yaml.Unmarshal(data, f); err != nil {
			return fmt.Errorf("loading reminder queue: parsing YAML: %w", err)
		}
		if f.Notifications == nil {
			f.Notifications = make(map[string]models.Notification)
		}
	}

	fn(f)
	if !write {
		return nil
	}

	out, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("saving reminder queue: marshaling YAML: %w", err)
	}
	if err := writeFileAtomic(q.path, out); err != nil {
		return fmt.Errorf("saving reminder queue: %w", err)
	}
	return nil
}
