package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// SQLiteTaskStore is a TaskStore backed by a SQLite database file.
type SQLiteTaskStore struct {
	db *sql.DB
}

// NewSQLiteTaskStore opens (creating if needed) the database at dbPath and
// migrates the schema.
func NewSQLiteTaskStore(dbPath string) (*SQLiteTaskStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// A single connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	store := &SQLiteTaskStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite database: %w", err)
	}
	return store, nil
}

func (s *SQLiteTaskStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			is_completed INTEGER NOT NULL DEFAULT 0,
			has_due_date INTEGER NOT NULL DEFAULT 0,
			due_date DATETIME,
			has_time INTEGER NOT NULL DEFAULT 0,
			has_reminder INTEGER NOT NULL DEFAULT 0,
			priority TEXT NOT NULL DEFAULT 'medium',
			created_at DATETIME NOT NULL,
			last_modified DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(has_due_date, due_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteTaskStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteTaskStore) List(ctx context.Context) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, notes, is_completed, has_due_date, due_date, has_time,
		       has_reminder, priority, created_at, last_modified
		FROM tasks ORDER BY has_due_date DESC, due_date, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var due sql.NullTime
		var priority string
		if err := rows.Scan(&t.ID, &t.Title, &t.Notes, &t.IsCompleted, &t.HasDueDate, &due,
			&t.HasTime, &t.HasReminder, &priority, &t.CreatedAt, &t.LastModified); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.Priority = models.Priority(priority)
		if due.Valid {
			t.DueDate = due.Time.Local()
		}
		t.CreatedAt = t.CreatedAt.Local()
		t.LastModified = t.LastModified.Local()
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func (s *SQLiteTaskStore) Create(ctx context.Context, t models.Task) error {
	if err := checkWritable(t); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, notes, is_completed, has_due_date, due_date,
		                   has_time, has_reminder, priority, created_at, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Notes, t.IsCompleted, t.HasDueDate, nullableDue(t),
		t.HasTime, t.HasReminder, string(t.Priority), t.CreatedAt.UTC(), t.LastModified.UTC())
	if err != nil {
		return fmt.Errorf("inserting task %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLiteTaskStore) Update(ctx context.Context, t models.Task) error {
	t.LastModified = touch(t.LastModified)
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, notes = ?, is_completed = ?, has_due_date = ?,
		       due_date = ?, has_time = ?, has_reminder = ?, priority = ?,
		       created_at = ?, last_modified = ?
		WHERE id = ?`,
		t.Title, t.Notes, t.IsCompleted, t.HasDueDate, nullableDue(t), t.HasTime,
		t.HasReminder, string(t.Priority), t.CreatedAt.UTC(), t.LastModified.UTC(), t.ID)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", t.ID, err)
	}
	return requireAffected(res, t.ID)
}

func (s *SQLiteTaskStore) Delete(ctx context.Context, t models.Task) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, t.ID)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", t.ID, err)
	}
	return requireAffected(res, t.ID)
}

func nullableDue(t models.Task) sql.NullTime {
	if !t.HasDueDate {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.DueDate.UTC(), Valid: true}
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{ID: id}
	}
	return nil
}

var _ core.TaskStore = (*SQLiteTaskStore)(nil)
