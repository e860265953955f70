package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// taskRecord is the GORM row model for a task.
type taskRecord struct {
	ID           string `gorm:"primaryKey"`
	Title        string `gorm:"not null"`
	Notes        string
	IsCompleted  bool       `gorm:"not null;default:false"`
	HasDueDate   bool       `gorm:"not null;default:false"`
	DueDate      *time.Time `gorm:"index"`
	HasTime      bool       `gorm:"not null;default:false"`
	HasReminder  bool       `gorm:"not null;default:false"`
	Priority     string     `gorm:"not null;default:medium"`
	CreatedAt    time.Time
	LastModified time.Time
}

func (taskRecord) TableName() string { return "tasks" }

func recordFromTask(t models.Task) taskRecord {
	r := taskRecord{
		ID:           t.ID,
		Title:        t.Title,
		Notes:        t.Notes,
		IsCompleted:  t.IsCompleted,
		HasDueDate:   t.HasDueDate,
		HasTime:      t.HasTime,
		HasReminder:  t.HasReminder,
		Priority:     string(t.Priority),
		CreatedAt:    t.CreatedAt,
		LastModified: t.LastModified,
	}
	if t.HasDueDate {
		due := t.DueDate
		r.DueDate = &due
	}
	return r
}

func (r taskRecord) toTask() models.Task {
	t := models.Task{
		ID:           r.ID,
		Title:        r.Title,
		Notes:        r.Notes,
		IsCompleted:  r.IsCompleted,
		HasDueDate:   r.HasDueDate,
		HasTime:      r.HasTime,
		HasReminder:  r.HasReminder,
		Priority:     models.Priority(r.Priority),
		CreatedAt:    r.CreatedAt.Local(),
		LastModified: r.LastModified.Local(),
	}
	if r.DueDate != nil {
		t.DueDate = r.DueDate.Local()
	}
	return t
}

// gormTaskStore implements TaskStore using GORM.
type gormTaskStore struct {
	db *gorm.DB
}

// OpenPostgres connects to PostgreSQL with GORM's default logger silenced.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return db, nil
}

// NewGormTaskStore creates a GORM-based TaskStore and migrates the tasks
// table.
func NewGormTaskStore(db *gorm.DB) (core.TaskStore, error) {
	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return nil, fmt.Errorf("migrating tasks table: %w", err)
	}
	return &gormTaskStore{db: db}, nil
}

func (s *gormTaskStore) List(ctx context.Context) ([]models.Task, error) {
	var records []taskRecord
	if err := s.db.WithContext(ctx).
		Order("has_due_date DESC").Order("due_date").Order("created_at").Order("id").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, r.toTask())
	}
	return tasks, nil
}

func (s *gormTaskStore) Create(ctx context.Context, t models.Task) error {
	if err := checkWritable(t); err != nil {
		return err
	}
	r := recordFromTask(t)
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("inserting task %s: %w", t.ID, err)
	}
	return nil
}

func (s *gormTaskStore) Update(ctx context.Context, t models.Task) error {
	t.LastModified = touch(t.LastModified)
	r := recordFromTask(t)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing taskRecord
		if err := tx.Select("id").Where("id = ?", t.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.NotFoundError{ID: t.ID}
			}
			return err
		}
		return tx.Save(&r).Error
	})
	if err != nil {
		return fmt.Errorf("updating task %s: %w", t.ID, err)
	}
	return nil
}

func (s *gormTaskStore) Delete(ctx context.Context, t models.Task) error {
	res := s.db.WithContext(ctx).Delete(&taskRecord{}, "id = ?", t.ID)
	if res.Error != nil {
		return fmt.Errorf("deleting task %s: %w", t.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return &core.NotFoundError{ID: t.ID}
	}
	return nil
}
