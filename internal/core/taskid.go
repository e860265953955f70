package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// TaskIDGenerator defines the interface for generating unique task IDs.
type TaskIDGenerator interface {
	GenerateTaskID() (string, error)
}

// uuidTaskIDGenerator implements TaskIDGenerator with random (v4) UUIDs.
type uuidTaskIDGenerator struct{}

// NewTaskIDGenerator creates a TaskIDGenerator producing opaque UUID strings.
func NewTaskIDGenerator() TaskIDGenerator {
	return uuidTaskIDGenerator{}
}

// GenerateTaskID returns a new random UUID in its canonical string form.
func (uuidTaskIDGenerator) GenerateTaskID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating task id: %w", err)
	}
	return id.String(), nil
}

// ShortID is the display form of a task ID.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// ResolveTaskRef finds the task whose ID equals ref or, failing that, the
// single task whose ID starts with it. An ambiguous prefix is a validation
// error; no match is a NotFoundError.
func ResolveTaskRef(tasks []models.Task, ref string) (models.Task, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return models.Task{}, &ValidationError{Field: "id", Reason: "must not be empty"}
	}

	var matches []models.Task
	for _, t := range tasks {
		if t.ID == ref {
			return t, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return models.Task{}, &NotFoundError{ID: ref}
	case 1:
		return matches[0], nil
	default:
		return models.Task{}, &ValidationError{Field: "id", Reason: fmt.Sprintf("prefix %q matches %d tasks", ref, len(matches))}
	}
}
