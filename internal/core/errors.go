package core

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching. Every typed error below unwraps to one
// of them.
var (
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
	ErrNotFound   = errors.New("task not found")
	ErrScheduling = errors.New("reminder scheduling failed")
)

// ErrReminderElapsed is returned by ReminderScheduler.Schedule when the fire
// time has already passed. Nothing is queued and any earlier registration is
// dropped. It is not a failure.
var ErrReminderElapsed = errors.New("reminder time already passed")

// ValidationError rejects input before any persistence is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid task: " + e.Reason
	}
	return fmt.Sprintf("invalid task: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a backend read or write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the backend cause.
func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// NotFoundError reports an update or delete against a record that no longer
// exists.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// SchedulingError reports a failed reminder operation. It never reverts the
// task mutation that triggered it.
type SchedulingError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("%s reminder for task %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *SchedulingError) Unwrap() []error { return []error{ErrScheduling, e.Err} }

// NewStorageError wraps err as a StorageError unless it already carries a
// domain classification.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// UserMessage renders err for display without leaking backend detail.
func UserMessage(err error) string {
	var ve *ValidationError
	var nf *NotFoundError
	var se *StorageError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &nf):
		return "The task no longer exists; the list was refreshed."
	case errors.As(err, &se):
		return "Tasks could not be " + storageVerb(se.Op) + ". Showing the last known list."
	case errors.Is(err, ErrScheduling):
		return "The reminder could not be updated."
	default:
		return err.Error()
	}
}

func storageVerb(op string) string {
	switch op {
	case "listing tasks":
		return "loaded"
	case "deleting task":
		return "deleted"
	default:
		return "saved"
	}
}
