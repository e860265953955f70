package core

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

func TestGenerateTaskID_IsUUID(t *testing.T) {
	gen := NewTaskIDGenerator()

	id, err := gen.GenerateTaskID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("expected a UUID, got %q: %v", id, err)
	}
	if parsed.Version() != 4 {
		t.Errorf("expected version 4 UUID, got %d", parsed.Version())
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("3f2a9c1e-8b7d-4e6f-a5c4-1d2e3f4a5b6c"); got != "3f2a9c1e" {
		t.Errorf("ShortID = %q", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID of short id = %q", got)
	}
}

func TestResolveTaskRef(t *testing.T) {
	tasks := []models.Task{
		{ID: "3f2a9c1e-0000-4000-8000-000000000001", Title: "one"},
		{ID: "3f2b0000-0000-4000-8000-000000000002", Title: "two"},
		{ID: "abc", Title: "exact"},
		{ID: "abcdef", Title: "longer"},
	}

	tests := []struct {
		ref     string
		want    string
		wantErr error
	}{
		{"3f2a", "one", nil},
		{"3F2B", "two", nil},
		{"abc", "exact", nil},
		{"abcd", "longer", nil},
		{"3f2", "", ErrValidation},
		{"ffff", "", ErrNotFound},
		{"  ", "", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ResolveTaskRef(tasks, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Title != tt.want {
				t.Errorf("resolved %q to %q, want %q", tt.ref, got.Title, tt.want)
			}
		})
	}
}
