// Package scheduler implements reminder scheduling on top of a
// NotificationQueue: a permission gate that decides whether reminders may be
// sent at all, the ReminderScheduler the task service talks to, and the
// dispatcher loop that delivers due notifications.
package scheduler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// PermissionGate decides whether reminders may be delivered.
type PermissionGate interface {
	// Request asks for permission, blocking until an answer is known.
	Request(ctx context.Context) (bool, error)
	// Granted reports the last known answer without asking. It is false
	// while no answer exists.
	Granted() bool
}

type staticGate struct {
	granted bool
}

// NewStaticGate returns a gate with a fixed answer, used when permission is
// configured as granted or denied.
func NewStaticGate(granted bool) PermissionGate {
	return staticGate{granted: granted}
}

func (g staticGate) Request(context.Context) (bool, error) { return g.granted, nil }
func (g staticGate) Granted() bool                         { return g.granted }

// permissionRecord is the persisted answer to the permission prompt.
type permissionRecord struct {
	Granted   bool      `yaml:"granted"`
	DecidedAt time.Time `yaml:"decided_at"`
}

// promptGate asks once on a terminal and remembers the answer in a YAML file.
type promptGate struct {
	in        io.Reader
	out       io.Writer
	statePath string

	mu      sync.Mutex
	decided bool
	granted bool
}

// NewPromptGate creates a gate that asks the user on in/out the first time
// permission is requested and persists the decision at statePath. A decision
// already on disk is reused without prompting.
func NewPromptGate(in io.Reader, out io.Writer, statePath string) PermissionGate {
	g := &promptGate{in: in, out: out, statePath: statePath}
	if rec, err := g.load(); err == nil {
		g.decided = true
		g.granted = rec.Granted
	}
	return g
}

// Granted re-reads the state file while undecided, so a long-running process
// sees a decision made later by `rwave permission request`.
func (g *promptGate) Granted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.decided {
		if rec, err := g.load(); err == nil {
			g.decided, g.granted = true, rec.Granted
		}
	}
	return g.decided && g.granted
}

func (g *promptGate) Request(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.decided {
		granted := g.granted
		g.mu.Unlock()
		return granted, nil
	}
	g.mu.Unlock()

	answer := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		fmt.Fprint(g.out, "Allow ReminderWave to send task reminders? [y/N] ")
		line, err := bufio.NewReader(g.in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			errc <- err
			return
		}
		answer <- line
	}()

	var line string
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errc:
		return false, fmt.Errorf("reading permission answer: %w", err)
	case line = <-answer:
	}

	granted := parseYes(line)
	g.mu.Lock()
	g.decided, g.granted = true, granted
	g.mu.Unlock()

	if err := g.save(permissionRecord{Granted: granted, DecidedAt: time.Now()}); err != nil {
		return granted, fmt.Errorf("saving permission decision: %w", err)
	}
	return granted, nil
}

func parseYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

func (g *promptGate) load() (permissionRecord, error) {
	var rec permissionRecord
	data, err := os.ReadFile(g.statePath)
	if err != nil {
		return rec, err
	}
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func (g *promptGate) save(rec permissionRecord) error {
	if err := os.MkdirAll(filepath.Dir(g.statePath), 0o750); err != nil {
		return err
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(g.statePath, data, 0o600)
}

// ResetPermission removes a persisted prompt decision so the next request
// asks again.
func ResetPermission(statePath string) error {
	if err := os.Remove(statePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("resetting permission: %w", err)
	}
	return nil
}
