package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	app "github.com/valter-silva-au/reminderwave/internal"
	"github.com/valter-silva-au/reminderwave/internal/cli"
	"github.com/valter-silva-au/reminderwave/internal/core"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.SetVersionInfo(version, commit, date)
	basePath := core.ResolveBasePath()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewAppWithOptions(ctx, basePath, app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing rwave: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := cli.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
