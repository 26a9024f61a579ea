package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/subsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	app := &cli.Command{
		Name:     "subsync",
		Usage:    "Sync a beets library with a Subsonic server",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	// In-flight items finish on interrupt; only new work stops.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrAuthFailed) {
			logger.Fatalf("authentication failed, check [subsonic] credentials: %v", err)
		}
		logger.Fatalf("application error: %v", err)
	}
}
