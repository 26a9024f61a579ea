// submodule sync contains the batch command actions
package main

import (
	"context"

	"github.com/desertthunder/subsync/internal/rating"
	"github.com/desertthunder/subsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ResolveIDs resolves matching library items to server ids and caches them.
func (r *Runner) ResolveIDs(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(cmd); err != nil {
		return err
	}

	items, err := r.items(cmd)
	if err != nil {
		return err
	}

	force := cmd.Bool("force")
	r.logger.Info("resolving server ids", "items", len(items), "force", force)

	return r.runBatch(cmd, "Resolving server ids", func(prog chan<- tasks.ProgressUpdate) (*tasks.BatchResult, error) {
		return r.engine.ResolveIDs(ctx, prog, items, force)
	})
}

// SyncRatings pushes transformed ratings for matching items to the server.
func (r *Runner) SyncRatings(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(cmd); err != nil {
		return err
	}

	items, err := r.items(cmd)
	if err != nil {
		return err
	}

	source := cmd.String("source")
	if source == "" {
		source = r.config.Sync.RatingSource
	}
	kindName := cmd.String("kind")
	if kindName == "" {
		kindName = r.config.Sync.RatingKind
	}
	kind := rating.ParseKind(kindName)

	r.logger.Info("syncing ratings", "items", len(items), "source", source, "kind", string(kind))

	return r.runBatch(cmd, "Syncing ratings", func(prog chan<- tasks.ProgressUpdate) (*tasks.BatchResult, error) {
		return r.engine.SyncRatings(ctx, prog, items, source, kind)
	})
}

// ReplayScrobbles submits play history events to the server as scrobbles.
func (r *Runner) ReplayScrobbles(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(cmd); err != nil {
		return err
	}

	events, err := tasks.LoadHistory(cmd.String("file"))
	if err != nil {
		return err
	}

	r.logger.Info("replaying play history", "events", len(events))

	return r.runBatch(cmd, "Replaying play history", func(prog chan<- tasks.ProgressUpdate) (*tasks.BatchResult, error) {
		return r.engine.ReplayHistory(ctx, prog, events, r.lib)
	})
}
