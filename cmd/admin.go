// submodule admin contains setup and server maintenance actions
package main

import (
	"context"
	"strings"

	"github.com/desertthunder/subsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a starter config file at the configured path.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	r.writePlain("Edit %s with your server URL and credentials.\n", path)
	return nil
}

// Scan asks the server to rescan its media folders.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(cmd); err != nil {
		return err
	}

	count, err := r.engine.Scan(ctx)
	if err != nil {
		return err
	}
	r.writePlain("Scan started; %d entries queued.\n", count)
	return nil
}

// Search runs a raw catalog search and prints the candidates. Useful for
// checking what the server returns before blaming the resolver.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(cmd); err != nil {
		return err
	}

	query := strings.Join(cmd.Args().Slice(), " ")
	if query == "" {
		return shared.ErrMissingArgument
	}

	result, err := r.catalog.Search(ctx, query, int(cmd.Int("limit")), 0)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Songs, true)
	}

	if len(result.Songs) == 0 {
		r.writePlain("No songs matched %q.\n", query)
		return nil
	}
	for _, song := range result.Songs {
		r.writePlain("%s\t%s - %s (%s)\n", song.ID, song.Artist, song.Title, song.Album)
	}
	return nil
}
