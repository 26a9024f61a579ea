// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// batchFlags are shared by every command that runs a batch.
func batchFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the full batch result as JSON",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a run report (.json, .csv, or .md)",
		},
		&cli.BoolFlag{
			Name:  "ui",
			Usage: "Show interactive progress view",
		},
	}
}

// setupCommand writes a starter configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a starter config.toml",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// idsCommand resolves and caches server ids for library items.
func idsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "ids",
		Usage:     "Resolve and cache server ids for library items",
		ArgsUsage: "[query terms, e.g. artist:radiohead]",
		Flags: append(batchFlags(),
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Re-resolve items that already have a cached id",
			},
		),
		Action: r.ResolveIDs,
	}
}

// ratingsCommand pushes local ratings to the server.
func ratingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "ratings",
		Usage:     "Sync item ratings to the server",
		ArgsUsage: "[query terms]",
		Flags: append(batchFlags(),
			&cli.StringFlag{
				Name:  "source",
				Usage: "Flexible attribute holding the rating (default from config)",
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Transform: tenPointHalved, percentagePopularity, or direct",
			},
		),
		Action: r.SyncRatings,
	}
}

// scrobblesCommand replays play history as scrobbles.
func scrobblesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scrobbles",
		Usage: "Replay play history as scrobbles (reruns resubmit the same events)",
		Flags: append(batchFlags(),
			&cli.StringFlag{
				Name:     "file",
				Usage:    "JSON file of play events",
				Required: true,
			},
		),
		Action: r.ReplayScrobbles,
	}
}

// scanCommand triggers a remote library scan.
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "scan",
		Usage:  "Trigger a media scan on the server",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Scan,
	}
}

// searchCommand runs a raw catalog search for debugging.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the server catalog directly",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of songs to return",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}
