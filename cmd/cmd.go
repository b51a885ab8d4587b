// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func genresFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "genres",
		Aliases: []string{"g"},
		Usage:   "Path to the genre map (json, yaml or toml). Defaults to sync.genre_map",
	}
}

// setupCommand handles first-run setup of the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the run history database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// spotifyCommand handles Spotify account operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "playlists",
				Usage: "List account playlists, marking the genre playlists",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SpotifyPlaylists,
			},
		},
	}
}

// genresCommand handles genre map operations
func genresCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "genres",
		Usage: "Genre map operations",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write an example genre map",
				Flags:  []cli.Flag{genresFlag()},
				Action: r.GenresInit,
			},
			{
				Name:   "check",
				Usage:  "Validate a genre map and print it in declaration order",
				Flags:  []cli.Flag{genresFlag()},
				Action: r.GenresCheck,
			},
			{
				Name:      "classify",
				Usage:     "Classify genre tags and print per-playlist scores",
				ArgsUsage: "<tag> [tag...]",
				Flags:     []cli.Flag{genresFlag()},
				Action:    r.GenresClassify,
			},
		},
	}
}

// syncCommand handles sync runs
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sort liked songs into genre playlists",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a full sync",
				Flags: []cli.Flag{
					genresFlag(),
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"n"},
						Usage:   "Classify and compare without adding tracks",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Report format: text, json, csv or markdown",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the report to a file instead of stdout",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Parallel artist and playlist fetches. Defaults to sync.concurrency",
					},
				},
				Action: r.SyncRun,
			},
		},
	}
}

// historyCommand lists recorded runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of runs to show",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Run a sync in the interactive terminal UI",
		Flags: []cli.Flag{
			genresFlag(),
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Start with dry run selected",
			},
		},
		Action: r.TUI,
	}
}
