// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// playlistCommand handles playlist generation and export operations.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Generate mood-matched playlists from photos",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Analyze a photo and generate a playlist matching its mood",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "image",
						Aliases:  []string{"i"},
						Usage:    "Path to the photo to analyze",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Generate from the vibe alone, without corpus grounding",
					},
					&cli.BoolFlag{
						Name:  "remote",
						Usage: "Use the Qdrant index instead of local artifacts",
					},
					&cli.StringFlag{
						Name:  "artifacts",
						Usage: "Artifact directory for the local index (default: <corpus root>/artifacts)",
					},
					&cli.StringSliceFlag{
						Name:  "artist",
						Usage: "Restrict retrieval to these artists (repeatable)",
					},
					&cli.StringFlag{
						Name:  "export",
						Usage: "Write the playlist to this path after generation",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, markdown, txt)",
						Value:   "json",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON instead of rendered text",
					},
					&cli.BoolFlag{
						Name:  "no-save",
						Usage: "Skip recording the interaction in the database",
					},
				},
				Action: r.PlaylistGenerate,
			},
			{
				Name:  "export",
				Usage: "Export a previously generated playlist from the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Interaction ID to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, markdown, txt)",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (default: playlist.<format extension>)",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:  "history",
				Usage: "List generated playlists recorded in the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Filter by session ID",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON instead of rendered text",
					},
				},
				Action: r.PlaylistHistory,
			},
		},
	}
}

// corpusCommand handles the offline corpus build pipeline.
func corpusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "corpus",
		Usage: "Build the song knowledge corpus",
		Commands: []*cli.Command{
			{
				Name:  "digest",
				Usage: "Scrape and digest songs listed in a jsonl file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to jsonl file of {song, artist} lines",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent digestion workers (default from config)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Songs per second rate limit (default from config)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-digest songs that already have a summary",
					},
				},
				Action: r.CorpusDigest,
			},
			{
				Name:  "build",
				Usage: "Chunk and embed digested songs into an artifact set",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Artifact output directory (default: <corpus root>/artifacts)",
					},
				},
				Action: r.CorpusBuild,
			},
			{
				Name:  "sync",
				Usage: "Upsert built artifacts into the Qdrant collection",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Artifact directory to sync (default: <corpus root>/artifacts)",
					},
				},
				Action: r.CorpusSync,
			},
		},
	}
}

// searchCommand runs ad-hoc similarity searches against the corpus.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the corpus for chunks matching a mood description",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "top-k",
				Aliases: []string{"k"},
				Usage:   "Number of hits to return (default from config)",
			},
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Use the Qdrant index instead of local artifacts",
			},
			&cli.StringFlag{
				Name:  "artifacts",
				Usage: "Artifact directory for the local index (default: <corpus root>/artifacts)",
			},
			&cli.StringSliceFlag{
				Name:  "artist",
				Usage: "Restrict hits to these artists (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON instead of rendered text",
			},
		},
		Action: r.Search,
	}
}

// setupCommand handles setup operations for config and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}

// serveCommand starts the HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the playlist generation API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (default from config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default from config)",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Generate from the vibe alone, without corpus grounding",
			},
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Use the Qdrant index instead of local artifacts",
			},
		},
		Action: r.Serve,
	}
}
