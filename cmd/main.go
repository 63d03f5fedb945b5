package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	ctx := context.Background()

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	opts := RunnerOpts{
		Config: config,
		Logger: logger,
	}

	if config.Credentials.OpenAI.APIKey != "" {
		openaiOpts := []services.OpenAIOption{
			services.WithGenerationModel(config.Credentials.OpenAI.Model),
			services.WithEmbeddingModel(config.Credentials.OpenAI.EmbeddingModel, config.Retrieval.Dimension),
			services.WithMaxTokens(int64(config.Generation.MaxTokens)),
		}
		if svc, err := services.NewOpenAIService(config.Credentials.OpenAI.APIKey, openaiOpts...); err == nil {
			opts.Generator = svc
			opts.Embedder = svc
		}
	}

	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(ctx, config.Credentials.Spotify.ClientID, config.Credentials.Spotify.ClientSecret); err == nil {
			opts.Catalog = svc
		}
	}

	if config.Credentials.YouTube.APIKey != "" {
		if svc, err := services.NewYouTubeService(config.Credentials.YouTube.APIKey); err == nil {
			opts.Comments = svc
		}
	}

	if config.Search.Endpoint != "" {
		if svc, err := services.NewSearxService(config.Search.Endpoint, config.Search.MaxResults, logger); err == nil {
			opts.Searcher = svc
		}
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "moodlist",
		Usage:    "Generate mood-matched playlists from photos",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
