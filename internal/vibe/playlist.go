package vibe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
)

// DefaultTemperature is the sampling temperature for playlist generation.
const DefaultTemperature = 0.9

// PlaylistGenerator produces playlists from a vibe analysis, either from the
// model's own knowledge or grounded in a retrieved candidate pool.
type PlaylistGenerator struct {
	engine    *Engine
	validator *Validator
	logger    *log.Logger
}

func NewPlaylistGenerator(gen services.Generator, logger *log.Logger) (*PlaylistGenerator, error) {
	validator, err := NewPlaylistValidator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PlaylistGenerator{
		engine:    NewEngine(gen, logger),
		validator: validator,
		logger:    logger,
	}, nil
}

// Generate builds a playlist from the vibe extraction alone.
func (g *PlaylistGenerator) Generate(ctx context.Context, v *models.VibeExtraction, opts CallOpts) (*models.Playlist, error) {
	return g.run(ctx, BuildPlaylistPrompt(v), opts)
}

// GenerateGrounded builds a playlist constrained to the retrieved candidate
// pool, one hit list per flattened query text.
func (g *PlaylistGenerator) GenerateGrounded(ctx context.Context, v *models.VibeExtraction, pool [][]models.ScoredChunk, opts CallOpts) (*models.Playlist, error) {
	return g.run(ctx, BuildPlaylistPromptRAG(v, pool), opts)
}

func (g *PlaylistGenerator) run(ctx context.Context, prompt string, opts CallOpts) (*models.Playlist, error) {
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}

	payload, err := g.engine.GenerateVerified(ctx, prompt, g.validator, opts)
	if err != nil {
		return nil, err
	}

	var playlist models.Playlist
	if err := json.Unmarshal(payload, &playlist); err != nil {
		return nil, fmt.Errorf("decoding playlist: %w", err)
	}

	g.logger.Debug("generated playlist", "name", playlist.Name, "tracks", len(playlist.Tracks))
	return &playlist, nil
}
