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

// Extractor turns an image into a validated vibe analysis.
type Extractor struct {
	engine    *Engine
	validator *Validator
	logger    *log.Logger
}

func NewExtractor(gen services.Generator, logger *log.Logger) (*Extractor, error) {
	validator, err := NewVibeExtractionValidator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Extractor{
		engine:    NewEngine(gen, logger),
		validator: validator,
		logger:    logger,
	}, nil
}

// ExtractVibe describes the image, imagines its context, and distills its vibes.
// The result has passed schema validation before it is unmarshalled.
func (e *Extractor) ExtractVibe(ctx context.Context, img *models.Image, opts CallOpts) (*models.VibeExtraction, error) {
	opts.Image = img
	payload, err := e.engine.GenerateVerified(ctx, VibeExtractionPrompt, e.validator, opts)
	if err != nil {
		return nil, err
	}

	var extraction models.VibeExtraction
	if err := json.Unmarshal(payload, &extraction); err != nil {
		return nil, fmt.Errorf("decoding vibe extraction: %w", err)
	}

	e.logger.Debug("extracted vibes", "count", len(extraction.Vibes))
	return &extraction, nil
}
