package vibe

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
)

// DefaultMaxAttempts bounds generate-and-verify retries when the caller does not
// override it.
const DefaultMaxAttempts = 3

// CallOpts configures a single generate-and-verify call.
type CallOpts struct {
	Temperature float64       // Sampling temperature, held constant across attempts
	MaxAttempts int           // Attempt budget; DefaultMaxAttempts when <= 0
	Timeout     time.Duration // Per-attempt deadline; unbounded when <= 0
	Image       *models.Image // Optional image for multimodal calls
}

// Engine composes a [services.Generator] with a [Validator] into an at-most-N
// attempt generate-and-verify primitive.
//
// Attempts are strictly sequential; a slow backend is bounded by the context
// deadline, never raced with a speculative parallel attempt, since every attempt
// costs quota.
type Engine struct {
	gen    services.Generator
	logger *log.Logger
}

// NewEngine creates an Engine around the given generation client.
func NewEngine(gen services.Generator, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{gen: gen, logger: logger}
}

// GenerateVerified invokes the generator up to opts.MaxAttempts times, validating
// each response, and returns the first validated JSON payload.
//
// An invocation failure on the final attempt yields an error wrapping
// [shared.ErrAttemptsExhausted] and the last backend error. A validation failure
// on the final attempt yields the validator's typed error annotated with the
// attempt count.
func (e *Engine) GenerateVerified(ctx context.Context, prompt string, validator *Validator, opts CallOpts) ([]byte, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if opts.Image != nil && opts.Image.Reader != nil {
			if _, err := opts.Image.Reader.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("failed to rewind image: %w", err)
			}
		}

		raw, err := e.generate(ctx, prompt, opts)
		if err != nil {
			lastErr = err
			e.logger.Warn("generation attempt failed", "attempt", attempt, "max", maxAttempts, "err", err)
			if attempt == maxAttempts {
				return nil, fmt.Errorf("%w: %d attempts, last: %v", shared.ErrAttemptsExhausted, maxAttempts, lastErr)
			}
			continue
		}

		payload, err := validator.Verify(raw)
		if err == nil {
			return payload, nil
		}

		lastErr = err
		e.logger.Warn("generation output rejected", "attempt", attempt, "max", maxAttempts, "reason", err)
		if attempt == maxAttempts {
			return nil, fmt.Errorf("invalid structured output after %d attempts: %w", maxAttempts, lastErr)
		}
	}

	// Unreachable: the loop always returns on its final attempt.
	return nil, fmt.Errorf("%w: no attempts executed", shared.ErrAttemptsExhausted)
}

// generate issues one backend call, bounded by opts.Timeout when set.
func (e *Engine) generate(ctx context.Context, prompt string, opts CallOpts) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return e.gen.Generate(ctx, prompt, opts.Image, opts.Temperature)
}
