package services

import (
	"context"

	"github.com/desertthunder/moodlist/internal/models"
)

// Generator invokes a generative backend with a prompt, an optional image, and a
// sampling temperature, returning the raw response text.
//
// Implementations do not retry; bounded retry is the retry engine's responsibility.
// Any backend failure (network, auth, rate limit) is propagated, not swallowed.
type Generator interface {
	// Generate issues a single request. When image is non-nil the request is
	// multimodal and the image stream position is restored after reading.
	Generate(ctx context.Context, prompt string, image *models.Image, temperature float64) (string, error)
}

// Embedder computes fixed-dimension embedding vectors for batches of texts,
// order-preserving: result[i] embeds texts[i].
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimensionality the backend produces.
	Dimension() int

	// Model returns the embedding model identifier, recorded in artifact manifests.
	Model() string
}

// Catalog resolves a generated {song, artist} pair against a music catalog,
// returning the canonical track with playable URI and cover art.
type Catalog interface {
	SearchTrack(ctx context.Context, song, artist string) (*models.Track, error)
}

// CommentSource fetches listener comments about a song for corpus digestion.
type CommentSource interface {
	Comments(ctx context.Context, song, artist string, maxComments int) ([]models.Comment, error)
}

// PageResult is one extracted web page from search enrichment.
type PageResult struct {
	URL   string
	Title string
	Text  string
}

// Searcher runs web searches and extracts page text for corpus enrichment.
type Searcher interface {
	// SearchAndFetch runs all queries concurrently, fetches the result pages
	// concurrently, and returns the extracted texts. Per-page failures are
	// skipped, never fatal.
	SearchAndFetch(ctx context.Context, queries []string) ([]PageResult, error)
}
