package index

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
)

// Retriever matches a vibe extraction against the corpus: one query per
// flattened vibe text, all embedded in a single request and searched as one
// batch.
type Retriever struct {
	index    Index
	embedder services.Embedder
	topK     int
	logger   *log.Logger
}

// NewRetriever creates a Retriever. topK <= 0 falls back to [DefaultTopK].
func NewRetriever(idx Index, embedder services.Embedder, topK int, logger *log.Logger) (*Retriever, error) {
	if idx == nil || embedder == nil {
		return nil, fmt.Errorf("%w: retriever needs an index and an embedder", shared.ErrMissingConfig)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Retriever{index: idx, embedder: embedder, topK: topK, logger: logger}, nil
}

// RetrieveForVibe retrieves the candidate pool for a vibe extraction. The
// result holds one hit list per flattened text: description, imagination, then
// each vibe, in that order.
func (r *Retriever) RetrieveForVibe(ctx context.Context, v *models.VibeExtraction, filter *Filter) ([][]models.ScoredChunk, error) {
	texts := v.Flatten()

	vectors, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding vibe queries: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %d vectors for %d queries", shared.ErrEmbeddingFailed, len(vectors), len(texts))
	}

	pool, err := r.index.SearchBatch(ctx, vectors, r.topK, filter)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, hits := range pool {
		total += len(hits)
	}
	r.logger.Debug("retrieved candidate pool", "queries", len(texts), "hits", total)

	return pool, nil
}
