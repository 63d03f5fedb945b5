// Package index stores and searches chunk embeddings. Two implementations
// share one interface: a Qdrant collection over gRPC for deployments with a
// running vector database, and a local flat index loaded from the artifact set
// for everything else.
package index

import (
	"context"

	"github.com/desertthunder/moodlist/internal/models"
)

// DefaultTopK is the per-query hit budget when the caller does not override it.
const DefaultTopK = 5

// Filter restricts a search to chunks whose payload matches. A nil Filter or an
// empty field matches everything.
type Filter struct {
	// Artists matches chunks whose artist payload equals any listed value.
	Artists []string
}

func (f *Filter) empty() bool {
	return f == nil || len(f.Artists) == 0
}

// matches reports whether a chunk payload passes the filter.
func (f *Filter) matches(payload map[string]any) bool {
	if f.empty() {
		return true
	}
	artist, _ := payload[models.MetaArtist].(string)
	for _, want := range f.Artists {
		if artist == want {
			return true
		}
	}
	return false
}

// Index is a searchable store of chunk embeddings.
type Index interface {
	// Upsert writes rows idempotently; re-upserting an ID replaces it.
	Upsert(ctx context.Context, rows []models.ChunkEmbedding) error

	// SearchBatch runs one similarity search per query vector and returns the
	// hit lists in query order, each sorted by descending score with ties
	// broken by ascending chunk ID.
	SearchBatch(ctx context.Context, vectors [][]float32, topK int, filter *Filter) ([][]models.ScoredChunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (uint64, error)
}
