package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/desertthunder/moodlist/internal/corpus"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// LocalIndex is an in-memory flat index over the embedding artifacts.
//
// Vectors are L2-normalized once at insert, so cosine similarity reduces to an
// inner product over a linear scan. At corpus scale (thousands of chunks, not
// millions) the scan beats maintaining an ANN structure.
type LocalIndex struct {
	mu   sync.RWMutex
	dim  int
	rows []models.ChunkEmbedding
	pos  map[uint64]int
}

// NewLocalIndex creates an empty local index for vectors of the given
// dimension.
func NewLocalIndex(dim int) (*LocalIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", shared.ErrInvalidInput, dim)
	}
	return &LocalIndex{dim: dim, pos: make(map[uint64]int)}, nil
}

// OpenLocalIndex loads the artifact set at dir into a fresh index. The load
// fails hard on any manifest or count inconsistency.
func OpenLocalIndex(dir string) (*LocalIndex, *models.Manifest, error) {
	rows, manifest, err := corpus.LoadArtifacts(dir)
	if err != nil {
		return nil, nil, err
	}

	idx, err := NewLocalIndex(manifest.Dim)
	if err != nil {
		return nil, nil, err
	}
	if err := idx.Upsert(context.Background(), rows); err != nil {
		return nil, nil, err
	}

	if got := len(idx.rows); got != manifest.Count {
		return nil, nil, fmt.Errorf("%w: loaded %d rows, manifest says %d", shared.ErrConsistency, got, manifest.Count)
	}

	return idx, manifest, nil
}

// Upsert normalizes and stores rows, replacing any existing row with the same
// ID.
func (l *LocalIndex) Upsert(ctx context.Context, rows []models.ChunkEmbedding) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(row.Vector) != l.dim {
			return fmt.Errorf("%w: row %d has dim %d, expected %d", shared.ErrConsistency, row.ID, len(row.Vector), l.dim)
		}

		stored := row
		stored.Vector = normalize(row.Vector)

		if at, ok := l.pos[row.ID]; ok {
			l.rows[at] = stored
			continue
		}
		l.pos[row.ID] = len(l.rows)
		l.rows = append(l.rows, stored)
	}

	return nil
}

// SearchBatch scans the whole index once per query vector.
func (l *LocalIndex) SearchBatch(ctx context.Context, vectors [][]float32, topK int, filter *Filter) ([][]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	results := make([][]models.ScoredChunk, len(vectors))
	for qi, query := range vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(query) != l.dim {
			return nil, fmt.Errorf("%w: query has dim %d, expected %d", shared.ErrInvalidInput, len(query), l.dim)
		}

		normalized := normalize(query)

		type scored struct {
			id    uint64
			score float64
			meta  map[string]any
		}
		hits := make([]scored, 0, len(l.rows))
		for _, row := range l.rows {
			if !filter.matches(row.Meta) {
				continue
			}
			hits = append(hits, scored{id: row.ID, score: dot(normalized, row.Vector), meta: row.Meta})
		}

		sort.Slice(hits, func(i, j int) bool {
			if hits[i].score != hits[j].score {
				return hits[i].score > hits[j].score
			}
			return hits[i].id < hits[j].id
		})

		if len(hits) > topK {
			hits = hits[:topK]
		}

		out := make([]models.ScoredChunk, len(hits))
		for i, hit := range hits {
			out[i] = models.ScoredChunk{Score: hit.score, Payload: hit.meta}
		}
		results[qi] = out
	}

	return results, nil
}

// Count returns the number of stored rows.
func (l *LocalIndex) Count(ctx context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.rows)), nil
}

// normalize returns the unit-length copy of v. The zero vector stays zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return append([]float32(nil), v...)
	}

	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
