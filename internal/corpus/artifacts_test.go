package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// hashEmbedder produces deterministic unit-ish vectors from text bytes.
type hashEmbedder struct {
	dim     int
	batches [][]string
}

func (e *hashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.batches = append(e.batches, texts)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dim)
		for j := range vec {
			vec[j] = float32((len(text)+i+j)%7) + 0.5
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *hashEmbedder) Dimension() int { return e.dim }
func (e *hashEmbedder) Model() string  { return "test-embedding-model" }

func seedDigestedCorpus(t *testing.T, layout Layout, songs ...models.SongRef) {
	t.Helper()
	for _, ref := range songs {
		if err := layout.UpdateMeta(ref, []string{"vid_" + ref.Song}); err != nil {
			t.Fatalf("seeding meta: %v", err)
		}
		summary := "# Vibe\n## Wistful\nA digested summary for " + ref.Song + "."
		if err := layout.WriteDigestion(ref, summary, &models.DigestionRecord{SongName: ref.Song, Artist: ref.Artist}); err != nil {
			t.Fatalf("seeding digestion: %v", err)
		}
	}
}

func TestArtifactBuilder(t *testing.T) {
	newBuilder := func(t *testing.T, layout Layout, batchSize int) (*ArtifactBuilder, *hashEmbedder) {
		t.Helper()
		embedder := &hashEmbedder{dim: 4}
		splitter := newRuneSplitter(t, 200, 20)
		builder, err := NewArtifactBuilder(embedder, splitter, layout, batchSize, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return builder, embedder
	}

	t.Run("CollectChunks Sorted By ID", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		seedDigestedCorpus(t, layout,
			models.SongRef{Song: "Holocene", Artist: "Bon Iver"},
			models.SongRef{Song: "Re: Stacks", Artist: "Bon Iver"},
		)

		builder, _ := newBuilder(t, layout, 64)
		rows, err := builder.CollectChunks()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(rows) == 0 {
			t.Fatal("expected chunks")
		}

		if !sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID }) {
			t.Error("expected rows sorted by ID")
		}
		for _, row := range rows {
			if row.Meta[models.MetaContent] == "" {
				t.Error("expected chunk content in payload")
			}
			if want := ChunkID(row.Meta[models.MetaSongName].(string), row.Meta[models.MetaContent].(string)); want != row.ID {
				t.Errorf("row ID %d does not match derived ID %d", row.ID, want)
			}
		}
	})

	t.Run("Build And Load Roundtrip", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		seedDigestedCorpus(t, layout, models.SongRef{Song: "Holocene", Artist: "Bon Iver"})

		outDir := filepath.Join(t.TempDir(), "artifacts")
		builder, _ := newBuilder(t, layout, 64)

		manifest, err := builder.Build(context.Background(), outDir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if manifest.Model != "test-embedding-model" || manifest.Dim != 4 {
			t.Errorf("unexpected manifest %+v", manifest)
		}
		if len(manifest.Files) != 2 {
			t.Errorf("expected 2 file stats, got %+v", manifest.Files)
		}

		rows, loaded, err := LoadArtifacts(outDir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if loaded.Count != manifest.Count || len(rows) != manifest.Count {
			t.Errorf("expected %d rows, got %d", manifest.Count, len(rows))
		}
		for _, row := range rows {
			if len(row.Vector) != 4 {
				t.Errorf("row %d has vector dim %d", row.ID, len(row.Vector))
			}
			if row.Meta[models.MetaSongName] != "Holocene" {
				t.Errorf("unexpected payload %+v", row.Meta)
			}
		}
	})

	t.Run("Respects Batch Size", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		seedDigestedCorpus(t, layout,
			models.SongRef{Song: "One", Artist: "A"},
			models.SongRef{Song: "Two", Artist: "A"},
			models.SongRef{Song: "Three", Artist: "A"},
		)

		builder, embedder := newBuilder(t, layout, 2)
		if _, err := builder.Build(context.Background(), filepath.Join(t.TempDir(), "artifacts")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for i, batch := range embedder.batches {
			if len(batch) > 2 {
				t.Errorf("batch %d exceeds size: %d", i, len(batch))
			}
		}
	})

	t.Run("Empty Corpus", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		builder, _ := newBuilder(t, layout, 64)

		_, err := builder.Build(context.Background(), filepath.Join(t.TempDir(), "artifacts"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestLoadArtifacts(t *testing.T) {
	buildArtifacts := func(t *testing.T) string {
		t.Helper()
		layout := NewLayout(t.TempDir())
		seedDigestedCorpus(t, layout, models.SongRef{Song: "Holocene", Artist: "Bon Iver"})

		embedder := &hashEmbedder{dim: 4}
		splitter := newRuneSplitter(t, 200, 20)
		builder, err := NewArtifactBuilder(embedder, splitter, layout, 64, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		outDir := filepath.Join(t.TempDir(), "artifacts")
		if _, err := builder.Build(context.Background(), outDir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return outDir
	}

	t.Run("Detects Tampered Vectors", func(t *testing.T) {
		dir := buildArtifacts(t)

		path := filepath.Join(dir, VectorsFileName)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading vectors: %v", err)
		}
		data[0] ^= 0xFF
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("writing vectors: %v", err)
		}

		_, _, err = LoadArtifacts(dir)
		if !errors.Is(err, shared.ErrConsistency) {
			t.Errorf("expected ErrConsistency, got %v", err)
		}
	})

	t.Run("Detects Row Count Drift", func(t *testing.T) {
		dir := buildArtifacts(t)

		// Rewrite the manifest with an inflated count but correct checksums.
		manifestPath := filepath.Join(dir, ManifestFileName)
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			t.Fatalf("reading manifest: %v", err)
		}

		var manifest models.Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			t.Fatalf("decoding manifest: %v", err)
		}
		manifest.Count++
		delete(manifest.Files, ChunksFileName)
		delete(manifest.Files, VectorsFileName)

		out, err := json.Marshal(manifest)
		if err != nil {
			t.Fatalf("encoding manifest: %v", err)
		}
		if err := os.WriteFile(manifestPath, out, 0o644); err != nil {
			t.Fatalf("writing manifest: %v", err)
		}

		_, _, err = LoadArtifacts(dir)
		if !errors.Is(err, shared.ErrConsistency) {
			t.Errorf("expected ErrConsistency, got %v", err)
		}
	})

	t.Run("Missing Manifest", func(t *testing.T) {
		_, _, err := LoadArtifacts(t.TempDir())
		if err == nil {
			t.Error("expected error for missing manifest")
		}
	})
}
