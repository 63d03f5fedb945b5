package tasks

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/moodlist/internal/corpus"
	"github.com/desertthunder/moodlist/internal/index"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// constGenerator returns the same output for every call. Safe for concurrent
// use, unlike scriptedGenerator.
type constGenerator struct {
	output string
	mu     sync.Mutex
	calls  int
}

func (g *constGenerator) Generate(ctx context.Context, prompt string, image *models.Image, temperature float64) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.output, nil
}

// stubCommentSource serves canned comments, failing for one named song.
type stubCommentSource struct {
	failSong string
}

func (s *stubCommentSource) Comments(ctx context.Context, song, artist string, maxComments int) ([]models.Comment, error) {
	if song == s.failSong {
		return nil, shared.ErrNoComments
	}
	return []models.Comment{
		{Song: song, Artist: artist, VideoID: "vid1", Text: "this song carried me through a hard year"},
		{Song: song, Artist: artist, VideoID: "vid2", Text: "the bridge still gives me chills"},
	}, nil
}

const testSummary = `## Vibe
Wistful and warm, like the last hour of a summer evening.

## Activities
Long drives, late conversations.

## Summarization
Listeners return to this song for comfort and nostalgia.
`

func sampleRefs() []models.SongRef {
	return []models.SongRef{
		{Song: "Nightcall", Artist: "Kavinsky"},
		{Song: "Midnight City", Artist: "M83"},
		{Song: "Weightless", Artist: "Marconi Union"},
	}
}

func newBuildEngine(t *testing.T, layout corpus.Layout, comments *stubCommentSource) *BuildEngine {
	t.Helper()

	digester, err := corpus.NewDigester(corpus.DigesterConfig{
		Generator:     &constGenerator{output: testSummary},
		CommentSource: comments,
		Layout:        layout,
		Model:         "test-model",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return NewBuildEngine(digester, nil, layout, nil)
}

func readManifestLines(t *testing.T, path string) []processedSongLine {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected manifest at %s, got %v", path, err)
	}
	defer f.Close()

	var lines []processedSongLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line processedSongLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("expected valid manifest line, got %v", err)
		}
		lines = append(lines, line)
	}
	return lines
}

func TestReadSongRefs(t *testing.T) {
	t.Run("Parses Valid Lines", func(t *testing.T) {
		input := `{"song": "Nightcall", "artist": "Kavinsky"}

{"song": "Midnight City", "artist": "M83"}
`
		refs, err := ReadSongRefs(strings.NewReader(input))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(refs) != 2 {
			t.Fatalf("expected 2 refs, got %d", len(refs))
		}
		if refs[1].Artist != "M83" {
			t.Errorf("expected M83, got %q", refs[1].Artist)
		}
	})

	t.Run("Rejects Malformed JSON", func(t *testing.T) {
		_, err := ReadSongRefs(strings.NewReader("not json\n"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Rejects Missing Fields", func(t *testing.T) {
		_, err := ReadSongRefs(strings.NewReader(`{"song": "Nightcall"}` + "\n"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestBuildEngineDigestAll(t *testing.T) {
	t.Run("Digests All Songs", func(t *testing.T) {
		layout := corpus.NewLayout(t.TempDir())
		engine := newBuildEngine(t, layout, &stubCommentSource{})
		refs := sampleRefs()

		progress := make(chan ProgressUpdate, 16)
		result, err := engine.DigestAll(context.Background(), progress, refs, DigestOpts{NumWorkers: 2, RateLimit: 1000})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Digested != 3 || result.Failed != 0 || result.Skipped != 0 {
			t.Fatalf("expected 3 digested, got %+v", result)
		}

		for _, ref := range refs {
			if !layout.HasDigestion(ref) {
				t.Errorf("expected digestion for %s - %s", ref.Artist, ref.Song)
			}
		}

		lines := readManifestLines(t, result.ManifestPath)
		if len(lines) != 3 {
			t.Fatalf("expected 3 manifest lines, got %d", len(lines))
		}
		for _, line := range lines {
			if line.Status != "digested" {
				t.Errorf("expected digested status, got %q for %s", line.Status, line.Song)
			}
		}

		update := <-progress
		if update.Phase != DigestSong {
			t.Errorf("expected digest_song phase, got %s", update.Phase)
		}
	})

	t.Run("Skips Already Digested", func(t *testing.T) {
		layout := corpus.NewLayout(t.TempDir())
		engine := newBuildEngine(t, layout, &stubCommentSource{})
		refs := sampleRefs()

		if _, err := engine.DigestAll(context.Background(), nil, refs[:1], DigestOpts{}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result, err := engine.DigestAll(context.Background(), nil, refs, DigestOpts{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Skipped != 1 || result.Digested != 2 {
			t.Fatalf("expected 1 skipped and 2 digested, got %+v", result)
		}
	})

	t.Run("Force Redigests Existing Songs", func(t *testing.T) {
		layout := corpus.NewLayout(t.TempDir())
		engine := newBuildEngine(t, layout, &stubCommentSource{})
		refs := sampleRefs()[:1]

		if _, err := engine.DigestAll(context.Background(), nil, refs, DigestOpts{}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result, err := engine.DigestAll(context.Background(), nil, refs, DigestOpts{Force: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Digested != 1 || result.Skipped != 0 {
			t.Fatalf("expected forced redigest, got %+v", result)
		}
	})

	t.Run("Records Failures Without Aborting", func(t *testing.T) {
		layout := corpus.NewLayout(t.TempDir())
		engine := newBuildEngine(t, layout, &stubCommentSource{failSong: "Midnight City"})
		refs := sampleRefs()

		result, err := engine.DigestAll(context.Background(), nil, refs, DigestOpts{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Digested != 2 || result.Failed != 1 {
			t.Fatalf("expected 2 digested and 1 failed, got %+v", result)
		}

		var failed *processedSongLine
		for _, line := range readManifestLines(t, result.ManifestPath) {
			if line.Status == "failed" {
				l := line
				failed = &l
			}
		}
		if failed == nil {
			t.Fatal("expected a failed manifest line")
		}
		if failed.Song != "Midnight City" || failed.Error == "" {
			t.Errorf("expected failure details, got %+v", failed)
		}
	})

	t.Run("Digester Not Initialized", func(t *testing.T) {
		engine := NewBuildEngine(nil, nil, corpus.NewLayout(t.TempDir()), nil)

		_, err := engine.DigestAll(context.Background(), nil, sampleRefs(), DigestOpts{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func seedDigested(t *testing.T, layout corpus.Layout, refs []models.SongRef) {
	t.Helper()

	for i, ref := range refs {
		if err := layout.UpdateMeta(ref, []string{fmt.Sprintf("vid%d", i)}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		record := &models.DigestionRecord{SongName: ref.Song, Artist: ref.Artist, Model: "test-model"}
		if err := layout.WriteDigestion(ref, testSummary, record); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
}

func TestBuildEngineArtifacts(t *testing.T) {
	newBuilder := func(t *testing.T, layout corpus.Layout) *corpus.ArtifactBuilder {
		t.Helper()
		splitter, err := corpus.NewSplitter(60, 10, corpus.RuneLen)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		builder, err := corpus.NewArtifactBuilder(&constEmbedder{dim: 4}, splitter, layout, 0, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return builder
	}

	t.Run("Builds Artifacts And Syncs Index", func(t *testing.T) {
		layout := corpus.NewLayout(t.TempDir())
		seedDigested(t, layout, sampleRefs())

		engine := NewBuildEngine(nil, newBuilder(t, layout), layout, nil)
		outDir := t.TempDir()

		manifest, err := engine.BuildArtifacts(context.Background(), nil, outDir)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if manifest.Count == 0 {
			t.Fatal("expected chunks in the manifest")
		}

		local, err := index.NewLocalIndex(4)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		count, err := engine.SyncIndex(context.Background(), nil, outDir, local)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != uint64(manifest.Count) {
			t.Errorf("expected %d points, got %d", manifest.Count, count)
		}
	})

	t.Run("Builder Not Initialized", func(t *testing.T) {
		engine := NewBuildEngine(nil, nil, corpus.NewLayout(t.TempDir()), nil)

		_, err := engine.BuildArtifacts(context.Background(), nil, t.TempDir())
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Index Not Initialized", func(t *testing.T) {
		engine := NewBuildEngine(nil, nil, corpus.NewLayout(t.TempDir()), nil)

		_, err := engine.SyncIndex(context.Background(), nil, t.TempDir(), nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
