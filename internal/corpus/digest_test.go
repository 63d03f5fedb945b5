package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, image *models.Image, temperature float64) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	return g.response, g.err
}

type stubCommentSource struct {
	comments []models.Comment
	err      error
	calls    int
}

func (s *stubCommentSource) Comments(ctx context.Context, song, artist string, maxComments int) ([]models.Comment, error) {
	s.calls++
	return s.comments, s.err
}

type stubSearcher struct {
	pages      []services.PageResult
	err        error
	gotQueries []string
}

func (s *stubSearcher) SearchAndFetch(ctx context.Context, queries []string) ([]services.PageResult, error) {
	s.gotQueries = append([]string(nil), queries...)
	return s.pages, s.err
}

func TestDigester(t *testing.T) {
	ref := models.SongRef{Song: "Holocene", Artist: "Bon Iver"}
	scraped := []models.Comment{
		{Song: "Holocene", Artist: "Bon Iver", VideoID: "vid2", Text: "wintry and vast"},
		{Song: "Holocene", Artist: "Bon Iver", VideoID: "vid1", Text: "2am drives"},
	}

	newDigester := func(t *testing.T, layout Layout, gen *stubGenerator, src *stubCommentSource, searcher services.Searcher) *Digester {
		t.Helper()
		d, err := NewDigester(DigesterConfig{
			Generator:     gen,
			CommentSource: src,
			Searcher:      searcher,
			Layout:        layout,
			MaxComments:   25,
			Model:         "gpt-4o",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return d
	}

	t.Run("Digests A Song", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		gen := &stubGenerator{response: "# Vibe\n## Wintry\nGlacial and vast."}
		src := &stubCommentSource{comments: scraped}
		d := newDigester(t, layout, gen, src, nil)

		if err := d.Digest(context.Background(), ref, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		summary, err := os.ReadFile(layout.SummaryPath(ref))
		if err != nil {
			t.Fatalf("expected summary written: %v", err)
		}
		if !strings.Contains(string(summary), "Glacial and vast.") {
			t.Errorf("unexpected summary %q", summary)
		}

		data, err := os.ReadFile(layout.DigestionRecordPath(ref))
		if err != nil {
			t.Fatalf("expected record written: %v", err)
		}
		var record models.DigestionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			t.Fatalf("bad record: %v", err)
		}
		if record.CommentCount != 2 || record.Model != "gpt-4o" {
			t.Errorf("unexpected record %+v", record)
		}
		if !strings.HasPrefix(record.PromptFingerprint, "sha256:") {
			t.Errorf("expected a prompt fingerprint, got %q", record.PromptFingerprint)
		}
		if len(record.Sources.YouTube) != 2 || record.Sources.YouTube[0] != "vid1" {
			t.Errorf("expected sorted video IDs, got %v", record.Sources.YouTube)
		}

		meta, err := layout.LoadMeta(ref)
		if err != nil {
			t.Fatalf("expected meta: %v", err)
		}
		if len(meta.Sources.YouTube) != 2 {
			t.Errorf("expected meta video IDs, got %v", meta.Sources.YouTube)
		}

		if !strings.Contains(gen.prompts[0], "wintry and vast") {
			t.Error("expected comments in the digestion prompt")
		}
	})

	t.Run("Skips Existing Digestion", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		gen := &stubGenerator{response: "# Vibe\nsummary"}
		src := &stubCommentSource{comments: scraped}
		d := newDigester(t, layout, gen, src, nil)

		if err := d.Digest(context.Background(), ref, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := d.Digest(context.Background(), ref, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if src.calls != 1 || gen.calls != 1 {
			t.Errorf("expected second run skipped, got %d scrapes and %d generations", src.calls, gen.calls)
		}
	})

	t.Run("Force Redigests", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		gen := &stubGenerator{response: "# Vibe\nsummary"}
		src := &stubCommentSource{comments: scraped}
		d := newDigester(t, layout, gen, src, nil)

		if err := d.Digest(context.Background(), ref, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := d.Digest(context.Background(), ref, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gen.calls != 2 {
			t.Errorf("expected forced redigestion, got %d generations", gen.calls)
		}
	})

	t.Run("Search Supplement In Prompt", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		gen := &stubGenerator{response: "# Vibe\nsummary"}
		src := &stubCommentSource{comments: scraped}
		searcher := &stubSearcher{pages: []services.PageResult{
			{URL: "https://example.com", Title: "Review", Text: "critics call it glacial"},
		}}
		d := newDigester(t, layout, gen, src, searcher)

		if err := d.Digest(context.Background(), ref, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(gen.prompts[0], "critics call it glacial") {
			t.Error("expected search extracts in the digestion prompt")
		}
	})

	t.Run("Queries Per Song Configurable", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		gen := &stubGenerator{response: "# Vibe\nsummary"}
		src := &stubCommentSource{comments: scraped}
		searcher := &stubSearcher{pages: []services.PageResult{{URL: "https://example.com", Text: "text"}}}

		d, err := NewDigester(DigesterConfig{
			Generator:      gen,
			CommentSource:  src,
			Searcher:       searcher,
			Layout:         layout,
			QueriesPerSong: 3,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if err := d.Digest(context.Background(), ref, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(searcher.gotQueries) != 3 {
			t.Fatalf("expected 3 search queries, got %v", searcher.gotQueries)
		}
		for i, q := range searcher.gotQueries {
			if !strings.Contains(q, "Bon Iver") || !strings.Contains(q, "Holocene") {
				t.Errorf("query %d missing artist or song: %q", i, q)
			}
		}
	})

	t.Run("Defaults To Two Queries", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		gen := &stubGenerator{response: "# Vibe\nsummary"}
		src := &stubCommentSource{comments: scraped}
		searcher := &stubSearcher{pages: []services.PageResult{{URL: "https://example.com", Text: "text"}}}
		d := newDigester(t, layout, gen, src, searcher)

		if err := d.Digest(context.Background(), ref, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(searcher.gotQueries) != 2 {
			t.Errorf("expected 2 search queries by default, got %v", searcher.gotQueries)
		}
	})

	t.Run("Search Failure Degrades Gracefully", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		gen := &stubGenerator{response: "# Vibe\nsummary"}
		src := &stubCommentSource{comments: scraped}
		searcher := &stubSearcher{err: errors.New("search down")}
		d := newDigester(t, layout, gen, src, searcher)

		if err := d.Digest(context.Background(), ref, false); err != nil {
			t.Fatalf("expected comments-only digestion, got %v", err)
		}
	})

	t.Run("Scrape Failure Propagates", func(t *testing.T) {
		layout := NewLayout(t.TempDir())
		gen := &stubGenerator{response: "# Vibe\nsummary"}
		src := &stubCommentSource{err: shared.ErrNoComments}
		d := newDigester(t, layout, gen, src, nil)

		err := d.Digest(context.Background(), ref, false)
		if !errors.Is(err, shared.ErrNoComments) {
			t.Errorf("expected ErrNoComments, got %v", err)
		}
		if gen.calls != 0 {
			t.Error("expected no generation after scrape failure")
		}
	})

	t.Run("Requires Backends", func(t *testing.T) {
		_, err := NewDigester(DigesterConfig{})
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}
