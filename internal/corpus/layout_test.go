package corpus

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/desertthunder/moodlist/internal/models"
)

func TestSafeName(t *testing.T) {
	t.Run("Plain Names", func(t *testing.T) {
		if got := SafeName("Bon Iver", "Holocene"); got != "Bon Iver - Holocene" {
			t.Errorf("unexpected name %q", got)
		}
	})

	t.Run("Replaces Hostile Characters", func(t *testing.T) {
		got := SafeName("AC/DC", "What's Next to the Moon?")
		if got != "AC_DC - What's Next to the Moon_" {
			t.Errorf("unexpected name %q", got)
		}
	})
}

func TestLayout(t *testing.T) {
	ref := models.SongRef{Song: "Holocene", Artist: "Bon Iver"}

	t.Run("WriteComments", func(t *testing.T) {
		layout := NewLayout(t.TempDir())

		comments := []models.Comment{
			{Song: "Holocene", Artist: "Bon Iver", VideoID: "vid1", Text: "first"},
			{Song: "Holocene", Artist: "Bon Iver", VideoID: "vid2", Text: "second"},
			{Song: "Holocene", Artist: "Bon Iver", VideoID: "vid1", Text: "third"},
		}
		if err := layout.WriteComments(ref, comments); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		f, err := os.Open(layout.CommentsPath(ref, "vid1"))
		if err != nil {
			t.Fatalf("expected vid1 comments file: %v", err)
		}
		defer f.Close()

		var lines []models.Comment
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var c models.Comment
			if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
				t.Fatalf("bad jsonl line: %v", err)
			}
			lines = append(lines, c)
		}
		if len(lines) != 2 || lines[0].Text != "first" || lines[1].Text != "third" {
			t.Errorf("unexpected vid1 lines %+v", lines)
		}

		if _, err := os.Stat(layout.CommentsPath(ref, "vid2")); err != nil {
			t.Errorf("expected vid2 comments file: %v", err)
		}
	})

	t.Run("UpdateMeta Merges Sorted Set", func(t *testing.T) {
		layout := NewLayout(t.TempDir())

		if err := layout.UpdateMeta(ref, []string{"zeta", "alpha"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := layout.UpdateMeta(ref, []string{"alpha", "mid"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		meta, err := layout.LoadMeta(ref)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(meta.Sources.YouTube, []string{"alpha", "mid", "zeta"}) {
			t.Errorf("expected sorted set, got %v", meta.Sources.YouTube)
		}
		if meta.CreatedAt == "" || meta.LastUpdated == "" {
			t.Error("expected timestamps set")
		}
	})

	t.Run("LoadMeta Missing File", func(t *testing.T) {
		layout := NewLayout(t.TempDir())

		meta, err := layout.LoadMeta(ref)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if meta.SongName != "Holocene" || meta.Artist != "Bon Iver" {
			t.Errorf("expected a fresh record, got %+v", meta)
		}
	})

	t.Run("Digestion Roundtrip", func(t *testing.T) {
		layout := NewLayout(t.TempDir())

		if layout.HasDigestion(ref) {
			t.Error("expected no digestion yet")
		}

		record := &models.DigestionRecord{
			SongName:          "Holocene",
			Artist:            "Bon Iver",
			Model:             "gpt-4o",
			CommentCount:      3,
			PromptFingerprint: "sha256:abc",
		}
		if err := layout.WriteDigestion(ref, "# Vibe\nwintry", record); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !layout.HasDigestion(ref) {
			t.Error("expected digestion present")
		}

		data, err := os.ReadFile(layout.DigestionRecordPath(ref))
		if err != nil {
			t.Fatalf("expected record file: %v", err)
		}
		var got models.DigestionRecord
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("bad record: %v", err)
		}
		if got.PromptFingerprint != "sha256:abc" || got.CommentCount != 3 {
			t.Errorf("unexpected record %+v", got)
		}
	})

	t.Run("LoadDigested", func(t *testing.T) {
		layout := NewLayout(t.TempDir())

		other := models.SongRef{Song: "Re: Stacks", Artist: "Bon Iver"}
		undigested := models.SongRef{Song: "Flume", Artist: "Bon Iver"}

		for _, r := range []models.SongRef{ref, other, undigested} {
			if err := layout.UpdateMeta(r, []string{"vid_" + r.Song}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		for _, r := range []models.SongRef{ref, other} {
			if err := layout.WriteDigestion(r, "# Vibe\nsummary for "+r.Song, &models.DigestionRecord{SongName: r.Song, Artist: r.Artist}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}

		songs, err := layout.LoadDigested()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 2 {
			t.Fatalf("expected 2 digested songs, got %d", len(songs))
		}
		for _, song := range songs {
			if song.Summary == "" {
				t.Errorf("expected summary loaded for %s", song.Ref.Song)
			}
			if len(song.VideoIDs) != 1 {
				t.Errorf("expected video IDs from meta for %s, got %v", song.Ref.Song, song.VideoIDs)
			}
		}
	})

	t.Run("LoadDigested Empty Tree", func(t *testing.T) {
		layout := NewLayout(filepath.Join(t.TempDir(), "missing"))

		songs, err := layout.LoadDigested()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if songs != nil {
			t.Errorf("expected no songs, got %+v", songs)
		}
	})
}
