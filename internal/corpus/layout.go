package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/moodlist/internal/models"
)

// Corpus tree, one directory per song:
//
//	<root>/songs/<Artist - Song>/
//	    sources/youtube_<videoID>.comments.jsonl
//	    digestion/summary.md
//	    digestion/summary.json
//	    meta.json
const (
	songsDirName     = "songs"
	sourcesDirName   = "sources"
	digestionDirName = "digestion"
	summaryFileName  = "summary.md"
	digestFileName   = "summary.json"
	metaFileName     = "meta.json"
)

const dirPerm = 0o755

// unsafePathChars are replaced in song directory names.
var unsafePathChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"\x00", "_",
)

// SafeName renders a song identity as a filesystem-safe directory name.
func SafeName(artist, song string) string {
	name := fmt.Sprintf("%s - %s", strings.TrimSpace(artist), strings.TrimSpace(song))
	return strings.TrimSpace(unsafePathChars.Replace(name))
}

// Layout resolves paths inside a corpus tree.
type Layout struct {
	root string
}

// NewLayout creates a Layout rooted at the given directory.
func NewLayout(root string) Layout {
	return Layout{root: root}
}

func (l Layout) Root() string { return l.root }

// SongsDir returns the directory holding all song subtrees.
func (l Layout) SongsDir() string {
	return filepath.Join(l.root, songsDirName)
}

// SongDir returns the directory for one song.
func (l Layout) SongDir(ref models.SongRef) string {
	return filepath.Join(l.SongsDir(), SafeName(ref.Artist, ref.Song))
}

// CommentsPath returns the raw comments file for one video of a song.
func (l Layout) CommentsPath(ref models.SongRef, videoID string) string {
	return filepath.Join(l.SongDir(ref), sourcesDirName, fmt.Sprintf("youtube_%s.comments.jsonl", videoID))
}

// SummaryPath returns the digested summary markdown for a song.
func (l Layout) SummaryPath(ref models.SongRef) string {
	return filepath.Join(l.SongDir(ref), digestionDirName, summaryFileName)
}

// DigestionRecordPath returns the digestion provenance record for a song.
func (l Layout) DigestionRecordPath(ref models.SongRef) string {
	return filepath.Join(l.SongDir(ref), digestionDirName, digestFileName)
}

// MetaPath returns the per-song metadata file.
func (l Layout) MetaPath(ref models.SongRef) string {
	return filepath.Join(l.SongDir(ref), metaFileName)
}

// HasDigestion reports whether a song already has a digested summary on disk.
func (l Layout) HasDigestion(ref models.SongRef) bool {
	info, err := os.Stat(l.SummaryPath(ref))
	return err == nil && !info.IsDir()
}

// WriteComments appends one jsonl file per video under sources/. Comments are
// grouped by video so re-scraping one video replaces only its own file.
func (l Layout) WriteComments(ref models.SongRef, comments []models.Comment) error {
	byVideo := make(map[string][]models.Comment)
	for _, c := range comments {
		byVideo[c.VideoID] = append(byVideo[c.VideoID], c)
	}

	for videoID, group := range byVideo {
		path := l.CommentsPath(ref, videoID)
		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return fmt.Errorf("failed to create sources dir: %w", err)
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create comments file: %w", err)
		}

		w := bufio.NewWriter(f)
		enc := json.NewEncoder(w)
		for _, c := range group {
			if err := enc.Encode(c); err != nil {
				f.Close()
				return fmt.Errorf("failed to write comment: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return fmt.Errorf("failed to flush comments file: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close comments file: %w", err)
		}
	}

	return nil
}

// LoadMeta reads a song's meta.json. A missing file is not an error; it returns
// a fresh record.
func (l Layout) LoadMeta(ref models.SongRef) (*models.SongMeta, error) {
	data, err := os.ReadFile(l.MetaPath(ref))
	if os.IsNotExist(err) {
		return &models.SongMeta{SongName: ref.Song, Artist: ref.Artist}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read meta: %w", err)
	}

	var meta models.SongMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode meta: %w", err)
	}
	return &meta, nil
}

// UpdateMeta merges newly seen video IDs into a song's meta.json, keeping the
// ID list a sorted set, and bumps last_updated.
func (l Layout) UpdateMeta(ref models.SongRef, videoIDs []string) error {
	meta, err := l.LoadMeta(ref)
	if err != nil {
		return err
	}

	meta.Sources.YouTube = mergeSorted(meta.Sources.YouTube, videoIDs)

	now := time.Now().UTC().Format(time.RFC3339)
	if meta.CreatedAt == "" {
		meta.CreatedAt = now
	}
	meta.LastUpdated = now

	return l.writeJSON(l.MetaPath(ref), meta)
}

// WriteDigestion stores a song's summary markdown and its provenance record.
func (l Layout) WriteDigestion(ref models.SongRef, summary string, record *models.DigestionRecord) error {
	path := l.SummaryPath(ref)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create digestion dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(summary), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return l.writeJSON(l.DigestionRecordPath(ref), record)
}

// DigestedSong is one song's digested material, loaded for artifact builds.
type DigestedSong struct {
	Ref      models.SongRef
	Summary  string
	VideoIDs []string
}

// LoadDigested walks the corpus tree and returns every song with a digested
// summary, in directory name order.
func (l Layout) LoadDigested() ([]DigestedSong, error) {
	entries, err := os.ReadDir(l.SongsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read songs dir: %w", err)
	}

	var songs []DigestedSong
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(l.SongsDir(), entry.Name())
		summary, err := os.ReadFile(filepath.Join(dir, digestionDirName, summaryFileName))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read summary in %s: %w", entry.Name(), err)
		}

		var meta models.SongMeta
		metaData, err := os.ReadFile(filepath.Join(dir, metaFileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read meta in %s: %w", entry.Name(), err)
		}
		if err := json.Unmarshal(metaData, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode meta in %s: %w", entry.Name(), err)
		}

		songs = append(songs, DigestedSong{
			Ref:      models.SongRef{Song: meta.SongName, Artist: meta.Artist},
			Summary:  string(summary),
			VideoIDs: meta.Sources.YouTube,
		})
	}

	return songs, nil
}

func (l Layout) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// mergeSorted unions two ID lists into a sorted set.
func mergeSorted(existing, incoming []string) []string {
	set := make(map[string]struct{}, len(existing)+len(incoming))
	for _, id := range existing {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	for _, id := range incoming {
		if id != "" {
			set[id] = struct{}{}
		}
	}

	merged := make([]string, 0, len(set))
	for id := range set {
		merged = append(merged, id)
	}
	sort.Strings(merged)
	return merged
}
