package tasks

import (
	"fmt"

	"github.com/desertthunder/moodlist/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	AnalyzeImage Phase = iota
	RetrieveCandidates
	GeneratePlaylist
	EnrichTracks
	DigestSong
	EmbedChunks
	SyncIndex
)

func (p Phase) String() string {
	switch p {
	case AnalyzeImage:
		return "analyze_image"
	case RetrieveCandidates:
		return "retrieve_candidates"
	case GeneratePlaylist:
		return "generate_playlist"
	case EnrichTracks:
		return "enrich_tracks"
	case DigestSong:
		return "digest_song"
	case EmbedChunks:
		return "embed_chunks"
	case SyncIndex:
		return "sync_index"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

func analyzeImageUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AnalyzeImage,
		Step:    step,
		Total:   total,
		Message: "Analyzing image mood...",
	}
}

func vibeExtractedUpdate(step, total int, v *models.VibeExtraction) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AnalyzeImage,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Extracted %d vibes", len(v.Vibes)),
		Data:    v,
	}
}

func retrievingUpdate(queries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RetrieveCandidates,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Retrieving candidates for %d queries...", queries),
	}
}

func candidatesUpdate(hits [][]models.ScoredChunk) ProgressUpdate {
	total := 0
	for _, list := range hits {
		total += len(list)
	}
	return ProgressUpdate{
		Phase:   RetrieveCandidates,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Retrieved %d candidate chunks", total),
		Data:    hits,
	}
}

func generatingPlaylistUpdate(grounded bool) ProgressUpdate {
	msg := "Generating playlist..."
	if grounded {
		msg = "Generating playlist from retrieved candidates..."
	}
	return ProgressUpdate{
		Phase:   GeneratePlaylist,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

func playlistReadyUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   GeneratePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist ready: %s (%d tracks)", pl.Name, len(pl.Tracks)),
		Data:    pl,
	}
}

func enrichTrackUpdate(step, total int, tr *models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.Artist, tr.Song),
	}
}

func trackDroppedUpdate(step, total int, tr *models.Track, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s - %s: %v", step, total, tr.Artist, tr.Song, err),
	}
}

func digestingUpdate(step, total int, ref models.SongRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DigestSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Digesting: %s - %s...", step, total, ref.Artist, ref.Song),
	}
}

func digestedUpdate(step, total int, ref models.SongRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DigestSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s - %s", step, total, ref.Artist, ref.Song),
	}
}

func digestSkippedUpdate(step, total int, ref models.SongRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DigestSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] skipped (already digested): %s - %s", step, total, ref.Artist, ref.Song),
	}
}

func digestFailedUpdate(step, total int, ref models.SongRef, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DigestSong,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s - %s: %v", step, total, ref.Artist, ref.Song, err),
	}
}

func embeddingUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   EmbedChunks,
		Step:    1,
		Total:   1,
		Message: "Chunking and embedding digested summaries...",
	}
}

func embeddedUpdate(manifest *models.Manifest) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EmbedChunks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Embedded %d chunks (%s, dim %d)", manifest.Count, manifest.Model, manifest.Dim),
		Data:    manifest,
	}
}

func syncingIndexUpdate(rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncIndex,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Upserting %d vectors into the index...", rows),
	}
}

func indexSyncedUpdate(count uint64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncIndex,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Index holds %d points", count),
	}
}
