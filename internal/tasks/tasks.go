// package tasks implements the request-time and corpus-build pipelines.
//
// The core abstractions are MoodEngine, which turns an uploaded image into a
// mood-matched playlist, and BuildEngine, which digests songs into the corpus and
// builds embedding artifacts. Operations emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/index"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/vibe"
)

// TrackLookupResult records the outcome of resolving one generated track against
// the catalog.
type TrackLookupResult struct {
	Original models.Track  // Track as the generator produced it
	Resolved *models.Track // Canonical catalog track (nil if lookup failed)
	Error    error         // Error if lookup failed
}

// MoodRunResult contains all data from one image-to-playlist run.
type MoodRunResult struct {
	Vibe          *models.VibeExtraction // Structured mood analysis of the image
	Playlist      *models.Playlist       // Final playlist as returned to the caller
	Grounded      bool                   // Whether retrieval candidates constrained generation
	Candidates    [][]models.ScoredChunk // Retrieval hits per flattened query (nil when not grounded)
	TrackLookups  []TrackLookupResult    // Individual catalog lookup results (nil when enrichment off)
	EnrichedCount int                    // Tracks resolved against the catalog
	DroppedCount  int                    // Tracks dropped because lookup failed
}

// Pipeline defines the image-to-playlist operation.
type Pipeline interface {
	// Run performs the full chain: analyze the image, retrieve corpus candidates
	// when an index is configured, generate the playlist, and resolve tracks
	// against the catalog.
	Run(ctx context.Context, progress chan<- ProgressUpdate, img *models.Image) (*MoodRunResult, error)
}

// MoodEngine implements Pipeline.
//
// The retriever and catalog are optional: without a retriever the playlist is
// generated from the vibe alone, and without a catalog tracks are returned
// unresolved.
type MoodEngine struct {
	extractor *vibe.Extractor
	playlists *vibe.PlaylistGenerator
	retriever *index.Retriever
	catalog   services.Catalog
	filter    *index.Filter
	opts      vibe.CallOpts
	logger    *log.Logger
}

// NewMoodEngine creates a MoodEngine with the provided collaborators.
func NewMoodEngine(extractor *vibe.Extractor, playlists *vibe.PlaylistGenerator, retriever *index.Retriever, catalog services.Catalog, logger *log.Logger) (*MoodEngine, error) {
	if extractor == nil || playlists == nil {
		return nil, fmt.Errorf("%w: mood engine needs an extractor and a playlist generator", shared.ErrServiceUnavailable)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MoodEngine{
		extractor: extractor,
		playlists: playlists,
		retriever: retriever,
		catalog:   catalog,
		logger:    logger,
	}, nil
}

// SetFilter restricts retrieval to chunks whose artist payload matches.
func (e *MoodEngine) SetFilter(filter *index.Filter) {
	e.filter = filter
}

// SetCallOpts overrides the temperature, attempt budget, and per-call timeout
// used for every backend call in the run.
func (e *MoodEngine) SetCallOpts(opts vibe.CallOpts) {
	e.opts = opts
}

// callCtx bounds one backend call with the configured per-call timeout.
func (e *MoodEngine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout > 0 {
		return context.WithTimeout(ctx, e.opts.Timeout)
	}
	return ctx, func() {}
}

// Run performs a full image-to-playlist chain.
func (e *MoodEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, img *models.Image) (*MoodRunResult, error) {
	if img == nil || img.Reader == nil {
		return nil, fmt.Errorf("%w: image is required", shared.ErrInvalidInput)
	}

	result := &MoodRunResult{}

	sendProgress(progress, analyzeImageUpdate(1, 1))

	extraction, err := e.extractor.ExtractVibe(ctx, img, e.opts)
	if err != nil {
		return nil, fmt.Errorf("vibe extraction: %w", err)
	}
	result.Vibe = extraction
	sendProgress(progress, vibeExtractedUpdate(1, 1, extraction))

	var playlist *models.Playlist
	if e.retriever != nil {
		queries := extraction.Flatten()
		sendProgress(progress, retrievingUpdate(len(queries)))

		retrieveCtx, cancel := e.callCtx(ctx)
		hits, err := e.retriever.RetrieveForVibe(retrieveCtx, extraction, e.filter)
		cancel()
		if err != nil {
			return result, fmt.Errorf("candidate retrieval: %w", err)
		}
		result.Candidates = hits
		result.Grounded = true
		sendProgress(progress, candidatesUpdate(hits))

		sendProgress(progress, generatingPlaylistUpdate(true))
		playlist, err = e.playlists.GenerateGrounded(ctx, extraction, hits, e.opts)
		if err != nil {
			return result, fmt.Errorf("playlist generation: %w", err)
		}
	} else {
		sendProgress(progress, generatingPlaylistUpdate(false))
		playlist, err = e.playlists.Generate(ctx, extraction, e.opts)
		if err != nil {
			return result, fmt.Errorf("playlist generation: %w", err)
		}
	}

	result.Playlist = playlist
	sendProgress(progress, playlistReadyUpdate(playlist))

	if e.catalog != nil {
		e.enrich(ctx, progress, result)
	}

	return result, nil
}

// enrich resolves each generated track against the catalog.
//
// A failed lookup drops that track only. When every lookup fails the generated
// tracks are kept unresolved so the caller still gets a playlist.
func (e *MoodEngine) enrich(ctx context.Context, progress chan<- ProgressUpdate, result *MoodRunResult) {
	tracks := result.Playlist.Tracks
	total := len(tracks)
	lookups := make([]TrackLookupResult, total)
	resolved := make([]models.Track, 0, total)

	for i, track := range tracks {
		sendProgress(progress, enrichTrackUpdate(i+1, total, &track))

		lookupCtx, cancel := e.callCtx(ctx)
		match, err := e.catalog.SearchTrack(lookupCtx, track.Song, track.Artist)
		cancel()
		lookups[i] = TrackLookupResult{Original: track, Resolved: match, Error: err}
		if err != nil {
			e.logger.Warn("catalog lookup failed, dropping track", "song", track.Song, "artist", track.Artist, "err", err)
			sendProgress(progress, trackDroppedUpdate(i+1, total, &track, err))
			continue
		}

		// The generator's vibe line survives resolution.
		match.Vibe = track.Vibe
		resolved = append(resolved, *match)
	}

	result.TrackLookups = lookups
	result.EnrichedCount = len(resolved)
	result.DroppedCount = total - len(resolved)

	if len(resolved) == 0 {
		e.logger.Warn("no tracks resolved, keeping generated tracks unresolved", "total", total)
		return
	}
	result.Playlist.Tracks = resolved
}
