package tasks

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/corpus"
	"github.com/desertthunder/moodlist/internal/index"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
	"golang.org/x/time/rate"
)

// DigestOpts contains configuration for batch corpus digestion.
type DigestOpts struct {
	NumWorkers int     // Concurrent workers (default: 3)
	RateLimit  float64 // Songs started per second (default: 1)
	Force      bool    // Re-digest songs that already have a summary
}

// SongDigestResult records the outcome of digesting a single song.
type SongDigestResult struct {
	Ref     models.SongRef
	Skipped bool // Summary already existed and force was off
	Success bool
	Error   error
}

// DigestRunResult contains all data from a batch digestion run.
type DigestRunResult struct {
	TotalSongs   int
	Digested     int
	Skipped      int
	Failed       int
	Results      []SongDigestResult
	ManifestPath string // processed_songs.jsonl under the corpus root
}

// BuildEngine orchestrates the offline corpus pipeline: batch digestion,
// embedding artifact builds, and index synchronization.
type BuildEngine struct {
	digester *corpus.Digester
	builder  *corpus.ArtifactBuilder
	layout   corpus.Layout
	logger   *log.Logger
}

// NewBuildEngine creates a BuildEngine. The digester and builder are each
// optional; operations fail with ErrServiceUnavailable when their dependency is
// missing.
func NewBuildEngine(digester *corpus.Digester, builder *corpus.ArtifactBuilder, layout corpus.Layout, logger *log.Logger) *BuildEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BuildEngine{
		digester: digester,
		builder:  builder,
		layout:   layout,
		logger:   logger,
	}
}

// ReadSongRefs parses a jsonl stream of {"song": ..., "artist": ...} lines.
// Blank lines are skipped; a malformed or incomplete line is an error.
func ReadSongRefs(r io.Reader) ([]models.SongRef, error) {
	var refs []models.SongRef
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ref models.SongRef
		if err := json.Unmarshal(line, &ref); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", shared.ErrInvalidInput, lineNo, err)
		}
		if ref.Song == "" || ref.Artist == "" {
			return nil, fmt.Errorf("%w: line %d: song and artist are required", shared.ErrInvalidInput, lineNo)
		}
		refs = append(refs, ref)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading song refs: %w", err)
	}
	return refs, nil
}

// DigestAll digests multiple songs concurrently with rate limiting and progress
// tracking.
//
// This method implements a worker pool to digest songs in parallel while
// respecting API rate limits. Per-song failures are recorded and skipped so one
// bad song never aborts the batch, and a processed_songs.jsonl manifest is
// written under the corpus root summarizing the run.
func (e *BuildEngine) DigestAll(ctx context.Context, prog chan<- ProgressUpdate, refs []models.SongRef, opts DigestOpts) (*DigestRunResult, error) {
	if e.digester == nil {
		return nil, fmt.Errorf("%w: digester not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}

	result := &DigestRunResult{
		TotalSongs: len(refs),
		Results:    make([]SongDigestResult, 0, len(refs)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan models.SongRef, len(refs))
	results := make(chan SongDigestResult, len(refs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.digestWorker(ctx, &wg, jobs, results, opts.Force)
	}

	go func() {
		defer close(jobs)
		for _, ref := range refs {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// Already-digested songs skip straight past the limiter; they cost
			// no API calls.
			if !opts.Force && e.layout.HasDigestion(ref) {
				results <- SongDigestResult{Ref: ref, Skipped: true, Success: true}
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- ref
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		switch {
		case res.Skipped:
			result.Skipped++
			sendProgress(prog, digestSkippedUpdate(completed, len(refs), res.Ref))
		case res.Success:
			result.Digested++
			sendProgress(prog, digestedUpdate(completed, len(refs), res.Ref))
		default:
			result.Failed++
			sendProgress(prog, digestFailedUpdate(completed, len(refs), res.Ref, res.Error))
		}
	}

	manifestPath := filepath.Join(e.layout.Root(), "processed_songs.jsonl")
	if err := writeProcessedManifest(manifestPath, result.Results); err != nil {
		return result, fmt.Errorf("digestion completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// digestWorker is a worker goroutine that digests songs from the jobs channel.
func (e *BuildEngine) digestWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan models.SongRef, results chan<- SongDigestResult, force bool) {
	defer wg.Done()

	for ref := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := e.digester.Digest(ctx, ref, force)
		if err != nil {
			e.logger.Warn("digestion failed, skipping song", "song", ref.Song, "artist", ref.Artist, "err", err)
			results <- SongDigestResult{Ref: ref, Error: err}
			continue
		}
		results <- SongDigestResult{Ref: ref, Success: true}
	}
}

// processedSongLine is one manifest row in processed_songs.jsonl.
type processedSongLine struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func writeProcessedManifest(path string, results []SongDigestResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, res := range results {
		line := processedSongLine{Song: res.Ref.Song, Artist: res.Ref.Artist}
		switch {
		case res.Skipped:
			line.Status = "skipped"
		case res.Success:
			line.Status = "digested"
		default:
			line.Status = "failed"
			if res.Error != nil {
				line.Error = res.Error.Error()
			}
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

// BuildArtifacts chunks and embeds every digested summary and writes the
// embedding artifact set to outDir.
func (e *BuildEngine) BuildArtifacts(ctx context.Context, prog chan<- ProgressUpdate, outDir string) (*models.Manifest, error) {
	if e.builder == nil {
		return nil, fmt.Errorf("%w: artifact builder not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(prog, embeddingUpdate())

	manifest, err := e.builder.Build(ctx, outDir)
	if err != nil {
		return nil, err
	}

	sendProgress(prog, embeddedUpdate(manifest))
	e.logger.Info("artifacts built", "dir", outDir, "chunks", manifest.Count, "dim", manifest.Dim)
	return manifest, nil
}

// SyncIndex loads the artifact set from dir and upserts it into idx.
//
// LoadArtifacts verifies the manifest before any row is trusted, and the index
// implementation verifies its post-upsert count, so a partial sync surfaces as
// an error instead of a silently short index.
func (e *BuildEngine) SyncIndex(ctx context.Context, prog chan<- ProgressUpdate, dir string, idx index.Index) (uint64, error) {
	if idx == nil {
		return 0, fmt.Errorf("%w: index not initialized", shared.ErrServiceUnavailable)
	}

	rows, _, err := corpus.LoadArtifacts(dir)
	if err != nil {
		return 0, err
	}

	sendProgress(prog, syncingIndexUpdate(len(rows)))

	if err := idx.Upsert(ctx, rows); err != nil {
		return 0, err
	}

	count, err := idx.Count(ctx)
	if err != nil {
		return 0, err
	}
	sendProgress(prog, indexSyncedUpdate(count))
	e.logger.Info("index synced", "dir", dir, "points", count)
	return count, nil
}
