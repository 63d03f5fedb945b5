package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	"github.com/desertthunder/moodlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// CorpusDigest scrapes and digests every song listed in the input file.
func (r *Runner) CorpusDigest(ctx context.Context, cmd *cli.Command) error {
	inputPath := cmd.String("input")
	workers := cmd.Int("workers")
	rate := cmd.Float("rate")
	force := cmd.Bool("force")

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	refs, err := tasks.ReadSongRefs(file)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("%w: no songs in %s", shared.ErrInvalidInput, inputPath)
	}

	engine, err := r.buildEngine()
	if err != nil {
		return err
	}

	opts := tasks.DigestOpts{
		NumWorkers: workers,
		RateLimit:  rate,
		Force:      force,
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = r.config.Corpus.Workers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = r.config.Corpus.RateLimit
	}

	r.writePlain("Digesting %d songs into %s\n\n", len(refs), r.config.Corpus.Root)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := engine.DigestAll(ctx, progressCh, refs, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("%s", ui.RenderDigestRun(result))
	return nil
}

// CorpusBuild chunks and embeds digested songs into an artifact set.
func (r *Runner) CorpusBuild(ctx context.Context, cmd *cli.Command) error {
	outDir := cmd.String("out")
	if outDir == "" {
		outDir = r.artifactsDir()
	}

	engine, err := r.buildEngine()
	if err != nil {
		return err
	}

	r.writePlain("Building embedding artifacts in %s\n", outDir)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	manifest, err := engine.BuildArtifacts(ctx, progressCh, outDir)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\nArtifacts built: %d chunks, %d dimensions (%s)\n", manifest.Count, manifest.Dim, manifest.Model)
	return nil
}

// CorpusSync upserts built artifacts into the Qdrant collection.
func (r *Runner) CorpusSync(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if dir == "" {
		dir = r.artifactsDir()
	}

	idx, err := r.openIndex(ctx, true, "")
	if err != nil {
		return err
	}

	engine, err := r.buildEngine()
	if err != nil {
		return err
	}

	r.writePlain("Syncing artifacts from %s\n", dir)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	count, err := engine.SyncIndex(ctx, progressCh, dir, idx)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\nIndex synced: %d chunks in collection %s\n", count, r.config.Credentials.Qdrant.Collection)
	return nil
}
