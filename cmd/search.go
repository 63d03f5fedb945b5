package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodlist/internal/index"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Search embeds a free-text query and searches the corpus for matching chunks.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	topK := cmd.Int("top-k")
	remote := cmd.Bool("remote")
	artifactsDir := cmd.String("artifacts")
	artists := cmd.StringSlice("artist")
	useJSON := cmd.Bool("json")

	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if r.embedder == nil {
		return fmt.Errorf("%w: openai api_key", shared.ErrMissingCredentials)
	}
	if topK <= 0 {
		topK = r.config.Retrieval.TopK
	}

	idx, err := r.openIndex(ctx, remote, artifactsDir)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, r.config.Generation.Timeout())
	defer cancel()

	vectors, err := r.embedder.EmbedTexts(callCtx, []string{query})
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	var filter *index.Filter
	if len(artists) > 0 {
		filter = &index.Filter{Artists: artists}
	}

	hits, err := idx.SearchBatch(callCtx, vectors, topK, filter)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(hits, true)
	}

	r.writePlain("%s", ui.RenderHits([]string{query}, hits))
	return nil
}
