package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/corpus"
	"github.com/desertthunder/moodlist/internal/index"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	"github.com/desertthunder/moodlist/internal/vibe"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	generator services.Generator
	embedder  services.Embedder
	catalog   services.Catalog
	comments  services.CommentSource
	searcher  services.Searcher
	logger    *log.Logger
	output    io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Generator services.Generator
	Embedder  services.Embedder
	Catalog   services.Catalog
	Comments  services.CommentSource
	Searcher  services.Searcher
	Logger    *log.Logger
	Output    io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:    opts.Config,
		generator: opts.Generator,
		embedder:  opts.Embedder,
		catalog:   opts.Catalog,
		comments:  opts.Comments,
		searcher:  opts.Searcher,
		logger:    opts.Logger,
		output:    opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, corpusCommand, searchCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadOrCreateConfig reads the TOML config at path, writing the embedded
// template first when the file does not exist. Failures fall back to defaults
// with a warning so setup always completes.
func (r *Runner) loadOrCreateConfig(path string) *shared.Config {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			return shared.DefaultConfig()
		}
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// callOpts maps the generation config onto per-call options.
func (r *Runner) callOpts() vibe.CallOpts {
	return vibe.CallOpts{
		Temperature: r.config.Generation.Temperature,
		MaxAttempts: r.config.Generation.MaxAttempts,
		Timeout:     r.config.Generation.Timeout(),
	}
}

// layout returns the corpus directory layout rooted at the configured path.
func (r *Runner) layout() corpus.Layout {
	return corpus.NewLayout(r.config.Corpus.Root)
}

// artifactsDir is where corpus build writes and sync/search read embedding
// artifacts, unless a command flag overrides it.
func (r *Runner) artifactsDir() string {
	return filepath.Join(r.config.Corpus.Root, "artifacts")
}

// openIndex connects to Qdrant when remote is set, otherwise loads the local
// flat index from the artifact directory.
func (r *Runner) openIndex(ctx context.Context, remote bool, artifactsDir string) (index.Index, error) {
	if remote {
		qdrant := r.config.Credentials.Qdrant
		return index.NewQdrantIndex(ctx, index.QdrantOptions{
			Addr:       fmt.Sprintf("%s:%d", qdrant.Host, qdrant.Port),
			Collection: qdrant.Collection,
			Dim:        r.config.Retrieval.Dimension,
			BatchSize:  r.config.Corpus.UpsertBatchSize,
			APIKey:     qdrant.APIKey,
			UseTLS:     qdrant.UseTLS,
			Logger:     r.logger,
		})
	}

	if artifactsDir == "" {
		artifactsDir = r.artifactsDir()
	}

	rows, manifest, err := corpus.LoadArtifacts(artifactsDir)
	if err != nil {
		return nil, fmt.Errorf("loading artifacts from %s: %w", artifactsDir, err)
	}

	idx, err := index.NewLocalIndex(manifest.Dim)
	if err != nil {
		return nil, err
	}
	if err := idx.Upsert(ctx, rows); err != nil {
		return nil, err
	}

	return idx, nil
}

// moodEngine wires the image-to-playlist pipeline. When plain is set, or no
// index can be opened, generation runs without retrieval grounding.
func (r *Runner) moodEngine(ctx context.Context, remote bool, artifactsDir string, plain bool) (*tasks.MoodEngine, error) {
	if r.generator == nil {
		return nil, fmt.Errorf("%w: openai api_key", shared.ErrMissingCredentials)
	}

	extractor, err := vibe.NewExtractor(r.generator, r.logger)
	if err != nil {
		return nil, err
	}
	playlists, err := vibe.NewPlaylistGenerator(r.generator, r.logger)
	if err != nil {
		return nil, err
	}

	var retriever *index.Retriever
	if !plain && r.embedder != nil {
		idx, err := r.openIndex(ctx, remote, artifactsDir)
		if err != nil {
			r.logger.Warn("no index available, generating without grounding", "error", err)
		} else {
			retriever, err = index.NewRetriever(idx, r.embedder, r.config.Retrieval.TopK, r.logger)
			if err != nil {
				return nil, err
			}
		}
	}

	engine, err := tasks.NewMoodEngine(extractor, playlists, retriever, r.catalog, r.logger)
	if err != nil {
		return nil, err
	}
	engine.SetCallOpts(r.callOpts())

	return engine, nil
}

// buildEngine wires the corpus digestion and artifact pipeline. Collaborators
// that are not configured are left nil; the engine rejects the operations that
// need them.
func (r *Runner) buildEngine() (*tasks.BuildEngine, error) {
	layout := r.layout()

	var digester *corpus.Digester
	if r.generator != nil && r.comments != nil {
		var err error
		digester, err = corpus.NewDigester(corpus.DigesterConfig{
			Generator:      r.generator,
			CommentSource:  r.comments,
			Searcher:       r.searcher,
			Layout:         layout,
			MaxComments:    r.config.Corpus.MaxComments,
			QueriesPerSong: r.config.Search.QueriesPerSong,
			Model:          r.config.Credentials.OpenAI.Model,
			Logger:         r.logger,
		})
		if err != nil {
			return nil, err
		}
	}

	var builder *corpus.ArtifactBuilder
	if r.embedder != nil {
		length, err := corpus.TiktokenLen()
		if err != nil {
			return nil, err
		}
		splitter, err := corpus.NewSplitter(r.config.Corpus.ChunkSize, r.config.Corpus.ChunkOverlap, length)
		if err != nil {
			return nil, err
		}
		builder, err = corpus.NewArtifactBuilder(r.embedder, splitter, layout, r.config.Corpus.EmbedBatchSize, r.logger)
		if err != nil {
			return nil, err
		}
	}

	return tasks.NewBuildEngine(digester, builder, layout, r.logger), nil
}

// openDatabase opens the configured sqlite database and runs pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
