package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/vibe"
)

// digestTemperature keeps summaries close to the source comments.
const digestTemperature = 0.3

// searchQueryTemplates, most useful first. Each takes artist then song; the
// configured queries-per-song count selects a prefix of this list.
var searchQueryTemplates = []string{
	"%s %s song meaning",
	"%s %s review",
	"%s %s lyrics analysis",
	"%s %s album review",
}

// Digester turns a song's listener comments into a digested markdown summary
// stored in the corpus tree.
type Digester struct {
	gen         services.Generator
	comments    services.CommentSource
	searcher    services.Searcher
	layout      Layout
	maxComments int
	numQueries  int
	model       string
	logger      *log.Logger
}

// DigesterConfig wires a Digester's backends. Searcher is optional; when set,
// web search results supplement the scraped comments.
type DigesterConfig struct {
	Generator      services.Generator
	CommentSource  services.CommentSource
	Searcher       services.Searcher
	Layout         Layout
	MaxComments    int
	QueriesPerSong int // Search queries issued per song; capped at the template count
	Model          string
	Logger         *log.Logger
}

// NewDigester creates a Digester.
func NewDigester(cfg DigesterConfig) (*Digester, error) {
	if cfg.Generator == nil || cfg.CommentSource == nil {
		return nil, fmt.Errorf("%w: digester needs a generator and a comment source", shared.ErrMissingConfig)
	}
	if cfg.MaxComments <= 0 {
		cfg.MaxComments = services.DefaultMaxComments
	}
	if cfg.QueriesPerSong <= 0 || cfg.QueriesPerSong > len(searchQueryTemplates) {
		cfg.QueriesPerSong = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}

	return &Digester{
		gen:         cfg.Generator,
		comments:    cfg.CommentSource,
		searcher:    cfg.Searcher,
		layout:      cfg.Layout,
		maxComments: cfg.MaxComments,
		numQueries:  cfg.QueriesPerSong,
		model:       cfg.Model,
		logger:      cfg.Logger,
	}, nil
}

// Digest scrapes, summarizes, and stores one song. An existing summary short
// circuits unless force is set; re-running a partly built corpus only fills the
// gaps.
func (d *Digester) Digest(ctx context.Context, ref models.SongRef, force bool) error {
	if !force && d.layout.HasDigestion(ref) {
		d.logger.Debug("digestion exists, skipping", "song", ref.Song, "artist", ref.Artist)
		return nil
	}

	comments, err := d.comments.Comments(ctx, ref.Song, ref.Artist, d.maxComments)
	if err != nil {
		return fmt.Errorf("scraping %s by %s: %w", ref.Song, ref.Artist, err)
	}

	if err := d.layout.WriteComments(ref, comments); err != nil {
		return err
	}

	videoIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		videoIDs = append(videoIDs, c.VideoID)
	}
	if err := d.layout.UpdateMeta(ref, videoIDs); err != nil {
		return err
	}

	promptInput := comments
	if d.searcher != nil {
		promptInput = append(promptInput, d.searchSupplement(ctx, ref)...)
	}

	prompt := vibe.BuildDigestionPrompt(promptInput)
	summary, err := d.gen.Generate(ctx, prompt, nil, digestTemperature)
	if err != nil {
		return fmt.Errorf("digesting %s by %s: %w", ref.Song, ref.Artist, err)
	}

	record := &models.DigestionRecord{
		SongName:          ref.Song,
		Artist:            ref.Artist,
		Model:             d.model,
		CreatedAt:         time.Now().UTC().Format(time.RFC3339),
		CommentCount:      len(comments),
		Sources:           models.SourceIDs{YouTube: mergeSorted(nil, videoIDs)},
		PromptFingerprint: shared.Fingerprint(prompt),
	}

	if err := d.layout.WriteDigestion(ref, summary, record); err != nil {
		return err
	}

	d.logger.Info("digested song", "song", ref.Song, "artist", ref.Artist, "comments", len(comments))
	return nil
}

// searchSupplement folds web search extracts into the prompt input. Search
// failures degrade to comments-only digestion, never fail the song.
func (d *Digester) searchSupplement(ctx context.Context, ref models.SongRef) []models.Comment {
	queries := make([]string, d.numQueries)
	for i := range queries {
		queries[i] = fmt.Sprintf(searchQueryTemplates[i], ref.Artist, ref.Song)
	}

	pages, err := d.searcher.SearchAndFetch(ctx, queries)
	if err != nil {
		d.logger.Warn("search enrichment failed", "song", ref.Song, "err", err)
		return nil
	}

	supplement := make([]models.Comment, 0, len(pages))
	for _, page := range pages {
		supplement = append(supplement, models.Comment{
			Song:   ref.Song,
			Artist: ref.Artist,
			Text:   fmt.Sprintf("[web: %s] %s", page.Title, page.Text),
		})
	}
	return supplement
}
