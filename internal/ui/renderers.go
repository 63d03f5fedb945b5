package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/tasks"
)

// RenderVibe renders a vibe extraction for terminal display.
func RenderVibe(v *models.VibeExtraction) string {
	var b strings.Builder

	b.WriteString(styles.heading.Render("Vibe Analysis"))
	b.WriteString("\n")
	b.WriteString(v.Description)
	b.WriteString("\n\n")
	b.WriteString(styles.dim.Render(v.Imagination))
	b.WriteString("\n\n")

	for _, item := range v.Vibes {
		b.WriteString(fmt.Sprintf("  %s %s\n", styles.good.Render(item.Label+":"), item.Explanation))
	}

	return b.String()
}

// RenderPlaylist renders a playlist with resolution status per track.
func RenderPlaylist(p *models.Playlist) string {
	var b strings.Builder

	b.WriteString(styles.heading.Render(p.Name))
	b.WriteString("\n")
	b.WriteString(p.Description)
	b.WriteString("\n\n")

	for i, track := range p.Tracks {
		line := fmt.Sprintf("%2d. %s - %s", i+1, track.Artist, track.Song)
		if track.URI != "" {
			line += " " + styles.dim.Render(track.URI)
		} else {
			line += " " + styles.warn.Render("(unmatched)")
		}
		b.WriteString(line)
		b.WriteString("\n")
		if track.Vibe != "" {
			b.WriteString(styles.dim.Render("    " + track.Vibe))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderHits renders retrieval results, one block per query.
func RenderHits(queries []string, hits [][]models.ScoredChunk) string {
	var b strings.Builder

	for i, list := range hits {
		label := fmt.Sprintf("Query %d", i+1)
		if i < len(queries) {
			label = queries[i]
		}
		b.WriteString(styles.heading.Render(label))
		b.WriteString("\n")

		if len(list) == 0 {
			b.WriteString(styles.dim.Render("  no hits"))
			b.WriteString("\n")
			continue
		}
		for rank, hit := range list {
			b.WriteString(fmt.Sprintf("  %d. %s %s - %s\n",
				rank+1,
				styles.good.Render(fmt.Sprintf("%.3f", hit.Score)),
				hit.Artist(),
				hit.SongName(),
			))
		}
	}

	return b.String()
}

// RenderDigestRun summarizes a batch digestion run.
func RenderDigestRun(result *tasks.DigestRunResult) string {
	var b strings.Builder

	b.WriteString(styles.heading.Render("Corpus Digestion"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %d digested\n", styles.good.Render("✓"), result.Digested))
	if result.Skipped > 0 {
		b.WriteString(fmt.Sprintf("  %s %d skipped\n", styles.dim.Render("-"), result.Skipped))
	}
	if result.Failed > 0 {
		b.WriteString(fmt.Sprintf("  %s %d failed\n", styles.bad.Render("✗"), result.Failed))
		for _, res := range result.Results {
			if res.Error != nil {
				b.WriteString(styles.warn.Render(fmt.Sprintf("    %s - %s: %v", res.Ref.Artist, res.Ref.Song, res.Error)))
				b.WriteString("\n")
			}
		}
	}
	if result.ManifestPath != "" {
		b.WriteString(styles.dim.Render("  manifest: " + result.ManifestPath))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderError renders an error in the palette's error style.
func RenderError(err error) string {
	return styles.bad.Render("Error: " + err.Error())
}
