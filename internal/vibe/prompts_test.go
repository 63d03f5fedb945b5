package vibe

import (
	"strings"
	"testing"

	"github.com/desertthunder/moodlist/internal/models"
)

func sampleExtraction() *models.VibeExtraction {
	return &models.VibeExtraction{
		Description: "A dim cafe at dusk.",
		Imagination: "Waiting out the storm.",
		Vibes: []models.VibeItem{
			{Label: "rainy solitude", Explanation: "Empty seats and wet glass."},
			{Label: "warm refuge", Explanation: "Lamplight against the cold outside."},
		},
	}
}

func TestPrompts(t *testing.T) {
	t.Run("BuildPlaylistPrompt", func(t *testing.T) {
		prompt := BuildPlaylistPrompt(sampleExtraction())

		if strings.Contains(prompt, inputPlaceholder) {
			t.Error("expected [INPUT] placeholder to be substituted")
		}
		for _, want := range []string{
			"A dim cafe at dusk.",
			"Waiting out the storm.",
			"rainy solitude - Empty seats and wet glass.",
			"warm refuge - Lamplight against the cold outside.",
		} {
			if !strings.Contains(prompt, want) {
				t.Errorf("expected prompt to contain %q", want)
			}
		}
	})

	t.Run("BuildPlaylistPromptRAG", func(t *testing.T) {
		pool := [][]models.ScoredChunk{
			{
				{Score: 0.9, Payload: map[string]any{
					models.MetaSongName: "Holocene",
					models.MetaArtist:   "Bon Iver",
					models.MetaContent:  "Hushed and glacial.",
				}},
				{Score: 0.8, Payload: map[string]any{
					models.MetaSongName: "Re: Stacks",
					models.MetaArtist:   "Bon Iver",
					models.MetaContent:  "Bare guitar confession.",
				}},
			},
			{
				// Duplicate hit retrieved by a second query text.
				{Score: 0.7, Payload: map[string]any{
					models.MetaSongName: "Holocene",
					models.MetaArtist:   "Bon Iver",
					models.MetaContent:  "Hushed and glacial.",
				}},
			},
		}

		prompt := BuildPlaylistPromptRAG(sampleExtraction(), pool)

		if strings.Contains(prompt, inputPlaceholder) {
			t.Error("expected [INPUT] placeholder to be substituted")
		}
		if !strings.Contains(prompt, "candidate songs:") {
			t.Error("expected a candidate pool section")
		}
		if got := strings.Count(prompt, "Hushed and glacial."); got != 1 {
			t.Errorf("expected duplicate candidates collapsed to 1 occurrence, got %d", got)
		}
		if !strings.Contains(prompt, "Bon Iver - Re: Stacks: Bare guitar confession.") {
			t.Error("expected candidate line with artist, song, and chunk text")
		}
	})

	t.Run("BuildDigestionPrompt", func(t *testing.T) {
		comments := []models.Comment{
			{Text: "this song saved my 2am drives"},
			{Text: ""},
			{Text: "pure nostalgia"},
		}

		prompt := BuildDigestionPrompt(comments)

		if strings.Contains(prompt, commentsPlaceholder) {
			t.Error("expected [COMMENTS] placeholder to be substituted")
		}
		if !strings.Contains(prompt, "this song saved my 2am drives"+commentSeparator+"pure nostalgia") {
			t.Error("expected empty comments dropped and remaining joined by separator")
		}
	})
}
