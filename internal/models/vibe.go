package models

import (
	"fmt"
	"unicode/utf8"
)

// Bounds enforced on vibe extraction output, mirrored by the JSON schema.
const (
	VibeLabelMinLen       = 2
	VibeLabelMaxLen       = 50
	VibeExplanationMinLen = 5
)

// VibeItem is a short emotional or sensory label with its explanation.
type VibeItem struct {
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
}

// VibeExtraction is the structured mood analysis of a single image.
//
// Immutable once validated; the request that produced it owns it until persisted.
type VibeExtraction struct {
	Description string     `json:"description"`
	Imagination string     `json:"imagination"`
	Vibes       []VibeItem `json:"vibes"`
}

// Validate checks the field constraints that the schema validator enforces at the
// generation boundary, for values constructed in code rather than parsed.
func (v *VibeExtraction) Validate() error {
	if v.Description == "" {
		return fmt.Errorf("description must not be empty")
	}
	if v.Imagination == "" {
		return fmt.Errorf("imagination must not be empty")
	}
	if len(v.Vibes) == 0 {
		return fmt.Errorf("vibes must contain at least one item")
	}
	for i, item := range v.Vibes {
		n := utf8.RuneCountInString(item.Label)
		if n < VibeLabelMinLen || n > VibeLabelMaxLen {
			return fmt.Errorf("vibes[%d].label must be %d-%d characters", i, VibeLabelMinLen, VibeLabelMaxLen)
		}
		if utf8.RuneCountInString(item.Explanation) < VibeExplanationMinLen {
			return fmt.Errorf("vibes[%d].explanation must be at least %d characters", i, VibeExplanationMinLen)
		}
	}
	return nil
}

// Flatten turns the extraction into one query text per facet: the description,
// the imagination, then one "label - explanation" line per vibe item.
//
// The result always has length 2 + len(Vibes).
func (v *VibeExtraction) Flatten() []string {
	texts := make([]string, 0, 2+len(v.Vibes))
	texts = append(texts, v.Description, v.Imagination)
	for _, item := range v.Vibes {
		texts = append(texts, fmt.Sprintf("%s - %s", item.Label, item.Explanation))
	}
	return texts
}
