package models

import (
	"fmt"
	"unicode/utf8"
)

// Bounds enforced on playlist output, mirrored by the JSON schema.
const (
	PlaylistDescriptionMinLen = 5
	TrackVibeMinLen           = 5
)

// Track is a single playlist entry.
//
// Song, Artist and Vibe come from the generator; URI and CoverURL are filled in by
// catalog enrichment and stay empty when no lookup ran.
type Track struct {
	Song     string `json:"song"`
	Artist   string `json:"artist"`
	Vibe     string `json:"vibe"`
	URI      string `json:"uri,omitempty"`
	CoverURL string `json:"cover_url,omitempty"`
}

// Playlist is the generated playlist for one vibe extraction.
type Playlist struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Tracks      []Track `json:"tracks"`
}

// Validate checks the field constraints that the schema validator enforces at the
// generation boundary.
func (p *Playlist) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if utf8.RuneCountInString(p.Description) < PlaylistDescriptionMinLen {
		return fmt.Errorf("description must be at least %d characters", PlaylistDescriptionMinLen)
	}
	if len(p.Tracks) == 0 {
		return fmt.Errorf("tracks must contain at least one item")
	}
	for i, t := range p.Tracks {
		if t.Song == "" || t.Artist == "" {
			return fmt.Errorf("tracks[%d] must have song and artist", i)
		}
		if utf8.RuneCountInString(t.Vibe) < TrackVibeMinLen {
			return fmt.Errorf("tracks[%d].vibe must be at least %d characters", i, TrackVibeMinLen)
		}
	}
	return nil
}
