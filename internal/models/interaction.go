package models

import (
	"fmt"
	"time"
)

// Interaction is the persisted record of one generated playlist: the session that
// requested it, the uploaded image's stored filename, and the vibe and playlist
// JSON blobs as returned to the caller.
type Interaction struct {
	id            string
	sessionID     string
	imageFilename string
	vibeJSON      string
	playlistJSON  string
	grounded      bool
	createdAt     time.Time
	updatedAt     time.Time
}

// NewInteraction creates an Interaction with timestamps set to now.
// The ID is assigned by the repository on Create.
func NewInteraction(sessionID, imageFilename, vibeJSON, playlistJSON string, grounded bool) *Interaction {
	now := time.Now()
	return &Interaction{
		sessionID:     sessionID,
		imageFilename: imageFilename,
		vibeJSON:      vibeJSON,
		playlistJSON:  playlistJSON,
		grounded:      grounded,
		createdAt:     now,
		updatedAt:     now,
	}
}

func (i *Interaction) ID() string            { return i.id }
func (i *Interaction) SessionID() string     { return i.sessionID }
func (i *Interaction) ImageFilename() string { return i.imageFilename }
func (i *Interaction) VibeJSON() string      { return i.vibeJSON }
func (i *Interaction) PlaylistJSON() string  { return i.playlistJSON }
func (i *Interaction) Grounded() bool        { return i.grounded }
func (i *Interaction) CreatedAt() time.Time  { return i.createdAt }
func (i *Interaction) UpdatedAt() time.Time  { return i.updatedAt }

func (i *Interaction) SetID(id string)          { i.id = id }
func (i *Interaction) SetUpdatedAt(t time.Time) { i.updatedAt = t }
func (i *Interaction) SetTimestamps(c, u time.Time) {
	i.createdAt = c
	i.updatedAt = u
}

// Validate checks that the interaction has the fields the log schema requires.
func (i *Interaction) Validate() error {
	if i.sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if i.vibeJSON == "" {
		return fmt.Errorf("vibe_json is required")
	}
	if i.playlistJSON == "" {
		return fmt.Errorf("playlist_json is required")
	}
	return nil
}
