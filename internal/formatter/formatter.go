// package formatter provides functions to export generated playlists to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// Format identifiers accepted by WritePlaylistExport.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// ExportToJSON marshals the playlist, with the vibe extraction when present,
// as indented JSON.
func ExportToJSON(playlist *models.Playlist, vibe *models.VibeExtraction) ([]byte, error) {
	payload := struct {
		VibeExtraction *models.VibeExtraction `json:"vibe_extraction,omitempty"`
		Playlist       *models.Playlist       `json:"playlist"`
	}{VibeExtraction: vibe, Playlist: playlist}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal playlist: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts a playlist to CSV format with columns: Song, Artist, Vibe, URI, Cover URL
func ExportToCSV(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Song", "Artist", "Vibe", "URI", "Cover URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range playlist.Tracks {
		record := []string{
			track.Song,
			track.Artist,
			track.Vibe,
			track.URI,
			track.CoverURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown, with a vibe section when an
// extraction is provided
func ExportToMarkdown(playlist *models.Playlist, vibe *models.VibeExtraction) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist.Name))

	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(playlist.Tracks)))

	if vibe != nil {
		buf.WriteString("## Vibes\n\n")
		buf.WriteString(fmt.Sprintf("%s\n\n", vibe.Description))
		for _, item := range vibe.Vibes {
			buf.WriteString(fmt.Sprintf("- **%s**: %s\n", item.Label, item.Explanation))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Tracks\n\n")
	for i, track := range playlist.Tracks {
		uriPart := ""
		if track.URI != "" {
			uriPart = fmt.Sprintf(" [%s]", track.URI)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, track.Artist, track.Song, uriPart))
		if track.Vibe != "" {
			buf.WriteString(fmt.Sprintf("   - %s\n", track.Vibe))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlist.Name))
	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(playlist.Tracks)))

	for i, track := range playlist.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Song))
	}

	return buf.Bytes(), nil
}

// WritePlaylistExport renders the playlist in the given format and writes it to
// path, creating parent directories as needed. Returns the written path.
func WritePlaylistExport(playlist *models.Playlist, vibe *models.VibeExtraction, format, path string) (string, error) {
	if playlist == nil {
		return "", fmt.Errorf("%w: playlist is required", shared.ErrInvalidInput)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case FormatCSV:
		data, err = ExportToCSV(playlist)
	case FormatMarkdown:
		data, err = ExportToMarkdown(playlist, vibe)
	case FormatText:
		data, err = ExportToText(playlist)
	case FormatJSON, "":
		data, err = ExportToJSON(playlist, vibe)
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
