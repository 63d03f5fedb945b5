package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/moodlist/internal/formatter"
	"github.com/desertthunder/moodlist/internal/index"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	"github.com/desertthunder/moodlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// PlaylistGenerate analyzes a photo and generates a mood-matched playlist.
func (r *Runner) PlaylistGenerate(ctx context.Context, cmd *cli.Command) error {
	imagePath := cmd.String("image")
	plain := cmd.Bool("plain")
	remote := cmd.Bool("remote")
	artifactsDir := cmd.String("artifacts")
	artists := cmd.StringSlice("artist")
	exportPath := cmd.String("export")
	format := cmd.String("format")
	useJSON := cmd.Bool("json")
	noSave := cmd.Bool("no-save")

	file, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img := &models.Image{Reader: file, Filename: filepath.Base(imagePath)}

	engine, err := r.moodEngine(ctx, remote, artifactsDir, plain)
	if err != nil {
		return err
	}
	if len(artists) > 0 {
		engine.SetFilter(&index.Filter{Artists: artists})
	}

	r.logger.Info("generating playlist", "image", imagePath, "plain", plain)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := engine.Run(ctx, progressCh, img)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if useJSON {
		if err := r.writeJSON(result, true); err != nil {
			return err
		}
	} else {
		r.writePlain("\n%s\n", ui.RenderVibe(result.Vibe))
		r.writePlain("%s\n", ui.RenderPlaylist(result.Playlist))
		if result.DroppedCount > 0 {
			r.writePlain("%d track(s) dropped: not found in the catalog\n", result.DroppedCount)
		}
	}

	if exportPath != "" {
		written, err := formatter.WritePlaylistExport(result.Playlist, result.Vibe, format, exportPath)
		if err != nil {
			return err
		}
		r.writePlain("Playlist exported to: %s\n", written)
	}

	if !noSave {
		if err := r.saveInteraction(filepath.Base(imagePath), result); err != nil {
			r.logger.Warn("failed to record interaction", "error", err)
		}
	}

	return nil
}

// saveInteraction records a completed run in the database.
func (r *Runner) saveInteraction(filename string, result *tasks.MoodRunResult) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	vibeJSON, err := json.Marshal(result.Vibe)
	if err != nil {
		return fmt.Errorf("failed to marshal vibe: %w", err)
	}
	playlistJSON, err := json.Marshal(result.Playlist)
	if err != nil {
		return fmt.Errorf("failed to marshal playlist: %w", err)
	}

	interaction := models.NewInteraction(shared.GenerateID(), filename, string(vibeJSON), string(playlistJSON), result.Grounded)

	repo := repositories.NewInteractionRepository(db)
	if err := repo.Create(interaction); err != nil {
		return err
	}

	r.logger.Info("interaction recorded", "id", interaction.ID())
	return nil
}

// PlaylistExport re-exports a stored playlist in the requested format.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	format := cmd.String("format")
	outputPath := cmd.String("output")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewInteractionRepository(db)
	interaction, err := repo.Get(id)
	if err != nil {
		return fmt.Errorf("failed to load interaction %s: %w", id, err)
	}

	var playlist models.Playlist
	if err := json.Unmarshal([]byte(interaction.PlaylistJSON()), &playlist); err != nil {
		return fmt.Errorf("failed to parse stored playlist: %w", err)
	}

	var extraction *models.VibeExtraction
	if interaction.VibeJSON() != "" {
		extraction = &models.VibeExtraction{}
		if err := json.Unmarshal([]byte(interaction.VibeJSON()), extraction); err != nil {
			return fmt.Errorf("failed to parse stored vibe: %w", err)
		}
	}

	if outputPath == "" {
		outputPath = "playlist." + exportExtension(format)
	}

	written, err := formatter.WritePlaylistExport(&playlist, extraction, format, outputPath)
	if err != nil {
		return err
	}

	r.writePlain("Playlist exported to: %s\n", written)
	return nil
}

// PlaylistHistory lists recorded interactions, optionally scoped to a session.
func (r *Runner) PlaylistHistory(ctx context.Context, cmd *cli.Command) error {
	session := cmd.String("session")
	useJSON := cmd.Bool("json")

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewInteractionRepository(db)

	criteria := map[string]any{}
	if session != "" {
		criteria["session_id"] = session
	}

	interactions, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if useJSON {
		rows := make([]map[string]any, 0, len(interactions))
		for _, it := range interactions {
			rows = append(rows, map[string]any{
				"id":         it.ID(),
				"session_id": it.SessionID(),
				"image":      it.ImageFilename(),
				"grounded":   it.Grounded(),
				"created_at": it.CreatedAt(),
			})
		}
		return r.writeJSON(rows, true)
	}

	if len(interactions) == 0 {
		r.writePlain("No playlists recorded.\n")
		return nil
	}

	for i, it := range interactions {
		grounding := "plain"
		if it.Grounded() {
			grounding = "grounded"
		}
		r.writePlain("%d. %s  %s  (%s, %s)\n", i+1, it.ID(), it.ImageFilename(), grounding, it.CreatedAt().Format("2006-01-02 15:04"))
	}

	return nil
}

// exportExtension maps a format name to its file extension.
func exportExtension(format string) string {
	switch format {
	case formatter.FormatCSV:
		return "csv"
	case formatter.FormatMarkdown:
		return "md"
	case formatter.FormatText:
		return "txt"
	default:
		return "json"
	}
}
