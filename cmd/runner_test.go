package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/shared"
	tu "github.com/desertthunder/moodlist/internal/testing"
	"github.com/urfave/cli/v3"
)

const testVibeJSON = `{
	"description": "A rain-soaked street at dusk with neon reflections.",
	"imagination": "Walking home alone while the city hums around you.",
	"vibes": [
		{"label": "melancholy", "explanation": "muted colors and empty sidewalks"},
		{"label": "neon glow", "explanation": "signs bleeding into wet asphalt"}
	]
}`

const testPlaylistJSON = `{
	"name": "Dusk Circuit",
	"description": "Songs for rain-slicked evening streets.",
	"tracks": [
		{"song": "Nightcall", "artist": "Kavinsky", "vibe": "synth headlights in the rain"},
		{"song": "Midnight City", "artist": "M83", "vibe": "city lights swelling into chorus"}
	]
}`

// testConfig returns a config pointing at throwaway paths.
func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "test.db")
	config.Corpus.Root = filepath.Join(dir, "corpus")
	return config
}

// writeTestImage writes a fake photo and returns its path.
func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sunset.jpg")
	if err := os.WriteFile(path, []byte("fake jpeg bytes"), 0644); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return path
}

// runCommand executes one CLI invocation against the runner's command tree.
func runCommand(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "moodlist",
		Commands: r.register(),
	}
	return app.Run(context.Background(), append([]string{"moodlist"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			gen := &tu.MockGenerator{}
			embedder := &tu.MockEmbedder{}
			catalog := &tu.MockCatalog{}

			runner := NewRunner(RunnerOpts{
				Config:    config,
				Logger:    logger,
				Output:    output,
				Generator: gen,
				Embedder:  embedder,
				Catalog:   catalog,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.generator != gen {
				t.Error("expected generator to be set")
			}
			if runner.embedder != embedder {
				t.Error("expected embedder to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config: nil,
			})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "playlist", "corpus", "search", "serve"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("expected command %d to be %s, got %s", i, name, commands[i].Name)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("hello")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlainln("done"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if output.String() != "\ndone\n" {
			t.Errorf("expected newline-wrapped text, got %q", output.String())
		}
	})
}

func TestPlaylistActions(t *testing.T) {
	catalog := &tu.MockCatalog{
		Tracks: map[string]*models.Track{
			"Nightcall|Kavinsky": {Song: "Nightcall", Artist: "Kavinsky", URI: "spotify:track:nightcall"},
			"Midnight City|M83":  {Song: "Midnight City", Artist: "M83", URI: "spotify:track:midnightcity"},
		},
	}

	t.Run("Generate Renders Playlist", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:    testConfig(t),
			Generator: &tu.MockGenerator{Responses: []string{testVibeJSON, testPlaylistJSON}},
			Catalog:   catalog,
			Output:    output,
			Logger:    shared.NewLogger(bytes.NewBuffer(nil)),
		})

		err := runCommand(t, runner, "playlist", "generate", "--image", writeTestImage(t), "--plain", "--no-save")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "Dusk Circuit") {
			t.Errorf("expected playlist name in output, got %q", result)
		}
		if !strings.Contains(result, "spotify:track:nightcall") {
			t.Errorf("expected resolved URI in output, got %q", result)
		}
	})

	t.Run("Generate Records Interaction", func(t *testing.T) {
		config := testConfig(t)
		runner := NewRunner(RunnerOpts{
			Config:    config,
			Generator: &tu.MockGenerator{Responses: []string{testVibeJSON, testPlaylistJSON}},
			Catalog:   catalog,
			Output:    &bytes.Buffer{},
			Logger:    shared.NewLogger(bytes.NewBuffer(nil)),
		})

		err := runCommand(t, runner, "playlist", "generate", "--image", writeTestImage(t), "--plain")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		rows, err := repositories.NewInteractionRepository(db).List(map[string]any{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 interaction, got %d", len(rows))
		}
		if rows[0].ImageFilename() != "sunset.jpg" {
			t.Errorf("expected image filename recorded, got %s", rows[0].ImageFilename())
		}
		if rows[0].Grounded() {
			t.Error("expected plain run to be recorded as ungrounded")
		}
	})

	t.Run("Generate Exports To File", func(t *testing.T) {
		dir := t.TempDir()
		exportPath := filepath.Join(dir, "out", "playlist.md")
		runner := NewRunner(RunnerOpts{
			Config:    testConfig(t),
			Generator: &tu.MockGenerator{Responses: []string{testVibeJSON, testPlaylistJSON}},
			Output:    &bytes.Buffer{},
			Logger:    shared.NewLogger(bytes.NewBuffer(nil)),
		})

		err := runCommand(t, runner, "playlist", "generate", "--image", writeTestImage(t),
			"--plain", "--no-save", "--export", exportPath, "--format", "markdown")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, exportPath)
		content := tu.MustReadFile(t, exportPath)
		if !strings.Contains(content, "# Dusk Circuit") {
			t.Errorf("expected markdown heading, got %q", content)
		}
	})

	t.Run("Export Reads Stored Interaction", func(t *testing.T) {
		config := testConfig(t)
		runner := NewRunner(RunnerOpts{
			Config:    config,
			Generator: &tu.MockGenerator{Responses: []string{testVibeJSON, testPlaylistJSON}},
			Output:    &bytes.Buffer{},
			Logger:    shared.NewLogger(bytes.NewBuffer(nil)),
		})

		if err := runCommand(t, runner, "playlist", "generate", "--image", writeTestImage(t), "--plain"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		rows, err := repositories.NewInteractionRepository(db).List(map[string]any{})
		db.Close()
		if err != nil || len(rows) != 1 {
			t.Fatalf("expected 1 stored interaction, got %d (%v)", len(rows), err)
		}

		outputPath := filepath.Join(t.TempDir(), "export.csv")
		err = runCommand(t, runner, "playlist", "export", "--id", rows[0].ID(), "--format", "csv", "--output", outputPath)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		content := tu.MustReadFile(t, outputPath)
		if !strings.Contains(content, "Nightcall") {
			t.Errorf("expected track in CSV export, got %q", content)
		}
	})

	t.Run("Export Rejects Unknown ID", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config: testConfig(t),
			Output: &bytes.Buffer{},
			Logger: shared.NewLogger(bytes.NewBuffer(nil)),
		})

		err := runCommand(t, runner, "playlist", "export", "--id", "no-such-id")
		if err == nil {
			t.Fatal("expected error for unknown interaction")
		}
	})

	t.Run("History Lists Interactions", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:    config,
			Generator: &tu.MockGenerator{Responses: []string{testVibeJSON, testPlaylistJSON}},
			Output:    output,
			Logger:    shared.NewLogger(bytes.NewBuffer(nil)),
		})

		if err := runCommand(t, runner, "playlist", "generate", "--image", writeTestImage(t), "--plain"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		output.Reset()
		if err := runCommand(t, runner, "playlist", "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(output.String(), "sunset.jpg") {
			t.Errorf("expected recorded image in history, got %q", output.String())
		}
	})

	t.Run("History With Empty Database", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config: testConfig(t),
			Output: output,
			Logger: shared.NewLogger(bytes.NewBuffer(nil)),
		})

		if err := runCommand(t, runner, "playlist", "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(output.String(), "No playlists recorded") {
			t.Errorf("expected empty message, got %q", output.String())
		}
	})

	t.Run("Generate Without Generator Fails", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config: testConfig(t),
			Output: &bytes.Buffer{},
			Logger: shared.NewLogger(bytes.NewBuffer(nil)),
		})

		err := runCommand(t, runner, "playlist", "generate", "--image", writeTestImage(t), "--plain", "--no-save")
		if err == nil {
			t.Fatal("expected error without a generator")
		}
	})

	t.Run("Generate With Missing Image Fails", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config:    testConfig(t),
			Generator: &tu.MockGenerator{Responses: []string{testVibeJSON, testPlaylistJSON}},
			Output:    &bytes.Buffer{},
			Logger:    shared.NewLogger(bytes.NewBuffer(nil)),
		})

		err := runCommand(t, runner, "playlist", "generate", "--image", "/nonexistent/photo.jpg", "--plain", "--no-save")
		if err == nil {
			t.Fatal("expected error for missing image file")
		}
	})
}

func TestCorpusActions(t *testing.T) {
	writeRefs := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "songs.jsonl")
		lines := `{"song": "Nightcall", "artist": "Kavinsky"}
{"song": "Weightless", "artist": "Marconi Union"}
`
		if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return path
	}

	digestSummary := `## Vibe

Hazy synthwave drive at night.

## Activities

Late drives, night walks.

## Summarization

Listeners describe headlights and rain.`

	t.Run("Digest Processes Input File", func(t *testing.T) {
		config := testConfig(t)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:    config,
			Generator: &tu.MockGenerator{Responses: []string{digestSummary}},
			Comments:  &tu.MockCommentSource{},
			Output:    output,
			Logger:    shared.NewLogger(bytes.NewBuffer(nil)),
		})

		err := runCommand(t, runner, "corpus", "digest", "--input", writeRefs(t), "--workers", "2", "--rate", "1000")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(output.String(), "2 digested") {
			t.Errorf("expected digest summary, got %q", output.String())
		}
		tu.AssertFileExists(t, filepath.Join(config.Corpus.Root, "processed_songs.jsonl"))
	})

	t.Run("Digest Without Comment Source Fails", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config:    testConfig(t),
			Generator: &tu.MockGenerator{Responses: []string{digestSummary}},
			Output:    &bytes.Buffer{},
			Logger:    shared.NewLogger(bytes.NewBuffer(nil)),
		})

		err := runCommand(t, runner, "corpus", "digest", "--input", writeRefs(t))
		if err == nil {
			t.Fatal("expected error without a comment source")
		}
	})

	t.Run("Digest Rejects Empty Input", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.jsonl")
		if err := os.WriteFile(path, []byte("\n"), 0644); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		runner := NewRunner(RunnerOpts{
			Config:    testConfig(t),
			Generator: &tu.MockGenerator{Responses: []string{digestSummary}},
			Comments:  &tu.MockCommentSource{},
			Output:    &bytes.Buffer{},
			Logger:    shared.NewLogger(bytes.NewBuffer(nil)),
		})

		err := runCommand(t, runner, "corpus", "digest", "--input", path)
		if err == nil {
			t.Fatal("expected error for empty input file")
		}
	})
}

func TestExportExtension(t *testing.T) {
	cases := map[string]string{
		"json":     "json",
		"csv":      "csv",
		"markdown": "md",
		"txt":      "txt",
		"unknown":  "json",
	}
	for format, want := range cases {
		if got := exportExtension(format); got != want {
			t.Errorf("exportExtension(%q) = %q, want %q", format, got, want)
		}
	}
}
