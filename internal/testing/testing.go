// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/moodlist/internal/models"
)

// MockGenerator is a scripted test double for [services.Generator]. Each call
// pops the next response; when the script runs out it repeats the last entry.
type MockGenerator struct {
	mu        sync.Mutex
	Responses []string
	Errs      []error
	Prompts   []string
	calls     int
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, image *models.Image, temperature float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	i := m.calls
	m.calls++

	if len(m.Errs) > 0 {
		if i >= len(m.Errs) {
			i = len(m.Errs) - 1
		}
		if err := m.Errs[i]; err != nil {
			return "", err
		}
	}
	if len(m.Responses) == 0 {
		return "", errors.New("mock generator: no responses scripted")
	}
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	return m.Responses[i], nil
}

func (m *MockGenerator) Name() string { return "mock-generator" }

// Calls returns how many times Generate ran.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockEmbedder is a test double for [services.Embedder] producing unit vectors.
type MockEmbedder struct {
	Dim int
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	dim := m.Dim
	if dim <= 0 {
		dim = 4
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, dim)
		v[0] = 1
		vectors[i] = v
	}
	return vectors, nil
}

func (m *MockEmbedder) Dimension() int {
	if m.Dim <= 0 {
		return 4
	}
	return m.Dim
}

func (m *MockEmbedder) Model() string { return "mock-embedding-model" }

// MockCatalog is a test double for [services.Catalog] keyed by "song|artist".
type MockCatalog struct {
	Tracks map[string]*models.Track
	Err    error
}

func (m *MockCatalog) SearchTrack(ctx context.Context, song, artist string) (*models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if track, ok := m.Tracks[song+"|"+artist]; ok {
		copied := *track
		return &copied, nil
	}
	return nil, fmt.Errorf("track not found: %s - %s", artist, song)
}

func (m *MockCatalog) Name() string { return "mock-catalog" }

// MockCommentSource is a test double for [services.CommentSource] returning a
// fixed pair of comments per song.
type MockCommentSource struct{}

func (m *MockCommentSource) Comments(ctx context.Context, song, artist string, maxComments int) ([]models.Comment, error) {
	return []models.Comment{
		{Song: song, Artist: artist, VideoID: "vid-1", Text: fmt.Sprintf("%s is on repeat all week", song)},
		{Song: song, Artist: artist, VideoID: "vid-1", Text: fmt.Sprintf("%s never misses", artist)},
	}, nil
}

func (m *MockCommentSource) Name() string { return "mock-comments" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
