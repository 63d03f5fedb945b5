package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Generation  GenerationConfig  `toml:"generation"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Corpus      CorpusConfig      `toml:"corpus"`
	Search      SearchConfig      `toml:"search"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	OpenAI  OpenAIConfig  `toml:"openai"`
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
	Qdrant  QdrantConfig  `toml:"qdrant"`
}

// OpenAIConfig contains OpenAI API credentials and model selection.
type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
}

// SpotifyConfig contains Spotify API credentials for catalog lookups.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// YouTubeConfig contains the YouTube Data API key used for comment scraping.
type YouTubeConfig struct {
	APIKey string `toml:"api_key"`
}

// QdrantConfig contains connection settings for the remote vector index.
type QdrantConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	APIKey     string `toml:"api_key"`
	UseTLS     bool   `toml:"use_tls"`
	Collection string `toml:"collection"`
}

// GenerationConfig bounds structured generation calls.
type GenerationConfig struct {
	Temperature    float64 `toml:"temperature"`
	MaxAttempts    int     `toml:"max_attempts"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Timeout returns the per-call backend timeout as a [time.Duration].
func (g GenerationConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// RetrievalConfig controls similarity search behavior.
type RetrievalConfig struct {
	TopK      int `toml:"top_k"`
	Dimension int `toml:"dimension"`
}

// CorpusConfig controls the offline corpus build pipeline.
type CorpusConfig struct {
	Root            string  `toml:"root"`
	ChunkSize       int     `toml:"chunk_size"`
	ChunkOverlap    int     `toml:"chunk_overlap"`
	EmbedBatchSize  int     `toml:"embed_batch_size"`
	UpsertBatchSize int     `toml:"upsert_batch_size"`
	MaxComments     int     `toml:"max_comments"`
	Workers         int     `toml:"workers"`
	RateLimit       float64 `toml:"rate_limit"`
}

// SearchConfig contains web-search enrichment settings.
// Endpoint is a SearxNG-compatible JSON search endpoint; enrichment is skipped when empty.
type SearchConfig struct {
	Endpoint       string `toml:"endpoint"`
	QueriesPerSong int    `toml:"queries_per_song"`
	MaxResults     int    `toml:"max_results"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
