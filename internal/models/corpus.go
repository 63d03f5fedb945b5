package models

// Metadata keys attached to every corpus chunk.
const (
	MetaSongName = "song_name"
	MetaArtist   = "artist"
	MetaVideoIDs = "youtube_video_ids"
	MetaContent  = "content"
	MetaSource   = "source"
)

// Comment is one scraped YouTube comment with its provenance.
type Comment struct {
	Song    string `json:"song"`
	Artist  string `json:"artist"`
	VideoID string `json:"video_id"`
	Text    string `json:"text"`
}

// SongRef identifies a song to digest, one line of the corpus input file.
type SongRef struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// Chunk is a bounded span of digested text with provenance metadata, the unit of
// embedding and retrieval. Serialized one-per-line into chunks.jsonl.
type Chunk struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// ChunkEmbedding is one embedded chunk: its deterministic ID, vector, and payload.
//
// The artifact set is a single []ChunkEmbedding in memory so the ID/vector/payload
// correspondence cannot drift; parallel columnar files exist only on disk.
type ChunkEmbedding struct {
	ID     uint64
	Vector []float32
	Meta   map[string]any
}

// FileStat records the size and checksum of one artifact file.
type FileStat struct {
	Bytes int64  `json:"bytes"`
	CRC32 string `json:"crc32"`
}

// Manifest describes one embedding artifact build. Downstream consumers check it
// before trusting the artifact files.
type Manifest struct {
	Model string              `json:"model"`
	Dim   int                 `json:"dim"`
	Count int                 `json:"count"`
	Files map[string]FileStat `json:"files"`
}

// ScoredChunk is one retrieval hit: a similarity score plus the stored chunk payload.
type ScoredChunk struct {
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (s ScoredChunk) payloadString(key string) string {
	if s.Payload == nil {
		return ""
	}
	if v, ok := s.Payload[key].(string); ok {
		return v
	}
	return ""
}

// SongName returns the payload's song name, or "" when absent.
func (s ScoredChunk) SongName() string { return s.payloadString(MetaSongName) }

// Artist returns the payload's artist, or "" when absent.
func (s ScoredChunk) Artist() string { return s.payloadString(MetaArtist) }

// Content returns the chunk text stored in the payload, or "" when absent.
func (s ScoredChunk) Content() string { return s.payloadString(MetaContent) }

// SourceIDs tracks known source identifiers per platform for a song.
type SourceIDs struct {
	YouTube []string `json:"youtube,omitempty"`
}

// SongMeta is the per-song meta.json record in the corpus tree.
type SongMeta struct {
	SongName    string    `json:"song_name"`
	Artist      string    `json:"artist"`
	Sources     SourceIDs `json:"sources"`
	CreatedAt   string    `json:"created_at,omitempty"`
	LastUpdated string    `json:"last_updated,omitempty"`
}

// DigestionRecord is the digestion/summary.json provenance record written next to
// each digested summary.md.
type DigestionRecord struct {
	SongName          string    `json:"song_name"`
	Artist            string    `json:"artist"`
	Model             string    `json:"model"`
	CreatedAt         string    `json:"created_at"`
	CommentCount      int       `json:"comment_count"`
	Sources           SourceIDs `json:"sources"`
	PromptFingerprint string    `json:"prompt_fingerprint"`
}
