package corpus

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
)

// Artifact file names inside an artifact directory.
const (
	ChunksFileName   = "chunks.jsonl"
	VectorsFileName  = "vectors.bin"
	ManifestFileName = "manifest.json"
)

// DefaultEmbedBatchSize bounds texts per embedding request.
const DefaultEmbedBatchSize = 64

// chunkRow is one line of chunks.jsonl.
type chunkRow struct {
	ID      uint64         `json:"id"`
	Payload map[string]any `json:"payload"`
}

// ArtifactBuilder embeds a digested corpus into an on-disk artifact set:
// chunk payloads, packed vectors, and a checksummed manifest.
type ArtifactBuilder struct {
	embedder  services.Embedder
	splitter  *Splitter
	layout    Layout
	batchSize int
	logger    *log.Logger
}

// NewArtifactBuilder creates an ArtifactBuilder.
func NewArtifactBuilder(embedder services.Embedder, splitter *Splitter, layout Layout, batchSize int, logger *log.Logger) (*ArtifactBuilder, error) {
	if embedder == nil || splitter == nil {
		return nil, fmt.Errorf("%w: artifact builder needs an embedder and a splitter", shared.ErrMissingConfig)
	}
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ArtifactBuilder{
		embedder:  embedder,
		splitter:  splitter,
		layout:    layout,
		batchSize: batchSize,
		logger:    logger,
	}, nil
}

// CollectChunks splits every digested summary into chunks with stable IDs,
// deduplicated and sorted by ID.
func (b *ArtifactBuilder) CollectChunks() ([]models.ChunkEmbedding, error) {
	songs, err := b.layout.LoadDigested()
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]models.ChunkEmbedding)
	for _, song := range songs {
		metadata := map[string]any{
			models.MetaSongName: song.Ref.Song,
			models.MetaArtist:   song.Ref.Artist,
			models.MetaVideoIDs: song.VideoIDs,
			models.MetaSource:   "youtube_comments_digestion",
		}

		for _, chunk := range b.splitter.Split(song.Summary, metadata) {
			id := ChunkID(song.Ref.Song, chunk.Content)

			payload := make(map[string]any, len(chunk.Metadata)+1)
			for k, v := range chunk.Metadata {
				payload[k] = v
			}
			payload[models.MetaContent] = chunk.Content

			byID[id] = models.ChunkEmbedding{ID: id, Meta: payload}
		}
	}

	rows := make([]models.ChunkEmbedding, 0, len(byID))
	for _, row := range byID {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	return rows, nil
}

// Build embeds the digested corpus and writes the artifact set to outDir.
// Writing is all-or-nothing: files land under temporary names and are renamed
// only after every one is complete.
func (b *ArtifactBuilder) Build(ctx context.Context, outDir string) (*models.Manifest, error) {
	rows, err := b.CollectChunks()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no digested songs to embed", shared.ErrInvalidInput)
	}

	dim := b.embedder.Dimension()
	for start := 0; start < len(rows); start += b.batchSize {
		end := min(start+b.batchSize, len(rows))

		texts := make([]string, 0, end-start)
		for _, row := range rows[start:end] {
			texts = append(texts, row.Meta[models.MetaContent].(string))
		}

		vectors, err := b.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch at %d: %w", start, err)
		}

		for i, vec := range vectors {
			if len(vec) != dim {
				return nil, fmt.Errorf("%w: vector dim %d, expected %d", shared.ErrEmbeddingFailed, len(vec), dim)
			}
			rows[start+i].Vector = vec
		}

		b.logger.Debug("embedded batch", "done", end, "total", len(rows))
	}

	manifest, err := writeArtifacts(outDir, rows, b.embedder.Model(), dim)
	if err != nil {
		return nil, err
	}

	b.logger.Info("built embedding artifacts", "dir", outDir, "chunks", manifest.Count, "dim", dim)
	return manifest, nil
}

func writeArtifacts(outDir string, rows []models.ChunkEmbedding, model string, dim int) (*models.Manifest, error) {
	if err := os.MkdirAll(outDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}

	chunksTmp := filepath.Join(outDir, ChunksFileName+".tmp")
	vectorsTmp := filepath.Join(outDir, VectorsFileName+".tmp")

	if err := writeChunkRows(chunksTmp, rows); err != nil {
		return nil, err
	}
	if err := writeVectors(vectorsTmp, rows, dim); err != nil {
		os.Remove(chunksTmp)
		return nil, err
	}

	manifest := &models.Manifest{
		Model: model,
		Dim:   dim,
		Count: len(rows),
		Files: make(map[string]models.FileStat, 2),
	}
	for tmp, name := range map[string]string{chunksTmp: ChunksFileName, vectorsTmp: VectorsFileName} {
		stat, err := fileStat(tmp)
		if err != nil {
			os.Remove(chunksTmp)
			os.Remove(vectorsTmp)
			return nil, err
		}
		manifest.Files[name] = stat
	}

	if err := os.Rename(chunksTmp, filepath.Join(outDir, ChunksFileName)); err != nil {
		return nil, fmt.Errorf("failed to finalize chunks file: %w", err)
	}
	if err := os.Rename(vectorsTmp, filepath.Join(outDir, VectorsFileName)); err != nil {
		return nil, fmt.Errorf("failed to finalize vectors file: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, ManifestFileName), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	return manifest, nil
}

func writeChunkRows(path string, rows []models.ChunkEmbedding) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chunks file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(chunkRow{ID: row.ID, Payload: row.Meta}); err != nil {
			return fmt.Errorf("failed to write chunk row: %w", err)
		}
	}
	return w.Flush()
}

// writeVectors packs vectors as little-endian float32, row-major, in chunk row
// order.
func writeVectors(path string, rows []models.ChunkEmbedding, dim int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create vectors file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	buf := make([]byte, 4)
	for _, row := range rows {
		if len(row.Vector) != dim {
			return fmt.Errorf("%w: row %d has dim %d, expected %d", shared.ErrConsistency, row.ID, len(row.Vector), dim)
		}
		for _, v := range row.Vector {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("failed to write vector: %w", err)
			}
		}
	}
	return w.Flush()
}

func fileStat(path string) (models.FileStat, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.FileStat{}, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	hash := crc32.NewIEEE()
	n, err := io.Copy(hash, f)
	if err != nil {
		return models.FileStat{}, fmt.Errorf("failed to checksum %s: %w", filepath.Base(path), err)
	}

	return models.FileStat{Bytes: n, CRC32: fmt.Sprintf("%08x", hash.Sum32())}, nil
}

// LoadArtifacts reads an artifact set back, verifying the manifest checksums
// and the cross-file row counts. Any mismatch is a hard [shared.ErrConsistency]
// failure; a half-written artifact set must never be served.
func LoadArtifacts(dir string) ([]models.ChunkEmbedding, *models.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest models.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if manifest.Dim <= 0 || manifest.Count <= 0 {
		return nil, nil, fmt.Errorf("%w: manifest has dim %d, count %d", shared.ErrConsistency, manifest.Dim, manifest.Count)
	}

	for name, want := range manifest.Files {
		got, err := fileStat(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, err
		}
		if got != want {
			return nil, nil, fmt.Errorf("%w: %s is %d bytes crc %s, manifest says %d bytes crc %s",
				shared.ErrConsistency, name, got.Bytes, got.CRC32, want.Bytes, want.CRC32)
		}
	}

	rows, err := readChunkRows(filepath.Join(dir, ChunksFileName))
	if err != nil {
		return nil, nil, err
	}
	if len(rows) != manifest.Count {
		return nil, nil, fmt.Errorf("%w: %d chunk rows, manifest says %d", shared.ErrConsistency, len(rows), manifest.Count)
	}

	vectors, err := readVectors(filepath.Join(dir, VectorsFileName), manifest.Count, manifest.Dim)
	if err != nil {
		return nil, nil, err
	}

	for i := range rows {
		rows[i].Vector = vectors[i]
	}

	return rows, &manifest, nil
}

func readChunkRows(path string) ([]models.ChunkEmbedding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunks file: %w", err)
	}
	defer f.Close()

	var rows []models.ChunkEmbedding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var row chunkRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			return nil, fmt.Errorf("failed to decode chunk row: %w", err)
		}
		rows = append(rows, models.ChunkEmbedding{ID: row.ID, Meta: row.Payload})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks file: %w", err)
	}

	return rows, nil
}

func readVectors(path string, count, dim int) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vectors file: %w", err)
	}
	if len(data) != count*dim*4 {
		return nil, fmt.Errorf("%w: vectors file is %d bytes, expected %d", shared.ErrConsistency, len(data), count*dim*4)
	}

	vectors := make([][]float32, count)
	offset := 0
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
			offset += 4
		}
		vectors[i] = vec
	}
	return vectors, nil
}
