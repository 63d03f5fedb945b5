package corpus

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/pkoukk/tiktoken-go"
)

// Chunking defaults, in tokens.
const (
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 120
)

// tokenEncoding is the BPE used to measure chunk lengths, matching the
// embedding model's tokenizer family.
const tokenEncoding = "cl100k_base"

// LenFunc measures text length for chunk sizing.
type LenFunc func(string) int

// TiktokenLen returns a LenFunc backed by the cl100k_base BPE.
func TiktokenLen() (LenFunc, error) {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", tokenEncoding, err)
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// RuneLen measures length in runes. Used in tests, where BPE data is overkill.
func RuneLen(text string) int {
	return len([]rune(text))
}

// splitSeparators, most-structural first. The empty string is the terminal
// fallback: split anywhere.
var splitSeparators = []string{
	"\n```",
	"\n###### ",
	"\n##### ",
	"\n#### ",
	"\n### ",
	"\n## ",
	"\n# ",
	"\n\n",
	"\n",
	" ",
	"",
}

// Splitter cuts digested markdown into token-bounded chunks.
//
// A document is first split at h1-h4 headers so a chunk never straddles two
// sections, then each section is recursively split at the most structural
// boundary that still yields pieces under the size limit.
type Splitter struct {
	chunkSize int
	overlap   int
	length    LenFunc
}

// NewSplitter creates a Splitter. A nil length function defaults to the
// tiktoken BPE.
func NewSplitter(chunkSize, overlap int, length LenFunc) (*Splitter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
	}
	if length == nil {
		var err error
		length, err = TiktokenLen()
		if err != nil {
			return nil, err
		}
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap, length: length}, nil
}

// section is one header-delimited span of a markdown document.
type section struct {
	headers []string
	body    string
}

// splitMarkdownSections cuts a document at h1-h4 headers, tracking the header
// trail so each section keeps its context.
func splitMarkdownSections(text string) []section {
	lines := strings.Split(text, "\n")

	var sections []section
	trail := make([]string, 0, 4)
	var body []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content != "" {
			sections = append(sections, section{
				headers: append([]string(nil), trail...),
				body:    content,
			})
		}
		body = body[:0]
	}

	for _, line := range lines {
		level := headerLevel(line)
		if level == 0 {
			body = append(body, line)
			continue
		}

		flush()
		trail = trail[:min(level-1, len(trail))]
		trail = append(trail, strings.TrimSpace(line))
	}
	flush()

	if len(sections) == 0 {
		content := strings.TrimSpace(text)
		if content != "" {
			sections = append(sections, section{body: content})
		}
	}

	return sections
}

// headerLevel returns 1-4 for an h1-h4 line, 0 otherwise.
func headerLevel(line string) int {
	trimmed := strings.TrimLeft(line, "#")
	level := len(line) - len(trimmed)
	if level < 1 || level > 4 || !strings.HasPrefix(trimmed, " ") {
		return 0
	}
	return level
}

// Split cuts a digested markdown document into chunks carrying the given
// metadata. Header context is prepended to each chunk's content.
func (s *Splitter) Split(text string, metadata map[string]any) []models.Chunk {
	var chunks []models.Chunk

	for _, sec := range splitMarkdownSections(text) {
		prefix := ""
		if len(sec.headers) > 0 {
			prefix = strings.Join(sec.headers, "\n") + "\n"
		}

		for _, piece := range s.splitRecursive(sec.body, splitSeparators) {
			content := prefix + piece
			meta := make(map[string]any, len(metadata))
			for k, v := range metadata {
				meta[k] = v
			}
			chunks = append(chunks, models.Chunk{Content: content, Metadata: meta})
		}
	}

	return chunks
}

// splitRecursive splits text at the first separator that occurs in it, recursing
// into oversized pieces with the remaining separators, then merges small pieces
// back into chunks under the size limit with overlap.
func (s *Splitter) splitRecursive(text string, separators []string) []string {
	if s.length(text) <= s.chunkSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	sep := ""
	rest := separators
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = splitEvery(text, s.chunkSize, s.length)
	} else {
		parts := strings.Split(text, sep)
		for i, part := range parts {
			if i > 0 {
				// Keep the separator so structure survives reassembly.
				part = sep + part
			}
			if strings.TrimSpace(part) == "" {
				continue
			}
			if s.length(part) > s.chunkSize {
				pieces = append(pieces, s.splitRecursive(part, rest)...)
			} else {
				pieces = append(pieces, part)
			}
		}
	}

	return s.merge(pieces)
}

// merge packs pieces into chunks of at most chunkSize, carrying overlap tokens
// of trailing context into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(current, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		// Retain trailing pieces as overlap for the next chunk.
		var kept []string
		keptLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			pieceLen := s.length(current[i])
			if keptLen+pieceLen > s.overlap {
				break
			}
			kept = append([]string{current[i]}, kept...)
			keptLen += pieceLen
		}
		current = kept
		currentLen = keptLen
	}

	for _, piece := range pieces {
		pieceLen := s.length(piece)
		if currentLen+pieceLen > s.chunkSize && currentLen > 0 {
			flush()
		}
		current = append(current, piece)
		currentLen += pieceLen
	}

	if len(current) > 0 {
		chunk := strings.TrimSpace(strings.Join(current, ""))
		if chunk != "" && (len(chunks) == 0 || chunk != chunks[len(chunks)-1]) {
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}

// splitEvery cuts text into rune runs of at most chunkSize, the last-resort
// split when no separator applies.
func splitEvery(text string, chunkSize int, length LenFunc) []string {
	runes := []rune(text)
	var pieces []string
	start := 0
	for start < len(runes) {
		end := start
		for end < len(runes) {
			next := end + 1
			if length(string(runes[start:next])) > chunkSize {
				break
			}
			end = next
		}
		if end == start {
			end = start + 1
		}
		pieces = append(pieces, string(runes[start:end]))
		start = end
	}
	return pieces
}

// ChunkID derives the stable identifier for a chunk: the first 8 bytes of
// SHA-1("song_name|content") as a big-endian integer. Re-digesting the same
// summary always produces the same IDs, so rebuilds upsert in place.
func ChunkID(songName, content string) uint64 {
	sum := sha1.Sum([]byte(songName + "|" + content))
	return binary.BigEndian.Uint64(sum[:8])
}
