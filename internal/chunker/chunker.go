// Package chunker splits extracted document text into overlapping fixed-size
// passages. Boundaries are determined purely by character count, not by
// sentence or paragraph structure: retrieval quality is traded for a chunker
// whose output is exactly reproducible and cheap to reason about.
package chunker

import (
	"fmt"
	"strings"

	"github.com/lumora-labs/paperask/internal/domain"
)

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 1200
	// DefaultOverlap is the number of characters shared by consecutive chunks.
	DefaultOverlap = 200
)

// Chunker produces fixed-size overlapping chunks.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. The overlap must be smaller than the chunk size,
// otherwise the window would never advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split covers the whole text with chunks of the target size, consecutive
// chunks sharing the configured overlap. The final chunk may be shorter.
// Text with no extractable content yields zero chunks.
func (c *Chunker) Split(text, sourcePath, documentName string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			Text:         string(runes[start:end]),
			SourcePath:   sourcePath,
			DocumentName: documentName,
			Position:     len(chunks),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Size returns the configured target chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }
