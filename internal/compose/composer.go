// Package compose builds the grounded generation prompt from retrieved
// chunks and aggregates the per-document source list for the response.
package compose

import (
	"fmt"
	"strings"

	"github.com/lumora-labs/paperask/internal/domain"
)

// systemPrompt is the grounding instruction. It is the core correctness
// mechanism of the pipeline: the model must answer from the supplied context
// only, cite the bracketed numbers it used, and admit when the context does
// not contain an answer.
const systemPrompt = `You are a research assistant that answers questions based ONLY on the provided context.

Rules:
- Answer using only the information in the numbered context passages below.
- Cite every claim with the matching bracketed number, e.g. [1] or [2][3].
- Never cite a number that is not present in the context.
- If the context does not contain the answer, say so explicitly instead of guessing or using outside knowledge.`

// emptyContextBlock replaces the context when retrieval returned nothing, so
// generation still proceeds and the answer states that no information was
// found.
const emptyContextBlock = "(no relevant context found in the indexed documents)"

// Prompt is the fully composed input to a generation backend.
type Prompt struct {
	// System is the grounding instruction.
	System string
	// User carries the numbered context and the original question.
	User string
	// Sources lists the contributing documents in first-seen order.
	Sources []domain.Source
}

// Compose numbers the chunks in retrieval-rank order, formats the context
// block, and aggregates sources per document. Each chunk gets its own
// citation number even when several share a document; the Source entry
// carries the first such number. A nil or empty chunk slice composes a prompt
// with an explicit empty-context block and no sources.
func Compose(question string, chunks []domain.RetrievedChunk) Prompt {
	contextBlock := emptyContextBlock
	if len(chunks) > 0 {
		parts := make([]string, len(chunks))
		for i, c := range chunks {
			parts[i] = fmt.Sprintf("[%d] %s", i+1, c.Chunk.Text)
		}
		contextBlock = strings.Join(parts, "\n\n")
	}

	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)

	return Prompt{
		System:  systemPrompt,
		User:    user,
		Sources: aggregateSources(chunks),
	}
}

// aggregateSources groups chunks by document name in first-seen order.
func aggregateSources(chunks []domain.RetrievedChunk) []domain.Source {
	if len(chunks) == 0 {
		return nil
	}

	byName := make(map[string]int, len(chunks))
	sources := make([]domain.Source, 0, len(chunks))
	for i, c := range chunks {
		if pos, ok := byName[c.Chunk.DocumentName]; ok {
			sources[pos].ChunkCount++
			continue
		}
		byName[c.Chunk.DocumentName] = len(sources)
		sources = append(sources, domain.Source{
			Index:        i + 1,
			DocumentName: c.Chunk.DocumentName,
			SourcePath:   c.Chunk.SourcePath,
			ChunkCount:   1,
		})
	}
	return sources
}
