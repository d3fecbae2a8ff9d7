package compose

import (
	"fmt"
	"strings"
	"testing"

	"github.com/lumora-labs/paperask/internal/domain"
)

func retrieved(doc, text string, rank int) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{
			Text:         text,
			DocumentName: doc,
			SourcePath:   "data/papers/" + doc + ".pdf",
		},
		Rank: rank,
	}
}

func TestCompose_CitationsGaplessInRankOrder(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		retrieved("paper-a", "first passage", 1),
		retrieved("paper-b", "second passage", 2),
		retrieved("paper-a", "third passage", 3),
	}

	p := Compose("what is discussed?", chunks)

	for i, want := range []string{"[1] first passage", "[2] second passage", "[3] third passage"} {
		if !strings.Contains(p.User, want) {
			t.Errorf("context missing %q", want)
		}
		idx := strings.Index(p.User, fmt.Sprintf("[%d]", i+1))
		next := strings.Index(p.User, fmt.Sprintf("[%d]", i+2))
		if next != -1 && idx > next {
			t.Errorf("citation [%d] appears after [%d]", i+1, i+2)
		}
	}
	if strings.Contains(p.User, "[4]") {
		t.Error("context contains a citation beyond the chunk count")
	}
	if !strings.Contains(p.User, "Question: what is discussed?") {
		t.Error("question not embedded in prompt")
	}
}

func TestCompose_SourcesGroupedFirstSeen(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		retrieved("paper-a", "a1", 1),
		retrieved("paper-b", "b1", 2),
		retrieved("paper-a", "a2", 3),
		retrieved("paper-a", "a3", 4),
	}

	p := Compose("q", chunks)

	if len(p.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(p.Sources))
	}
	a, b := p.Sources[0], p.Sources[1]
	if a.DocumentName != "paper-a" || b.DocumentName != "paper-b" {
		t.Fatalf("sources not in first-seen order: %v", p.Sources)
	}
	if a.ChunkCount != 3 || b.ChunkCount != 1 {
		t.Errorf("chunk counts wrong: a=%d b=%d", a.ChunkCount, b.ChunkCount)
	}
	if a.Index != 1 || b.Index != 2 {
		t.Errorf("source indices wrong: a=%d b=%d", a.Index, b.Index)
	}
	if total := a.ChunkCount + b.ChunkCount; total != len(chunks) {
		t.Errorf("chunk counts sum to %d, want %d", total, len(chunks))
	}
	if a.SourcePath != "data/papers/paper-a.pdf" {
		t.Errorf("source path not carried through: %q", a.SourcePath)
	}
}

func TestCompose_SingleDocumentThreeChunks(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		retrieved("thesis", "intro", 1),
		retrieved("thesis", "method", 2),
		retrieved("thesis", "results", 3),
	}

	p := Compose("summarize", chunks)

	for _, marker := range []string{"[1]", "[2]", "[3]"} {
		if !strings.Contains(p.User, marker) {
			t.Errorf("context missing marker %s", marker)
		}
	}
	if len(p.Sources) != 1 {
		t.Fatalf("expected a single source, got %d", len(p.Sources))
	}
	if p.Sources[0].ChunkCount != 3 {
		t.Errorf("chunk count %d, want 3", p.Sources[0].ChunkCount)
	}
}

func TestCompose_EmptyRetrieval(t *testing.T) {
	p := Compose("anything indexed?", nil)

	if !strings.Contains(p.User, emptyContextBlock) {
		t.Error("empty retrieval did not produce the explicit empty-context block")
	}
	if len(p.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(p.Sources))
	}
	if p.System == "" {
		t.Error("grounding instruction missing")
	}
}

func TestCompose_GroundingInstruction(t *testing.T) {
	p := Compose("q", []domain.RetrievedChunk{retrieved("doc", "text", 1)})

	for _, want := range []string{"ONLY", "bracketed number", "explicitly"} {
		if !strings.Contains(p.System, want) {
			t.Errorf("grounding instruction missing %q", want)
		}
	}
}
