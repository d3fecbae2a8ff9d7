package retrieve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/domain"
	"github.com/lumora-labs/paperask/internal/index"
)

var testIdentity = domain.Identity{Provider: "test", Model: "fake", Dimensions: 3}

// axisEmbedder maps known texts onto fixed unit vectors so similarity
// ordering is fully controlled by the test.
type axisEmbedder struct {
	identity domain.Identity
	vectors  map[string][]float32
}

func (e *axisEmbedder) Identity() domain.Identity { return e.identity }

func (e *axisEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	v, ok := e.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, errors.New("unexpected text: " + text)
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func buildManager(t *testing.T) *index.Manager {
	t.Helper()
	ix := index.New(testIdentity)
	chunks := []struct {
		name string
		vec  []float32
	}{
		{"alpha", []float32{1, 0, 0}},
		{"beta", []float32{0, 1, 0}},
		{"gamma", []float32{0.9, 0.1, 0}},
	}
	for i, c := range chunks {
		err := ix.Add(domain.Chunk{
			Text:         c.name + " text",
			DocumentName: c.name,
			Position:     i,
		}, c.vec)
		if err != nil {
			t.Fatalf("add %s: %v", c.name, err)
		}
	}
	m := index.NewManager("unused", zap.NewNop())
	m.Replace(ix)
	return m
}

func newTestRetriever(t *testing.T, m *index.Manager) *Retriever {
	t.Helper()
	return New(Config{
		Embedder: &axisEmbedder{
			identity: testIdentity,
			vectors: map[string][]float32{
				"about alpha": {1, 0, 0},
			},
		},
		Manager:  m,
		DefaultK: 2,
		MaxK:     50,
		Logger:   zap.NewNop(),
	})
}

func TestRetriever_RanksBySimilarity(t *testing.T) {
	r := newTestRetriever(t, buildManager(t))

	got, err := r.Retrieve(context.Background(), "about alpha", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	wantOrder := []string{"alpha", "gamma", "beta"}
	for i, want := range wantOrder {
		if got[i].Chunk.DocumentName != want {
			t.Errorf("rank %d: got %q, want %q", i+1, got[i].Chunk.DocumentName, want)
		}
		if got[i].Rank != i+1 {
			t.Errorf("rank field at %d: got %d", i, got[i].Rank)
		}
	}
	if got[0].Score < got[1].Score || got[1].Score < got[2].Score {
		t.Errorf("scores not descending: %v %v %v", got[0].Score, got[1].Score, got[2].Score)
	}
}

func TestRetriever_DefaultAndClampedK(t *testing.T) {
	m := buildManager(t)
	r := New(Config{
		Embedder: &axisEmbedder{
			identity: testIdentity,
			vectors:  map[string][]float32{"about alpha": {1, 0, 0}},
		},
		Manager:  m,
		DefaultK: 2,
		MaxK:     2,
		Logger:   zap.NewNop(),
	})

	got, err := r.Retrieve(context.Background(), "about alpha", 0)
	if err != nil {
		t.Fatalf("retrieve with default k: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("default k: got %d chunks, want 2", len(got))
	}

	got, err = r.Retrieve(context.Background(), "about alpha", 100)
	if err != nil {
		t.Fatalf("retrieve with oversized k: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("clamped k: got %d chunks, want 2", len(got))
	}
}

func TestRetriever_NoIndexLoaded(t *testing.T) {
	m := index.NewManager("unused", zap.NewNop())
	r := newTestRetriever(t, m)

	_, err := r.Retrieve(context.Background(), "about alpha", 3)
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestRetriever_CorruptIndexLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.idx")
	if err := os.WriteFile(path, []byte("this is not an index file"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := index.NewManager(path, zap.NewNop())
	if err := m.Load(); !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("load of garbage file: expected ErrIndexCorrupt, got %v", err)
	}

	r := newTestRetriever(t, m)
	_, err := r.Retrieve(context.Background(), "about alpha", 3)
	if !errors.Is(err, domain.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt after a failed load, got %v", err)
	}
	if errors.Is(err, domain.ErrIndexNotFound) {
		t.Error("corrupt load misreported as index not found")
	}
}

func TestRetriever_EmbedderMismatch(t *testing.T) {
	m := buildManager(t)
	r := New(Config{
		Embedder: &axisEmbedder{
			identity: domain.Identity{Provider: "test", Model: "other", Dimensions: 3},
			vectors:  map[string][]float32{"about alpha": {1, 0, 0}},
		},
		Manager:  m,
		DefaultK: 2,
		MaxK:     50,
		Logger:   zap.NewNop(),
	})

	_, err := r.Retrieve(context.Background(), "about alpha", 3)
	if !errors.Is(err, domain.ErrEmbedderMismatch) {
		t.Fatalf("expected ErrEmbedderMismatch, got %v", err)
	}
}

func TestRetriever_EmptyIndexIsNotAnError(t *testing.T) {
	m := index.NewManager("unused", zap.NewNop())
	m.Replace(index.New(testIdentity))
	r := newTestRetriever(t, m)

	got, err := r.Retrieve(context.Background(), "about alpha", 3)
	if err != nil {
		t.Fatalf("retrieve on empty index: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no chunks, got %d", len(got))
	}
}
