package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/domain"
)

var testIdentity = domain.Identity{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 3}

func chunkN(n int) domain.Chunk {
	return domain.Chunk{
		Text:         fmt.Sprintf("chunk %d", n),
		SourcePath:   "data/papers/doc.pdf",
		DocumentName: "doc",
		Position:     n,
	}
}

func buildIndex(t *testing.T, vectors [][]float32) *Index {
	t.Helper()
	ix := New(testIdentity)
	for i, v := range vectors {
		if err := ix.Add(chunkN(i), v); err != nil {
			t.Fatalf("Add vector %d: %v", i, err)
		}
	}
	return ix
}

func TestAdd_DimensionMismatch(t *testing.T) {
	ix := New(testIdentity)
	if err := ix.Add(chunkN(0), []float32{1, 0}); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if err := ix.Add(chunkN(0), nil); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch for empty vector, got %v", err)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	ix := New(testIdentity)
	results, err := ix.Search([]float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
}

func TestSearch_NeverMoreThanIndexSize(t *testing.T) {
	ix := buildIndex(t, [][]float32{{1, 0, 0}, {0, 1, 0}})
	results, err := ix.Search([]float32{1, 0, 0}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected min(k, len)=2 results, got %d", len(results))
	}
}

func TestSearch_OrderAndDeterminism(t *testing.T) {
	ix := buildIndex(t, [][]float32{
		{0, 1, 0},       // orthogonal to query
		{1, 0, 0},       // identical to query
		{0.9, 0.1, 0},   // close
		{-1, 0, 0},      // opposite
	})
	query := []float32{1, 0, 0}

	first, err := ix.Search(query, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantOrder := []int{1, 2, 0, 3}
	for i, want := range wantOrder {
		if first[i].Chunk.Position != want {
			t.Errorf("rank %d: got chunk %d, want %d", i, first[i].Chunk.Position, want)
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i].Score > first[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}

	// Repeated identical queries return identical ordered results.
	for run := 0; run < 5; run++ {
		again, err := ix.Search(query, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: results differ from first run", run)
		}
	}
}

func TestSearch_TiesStableByInsertionOrder(t *testing.T) {
	// Duplicate vectors: identical scores, insertion order must win.
	ix := buildIndex(t, [][]float32{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}})
	results, err := ix.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range results {
		if r.Chunk.Position != i {
			t.Errorf("tie broken out of insertion order: rank %d is chunk %d", i, r.Chunk.Position)
		}
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	ix := buildIndex(t, [][]float32{{1, 0, 0}})
	if _, err := ix.Search([]float32{1, 0}, 1); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ix := buildIndex(t, [][]float32{{1, 0, 0}, {0, 1, 0}, {0.5, 0.5, 0}})
	path := filepath.Join(t.TempDir(), "sub", "paperask.idx")

	if err := ix.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != ix.Len() {
		t.Fatalf("loaded %d entries, want %d", loaded.Len(), ix.Len())
	}
	if loaded.Identity() != testIdentity {
		t.Fatalf("loaded identity %v, want %v", loaded.Identity(), testIdentity)
	}

	query := []float32{0.7, 0.3, 0}
	want, err := ix.Search(query, 3)
	if err != nil {
		t.Fatalf("search original: %v", err)
	}
	got, err := loaded.Search(query, 3)
	if err != nil {
		t.Fatalf("search loaded: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatal("loaded index returns different search results")
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.idx"))
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()

	truncated := filepath.Join(dir, "short.idx")
	if err := os.WriteFile(truncated, []byte("PP"), 0o644); err != nil {
		t.Fatal(err)
	}
	badMagic := filepath.Join(dir, "magic.idx")
	if err := os.WriteFile(badMagic, []byte("NOTANIDXjunkjunkjunk"), 0o644); err != nil {
		t.Fatal(err)
	}
	badBody := filepath.Join(dir, "body.idx")
	if err := os.WriteFile(badBody, append(append([]byte{}, fileMagic...), "garbage"...), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{truncated, badMagic, badBody} {
		if _, err := Load(path); !errors.Is(err, domain.ErrIndexCorrupt) {
			t.Errorf("Load(%s): expected ErrIndexCorrupt, got %v", filepath.Base(path), err)
		}
	}
}

func TestManager_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paperask.idx")
	m := NewManager(path, zap.NewNop())

	if loaded, _, lastErr := m.Status(); loaded || lastErr != nil {
		t.Fatalf("fresh manager: loaded=%v lastErr=%v", loaded, lastErr)
	}
	if _, ok := m.Current(); ok {
		t.Fatal("fresh manager should have no current index")
	}

	// Load before ingestion: not found, and Status reports the failure.
	if err := m.Load(); !errors.Is(err, domain.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
	if loaded, _, lastErr := m.Status(); loaded || !errors.Is(lastErr, domain.ErrIndexNotFound) {
		t.Fatalf("after failed load: loaded=%v lastErr=%v", loaded, lastErr)
	}

	// Persist an index, then load succeeds.
	ix := buildIndex(t, [][]float32{{1, 0, 0}})
	if err := ix.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded, entries, lastErr := m.Status(); !loaded || entries != 1 || lastErr != nil {
		t.Fatalf("after load: loaded=%v entries=%d lastErr=%v", loaded, entries, lastErr)
	}

	// Replace swaps the snapshot.
	m.Replace(buildIndex(t, [][]float32{{1, 0, 0}, {0, 1, 0}}))
	if _, entries, _ := m.Status(); entries != 2 {
		t.Fatalf("after replace: entries=%d, want 2", entries)
	}
}
