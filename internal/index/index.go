// Package index implements the flat vector index the retriever searches.
//
// Vectors are L2-normalized at insertion time and ranked by inner product,
// which on normalized vectors is equivalent to cosine similarity. Ranking
// therefore delegates entirely to that metric; no approximate-neighbor
// structure is layered on top.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/lumora-labs/paperask/internal/domain"
)

// entry is one indexed chunk with its normalized embedding.
type entry struct {
	ID     string
	Vector []float32
	Chunk  domain.Chunk
}

// Result is one search hit: a chunk and its similarity score.
type Result struct {
	Chunk domain.Chunk
	Score float32
}

// Index maps chunk identifiers to (embedding, chunk metadata). It is built
// once at ingestion time and read-only at query time; concurrent reads are
// safe, writes are not.
type Index struct {
	identity domain.Identity
	dims     int
	entries  []entry
}

// New creates an empty index bound to the given embedder identity.
func New(identity domain.Identity) *Index {
	return &Index{
		identity: identity,
		dims:     identity.Dimensions,
	}
}

// Identity returns the embedder identity the index was built with.
func (ix *Index) Identity() domain.Identity { return ix.identity }

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.entries) }

// Add stores a chunk with its embedding. Every vector must have the same
// dimensionality; the first added vector fixes it when the identity left it
// unspecified.
func (ix *Index) Add(chunk domain.Chunk, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for chunk %q position %d: %w",
			chunk.DocumentName, chunk.Position, domain.ErrVectorDimMismatch)
	}
	if ix.dims == 0 {
		ix.dims = len(vector)
	}
	if len(vector) != ix.dims {
		return fmt.Errorf("vector has %d dimensions, index has %d: %w",
			len(vector), ix.dims, domain.ErrVectorDimMismatch)
	}

	ix.entries = append(ix.entries, entry{
		ID:     uuid.NewString(),
		Vector: normalize(vector),
		Chunk:  chunk,
	})
	return nil
}

// Search returns the k nearest entries to the query vector, best match
// first. Ties are broken by insertion order. Never returns more results than
// the index holds; an empty index yields an empty result, not an error.
func (ix *Index) Search(vector []float32, k int) ([]Result, error) {
	if k <= 0 || len(ix.entries) == 0 {
		return nil, nil
	}
	if len(vector) != ix.dims {
		return nil, fmt.Errorf("query vector has %d dimensions, index has %d: %w",
			len(vector), ix.dims, domain.ErrVectorDimMismatch)
	}

	q := normalize(vector)

	type scored struct {
		pos   int
		score float32
	}
	scores := make([]scored, len(ix.entries))
	for i := range ix.entries {
		scores[i] = scored{pos: i, score: dot(ix.entries[i].Vector, q)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]Result, k)
	for i := 0; i < k; i++ {
		e := ix.entries[scores[i].pos]
		results[i] = Result{Chunk: e.Chunk, Score: scores[i].score}
	}
	return results, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalize returns an L2-normalized copy. A zero vector is returned as-is.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
