// Package retrieve turns a question into the ranked context chunks the
// answer will be grounded on.
package retrieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/domain"
	"github.com/lumora-labs/paperask/internal/index"
)

// Retriever embeds the question and searches the live index snapshot.
type Retriever struct {
	embedder domain.Embedder
	manager  *index.Manager
	defaultK int
	maxK     int
	logger   *zap.Logger
}

// Config holds the retrieval parameters.
type Config struct {
	Embedder domain.Embedder
	Manager  *index.Manager
	DefaultK int
	MaxK     int
	Logger   *zap.Logger
}

// New creates a retriever.
func New(cfg Config) *Retriever {
	return &Retriever{
		embedder: cfg.Embedder,
		manager:  cfg.Manager,
		defaultK: cfg.DefaultK,
		maxK:     cfg.MaxK,
		logger:   cfg.Logger,
	}
}

// Retrieve returns up to k chunks ranked by similarity to the question,
// best first, with 1-based ranks assigned. k <= 0 selects the configured
// default; values above the maximum are clamped. An empty result is not an
// error: the caller decides how to answer without context.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]domain.RetrievedChunk, error) {
	ix, ok := r.manager.Current()
	if !ok {
		// A failed load (e.g. a corrupt index file) is not the same as no
		// index having been built; surface the retained load error.
		if _, _, lastErr := r.manager.Status(); lastErr != nil {
			return nil, fmt.Errorf("index unavailable: %w", lastErr)
		}
		return nil, fmt.Errorf("no index loaded: %w", domain.ErrIndexNotFound)
	}

	if k <= 0 {
		k = r.defaultK
	}
	if k > r.maxK {
		r.logger.Debug("clamping k", zap.Int("requested", k), zap.Int("max", r.maxK))
		k = r.maxK
	}

	if got, want := r.embedder.Identity(), ix.Identity(); got != want {
		return nil, fmt.Errorf("query embedder %s, index built with %s: %w",
			got, want, domain.ErrEmbedderMismatch)
	}

	res, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := ix.Search(res.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	chunks := make([]domain.RetrievedChunk, len(hits))
	for i, hit := range hits {
		chunks[i] = domain.RetrievedChunk{
			Chunk: hit.Chunk,
			Score: hit.Score,
			Rank:  i + 1,
		}
	}
	return chunks, nil
}
