// Package ingest builds the persisted vector index from a directory of PDF
// documents: extract text, chunk, embed in batches, index, save.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/chunker"
	"github.com/lumora-labs/paperask/internal/domain"
	"github.com/lumora-labs/paperask/internal/index"
	"github.com/lumora-labs/paperask/internal/pdf"
)

// Extractor turns one document file into plain text.
type Extractor interface {
	ExtractText(path string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(path string) (string, error)

func (f ExtractorFunc) ExtractText(path string) (string, error) { return f(path) }

// PDFExtractor is the production extractor.
var PDFExtractor Extractor = ExtractorFunc(pdf.ExtractText)

// Failure records one document that could not be ingested. The run continues
// past it; all failures are reported together at the end.
type Failure struct {
	Path   string
	Reason string
}

// Report summarizes one ingestion run.
type Report struct {
	Documents int
	Chunks    int
	// TotalTokens is the embedding token usage of the run.
	TotalTokens int
	Failures    []Failure
}

// Batcher vectorizes texts; the ingester sub-batches to respect provider
// request limits.
type Batcher interface {
	domain.Embedder
	domain.BatchEmbedder
}

// Ingester builds and persists the index.
type Ingester struct {
	extractor Extractor
	chunker   *chunker.Chunker
	embedder  Batcher
	batchSize int
	logger    *zap.Logger

	// Progress, when set, is called after each document with the running
	// document count and the total.
	Progress func(done, total int)
}

// Config holds the ingester collaborators.
type Config struct {
	Extractor Extractor
	Chunker   *chunker.Chunker
	Embedder  Batcher
	// BatchSize caps how many chunk texts go into one embedding request.
	BatchSize int
	Logger    *zap.Logger
}

// New creates an ingester.
func New(cfg Config) *Ingester {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 64
	}
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = PDFExtractor
	}
	return &Ingester{
		extractor: extractor,
		chunker:   cfg.Chunker,
		embedder:  cfg.Embedder,
		batchSize: batch,
		logger:    cfg.Logger,
	}
}

// Run ingests every PDF under dir into a fresh index and persists it at
// indexPath. A document that fails to extract or embed is recorded in the
// report and skipped; the run fails only when no document succeeds or the
// index cannot be written.
func (ing *Ingester) Run(ctx context.Context, dir, indexPath string) (*index.Index, Report, error) {
	var report Report

	paths, err := listPDFs(dir)
	if err != nil {
		return nil, report, err
	}
	if len(paths) == 0 {
		return nil, report, fmt.Errorf("no PDF documents found in %s", dir)
	}

	ix := index.New(ing.embedder.Identity())

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		added, tokens, err := ing.ingestDocument(ctx, ix, path)
		if err != nil {
			ing.logger.Warn("document skipped",
				zap.String("path", path),
				zap.Error(err),
			)
			report.Failures = append(report.Failures, Failure{Path: path, Reason: err.Error()})
		} else {
			report.Documents++
			report.Chunks += added
			report.TotalTokens += tokens
		}

		if ing.Progress != nil {
			ing.Progress(i+1, len(paths))
		}
	}

	if report.Documents == 0 {
		return nil, report, fmt.Errorf("all %d documents failed to ingest", len(paths))
	}

	if err := ix.Save(indexPath); err != nil {
		return nil, report, fmt.Errorf("persist index: %w", err)
	}

	ing.logger.Info("ingestion complete",
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks),
		zap.Int("failures", len(report.Failures)),
		zap.Int("tokens", report.TotalTokens),
		zap.String("index", indexPath),
	)
	return ix, report, nil
}

// ingestDocument extracts, chunks, embeds and indexes one file. Returns the
// number of chunks added and the embedding tokens consumed. All of the
// document's vectors are staged before any of them reaches the index: a
// failure in a later batch must not leave a half-indexed document behind.
func (ing *Ingester) ingestDocument(ctx context.Context, ix *index.Index, path string) (int, int, error) {
	text, err := ing.extractor.ExtractText(path)
	if err != nil {
		return 0, 0, fmt.Errorf("extract: %w", err)
	}

	chunks := ing.chunker.Split(text, path, pdf.DocumentName(path))
	if len(chunks) == 0 {
		return 0, 0, fmt.Errorf("no extractable text")
	}

	vectors := make([][]float32, 0, len(chunks))
	var tokens int
	for start := 0; start < len(chunks); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		res, err := ing.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return 0, 0, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(res.Embeddings) != len(batch) {
			return 0, 0, fmt.Errorf("embedder returned %d vectors for %d chunks",
				len(res.Embeddings), len(batch))
		}
		tokens += res.TotalTokens
		vectors = append(vectors, res.Embeddings...)
	}

	// All vectors of one document must agree on dimensionality before the
	// first Add, so an Add can only fail on its first chunk and the document
	// stays all-or-nothing.
	for i := range vectors {
		if len(vectors[i]) != len(vectors[0]) {
			return 0, 0, fmt.Errorf("embedder returned %d-dim vector for chunk %d, %d-dim for chunk 0",
				len(vectors[i]), i, len(vectors[0]))
		}
	}

	for i, c := range chunks {
		if err := ix.Add(c, vectors[i]); err != nil {
			return 0, 0, fmt.Errorf("index chunk %d: %w", c.Position, err)
		}
	}

	return len(chunks), tokens, nil
}

// listPDFs returns the sorted paths of all PDF files directly under dir.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
