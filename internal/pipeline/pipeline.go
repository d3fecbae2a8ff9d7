// Package pipeline sequences one ask request through its three stages:
// retrieve, compose, generate. The stages are a straight line; any failure
// short-circuits with a classified error and the stage name attached.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/compose"
	"github.com/lumora-labs/paperask/internal/domain"
	"github.com/lumora-labs/paperask/internal/logger"
	"github.com/lumora-labs/paperask/internal/metrics"
)

// ChunkRetriever is the retrieval stage contract.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]domain.RetrievedChunk, error)
}

// GeneratorResolver resolves a generation backend by name.
type GeneratorResolver interface {
	Get(name string) (domain.Generator, error)
}

// Orchestrator runs the ask pipeline.
type Orchestrator struct {
	retriever  ChunkRetriever
	generators GeneratorResolver
	genTimeout time.Duration
}

// Config holds the orchestrator collaborators and limits.
type Config struct {
	Retriever  ChunkRetriever
	Generators GeneratorResolver
	// GenTimeout bounds the generation stage per request.
	GenTimeout time.Duration
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		retriever:  cfg.Retriever,
		generators: cfg.Generators,
		genTimeout: cfg.GenTimeout,
	}
}

// Request is one ask invocation.
type Request struct {
	Question string
	// K is the number of chunks to retrieve; zero selects the default.
	K int
	// Generator names the backend; empty selects the default.
	Generator string
	// Model overrides the backend's default model when set.
	Model string
}

// Ask runs retrieve, compose, generate and returns the grounded answer with
// its source list. Retrieval returning zero chunks is not a failure: the
// composed prompt says so and generation still runs, so the answer can state
// that no information was found.
func (o *Orchestrator) Ask(ctx context.Context, req Request) (domain.Answer, error) {
	log := logger.FromContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return domain.Answer{}, domain.ErrEmptyQuestion
	}

	gen, err := o.generators.Get(req.Generator)
	if err != nil {
		return domain.Answer{}, err
	}

	start := time.Now()
	chunks, err := o.retriever.Retrieve(ctx, question, req.K)
	metrics.PipelineStageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	if err != nil {
		o.observe(gen.Name(), "retrieve_failed")
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	metrics.RetrievedChunksTotal.WithLabelValues(gen.Name()).Observe(float64(len(chunks)))

	start = time.Now()
	prompt := compose.Compose(question, chunks)
	metrics.PipelineStageDuration.WithLabelValues("compose").Observe(time.Since(start).Seconds())

	genCtx := ctx
	if o.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.genTimeout)
		defer cancel()
	}

	start = time.Now()
	result, err := gen.Generate(genCtx, domain.GenerateRequest{
		System: prompt.System,
		Prompt: prompt.User,
		Model:  req.Model,
	})
	metrics.PipelineStageDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		o.observe(gen.Name(), "generate_failed")
		return domain.Answer{}, fmt.Errorf("generate: %w", err)
	}

	o.observe(gen.Name(), "ok")
	log.Info("pipeline completed",
		zap.String("generator", gen.Name()),
		zap.String("model", result.Model),
		zap.Int("chunks", len(chunks)),
		zap.Int("sources", len(prompt.Sources)),
		zap.Int("tokens", result.TokensUsed),
	)

	return domain.Answer{Text: result.Text, Sources: prompt.Sources}, nil
}

func (o *Orchestrator) observe(generator, status string) {
	metrics.PipelineRequestsTotal.WithLabelValues(generator, status).Inc()
}
