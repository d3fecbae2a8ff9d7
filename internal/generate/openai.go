// Package generate provides the interchangeable text generation backends the
// pipeline consumes: a hosted OpenAI-compatible API and a browser-automated
// ChatGPT web session. Backends are selected by name through the Registry,
// never by conditionals inside the pipeline.
package generate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/domain"
	"github.com/lumora-labs/paperask/internal/metrics"
)

const (
	// maxRetries is the retry budget for rate-limit errors.
	maxRetries = 3
	// baseBackoff is the exponential backoff base between retries.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the backoff interval.
	maxBackoff = 32 * time.Second
)

// OpenAIGenerator generates answers through the chat completions API.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	allowed []string
	logger  *zap.Logger
}

// OpenAIConfig holds the hosted-API backend settings.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Models  []string
	Logger  *zap.Logger
}

// NewOpenAI creates the hosted-API generation backend.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key not set")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		allowed: cfg.Models,
		logger:  cfg.Logger,
	}, nil
}

// Name implements domain.Generator.
func (g *OpenAIGenerator) Name() string { return "openai" }

// Models returns the selectable model allowlist; the first entry is the default.
func (g *OpenAIGenerator) Models() []string {
	out := []string{g.model}
	for _, m := range g.allowed {
		if m != g.model {
			out = append(out, m)
		}
	}
	return out
}

// Generate implements domain.Generator. Rate-limit errors are retried with
// exponential backoff; every other failure maps into the pipeline's error
// taxonomy with the cause preserved.
func (g *OpenAIGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	model := g.model
	if req.Model != "" {
		if !slices.Contains(g.allowed, req.Model) {
			return domain.GenerateResult{}, fmt.Errorf("%w: %q (allowed: %v)",
				domain.ErrInvalidModel, req.Model, g.allowed)
		}
		model = req.Model
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			g.logger.Warn("rate limited, backing off",
				zap.Duration("backoff", backoff),
				zap.Int("attempt", attempt),
			)
			select {
			case <-ctx.Done():
				return domain.GenerateResult{}, classifyCtxErr(ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Temperature: 0,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: req.System},
				{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
			},
		})
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return domain.GenerateResult{}, classifyAPIError(ctx, err)
		}

		if len(resp.Choices) == 0 {
			return domain.GenerateResult{}, fmt.Errorf("no completion choices returned: %w",
				domain.ErrGenerationFailed)
		}

		tokens := resp.Usage.TotalTokens
		if tokens > 0 {
			metrics.GenerationTokensTotal.WithLabelValues(g.Name(), model).Add(float64(tokens))
		}

		return domain.GenerateResult{
			Text:       resp.Choices[0].Message.Content,
			Model:      resp.Model,
			TokensUsed: tokens,
		}, nil
	}

	return domain.GenerateResult{}, fmt.Errorf("rate limited after %d retries: %v: %w",
		maxRetries, lastErr, domain.ErrGenerationFailed)
}

// isRateLimitError reports whether err is an HTTP 429 from the API.
func isRateLimitError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	return false
}

// classifyAPIError maps a chat completion failure into the error taxonomy,
// preserving the underlying cause for diagnostics.
func classifyAPIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return classifyCtxErr(ctx.Err())
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrGenerationFailed)
	}
	return fmt.Errorf("chat completion request failed: %v: %w", err, domain.ErrGenerationFailed)
}

func classifyCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, domain.ErrGenerationTimeout)
	}
	return err
}

var _ domain.Generator = (*OpenAIGenerator)(nil)
