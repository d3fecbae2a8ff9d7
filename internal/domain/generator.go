package domain

import "context"

// Generator is the text generation capability the pipeline consumes. Backends
// differ in authentication, latency, and failure modes but share this one
// contract.
type Generator interface {
	// Generate produces text for the given prompt. Transport, auth, and
	// timeout failures are reported as errors wrapping ErrGenerationFailed,
	// ErrLoginRequired, or context errors; the cause is preserved.
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
	// Name is the backend identifier used for selection and logging.
	Name() string
}

// GenerateRequest carries the composed prompt to a generation backend.
type GenerateRequest struct {
	// System is the grounding instruction, kept separate so chat-style
	// backends can map it to a system message.
	System string
	// Prompt is the user-facing content: context block plus question.
	Prompt string
	// Model optionally overrides the backend's default model. Backends
	// without model selection ignore it.
	Model string
}

// GenerateResult is the generated text plus usage metadata.
type GenerateResult struct {
	Text       string
	Model      string
	TokensUsed int
}
