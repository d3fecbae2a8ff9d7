package domain

import "errors"

var (
	// ErrIndexNotFound signals that no index has been built or the persisted
	// index file is missing. Recoverable by running ingestion.
	ErrIndexNotFound = errors.New("index not found")
	// ErrIndexCorrupt signals that the persisted index exists but cannot be
	// read. Recoverable by re-running ingestion.
	ErrIndexCorrupt = errors.New("index corrupt")
	// ErrEmbedderMismatch signals that the query embedder differs from the
	// one the index was built with. Configuration error, fatal per request.
	ErrEmbedderMismatch = errors.New("embedder mismatch")
	// ErrVectorDimMismatch signals a vector dimension mismatch inside the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyQuestion signals a blank question, rejected before retrieval.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrUnknownGenerator signals a generator identifier with no backend.
	ErrUnknownGenerator = errors.New("unknown generator")
	// ErrInvalidModel signals a model identifier outside the backend's allowlist.
	ErrInvalidModel = errors.New("invalid model")

	// ErrGenerationFailed signals a transport-level generation failure
	// (network, auth, provider error). Retryable by the caller.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrGenerationTimeout signals that generation exceeded the request deadline.
	ErrGenerationTimeout = errors.New("generation timed out")
	// ErrLoginRequired signals that the browser-automated backend needs an
	// interactive login before it can serve requests.
	ErrLoginRequired = errors.New("interactive login required")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
