package sdk

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped from API error codes.
var (
	// ErrIndexNotFound means no index has been built yet; run ingestion.
	ErrIndexNotFound = errors.New("paperask: index not found")
	// ErrIndexCorrupt means the persisted index cannot be read; re-run ingestion.
	ErrIndexCorrupt = errors.New("paperask: index corrupt")
	// ErrInvalidRequest covers validation failures (empty question, unknown
	// generator or model, malformed body).
	ErrInvalidRequest = errors.New("paperask: invalid request")
	// ErrLoginRequired means the browser-automated backend needs an
	// interactive login on the server side.
	ErrLoginRequired = errors.New("paperask: interactive login required")
	// ErrGenerationFailed means the generation backend failed or timed out.
	ErrGenerationFailed = errors.New("paperask: generation failed")
)

// APIError is the decoded error response of a failed API call.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paperask: api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// sentinelFor maps an API error code to its sentinel, or nil.
func sentinelFor(code string) error {
	switch code {
	case "index_not_found":
		return ErrIndexNotFound
	case "index_corrupt":
		return ErrIndexCorrupt
	case "bad_request", "validation_failed", "unknown_generator", "invalid_model":
		return ErrInvalidRequest
	case "login_required":
		return ErrLoginRequired
	case "generation_failed", "generation_timeout":
		return ErrGenerationFailed
	default:
		return nil
	}
}
