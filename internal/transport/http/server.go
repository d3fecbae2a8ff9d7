// Package http is the REST layer over the ask pipeline. Handlers decode,
// delegate, and map domain errors to status codes; no domain logic lives here.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/domain"
	"github.com/lumora-labs/paperask/internal/generate"
	"github.com/lumora-labs/paperask/internal/index"
	"github.com/lumora-labs/paperask/internal/pipeline"
)

// Error codes returned to clients.
const (
	codeBadRequest        = "bad_request"
	codeValidationFailed  = "validation_failed"
	codeIndexNotFound     = "index_not_found"
	codeIndexCorrupt      = "index_corrupt"
	codeEmbedderMismatch  = "embedder_mismatch"
	codeUnknownGenerator  = "unknown_generator"
	codeInvalidModel      = "invalid_model"
	codeLoginRequired     = "login_required"
	codeGenerationFailed  = "generation_failed"
	codeGenerationTimeout = "generation_timeout"
	codeEmbeddingError    = "embedding_provider_error"
	codeInternalError     = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the handlers' collaborators.
type Server struct {
	pipeline      *pipeline.Orchestrator
	manager       *index.Manager
	registry      *generate.Registry
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the API server.
func NewServer(p *pipeline.Orchestrator, m *index.Manager, r *generate.Registry, logger *zap.Logger) *Server {
	s := &Server{
		pipeline: p,
		manager:  m,
		registry: r,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnknownGenerator, http.StatusBadRequest, codeUnknownGenerator),
		sentinelHandler(domain.ErrInvalidModel, http.StatusBadRequest, codeInvalidModel),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusServiceUnavailable, codeIndexNotFound),
		sentinelHandler(domain.ErrIndexCorrupt, http.StatusServiceUnavailable, codeIndexCorrupt),
		sentinelHandler(domain.ErrEmbedderMismatch, http.StatusInternalServerError, codeEmbedderMismatch),
		sentinelHandler(domain.ErrLoginRequired, http.StatusServiceUnavailable, codeLoginRequired),
		sentinelHandler(domain.ErrGenerationTimeout, http.StatusGatewayTimeout, codeGenerationTimeout),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeGenerationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError),
	}
	return s
}

// Routes mounts the API on a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.Health)
		r.Get("/index/status", s.IndexStatus)
		r.Post("/index/load", s.IndexLoad)
		r.Post("/ask", s.Ask)
		r.Get("/providers", s.Providers)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type askRequest struct {
	Question  string `json:"question"`
	K         int    `json:"k"`
	Generator string `json:"generator"`
	Model     string `json:"model"`
}

type askResponse struct {
	Answer  string          `json:"answer"`
	Sources []domain.Source `json:"sources"`
}

type indexStatusResponse struct {
	Loaded   bool   `json:"loaded"`
	Entries  int    `json:"entries"`
	Path     string `json:"path"`
	Embedder string `json:"embedder,omitempty"`
	Error    string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type providersResponse struct {
	Default   string              `json:"default"`
	Providers []generate.Provider `json:"providers"`
}

// Ask handles POST /api/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	answer, err := s.pipeline.Ask(r.Context(), pipeline.Request{
		Question:  req.Question,
		K:         req.K,
		Generator: req.Generator,
		Model:     req.Model,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: answer.Text, Sources: sources})
}

// IndexStatus handles GET /api/index/status.
func (s *Server) IndexStatus(w http.ResponseWriter, r *http.Request) {
	loaded, entries, lastErr := s.manager.Status()

	resp := indexStatusResponse{
		Loaded:  loaded,
		Entries: entries,
		Path:    s.manager.Path(),
	}
	if ix, ok := s.manager.Current(); ok {
		resp.Embedder = ix.Identity().String()
	}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

// IndexLoad handles POST /api/index/load. Reloads the persisted index, e.g.
// after an ingestion run finished while the server was up.
func (s *Server) IndexLoad(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Load(); err != nil {
		s.handleDomainError(w, err)
		return
	}

	loaded, entries, _ := s.manager.Status()
	writeJSON(w, http.StatusOK, indexStatusResponse{
		Loaded:  loaded,
		Entries: entries,
		Path:    s.manager.Path(),
	})
}

// Providers handles GET /api/providers.
func (s *Server) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, providersResponse{
		Default:   s.registry.DefaultName(),
		Providers: s.registry.Providers(),
	})
}

// Health handles GET /api/health. The service is healthy as long as it can
// serve; a missing index is reported in the checks, not as an error status.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	if loaded, _, lastErr := s.manager.Status(); loaded {
		checks["index"] = "loaded"
	} else if lastErr != nil {
		checks["index"] = "load_failed"
	} else {
		checks["index"] = "not_loaded"
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Checks: checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuestion,
		domain.ErrUnknownGenerator,
		domain.ErrInvalidModel,
		domain.ErrIndexNotFound,
		domain.ErrIndexCorrupt,
		domain.ErrEmbedderMismatch,
		domain.ErrLoginRequired,
		domain.ErrGenerationTimeout,
		domain.ErrGenerationFailed,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
