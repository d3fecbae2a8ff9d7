package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/config"
	"github.com/lumora-labs/paperask/internal/domain"
	"github.com/lumora-labs/paperask/internal/embedding"
	"github.com/lumora-labs/paperask/internal/generate"
	"github.com/lumora-labs/paperask/internal/index"
	logpkg "github.com/lumora-labs/paperask/internal/logger"
	"github.com/lumora-labs/paperask/internal/metrics"
	"github.com/lumora-labs/paperask/internal/pipeline"
	"github.com/lumora-labs/paperask/internal/retrieve"
	httpTransport "github.com/lumora-labs/paperask/internal/transport/http"
	"github.com/lumora-labs/paperask/internal/version"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting paperask API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_path", cfg.Index.Path),
		zap.String("default_generator", cfg.Generation.Default),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Embedder chain: OpenAI transport, optionally wrapped in a Redis cache.
	embedder, closeCache := buildEmbedder(cfg, logger)
	defer closeCache()
	logger.Info("Embedder created", zap.String("identity", embedder.Identity().String()))

	// Index: a missing file is fine at startup, ingestion may not have run yet.
	manager := index.NewManager(cfg.Index.Path, logger)
	if err := manager.Load(); err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			logger.Warn("no index found, run the ingest command first",
				zap.String("path", cfg.Index.Path))
		} else {
			logger.Error("failed to load index", zap.Error(err))
		}
	}

	registry, closeGenerators, err := buildGenerators(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create generators", zap.Error(err))
	}
	defer closeGenerators()

	retriever := retrieve.New(retrieve.Config{
		Embedder: embedder,
		Manager:  manager,
		DefaultK: cfg.Retrieval.DefaultK,
		MaxK:     cfg.Retrieval.MaxK,
		Logger:   logger,
	})

	orchestrator := pipeline.New(pipeline.Config{
		Retriever:  retriever,
		Generators: registry,
		GenTimeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
	})

	server := httpTransport.NewServer(orchestrator, manager, registry, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the embedder chain: OpenAI -> Cached (when a cache
// store is configured). The returned func closes the cache connection.
func buildEmbedder(cfg config.Config, logger *zap.Logger) (domain.Embedder, func()) {
	base := embedding.NewOpenAIEmbedder(&embedding.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	if len(cfg.Cache.Addrs) == 0 {
		return base, func() {}
	}

	store, err := embedding.NewRedisStore(embedding.RedisConfig{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Warn("embedding cache unavailable, continuing without it", zap.Error(err))
		return base, func() {}
	}
	logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))

	return embedding.NewCached(base, store, metrics.EmbeddingCacheTotal, logger), store.Close
}

// buildGenerators registers the configured generation backends. The returned
// func shuts down the browser session if one was started.
func buildGenerators(cfg config.Config, logger *zap.Logger) (*generate.Registry, func(), error) {
	registry := generate.NewRegistry(cfg.Generation.Default)
	closer := func() {}

	hosted, err := generate.NewOpenAI(generate.OpenAIConfig{
		APIKey:  cfg.Generation.OpenAI.APIKey,
		BaseURL: cfg.Generation.OpenAI.BaseURL,
		Model:   cfg.Generation.OpenAI.Model,
		Models:  cfg.Generation.OpenAI.Models,
		Logger:  logger,
	})
	if err != nil {
		if cfg.Generation.Default == "openai" {
			return nil, nil, fmt.Errorf("openai generator: %w", err)
		}
		logger.Warn("openai generator disabled", zap.Error(err))
	} else {
		registry.Register(hosted)
	}

	if cfg.Generation.ChatGPTWeb.Enabled {
		browser := generate.NewBrowser(generate.BrowserConfig{
			UserDataDir: cfg.Generation.ChatGPTWeb.UserDataDir,
			Headless:    cfg.Generation.ChatGPTWeb.Headless,
			LoginWait:   time.Duration(cfg.Generation.ChatGPTWeb.LoginWaitSec) * time.Second,
			Logger:      logger,
		})
		registry.Register(browser)
		closer = browser.Close
	}

	return registry, closer, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
