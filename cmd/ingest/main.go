// Command ingest builds the vector index from a directory of PDFs. Run it
// before starting the API server, and again whenever the library changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/lumora-labs/paperask/internal/chunker"
	"github.com/lumora-labs/paperask/internal/config"
	"github.com/lumora-labs/paperask/internal/embedding"
	"github.com/lumora-labs/paperask/internal/ingest"
	logpkg "github.com/lumora-labs/paperask/internal/logger"
)

func main() {
	_ = godotenv.Load()

	var (
		dir       = flag.String("dir", "", "documents directory (default from config)")
		indexPath = flag.String("index", "", "index output path (default from config)")
		size      = flag.Int("chunk-size", 0, "chunk size in characters (default from config)")
		overlap   = flag.Int("chunk-overlap", 0, "chunk overlap in characters (default from config)")
	)
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.Documents.Dir = *dir
	}
	if *indexPath != "" {
		cfg.Index.Path = *indexPath
	}
	if *size > 0 {
		cfg.Chunking.Size = *size
	}
	if *overlap > 0 {
		cfg.Chunking.Overlap = *overlap
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		logger.Fatal("invalid chunking parameters", zap.Error(err))
	}

	embedder := buildEmbedder(cfg, logger)

	ing := ingest.New(ingest.Config{
		Chunker:   ch,
		Embedder:  embedder,
		BatchSize: cfg.Embedding.BatchSize,
		Logger:    logger,
	})

	// Ctrl-C aborts cleanly between documents.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bar *progressbar.ProgressBar
	ing.Progress = func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("ingesting"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}

	fmt.Printf("Ingesting PDFs from %s into %s\n", cfg.Documents.Dir, cfg.Index.Path)

	_, report, err := ing.Run(ctx, cfg.Documents.Dir, cfg.Index.Path)
	if err != nil {
		printFailures(report)
		logger.Fatal("ingestion failed", zap.Error(err))
	}

	fmt.Printf("Indexed %d documents, %d chunks (%d embedding tokens)\n",
		report.Documents, report.Chunks, report.TotalTokens)
	printFailures(report)

	if len(report.Failures) > 0 {
		os.Exit(2)
	}
}

func printFailures(report ingest.Report) {
	if len(report.Failures) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%d documents failed:\n", len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Path, f.Reason)
	}
}

// buildEmbedder mirrors the server's embedder chain so index and queries
// always share one identity.
func buildEmbedder(cfg config.Config, logger *zap.Logger) ingest.Batcher {
	base := embedding.NewOpenAIEmbedder(&embedding.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	if len(cfg.Cache.Addrs) == 0 {
		return base
	}

	store, err := embedding.NewRedisStore(embedding.RedisConfig{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Warn("embedding cache unavailable, continuing without it", zap.Error(err))
		return base
	}
	logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))

	return embedding.NewCached(base, store, nil, logger)
}
