// Command sample downloads the most recent service requests in one
// non-paginated call and writes data/raw/nyc_311_sample.csv.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"nyc311/internal/config"
	"nyc311/internal/infrastructure"
	"nyc311/internal/ingest"
	"nyc311/internal/socrata"
)

func main() {
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}

	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	if !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = paths.GetLogPath(filepath.Base(cfg.Logging.FilePath))
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.ContextWithTraceID(context.Background())
	logger = infrastructure.LoggerWithContext(ctx)

	logger.Info("Requesting sample data from NYC Open Data API",
		slog.String("endpoint", cfg.Source.BaseURL),
		slog.Int("sample_size", cfg.Dataset.SampleSize))

	client := socrata.NewClient(cfg.Source, logger)
	aggregator := ingest.New(client, paths, logger)

	summary, err := aggregator.Run(ctx, ingest.SampleScope(cfg))
	if err != nil {
		logger.Error("Sample download failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Saved raw sample",
		slog.Int("rows", summary.RowsWritten),
		slog.String("output", summary.OutputPath))
}
