// Command window downloads the trailing 365 days of service requests with
// limit/offset pagination and writes data/raw/nyc_311_full_year.parquet.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

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

	scope := ingest.RollingWindowScope(cfg, time.Now())
	logger.Info("Downloading rolling-window data",
		slog.String("endpoint", cfg.Source.BaseURL),
		slog.String("where", scope.Where),
		slog.Int("page_size", scope.PageSize))

	client := socrata.NewClient(cfg.Source, logger)
	aggregator := ingest.New(client, paths, logger)

	summary, err := aggregator.Run(ctx, scope)
	if err != nil {
		logger.Error("Rolling-window download failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Saved full-year data",
		slog.Int("pages", summary.Pages),
		slog.Int("rows", summary.RowsWritten),
		slog.String("output", summary.OutputPath))
}
