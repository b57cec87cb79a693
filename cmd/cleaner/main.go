// Command cleaner loads the raw full-year parquet file, applies the
// projection/validation/feature-derivation pass, and writes
// data/cleaned/nyc_311_full_year_cleaned.parquet.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"nyc311/internal/cleaning"
	"nyc311/internal/config"
	"nyc311/internal/infrastructure"
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

	rawPath := paths.RawPath(config.RollingWindowFile)
	outPath := paths.CleanedPath(config.CleanedFullYearFile)

	cleaner := cleaning.New(cfg.Clean, logger)
	report, err := cleaner.Clean(ctx, rawPath, outPath)
	if err != nil {
		logger.Error("Cleaning failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Saved cleaned data",
		slog.Int("rows_loaded", report.RowsLoaded),
		slog.Int("dropped_bad_timestamps", report.DroppedBadTimestamps),
		slog.Int("dropped_resolution_range", report.DroppedResolutionRange),
		slog.Int("rows_written", report.RowsWritten),
		slog.String("output", outPath))
}
