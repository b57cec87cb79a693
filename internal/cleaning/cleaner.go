package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nyc311/internal/config"
	"nyc311/internal/dataset"
	"nyc311/internal/exporter"
)

// wantedColumns is the fixed projection applied to raw data, in output order.
// Missing columns are silently omitted; only the two timestamp columns are
// required.
var wantedColumns = []string{
	"created_date",
	"closed_date",
	"complaint_type",
	"descriptor",
	"agency",
	"borough",
	"incident_zip",
	"latitude",
	"longitude",
}

// derivedColumns follow the passthrough columns in the cleaned schema
var derivedColumns = []string{
	"resolution_hours",
	"month",
	"hour",
	"weekday",
	"is_weekend",
}

// Cleaner turns a raw dataset file into an analysis-ready one. It is a pure
// function of its input file; no network access happens here.
type Cleaner struct {
	maxResolutionHours float64
	logger             *slog.Logger
}

// New creates a cleaner with the configured thresholds
func New(cfg config.CleanConfig, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		maxResolutionHours: cfg.MaxResolutionHours,
		logger:             logger,
	}
}

// Clean loads the raw file at rawPath, projects, filters, derives features,
// and writes the cleaned file to outPath. The returned report breaks down
// every dropped row by reason.
//
// Fatal conditions: missing or unreadable input, or a raw schema lacking
// created_date or closed_date. Any other absent column is tolerated.
func (c *Cleaner) Clean(ctx context.Context, rawPath, outPath string) (*Report, error) {
	c.logger.InfoContext(ctx, "Loading raw data", slog.String("path", rawPath))

	raw, err := exporter.ReadRawParquet(rawPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw dataset: %w", err)
	}

	report := &Report{RowsLoaded: raw.Len()}
	c.logger.InfoContext(ctx, "Original shape",
		slog.Int("rows", raw.Len()),
		slog.Int("columns", len(raw.Columns())))

	projected := raw.Project(wantedColumns)
	report.ColumnsKept = projected.Columns()
	c.logger.InfoContext(ctx, "After column filter",
		slog.Int("columns", len(report.ColumnsKept)))

	for _, required := range []string{exporter.ColCreatedDate, exporter.ColClosedDate} {
		if !projected.HasColumn(required) {
			return nil, fmt.Errorf("raw dataset is missing required column %q", required)
		}
	}

	cleaned := dataset.New()
	cleaned.RegisterColumns(report.ColumnsKept...)
	cleaned.RegisterColumns(derivedColumns...)

	for _, row := range projected.Rows() {
		created, createdOK := dataset.ParseTimestamp(row[exporter.ColCreatedDate])
		closed, closedOK := dataset.ParseTimestamp(row[exporter.ColClosedDate])
		if !createdOK || !closedOK {
			report.DroppedBadTimestamps++
			continue
		}

		resolutionHours := closed.Sub(created).Hours()
		if resolutionHours < 0 || resolutionHours > c.maxResolutionHours {
			report.DroppedResolutionRange++
			continue
		}

		out := make(map[string]any, len(report.ColumnsKept)+len(derivedColumns))
		for _, name := range report.ColumnsKept {
			switch name {
			case exporter.ColCreatedDate:
				out[name] = created
			case exporter.ColClosedDate:
				out[name] = closed
			default:
				if value, ok := row[name]; ok {
					out[name] = value
				}
			}
		}

		weekday := mondayIndexedWeekday(created)
		out["resolution_hours"] = float32(resolutionHours)
		out["month"] = float32(created.Month())
		out["hour"] = float32(created.Hour())
		out["weekday"] = float32(weekday)
		if weekday == 5 || weekday == 6 {
			out["is_weekend"] = float32(1)
		} else {
			out["is_weekend"] = float32(0)
		}

		cleaned.AppendRow(out)
	}

	c.logger.InfoContext(ctx, "After dropping invalid dates",
		slog.Int("dropped", report.DroppedBadTimestamps))
	c.logger.InfoContext(ctx, "After filtering resolution_hours",
		slog.Int("dropped", report.DroppedResolutionRange),
		slog.Float64("max_hours", c.maxResolutionHours))

	if err := exporter.WriteCleanedParquet(outPath, cleaned); err != nil {
		return nil, fmt.Errorf("failed to write cleaned dataset: %w", err)
	}

	report.RowsWritten = cleaned.Len()
	c.logger.InfoContext(ctx, "Cleaning finished",
		slog.Int("rows_loaded", report.RowsLoaded),
		slog.Int("rows_written", report.RowsWritten),
		slog.Int("rows_dropped", report.Dropped()),
		slog.String("output", outPath))

	return report, nil
}

// mondayIndexedWeekday maps time.Weekday (Sunday=0) to the 0=Monday..6=Sunday
// convention used by the weekday feature.
func mondayIndexedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
