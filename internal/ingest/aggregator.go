package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"nyc311/internal/config"
	"nyc311/internal/dataset"
	"nyc311/internal/exporter"
	"nyc311/internal/socrata"
)

// Aggregator downloads one scope's records page by page, concatenates them in
// arrival order, and writes a single raw file. Runs never merge with or
// append to prior files; the output is fully overwritten.
type Aggregator struct {
	client *socrata.Client
	paths  *config.Paths
	logger *slog.Logger
}

// New creates an aggregator
func New(client *socrata.Client, paths *config.Paths, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{client: client, paths: paths, logger: logger}
}

// Summary reports what one aggregation run did
type Summary struct {
	Scope       string
	Pages       int
	RowsFetched int
	RowsDropped int
	RowsWritten int
	OutputPath  string
}

// Run executes one download scope. Zero downloaded rows is a soft condition:
// it logs a warning and returns successfully without writing a file. Any
// fetch error aborts the run.
func (a *Aggregator) Run(ctx context.Context, scope Scope) (*Summary, error) {
	logger := a.logger.With(slog.String("scope", scope.Name))
	summary := &Summary{Scope: scope.Name}

	logger.Info("Starting download",
		slog.String("where", scope.Where),
		slog.String("order", scope.Order),
		slog.Int("page_size", scope.PageSize),
		slog.Bool("paginate", scope.Paginate))

	client := a.client.WithPageDelay(scope.PageDelay)
	table := dataset.New()

	query := socrata.Query{
		Where: scope.Where,
		Order: scope.Order,
		Limit: scope.PageSize,
	}

	if scope.Paginate {
		pager := socrata.NewPager(client, query)
		for {
			page, err := pager.Next(ctx)
			if err != nil {
				return nil, fmt.Errorf("download failed for scope %s: %w", scope.Name, err)
			}
			if page == nil {
				logger.Info("No more rows returned, download complete",
					slog.Int("pages", pager.Pages()))
				break
			}

			for _, record := range page {
				table.AppendRow(record)
			}
			summary.Pages = pager.Pages()
			summary.RowsFetched = table.Len()

			logger.Info("Retrieved page",
				slog.Int("page", pager.Pages()),
				slog.Int("rows", len(page)),
				slog.Int("cumulative_rows", table.Len()))
		}
	} else {
		page, err := client.FetchPage(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("download failed for scope %s: %w", scope.Name, err)
		}
		for _, record := range page {
			table.AppendRow(record)
		}
		if len(page) > 0 {
			summary.Pages = 1
		}
		summary.RowsFetched = table.Len()

		logger.Info("Retrieved records", slog.Int("rows", table.Len()))
	}

	if table.Len() == 0 {
		logger.Warn("No data downloaded, check API or filters")
		return summary, nil
	}

	if scope.ValidateYear != 0 {
		table = a.validateYear(ctx, logger, table, scope.ValidateYear)
		summary.RowsDropped = summary.RowsFetched - table.Len()
	}

	outputPath := a.paths.RawPath(scope.OutputFile)
	if err := writeRaw(outputPath, table, logger); err != nil {
		return nil, fmt.Errorf("failed to write raw dataset for scope %s: %w", scope.Name, err)
	}

	summary.RowsWritten = table.Len()
	summary.OutputPath = outputPath

	logger.Info("Download finished",
		slog.Int("pages", summary.Pages),
		slog.Int("rows_fetched", summary.RowsFetched),
		slog.Int("rows_dropped", summary.RowsDropped),
		slog.Int("rows_written", summary.RowsWritten),
		slog.String("output", outputPath))

	return summary, nil
}

// validateYear is the client-side safety filter layered on top of the
// server-side date filter: rows whose created_date fails to parse or falls
// outside the target year are dropped, and the observed year distribution is
// logged first for manual inspection.
func (a *Aggregator) validateYear(ctx context.Context, logger *slog.Logger, table *dataset.Table, year int) *dataset.Table {
	if !table.HasColumn(exporter.ColCreatedDate) {
		logger.Warn("created_date column not found, skipping year validation")
		return table
	}

	histogram := make(map[int]int)
	for _, row := range table.Rows() {
		if t, ok := dataset.ParseTimestamp(row[exporter.ColCreatedDate]); ok {
			histogram[t.Year()]++
		} else {
			histogram[0]++
		}
	}

	years := make([]int, 0, len(histogram))
	for y := range histogram {
		years = append(years, y)
	}
	sort.Ints(years)

	var parts []string
	for _, y := range years {
		label := fmt.Sprintf("%d", y)
		if y == 0 {
			label = "unparseable"
		}
		parts = append(parts, fmt.Sprintf("%s=%d", label, histogram[y]))
	}
	logger.InfoContext(ctx, "Year distribution in downloaded data",
		slog.String("histogram", strings.Join(parts, " ")))

	filtered := table.Filter(func(row map[string]any) bool {
		t, ok := dataset.ParseTimestamp(row[exporter.ColCreatedDate])
		return ok && t.Year() == year
	})

	if dropped := table.Len() - filtered.Len(); dropped > 0 {
		logger.Warn("Dropped rows outside target year",
			slog.Int("dropped", dropped),
			slog.Int("year", year))
	}

	return filtered
}

// writeRaw picks the output format from the file extension
func writeRaw(path string, table *dataset.Table, logger *slog.Logger) error {
	if strings.HasSuffix(path, ".csv") {
		return exporter.NewCSVWriter(logger).WriteTable(path, table)
	}
	return exporter.WriteRawParquet(path, table)
}
