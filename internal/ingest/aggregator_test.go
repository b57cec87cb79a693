package ingest

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyc311/internal/config"
	"nyc311/internal/exporter"
	"nyc311/internal/shared/testutil"
	"nyc311/internal/socrata"
)

func record(created, complaint string) map[string]any {
	return map[string]any{
		"created_date":   created,
		"complaint_type": complaint,
		"borough":        "BROOKLYN",
	}
}

func setupAggregator(t *testing.T, pages [][]map[string]any) (*Aggregator, *testutil.MockSocrataServer, *config.Paths, *testutil.BufferedSlogHandler) {
	t.Helper()

	server := testutil.NewMockSocrataServer(pages)
	t.Cleanup(server.Close)

	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	handler := testutil.NewBufferedSlogHandler(t)
	logger := slog.New(handler)

	client := socrata.NewClient(config.SourceConfig{
		BaseURL: server.URL(),
		Timeout: 5 * time.Second,
	}, logger)

	return New(client, paths, logger), server, paths, handler
}

func TestAggregator_Run_Paginated(t *testing.T) {
	pages := [][]map[string]any{
		{record("2025-01-01T08:00:00.000", "Noise - Residential"), record("2025-01-02T09:00:00.000", "Illegal Parking")},
		{record("2025-01-03T10:00:00.000", "Heat/Hot Water"), record("2025-01-04T11:00:00.000", "Blocked Driveway")},
	}
	aggregator, server, paths, _ := setupAggregator(t, pages)

	scope := Scope{
		Name:       "test",
		Where:      "created_date >= '2025-01-01T00:00:00'",
		Order:      "created_date",
		PageSize:   2,
		Paginate:   true,
		OutputFile: "test_raw.parquet",
	}

	summary, err := aggregator.Run(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, 4, summary.RowsFetched)
	assert.Equal(t, 0, summary.RowsDropped)
	assert.Equal(t, 4, summary.RowsWritten)
	assert.Equal(t, paths.RawPath("test_raw.parquet"), summary.OutputPath)

	// Two full pages plus the empty terminating page.
	assert.Len(t, server.Requests(), 3)

	table, err := exporter.ReadRawParquet(summary.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, "Noise - Residential", table.Row(0)["complaint_type"])
	assert.Equal(t, "Blocked Driveway", table.Row(3)["complaint_type"])
}

func TestAggregator_Run_SampleWritesCSV(t *testing.T) {
	pages := [][]map[string]any{
		{record("2025-06-01T12:00:00.000", "Noise - Street/Sidewalk")},
	}
	aggregator, server, paths, _ := setupAggregator(t, pages)

	cfg := config.Default()
	cfg.Dataset.SampleSize = 5

	summary, err := aggregator.Run(context.Background(), SampleScope(cfg))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 1, summary.RowsWritten)
	assert.Equal(t, paths.RawPath(config.SampleFile), summary.OutputPath)

	// A single non-paginated request ordered newest first.
	requests := server.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "created_date DESC", requests[0].Get("$order"))
	assert.Equal(t, "5", requests[0].Get("$limit"))
	assert.False(t, requests[0].Has("$where"))

	content, err := os.ReadFile(summary.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Noise - Street/Sidewalk")
}

func TestAggregator_Run_EmptyResultIsSoftWarning(t *testing.T) {
	aggregator, _, paths, handler := setupAggregator(t, nil)

	scope := Scope{
		Name:       "empty",
		Order:      "created_date",
		PageSize:   10,
		Paginate:   true,
		OutputFile: "empty.parquet",
	}

	summary, err := aggregator.Run(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.RowsWritten)
	assert.Empty(t, summary.OutputPath)
	assert.NoFileExists(t, paths.RawPath("empty.parquet"))
	assert.True(t, handler.HasMessage("No data downloaded"))
}

func TestAggregator_Run_FetchErrorAbortsRun(t *testing.T) {
	pages := [][]map[string]any{
		{record("2025-01-01T08:00:00.000", "Noise - Residential")},
	}
	aggregator, server, paths, _ := setupAggregator(t, pages)
	server.FailWith(500, 1)

	scope := Scope{
		Name:       "failing",
		Order:      "created_date",
		PageSize:   1,
		Paginate:   true,
		OutputFile: "failing.parquet",
	}

	_, err := aggregator.Run(context.Background(), scope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download failed")

	// No partial-result recovery: nothing was written.
	assert.NoFileExists(t, paths.RawPath("failing.parquet"))
}

func TestAggregator_Run_YearValidation(t *testing.T) {
	pages := [][]map[string]any{
		{
			record("2025-03-01T10:00:00.000", "kept"),
			record("2024-12-31T23:59:00.000", "wrong year"),
			record("not-a-timestamp", "unparseable"),
			record("2025-11-20T08:30:00.000", "also kept"),
		},
	}
	aggregator, _, _, handler := setupAggregator(t, pages)

	scope := Scope{
		Name:         "year",
		Where:        "created_date >= '2025-01-01T00:00:00' AND created_date < '2026-01-01T00:00:00'",
		Order:        "created_date",
		PageSize:     10,
		Paginate:     true,
		ValidateYear: 2025,
		OutputFile:   "year_raw.parquet",
	}

	summary, err := aggregator.Run(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.RowsFetched)
	assert.Equal(t, 2, summary.RowsDropped)
	assert.Equal(t, 2, summary.RowsWritten)
	assert.True(t, handler.HasMessage("Year distribution"))

	table, err := exporter.ReadRawParquet(summary.OutputPath)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "kept", table.Row(0)["complaint_type"])
	assert.Equal(t, "also kept", table.Row(1)["complaint_type"])
}

func TestAggregator_Run_YearValidationSkippedWithoutCreatedDate(t *testing.T) {
	pages := [][]map[string]any{
		{
			{"complaint_type": "Noise - Residential", "borough": "BROOKLYN"},
			{"complaint_type": "Illegal Parking", "borough": "QUEENS"},
		},
	}
	aggregator, _, _, handler := setupAggregator(t, pages)

	scope := Scope{
		Name:         "no-dates",
		Order:        "created_date",
		PageSize:     10,
		Paginate:     true,
		ValidateYear: 2025,
		OutputFile:   "no_dates_raw.parquet",
	}

	summary, err := aggregator.Run(context.Background(), scope)
	require.NoError(t, err)

	// Without the column there is nothing to check against; rows are kept.
	assert.Equal(t, 0, summary.RowsDropped)
	assert.Equal(t, 2, summary.RowsWritten)
	assert.True(t, handler.HasMessage("skipping year validation"))
	assert.False(t, handler.HasMessage("Year distribution"))
}

func TestAggregator_Run_OverwritesPreviousFile(t *testing.T) {
	first := [][]map[string]any{
		{record("2025-01-01T08:00:00.000", "old"), record("2025-01-02T08:00:00.000", "old")},
	}
	aggregator, _, paths, _ := setupAggregator(t, first)

	scope := Scope{
		Name:       "overwrite",
		Order:      "created_date",
		PageSize:   10,
		Paginate:   true,
		OutputFile: "overwrite.parquet",
	}

	_, err := aggregator.Run(context.Background(), scope)
	require.NoError(t, err)

	second := [][]map[string]any{
		{record("2025-02-01T08:00:00.000", "new")},
	}
	server := testutil.NewMockSocrataServer(second)
	defer server.Close()

	handler := testutil.NewBufferedSlogHandler(t)
	logger := slog.New(handler)
	client := socrata.NewClient(config.SourceConfig{BaseURL: server.URL(), Timeout: 5 * time.Second}, logger)

	_, err = New(client, paths, logger).Run(context.Background(), scope)
	require.NoError(t, err)

	table, err := exporter.ReadRawParquet(paths.RawPath("overwrite.parquet"))
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "new", table.Row(0)["complaint_type"])
}

func TestScopeConstructors(t *testing.T) {
	cfg := config.Default()

	t.Run("sample", func(t *testing.T) {
		scope := SampleScope(cfg)
		assert.Equal(t, "created_date DESC", scope.Order)
		assert.Equal(t, cfg.Dataset.SampleSize, scope.PageSize)
		assert.False(t, scope.Paginate)
		assert.Empty(t, scope.Where)
		assert.True(t, strings.HasSuffix(scope.OutputFile, ".csv"))
	})

	t.Run("rolling window", func(t *testing.T) {
		now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
		scope := RollingWindowScope(cfg, now)
		assert.Equal(t, "created_date >= '2025-02-01T12:00:00'", scope.Where)
		assert.Equal(t, "created_date", scope.Order)
		assert.True(t, scope.Paginate)
		assert.Zero(t, scope.PageDelay)
		assert.Zero(t, scope.ValidateYear)
		assert.Equal(t, config.RollingWindowFile, scope.OutputFile)
	})

	t.Run("calendar year", func(t *testing.T) {
		scope := CalendarYearScope(cfg)
		assert.Equal(t,
			"created_date >= '2025-01-01T00:00:00' AND created_date < '2026-01-01T00:00:00'",
			scope.Where)
		assert.Equal(t, "created_date", scope.Order)
		assert.True(t, scope.Paginate)
		assert.Equal(t, cfg.Dataset.PageDelay, scope.PageDelay)
		assert.Equal(t, 2025, scope.ValidateYear)
		assert.Equal(t, "nyc_311_2025_raw.parquet", scope.OutputFile)
	})
}

func TestAggregator_Run_ColumnSupersetPreserved(t *testing.T) {
	pages := [][]map[string]any{
		{
			{"created_date": "2025-01-01T08:00:00.000", "complaint_type": "Noise"},
			{"created_date": "2025-01-02T08:00:00.000", "descriptor": "Loud Music", "incident_zip": "11201"},
		},
	}
	aggregator, _, _, _ := setupAggregator(t, pages)

	scope := Scope{
		Name:       "sparse",
		Order:      "created_date",
		PageSize:   10,
		Paginate:   true,
		OutputFile: "sparse.parquet",
	}

	summary, err := aggregator.Run(context.Background(), scope)
	require.NoError(t, err)

	table, err := exporter.ReadRawParquet(summary.OutputPath)
	require.NoError(t, err)

	// Sparse fields from any row end up in the schema; absent cells stay null.
	assert.ElementsMatch(t,
		[]string{"created_date", "complaint_type", "descriptor", "incident_zip"},
		table.Columns())
	_, hasDescriptor := table.Row(0)["descriptor"]
	assert.False(t, hasDescriptor)
	assert.Equal(t, "Loud Music", table.Row(1)["descriptor"])
}
