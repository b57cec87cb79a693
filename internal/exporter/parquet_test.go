package exporter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyc311/internal/dataset"
)

func TestRawParquet_Roundtrip(t *testing.T) {
	table := dataset.New()
	table.RegisterColumns("created_date", "complaint_type", "descriptor", "location")
	table.AppendRow(map[string]any{
		"created_date":   "2025-03-01T10:00:00.000",
		"complaint_type": "Noise - Residential",
		"location":       map[string]any{"latitude": "40.6892"},
	})
	table.AppendRow(map[string]any{
		"created_date": "2025-03-02T11:00:00.000",
		"descriptor":   "Loud Music/Party",
	})

	path := filepath.Join(t.TempDir(), "raw.parquet")
	require.NoError(t, WriteRawParquet(path, table))

	got, err := ReadRawParquet(path)
	require.NoError(t, err)

	require.Equal(t, 2, got.Len())
	assert.ElementsMatch(t,
		[]string{"created_date", "complaint_type", "descriptor", "location"},
		got.Columns())

	assert.Equal(t, "Noise - Residential", got.Row(0)["complaint_type"])
	// Nested values were JSON-encoded on write.
	assert.Contains(t, got.Row(0)["location"], `"latitude":"40.6892"`)

	// Absent cells stay absent after the roundtrip.
	_, ok := got.Row(0)["descriptor"]
	assert.False(t, ok)
	_, ok = got.Row(1)["complaint_type"]
	assert.False(t, ok)
	assert.Equal(t, "Loud Music/Party", got.Row(1)["descriptor"])
}

func TestRawParquet_AllNullColumnSurvives(t *testing.T) {
	table := dataset.New()
	table.RegisterColumns("created_date", "closed_date")
	table.AppendRow(map[string]any{"created_date": "2025-03-01T10:00:00.000"})

	path := filepath.Join(t.TempDir(), "raw.parquet")
	require.NoError(t, WriteRawParquet(path, table))

	got, err := ReadRawParquet(path)
	require.NoError(t, err)

	assert.True(t, got.HasColumn("closed_date"))
	_, ok := got.Row(0)["closed_date"]
	assert.False(t, ok)
}

func TestCleanedParquet_Roundtrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	closed := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	table := dataset.New()
	table.RegisterColumns(
		"created_date", "closed_date", "complaint_type",
		"resolution_hours", "month", "hour", "weekday", "is_weekend")
	table.AppendRow(map[string]any{
		"created_date":     created,
		"closed_date":      closed,
		"complaint_type":   "Noise - Residential",
		"resolution_hours": float32(48),
		"month":            float32(3),
		"hour":             float32(10),
		"weekday":          float32(5),
		"is_weekend":       float32(1),
	})

	path := filepath.Join(t.TempDir(), "cleaned.parquet")
	require.NoError(t, WriteCleanedParquet(path, table))

	got, err := ReadCleanedParquet(path)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())

	row := got.Row(0)
	assert.Equal(t, created, row["created_date"])
	assert.Equal(t, closed, row["closed_date"])
	assert.Equal(t, "Noise - Residential", row["complaint_type"])
	assert.Equal(t, float32(48), row["resolution_hours"])
	assert.Equal(t, float32(5), row["weekday"])
	assert.Equal(t, float32(1), row["is_weekend"])
}

func TestCleanedParquet_SubSecondPrecisionIsMilliseconds(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 123_456_789, time.UTC)

	table := dataset.New()
	table.AppendRow(map[string]any{
		"created_date":     created,
		"closed_date":      created.Add(time.Hour),
		"resolution_hours": float32(1),
	})

	path := filepath.Join(t.TempDir(), "cleaned.parquet")
	require.NoError(t, WriteCleanedParquet(path, table))

	got, err := ReadCleanedParquet(path)
	require.NoError(t, err)

	// Millisecond storage truncates finer precision.
	want := time.Date(2025, 3, 1, 10, 0, 0, 123_000_000, time.UTC)
	assert.Equal(t, want, got.Row(0)["created_date"])
}

func TestRawParquet_ManyRowsRoundtrip(t *testing.T) {
	const rows = 150

	table := dataset.New()
	table.RegisterColumns("created_date", "complaint_type")
	for i := 0; i < rows; i++ {
		table.AppendRow(map[string]any{
			"created_date":   time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC).Format("2006-01-02T15:04:05.000"),
			"complaint_type": "Noise - Residential",
		})
	}

	path := filepath.Join(t.TempDir(), "many.parquet")
	require.NoError(t, WriteRawParquet(path, table))

	got, err := ReadRawParquet(path)
	require.NoError(t, err)
	require.Equal(t, rows, got.Len())

	// Row order and distinct row identity survive the batched read.
	assert.Equal(t, "2025-01-01T00:00:00.000", got.Row(0)["created_date"])
	assert.Equal(t, "2025-01-01T00:02:29.000", got.Row(rows-1)["created_date"])
	assert.NotEqual(t, got.Row(0)["created_date"], got.Row(1)["created_date"])
}

func TestWriteParquet_EmptyTableStillProducesFile(t *testing.T) {
	table := dataset.New()
	table.RegisterColumns("created_date")

	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteRawParquet(path, table))

	got, err := ReadRawParquet(path)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, []string{"created_date"}, got.Columns())
}

func TestReadRawParquet_MissingFile(t *testing.T) {
	_, err := ReadRawParquet(filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open parquet file")
}
