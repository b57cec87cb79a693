package exporter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"nyc311/internal/dataset"
)

// Column names with typed parquet representations in cleaned files. Everything
// else is carried as an optional string, mirroring the raw feed.
const (
	ColCreatedDate = "created_date"
	ColClosedDate  = "closed_date"
)

// numericColumns are the derived features narrowed to float32 on write.
// The nominally integral ones (month, hour, weekday, is_weekend) are stored
// as floats too; downstream consumers must tolerate the reduced precision.
var numericColumns = map[string]struct{}{
	"resolution_hours": {},
	"month":            {},
	"hour":             {},
	"weekday":          {},
	"is_weekend":       {},
}

// WriteRawParquet persists a raw table. Every column is an optional string
// because the server emits untyped, sparse fields; nested values are
// JSON-encoded. The file at path is fully overwritten.
func WriteRawParquet(filePath string, table *dataset.Table) error {
	slog.Info("Writing raw parquet file",
		slog.String("path", filePath),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns())))

	group := parquet.Group{}
	for _, name := range table.Columns() {
		group[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("raw", group)

	rows := make([]map[string]any, 0, table.Len())
	for _, row := range table.Rows() {
		out := make(map[string]any, len(row))
		for name, value := range row {
			if cell, ok := formatValue(value); ok {
				out[name] = cell
			}
		}
		rows = append(rows, out)
	}

	return writeParquet(filePath, schema, rows)
}

// ReadRawParquet loads a raw parquet file into a table. Column order follows
// the file schema.
func ReadRawParquet(filePath string) (*dataset.Table, error) {
	columns, rows, err := readParquet(filePath)
	if err != nil {
		return nil, err
	}

	// Register schema columns up front so all-null columns stay visible
	table := dataset.New()
	table.RegisterColumns(columns...)
	for _, row := range rows {
		ordered := make(map[string]any, len(row))
		for _, name := range columns {
			if value, ok := row[name]; ok && value != nil {
				ordered[name] = value
			}
		}
		table.AppendRow(ordered)
	}

	return table, nil
}

// WriteCleanedParquet persists a cleaned table. Timestamp columns are written
// as millisecond timestamps, derived numeric columns as float32, and the
// remaining passthrough columns as optional strings. Only columns present in
// the table appear in the file.
func WriteCleanedParquet(filePath string, table *dataset.Table) error {
	slog.Info("Writing cleaned parquet file",
		slog.String("path", filePath),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns())))

	group := parquet.Group{}
	for _, name := range table.Columns() {
		switch {
		case name == ColCreatedDate || name == ColClosedDate:
			group[name] = parquet.Timestamp(parquet.Millisecond)
		case isNumericColumn(name):
			group[name] = parquet.Leaf(parquet.FloatType)
		default:
			group[name] = parquet.Optional(parquet.String())
		}
	}
	schema := parquet.NewSchema("cleaned", group)

	rows := make([]map[string]any, 0, table.Len())
	for _, row := range table.Rows() {
		out := make(map[string]any, len(row))
		for name, value := range row {
			switch v := value.(type) {
			case time.Time:
				out[name] = v.UnixMilli()
			default:
				out[name] = value
			}
		}
		rows = append(rows, out)
	}

	return writeParquet(filePath, schema, rows)
}

// ReadCleanedParquet loads a cleaned parquet file. Timestamp columns come back
// as time.Time in UTC, numeric columns as float32.
func ReadCleanedParquet(filePath string) (*dataset.Table, error) {
	columns, rows, err := readParquet(filePath)
	if err != nil {
		return nil, err
	}

	table := dataset.New()
	for _, row := range rows {
		out := make(map[string]any, len(row))
		for _, name := range columns {
			value, ok := row[name]
			if !ok || value == nil {
				continue
			}
			if name == ColCreatedDate || name == ColClosedDate {
				if millis, ok := value.(int64); ok {
					out[name] = time.UnixMilli(millis).UTC()
					continue
				}
			}
			out[name] = value
		}
		table.AppendRow(out)
	}

	return table, nil
}

func isNumericColumn(name string) bool {
	_, ok := numericColumns[name]
	return ok
}

// writeParquet writes rows to a new file at path, replacing any previous one
func writeParquet(filePath string, schema *parquet.Schema, rows []map[string]any) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	writer := parquet.NewGenericWriter[map[string]any](file, schema)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			file.Close()
			return fmt.Errorf("failed to write rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	return file.Close()
}

// readParquet reads all rows of a parquet file along with the schema's column
// order.
func readParquet(filePath string) ([]string, []map[string]any, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse parquet file: %w", err)
	}

	var columns []string
	for _, field := range pf.Schema().Fields() {
		columns = append(columns, field.Name())
	}

	// Map rows carry no schema of their own, so the reader is built from the
	// file's schema and each destination map must be allocated before Read.
	reader := parquet.NewGenericReader[map[string]any](file, pf.Schema())
	defer reader.Close()

	var rows []map[string]any
	buffer := make([]map[string]any, 64)
	for {
		for i := range buffer {
			buffer[i] = make(map[string]any)
		}
		n, err := reader.Read(buffer)
		rows = append(rows, buffer[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return columns, rows, nil
}
