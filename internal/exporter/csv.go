package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"nyc311/internal/dataset"
)

// CSVWriter provides CSV export for raw tables
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteTable writes the table to a CSV file, fully overwriting any previous
// file at that path. Column order is the table's first-seen order; missing
// values become empty cells.
func (w *CSVWriter) WriteTable(filePath string, table *dataset.Table) error {
	w.logger.Info("Writing CSV file",
		slog.String("path", filePath),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns())))

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	columns := table.Columns()
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(columns))
	for i, row := range table.Rows() {
		for j, name := range columns {
			cell, _ := formatValue(row[name])
			record[j] = cell
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return writer.Error()
}

// formatValue renders a raw field as a string cell. Nested values (the
// endpoint's location objects) are JSON-encoded; nil means the field was
// absent and reports ok=false.
func formatValue(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case float64:
		// json.Number-free decoding turns bare numbers into float64
		data, _ := json.Marshal(v)
		return string(data), true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v), true
		}
		return string(data), true
	}
}
