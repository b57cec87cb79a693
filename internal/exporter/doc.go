// Package exporter writes and reads the pipeline's dataset files.
//
// Raw downloads are stored either as CSV (the sample file) or as parquet with
// an all-optional-string schema, since the upstream feed is untyped and sparse.
// Cleaned datasets use typed parquet columns: millisecond timestamps for the
// two date columns and float32 for the derived numeric features.
package exporter
