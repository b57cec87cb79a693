// Package ingest implements the raw download stage: it runs one Scope
// (sample, rolling window, or calendar year) against the dataset endpoint,
// accumulates every page in memory, optionally re-validates the calendar year
// client-side, and writes a single raw output file per run.
package ingest
