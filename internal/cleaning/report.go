package cleaning

// Report accounts for every row of a cleaning run. Data-quality filtering is
// never an error, so the counts are returned to the caller instead of only
// being printed.
type Report struct {
	// RowsLoaded is the raw row count before any filtering.
	RowsLoaded int

	// ColumnsKept are the wanted columns actually present in the raw file,
	// in schema order.
	ColumnsKept []string

	// DroppedBadTimestamps counts rows with an unparseable or missing
	// created_date or closed_date.
	DroppedBadTimestamps int

	// DroppedResolutionRange counts rows whose resolution time was negative
	// or exceeded the configured maximum.
	DroppedResolutionRange int

	// RowsWritten is the surviving row count in the cleaned file.
	RowsWritten int
}

// Dropped returns the total number of discarded rows
func (r *Report) Dropped() int {
	return r.DroppedBadTimestamps + r.DroppedResolutionRange
}
