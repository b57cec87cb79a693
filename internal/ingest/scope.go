package ingest

import (
	"fmt"
	"time"

	"nyc311/internal/config"
)

// socrataTimeLayout is the floating-timestamp literal format used in $where
// predicates.
const socrataTimeLayout = "2006-01-02T15:04:05"

// Scope describes one download variant: its server-side filter, pagination
// behavior, optional client-side safety check, and output file.
type Scope struct {
	// Name identifies the scope in logs and summaries.
	Name string

	// Where is the server-side date-range predicate; empty means unfiltered.
	Where string

	// Order is the server-side sort key. Paginated scopes must order by
	// created_date ascending for stable offsets.
	Order string

	// PageSize is the $limit of each request.
	PageSize int

	// Paginate advances the offset until an empty page when true; otherwise a
	// single request is issued.
	Paginate bool

	// PageDelay spaces successive page requests as a courtesy rate limit.
	PageDelay time.Duration

	// ValidateYear, when nonzero, re-parses created_date after download and
	// drops rows outside the target year. The server filter is trusted but
	// not verified.
	ValidateYear int

	// OutputFile is the file name under data/raw. The extension selects the
	// output format (.csv or .parquet).
	OutputFile string
}

// SampleScope grabs the most recent records in a single non-paginated call
func SampleScope(cfg *config.Config) Scope {
	return Scope{
		Name:       "sample",
		Order:      "created_date DESC",
		PageSize:   cfg.Dataset.SampleSize,
		Paginate:   false,
		OutputFile: config.SampleFile,
	}
}

// RollingWindowScope covers the trailing window (365 days by default) ending
// at now
func RollingWindowScope(cfg *config.Config, now time.Time) Scope {
	start := now.UTC().AddDate(0, 0, -cfg.Dataset.WindowDays)

	return Scope{
		Name:       "rolling-window",
		Where:      fmt.Sprintf("created_date >= '%s'", start.Format(socrataTimeLayout)),
		Order:      "created_date",
		PageSize:   cfg.Dataset.PageSize,
		Paginate:   true,
		OutputFile: config.RollingWindowFile,
	}
}

// CalendarYearScope covers one calendar year with the inter-page courtesy
// delay and the post-download year re-validation enabled
func CalendarYearScope(cfg *config.Config) Scope {
	year := cfg.Dataset.Year

	return Scope{
		Name: "calendar-year",
		Where: fmt.Sprintf("created_date >= '%d-01-01T00:00:00' AND created_date < '%d-01-01T00:00:00'",
			year, year+1),
		Order:        "created_date",
		PageSize:     cfg.Dataset.PageSize,
		Paginate:     true,
		PageDelay:    cfg.Dataset.PageDelay,
		ValidateYear: year,
		OutputFile:   config.CalendarYearFile(year),
	}
}
