package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Well-known dataset file names. Each pipeline run fully overwrites its target,
// so these are stable coordinates between the download and cleaning stages.
const (
	SampleFile          = "nyc_311_sample.csv"
	RollingWindowFile   = "nyc_311_full_year.parquet"
	CleanedFullYearFile = "nyc_311_full_year_cleaned.parquet"
)

// CalendarYearFile returns the raw file name for a calendar-year download
func CalendarYearFile(year int) string {
	return fmt.Sprintf("nyc_311_%d_raw.parquet", year)
}

// Paths contains all the pipeline paths.
// This is the single source of truth for file locations in the application.
type Paths struct {
	ExecutableDir string
	DataDir       string
	RawDir        string
	CleanedDir    string
	LogsDir       string
}

// GetPaths returns the pipeline paths relative to the executable location.
// Paths are always relative to the executable directory, never the current
// working directory, so the binaries behave the same wherever they are invoked.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return NewPaths(filepath.Dir(exe)), nil
}

// NewPaths builds the path layout rooted at baseDir.
// Directory structure:
//
//	baseDir/
//	  ├── data/
//	  │   ├── raw/       (downloaded datasets)
//	  │   └── cleaned/   (analysis-ready datasets)
//	  └── logs/
func NewPaths(baseDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")

	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       dataDir,
		RawDir:        filepath.Join(dataDir, "raw"),
		CleanedDir:    filepath.Join(dataDir, "cleaned"),
		LogsDir:       filepath.Join(baseDir, "logs"),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.CleanedDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// RawPath returns the path of a raw dataset file
func (p *Paths) RawPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// CleanedPath returns the path of a cleaned dataset file
func (p *Paths) CleanedPath(filename string) string {
	return filepath.Join(p.CleanedDir, filename)
}

// GetLogPath returns the path of a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
