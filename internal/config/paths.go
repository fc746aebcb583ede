package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout stamps output artifacts of a run
const TimestampLayout = "20060102_150405"

// Paths contains the resolved, absolute data layout
//
//	<base>/
//	  ├── data/
//	  │   ├── raw/         (downloaded or dropped-in sources)
//	  │   └── processed/   (cleaned tables and quality reports)
//	  └── logs/
type Paths struct {
	BaseDir      string
	RawDir       string
	ProcessedDir string
	LogsDir      string
}

// ResolvePaths turns the configured layout into absolute paths
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", cfg.BaseDir, err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:      base,
		RawDir:       resolve(cfg.RawDir),
		ProcessedDir: resolve(cfg.ProcessedDir),
		LogsDir:      resolve(cfg.LogsDir),
	}, nil
}

// EnsureDirectories creates all required directories
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.RawDir, p.ProcessedDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CleanedDataPath returns the cleaned table path for a run started at ts
func (p *Paths) CleanedDataPath(ts time.Time) string {
	return filepath.Join(p.ProcessedDir, fmt.Sprintf("zomato_cleaned_%s.csv", ts.Format(TimestampLayout)))
}

// QualityReportPath returns the report path for a run started at ts
func (p *Paths) QualityReportPath(ts time.Time) string {
	return filepath.Join(p.ProcessedDir, fmt.Sprintf("quality_report_%s.json", ts.Format(TimestampLayout)))
}

// RawPath returns a path inside the raw data directory
func (p *Paths) RawPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// LogPathResolution logs every resolved path for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Resolved paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("raw_dir", p.RawDir),
		slog.String("processed_dir", p.ProcessedDir),
		slog.String("logs_dir", p.LogsDir))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
