package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"zomatoclean/internal/config"
	apierrors "zomatoclean/internal/errors"
	"zomatoclean/internal/files"
	"zomatoclean/internal/infrastructure"
	"zomatoclean/pkg/contracts/domain"
)

// Glob patterns of the artifacts a run writes into the processed directory
const (
	CleanedDataPattern   = "zomato_cleaned_*.csv"
	QualityReportPattern = "quality_report_*.json"
)

// OutputFile describes one artifact in the processed directory
type OutputFile struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// DataService exposes the artifacts previous runs left on disk
type DataService struct {
	paths     *config.Paths
	discovery *files.Discovery
	logger    *slog.Logger
}

// NewDataService creates a data service rooted at the processed directory
func NewDataService(paths *config.Paths, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &DataService{
		paths:     paths,
		discovery: files.NewDiscovery(paths.BaseDir),
		logger:    infrastructure.WithComponent(logger, "data_service"),
	}
}

// ListOutputs returns cleaned tables and quality reports, newest first
func (ds *DataService) ListOutputs(ctx context.Context) ([]OutputFile, error) {
	var out []OutputFile
	for kind, pattern := range map[string]string{"cleaned_data": CleanedDataPattern, "quality_report": QualityReportPattern} {
		found, err := ds.discovery.FindFilesByPattern(ds.paths.ProcessedDir, pattern)
		if err != nil {
			return nil, apierrors.NewStorageError("failed to list processed directory", err)
		}
		for _, f := range found {
			out = append(out, OutputFile{Name: f.Name, Kind: kind, Size: f.Size, Modified: f.ModTime.UTC()})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	ds.logger.DebugContext(ctx, "listed outputs", slog.Int("count", len(out)))
	return out, nil
}

// LatestReport reads the most recent quality report
func (ds *DataService) LatestReport(ctx context.Context) (*domain.QualityReport, error) {
	found, err := ds.discovery.FindFilesByPattern(ds.paths.ProcessedDir, QualityReportPattern)
	if err != nil {
		return nil, apierrors.NewStorageError("failed to list processed directory", err)
	}
	latest, ok := files.GetLatestFile(found)
	if !ok {
		return nil, apierrors.NewNotFoundError("quality report")
	}

	data, err := os.ReadFile(latest.Path)
	if err != nil {
		return nil, apierrors.NewStorageError(fmt.Sprintf("failed to read %s", latest.Name), err)
	}
	var report domain.QualityReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, apierrors.NewMalformedSourceError(latest.Path, err)
	}

	ds.logger.DebugContext(ctx, "loaded latest quality report", slog.String("file", latest.Name))
	return &report, nil
}

// ServeOutput streams one artifact from the processed directory. name must
// be a bare file name.
func (ds *DataService) ServeOutput(w http.ResponseWriter, r *http.Request, name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		ds.logger.WarnContext(r.Context(), "rejected output path", slog.String("name", name))
		return apierrors.NewNotFoundError("output " + name)
	}
	if !matchesOutput(name) {
		return apierrors.NewNotFoundError("output " + name)
	}

	path := filepath.Join(ds.paths.ProcessedDir, name)
	if !config.FileExists(path) {
		return apierrors.NewNotFoundError("output " + name)
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
	return nil
}

func matchesOutput(name string) bool {
	for _, pattern := range []string{CleanedDataPattern, QualityReportPattern} {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
