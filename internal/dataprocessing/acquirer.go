package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"zomatoclean/internal/config"
	apperrors "zomatoclean/internal/errors"
	"zomatoclean/internal/infrastructure"
)

// ErrAcquisitionDisabled is returned when no download URL is configured
var ErrAcquisitionDisabled = errors.New("dataset acquisition is not configured")

// Acquirer fetches the source dataset into local storage and returns its path
type Acquirer interface {
	Acquire(ctx context.Context) (string, error)
}

// HTTPAcquirer downloads the dataset from a fixed URL into a directory
type HTTPAcquirer struct {
	cfg    config.AcquisitionConfig
	dir    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPAcquirer creates an acquirer writing into dir
func NewHTTPAcquirer(cfg config.AcquisitionConfig, dir string, logger *slog.Logger) *HTTPAcquirer {
	return &HTTPAcquirer{
		cfg:    cfg,
		dir:    dir,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: infrastructure.WithComponent(logger, "dataprocessing.acquirer"),
	}
}

// Acquire downloads the dataset. The file is written under a temporary name
// and renamed once complete, so a failed download never leaves a partial
// source behind.
func (a *HTTPAcquirer) Acquire(ctx context.Context) (string, error) {
	if a.cfg.URL == "" {
		return "", ErrAcquisitionDisabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.URL, nil)
	if err != nil {
		return "", apperrors.NewNetworkError("invalid acquisition URL", err)
	}

	a.logger.InfoContext(ctx, "downloading dataset", slog.String("url", a.cfg.URL))
	resp, err := a.client.Do(req)
	if err != nil {
		return "", apperrors.NewNetworkError("dataset download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewNetworkError(fmt.Sprintf("dataset download returned %s", resp.Status), nil).
			WithContext("url", a.cfg.URL)
	}

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create "+a.dir, err)
	}
	target := filepath.Join(a.dir, a.cfg.FileName)
	tmp, err := os.CreateTemp(a.dir, ".download-*")
	if err != nil {
		return "", apperrors.NewStorageError("failed to create download file", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", apperrors.NewNetworkError("dataset download interrupted", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", apperrors.NewStorageError("failed to store dataset", err)
	}

	a.logger.InfoContext(ctx, "dataset downloaded",
		slog.String("path", target),
		slog.Int64("bytes", written))
	return target, nil
}
