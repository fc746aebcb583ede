package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zomatoclean/internal/config"
	apperrors "zomatoclean/internal/errors"
	"zomatoclean/internal/infrastructure"
	"zomatoclean/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV and JSON export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	return &CSVWriter{
		paths:  paths,
		logger: infrastructure.WithComponent(logger, "exporter"),
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteTable writes a table with its column names as the header row
func (w *CSVWriter) WriteTable(filePath string, t *domain.Table, options WriteOptions) error {
	stream, err := w.CreateStreamWriter(filePath, t.ColumnNames(), options.BOMPrefix)
	if err != nil {
		return err
	}

	columns := t.Columns()
	record := make([]string, len(columns))
	for i := 0; i < t.RowCount(); i++ {
		for j, c := range columns {
			record[j] = formatValue(c.Values[i])
		}
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d", i), err)
		}
	}
	if err := stream.Close(); err != nil {
		return err
	}

	w.logger.Info("table written",
		slog.String("path", stream.path),
		slog.Int("rows", t.RowCount()),
		slog.Int("columns", t.ColumnCount()))
	return nil
}

// WriteJSON writes v as indented JSON
func (w *CSVWriter) WriteJSON(filePath string, v any) error {
	fullPath := w.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("failed to encode "+filepath.Base(fullPath), err)
	}
	if err := os.WriteFile(fullPath, append(data, '\n'), 0644); err != nil {
		return apperrors.NewStorageError("failed to write "+fullPath, err)
	}

	w.logger.Info("json written", slog.String("path", fullPath), slog.Int("bytes", len(data)))
	return nil
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// CreateStreamWriter creates a new streaming CSV writer
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string, bom bool) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("header_count", len(headers)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create directory", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create file", err)
	}

	if bom {
		if _, err := file.Write(utf8BOM); err != nil {
			file.Close()
			return nil, apperrors.NewStorageError("failed to write BOM", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, apperrors.NewStorageError("failed to write headers", err)
		}
	}

	return &StreamWriter{path: fullPath, file: file, writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return apperrors.NewStorageError("failed to flush "+s.path, err)
	}
	if err := s.file.Close(); err != nil {
		return apperrors.NewStorageError("failed to close "+s.path, err)
	}
	return nil
}

// resolvePath places relative paths under the processed data directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return filepath.Join(w.paths.ProcessedDir, filePath)
}
