package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "zomatoclean/internal/errors"
	"zomatoclean/internal/files"
	"zomatoclean/internal/infrastructure"
	"zomatoclean/pkg/contracts/domain"
)

const utf8BOM = "\ufeff"

// Tokens read as missing cells
var missingTokens = map[string]bool{
	"":         true,
	"na":       true,
	"n/a":      true,
	"nan":      true,
	"-nan":     true,
	"null":     true,
	"none":     true,
	"<na>":     true,
	"#n/a":     true,
	"#na":      true,
	"#n/a n/a": true,
}

// IsMissingToken reports whether a raw cell denotes a missing value
func IsMissingToken(cell string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(cell))]
}

// Loader resolves and reads the source dataset
type Loader struct {
	discovery  *files.Discovery
	acquirer   Acquirer
	searchDirs []string
	pattern    string
	log        *infrastructure.StepLogger
}

// NewLoader creates a loader that falls back to scanning searchDirs, in
// order, for files whose name contains pattern. acquirer may be nil.
func NewLoader(pattern string, acquirer Acquirer, logger *slog.Logger, searchDirs ...string) *Loader {
	return &Loader{
		discovery:  files.NewDiscovery(""),
		acquirer:   acquirer,
		searchDirs: searchDirs,
		pattern:    pattern,
		log:        infrastructure.NewStepLogger(logger, "dataprocessing.loader"),
	}
}

// Resolve picks the source file. An explicit path must exist. Otherwise the
// acquirer is tried first and then the search directories, newest file first.
func (l *Loader) Resolve(ctx context.Context, path string) (string, error) {
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return "", apperrors.NewDataUnavailableError(fmt.Sprintf("source %s is not readable", path), err).
				WithContext("path", path)
		}
		if info.IsDir() {
			return "", apperrors.NewDataUnavailableError(fmt.Sprintf("source %s is a directory", path), nil).
				WithContext("path", path)
		}
		return path, nil
	}

	if l.acquirer != nil {
		acquired, err := l.acquirer.Acquire(ctx)
		switch {
		case err == nil:
			return acquired, nil
		case !errors.Is(err, ErrAcquisitionDisabled):
			l.log.Warn(ctx, "load", "dataset acquisition failed, scanning local directories",
				slog.String("error", err.Error()))
		}
	}

	for _, dir := range l.searchDirs {
		candidates, err := l.discovery.FindSourceCandidates(dir, l.pattern)
		if err != nil {
			return "", apperrors.NewDataUnavailableError("failed to scan "+dir, err)
		}
		if latest, ok := files.GetLatestFile(candidates); ok {
			l.log.Logger().InfoContext(ctx, "source discovered",
				slog.String("path", latest.Path),
				slog.Int("candidates", len(candidates)))
			return latest.Path, nil
		}
	}

	return "", apperrors.NewDataUnavailableError(
		fmt.Sprintf("no %q dataset found in %s", l.pattern, strings.Join(l.searchDirs, ", ")), nil)
}

// Load resolves the source and reads it into a table. It returns the table,
// its load-time description and the path actually read.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Table, domain.DataInfo, string, error) {
	started := l.log.Start(ctx, "load")

	source, err := l.Resolve(ctx, path)
	if err != nil {
		l.log.Error(ctx, "load", err)
		return nil, domain.DataInfo{}, "", err
	}

	table, err := ReadFile(source)
	if err != nil {
		l.log.Error(ctx, "load", err)
		return nil, domain.DataInfo{}, source, err
	}

	info := NewDataInfo(table)
	l.log.Complete(ctx, "load", started,
		slog.String("source", source),
		slog.Int("rows", info.Shape.Rows),
		slog.Int("columns", info.Shape.Columns),
		slog.Float64("memory_mb", info.MemoryMB))
	return table, info, source, nil
}

// ReadFile reads a .csv or .xlsx file by extension
func ReadFile(path string) (*domain.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.NewDataUnavailableError("failed to open "+path, err).WithContext("path", path)
		}
		defer f.Close()

		table, err := ReadCSV(f)
		if err != nil {
			return nil, apperrors.NewMalformedSourceError(path, err)
		}
		return table, nil
	}
}

// ReadCSV parses delimited text with a header row. Every record must have
// as many fields as the header.
func ReadCSV(r io.Reader) (*domain.Table, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty source: no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		rows = append(rows, record)
	}
	return BuildTable(header, rows)
}

// ReadXLSX reads the first sheet of a workbook. The first row is the header.
func ReadXLSX(path string) (*domain.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewMalformedSourceError(path, fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewMalformedSourceError(path, errors.New("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewMalformedSourceError(path, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err))
	}
	if len(rows) == 0 {
		return nil, apperrors.NewMalformedSourceError(path, errors.New("empty source: no header row"))
	}

	header := rows[0]
	body := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		// trailing empty cells are not returned by the sheet reader
		if len(row) > len(header) {
			return nil, apperrors.NewMalformedSourceError(path,
				fmt.Errorf("row %d has %d cells, header has %d", i+2, len(row), len(header)))
		}
		padded := make([]string, len(header))
		copy(padded, row)
		body = append(body, padded)
	}

	table, err := BuildTable(header, body)
	if err != nil {
		return nil, apperrors.NewMalformedSourceError(path, err)
	}
	return table, nil
}

// BuildTable turns raw string records into typed columns. A column whose
// present cells all parse as integers becomes Integer, as numbers Float,
// otherwise String. Columns with no present cells are Float.
func BuildTable(header []string, rows [][]string) (*domain.Table, error) {
	columns := make([]*domain.Column, len(header))
	for j, name := range header {
		raw := make([]string, len(rows))
		for i, row := range rows {
			if len(row) != len(header) {
				return nil, fmt.Errorf("record %d has %d fields, header has %d", i+1, len(row), len(header))
			}
			raw[i] = row[j]
		}
		columns[j] = inferColumn(strings.TrimSpace(name), raw)
	}
	return domain.NewTable(columns...)
}

func inferColumn(name string, raw []string) *domain.Column {
	allInt, allFloat, present := true, true, 0
	for _, cell := range raw {
		if IsMissingToken(cell) {
			continue
		}
		present++
		s := strings.TrimSpace(cell)
		if allInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				allFloat = false
			}
		}
		if !allFloat {
			break
		}
	}

	kind := domain.KindString
	switch {
	case present == 0:
		kind = domain.KindFloat
	case allInt:
		kind = domain.KindInteger
	case allFloat:
		kind = domain.KindFloat
	}

	values := make([]domain.Value, len(raw))
	for i, cell := range raw {
		if IsMissingToken(cell) {
			continue
		}
		s := strings.TrimSpace(cell)
		switch kind {
		case domain.KindInteger:
			n, _ := strconv.ParseInt(s, 10, 64)
			values[i] = domain.IntValue(n)
		case domain.KindFloat:
			f, _ := strconv.ParseFloat(s, 64)
			values[i] = domain.FloatValue(f)
		default:
			values[i] = domain.StringValue(cell)
		}
	}
	return domain.NewColumn(name, kind, values)
}

// NewDataInfo describes a table as loaded
func NewDataInfo(t *domain.Table) domain.DataInfo {
	info := domain.DataInfo{
		Shape:         t.Shape(),
		Columns:       t.ColumnNames(),
		DataTypes:     make(map[string]string, t.ColumnCount()),
		MissingValues: make(map[string]int, t.ColumnCount()),
		MemoryMB:      domain.BytesToMB(t.MemoryBytes()),
	}
	for _, c := range t.Columns() {
		info.DataTypes[c.Name] = c.Kind.String()
		info.MissingValues[c.Name] = c.MissingCount()
	}
	return info
}
