package dataprocessing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "zomatoclean/internal/errors"
	"zomatoclean/pkg/contracts/domain"
)

type stubAcquirer struct {
	path string
	err  error
}

func (s stubAcquirer) Acquire(context.Context) (string, error) { return s.path, s.err }

func writeFile(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestReadCSVInfersKinds(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("\ufeffid,score,label,empty\n1,2.5,a,\n2,NaN,b,NA\n3,4,,null\n"))
	require.NoError(t, err)

	assert.Equal(t, domain.Shape{Rows: 3, Columns: 4}, table.Shape())
	assert.Equal(t, []string{"id", "score", "label", "empty"}, table.ColumnNames())

	kinds := map[string]domain.Kind{}
	for _, c := range table.Columns() {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, map[string]domain.Kind{
		"id":    domain.KindInteger,
		"score": domain.KindFloat,
		"label": domain.KindString,
		"empty": domain.KindFloat,
	}, kinds)

	score, _ := table.Column("score")
	assert.Equal(t, 1, score.MissingCount())
	empty, _ := table.Column("empty")
	assert.Equal(t, 3, empty.MissingCount())
}

func TestReadCSVMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"ragged row", "a,b\n1,2\n3\n"},
		{"duplicate header", "a,a\n1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestReadFileMalformedSourceError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "zomato.csv", "a,b\n1\n", time.Now())
	_, err := ReadFile(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedSource))
}

func TestNewDataInfo(t *testing.T) {
	info := NewDataInfo(sampleTable(t))

	assert.Equal(t, domain.Shape{Rows: 4, Columns: 7}, info.Shape)
	assert.Equal(t, "object", info.DataTypes[domain.ColumnRate])
	assert.Equal(t, 2, info.MissingValues[domain.ColumnDishLiked])
	assert.Equal(t, 1, info.MissingValues[domain.ColumnName])
	assert.GreaterOrEqual(t, info.MemoryMB, 0.0)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zomato.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"name", "rate", "dish_liked"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"onesta", "4.1/5", "pasta"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"empire", "3.8/5"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, domain.Shape{Rows: 2, Columns: 3}, table.Shape())
	dish, _ := table.Column(domain.ColumnDishLiked)
	assert.True(t, dish.Values[1].IsMissing())
}

func TestLoaderResolve(t *testing.T) {
	now := time.Now()

	t.Run("explicit path", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "data.csv", sampleCSV, now)
		got, err := NewLoader("zomato", nil, nil).Resolve(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := NewLoader("zomato", nil, nil).Resolve(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDataUnavailable))
	})

	t.Run("acquirer wins", func(t *testing.T) {
		loader := NewLoader("zomato", stubAcquirer{path: "/downloads/zomato.csv"}, nil, t.TempDir())
		got, err := loader.Resolve(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, "/downloads/zomato.csv", got)
	})

	t.Run("falls back to newest in first directory with candidates", func(t *testing.T) {
		raw, cwd := t.TempDir(), t.TempDir()
		writeFile(t, raw, "zomato_old.csv", sampleCSV, now.Add(-time.Hour))
		newest := writeFile(t, raw, "Zomato_new.csv", sampleCSV, now)
		writeFile(t, cwd, "zomato_cwd.csv", sampleCSV, now.Add(time.Hour))

		loader := NewLoader("zomato", stubAcquirer{err: errors.New("offline")}, nil, raw, cwd)
		got, err := loader.Resolve(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, newest, got)
	})

	t.Run("second directory", func(t *testing.T) {
		raw, cwd := t.TempDir(), t.TempDir()
		want := writeFile(t, cwd, "zomato.csv", sampleCSV, now)
		got, err := NewLoader("zomato", stubAcquirer{err: ErrAcquisitionDisabled}, nil, raw, cwd).
			Resolve(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("nothing found", func(t *testing.T) {
		_, err := NewLoader("zomato", nil, nil, t.TempDir()).Resolve(context.Background(), "")
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDataUnavailable))
	})
}

func TestLoaderLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "zomato.csv", sampleCSV, time.Now())

	table, info, source, err := NewLoader("zomato", nil, nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.Equal(t, 4, table.RowCount())
	assert.Equal(t, table.Shape(), info.Shape)
}
