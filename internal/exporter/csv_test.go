package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zomatoclean/internal/config"
	"zomatoclean/pkg/contracts/domain"
)

func setupWriter(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	dir := t.TempDir()
	return NewCSVWriter(&config.Paths{ProcessedDir: dir}, nil), dir
}

func sampleTable(t *testing.T) *domain.Table {
	t.Helper()
	table, err := domain.NewTable(
		domain.NewColumn("name", domain.KindString, []domain.Value{
			domain.StringValue("Onesta"), domain.StringValue(`Truffles, "The" Cafe`), domain.Missing(),
		}),
		domain.NewColumn("cost_for_two", domain.KindFloat, []domain.Value{
			domain.FloatValue(800), domain.FloatValue(412.5), domain.Missing(),
		}),
		domain.NewColumn("num_cuisines", domain.KindInteger, []domain.Value{
			domain.IntValue(2), domain.IntValue(0), domain.IntValue(1),
		}),
		domain.NewColumn("cost_category", domain.KindCategorical, []domain.Value{
			domain.CategoryValue("Moderate"), domain.CategoryValue("Budget"), domain.Missing(),
		}),
	)
	require.NoError(t, err)
	return table
}

func TestWriteTable(t *testing.T) {
	w, dir := setupWriter(t)

	require.NoError(t, w.WriteTable("cleaned.csv", sampleTable(t), WriteOptions{}))

	f, err := os.Open(filepath.Join(dir, "cleaned.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"name", "cost_for_two", "num_cuisines", "cost_category"},
		{"Onesta", "800.0", "2", "Moderate"},
		{`Truffles, "The" Cafe`, "412.5", "0", "Budget"},
		{"", "", "1", ""},
	}, records)
}

func TestWriteTableBOM(t *testing.T) {
	w, dir := setupWriter(t)
	path := filepath.Join(dir, "nested", "bom.csv")

	require.NoError(t, w.WriteTable(path, sampleTable(t), WriteOptions{BOMPrefix: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
}

func TestWriteJSON(t *testing.T) {
	w, dir := setupWriter(t)
	report := domain.QualityReport{
		Metrics:          domain.QualityMetrics{TotalRows: 3, CompletenessScore: 0.9167},
		FinalDatasetInfo: domain.DatasetInfo{Shape: domain.Shape{Rows: 3, Columns: 4}},
	}

	require.NoError(t, w.WriteJSON("quality_report.json", report))

	data, err := os.ReadFile(filepath.Join(dir, "quality_report.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"data_quality_metrics\": {")

	var decoded domain.QualityReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.Metrics, decoded.Metrics)
	assert.Equal(t, report.FinalDatasetInfo.Shape, decoded.FinalDatasetInfo.Shape)
}

func TestWriteTableUnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	w := NewCSVWriter(&config.Paths{ProcessedDir: blocker}, nil)

	err := w.WriteTable("out.csv", sampleTable(t), WriteOptions{})
	assert.Error(t, err)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		v    domain.Value
		want string
	}{
		{"missing", domain.Missing(), ""},
		{"whole float", domain.FloatValue(1200), "1200.0"},
		{"fraction", domain.FloatValue(4.1), "4.1"},
		{"int", domain.IntValue(-3), "-3"},
		{"text", domain.StringValue("Cafe"), "Cafe"},
		{"category", domain.CategoryValue("Premium"), "Premium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.v))
		})
	}
}
