package operations_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zomatoclean/internal/config"
	apperrors "zomatoclean/internal/errors"
	"zomatoclean/internal/exporter"
	"zomatoclean/internal/operations"
	"zomatoclean/internal/validation"
	"zomatoclean/pkg/contracts/domain"
)

// fourRows has one fully null row and one exact duplicate
const fourRows = `name,rate,approx_cost(for two people),cuisines,location,rest_type,dish_liked
onesta,4.1/5,800,"pizza, cafe", BTM ,casual dining,pasta
,,,,,,
onesta,4.1/5,800,"pizza, cafe", BTM ,casual dining,pasta
empire,NEW,"1,200",north indian,jayanagar,quick bites,
`

func newPipeline(t *testing.T) (*operations.Manager, *config.Paths) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	paths, err := config.ResolvePaths(cfg.Paths)
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	registry := operations.NewRegistry()
	require.NoError(t, operations.RegisterPipeline(registry, operations.NewPipelineStages(cfg, paths, nil)))
	return operations.NewManager(nil, registry, operations.NewConfig(), nil, nil), paths
}

func TestPipelineEndToEnd(t *testing.T) {
	m, paths := newPipeline(t)
	input := filepath.Join(t.TempDir(), "zomato.csv")
	require.NoError(t, os.WriteFile(input, []byte(fourRows), 0644))

	resp, err := m.Execute(context.Background(), operations.OperationRequest{InputPath: input})
	require.NoError(t, err)

	summary := resp.Summary
	assert.Equal(t, domain.RunStatusCompleted, summary.Status)
	assert.Equal(t, input, summary.SourcePath)
	assert.Equal(t, domain.Shape{Rows: 4, Columns: 7}, summary.OriginalShape)
	assert.Equal(t, domain.Shape{Rows: 3, Columns: 12}, summary.CleanedShape)
	assert.Equal(t, 1, summary.CleaningImpact.RowsRemoved)

	require.NotNil(t, summary.Validation)
	assert.False(t, summary.Validation.Valid, "three rows are below the default minimum")
	require.Len(t, summary.Validation.FailedChecks, 1)
	assert.Equal(t, domain.RuleMinRows, summary.Validation.FailedChecks[0].Rule)

	assert.Equal(t, paths.ProcessedDir, filepath.Dir(summary.Outputs.CleanedDataPath))
	assert.True(t, strings.HasPrefix(filepath.Base(summary.Outputs.CleanedDataPath), "zomato_cleaned_"))

	cleaned, err := os.ReadFile(summary.Outputs.CleanedDataPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(cleaned)), "\n")
	require.Len(t, lines, 4)
	for _, col := range []string{domain.ColumnRateClean, domain.ColumnCostForTwo, domain.ColumnNumCuisines, domain.ColumnCostCategory, domain.ColumnRatingCategory} {
		assert.Contains(t, lines[0], col)
	}

	raw, err := os.ReadFile(summary.Outputs.ReportPath)
	require.NoError(t, err)
	var report map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Contains(t, report, "data_quality_metrics")
	assert.Contains(t, report, "cleaning_impact")
	assert.Contains(t, report, "final_dataset_info")

	assert.Equal(t, 7, resp.Steps[operations.StepIDLoad].Metadata["columns"])
	assert.Equal(t, 1, resp.Steps[operations.StepIDClean].Metadata["duplicates_removed"])

	imputed, ok := resp.Steps[operations.StepIDClean].Metadata["imputed_columns"].([]string)
	require.True(t, ok)
	assert.Contains(t, imputed, domain.ColumnDishLiked)
	assert.IsIncreasing(t, imputed)
}

func TestPipelineOutputDirOverride(t *testing.T) {
	m, _ := newPipeline(t)
	input := filepath.Join(t.TempDir(), "zomato.csv")
	require.NoError(t, os.WriteFile(input, []byte(fourRows), 0644))
	out := filepath.Join(t.TempDir(), "out")

	resp, err := m.Execute(context.Background(), operations.OperationRequest{InputPath: input, OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, out, filepath.Dir(resp.Summary.Outputs.CleanedDataPath))
	assert.FileExists(t, resp.Summary.Outputs.ReportPath)
}

func TestPipelineMissingSource(t *testing.T) {
	m, paths := newPipeline(t)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{
		InputPath: filepath.Join(t.TempDir(), "nope.csv"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDataUnavailable))
	assert.Equal(t, domain.RunStatusFailed, resp.Summary.Status)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps[operations.StepIDPersist].Status)

	entries, err := os.ReadDir(paths.ProcessedDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed run produces nothing")
}

func TestPipelineMalformedSource(t *testing.T) {
	m, _ := newPipeline(t)
	input := filepath.Join(t.TempDir(), "zomato.csv")
	require.NoError(t, os.WriteFile(input, []byte("a,b\n1,2,3\n"), 0644))

	_, err := m.Execute(context.Background(), operations.OperationRequest{InputPath: input})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeMalformedSource))
}

func TestPersistStageLeavesNothingOnFailure(t *testing.T) {
	ts := time.Date(2026, 10, 17, 12, 19, 49, 0, time.UTC)

	tests := []struct {
		name    string
		blocker func(p *config.Paths) string
	}{
		{"report path is a directory", func(p *config.Paths) string { return p.QualityReportPath(ts) }},
		{"cleaned path is a directory", func(p *config.Paths) string { return p.CleanedDataPath(ts) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, paths := newPipeline(t)
			blocker := tt.blocker(paths)
			require.NoError(t, os.MkdirAll(blocker, 0755))

			col := domain.NewColumn(domain.ColumnName, domain.KindString, []domain.Value{domain.StringValue("onesta")})
			table, err := domain.NewTable(col)
			require.NoError(t, err)

			stage := operations.NewPersistStage(exporter.NewCSVWriter(paths, nil), paths, validation.NewFileValidator(nil))
			state := operations.NewOperationState("persist-failure")
			state.StartTime = ts
			state.Data.Final = table
			state.Data.Quality = &domain.QualityReport{}
			state.SetStage(stage.ID(), operations.NewStepState(stage.ID(), stage.Name()))

			err = stage.Execute(context.Background(), state)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
			assert.Empty(t, state.Data.Outputs.CleanedDataPath)

			entries, err := os.ReadDir(paths.ProcessedDir)
			require.NoError(t, err)
			require.Len(t, entries, 1, "only the blocking directory may remain")
			assert.Equal(t, filepath.Base(blocker), entries[0].Name())
		})
	}
}
