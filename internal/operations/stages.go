package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zomatoclean/internal/config"
	"zomatoclean/internal/dataprocessing"
	apperrors "zomatoclean/internal/errors"
	"zomatoclean/internal/exporter"
	"zomatoclean/internal/quality"
	"zomatoclean/internal/validation"
	"zomatoclean/pkg/contracts/domain"
)

var errMissingInput = errors.New("input from previous step is missing")

// NewPipelineStages builds the five pipeline steps from configuration
func NewPipelineStages(cfg *config.Config, paths *config.Paths, logger *slog.Logger) []Step {
	var searchDirs []string
	searchDirs = append(searchDirs, paths.RawDir)
	if wd, err := os.Getwd(); err == nil {
		searchDirs = append(searchDirs, wd)
	}

	acquirer := dataprocessing.NewHTTPAcquirer(cfg.Acquisition, paths.RawDir, logger)
	loader := dataprocessing.NewLoader(cfg.Paths.SourcePattern, acquirer, logger, searchDirs...)
	files := validation.NewFileValidator(logger)

	return []Step{
		NewLoadStage(loader, files),
		NewCleanStage(dataprocessing.NewCleaner(cfg.Cleaning, logger)),
		NewFeatureStage(dataprocessing.NewFeatureEngineer(cfg.Features, logger,
			cfg.Cleaning.CuisineSentinel, cfg.Cleaning.DishSentinel)),
		NewQualityStage(quality.NewAssessor(logger), cfg.Validation),
		NewPersistStage(exporter.NewCSVWriter(paths, logger), paths, files),
	}
}

// RegisterPipeline registers steps on the registry and checks the graph
func RegisterPipeline(registry *Registry, steps []Step) error {
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return err
		}
	}
	return registry.ValidateDependencies()
}

// LoadStage resolves the source file and reads it into a table
type LoadStage struct {
	BaseStage
	loader *dataprocessing.Loader
	files  *validation.FileValidator
}

// NewLoadStage creates the load step
func NewLoadStage(loader *dataprocessing.Loader, files *validation.FileValidator) *LoadStage {
	return &LoadStage{
		BaseStage: NewBaseStage(StepIDLoad, StepNameLoad, nil),
		loader:    loader,
		files:     files,
	}
}

// Execute implements Step
func (s *LoadStage) Execute(ctx context.Context, state *OperationState) error {
	source, err := s.loader.Resolve(ctx, state.GetConfigString(ConfigKeyInputPath))
	if err != nil {
		return err
	}
	if err := s.files.ValidateSourceFile(source); err != nil {
		return err
	}

	table, info, source, err := s.loader.Load(ctx, source)
	if err != nil {
		return err
	}

	state.Data.SourcePath = source
	state.Data.SourceInfo = info
	state.Data.Original = table

	step := state.GetStage(s.ID())
	step.SetMetadata("source", source)
	step.SetMetadata("rows", info.Shape.Rows)
	step.SetMetadata("columns", info.Shape.Columns)
	step.SetMetadata("memory_mb", info.MemoryMB)
	return nil
}

// CleanStage applies the cleaning operations to the loaded table
type CleanStage struct {
	BaseStage
	cleaner dataprocessing.Processor
}

// NewCleanStage creates the clean step
func NewCleanStage(cleaner dataprocessing.Processor) *CleanStage {
	return &CleanStage{
		BaseStage: NewBaseStage(StepIDClean, StepNameClean, []string{StepIDLoad}),
		cleaner:   cleaner,
	}
}

// Validate requires a loaded table
func (s *CleanStage) Validate(state *OperationState) error {
	if state.Data.Original == nil {
		return errMissingInput
	}
	return nil
}

// Execute implements Step
func (s *CleanStage) Execute(ctx context.Context, state *OperationState) error {
	cleaned, report := s.cleaner.Process(ctx, state.Data.Original)
	state.Data.Cleaned = cleaned
	state.Data.CleaningReport = report

	step := state.GetStage(s.ID())
	step.SetMetadata("rows", cleaned.RowCount())
	step.SetMetadata("columns", cleaned.ColumnCount())
	step.SetMetadata("dropped_columns", report.DroppedColumns)
	step.SetMetadata("duplicates_removed", report.DuplicatesRemoved)
	step.SetMetadata("imputed", report.TotalImputed())
	step.SetMetadata("imputed_columns", report.ImputedColumns())
	step.SetMetadata("outliers_clipped", report.TotalClipped())
	step.SetMetadata("schema_gaps", len(report.SchemaGaps))
	return nil
}

// FeatureStage derives the engineered columns
type FeatureStage struct {
	BaseStage
	engineer dataprocessing.Processor
}

// NewFeatureStage creates the features step
func NewFeatureStage(engineer dataprocessing.Processor) *FeatureStage {
	return &FeatureStage{
		BaseStage: NewBaseStage(StepIDFeatures, StepNameFeatures, []string{StepIDClean}),
		engineer:  engineer,
	}
}

// Validate requires a cleaned table
func (s *FeatureStage) Validate(state *OperationState) error {
	if state.Data.Cleaned == nil {
		return errMissingInput
	}
	return nil
}

// Execute implements Step
func (s *FeatureStage) Execute(ctx context.Context, state *OperationState) error {
	final, report := s.engineer.Process(ctx, state.Data.Cleaned)
	state.Data.Final = final
	state.Data.FeatureReport = report

	step := state.GetStage(s.ID())
	step.SetMetadata("derived", report.Derived)
	step.SetMetadata("columns", final.ColumnCount())
	return nil
}

// QualityStage builds the quality report and evaluates the validation rules
type QualityStage struct {
	BaseStage
	assessor *quality.Assessor
	rules    domain.ValidationRules
}

// NewQualityStage creates the quality step
func NewQualityStage(assessor *quality.Assessor, rules domain.ValidationRules) *QualityStage {
	return &QualityStage{
		BaseStage: NewBaseStage(StepIDQuality, StepNameQuality, []string{StepIDFeatures}),
		assessor:  assessor,
		rules:     rules,
	}
}

// Validate requires the original and final tables
func (s *QualityStage) Validate(state *OperationState) error {
	if state.Data.Original == nil || state.Data.Final == nil {
		return errMissingInput
	}
	return nil
}

// Execute implements Step. A failing validation is recorded, not returned.
func (s *QualityStage) Execute(ctx context.Context, state *OperationState) error {
	report := s.assessor.Report(ctx, state.Data.Original, state.Data.Final)
	outcome := s.assessor.Validate(ctx, state.Data.Final, s.rules)
	state.Data.Quality = &report
	state.Data.Validation = &outcome

	step := state.GetStage(s.ID())
	step.SetMetadata("completeness_score", report.Metrics.CompletenessScore)
	step.SetMetadata("valid", outcome.Valid)
	step.SetMetadata("failed_checks", len(outcome.FailedChecks))
	step.SetMetadata("warnings", len(outcome.Warnings))
	return nil
}

// PersistStage writes the cleaned table and the quality report
type PersistStage struct {
	BaseStage
	writer *exporter.CSVWriter
	paths  *config.Paths
	files  *validation.FileValidator
}

// NewPersistStage creates the persist step
func NewPersistStage(writer *exporter.CSVWriter, paths *config.Paths, files *validation.FileValidator) *PersistStage {
	return &PersistStage{
		BaseStage: NewBaseStage(StepIDPersist, StepNamePersist, []string{StepIDQuality}),
		writer:    writer,
		paths:     paths,
		files:     files,
	}
}

// Validate requires the final table and its report
func (s *PersistStage) Validate(state *OperationState) error {
	if state.Data.Final == nil || state.Data.Quality == nil {
		return errMissingInput
	}
	return nil
}

// Execute implements Step
func (s *PersistStage) Execute(ctx context.Context, state *OperationState) error {
	ts := state.StartTime
	cleanedPath := s.paths.CleanedDataPath(ts)
	reportPath := s.paths.QualityReportPath(ts)

	dir := s.paths.ProcessedDir
	if override := state.GetConfigString(ConfigKeyOutputDir); override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return fmt.Errorf("failed to resolve output directory %s: %w", override, err)
		}
		dir = abs
		cleanedPath = filepath.Join(dir, filepath.Base(cleanedPath))
		reportPath = filepath.Join(dir, filepath.Base(reportPath))
	}
	if err := s.files.ValidateOutputDirectory(dir); err != nil {
		return err
	}

	if err := s.writeArtifacts(cleanedPath, reportPath, state); err != nil {
		return err
	}

	state.Data.Outputs = domain.RunOutputs{
		CleanedDataPath: cleanedPath,
		ReportPath:      reportPath,
	}

	step := state.GetStage(s.ID())
	step.SetMetadata("cleaned_data_path", cleanedPath)
	step.SetMetadata("report_path", reportPath)
	return nil
}

const partialSuffix = ".partial"

// writeArtifacts stages both files under partial names and renames them into
// place only when both writes succeed. On failure neither target is left behind.
func (s *PersistStage) writeArtifacts(cleanedPath, reportPath string, state *OperationState) error {
	cleanedTmp := cleanedPath + partialSuffix
	reportTmp := reportPath + partialSuffix
	defer func() {
		_ = os.Remove(cleanedTmp)
		_ = os.Remove(reportTmp)
	}()

	if err := s.writer.WriteTable(cleanedTmp, state.Data.Final, exporter.WriteOptions{}); err != nil {
		return err
	}
	if err := s.writer.WriteJSON(reportTmp, state.Data.Quality); err != nil {
		return err
	}

	if err := os.Rename(cleanedTmp, cleanedPath); err != nil {
		return apperrors.NewStorageError("failed to finalize "+cleanedPath, err)
	}
	if err := os.Rename(reportTmp, reportPath); err != nil {
		_ = os.Remove(cleanedPath)
		return apperrors.NewStorageError("failed to finalize "+reportPath, err)
	}
	return nil
}
