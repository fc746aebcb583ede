package quality

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zomatoclean/internal/infrastructure"
	"zomatoclean/pkg/contracts/domain"
)

// sampleRows caps the sample size reported for the final dataset
const sampleRows = 3

// Assessor computes quality metrics and evaluates validation rules
type Assessor struct {
	log *infrastructure.StepLogger
	now func() time.Time
}

// NewAssessor creates an assessor
func NewAssessor(logger *slog.Logger) *Assessor {
	return &Assessor{
		log: infrastructure.NewStepLogger(logger, "quality.assessor"),
		now: time.Now,
	}
}

// Report builds the quality report comparing the original and final tables
func (a *Assessor) Report(ctx context.Context, original, final *domain.Table) domain.QualityReport {
	started := a.log.Start(ctx, "quality_report")

	report := domain.QualityReport{
		Metrics:          Metrics(final),
		Impact:           Impact(original, final),
		FinalDatasetInfo: DatasetInfo(final),
		GeneratedAt:      a.now().UTC(),
	}

	a.log.Metrics(ctx, "quality_report", map[string]any{
		"total_rows":               report.Metrics.TotalRows,
		"total_columns":            report.Metrics.TotalColumns,
		"completeness_score":       report.Metrics.CompletenessScore,
		"total_missing_values":     report.Metrics.TotalMissingValues,
		"missing_value_percentage": report.Metrics.MissingValuePercentage,
		"memory_usage_mb":          report.Metrics.MemoryUsageMB,
	})
	a.log.Complete(ctx, "quality_report", started)
	return report
}

// Metrics computes the absolute quality figures of a table
func Metrics(t *domain.Table) domain.QualityMetrics {
	missing := t.MissingCells()
	numeric := numericColumns(t)
	return domain.QualityMetrics{
		TotalRows:              t.RowCount(),
		TotalColumns:           t.ColumnCount(),
		CompletenessScore:      domain.RoundTo(Completeness(t), 4),
		DuplicateRows:          DuplicateRows(t),
		NumericColumns:         numeric,
		CategoricalColumns:     t.ColumnCount() - numeric,
		MemoryUsageMB:          domain.BytesToMB(t.MemoryBytes()),
		TotalMissingValues:     missing,
		MissingValuePercentage: domain.RoundTo(MissingPercentage(t), 2),
	}
}

// Impact compares the original and final tables. Missing values removed is
// negative when the final table has more nulls than the original.
func Impact(original, final *domain.Table) domain.CleaningImpact {
	before, after := Completeness(original), Completeness(final)
	return domain.CleaningImpact{
		RowsRemoved:             original.RowCount() - final.RowCount(),
		ColumnsRemoved:          original.ColumnCount() - final.ColumnCount(),
		MissingValuesRemoved:    original.MissingCells() - final.MissingCells(),
		CompletenessImprovement: domain.RoundTo(after-before, 4),
		OriginalCompleteness:    domain.RoundTo(before, 4),
		FinalCompleteness:       domain.RoundTo(after, 4),
	}
}

// DatasetInfo summarizes the structure of the final table
func DatasetInfo(t *domain.Table) domain.DatasetInfo {
	types := make(map[string]string, t.ColumnCount())
	for _, c := range t.Columns() {
		types[c.Name] = c.Kind.String()
	}
	return domain.DatasetInfo{
		Shape:      t.Shape(),
		Columns:    t.ColumnNames(),
		DataTypes:  types,
		SampleSize: min(sampleRows, t.RowCount()),
	}
}

// Completeness is 1 - missing/total, and 0 for a table without cells
func Completeness(t *domain.Table) float64 {
	total := t.TotalCells()
	if total == 0 {
		return 0
	}
	return 1 - float64(t.MissingCells())/float64(total)
}

// MissingPercentage is the share of missing cells in percent, 0 for a
// table without cells
func MissingPercentage(t *domain.Table) float64 {
	total := t.TotalCells()
	if total == 0 {
		return 0
	}
	return float64(t.MissingCells()) / float64(total) * 100
}

func numericColumns(t *domain.Table) int {
	n := 0
	for _, c := range t.Columns() {
		if c.Kind.IsNumeric() {
			n++
		}
	}
	return n
}

// DuplicateRows counts rows identical to an earlier row
func DuplicateRows(t *domain.Table) int {
	seen := make(map[string]struct{}, t.RowCount())
	dups := 0
	for i := 0; i < t.RowCount(); i++ {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

// Validate evaluates the rule set against t. Row count and required column
// violations fail; a high missing percentage and the absence of numeric
// columns are warnings only. Checks are listed in evaluation order. Zero
// valued rules take their defaults.
func (a *Assessor) Validate(ctx context.Context, t *domain.Table, rules domain.ValidationRules) domain.ValidationOutcome {
	rules = rules.WithDefaults()
	outcome := domain.ValidationOutcome{
		PassedChecks: []domain.Check{},
		FailedChecks: []domain.Check{},
		Warnings:     []domain.Check{},
	}

	if rows := t.RowCount(); rows < rules.MinRows {
		outcome.FailedChecks = append(outcome.FailedChecks, domain.Check{
			Rule:    domain.RuleMinRows,
			Message: fmt.Sprintf("Dataset has only %d rows, minimum required: %d", rows, rules.MinRows),
		})
	} else {
		outcome.PassedChecks = append(outcome.PassedChecks, domain.Check{
			Rule:    domain.RuleMinRows,
			Message: fmt.Sprintf("Row count check passed: %d rows", rows),
		})
	}

	var absent []string
	for _, col := range rules.RequiredColumns {
		if !t.HasColumn(col) {
			absent = append(absent, col)
		}
	}
	if len(absent) > 0 {
		outcome.FailedChecks = append(outcome.FailedChecks, domain.Check{
			Rule:    domain.RuleRequiredColumns,
			Message: fmt.Sprintf("Missing required columns: %v", absent),
		})
	} else {
		outcome.PassedChecks = append(outcome.PassedChecks, domain.Check{
			Rule:    domain.RuleRequiredColumns,
			Message: "All required columns present",
		})
	}

	if pct := MissingPercentage(t); pct > rules.MaxMissingPercentage {
		outcome.Warnings = append(outcome.Warnings, domain.Check{
			Rule:    domain.RuleMaxMissing,
			Message: fmt.Sprintf("High missing value percentage: %.2f%%", pct),
		})
	} else {
		outcome.PassedChecks = append(outcome.PassedChecks, domain.Check{
			Rule:    domain.RuleMaxMissing,
			Message: fmt.Sprintf("Missing value check passed: %.2f%%", pct),
		})
	}

	if numericColumns(t) == 0 {
		outcome.Warnings = append(outcome.Warnings, domain.Check{
			Rule:    domain.RuleNumericColumns,
			Message: "No numeric columns found in dataset",
		})
	}

	outcome.Valid = len(outcome.FailedChecks) == 0
	a.logOutcome(ctx, outcome)
	return outcome
}

func (a *Assessor) logOutcome(ctx context.Context, outcome domain.ValidationOutcome) {
	logger := a.log.Logger()
	status := "passed"
	if !outcome.Valid {
		status = "failed"
	}
	logger.InfoContext(ctx, "data validation "+status,
		slog.Int("passed", len(outcome.PassedChecks)),
		slog.Int("failed", len(outcome.FailedChecks)),
		slog.Int("warnings", len(outcome.Warnings)))
	for _, c := range outcome.Warnings {
		logger.WarnContext(ctx, c.Message, slog.String("rule", c.Rule))
	}
	for _, c := range outcome.FailedChecks {
		logger.ErrorContext(ctx, c.Message, slog.String("rule", c.Rule))
	}
}
