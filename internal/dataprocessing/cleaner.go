package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"zomatoclean/internal/config"
	apperrors "zomatoclean/internal/errors"
	"zomatoclean/internal/infrastructure"
	"zomatoclean/pkg/contracts/domain"
)

// Operation names used in schema gap records
const (
	OpImputation    = "imputation"
	OpNormalization = "text normalization"
	OpCoercion      = "type coercion"
	OpOutliers      = "outlier handling"
)

// Cleaner applies the cleaning operations. Every operation returns a new
// table and leaves its input untouched.
type Cleaner struct {
	cfg config.CleaningConfig
	log *infrastructure.StepLogger
}

// NewCleaner creates a cleaner
func NewCleaner(cfg config.CleaningConfig, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		cfg: cfg,
		log: infrastructure.NewStepLogger(logger, "dataprocessing.cleaner"),
	}
}

// Process runs Clean; it makes Cleaner a Processor
func (c *Cleaner) Process(ctx context.Context, t *domain.Table) (*domain.Table, StepReport) {
	return c.Clean(ctx, t)
}

// Clean runs missing value handling, deduplication, text normalization,
// type coercion and outlier clipping in that order
func (c *Cleaner) Clean(ctx context.Context, t *domain.Table) (*domain.Table, StepReport) {
	started := c.log.Start(ctx, "clean")

	var report StepReport
	steps := []func(*domain.Table) (*domain.Table, StepReport){
		c.HandleMissingValues,
		c.RemoveDuplicates,
		c.NormalizeText,
		c.CoerceTypes,
		c.ClipOutliers,
	}
	out := t
	for _, step := range steps {
		var r StepReport
		out, r = step(out)
		report.Merge(r)
	}

	for _, g := range report.SchemaGaps {
		c.log.Warn(ctx, "clean", apperrors.NewSchemaGapError(g.Operation, g.Column).Error())
	}
	c.log.Complete(ctx, "clean", started,
		slog.Int("rows_before", t.RowCount()),
		slog.Int("rows_after", out.RowCount()),
		slog.Int("columns_dropped", len(report.DroppedColumns)),
		slog.Int("duplicates_removed", report.DuplicatesRemoved),
		slog.Int("values_imputed", report.TotalImputed()),
		slog.Int("values_clipped", report.TotalClipped()))
	return out, report
}

// HandleMissingValues drops columns missing in more than the configured
// fraction of rows, then fills the known columns: rating with its sentinel,
// cost with the median of its parseable values, cuisines and liked dishes
// with their placeholders. Other columns keep their nulls.
func (c *Cleaner) HandleMissingValues(t *domain.Table) (*domain.Table, StepReport) {
	out := t.Clone()
	var report StepReport

	threshold := float64(out.RowCount()) * c.cfg.MissingThreshold
	for _, col := range out.Columns() {
		if float64(col.MissingCount()) > threshold {
			report.DroppedColumns = append(report.DroppedColumns, col.Name)
		}
	}
	out.DropColumns(report.DroppedColumns...)

	fills := []struct {
		column string
		value  func(*domain.Column) (string, bool)
	}{
		{domain.ColumnRate, constant(c.cfg.RatingSentinel)},
		{domain.ColumnCost, medianCost},
		{domain.ColumnCuisines, constant(c.cfg.CuisineSentinel)},
		{domain.ColumnDishLiked, constant(c.cfg.DishSentinel)},
	}
	for _, f := range fills {
		col, ok := out.Column(f.column)
		if !ok {
			report.gap(OpImputation, f.column)
			continue
		}
		fill, ok := f.value(col)
		if !ok {
			continue
		}
		filled, n := fillMissing(col, fill)
		if n > 0 {
			_ = out.ReplaceColumn(filled)
			report.imputed(f.column, n)
		}
	}
	return out, report
}

// RemoveDuplicates keeps the first occurrence of every fully identical row
func (c *Cleaner) RemoveDuplicates(t *domain.Table) (*domain.Table, StepReport) {
	out := t.Clone()
	keep := make([]bool, out.RowCount())
	seen := make(map[string]struct{}, out.RowCount())
	removed := 0
	for i := range keep {
		key := out.RowKey(i)
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		keep[i] = true
	}
	_ = out.KeepRows(keep)
	return out, StepReport{DuplicatesRemoved: removed}
}

// NormalizeText trims and title-cases the configured text columns. Missing
// cells stay missing.
func (c *Cleaner) NormalizeText(t *domain.Table) (*domain.Table, StepReport) {
	out := t.Clone()
	var report StepReport
	for _, name := range c.cfg.TextColumns {
		col, ok := out.Column(name)
		if !ok {
			report.gap(OpNormalization, name)
			continue
		}
		values := make([]domain.Value, col.Len())
		for i, v := range col.Values {
			if v.IsMissing() {
				continue
			}
			values[i] = domain.StringValue(TitleCase(strings.TrimSpace(v.Text())))
		}
		_ = out.ReplaceColumn(domain.NewColumn(name, domain.KindString, values))
		report.Normalized = append(report.Normalized, name)
	}
	return out, report
}

// CoerceTypes derives numeric rate_clean from rate and cost_for_two from
// the cost column. Ratings that cannot be read are set to the median of the
// readable ones; unreadable costs stay missing.
func (c *Cleaner) CoerceTypes(t *domain.Table) (*domain.Table, StepReport) {
	out := t.Clone()
	var report StepReport

	if col, ok := out.Column(domain.ColumnRate); ok {
		values := mapFloats(col, ExtractRating)
		derived := domain.NewColumn(domain.ColumnRateClean, domain.KindFloat, values)
		if median, err := stats.Median(derived.Floats()); err == nil {
			derived, _ = fillMissing(derived, strconv.FormatFloat(median, 'f', -1, 64))
		}
		setColumn(out, derived)
		report.Derived = append(report.Derived, domain.ColumnRateClean)
	} else {
		report.gap(OpCoercion, domain.ColumnRate)
	}

	if col, ok := out.Column(domain.ColumnCost); ok {
		setColumn(out, domain.NewColumn(domain.ColumnCostForTwo, domain.KindFloat, mapFloats(col, ParseCost)))
		report.Derived = append(report.Derived, domain.ColumnCostForTwo)
	} else {
		report.gap(OpCoercion, domain.ColumnCost)
	}
	return out, report
}

// numericTargets maps configured numeric source columns to the derived
// column that holds their parsed values
var numericTargets = map[string]string{
	domain.ColumnRate: domain.ColumnRateClean,
	domain.ColumnCost: domain.ColumnCostForTwo,
}

// ClipOutliers clips the numeric columns derived from the configured
// sources to [Q1 - k*IQR, Q3 + k*IQR] where k is the configured multiplier.
// A configured column without a derived counterpart is clipped itself.
func (c *Cleaner) ClipOutliers(t *domain.Table) (*domain.Table, StepReport) {
	out := t.Clone()
	var report StepReport
	for _, source := range c.cfg.NumericColumns {
		name := source
		if derived, ok := numericTargets[source]; ok {
			name = derived
		}
		col, ok := out.Column(name)
		if !ok {
			report.gap(OpOutliers, name)
			continue
		}
		data := col.Floats()
		if len(data) == 0 {
			continue
		}
		if col.Kind == domain.KindInteger {
			col = asFloat(col)
			_ = out.ReplaceColumn(col)
		}
		lower, upper := iqrBounds(data, c.cfg.IQRMultiplier)
		stat := OutlierStat{Lower: lower, Upper: upper}
		for i, v := range col.Values {
			f, ok := v.Float()
			if !ok {
				continue
			}
			switch {
			case f < lower:
				col.Values[i] = domain.FloatValue(lower)
				stat.Count++
			case f > upper:
				col.Values[i] = domain.FloatValue(upper)
				stat.Count++
			}
		}
		if report.Outliers == nil {
			report.Outliers = make(map[string]OutlierStat)
		}
		report.Outliers[name] = stat
	}
	return out, report
}

// iqrBounds computes the clipping fences from linearly interpolated quartiles
func iqrBounds(data []float64, k float64) (float64, float64) {
	sorted := slices.Clone(data)
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// quantile interpolates between the two ranks around q*(n-1)
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func constant(s string) func(*domain.Column) (string, bool) {
	return func(*domain.Column) (string, bool) { return s, true }
}

func medianCost(col *domain.Column) (string, bool) {
	var costs []float64
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		if f, ok := ParseCost(v.Text()); ok {
			costs = append(costs, f)
		}
	}
	median, err := stats.Median(costs)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(median, 'f', -1, 64), true
}

// fillMissing returns a copy of col with every missing cell set to fill.
// Numeric columns take fill as a number when it parses, otherwise the
// column becomes text.
func fillMissing(col *domain.Column, fill string) (*domain.Column, int) {
	out := col.Clone()
	if out.MissingCount() == 0 {
		return out, 0
	}

	var filler domain.Value
	switch out.Kind {
	case domain.KindInteger, domain.KindFloat:
		f, err := strconv.ParseFloat(fill, 64)
		switch {
		case err != nil:
			out = asText(out)
			filler = domain.StringValue(fill)
		case out.Kind == domain.KindInteger && f == float64(int64(f)):
			filler = domain.IntValue(int64(f))
		default:
			out = asFloat(out)
			filler = domain.FloatValue(f)
		}
	case domain.KindCategorical:
		filler = domain.CategoryValue(fill)
	default:
		filler = domain.StringValue(fill)
	}

	n := 0
	for i, v := range out.Values {
		if v.IsMissing() {
			out.Values[i] = filler
			n++
		}
	}
	return out, n
}

func asText(col *domain.Column) *domain.Column {
	values := make([]domain.Value, col.Len())
	for i, v := range col.Values {
		if !v.IsMissing() {
			values[i] = domain.StringValue(v.Text())
		}
	}
	return domain.NewColumn(col.Name, domain.KindString, values)
}

func asFloat(col *domain.Column) *domain.Column {
	values := make([]domain.Value, col.Len())
	for i, v := range col.Values {
		if f, ok := v.Float(); ok {
			values[i] = domain.FloatValue(f)
		}
	}
	return domain.NewColumn(col.Name, domain.KindFloat, values)
}

func mapFloats(col *domain.Column, parse func(string) (float64, bool)) []domain.Value {
	values := make([]domain.Value, col.Len())
	for i, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		if f, ok := parse(v.Text()); ok {
			values[i] = domain.FloatValue(f)
		}
	}
	return values
}

// setColumn replaces a derived column when it already exists
func setColumn(t *domain.Table, col *domain.Column) {
	if t.HasColumn(col.Name) {
		_ = t.ReplaceColumn(col)
		return
	}
	_ = t.AddColumn(col)
}
