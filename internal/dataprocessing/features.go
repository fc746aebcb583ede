package dataprocessing

import (
	"context"
	"log/slog"

	"zomatoclean/internal/config"
	apperrors "zomatoclean/internal/errors"
	"zomatoclean/internal/infrastructure"
	"zomatoclean/pkg/contracts/domain"
)

// OpFeatures names the feature step in schema gap records
const OpFeatures = "feature engineering"

// FeatureEngineer adds the derived analysis columns
type FeatureEngineer struct {
	cfg          config.FeatureConfig
	placeholders []string
	log          *infrastructure.StepLogger
}

// NewFeatureEngineer creates a feature engineer. placeholders are cuisine
// labels that count as no cuisine at all.
func NewFeatureEngineer(cfg config.FeatureConfig, logger *slog.Logger, placeholders ...string) *FeatureEngineer {
	return &FeatureEngineer{
		cfg:          cfg,
		placeholders: placeholders,
		log:          infrastructure.NewStepLogger(logger, "dataprocessing.features"),
	}
}

// Process runs Create
func (f *FeatureEngineer) Process(ctx context.Context, t *domain.Table) (*domain.Table, StepReport) {
	return f.Create(ctx, t)
}

// Create adds num_cuisines, cost_category and rating_category when their
// source columns exist. Existing columns are never overwritten.
func (f *FeatureEngineer) Create(ctx context.Context, t *domain.Table) (*domain.Table, StepReport) {
	started := f.log.Start(ctx, "features")
	out := t.Clone()
	var report StepReport

	derive := func(source, target string, build func(*domain.Column) *domain.Column) {
		src, ok := out.Column(source)
		if !ok {
			report.gap(OpFeatures, source)
			return
		}
		if out.HasColumn(target) {
			f.log.Warn(ctx, "features", "feature column already present, keeping existing values",
				slog.String("column", target))
			return
		}
		_ = out.AddColumn(build(src))
		report.Derived = append(report.Derived, target)
	}

	derive(domain.ColumnCuisines, domain.ColumnNumCuisines, f.cuisineCounts)
	derive(domain.ColumnCostForTwo, domain.ColumnCostCategory, func(c *domain.Column) *domain.Column {
		return binColumn(domain.ColumnCostCategory, c, f.cfg.CostEdges, f.cfg.CostLabels)
	})
	derive(domain.ColumnRateClean, domain.ColumnRatingCategory, func(c *domain.Column) *domain.Column {
		return binColumn(domain.ColumnRatingCategory, c, f.cfg.RatingEdges, f.cfg.RatingLabels)
	})

	for _, g := range report.SchemaGaps {
		f.log.Warn(ctx, "features", apperrors.NewSchemaGapError(g.Operation, g.Column).Error())
	}
	f.log.Complete(ctx, "features", started, slog.Any("derived", report.Derived))
	return out, report
}

func (f *FeatureEngineer) cuisineCounts(src *domain.Column) *domain.Column {
	values := make([]domain.Value, src.Len())
	for i, v := range src.Values {
		values[i] = domain.IntValue(int64(CountCuisines(v.Text(), v.IsMissing(), f.placeholders...)))
	}
	return domain.NewColumn(domain.ColumnNumCuisines, domain.KindInteger, values)
}

func binColumn(name string, src *domain.Column, edges []float64, labels []string) *domain.Column {
	values := make([]domain.Value, src.Len())
	for i, v := range src.Values {
		x, ok := v.Float()
		if !ok {
			continue
		}
		if label, ok := Bin(x, edges, labels); ok {
			values[i] = domain.CategoryValue(label)
		}
	}
	return domain.NewColumn(name, domain.KindCategorical, values)
}

// Bin places x into right-closed intervals (edges[i], edges[i+1]]; the
// lowest edge itself belongs to the first interval. Values outside the
// edges have no label.
func Bin(x float64, edges []float64, labels []string) (string, bool) {
	if len(edges) < 2 || len(labels) != len(edges)-1 {
		return "", false
	}
	if x == edges[0] {
		return labels[0], true
	}
	for i := 0; i < len(labels); i++ {
		if x > edges[i] && x <= edges[i+1] {
			return labels[i], true
		}
	}
	return "", false
}
