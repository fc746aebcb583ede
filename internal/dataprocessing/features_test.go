package dataprocessing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zomatoclean/pkg/contracts/domain"
)

func TestBin(t *testing.T) {
	cfg := testConfig().Features
	tests := []struct {
		name   string
		x      float64
		edges  []float64
		labels []string
		want   string
		wantOK bool
	}{
		{"rating lowest edge", 0, cfg.RatingEdges, cfg.RatingLabels, "Poor", true},
		{"rating right closed", 2.0, cfg.RatingEdges, cfg.RatingLabels, "Poor", true},
		{"rating just above edge", 2.01, cfg.RatingEdges, cfg.RatingLabels, "Average", true},
		{"rating top edge", 5, cfg.RatingEdges, cfg.RatingLabels, "Excellent", true},
		{"rating above range", 5.1, cfg.RatingEdges, cfg.RatingLabels, "", false},
		{"rating below range", -1, cfg.RatingEdges, cfg.RatingLabels, "", false},
		{"cost zero", 0, cfg.CostEdges, cfg.CostLabels, "Budget", true},
		{"cost 500", 500, cfg.CostEdges, cfg.CostLabels, "Budget", true},
		{"cost 500.01", 500.01, cfg.CostEdges, cfg.CostLabels, "Moderate", true},
		{"cost huge", 1e9, cfg.CostEdges, cfg.CostLabels, "Premium", true},
		{"mismatched labels", 1, []float64{0, 1}, []string{"a", "b"}, "", false},
		{"infinite edge", math.Inf(1), cfg.CostEdges, cfg.CostLabels, "Premium", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Bin(tt.x, tt.edges, tt.labels)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateFeatures(t *testing.T) {
	cfg := testConfig()
	cleaned, _ := NewCleaner(cfg.Cleaning, nil).Clean(context.Background(), sampleTable(t))

	fe := NewFeatureEngineer(cfg.Features, nil, cfg.Cleaning.CuisineSentinel, cfg.Cleaning.DishSentinel)
	out, report := fe.Create(context.Background(), cleaned)

	assert.Equal(t, []string{domain.ColumnNumCuisines, domain.ColumnCostCategory, domain.ColumnRatingCategory}, report.Derived)
	assert.Empty(t, report.SchemaGaps)
	assert.Equal(t, cleaned.ColumnCount()+3, out.ColumnCount())
	assert.False(t, cleaned.HasColumn(domain.ColumnNumCuisines), "input must not be mutated")

	counts, _ := out.Column(domain.ColumnNumCuisines)
	assert.Equal(t, []float64{2, 0, 1}, counts.Floats())

	costCat, _ := out.Column(domain.ColumnCostCategory)
	assert.Equal(t, domain.KindCategorical, costCat.Kind)
	assert.Equal(t, []string{"Moderate", "Moderate", "Expensive"}, texts(costCat))

	rateCat, _ := out.Column(domain.ColumnRatingCategory)
	assert.Equal(t, []string{"Excellent", "Poor", "Average"}, texts(rateCat))
}

func TestCreateFeaturesKeepsExistingColumns(t *testing.T) {
	existing := domain.NewColumn(domain.ColumnNumCuisines, domain.KindInteger, []domain.Value{domain.IntValue(7)})
	table, err := domain.NewTable(stringColumn(domain.ColumnCuisines, "Cafe, Bakery"), existing)
	require.NoError(t, err)

	out, report := NewFeatureEngineer(testConfig().Features, nil).Create(context.Background(), table)

	counts, _ := out.Column(domain.ColumnNumCuisines)
	assert.Equal(t, []float64{7}, counts.Floats())
	assert.Empty(t, report.Derived)
	assert.ElementsMatch(t, []SchemaGap{
		{Operation: OpFeatures, Column: domain.ColumnCostForTwo},
		{Operation: OpFeatures, Column: domain.ColumnRateClean},
	}, report.SchemaGaps)
}

func TestCreateFeaturesMissingCostIsUncategorized(t *testing.T) {
	cost := domain.NewColumn(domain.ColumnCostForTwo, domain.KindFloat, []domain.Value{domain.Missing(), domain.FloatValue(250)})
	table, err := domain.NewTable(cost)
	require.NoError(t, err)

	out, _ := NewFeatureEngineer(testConfig().Features, nil).Create(context.Background(), table)
	cat, _ := out.Column(domain.ColumnCostCategory)
	assert.True(t, cat.Values[0].IsMissing())
	assert.Equal(t, "Budget", cat.Values[1].Text())
}
