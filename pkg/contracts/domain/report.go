package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Shape is the (rows, columns) pair of a table. It serializes as a
// two-element array.
type Shape struct {
	Rows    int
	Columns int
}

// MarshalJSON encodes the shape as [rows, columns]
func (s Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Rows, s.Columns})
}

// UnmarshalJSON decodes [rows, columns]
func (s *Shape) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	s.Rows, s.Columns = pair[0], pair[1]
	return nil
}

// DataInfo describes a freshly loaded table
type DataInfo struct {
	Shape         Shape             `json:"original_shape"`
	Columns       []string          `json:"columns"`
	DataTypes     map[string]string `json:"data_types"`
	MissingValues map[string]int    `json:"missing_values"`
	MemoryMB      float64           `json:"memory_usage_mb"`
}

// QualityMetrics are absolute quality figures of one table
type QualityMetrics struct {
	TotalRows              int     `json:"total_rows"`
	TotalColumns           int     `json:"total_columns"`
	CompletenessScore      float64 `json:"completeness_score"`
	DuplicateRows          int     `json:"duplicate_rows"`
	NumericColumns         int     `json:"numeric_columns"`
	CategoricalColumns     int     `json:"categorical_columns"`
	MemoryUsageMB          float64 `json:"memory_usage_mb"`
	TotalMissingValues     int     `json:"total_missing_values"`
	MissingValuePercentage float64 `json:"missing_value_percentage"`
}

// CleaningImpact compares the original and final tables
type CleaningImpact struct {
	RowsRemoved             int     `json:"rows_removed"`
	ColumnsRemoved          int     `json:"columns_removed"`
	MissingValuesRemoved    int     `json:"missing_values_removed"`
	CompletenessImprovement float64 `json:"completeness_improvement"`
	OriginalCompleteness    float64 `json:"original_completeness"`
	FinalCompleteness       float64 `json:"final_completeness"`
}

// DatasetInfo is the structural summary of the final table
type DatasetInfo struct {
	Shape      Shape             `json:"shape"`
	Columns    []string          `json:"columns"`
	DataTypes  map[string]string `json:"data_types"`
	SampleSize int               `json:"sample_size"`
}

// QualityReport is produced once per run and never modified afterwards
type QualityReport struct {
	Metrics          QualityMetrics `json:"data_quality_metrics"`
	Impact           CleaningImpact `json:"cleaning_impact"`
	FinalDatasetInfo DatasetInfo    `json:"final_dataset_info"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// ValidationRules is the declarative rule set evaluated against the final table
type ValidationRules struct {
	MinRows              int      `json:"min_rows" yaml:"min_rows" envconfig:"MIN_ROWS"`
	RequiredColumns      []string `json:"required_columns" yaml:"required_columns" envconfig:"REQUIRED_COLUMNS"`
	MaxMissingPercentage float64  `json:"max_missing_percentage" yaml:"max_missing_percentage" envconfig:"MAX_MISSING_PERCENTAGE"`
}

// DefaultValidationRules returns the rules applied when none are configured
func DefaultValidationRules() ValidationRules {
	return ValidationRules{
		MinRows:              100,
		RequiredColumns:      []string{ColumnName, ColumnRateClean, ColumnCostForTwo},
		MaxMissingPercentage: 5.0,
	}
}

// WithDefaults fills every zero-valued field from DefaultValidationRules
func (r ValidationRules) WithDefaults() ValidationRules {
	def := DefaultValidationRules()
	if r.MinRows == 0 {
		r.MinRows = def.MinRows
	}
	if len(r.RequiredColumns) == 0 {
		r.RequiredColumns = def.RequiredColumns
	}
	if r.MaxMissingPercentage == 0 {
		r.MaxMissingPercentage = def.MaxMissingPercentage
	}
	return r
}

// Validation rule identifiers
const (
	RuleMinRows         = "min_rows"
	RuleRequiredColumns = "required_columns"
	RuleMaxMissing      = "max_missing_percentage"
	RuleNumericColumns  = "numeric_columns"
)

// Check is the outcome message of a single rule
type Check struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationOutcome classifies each evaluated rule. Lists keep evaluation order.
type ValidationOutcome struct {
	Valid        bool    `json:"valid"`
	PassedChecks []Check `json:"passed_checks"`
	FailedChecks []Check `json:"failed_checks"`
	Warnings     []Check `json:"warnings"`
}

// RoundTo rounds x half away from zero to the given number of decimal places
func RoundTo(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}

// BytesToMB converts a byte count to megabytes rounded to two places
func BytesToMB(bytes int64) float64 {
	return RoundTo(float64(bytes)/1024/1024, 2)
}
