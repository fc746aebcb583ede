package dataprocessing

import (
	"context"
	"sort"

	"zomatoclean/pkg/contracts/domain"
)

// Processor transforms a table into a new table. Inputs are never mutated.
type Processor interface {
	Process(ctx context.Context, t *domain.Table) (*domain.Table, StepReport)
}

// OutlierStat records the IQR bounds used for a column and how many values
// were clipped to them
type OutlierStat struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// SchemaGap notes an operation skipped because its column was absent
type SchemaGap struct {
	Operation string `json:"operation"`
	Column    string `json:"column"`
}

// StepReport summarizes what a cleaning or feature step changed
type StepReport struct {
	DroppedColumns    []string               `json:"dropped_columns,omitempty"`
	Imputed           map[string]int         `json:"imputed,omitempty"`
	DuplicatesRemoved int                    `json:"duplicates_removed"`
	Normalized        []string               `json:"normalized,omitempty"`
	Derived           []string               `json:"derived,omitempty"`
	Outliers          map[string]OutlierStat `json:"outliers,omitempty"`
	SchemaGaps        []SchemaGap            `json:"schema_gaps,omitempty"`
}

// Merge folds other into r
func (r *StepReport) Merge(other StepReport) {
	r.DroppedColumns = append(r.DroppedColumns, other.DroppedColumns...)
	for col, n := range other.Imputed {
		r.imputed(col, n)
	}
	r.DuplicatesRemoved += other.DuplicatesRemoved
	r.Normalized = append(r.Normalized, other.Normalized...)
	r.Derived = append(r.Derived, other.Derived...)
	for col, stat := range other.Outliers {
		if r.Outliers == nil {
			r.Outliers = make(map[string]OutlierStat)
		}
		r.Outliers[col] = stat
	}
	r.SchemaGaps = append(r.SchemaGaps, other.SchemaGaps...)
}

// TotalImputed returns the number of filled cells across columns
func (r StepReport) TotalImputed() int {
	n := 0
	for _, c := range r.Imputed {
		n += c
	}
	return n
}

// TotalClipped returns the number of clipped values across columns
func (r StepReport) TotalClipped() int {
	n := 0
	for _, s := range r.Outliers {
		n += s.Count
	}
	return n
}

// ImputedColumns lists the imputed columns in name order
func (r StepReport) ImputedColumns() []string {
	cols := make([]string, 0, len(r.Imputed))
	for c := range r.Imputed {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func (r *StepReport) imputed(col string, n int) {
	if n == 0 {
		return
	}
	if r.Imputed == nil {
		r.Imputed = make(map[string]int)
	}
	r.Imputed[col] += n
}

func (r *StepReport) gap(operation, column string) {
	r.SchemaGaps = append(r.SchemaGaps, SchemaGap{Operation: operation, Column: column})
}
