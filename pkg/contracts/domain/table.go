package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrRaggedColumns is returned when columns of a table disagree on length
	ErrRaggedColumns = errors.New("columns have unequal lengths")
	// ErrColumnExists is returned when adding a column whose name is already taken
	ErrColumnExists = errors.New("column already exists")
	// ErrColumnNotFound is returned when a named column is absent
	ErrColumnNotFound = errors.New("column not found")
)

// Kind is the primitive type declared for a column
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindInteger
	KindCategorical
)

// String returns the dtype name used in reports
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float64"
	case KindInteger:
		return "int64"
	case KindCategorical:
		return "category"
	default:
		return "object"
	}
}

// IsNumeric reports whether values of this kind are numbers
func (k Kind) IsNumeric() bool {
	return k == KindFloat || k == KindInteger
}

// Value is a single cell. The zero Value is missing.
type Value struct {
	kind  Kind
	text  string
	num   float64
	valid bool
}

// Missing returns the missing marker
func Missing() Value { return Value{} }

// StringValue wraps free text
func StringValue(s string) Value {
	return Value{kind: KindString, text: s, valid: true}
}

// FloatValue wraps a float; NaN becomes missing
func FloatValue(f float64) Value {
	if math.IsNaN(f) {
		return Value{kind: KindFloat}
	}
	return Value{kind: KindFloat, num: f, valid: true}
}

// IntValue wraps an integer
func IntValue(i int64) Value {
	return Value{kind: KindInteger, num: float64(i), valid: true}
}

// CategoryValue wraps a categorical label
func CategoryValue(label string) Value {
	return Value{kind: KindCategorical, text: label, valid: true}
}

// IsMissing reports whether the cell holds no value
func (v Value) IsMissing() bool { return !v.valid }

// Kind returns the kind the value was created with
func (v Value) Kind() Kind { return v.kind }

// Text returns the string representation of the value, or "" when missing
func (v Value) Text() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindInteger:
		return strconv.FormatInt(int64(v.num), 10)
	default:
		return v.text
	}
}

// Float returns the numeric value. Text values are not parsed.
func (v Value) Float() (float64, bool) {
	if !v.valid || !v.kind.IsNumeric() {
		return 0, false
	}
	return v.num, true
}

// Int returns the value truncated to an integer for numeric kinds
func (v Value) Int() (int64, bool) {
	f, ok := v.Float()
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Equal compares kind and content. Two missing values are equal.
func (v Value) Equal(o Value) bool {
	if !v.valid || !o.valid {
		return v.valid == o.valid
	}
	if v.kind.IsNumeric() && o.kind.IsNumeric() {
		return v.num == o.num
	}
	return v.kind == o.kind && v.text == o.text
}

func (v Value) key() string {
	if !v.valid {
		return "\x00"
	}
	return strconv.Itoa(int(v.kind)) + ":" + v.Text()
}

// Column is a named, typed sequence of values
type Column struct {
	Name       string
	Kind       Kind
	Descriptor ColumnDescriptor
	Values     []Value
}

// NewColumn creates a column and attaches its descriptor from the registry
func NewColumn(name string, kind Kind, values []Value) *Column {
	return &Column{
		Name:       name,
		Kind:       kind,
		Descriptor: DescribeColumn(name),
		Values:     values,
	}
}

// Len returns the number of values
func (c *Column) Len() int { return len(c.Values) }

// MissingCount returns the number of missing values
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// Floats returns the non-missing numeric values in row order
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a deep copy
func (c *Column) Clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Descriptor: c.Descriptor, Values: values}
}

// Table is an ordered set of equally long named columns
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable builds a table, rejecting duplicate names and ragged columns
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// RowCount returns the number of rows
func (t *Table) RowCount() int { return t.rows }

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int { return len(t.columns) }

// Shape returns rows and columns
func (t *Table) Shape() Shape { return Shape{Rows: t.rows, Columns: len(t.columns)} }

// Columns returns the columns in order. Callers must not reorder the slice.
func (t *Table) Columns() []*Column { return t.columns }

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// HasColumn reports whether name is present
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AddColumn appends a new column. Existing columns are never overwritten.
func (t *Table) AddColumn(c *Column) error {
	if _, exists := t.index[c.Name]; exists {
		return fmt.Errorf("%w: %s", ErrColumnExists, c.Name)
	}
	if len(t.columns) > 0 && c.Len() != t.rows {
		return fmt.Errorf("%w: %s has %d values, table has %d rows", ErrRaggedColumns, c.Name, c.Len(), t.rows)
	}
	if len(t.columns) == 0 {
		t.rows = c.Len()
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

// ReplaceColumn swaps the values and kind of an existing column in place
func (t *Table) ReplaceColumn(c *Column) error {
	i, ok := t.index[c.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, c.Name)
	}
	if c.Len() != t.rows {
		return fmt.Errorf("%w: %s has %d values, table has %d rows", ErrRaggedColumns, c.Name, c.Len(), t.rows)
	}
	t.columns[i] = c
	return nil
}

// DropColumns removes the named columns; unknown names are ignored
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := t.columns[:0]
	for _, c := range t.columns {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	t.columns = kept
	t.reindex()
}

// KeepRows retains the rows whose flag is true, preserving order
func (t *Table) KeepRows(keep []bool) error {
	if len(keep) != t.rows {
		return fmt.Errorf("%w: mask has %d entries, table has %d rows", ErrRaggedColumns, len(keep), t.rows)
	}
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	for _, c := range t.columns {
		values := make([]Value, 0, kept)
		for i, v := range c.Values {
			if keep[i] {
				values = append(values, v)
			}
		}
		c.Values = values
	}
	t.rows = kept
	return nil
}

// RowKey returns a string identifying the full content of row i
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for _, c := range t.columns {
		b.WriteString(c.Values[i].key())
		b.WriteByte('\x1f')
	}
	return b.String()
}

// TotalCells returns rows × columns
func (t *Table) TotalCells() int { return t.rows * len(t.columns) }

// MissingCells returns the number of missing cells across the table
func (t *Table) MissingCells() int {
	n := 0
	for _, c := range t.columns {
		n += c.MissingCount()
	}
	return n
}

// MemoryBytes approximates the in-memory footprint of the table
func (t *Table) MemoryBytes() int64 {
	var total int64
	for _, c := range t.columns {
		total += 128
		for _, v := range c.Values {
			if c.Kind.IsNumeric() {
				total += 8
				continue
			}
			total += 16 + int64(len(v.text))
		}
	}
	return total
}

// Clone returns a deep copy
func (t *Table) Clone() *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.columns)),
		rows:    t.rows,
	}
	for i, c := range t.columns {
		out.columns[i] = c.Clone()
		out.index[c.Name] = i
	}
	return out
}

// Equal reports whether both tables have the same columns, kinds and values
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.columns) != len(o.columns) {
		return false
	}
	for i, c := range t.columns {
		oc := o.columns[i]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}
		for r := range c.Values {
			if !c.Values[r].Equal(oc.Values[r]) {
				return false
			}
		}
	}
	return true
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c.Name] = i
	}
}
