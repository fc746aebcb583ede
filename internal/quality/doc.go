// Package quality scores a table's completeness, compares the table before
// and after cleaning, and checks the final table against validation rules.
package quality
