// Package shared holds helpers used by more than one layer of the cleaning
// service. The testutil subpackage captures slog output so tests can assert
// on the structured events the pipeline and the HTTP layer emit.
package shared
