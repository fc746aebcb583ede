// Package dataprocessing loads the restaurant dataset and turns it into an
// analysis-ready table.
//
// The package has three parts:
//
//   - Loader resolves the source file (explicit path, download, or a scan of
//     the raw and working directories) and reads CSV or XLSX into a typed
//     domain.Table.
//   - Cleaner drops sparse columns, imputes the known columns, removes
//     duplicate rows, normalizes text, derives numeric rating and cost
//     columns and clips their outliers.
//   - FeatureEngineer adds cuisine counts and cost and rating categories.
//
// Cleaner and FeatureEngineer implement Processor. Each operation returns a
// new table together with a StepReport and never mutates its input.
// Operations whose column is absent are skipped and recorded as schema gaps.
//
// Example:
//
//	loader := dataprocessing.NewLoader("zomato", nil, logger, paths.RawDir, paths.BaseDir)
//	table, info, source, err := loader.Load(ctx, "")
//	cleaned, report := dataprocessing.NewCleaner(cfg.Cleaning, logger).Clean(ctx, table)
//	enriched, _ := dataprocessing.NewFeatureEngineer(cfg.Features, logger).Create(ctx, cleaned)
package dataprocessing
