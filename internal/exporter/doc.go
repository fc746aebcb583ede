// Package exporter writes pipeline outputs to disk.
//
// CSVWriter writes tables as UTF-8 CSV with a header row, either in one call
// or through a StreamWriter. WriteJSON writes indented JSON documents such as
// the quality report. Relative paths resolve against the processed data
// directory.
//
//	w := exporter.NewCSVWriter(paths, logger)
//	err := w.WriteTable(paths.CleanedDataPath(ts), table, exporter.WriteOptions{})
//	err = w.WriteJSON(paths.QualityReportPath(ts), report)
package exporter
