// Package files locates candidate source datasets on disk.
//
// Discovery scans a directory for tabular files (.csv, .xlsx) and orders
// them newest first, so the most recent download or drop-in wins:
//
//	d := files.NewDiscovery(paths.BaseDir)
//	candidates, err := d.FindSourceCandidates(paths.RawDir, "zomato")
package files
