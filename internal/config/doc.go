// Package config provides configuration management for the cleaning pipeline.
//
// # Configuration Sources
//
// Values are layered in increasing order of precedence:
//
//	1. Default() values
//	2. A YAML file (explicit path, ZC_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Environment variables with the ZC_ prefix, optionally seeded from a .env file
//
// # Environment Variables
//
//	ZC_CLEANING_MISSING_THRESHOLD=0.5
//	ZC_CLEANING_IQR_MULTIPLIER=1.5
//	ZC_FEATURES_COST_EDGES=0,500,1000,2000,+Inf
//	ZC_VALIDATION_MIN_ROWS=100
//	ZC_PATHS_PROCESSED_DIR=data/processed
//	ZC_LOGGING_LEVEL=debug
//
// # Paths
//
// ResolvePaths turns the configured layout into absolute directories and
// names the per-run output artifacts:
//
//	paths, _ := config.ResolvePaths(cfg.Paths)
//	csvPath := paths.CleanedDataPath(start)
//	reportPath := paths.QualityReportPath(start)
package config
