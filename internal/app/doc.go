// Package app wires the cleaning service together: configuration, logging,
// OpenTelemetry, the pipeline manager, the websocket hub and the chi router.
//
// # Startup
//
//	1. config.Load (defaults, YAML, ZC_ environment)
//	2. InitializeLogger and InitializeOTel
//	3. Resolve and create the data directories
//	4. Register the five pipeline steps with the operations manager
//	5. Mount the HTTP API under /api, the websocket at /ws and /metrics
//
// Only one pipeline run is active at a time. Runs started over HTTP execute
// in the background; clients poll /api/runs/{id} or listen on /ws.
//
// # Shutdown
//
// Run blocks until SIGINT or SIGTERM, then stops the HTTP server, cancels
// the active run, stops the hub and flushes telemetry. Errors are returned
// to main; the package never calls os.Exit.
package app
