// Package http implements the HTTP handlers of the cleaning service. Handlers
// stay thin: they parse and validate the request, call a service, and render
// the result as JSON or RFC 7807 problem details.
//
// # Endpoints
//
//	GET  /api/health             basic health
//	GET  /api/health/ready       readiness, 503 when a dependency is down
//	GET  /api/health/live        liveness with runtime details
//	GET  /api/version            build information
//	POST /api/runs               start a run, 202 with its ID, 409 when busy
//	GET  /api/runs               page through past runs
//	GET  /api/runs/{id}          summary and latest snapshot of a run
//	POST /api/runs/{id}/cancel   stop an active run
//	GET  /api/outputs            cleaned tables and reports on disk
//	GET  /api/outputs/{name}     download one artifact
//	GET  /api/reports/latest     most recent quality report
//	GET  /metrics                Prometheus scrape endpoint
//
// Run progress is pushed over the websocket at /ws, which lives in the app
// package because it needs the hub.
package http
