// Package operations orchestrates pipeline runs.
//
// A run executes the registered steps in dependency order:
//
//	load -> clean -> features -> quality -> persist
//
// Core Components:
//
// Manager: executes one run at a time. Steps run sequentially, each under
// its own timeout, and the first failure aborts the run; the remaining steps
// are marked skipped. Steps are never retried. A failing validation outcome
// is part of the result, not a run failure.
//
// Step: a single unit of work. Steps exchange tables through the
// PipelineData carried by the OperationState.
//
// Registry: holds the steps and orders them topologically, breaking ties by
// registration order.
//
// StatusBroadcaster: keeps the latest OperationSnapshot of every run and
// publishes the complete snapshot to the WebSocket hub on every change.
//
// Example usage:
//
//	registry := operations.NewRegistry()
//	if err := operations.RegisterPipeline(registry, operations.NewPipelineStages(cfg, paths, logger)); err != nil {
//		return err
//	}
//	manager := operations.NewManager(hub, registry, operations.NewConfig(), tracer, logger)
//	resp, err := manager.Execute(ctx, operations.OperationRequest{InputPath: "zomato.csv"})
package operations
