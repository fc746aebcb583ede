package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"zomatoclean/internal/infrastructure"
)

// OperationTracer wraps run and step execution in spans and records the
// pipeline metrics. A nil *OperationTracer is valid and records nothing
// beyond no-op spans.
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer on the given providers
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	return &OperationTracer{
		tracer:  providers.Tracer,
		metrics: metrics,
	}, nil
}

// Metrics exposes the pipeline instruments
func (pt *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	if pt == nil {
		return nil
	}
	return pt.metrics
}

func (pt *OperationTracer) spanTracer() trace.Tracer {
	if pt == nil {
		return nil
	}
	return pt.tracer
}

// TraceOperationExecution creates the span enclosing a whole run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string, req OperationRequest) (context.Context, trace.Span) {
	return infrastructure.StartSpan(ctx, pt.spanTracer(), "operation.execute",
		attribute.String("operation.id", operationID),
		attribute.String("operation.input_path", req.InputPath),
	)
}

// TraceStepExecution creates the span for one step
func (pt *OperationTracer) TraceStepExecution(ctx context.Context, operationID, stepID string) (context.Context, trace.Span) {
	return infrastructure.StartSpan(ctx, pt.spanTracer(), "operation.step."+stepID,
		attribute.String("operation.id", operationID),
		attribute.String("step.id", stepID),
	)
}

// RecordStepCompletion closes out a step span and records its metrics
func (pt *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "step completed")
	}
	pt.Metrics().RecordStep(ctx, stepID, duration, err)
}

// RecordOperationCompletion closes out a run span and records run level metrics
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, state *OperationState, err error) {
	duration := state.Duration()
	span.SetAttributes(
		attribute.String("operation.status", string(state.GetStatus())),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "operation completed")
	}

	m := pt.Metrics()
	if m == nil {
		return
	}
	m.RecordRun(ctx, duration, err)

	data := state.Data
	if data.Original != nil {
		m.RowsLoaded.Add(ctx, int64(data.Original.RowCount()))
	}
	if data.Original != nil && data.Cleaned != nil {
		if removed := data.Original.RowCount() - data.Cleaned.RowCount(); removed > 0 {
			m.RowsRemoved.Add(ctx, int64(removed))
		}
	}
	if clipped := data.CleaningReport.TotalClipped(); clipped > 0 {
		m.OutliersClipped.Add(ctx, int64(clipped))
	}
	if data.Validation != nil && !data.Validation.Valid {
		m.ValidationFailed.Add(ctx, 1, metric.WithAttributes(attribute.Int("failed_checks", len(data.Validation.FailedChecks))))
	}
}
