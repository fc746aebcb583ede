package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return WithTraceID(ctx, GenerateTraceID())
	}
	return ctx
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With("component", component)
}

// StepLogger records the lifecycle of named pipeline steps for one component
type StepLogger struct {
	logger *slog.Logger
}

// NewStepLogger creates a StepLogger tagged with component
func NewStepLogger(logger *slog.Logger, component string) *StepLogger {
	return &StepLogger{logger: WithComponent(logger, component)}
}

// Logger exposes the underlying logger
func (l *StepLogger) Logger() *slog.Logger { return l.logger }

// Start logs the beginning of a step and returns its start time
func (l *StepLogger) Start(ctx context.Context, step string) time.Time {
	l.logger.InfoContext(ctx, "step started", slog.String("step", step))
	return time.Now()
}

// Complete logs the end of a step with its duration and extra attributes
func (l *StepLogger) Complete(ctx context.Context, step string, started time.Time, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.String("step", step), slog.Duration("duration", time.Since(started)))
	for _, a := range attrs {
		args = append(args, a)
	}
	l.logger.InfoContext(ctx, "step completed", args...)
}

// Warn logs a non-fatal condition raised inside a step
func (l *StepLogger) Warn(ctx context.Context, step, msg string, attrs ...slog.Attr) {
	args := []any{slog.String("step", step)}
	for _, a := range attrs {
		args = append(args, a)
	}
	l.logger.WarnContext(ctx, msg, args...)
}

// Error logs a step failure
func (l *StepLogger) Error(ctx context.Context, step string, err error) {
	l.logger.ErrorContext(ctx, "step failed",
		slog.String("step", step),
		slog.String("error", err.Error()))
}

// Metrics logs a flat metrics map as a single grouped record
func (l *StepLogger) Metrics(ctx context.Context, step string, metrics map[string]any) {
	attrs := make([]any, 0, len(metrics))
	for k, v := range metrics {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "step metrics",
		slog.String("step", step),
		slog.Group("metrics", attrs...))
}
