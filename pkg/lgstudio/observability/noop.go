package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordSave does nothing.
func (NoopMetrics) RecordSave(context.Context, bool, time.Duration, error) {}

// RecordRun does nothing.
func (NoopMetrics) RecordRun(context.Context, bool, error) {}

// RecordStreamEvent does nothing.
func (NoopMetrics) RecordStreamEvent(context.Context, string) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartLoadSpan returns ctx unchanged and a no-op span.
func (NoopSpanManager) StartLoadSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartSaveSpan returns ctx unchanged and a no-op span.
func (NoopSpanManager) StartSaveSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartRunSpan returns ctx unchanged and a no-op span.
func (NoopSpanManager) StartRunSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
