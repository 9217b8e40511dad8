package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("lgstudio")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartLoadSpan starts a span around fetching a workflow.
	StartLoadSpan(ctx context.Context, workflowID string) (context.Context, trace.Span)

	// StartSaveSpan starts a span around persisting a workflow.
	// workflowID is empty when the save creates the workflow.
	StartSaveSpan(ctx context.Context, workflowID string) (context.Context, trace.Span)

	// StartRunSpan starts a span covering a run from save to final state.
	StartRunSpan(ctx context.Context, workflowID, threadID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager using the global OTel tracer
// provider. Configure the provider first with otel.SetTracerProvider.
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartLoadSpan(ctx context.Context, workflowID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "lgstudio.load",
		trace.WithAttributes(attribute.String("workflow.id", workflowID)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (m *otelSpanManager) StartSaveSpan(ctx context.Context, workflowID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "lgstudio.save",
		trace.WithAttributes(
			attribute.String("workflow.id", workflowID),
			attribute.Bool("workflow.create", workflowID == ""),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (m *otelSpanManager) StartRunSpan(ctx context.Context, workflowID, threadID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "lgstudio.run",
		trace.WithAttributes(
			attribute.String("workflow.id", workflowID),
			attribute.String("thread.id", threadID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
