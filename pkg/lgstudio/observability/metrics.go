package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records lgstudio metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSave records one save attempt.
	RecordSave(ctx context.Context, created bool, duration time.Duration, err error)

	// RecordRun records one run request.
	RecordRun(ctx context.Context, streamed bool, err error)

	// RecordStreamEvent records one event appended to the run log.
	RecordStreamEvent(ctx context.Context, eventType string)
}

type otelMetrics struct {
	saves        metric.Int64Counter
	saveLatency  metric.Float64Histogram
	runs         metric.Int64Counter
	streamEvents metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("lgstudio")

	saves, err := meter.Int64Counter("lgstudio.save.count",
		metric.WithDescription("Number of workflow saves"),
	)
	if err != nil {
		return nil, err
	}

	saveLatency, err := meter.Float64Histogram("lgstudio.save.latency_ms",
		metric.WithDescription("Workflow save latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("lgstudio.run.count",
		metric.WithDescription("Number of workflow runs requested"),
	)
	if err != nil {
		return nil, err
	}

	streamEvents, err := meter.Int64Counter("lgstudio.stream.events",
		metric.WithDescription("Number of run events received"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		saves:        saves,
		saveLatency:  saveLatency,
		runs:         runs,
		streamEvents: streamEvents,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider, or a no-op recorder if the instruments cannot be created.
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordSave(ctx context.Context, created bool, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.Bool("created", created),
		attribute.Bool("success", err == nil),
	)
	m.saves.Add(ctx, 1, attrs)
	m.saveLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordRun(ctx context.Context, streamed bool, err error) {
	m.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("streamed", streamed),
		attribute.Bool("success", err == nil),
	))
}

func (m *otelMetrics) RecordStreamEvent(ctx context.Context, eventType string) {
	m.streamEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}
