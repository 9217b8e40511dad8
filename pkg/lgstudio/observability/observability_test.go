package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newJSONLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogLoad(nil, "wf", 1, 1)
		LogLoadError(nil, "wf", errors.New("x"))
		LogSave(nil, "wf", true, 1)
		LogSaveError(nil, "wf", errors.New("x"))
		LogRunStart(nil, "wf", "t", false)
		LogRunComplete(nil, "wf", "t", "completed", 3, 1)
		LogRunError(nil, "wf", "t", errors.New("x"))
		LogStreamEvent(nil, "token", "n")
		LogRetry(nil, "get", 1, time.Second, errors.New("x"))
		LogConnect(nil, "e", "a", "b", true)
		LogDrop(nil, "n", "llm")
		LogDraft(nil, "k", 1, 10)
	})
	assert.Nil(t, EnrichLogger(nil, "wf", "t"))
}

func TestEnrichLogger(t *testing.T) {
	logger, buf := newJSONLogger()

	EnrichLogger(logger, "wf-1", "thread-1").Info("hello")
	rec := lastRecord(t, buf)
	assert.Equal(t, "wf-1", rec["workflow_id"])
	assert.Equal(t, "thread-1", rec["thread_id"])

	EnrichLogger(logger, "wf-2", "").Info("hello")
	rec = lastRecord(t, buf)
	assert.Equal(t, "wf-2", rec["workflow_id"])
	_, has := rec["thread_id"]
	assert.False(t, has)
}

func TestLogSaveError(t *testing.T) {
	logger, buf := newJSONLogger()
	LogSaveError(logger, "wf-1", errors.New("boom"))

	rec := lastRecord(t, buf)
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "workflow save failed", rec["msg"])
	assert.Equal(t, "boom", rec["error"])
}

func TestLogConnect(t *testing.T) {
	logger, buf := newJSONLogger()
	LogConnect(logger, "e1", "a", "b", true)

	rec := lastRecord(t, buf)
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, true, rec["back_edge"])
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 5.0)
}

func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		_ = provider.Shutdown(context.Background())
	})
	return reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestOtelMetrics(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSave(ctx, true, 12*time.Millisecond, nil)
	m.RecordSave(ctx, false, 3*time.Millisecond, errors.New("x"))
	m.RecordRun(ctx, true, nil)
	m.RecordStreamEvent(ctx, "node_start")
	m.RecordStreamEvent(ctx, "node_end")
	m.RecordStreamEvent(ctx, "node_end")

	assert.Equal(t, int64(2), sumValue(t, findMetric(t, reader, "lgstudio.save.count")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(t, reader, "lgstudio.run.count")))
	assert.Equal(t, int64(3), sumValue(t, findMetric(t, reader, "lgstudio.stream.events")))

	latency := findMetric(t, reader, "lgstudio.save.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordSave(context.Background(), true, time.Second, nil)
		m.RecordRun(context.Background(), false, errors.New("x"))
		m.RecordStreamEvent(context.Background(), "token")
	})
}

func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("lgstudio")
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestSpanManager(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, run := sm.StartRunSpan(context.Background(), "wf-1", "thread-1")
	_, save := sm.StartSaveSpan(ctx, "")
	sm.EndSpanWithError(save, nil)
	sm.AddSpanEvent(ctx, "event", attribute.String("event_type", "node_start"))
	sm.EndSpanWithError(run, errors.New("failed"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "lgstudio.save", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.Bool("workflow.create", true))
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].Parent.TraceID())

	assert.Equal(t, "lgstudio.run", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "failed", spans[1].Status.Description)
	require.Len(t, spans[1].Events, 2) // added event + recorded error
	assert.Equal(t, "event", spans[1].Events[0].Name)
}

func TestStartLoadSpan(t *testing.T) {
	exporter := setupTracingTest(t)

	_, span := NewSpanManager().StartLoadSpan(context.Background(), "wf-9")
	EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "lgstudio.load", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("workflow.id", "wf-9"))
}

func TestNoopSpanManager(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}
	ctx := context.Background()

	got, span := sm.StartRunSpan(ctx, "wf", "t")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())
	assert.NotPanics(t, func() {
		sm.EndSpanWithError(span, errors.New("x"))
		sm.AddSpanEvent(ctx, "e")
	})
	EndSpanWithError(nil, nil)
}
