// Package observability provides logging, metrics and tracing helpers for
// lgstudio.
//
// Logging uses slog. Metrics and tracing use OpenTelemetry and read the
// global providers. Every helper accepts a nil logger, and no-op recorders
// are provided for when metrics or tracing are off.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds workflow and thread context to a logger.
//
// Example:
//
//	l := EnrichLogger(logger, "wf-123", "thread-9")
//	l.Info("saving") // includes workflow_id and thread_id
func EnrichLogger(logger *slog.Logger, workflowID, threadID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	attrs := []any{slog.String("workflow_id", workflowID)}
	if threadID != "" {
		attrs = append(attrs, slog.String("thread_id", threadID))
	}
	return logger.With(attrs...)
}

// LogLoad logs a successful workflow load.
func LogLoad(logger *slog.Logger, workflowID string, nodes, edges int) {
	if logger == nil {
		return
	}
	logger.Info("workflow loaded",
		slog.String("workflow_id", workflowID),
		slog.Int("nodes", nodes),
		slog.Int("edges", edges),
	)
}

// LogLoadError logs a failed workflow load.
func LogLoadError(logger *slog.Logger, workflowID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("workflow load failed",
		slog.String("workflow_id", workflowID),
		slog.String("error", err.Error()),
	)
}

// LogSave logs a successful save. created is true when the backend assigned
// a new ID.
func LogSave(logger *slog.Logger, workflowID string, created bool, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("workflow saved",
		slog.String("workflow_id", workflowID),
		slog.Bool("created", created),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSaveError logs a failed save. The in-memory graph is untouched.
func LogSaveError(logger *slog.Logger, workflowID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("workflow save failed",
		slog.String("workflow_id", workflowID),
		slog.String("error", err.Error()),
	)
}

// LogRunStart logs the start of a backend run.
func LogRunStart(logger *slog.Logger, workflowID, threadID string, streamed bool) {
	if logger == nil {
		return
	}
	logger.Info("workflow run starting",
		slog.String("workflow_id", workflowID),
		slog.String("thread_id", threadID),
		slog.Bool("streamed", streamed),
	)
}

// LogRunComplete logs the end of a backend run.
func LogRunComplete(logger *slog.Logger, workflowID, threadID, status string, events int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("workflow run completed",
		slog.String("workflow_id", workflowID),
		slog.String("thread_id", threadID),
		slog.String("status", status),
		slog.Int("events", events),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRunError logs a failed run.
func LogRunError(logger *slog.Logger, workflowID, threadID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("workflow run failed",
		slog.String("workflow_id", workflowID),
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
	)
}

// LogStreamEvent logs one received stream event.
func LogStreamEvent(logger *slog.Logger, eventType, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("stream event",
		slog.String("event_type", eventType),
		slog.String("node_id", nodeID),
	)
}

// LogRetry logs a retried request.
func LogRetry(logger *slog.Logger, op string, attempt int, delay time.Duration, err error) {
	if logger == nil {
		return
	}
	logger.Warn("request failed, retrying",
		slog.String("operation", op),
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		slog.String("error", err.Error()),
	)
}

// LogConnect logs a new edge.
func LogConnect(logger *slog.Logger, edgeID, source, target string, backEdge bool) {
	if logger == nil {
		return
	}
	logger.Debug("edge connected",
		slog.String("edge_id", edgeID),
		slog.String("source", source),
		slog.String("target", target),
		slog.Bool("back_edge", backEdge),
	)
}

// LogDrop logs a node dropped onto the canvas.
func LogDrop(logger *slog.Logger, nodeID, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("node dropped",
		slog.String("node_id", nodeID),
		slog.String("kind", kind),
	)
}

// LogDraft logs a local draft write.
func LogDraft(logger *slog.Logger, key string, revision int, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("draft saved",
		slog.String("key", key),
		slog.Int("revision", revision),
		slog.Int("size_bytes", sizeBytes),
	)
}

// TimedOperation returns a function reporting elapsed milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
