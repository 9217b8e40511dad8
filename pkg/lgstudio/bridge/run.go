package bridge

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/api"
	lgerrors "github.com/randalmurphal/lgstudio/pkg/lgstudio/errors"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/observability"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

var now = time.Now

// Run saves the graph, then executes it to completion on a fresh thread.
// Returned events are appended to the store one at a time, then the
// thread's final state is fetched. IsRunning is false when Run returns.
//
// A backend-reported failure is returned as a *errors.RunError and is also
// appended to the event log as an error event.
func (b *Bridge) Run(ctx context.Context, inputs map[string]any) (api.RunResponse, error) {
	id, threadID, err := b.startRun(ctx, false)
	if err != nil {
		return api.RunResponse{}, err
	}
	logger := observability.EnrichLogger(b.logger, id, threadID)

	ctx, span := b.spans.StartRunSpan(ctx, id, threadID)
	start := time.Now()

	res, err := b.backend.Run(ctx, id, api.RunRequest{Inputs: inputs, ThreadID: threadID})
	if res.ThreadID != "" && res.ThreadID != threadID {
		threadID = res.ThreadID
		b.store.SetThreadID(threadID)
	}
	for _, ev := range res.Events {
		b.appendEvent(ctx, ev)
	}
	b.recordFailure(ctx, err)
	if err == nil || isRunError(err) {
		b.refreshState(ctx, id, threadID)
	}
	b.finishRun()

	b.metrics.RecordRun(ctx, false, err)
	b.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogRunError(logger, id, threadID, err)
		return res, err
	}
	observability.LogRunComplete(logger, id, threadID, res.Status, len(res.Events), float64(time.Since(start).Microseconds())/1000)
	return res, nil
}

// RunStream saves the graph, then executes it with server-sent events,
// appending each event to the store as it arrives. It returns when the
// stream ends or ctx is done.
func (b *Bridge) RunStream(ctx context.Context, inputs map[string]any) error {
	id, threadID, err := b.startRun(ctx, true)
	if err != nil {
		return err
	}
	logger := observability.EnrichLogger(b.logger, id, threadID)

	ctx, span := b.spans.StartRunSpan(ctx, id, threadID)
	start := time.Now()

	var events int
	err = b.backend.Stream(ctx, id, api.RunRequest{Inputs: inputs, ThreadID: threadID}, func(ev workflow.StreamEvent) error {
		events++
		b.appendEvent(ctx, ev)
		observability.LogStreamEvent(logger, string(ev.EventType), ev.NodeID)
		return nil
	})
	b.recordFailure(ctx, err)
	if err == nil {
		b.refreshState(ctx, id, threadID)
	}
	b.finishRun()

	b.metrics.RecordRun(ctx, true, err)
	b.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogRunError(logger, id, threadID, err)
		return err
	}
	observability.LogRunComplete(logger, id, threadID, api.StatusSuccess, events, float64(time.Since(start).Microseconds())/1000)
	return nil
}

// startRun saves, then resets the run state on a new thread.
func (b *Bridge) startRun(ctx context.Context, streamed bool) (id, threadID string, err error) {
	if _, err := b.Save(ctx); err != nil {
		return "", "", err
	}
	id = b.store.Workflow().ID
	threadID = newThreadID()
	b.store.StartRun(threadID)
	observability.LogRunStart(b.logger, id, threadID, streamed)
	return id, threadID, nil
}

// appendEvent adds one event to the log. Node events move the active-node
// highlight; terminal events clear it.
func (b *Bridge) appendEvent(ctx context.Context, ev workflow.StreamEvent) {
	b.store.AddStreamEvent(ev)
	b.metrics.RecordStreamEvent(ctx, string(ev.EventType))
	b.spans.AddSpanEvent(ctx, string(ev.EventType), attribute.String("lgstudio.node_id", ev.NodeID))

	switch ev.EventType {
	case workflow.EventNodeStart, workflow.EventNodeEnd:
		if ev.NodeID != "" {
			b.store.SetActiveNode(ev.NodeID)
		}
	case workflow.EventWorkflowEnd, workflow.EventError:
		b.store.SetActiveNode("")
	}
}

// recordFailure puts a backend run failure into the event log so the
// timeline shows it. Transport errors are only returned.
func (b *Bridge) recordFailure(ctx context.Context, err error) {
	var runErr *lgerrors.RunError
	if !errors.As(err, &runErr) {
		return
	}
	b.appendEvent(ctx, workflow.StreamEvent{
		EventType: workflow.EventError,
		Data:      map[string]any{"error": runErr.Message},
		Timestamp: float64(now().UnixMilli()) / 1000,
	})
}

func isRunError(err error) bool {
	var runErr *lgerrors.RunError
	return errors.As(err, &runErr)
}

func (b *Bridge) finishRun() {
	b.store.SetActiveNode("")
	b.store.SetRunning(false)
}

// refreshState fetches the thread's state into the store. Failures are
// logged and otherwise ignored; the run itself has already finished.
func (b *Bridge) refreshState(ctx context.Context, id, threadID string) {
	res, err := b.backend.State(ctx, id, threadID)
	if err != nil {
		observability.LogRunError(b.logger, id, threadID, err)
		return
	}
	snap := res.Snapshot()
	b.store.SetStateData(&snap)
}

// RefreshState fetches the current thread's state into the store.
func (b *Bridge) RefreshState(ctx context.Context) (workflow.StateSnapshot, error) {
	snap := b.store.Snapshot()
	if snap.Workflow.ID == "" {
		return workflow.StateSnapshot{}, ErrNotSaved
	}
	res, err := b.backend.State(ctx, snap.Workflow.ID, snap.Run.ThreadID)
	if err != nil {
		return workflow.StateSnapshot{}, err
	}
	state := res.Snapshot()
	b.store.SetStateData(&state)
	return state, nil
}

// Paused reports whether the last known state is waiting on a human.
func (b *Bridge) Paused() bool {
	st := b.store.Snapshot().Run.StateData
	return st != nil && len(st.NextNodes) > 0
}

// Stop marks the run as finished on the client. The backend request, if
// any, is not cancelled; cancel the context passed to Run for that.
func (b *Bridge) Stop() {
	b.finishRun()
}

// Resume continues the current thread with human feedback and refreshes
// the state afterwards.
func (b *Bridge) Resume(ctx context.Context, feedback string, nodeData map[string]any) (api.ResumeResponse, error) {
	snap := b.store.Snapshot()
	id, threadID := snap.Workflow.ID, snap.Run.ThreadID
	if id == "" {
		return api.ResumeResponse{}, ErrNotSaved
	}
	if threadID == "" {
		return api.ResumeResponse{}, ErrNoThread
	}

	b.store.SetRunning(true)
	ctx, span := b.spans.StartRunSpan(ctx, id, threadID)
	res, err := b.backend.Resume(ctx, id, api.ResumeRequest{
		ThreadID:      threadID,
		HumanFeedback: feedback,
		NodeData:      nodeData,
	})
	b.recordFailure(ctx, err)
	if err == nil || isRunError(err) {
		b.refreshState(ctx, id, threadID)
	}
	b.finishRun()
	b.spans.EndSpanWithError(span, err)

	if err != nil {
		observability.LogRunError(b.logger, id, threadID, err)
		return res, err
	}
	return res, nil
}

// History lists the checkpoints of the current thread.
func (b *Bridge) History(ctx context.Context) ([]api.Checkpoint, error) {
	snap := b.store.Snapshot()
	if snap.Workflow.ID == "" {
		return nil, ErrNotSaved
	}
	return b.backend.History(ctx, snap.Workflow.ID, snap.Run.ThreadID)
}
