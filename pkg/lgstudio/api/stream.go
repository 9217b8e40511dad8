package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	lgerrors "github.com/randalmurphal/lgstudio/pkg/lgstudio/errors"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// maxFrameBytes bounds one SSE line.
const maxFrameBytes = 1 << 20

// Stream executes a workflow and calls fn for every event in arrival order.
// It returns when the backend closes the stream, when fn returns an error,
// or when ctx is done. Streams are never retried and the client timeout
// does not apply; bound them with ctx.
//
// Frames that are not valid JSON are skipped. An error event does not end
// the stream; the backend follows it with workflow_end.
func (c *Client) Stream(ctx context.Context, id string, req RunRequest, fn func(workflow.StreamEvent) error) error {
	req.Stream = true
	if req.Inputs == nil {
		req.Inputs = map[string]any{}
	}
	cl := call{method: http.MethodPost, path: workflowPath(id, "stream"), body: req}

	resp, err := c.send(ctx, cl, "text/event-stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return c.httpError(cl, resp.StatusCode, body)
	}
	if err := readEvents(resp.Body, fn); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// readEvents parses an SSE body. Only data fields are used; multi-line data
// is joined with newlines as the SSE format requires.
func readEvents(r io.Reader, fn func(workflow.StreamEvent) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxFrameBytes)

	var data []string
	flush := func() error {
		if len(data) == 0 {
			return nil
		}
		payload := strings.Join(data, "\n")
		data = data[:0]

		var ev workflow.StreamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.EventType == "" {
			return nil
		}
		return fn(ev)
	}

	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil {
		return lgerrors.Transient(fmt.Errorf("read stream: %w", err), "stream")
	}
	return flush()
}
