package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lgerrors "github.com/randalmurphal/lgstudio/pkg/lgstudio/errors"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// fastRetry keeps retry tests quick.
var fastRetry = lgerrors.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, BackoffFactor: 1}

func ok(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status_code":    200,
		"status_message": "SUCCESS",
		"data":           data,
	})
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithRetry(fastRetry), WithoutTelemetry()}, opts...)
	return New(srv.URL, opts...)
}

func TestCreate(t *testing.T) {
	var got CreateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/langgraph/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		ok(w, map[string]any{"id": "wf-1", "name": got.Name})
	})

	res, err := c.Create(context.Background(), CreateRequest{Name: "Flow", Data: &Document{}})
	require.NoError(t, err)
	assert.Equal(t, Created{ID: "wf-1", Name: "Flow"}, res)
	assert.Equal(t, "Flow", got.Name)
}

func TestCreateFromTemplate_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/langgraph/create-from-template/react_agent", r.URL.Path)
		assert.Equal(t, "Mine", r.URL.Query().Get("name"))
		assert.Equal(t, "7", r.URL.Query().Get("space_id"))
		ok(w, map[string]any{"id": "wf-2", "name": "Mine"})
	})

	space := 7
	res, err := c.CreateFromTemplate(context.Background(), "react_agent", "Mine", &space)
	require.NoError(t, err)
	assert.Equal(t, "wf-2", res.ID)
}

func TestGet_DataEncodings(t *testing.T) {
	doc := `{"nodes":[{"id":"n1","type":"lgNode","position":{"x":1,"y":2},"data":{"type":"start"}}],"edges":[]}`
	tests := []struct {
		name  string
		data  any
		nodes int
	}{
		{"object", json.RawMessage(doc), 1},
		{"string", doc, 1},
		{"null", nil, 0},
		{"empty string", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/langgraph/wf-1", r.URL.Path)
				ok(w, map[string]any{"id": "wf-1", "name": "Flow", "status": 1, "data": tt.data})
			})

			rec, err := c.Get(context.Background(), "wf-1")
			require.NoError(t, err)
			assert.Equal(t, "Flow", rec.Name)

			d, err := rec.Document()
			require.NoError(t, err)
			assert.Len(t, d.Nodes, tt.nodes)
		})
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantMsg    string
	}{
		{
			name: "fastapi detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"detail":"Workflow not found"}`)
			},
			wantStatus: 404,
			wantMsg:    "Workflow not found",
		},
		{
			name: "envelope status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status_code":10400,"status_message":"no permission","data":null}`)
			},
			wantStatus: 10400,
			wantMsg:    "no permission",
		},
		{
			name: "plain text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, "forbidden")
			},
			wantStatus: 403,
			wantMsg:    "forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Get(context.Background(), "wf-1")

			var httpErr *lgerrors.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
			assert.False(t, lgerrors.IsRetryable(err))
		})
	}
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	})
	_, err := c.Templates(context.Background())

	var decErr *lgerrors.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "/templates", decErr.Endpoint)
}

func TestBareDataAccepted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"valid":true,"errors":[],"warnings":["w"]}`)
	})
	rep, err := c.Validate(context.Background(), Document{})
	require.NoError(t, err)
	assert.True(t, rep.Valid)
	assert.Equal(t, []string{"w"}, rep.Warnings)
}

func TestBareRecordWithDataField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"wf1","name":"Demo","data":{"nodes":[{"id":"n1","type":"start","position":{"x":0,"y":0},"data":{"type":"start"}}],"edges":[]}}`)
	})

	rec, err := c.Get(context.Background(), "wf1")
	require.NoError(t, err)
	assert.Equal(t, "wf1", rec.ID)
	assert.Equal(t, "Demo", rec.Name)
	d, err := rec.Document()
	require.NoError(t, err)
	require.Len(t, d.Nodes, 1)
	assert.Equal(t, "n1", d.Nodes[0].ID)
}

func TestBareArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, ` [{"type":"llm","name":"LLM","description":"Call a model"}]`)
	})

	infos, err := c.NodeTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "llm", infos[0].Type)
}

func TestRetry_IdempotentOnly(t *testing.T) {
	var calls atomic.Int32
	flaky := func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		ok(w, map[string]any{"history": []any{}})
	}

	var retries []int
	c := newTestClient(t, flaky, WithRetry(lgerrors.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  1,
		OnRetry:        func(attempt int, _ time.Duration, _ error) { retries = append(retries, attempt) },
	}))
	_, err := c.History(context.Background(), "wf", "t")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []int{1, 2}, retries)

	calls.Store(0)
	_, err = c.Run(context.Background(), "wf", RunRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "runs are never retried")
}

func TestRun(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got RunRequest
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/langgraph/wf/run", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			ok(w, map[string]any{
				"status":    "success",
				"output":    map[string]any{"answer": 42},
				"thread_id": "t-1",
				"events":    []any{map[string]any{"event_type": "node_end", "node_id": "llm_1", "timestamp": 1.5}},
			})
		})

		res, err := c.Run(context.Background(), "wf", RunRequest{ThreadID: "t-1"})
		require.NoError(t, err)
		assert.False(t, got.Stream)
		assert.NotNil(t, got.Inputs)
		assert.Equal(t, "t-1", res.ThreadID)
		require.Len(t, res.Events, 1)
		assert.Equal(t, workflow.EventNodeEnd, res.Events[0].EventType)
	})

	t.Run("error status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			ok(w, map[string]any{"status": "error", "error": "boom"})
		})

		_, err := c.Invoke(context.Background(), "wf", RunRequest{ThreadID: "t-2"})
		var runErr *lgerrors.RunError
		require.ErrorAs(t, err, &runErr)
		assert.Equal(t, "t-2", runErr.ThreadID)
		assert.Equal(t, "boom", runErr.Message)
	})
}

func TestResume(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ResumeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "t-1", req.ThreadID)
		assert.Equal(t, "approved", req.HumanFeedback)
		ok(w, map[string]any{"status": "success", "output": "done"})
	})

	res, err := c.Resume(context.Background(), "wf", ResumeRequest{ThreadID: "t-1", HumanFeedback: "approved"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Output)
}

func TestState_Snapshot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "t-1", r.URL.Query().Get("thread_id"))
		ok(w, map[string]any{
			"state": map[string]any{
				"messages":  []any{map[string]any{"type": "HumanMessage", "content": "hi"}},
				"variables": map[string]any{"llm_1": map[string]any{"output": "x"}},
				"iteration": 2,
			},
			"next_nodes": []string{"human_1"},
		})
	})

	res, err := c.State(context.Background(), "wf", "t-1")
	require.NoError(t, err)

	snap := res.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, workflow.Message{Type: "HumanMessage", Content: "hi"}, snap.Messages[0])
	assert.Contains(t, snap.Variables, "llm_1")
	assert.EqualValues(t, 2, snap.Metadata["iteration"])
	assert.Equal(t, []string{"human_1"}, snap.NextNodes)
}

func TestNodeTypes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ok(w, []any{map[string]any{
			"type": "llm", "name": "LLM", "category": "core",
			"config_schema": map[string]any{"system_prompt": map[string]any{"type": "textarea", "label": "System Prompt"}},
			"has_input":     true, "has_output": true,
		}})
	})

	infos, err := c.NodeTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "llm", infos[0].Type)
}

func TestDelete_PathEscaped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/langgraph/a%2Fb", r.URL.RawPath)
		ok(w, map[string]any{"deleted": true})
	})
	require.NoError(t, c.Delete(context.Background(), "a/b"))
}

func TestToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		ok(w, []any{})
	}, WithToken("secret"))

	_, err := c.Templates(context.Background())
	require.NoError(t, err)
}

func TestStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req RunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"event_type\": \"workflow_start\", \"timestamp\": 1}\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: {\"event_type\": \"node_end\", \"node_id\": \"llm_1\",\n")
		fmt.Fprint(w, "data:  \"data\": \"out\"}\n\n")
		fmt.Fprint(w, "data: {\"event_type\": \"workflow_end\", \"timestamp\": 3}")
	})

	var got []workflow.StreamEvent
	err := c.Stream(context.Background(), "wf", RunRequest{}, func(ev workflow.StreamEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, workflow.EventWorkflowStart, got[0].EventType)
	assert.Equal(t, "llm_1", got[1].NodeID)
	assert.Equal(t, "out", got[1].Data)
	assert.Equal(t, workflow.EventWorkflowEnd, got[2].EventType)
}

func TestStream_CallbackStops(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("data: {\"event_type\": \"token\"}\n\n", 5))
	})

	stop := errors.New("stop")
	var n int
	err := c.Stream(context.Background(), "wf", RunRequest{}, func(workflow.StreamEvent) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, n)
}

func TestStream_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Workflow not found"}`)
	})

	err := c.Stream(context.Background(), "wf", RunRequest{}, func(workflow.StreamEvent) error { return nil })
	var httpErr *lgerrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.StatusCode)
}
