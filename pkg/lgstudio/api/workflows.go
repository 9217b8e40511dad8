package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	lgerrors "github.com/randalmurphal/lgstudio/pkg/lgstudio/errors"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/nodetype"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

func workflowPath(id, action string) string {
	p := "/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

// Create stores a new workflow and returns its server-assigned ID.
func (c *Client) Create(ctx context.Context, req CreateRequest) (Created, error) {
	var out Created
	err := c.do(ctx, call{method: http.MethodPost, path: "/create", body: req}, &out)
	return out, err
}

// CreateFromTemplate instantiates a preset. An empty name keeps the
// template's name; a nil spaceID omits the space.
func (c *Client) CreateFromTemplate(ctx context.Context, templateID, name string, spaceID *int) (Created, error) {
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	if spaceID != nil {
		q.Set("space_id", strconv.Itoa(*spaceID))
	}
	var out Created
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/create-from-template/" + url.PathEscape(templateID),
		query:  q,
	}, &out)
	return out, err
}

// Get fetches one stored workflow.
func (c *Client) Get(ctx context.Context, id string) (Record, error) {
	var out Record
	err := c.do(ctx, call{method: http.MethodGet, path: workflowPath(id, ""), idempotent: true}, &out)
	return out, err
}

// Update overwrites the given fields of a stored workflow.
func (c *Client) Update(ctx context.Context, id string, req UpdateRequest) error {
	return c.do(ctx, call{method: http.MethodPut, path: workflowPath(id, ""), body: req, idempotent: true}, nil)
}

// Delete removes a stored workflow.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: workflowPath(id, ""), idempotent: true}, nil)
}

// Run executes a stored workflow to completion. A response whose status is
// "error" is returned as a *RunError alongside the decoded response.
func (c *Client) Run(ctx context.Context, id string, req RunRequest) (RunResponse, error) {
	return c.run(ctx, workflowPath(id, "run"), req)
}

// Invoke is the synchronous alias of Run kept by the backend for API users.
func (c *Client) Invoke(ctx context.Context, id string, req RunRequest) (RunResponse, error) {
	return c.run(ctx, workflowPath(id, "invoke"), req)
}

func (c *Client) run(ctx context.Context, path string, req RunRequest) (RunResponse, error) {
	req.Stream = false
	if req.Inputs == nil {
		req.Inputs = map[string]any{}
	}
	var out RunResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: path, body: req}, &out); err != nil {
		return out, err
	}
	if out.Status == StatusError {
		threadID := out.ThreadID
		if threadID == "" {
			threadID = req.ThreadID
		}
		return out, &lgerrors.RunError{ThreadID: threadID, Message: out.Error}
	}
	return out, nil
}

// Resume continues a paused thread with human feedback.
func (c *Client) Resume(ctx context.Context, id string, req ResumeRequest) (ResumeResponse, error) {
	var out ResumeResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: workflowPath(id, "resume"), body: req}, &out); err != nil {
		return out, err
	}
	if out.Status == StatusError {
		return out, &lgerrors.RunError{ThreadID: req.ThreadID, Message: out.Error}
	}
	return out, nil
}

// State fetches the latest state of a thread. An empty threadID asks for
// the backend's default thread.
func (c *Client) State(ctx context.Context, id, threadID string) (StateResponse, error) {
	var out StateResponse
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       workflowPath(id, "state"),
		query:      threadQuery(threadID),
		idempotent: true,
	}, &out)
	return out, err
}

// History lists the checkpoints of a thread, newest first.
func (c *Client) History(ctx context.Context, id, threadID string) ([]Checkpoint, error) {
	var out struct {
		History []Checkpoint `json:"history"`
	}
	err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       workflowPath(id, "history"),
		query:      threadQuery(threadID),
		idempotent: true,
	}, &out)
	return out.History, err
}

func threadQuery(threadID string) url.Values {
	if threadID == "" {
		return nil
	}
	return url.Values{"thread_id": {threadID}}
}

// NodeTypes fetches the backend's node catalog.
func (c *Client) NodeTypes(ctx context.Context) ([]nodetype.Info, error) {
	var out []nodetype.Info
	err := c.do(ctx, call{method: http.MethodGet, path: "/node-types", idempotent: true}, &out)
	return out, err
}

// Templates fetches the preset workflows.
func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	var out []Template
	err := c.do(ctx, call{method: http.MethodGet, path: "/templates", idempotent: true}, &out)
	return out, err
}

// Validate asks the backend to lint a document. Validation has no side
// effects so it is retried like a read.
func (c *Client) Validate(ctx context.Context, doc Document) (workflow.Report, error) {
	body := struct {
		Data Document `json:"data"`
	}{Data: doc}
	var out workflow.Report
	err := c.do(ctx, call{method: http.MethodPost, path: "/validate", body: body, idempotent: true}, &out)
	return out, err
}
