package api

import (
	"encoding/json"
	"fmt"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/config"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// Document is the graph payload stored in a workflow record's data field.
type Document struct {
	Nodes    []Node            `json:"nodes" yaml:"nodes"`
	Edges    []Edge            `json:"edges" yaml:"edges"`
	Viewport workflow.Viewport `json:"viewport" yaml:"viewport"`
}

// Node is a node as stored by the backend. Data is kept loose because its
// shape differs between editor versions (group_params vs. config).
type Node struct {
	ID       string            `json:"id" yaml:"id"`
	Type     string            `json:"type" yaml:"type"`
	Position workflow.Position `json:"position" yaml:"position"`
	Data     map[string]any    `json:"data" yaml:"data"`
}

// Edge is an edge as stored by the backend.
type Edge struct {
	ID           string         `json:"id" yaml:"id"`
	Source       string         `json:"source" yaml:"source"`
	Target       string         `json:"target" yaml:"target"`
	SourceHandle string         `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string         `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	Type         string         `json:"type,omitempty" yaml:"type,omitempty"`
	Data         map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// CreateRequest is the body of POST /create.
type CreateRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Data        *Document `json:"data,omitempty"`
	SpaceID     *int      `json:"space_id,omitempty"`
}

// Created is returned by create and create-from-template.
type Created struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UpdateRequest is the body of PUT /{id}. Nil fields are left unchanged
// by the backend.
type UpdateRequest struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Data        *Document `json:"data,omitempty"`
}

// Record is a stored workflow.
type Record struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	RawData     json.RawMessage `json:"data"`
	Status      any             `json:"status"`
	CreateTime  string          `json:"create_time"`
	UpdateTime  string          `json:"update_time"`
}

// Document decodes the record's data. The backend may store it as an
// object, as a JSON-encoded string, or not at all.
func (r Record) Document() (Document, error) {
	var doc Document
	raw := r.RawData
	if len(raw) == 0 || string(raw) == "null" {
		return doc, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return doc, fmt.Errorf("workflow data: %w", err)
		}
		if s == "" {
			return doc, nil
		}
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("workflow data: %w", err)
	}
	return doc, nil
}

// RunRequest is the body of /run, /stream and /invoke.
type RunRequest struct {
	Inputs   map[string]any `json:"inputs"`
	ThreadID string         `json:"thread_id,omitempty"`
	Stream   bool           `json:"stream"`
}

// Run status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RunResponse is the result of a blocking run.
type RunResponse struct {
	Status   string                 `json:"status"`
	Output   any                    `json:"output"`
	ThreadID string                 `json:"thread_id"`
	Events   []workflow.StreamEvent `json:"events"`
	Error    string                 `json:"error,omitempty"`
}

// ResumeRequest is the body of /resume.
type ResumeRequest struct {
	ThreadID      string         `json:"thread_id"`
	HumanFeedback string         `json:"human_feedback"`
	NodeData      map[string]any `json:"node_data,omitempty"`
}

// ResumeResponse is the result of a resume.
type ResumeResponse struct {
	Status string `json:"status"`
	Output any    `json:"output"`
	Error  string `json:"error,omitempty"`
}

// StateResponse is the body of /state.
type StateResponse struct {
	State     map[string]any `json:"state"`
	NextNodes []string       `json:"next_nodes"`
}

// Snapshot maps the raw backend state onto a StateSnapshot. Top-level keys
// other than messages and variables are folded into Metadata.
func (s StateResponse) Snapshot() workflow.StateSnapshot {
	st := config.New(s.State)
	snap := workflow.StateSnapshot{
		Variables: map[string]any{},
		Metadata:  map[string]any{},
		NextNodes: s.NextNodes,
	}

	if msgs, ok := st.Any("messages", nil).([]any); ok {
		for _, m := range msgs {
			obj, ok := m.(map[string]any)
			if !ok {
				snap.Messages = append(snap.Messages, workflow.Message{Content: config.FormatValue(m)})
				continue
			}
			mc := config.New(obj)
			snap.Messages = append(snap.Messages, workflow.Message{
				Type:    mc.String("type", ""),
				Content: mc.Text("content", ""),
			})
		}
	}
	if vars, ok := st.Map("variables"); ok {
		snap.Variables = vars.Raw()
	}
	if meta, ok := st.Map("metadata"); ok {
		for k, v := range meta.Raw() {
			snap.Metadata[k] = v
		}
	}
	for _, k := range st.Keys() {
		switch k {
		case "messages", "variables", "metadata":
			continue
		}
		if _, taken := snap.Metadata[k]; !taken {
			snap.Metadata[k] = st.Any(k, nil)
		}
	}
	return snap
}

// Checkpoint is one entry of /history.
type Checkpoint struct {
	CheckpointID string   `json:"checkpoint_id"`
	ThreadID     string   `json:"thread_id"`
	NextNodes    []string `json:"next_nodes"`
	CreatedAt    string   `json:"created_at"`
}

// Template is a preset workflow from /templates.
type Template struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	NameZh        string   `json:"name_zh,omitempty" yaml:"name_zh,omitempty"`
	Description   string   `json:"description" yaml:"description"`
	DescriptionZh string   `json:"description_zh,omitempty" yaml:"description_zh,omitempty"`
	Data          Document `json:"data" yaml:"data"`
}
