// Package canvas turns editing gestures into graph mutations.
//
// Every operation reads the current graph from the store, computes the next
// full node or edge set, and writes it back. Nothing here blocks.
package canvas

import (
	"log/slog"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/nodetype"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/observability"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/store"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// EdgeType is the edge type written for every new connection.
const EdgeType = "cycleEdge"

// Connection is a completed connect gesture.
type Connection struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// Controller applies gestures to a store.
type Controller struct {
	store  store.Store
	logger *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for debug output. Nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller over s.
func New(s store.Store, opts ...Option) *Controller {
	c := &Controller{store: s}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying store.
func (c *Controller) Store() store.Store {
	return c.store
}

// newEdgeID is replaced in tests.
var newEdgeID = workflow.NewEdgeID

// Connect adds an edge between two existing nodes. It is a no-op when either
// end is empty or unknown.
//
// Edge IDs carry millisecond resolution, so connecting the same pair twice
// within one millisecond would repeat an ID. Connect refuses such an edge
// and reports false; retrying a moment later succeeds.
//
// The edge is flagged as a back edge when the target was inserted before the
// source. This only looks at node order, not reachability, so some cycles
// are not flagged and some flagged edges close no cycle.
func (c *Controller) Connect(conn Connection) (workflow.Edge, bool) {
	if conn.Source == "" || conn.Target == "" {
		return workflow.Edge{}, false
	}

	w := c.store.Workflow()
	src := workflow.NodeIndex(w.Nodes, conn.Source)
	dst := workflow.NodeIndex(w.Nodes, conn.Target)
	if src < 0 || dst < 0 {
		return workflow.Edge{}, false
	}

	id := newEdgeID(conn.Source, conn.Target)
	for _, e := range w.Edges {
		if e.ID == id {
			return workflow.Edge{}, false
		}
	}

	back := dst < src
	edge := workflow.Edge{
		ID:           id,
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
		Type:         EdgeType,
		IsBackEdge:   back,
		Data:         map[string]any{"back_edge": back},
	}
	c.store.SetEdges(append(w.Edges, edge))

	observability.LogConnect(c.logger, edge.ID, edge.Source, edge.Target, back)
	return edge, true
}

// Drop creates a node of the given kind at pos. An empty kind is a no-op.
// Kinds missing from the registry are still created; they simply have no
// configurable fields.
func (c *Controller) Drop(kind string, pos workflow.Position) (workflow.Node, bool) {
	if kind == "" {
		return workflow.Node{}, false
	}

	node := workflow.Node{
		ID:       workflow.NewNodeID(kind),
		Kind:     kind,
		Position: pos,
		Data: workflow.NodeData{
			Name:   nodetype.DisplayName(kind),
			Config: map[string]any{},
		},
	}
	w := c.store.Workflow()
	c.store.SetNodes(append(w.Nodes, node))

	observability.LogDrop(c.logger, node.ID, kind)
	return node, true
}

// DeleteNode removes a node and every edge touching it.
func (c *Controller) DeleteNode(id string) bool {
	return c.ApplyNodeChanges([]NodeChange{{Type: ChangeRemove, ID: id}}) > 0
}

// DeleteEdge removes one edge.
func (c *Controller) DeleteEdge(id string) bool {
	return c.ApplyEdgeChanges([]EdgeChange{{Type: ChangeRemove, ID: id}}) > 0
}

// UpdateNodeData replaces the data of exactly one node.
func (c *Controller) UpdateNodeData(id string, data workflow.NodeData) bool {
	w := c.store.Workflow()
	i := workflow.NodeIndex(w.Nodes, id)
	if i < 0 {
		return false
	}
	w.Nodes[i].Data = data.Clone()
	c.store.SetNodes(w.Nodes)
	return true
}

// SelectNode selects a node and opens the configuration panel for it.
func (c *Controller) SelectNode(id string) bool {
	w := c.store.Workflow()
	if workflow.NodeIndex(w.Nodes, id) < 0 {
		return false
	}
	c.store.SetSelectedNodeID(id)
	c.store.SetPanelOpen(true)
	return true
}

// PaneClick clears the selection and closes the panel.
func (c *Controller) PaneClick() {
	c.store.SetSelectedNodeID("")
	c.store.SetPanelOpen(false)
}
