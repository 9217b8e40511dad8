// Package workflow defines the authored workflow graph: nodes, edges and the
// ephemeral run state reported by the execution backend.
package workflow

import (
	"maps"
	"slices"
)

// DefaultName is the name given to a workflow that has not been named yet.
const DefaultName = "Untitled"

// Position is a point in canvas space.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Viewport is the canvas pan/zoom persisted alongside the graph.
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// DefaultViewport is written on every save.
var DefaultViewport = Viewport{X: 0, Y: 0, Zoom: 1}

// NodeData is the type-specific configuration bag of a node.
//
// Config holds the registry-declared fields. Extra carries any other fields
// the backend stored on the node so they survive a load/save round trip.
type NodeData struct {
	Name        string
	Description string
	Config      map[string]any
	Extra       map[string]any
}

// Clone returns a deep-enough copy: the maps are copied, values are shared.
func (d NodeData) Clone() NodeData {
	out := NodeData{Name: d.Name, Description: d.Description}
	if d.Config != nil {
		out.Config = maps.Clone(d.Config)
	}
	if d.Extra != nil {
		out.Extra = maps.Clone(d.Extra)
	}
	return out
}

// Node is one workflow step. Kind is fixed at creation.
type Node struct {
	ID       string
	Kind     string
	Position Position
	Data     NodeData
}

// Edge is a directed transition between two nodes.
//
// IsBackEdge is a rendering hint computed once when the edge is created.
// The backend decides true cycle semantics on its own.
type Edge struct {
	ID           string
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
	Type         string
	IsBackEdge   bool
	Data         map[string]any
}

// Workflow is the authored artifact. ID is empty for an unsaved draft.
type Workflow struct {
	ID          string
	Name        string
	Description string
	Nodes       []Node
	Edges       []Edge
	Viewport    Viewport
}

// New returns an empty, unsaved workflow.
func New() Workflow {
	return Workflow{Name: DefaultName, Viewport: DefaultViewport}
}

// Clone copies the node and edge slices so callers can mutate the result.
func (w Workflow) Clone() Workflow {
	out := w
	out.Nodes = CloneNodes(w.Nodes)
	out.Edges = CloneEdges(w.Edges)
	return out
}

// CloneNodes copies a node slice including each node's data maps.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		n.Data = n.Data.Clone()
		out[i] = n
	}
	return out
}

// CloneEdges copies an edge slice including each edge's data map.
func CloneEdges(edges []Edge) []Edge {
	if edges == nil {
		return nil
	}
	out := make([]Edge, len(edges))
	for i, e := range edges {
		if e.Data != nil {
			e.Data = maps.Clone(e.Data)
		}
		out[i] = e
	}
	return out
}

// NodeIndex returns the position of the node with the given ID, or -1.
func NodeIndex(nodes []Node, id string) int {
	return slices.IndexFunc(nodes, func(n Node) bool { return n.ID == id })
}

// FindNode returns the node with the given ID.
func FindNode(nodes []Node, id string) (Node, bool) {
	i := NodeIndex(nodes, id)
	if i < 0 {
		return Node{}, false
	}
	return nodes[i], true
}
