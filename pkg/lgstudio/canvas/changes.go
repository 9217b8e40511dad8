package canvas

import (
	"slices"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// ChangeType is the kind of structural delta in a change batch.
type ChangeType string

// Change types.
const (
	ChangeMove   ChangeType = "position"
	ChangeRemove ChangeType = "remove"
	ChangeSelect ChangeType = "select"
)

// NodeChange is one delta to the node set. Position is used by moves and
// Selected by selects.
type NodeChange struct {
	Type     ChangeType
	ID       string
	Position workflow.Position
	Selected bool
}

// EdgeChange is one delta to the edge set. Moves do not apply to edges.
type EdgeChange struct {
	Type     ChangeType
	ID       string
	Selected bool
}

// ApplyNodeChanges applies a batch of deltas in order and returns how many
// matched a node. Changes for unknown IDs are skipped.
//
// Nodes and edges are written back once per batch, and only if a move or
// remove happened, so a selection-only batch leaves the dirty flag alone.
func (c *Controller) ApplyNodeChanges(changes []NodeChange) int {
	snap := c.store.Snapshot()
	nodes := snap.Workflow.Nodes
	edges := snap.Workflow.Edges
	selected := snap.SelectedNodeID

	var applied int
	var nodesChanged, edgesChanged bool
	for _, ch := range changes {
		i := workflow.NodeIndex(nodes, ch.ID)
		if i < 0 {
			continue
		}
		applied++

		switch ch.Type {
		case ChangeMove:
			nodes[i].Position = ch.Position
			nodesChanged = true
		case ChangeRemove:
			nodes = slices.Delete(nodes, i, i+1)
			nodesChanged = true
			before := len(edges)
			edges = slices.DeleteFunc(edges, func(e workflow.Edge) bool {
				return e.Source == ch.ID || e.Target == ch.ID
			})
			edgesChanged = edgesChanged || len(edges) != before
			if selected == ch.ID {
				selected = ""
			}
		case ChangeSelect:
			switch {
			case ch.Selected:
				selected = ch.ID
			case selected == ch.ID:
				selected = ""
			}
		}
	}

	if nodesChanged {
		c.store.SetNodes(nodes)
	}
	if edgesChanged {
		c.store.SetEdges(edges)
	}
	if selected != snap.SelectedNodeID {
		c.store.SetSelectedNodeID(selected)
		if selected == "" {
			c.store.SetPanelOpen(false)
		}
	}
	return applied
}

// ApplyEdgeChanges applies a batch of edge deltas in order and returns how
// many matched an edge. Edge selection is not tracked by the store, so
// select deltas only count as applied.
func (c *Controller) ApplyEdgeChanges(changes []EdgeChange) int {
	edges := c.store.Workflow().Edges

	var applied int
	var changed bool
	for _, ch := range changes {
		i := slices.IndexFunc(edges, func(e workflow.Edge) bool { return e.ID == ch.ID })
		if i < 0 {
			continue
		}
		applied++
		if ch.Type == ChangeRemove {
			edges = slices.Delete(edges, i, i+1)
			changed = true
		}
	}

	if changed {
		c.store.SetEdges(edges)
	}
	return applied
}
