// Package store holds the editor's single mutable state: the workflow graph
// being authored, the current selection and the state of the latest run.
//
// The store performs no I/O. Other components read snapshots and write
// through the narrow mutation methods below. Any change to nodes or edges
// marks the document dirty.
package store

import "github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"

// State is a point-in-time copy of the store contents.
type State struct {
	Workflow       workflow.Workflow
	SelectedNodeID string
	PanelOpen      bool
	Dirty          bool
	Run            workflow.RunState
}

// Store is the mutation contract shared by the canvas, panel and bridge.
// Implementations must be safe for concurrent use and must notify
// subscribers after every mutation, in the order the mutations were made.
type Store interface {
	// Snapshot returns a copy of the full state.
	Snapshot() State

	// Workflow returns a copy of the current document.
	Workflow() workflow.Workflow

	// Replace swaps in a whole document, clears selection and run state,
	// and marks the store clean. Used after loading.
	Replace(w workflow.Workflow)

	// SetWorkflowMeta sets the document identity. A changed name or
	// description marks the store dirty; assigning an ID alone does not.
	SetWorkflowMeta(id, name, description string)

	// SetNodes replaces the full node set and marks the store dirty.
	SetNodes(nodes []workflow.Node)

	// SetEdges replaces the full edge set and marks the store dirty.
	SetEdges(edges []workflow.Edge)

	// SetSelectedNodeID changes the selection. Empty clears it.
	// Never affects the dirty flag.
	SetSelectedNodeID(id string)

	// SetPanelOpen shows or hides the configuration panel.
	SetPanelOpen(open bool)

	// MarkClean clears the dirty flag after a successful save.
	MarkClean()

	// StartRun clears events and state from any previous run, records the
	// thread and sets the running flag.
	StartRun(threadID string)

	// SetRunning flips the running flag.
	SetRunning(running bool)

	// SetThreadID records the thread the backend assigned to the run.
	SetThreadID(threadID string)

	// SetActiveNode records the node currently executing. Empty clears it.
	SetActiveNode(nodeID string)

	// AddStreamEvent appends one event to the run log.
	AddStreamEvent(ev workflow.StreamEvent)

	// SetStateData stores the latest backend state snapshot.
	// The snapshot must not be modified after it is handed over.
	SetStateData(s *workflow.StateSnapshot)

	// Reset restores the initial empty state.
	Reset()

	// Subscribe registers fn to be called with a snapshot after each
	// mutation. fn runs synchronously on the mutating goroutine.
	Subscribe(fn func(State)) *Subscription
}

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	cancel func()
}

// Cancel stops further notifications. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}
