package store

import (
	"slices"
	"sync"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	state State

	subMu  sync.Mutex
	subs   []subscriber
	nextID uint64
}

type subscriber struct {
	id uint64
	fn func(State)
}

// NewMemoryStore creates a store holding an empty untitled document.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: initialState()}
}

func initialState() State {
	return State{Workflow: workflow.New()}
}

// Snapshot implements Store.
func (m *MemoryStore) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyLocked()
}

func (m *MemoryStore) copyLocked() State {
	out := m.state
	out.Workflow = m.state.Workflow.Clone()
	out.Run = m.state.Run.Clone()
	return out
}

// Workflow implements Store.
func (m *MemoryStore) Workflow() workflow.Workflow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Workflow.Clone()
}

// Replace implements Store.
func (m *MemoryStore) Replace(w workflow.Workflow) {
	m.update(func(s *State) {
		*s = initialState()
		s.Workflow = w.Clone()
		if s.Workflow.Name == "" {
			s.Workflow.Name = workflow.DefaultName
		}
	})
}

// SetWorkflowMeta implements Store.
func (m *MemoryStore) SetWorkflowMeta(id, name, description string) {
	m.update(func(s *State) {
		if s.Workflow.Name != name || s.Workflow.Description != description {
			s.Dirty = true
		}
		s.Workflow.ID = id
		s.Workflow.Name = name
		s.Workflow.Description = description
	})
}

// SetNodes implements Store.
func (m *MemoryStore) SetNodes(nodes []workflow.Node) {
	nodes = workflow.CloneNodes(nodes)
	m.update(func(s *State) {
		s.Workflow.Nodes = nodes
		s.Dirty = true
	})
}

// SetEdges implements Store.
func (m *MemoryStore) SetEdges(edges []workflow.Edge) {
	edges = workflow.CloneEdges(edges)
	m.update(func(s *State) {
		s.Workflow.Edges = edges
		s.Dirty = true
	})
}

// SetSelectedNodeID implements Store.
func (m *MemoryStore) SetSelectedNodeID(id string) {
	m.update(func(s *State) { s.SelectedNodeID = id })
}

// SetPanelOpen implements Store.
func (m *MemoryStore) SetPanelOpen(open bool) {
	m.update(func(s *State) { s.PanelOpen = open })
}

// MarkClean implements Store.
func (m *MemoryStore) MarkClean() {
	m.update(func(s *State) { s.Dirty = false })
}

// StartRun implements Store.
func (m *MemoryStore) StartRun(threadID string) {
	m.update(func(s *State) {
		s.Run = workflow.RunState{IsRunning: true, ThreadID: threadID}
	})
}

// SetRunning implements Store.
func (m *MemoryStore) SetRunning(running bool) {
	m.update(func(s *State) { s.Run.IsRunning = running })
}

// SetThreadID implements Store.
func (m *MemoryStore) SetThreadID(threadID string) {
	m.update(func(s *State) { s.Run.ThreadID = threadID })
}

// SetActiveNode implements Store.
func (m *MemoryStore) SetActiveNode(nodeID string) {
	m.update(func(s *State) { s.Run.ActiveNodeID = nodeID })
}

// AddStreamEvent implements Store.
func (m *MemoryStore) AddStreamEvent(ev workflow.StreamEvent) {
	m.update(func(s *State) {
		// Grow a fresh backing array so snapshots handed out earlier never
		// observe the append.
		s.Run.StreamEvents = append(slices.Clip(s.Run.StreamEvents), ev)
	})
}

// SetStateData implements Store.
func (m *MemoryStore) SetStateData(snap *workflow.StateSnapshot) {
	m.update(func(s *State) { s.Run.StateData = snap })
}

// Reset implements Store.
func (m *MemoryStore) Reset() {
	m.update(func(s *State) { *s = initialState() })
}

// Subscribe implements Store.
func (m *MemoryStore) Subscribe(fn func(State)) *Subscription {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return &Subscription{cancel: func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			m.subs = slices.DeleteFunc(m.subs, func(s subscriber) bool { return s.id == id })
		})
	}}
}

// update applies fn under the write lock, then notifies subscribers
// outside it so they may read the store.
func (m *MemoryStore) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	m.mu.Unlock()

	m.subMu.Lock()
	subs := slices.Clone(m.subs)
	m.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	snap := m.Snapshot()
	for _, s := range subs {
		s.fn(snap)
	}
}

var _ Store = (*MemoryStore)(nil)
