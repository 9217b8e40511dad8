package draft

import (
	"math"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps drafts in process memory.
// Drafts are lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[int]storedDraft // key -> revision -> draft
	closed bool
}

type storedDraft struct {
	data      []byte
	timestamp time.Time
}

// NewMemoryStore creates an empty in-memory draft store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[int]storedDraft),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(key string, revision int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.data[key] == nil {
		m.data[key] = make(map[int]storedDraft)
	}
	m.data[key][revision] = storedDraft{
		data:      slices.Clone(data),
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(key string, revision int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	d, ok := m.data[key][revision]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(d.data), nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(key string) ([]byte, Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, Info{}, ErrStoreClosed
	}
	revs := m.data[key]
	if len(revs) == 0 {
		return nil, Info{}, ErrNotFound
	}

	top := math.MinInt
	for rev := range revs {
		top = max(top, rev)
	}
	d := revs[top]
	return slices.Clone(d.data), Info{Key: key, Revision: top, Timestamp: d.timestamp, Size: int64(len(d.data))}, nil
}

// List implements Store.
func (m *MemoryStore) List(key string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	revs := m.data[key]
	infos := make([]Info, 0, len(revs))
	for rev, d := range revs {
		infos = append(infos, Info{Key: key, Revision: rev, Timestamp: d.timestamp, Size: int64(len(d.data))})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Revision < infos[j].Revision
	})
	return infos, nil
}

// Keys implements Store.
func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	keys := make([]string, 0, len(m.data))
	for k, revs := range m.data {
		if len(revs) > 0 {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string, revision int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if revs, ok := m.data[key]; ok {
		delete(revs, revision)
		if len(revs) == 0 {
			delete(m.data, key)
		}
	}
	return nil
}

// DeleteKey implements Store.
func (m *MemoryStore) DeleteKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data, key)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored revisions across all keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, revs := range m.data {
		count += len(revs)
	}
	return count
}

var _ Store = (*MemoryStore)(nil)
