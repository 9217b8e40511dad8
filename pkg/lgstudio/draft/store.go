// Package draft keeps local autosaves of workflows between backend saves.
//
// Drafts are keyed by (key, revision). The key is the workflow's backend ID,
// or a generated session key for a workflow that has never been saved.
// Revisions increase per key; the highest one is the most recent draft.
package draft

import (
	"errors"
	"time"
)

// Store persists drafts.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a draft revision. Overwrites an existing (key, revision).
	Save(key string, revision int, data []byte) error

	// Load retrieves one revision.
	// Returns ErrNotFound if it doesn't exist.
	Load(key string, revision int) ([]byte, error)

	// Latest retrieves the highest revision stored for key.
	// Returns ErrNotFound if key has no drafts.
	Latest(key string) ([]byte, Info, error)

	// List returns the revisions of key in ascending order.
	// Returns an empty slice (not error) if key has no drafts.
	List(key string) ([]Info, error)

	// Keys returns every key with at least one draft, sorted.
	Keys() ([]string, error)

	// Delete removes one revision.
	// Returns nil if it doesn't exist.
	Delete(key string, revision int) error

	// DeleteKey removes every revision of key.
	DeleteKey(key string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info describes a stored revision without its data.
type Info struct {
	Key       string
	Revision  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for draft operations.
var (
	// ErrNotFound indicates a draft doesn't exist.
	ErrNotFound = errors.New("draft not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("draft store closed")
)
