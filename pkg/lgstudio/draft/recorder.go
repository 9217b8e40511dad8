package draft

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/bridge"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/observability"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/store"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// DefaultKeep is how many revisions a Recorder keeps per key.
const DefaultKeep = 20

// unsavedPrefix marks session keys of workflows without a backend ID.
const unsavedPrefix = "unsaved-"

// Recorder writes drafts of one editing session.
type Recorder struct {
	drafts  Store
	logger  *slog.Logger
	keep    int
	session string

	mu        sync.Mutex
	revisions map[string]int
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithKeep sets how many revisions are kept per key. Zero or less keeps all.
func WithKeep(n int) RecorderOption {
	return func(r *Recorder) { r.keep = n }
}

// WithLogger sets the logger. Nil disables logging.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l }
}

// WithSessionKey sets the key used for workflows that have no ID yet.
func WithSessionKey(key string) RecorderOption {
	return func(r *Recorder) { r.session = key }
}

// NewRecorder creates a recorder writing to drafts.
func NewRecorder(drafts Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		drafts:    drafts,
		keep:      DefaultKeep,
		session:   unsavedPrefix + uuid.NewString(),
		revisions: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// KeyFor returns the draft key of w.
func (r *Recorder) KeyFor(w workflow.Workflow) string {
	if w.ID != "" {
		return w.ID
	}
	return r.session
}

// Record stores w as the next revision of its key and prunes old ones.
func (r *Recorder) Record(w workflow.Workflow) (Info, error) {
	key := r.KeyFor(w)

	r.mu.Lock()
	defer r.mu.Unlock()

	rev, err := r.nextRevision(key)
	if err != nil {
		return Info{}, err
	}

	d := Draft{
		Version:   Version,
		Key:       key,
		Revision:  rev,
		Timestamp: time.Now().UTC(),
		File:      bridge.ToFile(w),
	}
	data, err := d.Marshal()
	if err != nil {
		return Info{}, fmt.Errorf("encode draft: %w", err)
	}
	if err := r.drafts.Save(key, rev, data); err != nil {
		return Info{}, err
	}
	r.revisions[key] = rev
	observability.LogDraft(r.logger, key, rev, len(data))

	if r.keep > 0 && rev > r.keep {
		if err := r.prune(key, rev-r.keep); err != nil {
			return Info{}, err
		}
	}
	return Info{Key: key, Revision: rev, Timestamp: d.Timestamp, Size: int64(len(data))}, nil
}

// nextRevision continues after whatever an earlier session left behind.
func (r *Recorder) nextRevision(key string) (int, error) {
	if rev, ok := r.revisions[key]; ok {
		return rev + 1, nil
	}
	_, info, err := r.drafts.Latest(key)
	switch {
	case errors.Is(err, ErrNotFound):
		return 1, nil
	case err != nil:
		return 0, err
	}
	return info.Revision + 1, nil
}

// prune drops every revision of key at or below upTo.
func (r *Recorder) prune(key string, upTo int) error {
	infos, err := r.drafts.List(key)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.Revision > upTo {
			break
		}
		if err := r.drafts.Delete(key, info.Revision); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops every draft of w, including the session drafts written
// before it was first saved.
func (r *Recorder) Discard(w workflow.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := []string{r.session}
	if w.ID != "" {
		keys = append(keys, w.ID)
	}
	var errs []error
	for _, k := range keys {
		delete(r.revisions, k)
		errs = append(errs, r.drafts.DeleteKey(k))
	}
	return errors.Join(errs...)
}

// Watch records a draft whenever the graph of a dirty s changes and
// discards the drafts once s is clean again. Selection and run updates do
// not produce drafts. Cancel the subscription to stop.
func (r *Recorder) Watch(s store.Store) *store.Subscription {
	var mu sync.Mutex
	var pending bool
	var last workflow.Workflow

	return s.Subscribe(func(st store.State) {
		mu.Lock()
		defer mu.Unlock()

		if st.Dirty {
			if pending && reflect.DeepEqual(last, st.Workflow) {
				return
			}
			last = st.Workflow
			if _, err := r.Record(st.Workflow); err != nil && r.logger != nil {
				r.logger.Warn("draft save failed", slog.String("error", err.Error()))
			}
			pending = true
			return
		}
		if pending {
			pending = false
			if err := r.Discard(st.Workflow); err != nil && r.logger != nil {
				r.logger.Warn("draft discard failed", slog.String("error", err.Error()))
			}
		}
	})
}

// Restore returns the most recent draft stored under key.
func Restore(drafts Store, key string) (workflow.Workflow, Info, error) {
	data, info, err := drafts.Latest(key)
	if err != nil {
		return workflow.Workflow{}, Info{}, err
	}
	d, err := Unmarshal(data)
	if err != nil {
		return workflow.Workflow{}, Info{}, fmt.Errorf("decode draft %s@%d: %w", key, info.Revision, err)
	}
	return d.File.Workflow(), info, nil
}
