// Package resource loads a remote value once and shares it.
//
// A Loader moves through Idle, Loading and then Ready or Failed. Concurrent
// callers during Loading wait for the same fetch. A Failed loader fetches
// again on the next Load; a Ready one never does until Invalidate.
package resource

import (
	"context"
	"sync"
)

// State is the lifecycle state of a Loader.
type State int

// Loader states.
const (
	Idle State = iota
	Loading
	Ready
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchFunc produces the value.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Loader caches the result of a FetchFunc.
type Loader[T any] struct {
	fetch FetchFunc[T]

	mu     sync.Mutex
	state  State
	value  T
	err    error
	flight *flight[T]
}

// flight is one fetch. value and err are set before done is closed, so a
// waiter reads the outcome of the fetch it waited on even if a newer fetch
// has started since.
type flight[T any] struct {
	done    chan struct{}
	waiters int
	value   T
	err     error
}

// woken is called by a waiter once its flight completes. Tests use it.
var woken func()

// New creates an idle loader.
func New[T any](fetch FetchFunc[T]) *Loader[T] {
	return &Loader[T]{fetch: fetch}
}

// Load returns the cached value, fetching it first if needed.
// If ctx ends while waiting on another caller's fetch, Load returns
// ctx.Err() and the fetch carries on.
func (l *Loader[T]) Load(ctx context.Context) (T, error) {
	l.mu.Lock()
	switch l.state {
	case Ready:
		v := l.value
		l.mu.Unlock()
		return v, nil
	case Loading:
		f := l.flight
		f.waiters++
		l.mu.Unlock()
		select {
		case <-f.done:
			if woken != nil {
				woken()
			}
			return f.value, f.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	l.state = Loading
	l.err = nil
	f := &flight[T]{done: make(chan struct{})}
	l.flight = f
	l.mu.Unlock()

	v, err := l.fetch(ctx)

	l.mu.Lock()
	if err != nil {
		var zero T
		v = zero
		l.state = Failed
		l.err = err
	} else {
		l.state = Ready
		l.value = v
	}
	f.value, f.err = v, err
	close(f.done)
	l.mu.Unlock()

	return v, err
}

// State returns the current state and, when Failed, the last error.
func (l *Loader[T]) State() (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.err
}

// Invalidate drops a Ready or Failed result so the next Load fetches again.
// It has no effect while a fetch is in flight.
func (l *Loader[T]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Loading {
		return
	}
	var zero T
	l.state = Idle
	l.value = zero
	l.err = nil
}
