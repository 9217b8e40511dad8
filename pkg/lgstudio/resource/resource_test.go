package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadsOnce(t *testing.T) {
	var calls atomic.Int32
	l := New(func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"a"}, nil
	})

	st, _ := l.State()
	assert.Equal(t, Idle, st)

	for i := 0; i < 3; i++ {
		v, err := l.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, v)
	}
	assert.Equal(t, int32(1), calls.Load())

	st, err := l.State()
	assert.Equal(t, Ready, st)
	assert.NoError(t, err)
}

func TestLoader_ConcurrentCallersShareFetch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	l := New(func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	})

	const n = 10
	var wg sync.WaitGroup
	results := make([]int, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := l.Load(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool {
		st, _ := l.State()
		return st == Loading
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestLoader_FailureThenRetry(t *testing.T) {
	fail := true
	l := New(func(context.Context) (string, error) {
		if fail {
			return "", errors.New("network down")
		}
		return "ok", nil
	})

	_, err := l.Load(context.Background())
	require.Error(t, err)
	st, stErr := l.State()
	assert.Equal(t, Failed, st)
	assert.EqualError(t, stErr, "network down")

	fail = false
	v, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestLoader_Invalidate(t *testing.T) {
	var calls atomic.Int32
	l := New(func(context.Context) (int32, error) {
		return calls.Add(1), nil
	})

	v, _ := l.Load(context.Background())
	assert.Equal(t, int32(1), v)

	l.Invalidate()
	st, _ := l.State()
	assert.Equal(t, Idle, st)

	v, _ = l.Load(context.Background())
	assert.Equal(t, int32(2), v)
}

func TestLoader_WaiterContextCancelled(t *testing.T) {
	release := make(chan struct{})
	l := New(func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	defer close(release)

	go func() { _, _ = l.Load(context.Background()) }()
	require.Eventually(t, func() bool {
		st, _ := l.State()
		return st == Loading
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_WaiterGetsItsOwnFetchResult(t *testing.T) {
	errFirst := errors.New("first fetch failed")
	release1 := make(chan struct{})
	release2 := make(chan struct{})
	started := make(chan struct{}, 2)
	var calls atomic.Int32
	l := New(func(context.Context) (int, error) {
		n := calls.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-release1
			return 0, errFirst
		}
		<-release2
		return 2, nil
	})

	go func() { _, _ = l.Load(context.Background()) }()
	<-started

	// Before the waiter reads its result, another caller starts a new
	// fetch and the loader goes back to Loading.
	secondDone := make(chan int, 1)
	woken = func() {
		go func() {
			v, _ := l.Load(context.Background())
			secondDone <- v
		}()
		<-started
	}
	defer func() { woken = nil }()

	waiterDone := make(chan error, 1)
	go func() {
		v, err := l.Load(context.Background())
		assert.Zero(t, v)
		waiterDone <- err
	}()
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.flight.waiters == 1
	}, time.Second, time.Millisecond)

	close(release1)
	assert.ErrorIs(t, <-waiterDone, errFirst)

	st, _ := l.State()
	assert.Equal(t, Loading, st)
	close(release2)
	assert.Equal(t, 2, <-secondDone)
	assert.Equal(t, int32(2), calls.Load())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(9).String())
}
