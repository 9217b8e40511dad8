package draft_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/draft"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) draft.Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) draft.Store { return draft.NewMemoryStore() },
		"sqlite": func(t *testing.T) draft.Store {
			s, err := draft.NewSQLiteStore(":memory:")
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			storeContractTest(t, factory)
		})
	}
}

func storeContractTest(t *testing.T, factory storeFactory) {
	t.Run("Save_and_Load", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Save("wf-1", 1, []byte(`{"a":1}`)))
		data, err := s.Load("wf-1", 1)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":1}`), data)
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		_, err := s.Load("missing", 1)
		assert.ErrorIs(t, err, draft.ErrNotFound)
		_, _, err = s.Latest("missing")
		assert.ErrorIs(t, err, draft.ErrNotFound)
	})

	t.Run("Save_Overwrite", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Save("wf-1", 1, []byte("first")))
		require.NoError(t, s.Save("wf-1", 1, []byte("second")))

		data, err := s.Load("wf-1", 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)
	})

	t.Run("Latest_And_List", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Save("wf-1", 2, []byte("bb")))
		require.NoError(t, s.Save("wf-1", 10, []byte("cccc")))
		require.NoError(t, s.Save("wf-1", 1, []byte("a")))
		require.NoError(t, s.Save("wf-2", 99, []byte("other")))

		data, info, err := s.Latest("wf-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("cccc"), data)
		assert.Equal(t, 10, info.Revision)
		assert.Equal(t, int64(4), info.Size)
		assert.False(t, info.Timestamp.IsZero())

		infos, err := s.List("wf-1")
		require.NoError(t, err)
		require.Len(t, infos, 3)
		assert.Equal(t, []int{1, 2, 10}, []int{infos[0].Revision, infos[1].Revision, infos[2].Revision})
		assert.Equal(t, "wf-1", infos[0].Key)

		empty, err := s.List("nope")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("Keys", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Save("b", 1, []byte("x")))
		require.NoError(t, s.Save("a", 1, []byte("x")))
		require.NoError(t, s.Save("a", 2, []byte("x")))

		keys, err := s.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Save("wf-1", 1, []byte("a")))
		require.NoError(t, s.Save("wf-1", 2, []byte("b")))
		require.NoError(t, s.Delete("wf-1", 1))
		require.NoError(t, s.Delete("wf-1", 42))

		_, err := s.Load("wf-1", 1)
		assert.ErrorIs(t, err, draft.ErrNotFound)
		_, err = s.Load("wf-1", 2)
		assert.NoError(t, err)

		require.NoError(t, s.DeleteKey("wf-1"))
		keys, err := s.Keys()
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Closed", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Close())

		assert.ErrorIs(t, s.Save("k", 1, nil), draft.ErrStoreClosed)
		_, err := s.Load("k", 1)
		assert.ErrorIs(t, err, draft.ErrStoreClosed)
		_, err = s.Keys()
		assert.ErrorIs(t, err, draft.ErrStoreClosed)
		assert.NoError(t, s.Close())
	})

	t.Run("Concurrent", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		const n = 20
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 1; i <= n; i++ {
			go func(rev int) {
				defer wg.Done()
				assert.NoError(t, s.Save("wf", rev, []byte("x")))
				_, _, _ = s.Latest("wf")
			}(i)
		}
		wg.Wait()

		infos, err := s.List("wf")
		require.NoError(t, err)
		assert.Len(t, infos, n)
	})
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")

	s1, err := draft.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save("wf-1", 3, []byte("persistent")))
	require.NoError(t, s1.Close())

	s2, err := draft.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	data, info, err := s2.Latest("wf-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("persistent"), data)
	assert.Equal(t, 3, info.Revision)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := draft.NewSQLiteStore("/nonexistent/path/drafts.db")
	assert.Error(t, err)
}
