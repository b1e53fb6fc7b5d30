package kv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var _ Store = (*memoryStore)(nil)
var _ Store = (*levelDbStore)(nil)
var _ Store = (*sqliteStore)(nil)

func persistentBackends() []Backend {
	return []Backend{LevelDb, SQLite}
}

func allBackends() []Backend {
	return []Backend{Memory, LevelDb, SQLite}
}

func TestStore_CanWriteAndRead(t *testing.T) {
	for _, backend := range allBackends() {
		t.Run(string(backend), func(t *testing.T) {
			require := require.New(t)
			store, err := Open(backend, t.TempDir(), 0)
			require.NoError(err)

			require.NoError(store.Write([]Entry{
				{Key: []byte("key1"), Value: []byte("value1")},
				{Key: []byte("key2"), Value: []byte("value2")},
			}))

			require.Equal(map[string]string{
				"key1": "value1",
				"key2": "value2",
			}, readAll(t, store))

			require.NoError(store.Close())
		})
	}
}

func TestStore_NewStoreIsEmpty(t *testing.T) {
	for _, backend := range allBackends() {
		t.Run(string(backend), func(t *testing.T) {
			store, err := Open(backend, t.TempDir(), 0)
			require.NoError(t, err)
			require.Empty(t, readAll(t, store))
			require.NoError(t, store.Close())
		})
	}
}

func TestStore_LaterEntriesInBatchWin(t *testing.T) {
	for _, backend := range allBackends() {
		t.Run(string(backend), func(t *testing.T) {
			require := require.New(t)
			store, err := Open(backend, t.TempDir(), 0)
			require.NoError(err)

			require.NoError(store.Write([]Entry{
				{Key: []byte("key"), Value: []byte("first")},
				{Key: []byte("key"), Value: []byte("second")},
			}))
			require.Equal(map[string]string{"key": "second"}, readAll(t, store))
			require.NoError(store.Close())
		})
	}
}

func TestStore_IterationIsOrderedByKey(t *testing.T) {
	for _, backend := range allBackends() {
		t.Run(string(backend), func(t *testing.T) {
			require := require.New(t)
			store, err := Open(backend, t.TempDir(), 0)
			require.NoError(err)

			require.NoError(store.Write([]Entry{
				{Key: []byte{2, 0}, Value: []byte{3}},
				{Key: []byte{1, 255}, Value: []byte{2}},
				{Key: []byte{1}, Value: []byte{1}},
				{Key: []byte{255}, Value: []byte{4}},
			}))

			var keys [][]byte
			var values []byte
			require.NoError(store.Iterate(func(key, value []byte) error {
				keys = append(keys, key)
				values = append(values, value...)
				return nil
			}))
			require.Equal([][]byte{{1}, {1, 255}, {2, 0}, {255}}, keys)
			require.Equal([]byte{1, 2, 3, 4}, values)
			require.NoError(store.Close())
		})
	}
}

func TestStore_IterationForwardsVisitorErrors(t *testing.T) {
	for _, backend := range allBackends() {
		t.Run(string(backend), func(t *testing.T) {
			store, err := Open(backend, t.TempDir(), 0)
			require.NoError(t, err)
			require.NoError(t, store.Write([]Entry{{Key: []byte{1}, Value: []byte{1}}}))

			injected := fmt.Errorf("injected")
			err = store.Iterate(func(key, value []byte) error {
				return injected
			})
			require.ErrorIs(t, err, injected)
			require.NoError(t, store.Close())
		})
	}
}

func TestStore_CanKeepDataPersistent(t *testing.T) {
	for _, backend := range persistentBackends() {
		t.Run(string(backend), func(t *testing.T) {
			require := require.New(t)
			dir := t.TempDir()

			store, err := Open(backend, dir, 0)
			require.NoError(err)
			require.NoError(store.Write([]Entry{
				{Key: []byte("key1"), Value: []byte("value1")},
				{Key: []byte("key2"), Value: []byte("value2")},
			}))
			require.NoError(store.Close())

			store2, err := Open(backend, dir, 0)
			require.NoError(err)

			require.Equal(map[string]string{
				"key1": "value1",
				"key2": "value2",
			}, readAll(t, store2))

			require.NoError(store2.Close())
		})
	}
}

func TestMemoryStore_AccessAfterCloseFails(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())
	err := store.Iterate(func(key, value []byte) error { return nil })
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, store.Write(nil), ErrClosed)
}

func TestOpen_RejectsUnknownBackend(t *testing.T) {
	_, err := Open("unknown", t.TempDir(), 0)
	require.Error(t, err)
}

func TestDefaultCacheSize_IsWithinBounds(t *testing.T) {
	size := defaultCacheSize()
	require.GreaterOrEqual(t, size, minCacheSize)
	require.LessOrEqual(t, size, maxCacheSize)
}

func readAll(t *testing.T, store Store) map[string]string {
	t.Helper()
	res := map[string]string{}
	require.NoError(t, store.Iterate(func(key, value []byte) error {
		res[string(key)] = string(value)
		return nil
	}))
	return res
}
