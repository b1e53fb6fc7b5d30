// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kv

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/0xsoniclabs/ledger/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	ErrClosed = common.ConstError("store closed")
)

// Entry is a single key/value pair written to a Store.
type Entry struct {
	Key   []byte
	Value []byte
}

// Store is the interface of the raw key/value stores backing the ledger
// database. Keys are ordered byte-wise.
type Store interface {
	// Write applies all given entries atomically. Later entries overwrite
	// earlier ones with the same key.
	Write(batch []Entry) error
	// Iterate visits all entries in ascending key order. Iteration stops at
	// the first error returned by the visitor, which is forwarded.
	Iterate(visit func(key, value []byte) error) error
	Close() error
}

// Backend selects the implementation of a Store.
type Backend string

const (
	Memory  Backend = "memory"
	LevelDb Backend = "leveldb"
	SQLite  Backend = "sqlite"
)

// Open opens a store of the given backend type in the given directory. The
// cache size is only used by LevelDB; zero selects a default derived from the
// available memory.
func Open(backend Backend, directory string, cacheSize int) (Store, error) {
	switch backend {
	case Memory, "":
		return NewMemoryStore(), nil
	case LevelDb:
		return OpenLevelDbStore(filepath.Join(directory, "leveldb"), cacheSize)
	case SQLite:
		return OpenSQLiteStore(filepath.Join(directory, "ledger.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported backend: %q", backend)
	}
}

// memoryStore is a simple in-memory implementation of Store used for testing
// and for ephemeral ledgers.
type memoryStore struct {
	mu     sync.RWMutex
	store  map[string][]byte
	closed bool
}

func NewMemoryStore() Store {
	return &memoryStore{store: make(map[string][]byte)}
}

func (s *memoryStore) Write(batch []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, entry := range batch {
		s.store[string(entry.Key)] = append([]byte(nil), entry.Value...)
	}
	return nil
}

func (s *memoryStore) Iterate(visit func(key, value []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	keys := maps.Keys(s.store)
	slices.Sort(keys)
	for _, key := range keys {
		if err := visit([]byte(key), s.store[key]); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
