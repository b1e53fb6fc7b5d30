// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package storage provides named, typed indexes on top of a raw key/value
// store. Authenticated indexes (proof maps and proof lists) expose root
// hashes summarizing their content.
//
// All reads go through a View. A Snapshot is an immutable point-in-time view
// of the committed state and may be used concurrently. A Fork is a mutable
// copy-on-write overlay on top of a snapshot or of another fork. Changes
// collected in a fork become visible to others only when it is merged into
// its parent, and become durable when the root fork is merged into the
// Database. Dropping a fork discards all its changes.
package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/database/kv"
	"github.com/0xsoniclabs/ledger/database/merkle"
	"github.com/0xsoniclabs/ledger/database/trie"
	"golang.org/x/exp/maps"
)

const (
	ErrStaleFork    = common.ConstError("fork is not based on the current state")
	ErrNestedFork   = common.ConstError("nested forks must be merged into their parent")
	ErrForkMerged   = common.ConstError("fork has already been merged")
	ErrCorruptStore = common.ConstError("corrupted store content")
)

// Database is the committed state of all indexes, kept in memory and
// persisted in a kv.Store.
type Database struct {
	store kv.Store
	mu    sync.RWMutex
	state *state
}

// state is an immutable set of index contents.
type state struct {
	maps  map[address]trie.Trie
	lists map[address]list
}

// list is the content of a proof list: its entries and Merkle accumulator.
type list struct {
	entries trie.Trie
	merkle  merkle.State
}

// Open loads the content of the given store. The database takes ownership of
// the store and closes it on Close.
func Open(store kv.Store) (*Database, error) {
	st := &state{
		maps:  map[address]trie.Trie{},
		lists: map[address]list{},
	}
	err := store.Iterate(func(key, value []byte) error {
		addr, item, err := splitKey(key)
		if err != nil {
			return err
		}
		switch addr.kind() {
		case mapKind:
			if len(item) != len(trie.Key{}) {
				return fmt.Errorf("%w: invalid map key length %d", ErrCorruptStore, len(item))
			}
			st.maps[addr] = st.maps[addr].Set(trie.Key(item), value)
		case listKind, listFamilyKind:
			if len(item) != 8 || len(value) != common.HashSize {
				return fmt.Errorf("%w: invalid list entry", ErrCorruptStore)
			}
			l := st.lists[addr]
			if index := binary.BigEndian.Uint64(item); index != l.merkle.Len() {
				return fmt.Errorf("%w: list entry %d missing", ErrCorruptStore, l.merkle.Len())
			}
			st.lists[addr] = l.append(common.Hash(value))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load database: %w", err)
	}
	return &Database{store: store, state: st}, nil
}

// Snapshot returns a read-only view of the current committed state.
func (db *Database) Snapshot() Snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return Snapshot{state: db.state}
}

// Fork creates a mutable fork on top of the current committed state.
func (db *Database) Fork() *Fork {
	return newFork(db.Snapshot())
}

// Merge persists the changes of the given fork and makes them the new
// committed state. Only forks created by this database's Fork method and
// based on the current state can be merged.
func (db *Database) Merge(fork *Fork) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if fork.merged {
		return ErrForkMerged
	}
	base, ok := fork.parent.(Snapshot)
	if !ok {
		return ErrNestedFork
	}
	if base.state != db.state {
		return ErrStaleFork
	}
	if len(fork.changes) > 0 {
		if err := db.store.Write(fork.changes); err != nil {
			return fmt.Errorf("failed to persist changes: %w", err)
		}
	}
	next := &state{
		maps:  maps.Clone(db.state.maps),
		lists: maps.Clone(db.state.lists),
	}
	for addr, content := range fork.maps {
		next.maps[addr] = content
	}
	for addr, content := range fork.lists {
		next.lists[addr] = content
	}
	db.state = next
	fork.merged = true
	return nil
}

// Close closes the underlying store.
func (db *Database) Close() error {
	return db.store.Close()
}

func (l list) append(entry common.Hash) list {
	return list{
		entries: l.entries.Set(listKey(l.merkle.Len()), entry[:]),
		merkle:  l.merkle.Append(entry),
	}
}

func listKey(index uint64) trie.Key {
	var key trie.Key
	binary.BigEndian.PutUint64(key[24:], index)
	return key
}
