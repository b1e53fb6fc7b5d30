// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package storage

import (
	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/database/kv"
	"github.com/0xsoniclabs/ledger/database/trie"
)

// View provides read access to the content of indexes. Implementations are
// Snapshot and *Fork.
type View interface {
	lookupMap(address) trie.Trie
	lookupList(address) list
}

// Snapshot is an immutable view of the committed state at the time it was
// taken. Snapshots are cheap to create and safe for concurrent use.
type Snapshot struct {
	state *state
}

func (s Snapshot) lookupMap(addr address) trie.Trie {
	return s.state.maps[addr]
}

func (s Snapshot) lookupList(addr address) list {
	return s.state.lists[addr]
}

// Fork is a mutable overlay on top of a parent view. A fork is not safe for
// concurrent use. Its parent must not be modified while the fork is alive.
type Fork struct {
	parent  View
	maps    map[address]trie.Trie
	lists   map[address]list
	changes []kv.Entry
	merged  bool
}

func newFork(parent View) *Fork {
	return &Fork{
		parent: parent,
		maps:   map[address]trie.Trie{},
		lists:  map[address]list{},
	}
}

// Fork creates a nested fork on top of this fork.
func (f *Fork) Fork() *Fork {
	return newFork(f)
}

// Merge applies the changes of a nested fork created by f.Fork to f.
func (f *Fork) Merge(child *Fork) error {
	if child.merged {
		return ErrForkMerged
	}
	if child.parent != View(f) {
		return ErrStaleFork
	}
	for addr, content := range child.maps {
		f.maps[addr] = content
	}
	for addr, content := range child.lists {
		f.lists[addr] = content
	}
	f.changes = append(f.changes, child.changes...)
	child.merged = true
	return nil
}

func (f *Fork) lookupMap(addr address) trie.Trie {
	if content, found := f.maps[addr]; found {
		return content
	}
	return f.parent.lookupMap(addr)
}

func (f *Fork) lookupList(addr address) list {
	if content, found := f.lists[addr]; found {
		return content
	}
	return f.parent.lookupList(addr)
}

func (f *Fork) put(addr address, key trie.Key, value []byte) {
	f.checkActive()
	if value == nil {
		value = []byte{}
	}
	f.maps[addr] = f.lookupMap(addr).Set(key, value)
	f.changes = append(f.changes, kv.Entry{
		Key:   addr.key(key[:]),
		Value: append([]byte{}, value...),
	})
}

func (f *Fork) append(addr address, entry common.Hash) uint64 {
	f.checkActive()
	content := f.lookupList(addr)
	index := content.merkle.Len()
	key := listKey(index)
	f.lists[addr] = content.append(entry)
	f.changes = append(f.changes, kv.Entry{
		Key:   addr.key(key[24:]),
		Value: append([]byte{}, entry[:]...),
	})
	return index
}

func (f *Fork) checkActive() {
	if f.merged {
		panic("storage: modification of a merged fork")
	}
}

// asFork returns the given view as a fork, panicking if the view is read-only.
func asFork(view View) *Fork {
	fork, ok := view.(*Fork)
	if !ok {
		panic("storage: modification through a read-only view")
	}
	return fork
}
