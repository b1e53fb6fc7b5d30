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
	"github.com/0xsoniclabs/ledger/database/merkle"
	"github.com/0xsoniclabs/ledger/database/trie"
)

// MapIndex is a map from 32-byte keys to arbitrary values. Modifications
// require the index to be opened on a *Fork and panic otherwise.
type MapIndex struct {
	view View
	addr address
}

func NewMapIndex(name string, view View) *MapIndex {
	return &MapIndex{view: view, addr: newAddress(mapKind, name, nil)}
}

func (m *MapIndex) Get(key trie.Key) ([]byte, bool) {
	return m.content().Get(key)
}

func (m *MapIndex) Contains(key trie.Key) bool {
	_, found := m.Get(key)
	return found
}

// Put sets the value of the given key, replacing any previous value.
func (m *MapIndex) Put(key trie.Key, value []byte) {
	asFork(m.view).put(m.addr, key, value)
}

func (m *MapIndex) Len() int {
	return m.content().Len()
}

// Iterate visits all entries in ascending key order until visit returns false.
func (m *MapIndex) Iterate(visit func(key trie.Key, value []byte) bool) {
	m.content().ForEach(visit)
}

func (m *MapIndex) content() trie.Trie {
	return m.view.lookupMap(m.addr)
}

// ProofMapIndex is a MapIndex whose content is summarized by a root hash
// depending only on the set of stored entries.
type ProofMapIndex struct {
	MapIndex
}

func NewProofMapIndex(name string, view View) *ProofMapIndex {
	return &ProofMapIndex{MapIndex{view: view, addr: newAddress(mapKind, name, nil)}}
}

// RootHash returns the root of the index, the zero hash if it is empty.
func (m *ProofMapIndex) RootHash() common.Hash {
	return m.content().Hash()
}

// Proof creates a proof of the presence or absence of the given key which
// can be verified against RootHash.
func (m *ProofMapIndex) Proof(key trie.Key) trie.Proof {
	return m.content().CreateProof(key)
}

// ProofListIndex is an append-only list of hashes summarized by a Merkle root.
// Lists of the same family share a name and are told apart by a family key.
type ProofListIndex struct {
	view View
	addr address
}

func NewProofListIndex(name string, view View) *ProofListIndex {
	return &ProofListIndex{view: view, addr: newAddress(listKind, name, nil)}
}

func NewProofListIndexInFamily(name string, family [FamilyKeySize]byte, view View) *ProofListIndex {
	return &ProofListIndex{view: view, addr: newAddress(listFamilyKind, name, &family)}
}

func (l *ProofListIndex) Len() uint64 {
	return l.content().merkle.Len()
}

func (l *ProofListIndex) Get(index uint64) (common.Hash, bool) {
	value, found := l.content().entries.Get(listKey(index))
	if !found {
		return common.Hash{}, false
	}
	return common.Hash(value), true
}

// Append adds an entry to the end of the list and returns its index.
func (l *ProofListIndex) Append(entry common.Hash) uint64 {
	return asFork(l.view).append(l.addr, entry)
}

// RootHash returns the Merkle root of the list, the zero hash if it is empty.
func (l *ProofListIndex) RootHash() common.Hash {
	return l.content().merkle.Root()
}

// Iterate visits all entries in list order until visit returns false.
func (l *ProofListIndex) Iterate(visit func(index uint64, entry common.Hash) bool) {
	var index uint64
	l.content().entries.ForEach(func(_ trie.Key, value []byte) bool {
		res := visit(index, common.Hash(value))
		index++
		return res
	})
}

// Entries returns all entries of the list.
func (l *ProofListIndex) Entries() []common.Hash {
	res := make([]common.Hash, 0, l.Len())
	l.Iterate(func(_ uint64, entry common.Hash) bool {
		res = append(res, entry)
		return true
	})
	return res
}

// Proof creates a proof for the entry at the given index which can be
// verified against RootHash.
func (l *ProofListIndex) Proof(index uint64) (merkle.Proof, error) {
	return merkle.CreateProof(l.Entries(), index)
}

func (l *ProofListIndex) content() list {
	return l.view.lookupList(l.addr)
}

// Entry is a single optional value stored under a name.
type Entry struct {
	index MapIndex
}

func NewEntry(name string, view View) *Entry {
	return &Entry{MapIndex{view: view, addr: newAddress(mapKind, name, nil)}}
}

func (e *Entry) Get() ([]byte, bool) {
	return e.index.Get(trie.Key{})
}

func (e *Entry) Set(value []byte) {
	e.index.Put(trie.Key{}, value)
}
