// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package trie implements a persistent authenticated dictionary mapping
// 32-byte keys to arbitrary values. The structure is a 256-ary trie in which
// leaves group up to 256 values sharing the same 31-byte stem, following the
// layout of a Verkle trie, with commitments replaced by keccak256 digests.
//
// Tries are immutable values. Set returns a new trie sharing all unmodified
// nodes with its origin, so older versions remain valid, unchanged snapshots
// that may be read concurrently.
//
// The shape of a trie, and thus its root hash, only depends on the set of
// stored key/value pairs, not on the order in which they were inserted.
package trie

import (
	"github.com/0xsoniclabs/ledger/common"
	"golang.org/x/exp/slices"
)

type Key [32]byte
type stem [31]byte

// Trie is an immutable authenticated key/value map. The zero value is an
// empty trie.
type Trie struct {
	root node
	size int
}

// Get returns the value stored for the given key and whether it is present.
func (t Trie) Get(key Key) ([]byte, bool) {
	if t.root == nil {
		return nil, false
	}
	return t.root.get(key, 0)
}

// Set returns a trie in which the given key is mapped to the given value.
// The receiver is not modified.
func (t Trie) Set(key Key, value []byte) Trie {
	value = slices.Clone(value)
	if value == nil {
		value = []byte{}
	}
	if t.root == nil {
		return Trie{root: newLeaf(key, value), size: 1}
	}
	root, added := t.root.set(key, 0, value)
	size := t.size
	if added {
		size++
	}
	return Trie{root: root, size: size}
}

// Len returns the number of keys stored in the trie.
func (t Trie) Len() int {
	return t.size
}

// Hash returns the root hash of the trie. The hash of an empty trie is the
// zero hash.
func (t Trie) Hash() common.Hash {
	if t.root == nil {
		return common.Hash{}
	}
	return t.root.hash()
}

// ForEach visits all key/value pairs in ascending key order until the visitor
// returns false. Visitors must not modify the passed values.
func (t Trie) ForEach(visit func(key Key, value []byte) bool) {
	if t.root == nil {
		return
	}
	t.root.forEach(visit)
}
