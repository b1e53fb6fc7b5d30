// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package trie

import (
	"bytes"
	"sync/atomic"

	"github.com/0xsoniclabs/ledger/common"
	"golang.org/x/exp/slices"
)

const (
	leafTag  = 0x00
	innerTag = 0x01
)

// ---- Nodes ----

// node is an interface for trie nodes, which can be either inner or leaf
// nodes. Nodes are never modified once they are reachable from a trie.
type node interface {
	get(key Key, depth byte) ([]byte, bool)
	// set returns the node replacing the receiver and whether a new key was
	// added to the sub-tree.
	set(key Key, depth byte, value []byte) (node, bool)
	hash() common.Hash
	forEach(visit func(Key, []byte) bool) bool
}

// cachedHash lazily computes and retains the hash of an immutable node. It is
// safe for concurrent use; racing computations produce the same value.
type cachedHash struct {
	value atomic.Pointer[common.Hash]
}

func (c *cachedHash) get(compute func() common.Hash) common.Hash {
	if res := c.value.Load(); res != nil {
		return *res
	}
	res := compute()
	c.value.Store(&res)
	return res
}

// ---- Inner nodes ----

// inner is the type of an inner node in the trie. It contains an array of 256
// child nodes, indexed by one byte of the key.
type inner struct {
	children [256]node
	digest   cachedHash
}

func (i *inner) get(key Key, depth byte) ([]byte, bool) {
	next := i.children[key[depth]]
	if next == nil {
		return nil, false
	}
	return next.get(key, depth+1)
}

func (i *inner) set(key Key, depth byte, value []byte) (node, bool) {
	res := &inner{children: i.children}
	pos := key[depth]
	next := res.children[pos]
	if next == nil {
		res.children[pos] = newLeaf(key, value)
		return res, true
	}
	child, added := next.set(key, depth+1, value)
	if child == next {
		return i, false
	}
	res.children[pos] = child
	return res, added
}

func (i *inner) hash() common.Hash {
	return i.digest.get(func() common.Hash {
		return hashInner(i.childHashes(-1))
	})
}

// childHashes lists the hashes of all present children in ascending index
// order, omitting the child at position skip.
func (i *inner) childHashes(skip int) []ChildHash {
	res := make([]ChildHash, 0, 16)
	for j, child := range i.children {
		if child != nil && j != skip {
			res = append(res, ChildHash{Index: byte(j), Hash: child.hash()})
		}
	}
	return res
}

func (i *inner) forEach(visit func(Key, []byte) bool) bool {
	for _, child := range i.children {
		if child != nil && !child.forEach(visit) {
			return false
		}
	}
	return true
}

// ---- Leaf nodes ----

// leaf is the type of a leaf node in the trie. It contains a stem (the first
// 31 bytes of the key) and the values indexed by the last byte of the key.
// Only present suffixes are stored, in ascending order.
type leaf struct {
	stem     stem
	suffixes []byte
	values   [][]byte
	digest   cachedHash
}

// newLeaf creates a new leaf node holding a single value.
func newLeaf(key Key, value []byte) *leaf {
	return &leaf{
		stem:     stem(key[:31]),
		suffixes: []byte{key[31]},
		values:   [][]byte{value},
	}
}

func (l *leaf) get(key Key, _ byte) ([]byte, bool) {
	if stem(key[:31]) != l.stem {
		return nil, false
	}
	pos, found := slices.BinarySearch(l.suffixes, key[31])
	if !found {
		return nil, false
	}
	return l.values[pos], true
}

func (l *leaf) set(key Key, depth byte, value []byte) (node, bool) {
	if stem(key[:31]) == l.stem {
		pos, found := slices.BinarySearch(l.suffixes, key[31])
		if found {
			if bytes.Equal(l.values[pos], value) {
				return l, false
			}
			res := &leaf{
				stem:     l.stem,
				suffixes: l.suffixes,
				values:   slices.Clone(l.values),
			}
			res.values[pos] = value
			return res, false
		}
		return &leaf{
			stem:     l.stem,
			suffixes: slices.Insert(slices.Clone(l.suffixes), pos, key[31]),
			values:   slices.Insert(slices.Clone(l.values), pos, value),
		}, true
	}

	// This leaf needs to be split.
	res := &inner{}
	res.children[l.stem[depth]] = l
	return res.set(key, depth, value)
}

func (l *leaf) hash() common.Hash {
	return l.digest.get(func() common.Hash {
		return hashLeaf(l.stem, l.entries(-1))
	})
}

// entries lists the value hashes of the leaf in ascending suffix order,
// omitting the entry for suffix skip.
func (l *leaf) entries(skip int) []ChildHash {
	res := make([]ChildHash, 0, len(l.suffixes))
	for i, suffix := range l.suffixes {
		if int(suffix) == skip {
			continue
		}
		res = append(res, ChildHash{Index: suffix, Hash: common.Keccak256(l.values[i])})
	}
	return res
}

func (l *leaf) forEach(visit func(Key, []byte) bool) bool {
	var key Key
	copy(key[:], l.stem[:])
	for i, suffix := range l.suffixes {
		key[31] = suffix
		if !visit(key, l.values[i]) {
			return false
		}
	}
	return true
}

// ---- Hashing ----

// The hash of a leaf node is computed as
//
//	H = keccak256(0x00 || stem || s_1 || keccak256(v_1) || ... || s_n || keccak256(v_n))
//
// and the hash of an inner node as
//
//	H = keccak256(0x01 || i_1 || H_1 || ... || i_n || H_n)
//
// where s_j and i_j are the indexes of present values and children in
// ascending order.

func hashLeaf(stem stem, entries []ChildHash) common.Hash {
	buffer := make([]byte, 0, 1+len(stem)+len(entries)*(1+common.HashSize))
	buffer = append(buffer, leafTag)
	buffer = append(buffer, stem[:]...)
	return common.Keccak256(appendEntries(buffer, entries))
}

func hashInner(children []ChildHash) common.Hash {
	buffer := make([]byte, 0, 1+len(children)*(1+common.HashSize))
	buffer = append(buffer, innerTag)
	return common.Keccak256(appendEntries(buffer, children))
}

func appendEntries(buffer []byte, entries []ChildHash) []byte {
	for _, entry := range entries {
		buffer = append(buffer, entry.Index)
		buffer = append(buffer, entry.Hash[:]...)
	}
	return buffer
}
