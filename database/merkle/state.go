// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package merkle provides an incremental Merkle accumulator for append-only
// lists of hashes.
//
// Unless the number of entries is a power of two, the accumulated tree
// consists of several perfect sub-trees. The state of building such a tree
// looks just like counting in binary: bit i of the entry count is set iff a
// perfect sub-tree of 2^i entries is pending.
//
//	entries  1  2   3  4   5  6   7  8   9 10  11 12  13      pending
//	          1-2    3-4    5-6    7-8   9-10  11-12            13
//	             1-2-3-4       5-6-7-8    9-10-11-12        9-10-11-12
//	                   1-2-3-4-5-6-7-8                   1-2-3-4-5-6-7-8
//
// The root of the list is obtained by folding the pending roots from the
// smallest to the largest sub-tree:
//
//	root = H(p_k, ... H(p_j, p_i))  for set bits i < j < ... < k
//
// with leaves hashed as keccak256(0x00 || entry) and inner nodes as
// keccak256(0x01 || left || right). The root of an empty list is zero.
package merkle

import (
	"github.com/0xsoniclabs/ledger/common"
)

const (
	leafTag = 0x00
	nodeTag = 0x01
)

// State is the immutable accumulator state of a list. The zero value is the
// state of an empty list.
type State struct {
	count   uint64
	pending []common.Hash
}

// Len returns the number of entries appended so far.
func (s State) Len() uint64 {
	return s.count
}

// Append returns the state after appending the given entry. The receiver
// remains unchanged.
func (s State) Append(entry common.Hash) State {
	pending := make([]common.Hash, len(s.pending), len(s.pending)+1)
	copy(pending, s.pending)

	cur := hashLeaf(entry)
	i := 0
	for ; s.count>>i&1 == 1; i++ {
		cur = hashNode(pending[i], cur)
		pending[i] = common.Hash{}
	}
	if i == len(pending) {
		pending = append(pending, cur)
	} else {
		pending[i] = cur
	}
	return State{count: s.count + 1, pending: pending}
}

// Root returns the root hash of the accumulated list.
func (s State) Root() common.Hash {
	var acc *common.Hash
	for i := range s.pending {
		if s.count>>i&1 == 0 {
			continue
		}
		next := s.pending[i]
		if acc != nil {
			next = hashNode(next, *acc)
		}
		acc = &next
	}
	if acc == nil {
		return common.Hash{}
	}
	return *acc
}

// Root computes the root hash of the given list of entries.
func Root(entries []common.Hash) common.Hash {
	var state State
	for _, entry := range entries {
		state = state.Append(entry)
	}
	return state.Root()
}

func hashLeaf(entry common.Hash) common.Hash {
	return common.Keccak256([]byte{leafTag}, entry[:])
}

func hashNode(left, right common.Hash) common.Hash {
	return common.Keccak256([]byte{nodeTag}, left[:], right[:])
}
