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
	"fmt"

	"github.com/0xsoniclabs/ledger/common"
	"golang.org/x/exp/slices"
)

// ErrInvalidProof is returned when a proof does not authenticate the claimed
// value against the given root hash.
const ErrInvalidProof = common.ConstError("invalid proof")

// ChildHash is an indexed hash of a child node or of a leaf value.
type ChildHash struct {
	Index byte
	Hash  common.Hash
}

// Proof is a witness for the presence or absence of a single key in a trie.
// It lists, for every inner node on the path from the root towards the key,
// the hashes of all children not on the path, followed by the leaf reached at
// the end of the path, if any.
type Proof struct {
	Levels [][]ChildHash
	Leaf   *LeafProof
}

// LeafProof summarizes the leaf node reached by a proof. If the stem matches
// the key, the entry for the key itself is omitted.
type LeafProof struct {
	Stem    [31]byte
	Entries []ChildHash
}

// CreateProof creates a witness proof for the given key. The proof can be
// used to verify either the value stored for the key or its absence.
func (t Trie) CreateProof(key Key) Proof {
	var proof Proof
	cur := t.root
	for depth := 0; cur != nil; depth++ {
		switch n := cur.(type) {
		case *inner:
			proof.Levels = append(proof.Levels, n.childHashes(int(key[depth])))
			cur = n.children[key[depth]]
		case *leaf:
			skip := -1
			if n.stem == stem(key[:31]) {
				skip = int(key[31])
			}
			proof.Leaf = &LeafProof{
				Stem:    n.stem,
				Entries: n.entries(skip),
			}
			cur = nil
		default:
			panic(fmt.Sprintf("unsupported node type %T", n))
		}
	}
	return proof
}

// Verify checks that the proof authenticates the given value for the given
// key against the given root. A nil value claims that the key is absent.
func (p Proof) Verify(root common.Hash, key Key, value []byte) error {
	if len(p.Levels) > len(stem{}) {
		return fmt.Errorf("%w: path too long", ErrInvalidProof)
	}

	var current *common.Hash
	if p.Leaf != nil {
		entries := slices.Clone(p.Leaf.Entries)
		if stem(key[:31]) == p.Leaf.Stem {
			if value != nil {
				var err error
				entries, err = insert(entries, ChildHash{Index: key[31], Hash: common.Keccak256(value)})
				if err != nil {
					return err
				}
			}
		} else if value != nil {
			return fmt.Errorf("%w: key not covered by leaf", ErrInvalidProof)
		}
		if len(entries) == 0 || !isStrictlyOrdered(entries) {
			return fmt.Errorf("%w: malformed leaf", ErrInvalidProof)
		}
		hash := hashLeaf(p.Leaf.Stem, entries)
		current = &hash
	} else if value != nil {
		return fmt.Errorf("%w: missing leaf", ErrInvalidProof)
	}

	for depth := len(p.Levels) - 1; depth >= 0; depth-- {
		children := slices.Clone(p.Levels[depth])
		if current != nil {
			var err error
			children, err = insert(children, ChildHash{Index: key[depth], Hash: *current})
			if err != nil {
				return err
			}
		}
		if !isStrictlyOrdered(children) {
			return fmt.Errorf("%w: malformed inner node", ErrInvalidProof)
		}
		hash := hashInner(children)
		current = &hash
	}

	var got common.Hash
	if current != nil {
		got = *current
	}
	if got != root {
		return fmt.Errorf("%w: root hash mismatch", ErrInvalidProof)
	}
	return nil
}

func insert(list []ChildHash, entry ChildHash) ([]ChildHash, error) {
	pos, found := slices.BinarySearchFunc(list, entry, func(a, b ChildHash) int {
		return int(a.Index) - int(b.Index)
	})
	if found {
		return nil, fmt.Errorf("%w: duplicate index %d", ErrInvalidProof, entry.Index)
	}
	return slices.Insert(list, pos, entry), nil
}

func isStrictlyOrdered(list []ChildHash) bool {
	for i := 1; i < len(list); i++ {
		if list[i-1].Index >= list[i].Index {
			return false
		}
	}
	return true
}
