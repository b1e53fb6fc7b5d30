// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package merkle

import (
	"fmt"
	"math/bits"

	"github.com/0xsoniclabs/ledger/common"
)

// ErrInvalidProof is returned when an inclusion proof does not match the
// claimed entry and root.
const ErrInvalidProof = common.ConstError("invalid list proof")

// Proof is an inclusion proof for a single entry of a list.
type Proof struct {
	Index uint64
	Count uint64
	// Path lists the siblings from the leaf up to the root of the perfect
	// sub-tree containing the entry.
	Path []common.Hash
	// Lower is the folded root of all smaller sub-trees, if any.
	Lower *common.Hash
	// Higher lists the roots of all larger sub-trees in ascending size.
	Higher []common.Hash
}

// CreateProof creates an inclusion proof for the entry at the given index.
func CreateProof(entries []common.Hash, index uint64) (Proof, error) {
	count := uint64(len(entries))
	if index >= count {
		return Proof{}, fmt.Errorf("index %d out of range, list has %d entries", index, count)
	}

	peaks := layout(count)
	target := peaks.find(index)
	proof := Proof{Index: index, Count: count}
	p := peaks[target]
	proof.Path = subtreePath(entries[p.offset:p.offset+(1<<p.height)], index-p.offset)

	// Fold all smaller peaks, which are positioned after the target.
	var lower *common.Hash
	for i := len(peaks) - 1; i > target; i-- {
		q := peaks[i]
		next := subtreeRoot(entries[q.offset : q.offset+(1<<q.height)])
		if lower != nil {
			next = hashNode(next, *lower)
		}
		lower = &next
	}
	proof.Lower = lower

	for i := target - 1; i >= 0; i-- {
		q := peaks[i]
		proof.Higher = append(proof.Higher, subtreeRoot(entries[q.offset:q.offset+(1<<q.height)]))
	}
	return proof, nil
}

// Verify checks that the proof authenticates the given entry against the
// given list root.
func (p Proof) Verify(root common.Hash, entry common.Hash) error {
	if p.Index >= p.Count {
		return fmt.Errorf("%w: index out of range", ErrInvalidProof)
	}
	peaks := layout(p.Count)
	target := peaks.find(p.Index)
	if len(p.Path) != peaks[target].height {
		return fmt.Errorf("%w: path length %d does not match sub-tree height %d", ErrInvalidProof, len(p.Path), peaks[target].height)
	}
	if hasLower := target < len(peaks)-1; hasLower != (p.Lower != nil) {
		return fmt.Errorf("%w: smaller sub-trees do not match count", ErrInvalidProof)
	}
	if len(p.Higher) != target {
		return fmt.Errorf("%w: got %d larger sub-trees, count implies %d", ErrInvalidProof, len(p.Higher), target)
	}
	cur := hashLeaf(entry)
	position := p.Index - peaks[target].offset
	for _, sibling := range p.Path {
		if position&1 == 0 {
			cur = hashNode(cur, sibling)
		} else {
			cur = hashNode(sibling, cur)
		}
		position >>= 1
	}
	if p.Lower != nil {
		cur = hashNode(cur, *p.Lower)
	}
	for _, higher := range p.Higher {
		cur = hashNode(higher, cur)
	}
	if cur != root {
		return fmt.Errorf("%w: root hash mismatch", ErrInvalidProof)
	}
	return nil
}

// peak is a perfect sub-tree of the accumulated list.
type peak struct {
	height int
	offset uint64
}

type peakList []peak

// layout returns the perfect sub-trees of a list with the given number of
// entries, ordered by position and thus descending by size.
func layout(count uint64) peakList {
	var res peakList
	offset := uint64(0)
	for height := bits.Len64(count) - 1; height >= 0; height-- {
		if count>>height&1 == 1 {
			res = append(res, peak{height: height, offset: offset})
			offset += 1 << height
		}
	}
	return res
}

// find returns the position of the sub-tree containing the given index,
// which must be smaller than the list's count.
func (p peakList) find(index uint64) int {
	for i, q := range p {
		if q.offset <= index && index < q.offset+(1<<q.height) {
			return i
		}
	}
	panic(fmt.Sprintf("index %d not covered by list layout", index))
}

// subtreeRoot computes the root of a perfect sub-tree.
func subtreeRoot(entries []common.Hash) common.Hash {
	if len(entries) == 1 {
		return hashLeaf(entries[0])
	}
	half := len(entries) / 2
	return hashNode(subtreeRoot(entries[:half]), subtreeRoot(entries[half:]))
}

// subtreePath lists the siblings of the entry at the given index in a perfect
// sub-tree, bottom up.
func subtreePath(entries []common.Hash, index uint64) []common.Hash {
	if len(entries) == 1 {
		return nil
	}
	half := uint64(len(entries) / 2)
	if index < half {
		return append(subtreePath(entries[:half], index), subtreeRoot(entries[half:]))
	}
	return append(subtreePath(entries[half:], index-half), subtreeRoot(entries[:half]))
}
