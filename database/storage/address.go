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
	"encoding/binary"
	"fmt"
)

// FamilyKeySize is the size of keys distinguishing indexes of a family.
const FamilyKeySize = 32

type kind byte

const (
	mapKind        kind = 'm'
	listKind       kind = 'l'
	listFamilyKind kind = 'L'
)

// address identifies an index. It is also the prefix of all raw keys of the
// index's entries in the backing store:
//
//	kind (1 byte) || uvarint(len(name)) || name || family key (32 bytes, lists only)
//
// Names are persisted and must therefore be kept stable.
type address string

func newAddress(k kind, name string, family *[FamilyKeySize]byte) address {
	if name == "" {
		panic("storage: index name must not be empty")
	}
	buffer := make([]byte, 0, 1+binary.MaxVarintLen64+len(name)+FamilyKeySize)
	buffer = append(buffer, byte(k))
	buffer = binary.AppendUvarint(buffer, uint64(len(name)))
	buffer = append(buffer, name...)
	if family != nil {
		buffer = append(buffer, family[:]...)
	}
	return address(buffer)
}

func (a address) kind() kind {
	return kind(a[0])
}

func (a address) key(item []byte) []byte {
	res := make([]byte, 0, len(a)+len(item))
	res = append(res, a...)
	return append(res, item...)
}

// splitKey splits a raw store key into the address of its index and the key
// of the item within the index.
func splitKey(raw []byte) (address, []byte, error) {
	if len(raw) == 0 {
		return "", nil, fmt.Errorf("%w: empty key", ErrCorruptStore)
	}
	k := kind(raw[0])
	switch k {
	case mapKind, listKind, listFamilyKind:
	default:
		return "", nil, fmt.Errorf("%w: unknown index kind %q", ErrCorruptStore, raw[0])
	}
	length, n := binary.Uvarint(raw[1:])
	if n <= 0 {
		return "", nil, fmt.Errorf("%w: invalid name length", ErrCorruptStore)
	}
	end := uint64(1+n) + length
	if k == listFamilyKind {
		end += FamilyKeySize
	}
	if end > uint64(len(raw)) {
		return "", nil, fmt.Errorf("%w: truncated key", ErrCorruptStore)
	}
	return address(raw[:end]), raw[end:], nil
}
