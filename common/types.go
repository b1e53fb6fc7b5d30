// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ConstError is an error type that can be used to define immutable error
// constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// HashSize is the size of digests and identifiers used by the ledger.
const HashSize = 32

// Hash is a 32-byte keccak256 digest. The zero value is the root of every
// empty authenticated structure.
type Hash [HashSize]byte

// PublicKey identifies a wallet. It is the Ed25519 public key of the wallet
// owner.
type PublicKey [HashSize]byte

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (k PublicKey) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

// ParsePublicKey parses a hex encoded public key. The 0x prefix is optional.
func ParsePublicKey(s string) (PublicKey, error) {
	var res PublicKey
	data, err := decodeHex(s)
	if err != nil {
		return res, err
	}
	if len(data) != len(res) {
		return res, fmt.Errorf("invalid public key length %d, expected %d", len(data), len(res))
	}
	copy(res[:], data)
	return res, nil
}

// ParseHash parses a hex encoded hash. The 0x prefix is optional.
func ParseHash(s string) (Hash, error) {
	var res Hash
	data, err := decodeHex(s)
	if err != nil {
		return res, err
	}
	if len(data) != len(res) {
		return res, fmt.Errorf("invalid hash length %d, expected %d", len(data), len(res))
	}
	copy(res[:], data)
	return res, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
