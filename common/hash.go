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
	"github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 computes the keccak256 digest of the concatenation of the given
// byte slices.
func Keccak256(data ...[]byte) Hash {
	return Hash(crypto.Keccak256Hash(data...))
}
