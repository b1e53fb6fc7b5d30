// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"github.com/0xsoniclabs/ledger/common"
)

// InitialBalance is the balance of newly created wallets.
const InitialBalance uint64 = 1

// Wallet is the state of an account.
type Wallet struct {
	PublicKey common.PublicKey
	Name      string
	Balance   uint64
	// HistoryLen is the number of entries in the wallet's history.
	HistoryLen uint64
	// HistoryHash is the Merkle root of the wallet's history.
	HistoryHash common.Hash
}
