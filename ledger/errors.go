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

// ErrorCode is the outcome code of a transaction that failed during
// execution. Codes are recorded in the transaction result log and are part
// of the persisted format.
type ErrorCode uint8

const (
	WalletAlreadyExists        ErrorCode = 0
	SenderNotFound             ErrorCode = 1
	ReceiverNotFound           ErrorCode = 2
	InsufficientCurrencyAmount ErrorCode = 3
	TimeUnavailable            ErrorCode = 4

	// Unexpected is recorded for failures not covered by a dedicated code.
	Unexpected ErrorCode = 255
)

// ErrInvalidTransaction is reported for messages failing verification.
// Such messages are rejected before execution and leave no trace.
const ErrInvalidTransaction = common.ConstError("invalid transaction")

func (c ErrorCode) Error() string {
	switch c {
	case WalletAlreadyExists:
		return "wallet already exists"
	case SenderNotFound:
		return "sender doesn't exist"
	case ReceiverNotFound:
		return "receiver doesn't exist"
	case InsufficientCurrencyAmount:
		return "insufficient currency amount"
	case TimeUnavailable:
		return "time is not available"
	}
	return "unexpected error"
}
