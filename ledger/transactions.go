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
	"crypto/rand"
	"fmt"
	"math"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/database/storage"
	"golang.org/x/crypto/nacl/sign"
)

// Kind is the discriminant of a transaction in its message envelope.
type Kind uint8

const (
	KindTransfer       Kind = 0
	KindCreateWallet   Kind = 1
	KindSelectionProbe Kind = 2
	KindAddCandidate   Kind = 3
	KindSetVoterList   Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindTransfer:
		return "Transfer"
	case KindCreateWallet:
		return "CreateWallet"
	case KindSelectionProbe:
		return "SelectionProbe"
	case KindAddCandidate:
		return "AddCandidate"
	case KindSetVoterList:
		return "SetVoterList"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Transaction is a state transition of the ledger.
type Transaction interface {
	Kind() Kind
	// Signer is the key the transaction's message must be signed with.
	Signer() common.PublicKey
	// Verify checks the transaction independently of any state.
	Verify() bool
	// Execute applies the transaction to ctx.Fork. All failure conditions
	// are checked before the first modification. Failures are reported as
	// ErrorCode values.
	Execute(ctx *Context) error
}

// Context is the environment a transaction is executed in.
type Context struct {
	Fork  *storage.Fork
	Hash  common.Hash
	Clock Clock
}

// Transfer moves Amount from one wallet to another.
type Transfer struct {
	From   common.PublicKey
	To     common.PublicKey
	Amount uint64
	Seed   uint64
}

func (tx *Transfer) Kind() Kind               { return KindTransfer }
func (tx *Transfer) Signer() common.PublicKey { return tx.From }

func (tx *Transfer) Verify() bool {
	return tx.From != tx.To
}

func (tx *Transfer) Execute(ctx *Context) error {
	// Debiting and crediting the same wallet would work on two copies of it.
	if !tx.Verify() {
		return fmt.Errorf("%w: transfer from %v to itself", ErrInvalidTransaction, tx.From)
	}
	schema := NewSchema(ctx.Fork)
	sender, found, err := schema.Wallet(tx.From)
	if err != nil {
		return err
	}
	if !found {
		return SenderNotFound
	}
	receiver, found, err := schema.Wallet(tx.To)
	if err != nil {
		return err
	}
	if !found {
		return ReceiverNotFound
	}
	if sender.Balance < tx.Amount {
		return InsufficientCurrencyAmount
	}
	now, found := ctx.Clock.Now(ctx.Fork)
	if !found {
		return TimeUnavailable
	}
	schema.DecreaseBalance(sender, tx.Amount, ctx.Hash)
	schema.IncreaseBalance(receiver, tx.Amount, ctx.Hash)
	schema.AddTimestamp(ctx.Hash, now)
	return nil
}

// CreateWallet opens a wallet with the initial balance.
type CreateWallet struct {
	PublicKey common.PublicKey
	Name      string
}

func (tx *CreateWallet) Kind() Kind               { return KindCreateWallet }
func (tx *CreateWallet) Signer() common.PublicKey { return tx.PublicKey }
func (tx *CreateWallet) Verify() bool             { return true }

func (tx *CreateWallet) Execute(ctx *Context) error {
	schema := NewSchema(ctx.Fork)
	_, found, err := schema.Wallet(tx.PublicKey)
	if err != nil {
		return err
	}
	if found {
		return WalletAlreadyExists
	}
	now, found := ctx.Clock.Now(ctx.Fork)
	if !found {
		return TimeUnavailable
	}
	schema.CreateWallet(tx.PublicKey, tx.Name, ctx.Hash)
	schema.AddTimestamp(ctx.Hash, now)
	return nil
}

// SelectionProbe signs the index sequence of the current voters with an
// ephemeral key. It has no effect on the ledger state.
type SelectionProbe struct {
	From common.PublicKey
	Seed uint64
}

func (tx *SelectionProbe) Kind() Kind               { return KindSelectionProbe }
func (tx *SelectionProbe) Signer() common.PublicKey { return tx.From }
func (tx *SelectionProbe) Verify() bool             { return true }

func (tx *SelectionProbe) Execute(ctx *Context) error {
	voters := NewSchema(ctx.Fork).Voters()
	indexes, err := encodeIndexes(len(voters))
	if err != nil {
		return err
	}
	_, key, err := sign.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	sign.Sign(nil, indexes, key)
	return nil
}

// encodeIndexes returns the 4-byte big-endian encodings of 0..count-1.
func encodeIndexes(count int) ([]byte, error) {
	if uint64(count) > math.MaxUint32+1 {
		return nil, fmt.Errorf("too many voters: %d", count)
	}
	res := make([]byte, 0, 4*count)
	for i := 0; i < count; i++ {
		res = append(res, byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
	}
	return res, nil
}

// AddCandidate registers the signer as a candidate.
type AddCandidate struct {
	PublicKey common.PublicKey
	Seed      uint64
}

func (tx *AddCandidate) Kind() Kind               { return KindAddCandidate }
func (tx *AddCandidate) Signer() common.PublicKey { return tx.PublicKey }
func (tx *AddCandidate) Verify() bool             { return true }

func (tx *AddCandidate) Execute(ctx *Context) error {
	NewSchema(ctx.Fork).AddCandidate(tx.PublicKey)
	return nil
}

// SetVoterList registers the signer as a voter.
type SetVoterList struct {
	PublicKey common.PublicKey
	Seed      uint64
}

func (tx *SetVoterList) Kind() Kind               { return KindSetVoterList }
func (tx *SetVoterList) Signer() common.PublicKey { return tx.PublicKey }
func (tx *SetVoterList) Verify() bool             { return true }

func (tx *SetVoterList) Execute(ctx *Context) error {
	NewSchema(ctx.Fork).AddVoter(tx.PublicKey)
	return nil
}
