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
	"fmt"
	"time"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/database/merkle"
	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/0xsoniclabs/ledger/database/trie"
	"github.com/ethereum/go-ethereum/rlp"
)

// API provides read access to the committed state of a ledger. Every call
// operates on its own snapshot and may run concurrently with block
// execution.
type API struct {
	db *storage.Database
}

func NewAPI(db *storage.Database) *API {
	return &API{db: db}
}

func (a *API) schema() *Schema {
	return NewSchema(a.db.Snapshot())
}

func (a *API) Wallet(key common.PublicKey) (Wallet, bool, error) {
	return a.schema().Wallet(key)
}

func (a *API) WalletHistory(key common.PublicKey) []common.Hash {
	return a.schema().WalletHistory(key)
}

// WalletInfo is a self-contained proof of the state of a wallet.
type WalletInfo struct {
	// StateHash is the state commitment the proof refers to.
	StateHash []common.Hash
	// Wallet is nil if the wallet does not exist.
	Wallet  *Wallet
	Proof   trie.Proof
	History []common.Hash
}

// WalletProof returns the state of a wallet together with a proof against
// the current state commitment.
func (a *API) WalletProof(key common.PublicKey) (WalletInfo, error) {
	schema := a.schema()
	info := WalletInfo{
		StateHash: schema.StateHash(),
		Proof:     schema.WalletProof(key),
	}
	wallet, found, err := schema.Wallet(key)
	if err != nil {
		return WalletInfo{}, err
	}
	if found {
		info.Wallet = &wallet
		info.History = schema.WalletHistory(key)
	}
	return info, nil
}

// Verify checks that the wallet proof and history are consistent with the
// state commitment.
func (w *WalletInfo) Verify(key common.PublicKey) error {
	if len(w.StateHash) == 0 {
		return fmt.Errorf("%w: missing state hash", trie.ErrInvalidProof)
	}
	root := w.StateHash[0]
	if w.Wallet == nil {
		return w.Proof.Verify(root, trie.Key(key), nil)
	}
	if w.Wallet.PublicKey != key {
		return fmt.Errorf("%w: wallet of %v reported for %v", trie.ErrInvalidProof, w.Wallet.PublicKey, key)
	}
	data, err := rlp.EncodeToBytes(w.Wallet)
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	if err := w.Proof.Verify(root, trie.Key(key), data); err != nil {
		return err
	}
	if uint64(len(w.History)) != w.Wallet.HistoryLen {
		return fmt.Errorf("%w: history has %d entries, wallet reports %d", merkle.ErrInvalidProof, len(w.History), w.Wallet.HistoryLen)
	}
	if got := merkle.Root(w.History); got != w.Wallet.HistoryHash {
		return fmt.Errorf("%w: history root %v does not match %v", merkle.ErrInvalidProof, got, w.Wallet.HistoryHash)
	}
	return nil
}

// HistoryEntryProof proves that a transaction is part of the history of a
// wallet.
type HistoryEntryProof struct {
	Transaction common.Hash
	Proof       merkle.Proof
}

// WalletHistoryProof returns the history entry of a wallet at the given index
// together with a proof against the wallet's history root.
func (a *API) WalletHistoryProof(key common.PublicKey, index uint64) (HistoryEntryProof, bool, error) {
	history := a.schema().history(key)
	entry, found := history.Get(index)
	if !found {
		return HistoryEntryProof{}, false, nil
	}
	proof, err := history.Proof(index)
	if err != nil {
		return HistoryEntryProof{}, false, err
	}
	return HistoryEntryProof{Transaction: entry, Proof: proof}, true, nil
}

// Verify checks the entry against the history summary of the given wallet.
func (p *HistoryEntryProof) Verify(wallet *Wallet) error {
	if p.Proof.Count != wallet.HistoryLen {
		return fmt.Errorf("%w: proof covers %d entries, wallet reports %d", merkle.ErrInvalidProof, p.Proof.Count, wallet.HistoryLen)
	}
	return p.Proof.Verify(wallet.HistoryHash, p.Transaction)
}

// Transaction returns the message stored under the given hash.
func (a *API) Transaction(hash common.Hash) (*Message, bool, error) {
	data, found, err := a.schema().Transaction(hash)
	if err != nil || !found {
		return nil, false, err
	}
	msg, err := DecodeMessage(data)
	if err != nil {
		return nil, false, err
	}
	return msg, true, nil
}

// TransactionResult returns the outcome of a processed transaction. The
// result is nil for successful transactions; found is false for unknown
// transactions.
func (a *API) TransactionResult(hash common.Hash) (*ExecutionStatus, bool, error) {
	schema := a.schema()
	if _, found, err := schema.Transaction(hash); err != nil || !found {
		return nil, false, err
	}
	status, failed, err := schema.TransactionResult(hash)
	if err != nil {
		return nil, false, err
	}
	if !failed {
		return nil, true, nil
	}
	return &status, true, nil
}

func (a *API) Voters() []common.PublicKey {
	return a.schema().Voters()
}

func (a *API) Candidates() []common.PublicKey {
	return a.schema().Candidates()
}

func (a *API) Timestamp(hash common.Hash) (time.Time, bool) {
	return a.schema().Timestamp(hash)
}

func (a *API) StateHash() []common.Hash {
	return a.schema().StateHash()
}
