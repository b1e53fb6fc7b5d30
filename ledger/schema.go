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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/0xsoniclabs/ledger/database/trie"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
)

// Names of the indexes used by the ledger. They address persisted data and
// must not be changed.
const (
	WalletsIndex            = "cryptocurrency.wallets"
	WalletHistoryFamily     = "cryptocurrency.wallet_history"
	VotersIndex             = "cryptocurrency.voters"
	CandidatesIndex         = "cryptocurrency.candidates"
	TimestampsIndex         = "cryptocurrency.timestamps"
	TransactionsIndex       = "core.transactions"
	TransactionResultsIndex = "core.transaction_results"
)

// Schema provides typed access to the ledger's indexes in a view. Mutating
// methods require the view to be a *storage.Fork.
type Schema struct {
	view storage.View
}

func NewSchema(view storage.View) *Schema {
	return &Schema{view: view}
}

func (s *Schema) wallets() *storage.ProofMapIndex {
	return storage.NewProofMapIndex(WalletsIndex, s.view)
}

func (s *Schema) history(key common.PublicKey) *storage.ProofListIndex {
	return storage.NewProofListIndexInFamily(WalletHistoryFamily, key, s.view)
}

func (s *Schema) voters() *storage.ProofMapIndex {
	return storage.NewProofMapIndex(VotersIndex, s.view)
}

func (s *Schema) candidates() *storage.ProofMapIndex {
	return storage.NewProofMapIndex(CandidatesIndex, s.view)
}

func (s *Schema) timestamps() *storage.ProofMapIndex {
	return storage.NewProofMapIndex(TimestampsIndex, s.view)
}

func (s *Schema) transactions() *storage.MapIndex {
	return storage.NewMapIndex(TransactionsIndex, s.view)
}

func (s *Schema) results() *storage.MapIndex {
	return storage.NewMapIndex(TransactionResultsIndex, s.view)
}

// StateHash returns the roots of all authenticated indexes of the ledger in
// the order wallets, voters, timestamps, candidates. The order is part of
// the commitment format.
func (s *Schema) StateHash() []common.Hash {
	return []common.Hash{
		s.wallets().RootHash(),
		s.voters().RootHash(),
		s.timestamps().RootHash(),
		s.candidates().RootHash(),
	}
}

// Wallet returns the wallet with the given key, if present.
func (s *Schema) Wallet(key common.PublicKey) (Wallet, bool, error) {
	data, found := s.wallets().Get(trie.Key(key))
	if !found {
		return Wallet{}, false, nil
	}
	var wallet Wallet
	if err := rlp.DecodeBytes(data, &wallet); err != nil {
		return Wallet{}, false, fmt.Errorf("failed to decode wallet %v: %w", key, err)
	}
	return wallet, true, nil
}

// Wallets visits all wallets in ascending key order until visit returns false.
func (s *Schema) Wallets(visit func(Wallet) bool) error {
	var err error
	s.wallets().Iterate(func(key trie.Key, data []byte) bool {
		var wallet Wallet
		if err = rlp.DecodeBytes(data, &wallet); err != nil {
			err = fmt.Errorf("failed to decode wallet %v: %w", common.PublicKey(key), err)
			return false
		}
		return visit(wallet)
	})
	return err
}

func (s *Schema) WalletCount() int {
	return s.wallets().Len()
}

// WalletProof proves the presence or absence of a wallet against the
// wallets root, the first element of StateHash.
func (s *Schema) WalletProof(key common.PublicKey) trie.Proof {
	return s.wallets().Proof(trie.Key(key))
}

// WalletHistory returns the hashes of all transactions affecting the wallet.
func (s *Schema) WalletHistory(key common.PublicKey) []common.Hash {
	return s.history(key).Entries()
}

// WalletHistoryRoot returns the Merkle root of the wallet's history.
func (s *Schema) WalletHistoryRoot(key common.PublicKey) common.Hash {
	return s.history(key).RootHash()
}

// CreateWallet creates a wallet with the initial balance and records the
// creating transaction in its history.
func (s *Schema) CreateWallet(key common.PublicKey, name string, tx common.Hash) {
	wallet := Wallet{PublicKey: key, Name: name, Balance: InitialBalance}
	s.putWallet(s.recordHistory(wallet, tx))
}

// IncreaseBalance credits the wallet and records the transaction in its
// history.
func (s *Schema) IncreaseBalance(wallet Wallet, amount uint64, tx common.Hash) {
	if wallet.Balance+amount < wallet.Balance {
		panic(fmt.Sprintf("balance of wallet %v overflows", wallet.PublicKey))
	}
	wallet.Balance += amount
	s.putWallet(s.recordHistory(wallet, tx))
}

// DecreaseBalance debits the wallet and records the transaction in its
// history. The balance must cover the amount.
func (s *Schema) DecreaseBalance(wallet Wallet, amount uint64, tx common.Hash) {
	if wallet.Balance < amount {
		panic(fmt.Sprintf("balance of wallet %v is below %d", wallet.PublicKey, amount))
	}
	wallet.Balance -= amount
	s.putWallet(s.recordHistory(wallet, tx))
}

func (s *Schema) recordHistory(wallet Wallet, tx common.Hash) Wallet {
	history := s.history(wallet.PublicKey)
	history.Append(tx)
	wallet.HistoryLen = history.Len()
	wallet.HistoryHash = history.RootHash()
	return wallet
}

func (s *Schema) putWallet(wallet Wallet) {
	data, err := rlp.EncodeToBytes(&wallet)
	if err != nil {
		panic(fmt.Sprintf("failed to encode wallet: %v", err))
	}
	s.wallets().Put(trie.Key(wallet.PublicKey), data)
}

// AddVoter registers the key in the voter registry.
func (s *Schema) AddVoter(key common.PublicKey) {
	s.voters().Put(trie.Key(key), key[:])
}

// AddCandidate registers the key in the candidate registry.
func (s *Schema) AddCandidate(key common.PublicKey) {
	s.candidates().Put(trie.Key(key), key[:])
}

// Voters returns the registered voters in ascending key order.
func (s *Schema) Voters() []common.PublicKey {
	return registryKeys(s.voters())
}

// Candidates returns the registered candidates in ascending key order.
func (s *Schema) Candidates() []common.PublicKey {
	return registryKeys(s.candidates())
}

func registryKeys(index *storage.ProofMapIndex) []common.PublicKey {
	res := make([]common.PublicKey, 0, index.Len())
	index.Iterate(func(key trie.Key, _ []byte) bool {
		res = append(res, common.PublicKey(key))
		return true
	})
	return res
}

// AddTimestamp records the time of a transaction. Existing timestamps are
// never overwritten.
func (s *Schema) AddTimestamp(tx common.Hash, t time.Time) {
	timestamps := s.timestamps()
	if timestamps.Contains(trie.Key(tx)) {
		return
	}
	timestamps.Put(trie.Key(tx), binary.BigEndian.AppendUint64(nil, uint64(t.Unix())))
}

// Timestamp returns the recorded time of a transaction, in full seconds.
func (s *Schema) Timestamp(tx common.Hash) (time.Time, bool) {
	data, found := s.timestamps().Get(trie.Key(tx))
	if !found || len(data) != 8 {
		return time.Time{}, false
	}
	return time.Unix(int64(binary.BigEndian.Uint64(data)), 0).UTC(), true
}

// AddTransaction stores an encoded message under its hash.
func (s *Schema) AddTransaction(tx common.Hash, encoded []byte) {
	s.transactions().Put(trie.Key(tx), snappy.Encode(nil, encoded))
}

// Transaction returns the encoded message stored under the given hash.
func (s *Schema) Transaction(tx common.Hash) ([]byte, bool, error) {
	data, found := s.transactions().Get(trie.Key(tx))
	if !found {
		return nil, false, nil
	}
	res, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress transaction %v: %w", tx, err)
	}
	return res, true, nil
}

// ExecutionStatus is the recorded outcome of a failed transaction.
type ExecutionStatus struct {
	Code        ErrorCode
	Description string
}

// SetTransactionResult records the failure of a transaction.
func (s *Schema) SetTransactionResult(tx common.Hash, status ExecutionStatus) {
	data, err := rlp.EncodeToBytes(&status)
	if err != nil {
		panic(fmt.Sprintf("failed to encode execution status: %v", err))
	}
	s.results().Put(trie.Key(tx), data)
}

// TransactionResult returns the recorded failure of a transaction. Executed
// transactions without a recorded failure succeeded.
func (s *Schema) TransactionResult(tx common.Hash) (ExecutionStatus, bool, error) {
	data, found := s.results().Get(trie.Key(tx))
	if !found {
		return ExecutionStatus{}, false, nil
	}
	var status ExecutionStatus
	if err := rlp.DecodeBytes(data, &status); err != nil {
		return ExecutionStatus{}, false, fmt.Errorf("failed to decode result of %v: %w", tx, err)
	}
	return status, true, nil
}
