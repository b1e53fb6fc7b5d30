// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package audit verifies the invariants of a ledger state: the consistency
// of every wallet with its history, the authenticity of wallet proofs, the
// presence of timestamps and messages for recorded transactions, and the
// conservation of the total supply.
package audit

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/database/merkle"
	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/0xsoniclabs/ledger/database/trie"
	"github.com/0xsoniclabs/ledger/ledger"
	"github.com/0xsoniclabs/tracy"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

const ErrInconsistentState = common.ConstError("inconsistent ledger state")

// Report summarizes the result of an audit.
type Report struct {
	Wallets        int
	TotalSupply    *uint256.Int
	ExpectedSupply *uint256.Int
	// Violations lists all detected inconsistencies, each wrapping
	// ErrInconsistentState.
	Violations []error
}

// Err returns the violations joined into a single error, nil if there are none.
func (r *Report) Err() error {
	return errors.Join(r.Violations...)
}

// Check audits the ledger state in the given view. The view must not be
// modified while the check is running; snapshots are the natural choice.
// The returned error reports failures to read the state, while invariant
// violations are listed in the report.
func Check(view storage.View) (*Report, error) {
	zone := tracy.ZoneBegin("audit::check")
	defer zone.End()

	schema := ledger.NewSchema(view)
	var wallets []ledger.Wallet
	if err := schema.Wallets(func(w ledger.Wallet) bool {
		wallets = append(wallets, w)
		return true
	}); err != nil {
		return nil, err
	}
	walletsRoot := schema.StateHash()[0]

	report := &Report{
		Wallets:        len(wallets),
		TotalSupply:    new(uint256.Int),
		ExpectedSupply: new(uint256.Int).Mul(uint256.NewInt(ledger.InitialBalance), uint256.NewInt(uint64(len(wallets)))),
	}
	var mu sync.Mutex
	report.Violations = []error{}
	violation := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Violations = append(report.Violations, fmt.Errorf("%w: %w", ErrInconsistentState, err))
	}

	supply := newTask(func() {
		for _, wallet := range wallets {
			report.TotalSupply.Add(report.TotalSupply, uint256.NewInt(wallet.Balance))
		}
		if !report.TotalSupply.Eq(report.ExpectedSupply) {
			violation(fmt.Errorf("total supply %v, expected %v", report.TotalSupply, report.ExpectedSupply))
		}
	}, len(wallets))

	tasks := make([]*task, 0, len(wallets)+1)
	for _, wallet := range wallets {
		t := newTask(func() {
			for _, err := range checkWallet(view, walletsRoot, wallet) {
				violation(fmt.Errorf("wallet %v: %w", wallet.PublicKey, err))
			}
		}, 0)
		t.parentTask = supply
		tasks = append(tasks, t)
	}
	tasks = append(tasks, supply)
	runTasks(tasks, runtime.NumCPU())

	return report, nil
}

func checkWallet(view storage.View, walletsRoot common.Hash, wallet ledger.Wallet) []error {
	var errs []error
	schema := ledger.NewSchema(view)

	history := schema.WalletHistory(wallet.PublicKey)
	if got := uint64(len(history)); got != wallet.HistoryLen {
		errs = append(errs, fmt.Errorf("history has %d entries, wallet reports %d", got, wallet.HistoryLen))
	}
	if got := merkle.Root(history); got != wallet.HistoryHash {
		errs = append(errs, fmt.Errorf("history root %v, wallet reports %v", got, wallet.HistoryHash))
	}

	data, err := rlp.EncodeToBytes(&wallet)
	if err != nil {
		return append(errs, fmt.Errorf("failed to encode wallet: %w", err))
	}
	key := trie.Key(wallet.PublicKey)
	if err := schema.WalletProof(wallet.PublicKey).Verify(walletsRoot, key, data); err != nil {
		errs = append(errs, fmt.Errorf("wallet proof: %w", err))
	}

	for i, tx := range history {
		if _, found := schema.Timestamp(tx); !found {
			errs = append(errs, fmt.Errorf("history entry %d (%v) has no timestamp", i, tx))
		}
		if _, found, err := schema.Transaction(tx); err != nil || !found {
			errs = append(errs, fmt.Errorf("history entry %d (%v) has no stored message", i, tx))
		}
	}
	return errs
}
