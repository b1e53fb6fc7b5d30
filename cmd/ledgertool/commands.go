// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/0xsoniclabs/ledger/ledger"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var Info = cli.Command{
	Action: info,
	Name:   "info",
	Usage:  "prints the state commitment and registry sizes",
}

var Wallet = cli.Command{
	Action:    wallet,
	Name:      "wallet",
	Usage:     "prints a wallet and verifies its proof",
	ArgsUsage: "<public key>",
}

func info(context *cli.Context) error {
	return runOnDatabase(context, func(db *storage.Database, _ *logrus.Logger) error {
		out := context.App.Writer
		schema := ledger.NewSchema(db.Snapshot())
		names := []string{
			ledger.WalletsIndex,
			ledger.VotersIndex,
			ledger.TimestampsIndex,
			ledger.CandidatesIndex,
		}
		for i, hash := range schema.StateHash() {
			fmt.Fprintf(out, "%-28s %v\n", names[i], hash)
		}
		fmt.Fprintf(out, "wallets:    %d\n", schema.WalletCount())
		fmt.Fprintf(out, "voters:     %d\n", len(schema.Voters()))
		fmt.Fprintf(out, "candidates: %d\n", len(schema.Candidates()))
		return nil
	})
}

func wallet(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing public key of wallet")
	}
	key, err := common.ParsePublicKey(context.Args().Get(0))
	if err != nil {
		return err
	}
	return runOnDatabase(context, func(db *storage.Database, _ *logrus.Logger) error {
		out := context.App.Writer
		info, err := ledger.NewAPI(db).WalletProof(key)
		if err != nil {
			return err
		}
		if err := info.Verify(key); err != nil {
			return fmt.Errorf("wallet proof does not verify: %w", err)
		}
		if info.Wallet == nil {
			fmt.Fprintf(out, "wallet %v does not exist (absence proven)\n", key)
			return nil
		}
		fmt.Fprintf(out, "wallet:  %v\n", key)
		fmt.Fprintf(out, "name:    %s\n", info.Wallet.Name)
		fmt.Fprintf(out, "balance: %d\n", info.Wallet.Balance)
		fmt.Fprintf(out, "history: %d entries, root %v\n", info.Wallet.HistoryLen, info.Wallet.HistoryHash)
		for i, tx := range info.History {
			fmt.Fprintf(out, "  %4d %v\n", i, tx)
		}
		return nil
	})
}
