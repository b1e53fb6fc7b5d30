// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/0xsoniclabs/ledger/ledger/audit"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var Check = cli.Command{
	Action: check,
	Name:   "check",
	Usage:  "performs extensive invariants checks",
}

func check(context *cli.Context) error {
	return runOnDatabase(context, func(db *storage.Database, logger *logrus.Logger) error {
		out := context.App.Writer
		fmt.Fprintf(out, "Checking ledger ...\n")
		report, err := audit.Check(db.Snapshot())
		if err != nil {
			return err
		}
		for _, violation := range report.Violations {
			logger.Warn(violation)
		}
		fmt.Fprintf(out, "Checked %d wallets, total supply %v\n", report.Wallets, report.TotalSupply)
		if err := report.Err(); err != nil {
			return err
		}
		fmt.Fprintf(out, "All checks passed!\n")
		return nil
	})
}
