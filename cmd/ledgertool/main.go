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
	"errors"
	"fmt"
	"os"

	"github.com/0xsoniclabs/ledger/database/kv"
	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/0xsoniclabs/ledger/ledger"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "YAML file with ledger parameters",
	}
	directoryFlag = cli.StringFlag{
		Name:  "directory",
		Usage: "directory of the ledger database",
	}
	backendFlag = cli.StringFlag{
		Name:  "backend",
		Usage: "key/value backend: leveldb, sqlite or memory",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "logging level: trace, debug, info, warn or error",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "ledgertool",
		Usage:     "Ledger toolbox",
		Copyright: "(c) 2025 Sonic Operations Ltd",
		Flags: []cli.Flag{
			&configFlag,
			&directoryFlag,
			&backendFlag,
			&logLevelFlag,
		},
		Commands: []*cli.Command{
			fresh(Info),
			fresh(Wallet),
			fresh(Check),
			fresh(Replay),
		},
	}
}

// fresh returns a copy of a command, so that apps created by newApp do not
// share command state.
func fresh(command cli.Command) *cli.Command {
	return &command
}

// getParameters combines the configuration file, if any, with the flags set
// on the command line.
func getParameters(context *cli.Context) (ledger.Parameters, error) {
	params := ledger.DefaultParameters()
	if path := context.String(configFlag.Name); path != "" {
		var err error
		if params, err = ledger.LoadParameters(path); err != nil {
			return ledger.Parameters{}, err
		}
	}
	if context.IsSet(directoryFlag.Name) {
		params.Directory = context.String(directoryFlag.Name)
	}
	if context.IsSet(backendFlag.Name) {
		params.Backend = kv.Backend(context.String(backendFlag.Name))
	}
	if context.IsSet(logLevelFlag.Name) {
		params.LogLevel = context.String(logLevelFlag.Name)
	}
	return params, params.Validate()
}

// runOnDatabase opens the configured database, runs the given action on it
// and closes it again.
func runOnDatabase(context *cli.Context, action func(*storage.Database, *logrus.Logger) error) error {
	params, err := getParameters(context)
	if err != nil {
		return err
	}
	logger, err := params.NewLogger()
	if err != nil {
		return err
	}
	logger.SetOutput(context.App.ErrWriter)
	db, err := params.OpenDatabase()
	if err != nil {
		return err
	}
	logger.WithField("directory", params.Directory).
		WithField("backend", params.Backend).
		Debug("database opened")
	return errors.Join(
		action(db, logger),
		db.Close(),
	)
}
