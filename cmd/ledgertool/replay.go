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
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/0xsoniclabs/ledger/ledger"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	blockSizeFlag = cli.IntFlag{
		Name:  "block-size",
		Usage: "number of messages executed per block",
		Value: 100,
	}
	timeFlag = cli.Int64Flag{
		Name:  "time",
		Usage: "unix time to record before replaying, if not yet known",
	}
)

var Replay = cli.Command{
	Action:    replay,
	Name:      "replay",
	Usage:     "executes hex encoded messages, one per line, in blocks",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&blockSizeFlag,
		&timeFlag,
	},
}

func replay(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("missing file with messages")
	}
	blockSize := context.Int(blockSizeFlag.Name)
	if blockSize <= 0 {
		return fmt.Errorf("invalid block size %d", blockSize)
	}
	msgs, err := readMessages(context.Args().Get(0))
	if err != nil {
		return err
	}

	return runOnDatabase(context, func(db *storage.Database, logger *logrus.Logger) error {
		service := ledger.NewService(db, ledger.StoredClock{}, logger)
		if context.IsSet(timeFlag.Name) {
			if _, found := (ledger.StoredClock{}).Now(db.Snapshot()); !found {
				if err := service.AdvanceTime(time.Unix(context.Int64(timeFlag.Name), 0)); err != nil {
					return err
				}
			}
		}

		counts := map[string]int{}
		for start := 0; start < len(msgs); start += blockSize {
			end := min(start+blockSize, len(msgs))
			results, err := service.ExecuteBlock(msgs[start:end])
			if err != nil {
				return err
			}
			for i, res := range results {
				if res.Error == nil {
					counts["ok"]++
					continue
				}
				counts[outcome(res.Error)]++
				logger.WithField("message", start+i).
					WithField("tx", res.Value).
					WithError(res.Error).
					Info("transaction failed")
			}
		}

		out := context.App.Writer
		fmt.Fprintf(out, "Replayed %d messages: %d succeeded, %d failed, %d rejected\n",
			len(msgs), counts["ok"], counts["failed"], counts["rejected"])
		for i, hash := range service.StateHash() {
			fmt.Fprintf(out, "state hash %d: %v\n", i, hash)
		}
		return nil
	})
}

func outcome(err error) string {
	var code ledger.ErrorCode
	if errors.As(err, &code) {
		return "failed"
	}
	return "rejected"
}

func readMessages(path string) ([]*ledger.Message, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var res []*ledger.Message
	scanner := bufio.NewScanner(file)
	scanner.Buffer(nil, 1<<20)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if !strings.HasPrefix(text, "0x") {
			text = "0x" + text
		}
		data, err := hexutil.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		msg, err := ledger.DecodeMessage(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		res = append(res, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return res, nil
}
