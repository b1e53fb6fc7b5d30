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
	"errors"
	"fmt"
	"time"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/common/result"
	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/0xsoniclabs/tracy"
	"github.com/sirupsen/logrus"
)

// ServiceName is the name the ledger reports in its log entries.
const ServiceName = "cryptocurrency"

// ErrDuplicateTransaction is reported for messages that have already been
// processed.
const ErrDuplicateTransaction = common.ConstError("duplicate transaction")

// Service executes blocks of messages against a database.
type Service struct {
	db    *storage.Database
	clock Clock
	log   *logrus.Entry
}

// NewService creates a service on top of the given database. If logger is
// nil, the standard logger is used.
func NewService(db *storage.Database, clock Clock, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		db:    db,
		clock: clock,
		log:   logger.WithField("service", ServiceName),
	}
}

// ExecuteBlock processes the given messages in order and commits the
// resulting state. One result is reported per message, carrying the
// message's hash and its failure, if any.
//
// Messages failing verification are rejected with ErrInvalidTransaction and
// leave no trace. Every other message is executed in isolation; its changes
// are kept only if it succeeds, while its failure is recorded in the
// transaction result log. The returned error reports failures to commit
// the block, in which case no changes are applied.
func (s *Service) ExecuteBlock(msgs []*Message) ([]result.Result[common.Hash], error) {
	zone := tracy.ZoneBegin("ledger::execute_block")
	defer zone.End()

	fork := s.db.Fork()
	schema := NewSchema(fork)
	results := make([]result.Result[common.Hash], 0, len(msgs))
	failed := 0
	for _, msg := range msgs {
		hash, err := s.execute(fork, msg)
		if err != nil {
			failed++
		}
		results = append(results, result.Err(hash, err))
	}
	if err := s.db.Merge(fork); err != nil {
		return nil, fmt.Errorf("failed to commit block: %w", err)
	}
	s.log.WithField("transactions", len(msgs)).
		WithField("failed", failed).
		WithField("wallets", schema.WalletCount()).
		Debug("block committed")
	return results, nil
}

func (s *Service) execute(fork *storage.Fork, msg *Message) (common.Hash, error) {
	encoded, err := msg.Encode()
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	hash := common.Keccak256(encoded)
	log := s.log.WithField("tx", hash)

	tx, err := msg.Verify()
	if err != nil {
		log.WithError(err).Info("transaction rejected")
		return hash, err
	}
	schema := NewSchema(fork)
	if _, found, err := schema.Transaction(hash); err != nil {
		return hash, err
	} else if found {
		log.Info("duplicate transaction rejected")
		return hash, fmt.Errorf("%w: %v", ErrDuplicateTransaction, hash)
	}

	child := fork.Fork()
	err = tx.Execute(&Context{Fork: child, Hash: hash, Clock: s.clock})
	if err == nil {
		if err := fork.Merge(child); err != nil {
			return hash, fmt.Errorf("failed to apply transaction: %w", err)
		}
	} else {
		code := Unexpected
		var errorCode ErrorCode
		if errors.As(err, &errorCode) {
			code = errorCode
		} else {
			log.WithError(err).Warn("transaction failed unexpectedly")
		}
		schema.SetTransactionResult(hash, ExecutionStatus{Code: code, Description: err.Error()})
		log.WithField("kind", tx.Kind()).WithField("code", uint8(code)).Debug(err.Error())
	}
	schema.AddTransaction(hash, encoded)
	return hash, err
}

// AdvanceTime commits the given time as the time reported by StoredClock.
func (s *Service) AdvanceTime(t time.Time) error {
	fork := s.db.Fork()
	SetTime(fork, t)
	if err := s.db.Merge(fork); err != nil {
		return fmt.Errorf("failed to commit time: %w", err)
	}
	return nil
}

// StateHash returns the state commitment of the current committed state.
func (s *Service) StateHash() []common.Hash {
	return NewSchema(s.db.Snapshot()).StateHash()
}
