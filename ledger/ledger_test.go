package ledger

import (
	"io"
	"testing"
	"time"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/database/kv"
	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 5, 17, 12, 30, 0, 0, time.UTC)

type testLedger struct {
	db      *storage.Database
	service *Service
	api     *API
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	db, err := storage.Open(kv.NewMemoryStore())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return newTestLedgerOn(t, db, StoredClock{})
}

func newTestLedgerOn(t *testing.T, db *storage.Database, clock Clock) *testLedger {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	res := &testLedger{
		db:      db,
		service: NewService(db, clock, logger),
		api:     NewAPI(db),
	}
	require.NoError(t, res.service.AdvanceTime(testTime))
	return res
}

func newKey(t *testing.T) *SecretKey {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	return key
}

func newMessage(t *testing.T, tx Transaction, key *SecretKey) *Message {
	t.Helper()
	msg, err := NewMessage(tx, key)
	require.NoError(t, err)
	return msg
}

// execute runs a block with a single message and returns its outcome.
func (l *testLedger) execute(t *testing.T, msg *Message) (common.Hash, error) {
	t.Helper()
	results, err := l.service.ExecuteBlock([]*Message{msg})
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0].Get()
}

func (l *testLedger) createWallet(t *testing.T, key *SecretKey, name string) common.Hash {
	t.Helper()
	hash, err := l.execute(t, newMessage(t, &CreateWallet{PublicKey: key.PublicKey(), Name: name}, key))
	require.NoError(t, err)
	return hash
}

func (l *testLedger) wallet(t *testing.T, key *SecretKey) Wallet {
	t.Helper()
	wallet, found, err := l.api.Wallet(key.PublicKey())
	require.NoError(t, err)
	require.True(t, found)
	return wallet
}
