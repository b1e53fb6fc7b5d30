package ledger

import (
	"testing"

	"github.com/0xsoniclabs/ledger/common"
	"github.com/0xsoniclabs/ledger/database/kv"
	"github.com/0xsoniclabs/ledger/database/merkle"
	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestService_TransferScenario(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice, bob := newKey(t), newKey(t)

	ledger.createWallet(t, alice, "A")
	ledger.createWallet(t, bob, "B")
	require.Equal(uint64(1), ledger.wallet(t, alice).Balance)
	require.Equal(uint64(1), ledger.wallet(t, bob).Balance)

	transfer := func(seed uint64) (common.Hash, error) {
		tx := &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 1, Seed: seed}
		return ledger.execute(t, newMessage(t, tx, alice))
	}

	_, err := transfer(1)
	require.NoError(err)
	a, b := ledger.wallet(t, alice), ledger.wallet(t, bob)
	require.Equal(uint64(0), a.Balance)
	require.Equal(uint64(2), b.Balance)
	require.Equal(uint64(2), a.HistoryLen)
	require.Equal(uint64(2), b.HistoryLen)

	hash, err := transfer(2)
	require.ErrorIs(err, InsufficientCurrencyAmount)
	require.Equal(a, ledger.wallet(t, alice))
	require.Equal(b, ledger.wallet(t, bob))

	status, found, err := ledger.api.TransactionResult(hash)
	require.NoError(err)
	require.True(found)
	require.Equal(InsufficientCurrencyAmount, status.Code)
}

func TestService_WalletsCanOnlyBeCreatedOnce(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice := newKey(t)

	ledger.createWallet(t, alice, "first")
	before := ledger.service.StateHash()

	_, err := ledger.execute(t, newMessage(t, &CreateWallet{PublicKey: alice.PublicKey(), Name: "second"}, alice))
	require.ErrorIs(err, WalletAlreadyExists)
	require.Equal("first", ledger.wallet(t, alice).Name)
	require.Equal(before, ledger.service.StateHash())
}

func TestService_ResubmittedCreateWalletIsRejectedAsDuplicate(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice := newKey(t)
	msg := newMessage(t, &CreateWallet{PublicKey: alice.PublicKey(), Name: "alice"}, alice)

	hash, err := ledger.execute(t, msg)
	require.NoError(err)
	before := ledger.service.StateHash()

	// A byte-identical message has the same hash and is not executed again.
	again, err := ledger.execute(t, msg)
	require.Equal(hash, again)
	require.ErrorIs(err, ErrDuplicateTransaction)
	require.NotErrorIs(err, WalletAlreadyExists)
	require.Equal(before, ledger.service.StateHash())

	status, found, err := ledger.api.TransactionResult(hash)
	require.NoError(err)
	require.True(found)
	require.Nil(status)
}

func TestService_FailedTransfersLeaveStateUnchanged(t *testing.T) {
	alice, bob, carol := newKey(t), newKey(t), newKey(t)
	tests := map[string]struct {
		tx   *Transfer
		want ErrorCode
	}{
		"unknown sender": {
			tx:   &Transfer{From: carol.PublicKey(), To: alice.PublicKey(), Amount: 1},
			want: SenderNotFound,
		},
		"unknown receiver": {
			tx:   &Transfer{From: alice.PublicKey(), To: carol.PublicKey(), Amount: 1},
			want: ReceiverNotFound,
		},
		"insufficient funds": {
			tx:   &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 2},
			want: InsufficientCurrencyAmount,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			ledger := newTestLedger(t)
			ledger.createWallet(t, alice, "alice")
			ledger.createWallet(t, bob, "bob")
			before := ledger.service.StateHash()

			signer := alice
			if test.tx.From == carol.PublicKey() {
				signer = carol
			}
			hash, err := ledger.execute(t, newMessage(t, test.tx, signer))
			require.ErrorIs(err, test.want)
			require.Equal(before, ledger.service.StateHash())

			_, found := ledger.api.Timestamp(hash)
			require.False(found)
			status, found, err := ledger.api.TransactionResult(hash)
			require.NoError(err)
			require.True(found)
			require.Equal(test.want, status.Code)
			require.Equal(test.want.Error(), status.Description)
		})
	}
}

func TestService_TransfersConserveTotalBalance(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	keys := []*SecretKey{newKey(t), newKey(t), newKey(t)}
	for _, key := range keys {
		ledger.createWallet(t, key, "")
	}

	var msgs []*Message
	for i := 0; i < 12; i++ {
		from, to := keys[i%3], keys[(i+1)%3]
		tx := &Transfer{From: from.PublicKey(), To: to.PublicKey(), Amount: uint64(i % 2), Seed: uint64(i)}
		msgs = append(msgs, newMessage(t, tx, from))
	}
	_, err := ledger.service.ExecuteBlock(msgs)
	require.NoError(err)

	total := uint64(0)
	for _, key := range keys {
		wallet := ledger.wallet(t, key)
		total += wallet.Balance
		require.Equal(wallet.HistoryLen, uint64(len(ledger.api.WalletHistory(key.PublicKey()))))
	}
	require.Equal(InitialBalance*uint64(len(keys)), total)
}

func TestService_SuccessfulTransfersAreRecordedEverywhere(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice, bob := newKey(t), newKey(t)
	ledger.createWallet(t, alice, "alice")
	ledger.createWallet(t, bob, "bob")

	msg := newMessage(t, &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 1}, alice)
	hash, err := ledger.execute(t, msg)
	require.NoError(err)

	require.Equal(hash, ledger.api.WalletHistory(alice.PublicKey())[1])
	require.Equal(hash, ledger.api.WalletHistory(bob.PublicKey())[1])
	timestamp, found := ledger.api.Timestamp(hash)
	require.True(found)
	require.Equal(testTime, timestamp)

	stored, found, err := ledger.api.Transaction(hash)
	require.NoError(err)
	require.True(found)
	require.Equal(msg, stored)

	status, found, err := ledger.api.TransactionResult(hash)
	require.NoError(err)
	require.True(found)
	require.Nil(status)
}

func TestService_RejectedMessagesLeaveNoTrace(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice, bob := newKey(t), newKey(t)
	ledger.createWallet(t, alice, "alice")
	before := ledger.service.StateHash()

	invalid := []*Message{
		newMessage(t, &Transfer{From: alice.PublicKey(), To: alice.PublicKey(), Amount: 1}, alice),
		newMessage(t, &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 1}, bob),
		newMessage(t, &CreateWallet{PublicKey: bob.PublicKey(), Name: "bob"}, alice),
	}
	results, err := ledger.service.ExecuteBlock(invalid)
	require.NoError(err)
	for _, res := range results {
		require.ErrorIs(res.Error, ErrInvalidTransaction)
		_, found, err := ledger.api.Transaction(res.Value)
		require.NoError(err)
		require.False(found)
		_, found, err = ledger.api.TransactionResult(res.Value)
		require.NoError(err)
		require.False(found)
	}
	require.Equal(before, ledger.service.StateHash())
}

func TestService_DuplicateMessagesAreRejected(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice := newKey(t)
	msg := newMessage(t, &CreateWallet{PublicKey: alice.PublicKey(), Name: "alice"}, alice)

	results, err := ledger.service.ExecuteBlock([]*Message{msg, msg})
	require.NoError(err)
	require.NoError(results[0].Error)
	require.ErrorIs(results[1].Error, ErrDuplicateTransaction)

	_, err = ledger.execute(t, msg)
	require.ErrorIs(err, ErrDuplicateTransaction)

	// The outcome of the first execution is kept.
	status, found, err := ledger.api.TransactionResult(results[0].Value)
	require.NoError(err)
	require.True(found)
	require.Nil(status)
}

func TestService_MissingTimeFailsTimeDependentTransactions(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	clock := NewMockClock(ctrl)
	clock.EXPECT().Now(gomock.Any()).Return(testTime, true).Times(2)
	clock.EXPECT().Now(gomock.Any()).Return(testTime, false).Times(2)

	db, err := storage.Open(kv.NewMemoryStore())
	require.NoError(err)
	defer func() { require.NoError(db.Close()) }()
	ledger := newTestLedgerOn(t, db, clock)

	alice, bob, carol := newKey(t), newKey(t), newKey(t)
	ledger.createWallet(t, alice, "alice")
	ledger.createWallet(t, bob, "bob")
	before := ledger.service.StateHash()

	results, err := ledger.service.ExecuteBlock([]*Message{
		newMessage(t, &CreateWallet{PublicKey: carol.PublicKey(), Name: "carol"}, carol),
		newMessage(t, &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 1}, alice),
	})
	require.NoError(err)
	require.ErrorIs(results[0].Error, TimeUnavailable)
	require.ErrorIs(results[1].Error, TimeUnavailable)
	require.Equal(before, ledger.service.StateHash())
}

func TestService_FailureChecksPrecedeTimeLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := NewMockClock(ctrl)
	clock.EXPECT().Now(gomock.Any()).Return(testTime, true)

	db, err := storage.Open(kv.NewMemoryStore())
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()
	ledger := newTestLedgerOn(t, db, clock)

	alice, bob := newKey(t), newKey(t)
	ledger.createWallet(t, alice, "alice")

	// No further clock calls are expected for transactions failing earlier checks.
	_, err = ledger.execute(t, newMessage(t, &CreateWallet{PublicKey: alice.PublicKey(), Name: "again"}, alice))
	require.ErrorIs(t, err, WalletAlreadyExists)
	_, err = ledger.execute(t, newMessage(t, &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 1}, alice))
	require.ErrorIs(t, err, ReceiverNotFound)
}

func TestService_RegistriesArePermissive(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice, bob := newKey(t), newKey(t)

	results, err := ledger.service.ExecuteBlock([]*Message{
		newMessage(t, &SetVoterList{PublicKey: alice.PublicKey(), Seed: 1}, alice),
		newMessage(t, &SetVoterList{PublicKey: bob.PublicKey(), Seed: 1}, bob),
		newMessage(t, &SetVoterList{PublicKey: alice.PublicKey(), Seed: 2}, alice),
		newMessage(t, &AddCandidate{PublicKey: bob.PublicKey(), Seed: 1}, bob),
	})
	require.NoError(err)
	for _, res := range results {
		require.False(res.Failed())
	}

	voters := ledger.api.Voters()
	require.Len(voters, 2)
	require.ElementsMatch([]common.PublicKey{alice.PublicKey(), bob.PublicKey()}, voters)
	require.Equal([]common.PublicKey{bob.PublicKey()}, ledger.api.Candidates())
}

func TestService_SelectionProbeHasNoEffectOnState(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice := newKey(t)

	_, err := ledger.execute(t, newMessage(t, &SelectionProbe{From: alice.PublicKey()}, alice))
	require.NoError(err)

	_, err = ledger.execute(t, newMessage(t, &SetVoterList{PublicKey: alice.PublicKey()}, alice))
	require.NoError(err)
	before := ledger.service.StateHash()

	hash, err := ledger.execute(t, newMessage(t, &SelectionProbe{From: alice.PublicKey(), Seed: 1}, alice))
	require.NoError(err)
	require.Equal(before, ledger.service.StateHash())
	_, found := ledger.api.Timestamp(hash)
	require.False(found)
}

func TestService_BlockResultsFollowMessageOrder(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice, bob := newKey(t), newKey(t)

	msgs := []*Message{
		newMessage(t, &CreateWallet{PublicKey: alice.PublicKey(), Name: "alice"}, alice),
		newMessage(t, &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 1}, alice),
		newMessage(t, &CreateWallet{PublicKey: bob.PublicKey(), Name: "bob"}, bob),
		newMessage(t, &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 1, Seed: 1}, alice),
	}
	results, err := ledger.service.ExecuteBlock(msgs)
	require.NoError(err)
	require.Len(results, len(msgs))

	want := []error{nil, ReceiverNotFound, nil, nil}
	for i, res := range results {
		hash, err := msgs[i].Hash()
		require.NoError(err)
		require.Equal(hash, res.Value)
		if want[i] == nil {
			require.NoError(res.Error)
		} else {
			require.ErrorIs(res.Error, want[i])
		}
	}
	require.Equal(uint64(0), ledger.wallet(t, alice).Balance)
	require.Equal(uint64(2), ledger.wallet(t, bob).Balance)
}

func TestService_StateSurvivesRestart(t *testing.T) {
	for _, backend := range []kv.Backend{kv.LevelDb, kv.SQLite} {
		t.Run(string(backend), func(t *testing.T) {
			require := require.New(t)
			params := Parameters{Directory: t.TempDir(), Backend: backend, LogLevel: "info"}
			alice, bob := newKey(t), newKey(t)

			db, err := params.OpenDatabase()
			require.NoError(err)
			ledger := newTestLedgerOn(t, db, StoredClock{})
			ledger.createWallet(t, alice, "alice")
			ledger.createWallet(t, bob, "bob")
			hash, err := ledger.execute(t, newMessage(t, &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 1}, alice))
			require.NoError(err)
			stateHash := ledger.service.StateHash()
			history := ledger.api.WalletHistory(bob.PublicKey())
			require.NoError(db.Close())

			db, err = params.OpenDatabase()
			require.NoError(err)
			defer func() { require.NoError(db.Close()) }()
			api := NewAPI(db)
			require.Equal(stateHash, api.StateHash())
			require.Equal(history, api.WalletHistory(bob.PublicKey()))
			_, found, err := api.Transaction(hash)
			require.NoError(err)
			require.True(found)
		})
	}
}

func TestAPI_WalletProofsVerify(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice, bob := newKey(t), newKey(t)
	ledger.createWallet(t, alice, "alice")

	info, err := ledger.api.WalletProof(alice.PublicKey())
	require.NoError(err)
	require.NotNil(info.Wallet)
	require.Equal(ledger.service.StateHash(), info.StateHash)
	require.NoError(info.Verify(alice.PublicKey()))

	absent, err := ledger.api.WalletProof(bob.PublicKey())
	require.NoError(err)
	require.Nil(absent.Wallet)
	require.NoError(absent.Verify(bob.PublicKey()))

	info.Wallet.Balance = 100
	require.Error(info.Verify(alice.PublicKey()))
}

func TestAPI_WalletHistoryProofsVerify(t *testing.T) {
	require := require.New(t)
	ledger := newTestLedger(t)
	alice, bob := newKey(t), newKey(t)
	created := ledger.createWallet(t, alice, "alice")
	ledger.createWallet(t, bob, "bob")

	var hashes []common.Hash
	for i := 0; i < 4; i++ {
		tx := &Transfer{From: alice.PublicKey(), To: bob.PublicKey(), Amount: 1, Seed: uint64(i)}
		hash, err := ledger.execute(t, newMessage(t, tx, alice))
		require.NoError(err)
		hashes = append(hashes, hash)
	}
	wallet := ledger.wallet(t, alice)
	require.Equal(uint64(5), wallet.HistoryLen)

	for i, want := range append([]common.Hash{created}, hashes...) {
		proof, found, err := ledger.api.WalletHistoryProof(alice.PublicKey(), uint64(i))
		require.NoError(err)
		require.True(found)
		require.Equal(want, proof.Transaction)
		require.NoError(proof.Verify(&wallet))
	}

	proof, found, err := ledger.api.WalletHistoryProof(alice.PublicKey(), 1)
	require.NoError(err)
	require.True(found)
	proof.Transaction = created
	require.ErrorIs(proof.Verify(&wallet), merkle.ErrInvalidProof)

	bobs := ledger.wallet(t, bob)
	proof.Transaction = hashes[0]
	require.ErrorIs(proof.Verify(&bobs), merkle.ErrInvalidProof)

	_, found, err = ledger.api.WalletHistoryProof(alice.PublicKey(), 5)
	require.NoError(err)
	require.False(found)
}

func TestAPI_UnknownTransactionsAreNotFound(t *testing.T) {
	ledger := newTestLedger(t)
	_, found, err := ledger.api.TransactionResult(common.Hash{1})
	require.NoError(t, err)
	require.False(t, found)
	_, found, err = ledger.api.Transaction(common.Hash{1})
	require.NoError(t, err)
	require.False(t, found)
}

func TestService_IndependentReplaysProduceIdenticalState(t *testing.T) {
	require := require.New(t)
	alice, bob := newKey(t), newKey(t)

	const numTransfers = 10
	msgs := []*Message{
		newMessage(t, &CreateWallet{PublicKey: alice.PublicKey(), Name: "alice"}, alice),
		newMessage(t, &CreateWallet{PublicKey: bob.PublicKey(), Name: "bob"}, bob),
	}
	for i := range numTransfers {
		from, to := alice, bob
		if i%2 == 1 {
			from, to = bob, alice
		}
		tx := &Transfer{From: from.PublicKey(), To: to.PublicKey(), Amount: 1, Seed: uint64(i)}
		msgs = append(msgs, newMessage(t, tx, from))
	}

	inOneBlock := newTestLedger(t)
	results, err := inOneBlock.service.ExecuteBlock(msgs)
	require.NoError(err)
	for _, res := range results {
		require.NoError(res.Error)
	}

	blockByBlock := newTestLedger(t)
	for _, msg := range msgs {
		_, err := blockByBlock.execute(t, msg)
		require.NoError(err)
	}

	require.Equal(inOneBlock.service.StateHash(), blockByBlock.service.StateHash())
	for _, key := range []*SecretKey{alice, bob} {
		first, second := inOneBlock.wallet(t, key), blockByBlock.wallet(t, key)
		require.Equal(first, second)
		require.Equal(uint64(1+numTransfers), first.HistoryLen)
		require.Equal(first.HistoryHash, merkle.Root(inOneBlock.api.WalletHistory(key.PublicKey())))
	}
}
