package walletsync_test

import (
	"testing"

	"code.emberchain.io/ember/logging"
	"code.emberchain.io/ember/storage"
	"code.emberchain.io/ember/types"
	"code.emberchain.io/ember/walletsync"

	"github.com/stretchr/testify/require"
)

var (
	peerA   = types.PeerID{0xaa}
	peerB   = types.PeerID{0xbb}
	session = types.SessionID{0x01}
)

type testEngine struct {
	*walletsync.Engine
	store *storage.Store
}

func getTestEngine(t *testing.T) *testEngine {
	t.Helper()
	st, err := storage.New(logging.NewTestLogger(), storage.NewTestConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})
	return &testEngine{
		Engine: walletsync.New(logging.NewTestLogger(), walletsync.NewDefaultConfig(), st),
		store:  st,
	}
}

func TestStartRecord(t *testing.T) {
	t.Run("a record opens once per session and peer", testStartRecordOnce)
	t.Run("seed pairs are part of the opened record", testStartRecordSeed)
}

func TestAddPair(t *testing.T) {
	t.Run("pairs accumulate and persist", testAddPairAccumulates)
	t.Run("duplicates on either axis are dropped", testAddPairDuplicates)
	t.Run("pairs need an open record", testAddPairUnknownSession)
	t.Run("batched pairs must match in length", testAddPairsLengthMismatch)
}

func TestConverged(t *testing.T) {
	t.Run("peers converge regardless of arrival order", testConvergedOutOfOrder)
	t.Run("diverged peers are reported", testConvergedDiverged)
	t.Run("convergence needs at least two peers", testConvergedNotEnoughPeers)
	t.Run("convergence waits for every expected chunk", testConvergedIncompleteSession)
}

func TestResumeSession(t *testing.T) {
	t.Run("a restarted engine reloads every peer's record", testResumeSession)
}

func testStartRecordOnce(t *testing.T) {
	eng := getTestEngine(t)
	require.NoError(t, eng.StartRecord(peerA, session, 2, nil))
	require.ErrorIs(t, eng.StartRecord(peerA, session, 2, nil), walletsync.ErrSessionExists)

	// same peer, other session is fine
	require.NoError(t, eng.StartRecord(peerA, types.SessionID{0x02}, 2, nil))
	// other peer, same session is fine
	require.NoError(t, eng.StartRecord(peerB, session, 2, nil))
}

func testStartRecordSeed(t *testing.T) {
	eng := getTestEngine(t)
	seed := []types.WalletSyncEntry{{Block: 10, Data: []byte{1}}}
	require.NoError(t, eng.StartRecord(peerA, session, 1, seed))

	rec, err := eng.Record(peerA, session)
	require.NoError(t, err)
	require.Equal(t, seed, rec.Entries())

	// seeded pairs count for dedup
	added, err := eng.AddPair(peerA, session, []byte{1}, 20)
	require.NoError(t, err)
	require.False(t, added)
}

func testAddPairAccumulates(t *testing.T) {
	eng := getTestEngine(t)
	require.NoError(t, eng.StartRecord(peerA, session, 1, nil))

	added, err := eng.AddPair(peerA, session, []byte{1}, 10)
	require.NoError(t, err)
	require.True(t, added)
	added, err = eng.AddPair(peerA, session, []byte{2}, 11)
	require.NoError(t, err)
	require.True(t, added)

	rec, err := eng.Record(peerA, session)
	require.NoError(t, err)
	require.Equal(t, []uint64{10, 11}, rec.Blocks())

	// the record is durable, pair by pair
	stored, err := eng.store.GetWalletSyncRecord(session, peerA)
	require.NoError(t, err)
	require.Equal(t, rec.Entries(), stored.Entries())

	hash, err := eng.RecordHash(peerA, session)
	require.NoError(t, err)
	require.Equal(t, rec.Hash(), hash)
}

func testAddPairDuplicates(t *testing.T) {
	eng := getTestEngine(t)
	require.NoError(t, eng.StartRecord(peerA, session, 1, nil))

	added, err := eng.AddPair(peerA, session, []byte{1}, 10)
	require.NoError(t, err)
	require.True(t, added)

	// known payload under a new block
	added, err = eng.AddPair(peerA, session, []byte{1}, 11)
	require.NoError(t, err)
	require.False(t, added)

	// known block with a new payload
	added, err = eng.AddPair(peerA, session, []byte{2}, 10)
	require.NoError(t, err)
	require.False(t, added)

	rec, err := eng.Record(peerA, session)
	require.NoError(t, err)
	require.Len(t, rec.Entries(), 1)
}

func testAddPairUnknownSession(t *testing.T) {
	eng := getTestEngine(t)
	_, err := eng.AddPair(peerA, session, []byte{1}, 10)
	require.ErrorIs(t, err, walletsync.ErrUnknownSession)
	_, err = eng.Record(peerA, session)
	require.ErrorIs(t, err, walletsync.ErrUnknownSession)
	_, err = eng.RecordHash(peerA, session)
	require.ErrorIs(t, err, walletsync.ErrUnknownSession)
}

func testAddPairsLengthMismatch(t *testing.T) {
	eng := getTestEngine(t)
	require.NoError(t, eng.StartRecord(peerA, session, 1, nil))
	err := eng.AddPairs(peerA, session, [][]byte{{1}, {2}}, []uint64{10})
	require.ErrorIs(t, err, walletsync.ErrLengthMismatch)
}

func testConvergedOutOfOrder(t *testing.T) {
	eng := getTestEngine(t)
	require.NoError(t, eng.StartRecord(peerA, session, 1, nil))
	require.NoError(t, eng.StartRecord(peerB, session, 1, nil))

	require.NoError(t, eng.AddPairs(peerA, session, [][]byte{{1}, {2}, {3}}, []uint64{10, 11, 12}))
	require.NoError(t, eng.AddPairs(peerB, session, [][]byte{{3}, {1}, {2}}, []uint64{12, 10, 11}))

	ok, err := eng.Converged(session)
	require.NoError(t, err)
	require.True(t, ok)
}

func testConvergedDiverged(t *testing.T) {
	eng := getTestEngine(t)
	require.NoError(t, eng.StartRecord(peerA, session, 1, nil))
	require.NoError(t, eng.StartRecord(peerB, session, 1, nil))

	require.NoError(t, eng.AddPairs(peerA, session, [][]byte{{1}, {2}}, []uint64{10, 11}))
	require.NoError(t, eng.AddPairs(peerB, session, [][]byte{{1}, {9}}, []uint64{10, 11}))

	ok, err := eng.Converged(session)
	require.NoError(t, err)
	require.False(t, ok)
}

func testConvergedNotEnoughPeers(t *testing.T) {
	eng := getTestEngine(t)
	_, err := eng.Converged(session)
	require.ErrorIs(t, err, walletsync.ErrNotEnoughPeers)

	require.NoError(t, eng.StartRecord(peerA, session, 1, nil))
	_, err = eng.Converged(session)
	require.ErrorIs(t, err, walletsync.ErrNotEnoughPeers)
}

func testConvergedIncompleteSession(t *testing.T) {
	eng := getTestEngine(t)
	require.NoError(t, eng.StartRecord(peerA, session, 2, nil))
	require.NoError(t, eng.StartRecord(peerB, session, 2, nil))

	require.NoError(t, eng.AddPairs(peerA, session, [][]byte{{1}, {2}}, []uint64{10, 11}))
	// peer B still expects one more chunk
	require.NoError(t, eng.AddPairs(peerB, session, [][]byte{{1}}, []uint64{10}))

	_, err := eng.Converged(session)
	require.ErrorIs(t, err, walletsync.ErrSessionNotComplete)

	added, err := eng.AddPair(peerB, session, []byte{2}, 11)
	require.NoError(t, err)
	require.True(t, added)

	ok, err := eng.Converged(session)
	require.NoError(t, err)
	require.True(t, ok)
}

func testResumeSession(t *testing.T) {
	st, err := storage.New(logging.NewTestLogger(), storage.NewTestConfig())
	require.NoError(t, err)
	defer st.Close()

	eng := walletsync.New(logging.NewTestLogger(), walletsync.NewDefaultConfig(), st)
	require.NoError(t, eng.StartRecord(peerA, session, 1, nil))
	require.NoError(t, eng.StartRecord(peerB, session, 1, nil))
	require.NoError(t, eng.AddPairs(peerA, session, [][]byte{{1}, {2}}, []uint64{10, 11}))
	require.NoError(t, eng.AddPairs(peerB, session, [][]byte{{2}, {1}}, []uint64{11, 10}))

	resumed := walletsync.New(logging.NewTestLogger(), walletsync.NewDefaultConfig(), st)
	require.NoError(t, resumed.Resume(session))

	rec, err := resumed.Record(peerA, session)
	require.NoError(t, err)
	require.Equal(t, []uint64{10, 11}, rec.Blocks())

	ok, err := resumed.Converged(session)
	require.NoError(t, err)
	require.True(t, ok)

	// the reloaded record keeps deduplicating
	added, err := resumed.AddPair(peerA, session, []byte{1}, 30)
	require.NoError(t, err)
	require.False(t, added)
}
