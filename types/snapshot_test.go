package types_test

import (
	"encoding/hex"
	"testing"

	"code.emberchain.io/ember/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSnapshotChunk(t *testing.T) {
	t.Run("new chunk covers its starting block only", testChunkNew)
	t.Run("append grows the buffer and moves the ending block", testChunkAppend)
	t.Run("size accounts for the id word and every buffer", testChunkSize)
}

func TestSnapshot(t *testing.T) {
	t.Run("if-absent inserts reject duplicates", testSnapshotIfAbsent)
	t.Run("latest and oldest chunk ids", testSnapshotLatestOldest)
	t.Run("size accounts for fixed fields and id sequences", testSnapshotSize)
	t.Run("hash is deterministic for identical content", testSnapshotHashDeterministic)
	t.Run("hash changes with the block hash", testSnapshotHashBlockHash)
	t.Run("hash matches the reference digest", testSnapshotHashVector)
	t.Run("wholesale setters rebuild the presence indexes", testSnapshotSetIDs)
}

func TestSnapshotSync(t *testing.T) {
	t.Run("new sync starts with nothing applied", testSnapshotSyncNew)
	t.Run("complete only when every chunk is applied", testSnapshotSyncComplete)
}

func testChunkNew(t *testing.T) {
	c := types.NewSnapshotChunk(7, 100, []byte{1, 2, 3})
	require.Equal(t, uint64(7), c.SnapshotID())
	require.Equal(t, uint64(100), c.StartingBlock())
	require.Equal(t, uint64(100), c.EndingBlock())
	require.Len(t, c.Data(), 1)
	require.Equal(t, []byte{1, 2, 3}, c.Data()[0])
}

func testChunkAppend(t *testing.T) {
	c := types.NewSnapshotChunk(7, 100, []byte{1})
	c.Append([]byte{2, 2}, 101)
	c.Append([]byte{3, 3, 3}, 102)
	require.Len(t, c.Data(), 3)
	require.Equal(t, uint64(100), c.StartingBlock())
	require.Equal(t, uint64(102), c.EndingBlock())
}

func testChunkSize(t *testing.T) {
	c := types.NewSnapshotChunk(7, 100, []byte{1, 2, 3})
	require.Equal(t, 8+3, c.Size())
	c.Append(make([]byte, 10), 101)
	require.Equal(t, 8+3+10, c.Size())
	empty := types.NewSnapshotChunk(7, 100, nil)
	require.Equal(t, 8, empty.Size())
}

func testSnapshotIfAbsent(t *testing.T) {
	s := types.NewSnapshot(1, 500, common.Hash{})
	require.True(t, s.AddChunkIDIfAbsent(10))
	require.True(t, s.AddChunkIDIfAbsent(11))
	require.False(t, s.AddChunkIDIfAbsent(10))
	require.Equal(t, []uint64{10, 11}, s.ChunkIDs())

	require.True(t, s.AddBlockIDIfAbsent(100))
	require.False(t, s.AddBlockIDIfAbsent(100))
	require.True(t, s.AddBlockIDIfAbsent(101))
	require.Equal(t, []uint64{100, 101}, s.BlockIDs())

	require.True(t, s.HasChunkID(10))
	require.False(t, s.HasChunkID(12))
	require.True(t, s.HasBlockID(101))
	require.False(t, s.HasBlockID(102))
}

func testSnapshotLatestOldest(t *testing.T) {
	s := types.NewSnapshot(1, 500, common.Hash{})
	_, ok := s.LatestChunkID()
	require.False(t, ok)
	_, ok = s.OldestChunkID()
	require.False(t, ok)

	s.AddChunkID(10)
	s.AddChunkID(11)
	s.AddChunkID(12)
	latest, ok := s.LatestChunkID()
	require.True(t, ok)
	require.Equal(t, uint64(12), latest)
	oldest, ok := s.OldestChunkID()
	require.True(t, ok)
	require.Equal(t, uint64(10), oldest)
}

func testSnapshotSize(t *testing.T) {
	s := types.NewSnapshot(1, 500, common.Hash{})
	require.Equal(t, 8+32, s.Size())
	s.AddChunkID(10)
	s.AddChunkID(11)
	s.AddBlockID(100)
	require.Equal(t, 8+32+2*8+8, s.Size())
}

func testSnapshotHashDeterministic(t *testing.T) {
	hash := common.HexToHash("0xdeadbeef")
	a := types.NewSnapshot(1, 500, hash)
	a.AddChunkID(10)
	a.AddBlockID(100)
	b := types.NewSnapshot(1, 500, hash)
	b.AddChunkID(10)
	b.AddBlockID(100)
	require.Equal(t, a.Hash(), b.Hash())

	b.AddBlockID(101)
	require.NotEqual(t, a.Hash(), b.Hash())
}

func testSnapshotHashBlockHash(t *testing.T) {
	a := types.NewSnapshot(1, 500, common.Hash{})
	b := types.NewSnapshot(1, 500, common.HexToHash("0x01"))
	require.NotEqual(t, a.Hash(), b.Hash())
}

func testSnapshotHashVector(t *testing.T) {
	s := types.NewSnapshot(100, 12000, common.Hash{})
	s.AddChunkID(1)
	s.AddChunkID(2)
	s.AddBlockID(1001)
	require.Equal(t,
		"55418ead0d08a6acc2544763f47641046787942f196eaf4a3b7de4f7c6d94e98",
		hex.EncodeToString(s.Hash()),
	)
}

func testSnapshotSetIDs(t *testing.T) {
	s := types.NewSnapshot(1, 500, common.Hash{})
	s.SetChunkIDs([]uint64{1, 2, 3})
	s.SetBlockIDs([]uint64{100})
	require.False(t, s.AddChunkIDIfAbsent(2))
	require.True(t, s.AddChunkIDIfAbsent(4))
	require.False(t, s.AddBlockIDIfAbsent(100))
	require.True(t, s.AddBlockIDIfAbsent(101))
}

func testSnapshotSyncNew(t *testing.T) {
	hash := common.HexToHash("0xcafe")
	ss := types.NewSnapshotSync(12000, hash, 1, 4)
	require.Equal(t, uint64(12000), ss.Height())
	require.Equal(t, hash, ss.SnapshotHash())
	require.Equal(t, uint64(1), ss.Format())
	require.Equal(t, uint64(4), ss.TotalChunks())
	require.Zero(t, ss.LastAppliedChunkIndex())
	require.False(t, ss.Complete())
}

func testSnapshotSyncComplete(t *testing.T) {
	ss := types.NewSnapshotSync(12000, common.Hash{}, 1, 2)
	ss.SetLastAppliedChunkIndex(1)
	require.False(t, ss.Complete())
	ss.SetLastAppliedChunkIndex(2)
	require.True(t, ss.Complete())

	none := types.NewSnapshotSync(12000, common.Hash{}, 1, 0)
	require.True(t, none.Complete())
}
