package storage

import (
	"fmt"

	"code.emberchain.io/ember/types"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/ethereum/go-ethereum/common"
)

// rowVersion prefixes every encoded row, so the layout can evolve without
// a database migration.
const rowVersion byte = 1

// Rows are plain structs with cramberry struct tags for deterministic
// binary serialization; the model types in the types package stay free of
// codec concerns.

type snapshotRow struct {
	ID        uint64   `cramberry:"1"`
	Height    uint64   `cramberry:"2"`
	ChunkIDs  []uint64 `cramberry:"3"`
	BlockIDs  []uint64 `cramberry:"4"`
	BlockHash [32]byte `cramberry:"5"`
}

type chunkRow struct {
	SnapshotID    uint64   `cramberry:"1"`
	Data          [][]byte `cramberry:"2"`
	StartingBlock uint64   `cramberry:"3"`
	EndingBlock   uint64   `cramberry:"4"`
}

type snapshotSyncRow struct {
	Height                uint64   `cramberry:"1"`
	TotalChunks           uint64   `cramberry:"2"`
	LastAppliedChunkIndex uint64   `cramberry:"3"`
	SnapshotHash          [32]byte `cramberry:"4"`
	Format                uint64   `cramberry:"5"`
}

type walletSyncRow struct {
	SessionID   [32]byte `cramberry:"1"`
	PeerID      [64]byte `cramberry:"2"`
	Blocks      []uint64 `cramberry:"3"`
	Data        [][]byte `cramberry:"4"`
	ChunksCount uint64   `cramberry:"5"`
}

func encodeRow(row any) ([]byte, error) {
	enc, err := cramberry.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("could not encode row: %w", err)
	}
	out := make([]byte, 0, len(enc)+1)
	out = append(out, rowVersion)
	return append(out, enc...), nil
}

func decodeRow(data []byte, row any) error {
	if len(data) == 0 {
		return ErrEmptyRow
	}
	if data[0] != rowVersion {
		return fmt.Errorf("%w: %d", ErrUnknownRowVersion, data[0])
	}
	if err := cramberry.Unmarshal(data[1:], row); err != nil {
		return fmt.Errorf("could not decode row: %w", err)
	}
	return nil
}

func snapshotToRow(s *types.Snapshot) *snapshotRow {
	return &snapshotRow{
		ID:        s.ID(),
		Height:    s.Height(),
		ChunkIDs:  s.ChunkIDs(),
		BlockIDs:  s.BlockIDs(),
		BlockHash: s.BlockHash(),
	}
}

func (r *snapshotRow) toSnapshot() *types.Snapshot {
	snap := types.NewSnapshot(r.ID, r.Height, common.Hash(r.BlockHash))
	snap.SetChunkIDs(r.ChunkIDs)
	snap.SetBlockIDs(r.BlockIDs)
	return snap
}

func chunkToRow(c *types.SnapshotChunk) *chunkRow {
	return &chunkRow{
		SnapshotID:    c.SnapshotID(),
		Data:          c.Data(),
		StartingBlock: c.StartingBlock(),
		EndingBlock:   c.EndingBlock(),
	}
}

func (r *chunkRow) toChunk() *types.SnapshotChunk {
	var first []byte
	if len(r.Data) > 0 {
		first = r.Data[0]
	}
	chunk := types.NewSnapshotChunk(r.SnapshotID, r.StartingBlock, first)
	for _, d := range r.Data[1:] {
		chunk.Append(d, r.EndingBlock)
	}
	return chunk
}

func snapshotSyncToRow(s *types.SnapshotSync) *snapshotSyncRow {
	return &snapshotSyncRow{
		Height:                s.Height(),
		TotalChunks:           s.TotalChunks(),
		LastAppliedChunkIndex: s.LastAppliedChunkIndex(),
		SnapshotHash:          s.SnapshotHash(),
		Format:                s.Format(),
	}
}

func (r *snapshotSyncRow) toSnapshotSync() *types.SnapshotSync {
	sync := types.NewSnapshotSync(r.Height, common.Hash(r.SnapshotHash), r.Format, r.TotalChunks)
	sync.SetLastAppliedChunkIndex(r.LastAppliedChunkIndex)
	return sync
}

func walletSyncToRow(rec *types.WalletSyncRecord) *walletSyncRow {
	return &walletSyncRow{
		SessionID:   rec.SessionID(),
		PeerID:      rec.PeerID(),
		Blocks:      rec.Blocks(),
		Data:        rec.Data(),
		ChunksCount: rec.ChunksCount(),
	}
}

func (r *walletSyncRow) toWalletSyncRecord() *types.WalletSyncRecord {
	n := len(r.Blocks)
	if len(r.Data) < n {
		n = len(r.Data)
	}
	pairs := make([]types.WalletSyncEntry, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, types.WalletSyncEntry{Block: r.Blocks[i], Data: r.Data[i]})
	}
	return types.NewWalletSyncRecord(r.PeerID, r.SessionID, r.ChunksCount, pairs)
}
