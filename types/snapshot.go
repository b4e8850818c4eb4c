package types

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrSnapshotHashMismatch = errors.New("snapshot hashes do not match")
	ErrSnapshotRetryLimit   = errors.New("could not load snapshot, retry limit reached")
	ErrUnknownSnapshot      = errors.New("no snapshot in progress")
	ErrUnknownChunk         = errors.New("no chunk found for the given chunk id")
	ErrNoChunksExpected     = errors.New("snapshot sync expects no further chunks")
)

// SnapshotChunk is the storage of a single chunk within a snapshot: an
// ordered buffer of raw block bytes covering a contiguous block-number
// range. The same snapshot is expected to have multiple chunks.
type SnapshotChunk struct {
	snapshotID    uint64
	data          [][]byte
	startingBlock uint64
	endingBlock   uint64
}

// NewSnapshotChunk creates a chunk holding a single buffer, covering just
// its starting block.
func NewSnapshotChunk(snapshotID, startingBlock uint64, data []byte) *SnapshotChunk {
	return &SnapshotChunk{
		snapshotID:    snapshotID,
		data:          [][]byte{data},
		startingBlock: startingBlock,
		endingBlock:   startingBlock,
	}
}

// Append pushes a buffer onto the chunk and moves the ending block to the
// given value. The caller owns block-range ordering; no monotonicity check
// is performed here.
func (c *SnapshotChunk) Append(data []byte, endingBlock uint64) {
	c.data = append(c.data, data)
	c.endingBlock = endingBlock
}

// Size returns the chunk's storage footprint: the 8-byte identifier plus
// all buffered bytes.
func (c *SnapshotChunk) Size() int {
	size := 8
	for _, d := range c.data {
		size += len(d)
	}
	return size
}

func (c *SnapshotChunk) SnapshotID() uint64 {
	return c.snapshotID
}

func (c *SnapshotChunk) Data() [][]byte {
	return c.data
}

func (c *SnapshotChunk) StartingBlock() uint64 {
	return c.startingBlock
}

func (c *SnapshotChunk) EndingBlock() uint64 {
	return c.endingBlock
}

// Snapshot aggregates the chunk ids and block ids of a chain state captured
// at a given height. Its digest is the value nodes compare to agree they
// reconstructed the same state without exchanging full payloads.
type Snapshot struct {
	id        uint64
	height    uint64
	chunkIDs  []uint64
	blockIDs  []uint64
	blockHash common.Hash

	// presence indexes for the if-absent inserts, maintained incrementally
	chunkIdx map[uint64]struct{}
	blockIdx map[uint64]struct{}
}

// NewSnapshot creates an empty snapshot for the given id, height and block
// hash.
func NewSnapshot(id, height uint64, blockHash common.Hash) *Snapshot {
	return &Snapshot{
		id:        id,
		height:    height,
		blockHash: blockHash,
		chunkIdx:  map[uint64]struct{}{},
		blockIdx:  map[uint64]struct{}{},
	}
}

func (s *Snapshot) ensureIndexes() {
	if s.chunkIdx == nil {
		s.chunkIdx = make(map[uint64]struct{}, len(s.chunkIDs))
		for _, id := range s.chunkIDs {
			s.chunkIdx[id] = struct{}{}
		}
	}
	if s.blockIdx == nil {
		s.blockIdx = make(map[uint64]struct{}, len(s.blockIDs))
		for _, id := range s.blockIDs {
			s.blockIdx[id] = struct{}{}
		}
	}
}

func (s *Snapshot) SetID(id uint64) {
	s.id = id
}

func (s *Snapshot) SetHeight(height uint64) {
	s.height = height
}

func (s *Snapshot) SetBlockHash(blockHash common.Hash) {
	s.blockHash = blockHash
}

// AddChunkID appends a chunk id without any uniqueness requirement.
func (s *Snapshot) AddChunkID(chunkID uint64) {
	s.ensureIndexes()
	s.chunkIDs = append(s.chunkIDs, chunkID)
	s.chunkIdx[chunkID] = struct{}{}
}

// SetChunkIDs replaces the chunk ids wholesale.
func (s *Snapshot) SetChunkIDs(chunkIDs []uint64) {
	s.chunkIDs = chunkIDs
	s.chunkIdx = nil
	s.ensureIndexes()
}

// AddBlockID appends a block id without any uniqueness requirement.
func (s *Snapshot) AddBlockID(blockID uint64) {
	s.ensureIndexes()
	s.blockIDs = append(s.blockIDs, blockID)
	s.blockIdx[blockID] = struct{}{}
}

// SetBlockIDs replaces the block ids wholesale.
func (s *Snapshot) SetBlockIDs(blockIDs []uint64) {
	s.blockIDs = blockIDs
	s.blockIdx = nil
	s.ensureIndexes()
}

// AddChunkIDIfAbsent appends the chunk id only if the snapshot doesn't hold
// it yet, and reports whether it was added.
func (s *Snapshot) AddChunkIDIfAbsent(chunkID uint64) bool {
	s.ensureIndexes()
	if _, ok := s.chunkIdx[chunkID]; ok {
		return false
	}
	s.chunkIdx[chunkID] = struct{}{}
	s.chunkIDs = append(s.chunkIDs, chunkID)
	return true
}

// AddBlockIDIfAbsent appends the block id only if the snapshot doesn't hold
// it yet, and reports whether it was added.
func (s *Snapshot) AddBlockIDIfAbsent(blockID uint64) bool {
	s.ensureIndexes()
	if _, ok := s.blockIdx[blockID]; ok {
		return false
	}
	s.blockIdx[blockID] = struct{}{}
	s.blockIDs = append(s.blockIDs, blockID)
	return true
}

// HasChunkID reports whether the snapshot already holds the chunk id.
func (s *Snapshot) HasChunkID(chunkID uint64) bool {
	s.ensureIndexes()
	_, ok := s.chunkIdx[chunkID]
	return ok
}

// HasBlockID reports whether the snapshot already holds the block id.
func (s *Snapshot) HasBlockID(blockID uint64) bool {
	s.ensureIndexes()
	_, ok := s.blockIdx[blockID]
	return ok
}

// LatestChunkID returns the most recently added chunk id, if any.
func (s *Snapshot) LatestChunkID() (uint64, bool) {
	if len(s.chunkIDs) == 0 {
		return 0, false
	}
	return s.chunkIDs[len(s.chunkIDs)-1], true
}

// OldestChunkID returns the first added chunk id, if any.
func (s *Snapshot) OldestChunkID() (uint64, bool) {
	if len(s.chunkIDs) == 0 {
		return 0, false
	}
	return s.chunkIDs[0], true
}

// Size returns the total size in bytes of the snapshot's fixed fields and
// id sequences.
func (s *Snapshot) Size() int {
	return 8 + common.HashLength + 8*len(s.blockIDs) + 8*len(s.chunkIDs)
}

func (s *Snapshot) ID() uint64 {
	return s.id
}

func (s *Snapshot) Height() uint64 {
	return s.height
}

func (s *Snapshot) ChunkIDs() []uint64 {
	return s.chunkIDs
}

func (s *Snapshot) BlockIDs() []uint64 {
	return s.blockIDs
}

func (s *Snapshot) BlockHash() common.Hash {
	return s.blockHash
}

// Hash returns the sha256 digest of the snapshot: id, height, chunk ids in
// append order, block ids in append order, then the block hash, with all
// integer fields framed little-endian. Two snapshots assembled independently
// from the same values always digest identically.
func (s *Snapshot) Hash() []byte {
	h := sha256.New()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, s.id)
	h.Write(buf)
	binary.LittleEndian.PutUint64(buf, s.height)
	h.Write(buf)
	for _, chunkID := range s.chunkIDs {
		binary.LittleEndian.PutUint64(buf, chunkID)
		h.Write(buf)
	}
	for _, blockID := range s.blockIDs {
		binary.LittleEndian.PutUint64(buf, blockID)
		h.Write(buf)
	}
	h.Write(s.blockHash[:])
	return h.Sum(nil)
}

// SnapshotSync tracks how far the application of a snapshot has progressed,
// so a node restarting mid-sync can resume from the last applied chunk
// rather than start over.
type SnapshotSync struct {
	height                uint64
	totalChunks           uint64
	lastAppliedChunkIndex uint64
	snapshotHash          common.Hash
	format                uint64
}

// NewSnapshotSync starts progress tracking for a snapshot whose chunk count
// and target hash are known. No chunks are applied yet.
func NewSnapshotSync(height uint64, snapshotHash common.Hash, format, totalChunks uint64) *SnapshotSync {
	return &SnapshotSync{
		height:       height,
		totalChunks:  totalChunks,
		snapshotHash: snapshotHash,
		format:       format,
	}
}

func (s *SnapshotSync) SetHeight(height uint64) {
	s.height = height
}

func (s *SnapshotSync) SetTotalChunks(totalChunks uint64) {
	s.totalChunks = totalChunks
}

// SetLastAppliedChunkIndex overwrites the applied-chunk watermark. The
// caller guarantees monotonicity and the upper bound.
func (s *SnapshotSync) SetLastAppliedChunkIndex(i uint64) {
	s.lastAppliedChunkIndex = i
}

func (s *SnapshotSync) Height() uint64 {
	return s.height
}

func (s *SnapshotSync) SnapshotHash() common.Hash {
	return s.snapshotHash
}

func (s *SnapshotSync) TotalChunks() uint64 {
	return s.totalChunks
}

func (s *SnapshotSync) LastAppliedChunkIndex() uint64 {
	return s.lastAppliedChunkIndex
}

func (s *SnapshotSync) Format() uint64 {
	return s.format
}

// Complete reports whether every expected chunk has been applied.
func (s *SnapshotSync) Complete() bool {
	return s.lastAppliedChunkIndex == s.totalChunks
}
