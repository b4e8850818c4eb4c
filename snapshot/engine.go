// Package snapshot orchestrates a chunked snapshot-sync session: it accepts
// a snapshot offered by a peer, applies the chunks as they arrive, keeps the
// progress durable so a restart resumes instead of starting over, and
// verifies the assembled snapshot against the expected hash.
package snapshot

import (
	"bytes"
	"sync"

	"code.emberchain.io/ember/logging"
	"code.emberchain.io/ember/metrics"
	"code.emberchain.io/ember/storage"
	"code.emberchain.io/ember/types"

	"github.com/ethereum/go-ethereum/common"
)

// Engine is the snapshot sync engine. All mutations on a sync session go
// through it, one session at a time.
type Engine struct {
	Config

	log   *logging.Logger
	store *storage.Store

	mu       sync.Mutex
	snapshot *types.Snapshot
	progress *types.SnapshotSync
	chunks   map[uint64]*types.SnapshotChunk

	snapRetry int
}

// New returns a new snapshot engine persisting through the given store.
func New(log *logging.Logger, conf Config, store *storage.Store) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(conf.Level.Get())
	return &Engine{
		Config: conf,
		log:    log,
		store:  store,
		chunks: map[uint64]*types.SnapshotChunk{},
	}
}

// ReceiveSnapshot registers a snapshot offered by a peer and starts progress
// tracking towards the expected hash. Further offers are accepted only when
// they target the same hash.
func (e *Engine) ReceiveSnapshot(snap *types.Snapshot, expectedHash common.Hash, format, totalChunks uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshot != nil {
		// other peers may offer the same snapshot, check they agree on the target
		if expectedHash != e.progress.SnapshotHash() {
			return types.ErrSnapshotHashMismatch
		}
		return nil
	}
	e.snapshot = snap
	e.progress = types.NewSnapshotSync(snap.Height(), expectedHash, format, totalChunks)
	if err := e.store.SaveSnapshot(snap); err != nil {
		return err
	}
	if err := e.store.SaveSnapshotSync(e.progress); err != nil {
		return err
	}
	e.log.Info("snapshot sync started",
		logging.Uint64("snapshot-id", snap.ID()),
		logging.Uint64("height", snap.Height()),
		logging.Uint64("total-chunks", totalChunks),
	)
	return nil
}

// RejectSnapshot abandons the current offer, counting against the retry
// limit. The persisted rows are removed so a later offer starts clean.
func (e *Engine) RejectSnapshot() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.snapRetry++
	if e.RetryLimit < e.snapRetry {
		return types.ErrSnapshotRetryLimit
	}
	if e.snapshot == nil {
		return types.ErrUnknownSnapshot
	}
	if err := e.store.DeleteSnapshot(e.snapshot.ID()); err != nil {
		e.log.Warn("could not remove rejected snapshot from store",
			logging.Uint64("snapshot-id", e.snapshot.ID()),
			logging.Error(err),
		)
	}
	e.snapshot = nil
	e.progress = nil
	e.chunks = map[uint64]*types.SnapshotChunk{}
	return nil
}

// ApplyChunk feeds one delivered chunk segment into the session. The first
// segment for a chunk id creates the chunk at the given block number and
// counts towards progress; later segments for the same id extend the chunk's
// block range. Segments whose chunk id or block number were already seen are
// reported as duplicates (applied == false) without mutating anything.
// done is true once every expected chunk has been applied.
func (e *Engine) ApplyChunk(chunkID, blockNumber uint64, data []byte) (applied, done bool, err error) {
	defer metrics.StartEngine("snapshot", "ApplyChunk")()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshot == nil {
		return false, false, types.ErrUnknownSnapshot
	}
	if e.progress.Complete() {
		return false, true, types.ErrNoChunksExpected
	}

	chunk, open := e.chunks[chunkID]
	if open {
		// a further segment for a chunk we already hold
		if !e.snapshot.AddBlockIDIfAbsent(blockNumber) {
			e.duplicate("block", blockNumber)
			return false, false, nil
		}
		chunk.Append(data, blockNumber)
		if err := e.persistChunk(chunkID, chunk); err != nil {
			return false, false, err
		}
		metrics.SnapshotChunkReceived("applied")
		metrics.SnapshotChunkSize(len(data))
		return true, e.progress.Complete(), nil
	}

	if e.snapshot.HasChunkID(chunkID) {
		e.duplicate("chunk", chunkID)
		return false, false, nil
	}
	if e.snapshot.HasBlockID(blockNumber) {
		e.duplicate("block", blockNumber)
		return false, false, nil
	}
	e.snapshot.AddChunkIDIfAbsent(chunkID)
	e.snapshot.AddBlockIDIfAbsent(blockNumber)
	chunk = types.NewSnapshotChunk(e.snapshot.ID(), blockNumber, data)
	e.chunks[chunkID] = chunk
	e.progress.SetLastAppliedChunkIndex(e.progress.LastAppliedChunkIndex() + 1)

	if err := e.persistChunk(chunkID, chunk); err != nil {
		return false, false, err
	}
	metrics.SnapshotChunkReceived("applied")
	metrics.SnapshotChunkSize(len(data))
	metrics.SnapshotSyncProgress(e.progress.LastAppliedChunkIndex())

	if e.log.IsDebug() {
		e.log.Debug("chunk applied",
			logging.Uint64("chunk-id", chunkID),
			logging.Uint64("block", blockNumber),
			logging.Uint64("applied", e.progress.LastAppliedChunkIndex()),
			logging.Uint64("total", e.progress.TotalChunks()),
		)
	}
	return true, e.progress.Complete(), nil
}

func (e *Engine) duplicate(kind string, id uint64) {
	metrics.SnapshotChunkReceived("duplicate")
	e.log.Debug("duplicate chunk segment dropped",
		logging.String("kind", kind),
		logging.Uint64("id", id),
	)
}

// persistChunk saves the chunk along with the snapshot and progress rows, so
// a crash between two segments loses nothing.
func (e *Engine) persistChunk(chunkID uint64, chunk *types.SnapshotChunk) error {
	if err := e.store.SaveChunk(chunkID, chunk); err != nil {
		return err
	}
	if err := e.store.SaveSnapshot(e.snapshot); err != nil {
		return err
	}
	return e.store.SaveSnapshotSync(e.progress)
}

// VerifySnapshot recomputes the assembled snapshot's hash and compares it to
// the target the sync was started with. The discard policy on mismatch is
// the caller's.
func (e *Engine) VerifySnapshot() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshot == nil {
		return types.ErrUnknownSnapshot
	}
	target := e.progress.SnapshotHash()
	if !bytes.Equal(e.snapshot.Hash(), target[:]) {
		return types.ErrSnapshotHashMismatch
	}
	return nil
}

// Resume reloads a sync session from the store after a restart, so chunk
// application picks up from the persisted watermark.
func (e *Engine) Resume(snapshotID, height uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.store.GetSnapshot(snapshotID)
	if err != nil {
		return err
	}
	progress, err := e.store.GetSnapshotSync(height)
	if err != nil {
		return err
	}
	chunks := make(map[uint64]*types.SnapshotChunk, len(snap.ChunkIDs()))
	for _, chunkID := range snap.ChunkIDs() {
		chunk, err := e.store.GetChunk(snapshotID, chunkID)
		if err != nil {
			return err
		}
		chunks[chunkID] = chunk
	}
	e.snapshot = snap
	e.progress = progress
	e.chunks = chunks
	e.log.Info("snapshot sync resumed",
		logging.Uint64("snapshot-id", snapshotID),
		logging.Uint64("applied", progress.LastAppliedChunkIndex()),
		logging.Uint64("total", progress.TotalChunks()),
	)
	return nil
}

// LoadChunk serves a chunk of the session, for peers catching up from us.
func (e *Engine) LoadChunk(chunkID uint64) (*types.SnapshotChunk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snapshot == nil {
		return nil, types.ErrUnknownSnapshot
	}
	chunk, ok := e.chunks[chunkID]
	if !ok {
		return nil, types.ErrUnknownChunk
	}
	return chunk, nil
}

// Snapshot returns the snapshot being assembled, nil when no sync is in
// progress.
func (e *Engine) Snapshot() *types.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// Progress returns the sync progress, nil when no sync is in progress.
func (e *Engine) Progress() *types.SnapshotSync {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}
