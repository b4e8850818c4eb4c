// Package walletsync accumulates the wallet-state records received from
// peers during a reconciliation session, and detects when independently
// synced peers converged on the same content.
package walletsync

import (
	"errors"
	"maps"
	"sync"

	"code.emberchain.io/ember/logging"
	"code.emberchain.io/ember/metrics"
	"code.emberchain.io/ember/storage"
	"code.emberchain.io/ember/types"
)

var (
	ErrUnknownSession     = errors.New("no record for the given session and peer")
	ErrSessionExists      = errors.New("a record already exists for the given session and peer")
	ErrNotEnoughPeers     = errors.New("convergence needs records from at least two peers")
	ErrLengthMismatch     = errors.New("payloads and block numbers differ in length")
	ErrSessionNotComplete = errors.New("session has not received all expected chunks")
)

// Engine tracks one wallet sync record per (session, peer) pair.
type Engine struct {
	Config

	log   *logging.Logger
	store *storage.Store

	mu      sync.Mutex
	records map[types.SessionID]map[types.PeerID]*types.WalletSyncRecord
}

// New returns a new wallet sync engine persisting through the given store.
func New(log *logging.Logger, conf Config, store *storage.Store) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(conf.Level.Get())
	return &Engine{
		Config:  conf,
		log:     log,
		store:   store,
		records: map[types.SessionID]map[types.PeerID]*types.WalletSyncRecord{},
	}
}

// StartRecord opens a record for one peer in a session, optionally
// pre-seeded with pairs already known from a previous exchange.
func (e *Engine) StartRecord(peer types.PeerID, session types.SessionID, chunksCount uint64, seed []types.WalletSyncEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.records[session][peer]; ok {
		return ErrSessionExists
	}
	rec := types.NewWalletSyncRecord(peer, session, chunksCount, seed)
	if err := e.store.SaveWalletSyncRecord(rec); err != nil {
		return err
	}
	if _, ok := e.records[session]; !ok {
		e.records[session] = map[types.PeerID]*types.WalletSyncRecord{}
	}
	e.records[session][peer] = rec
	e.log.Info("wallet sync record started",
		logging.String("session", session.String()),
		logging.Uint64("chunks-count", chunksCount),
		logging.Int("seed-pairs", len(seed)),
	)
	return nil
}

// AddPair feeds one (payload, block) pair into a peer's record, reporting
// whether it was added or dropped as a duplicate.
func (e *Engine) AddPair(peer types.PeerID, session types.SessionID, data []byte, block uint64) (bool, error) {
	defer metrics.StartEngine("walletsync", "AddPair")()
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[session][peer]
	if !ok {
		return false, ErrUnknownSession
	}
	added := rec.AddIfAbsent(data, block)
	if !added {
		metrics.WalletPairReceived("duplicate")
		e.log.Debug("duplicate wallet sync pair dropped",
			logging.String("session", session.String()),
			logging.Uint64("block", block),
		)
		return false, nil
	}
	if err := e.store.SaveWalletSyncRecord(rec); err != nil {
		return false, err
	}
	metrics.WalletPairReceived("added")
	return true, nil
}

// AddPairs feeds several pairs at once, matched positionally.
func (e *Engine) AddPairs(peer types.PeerID, session types.SessionID, data [][]byte, blocks []uint64) error {
	if len(data) != len(blocks) {
		return ErrLengthMismatch
	}
	for i := range data {
		if _, err := e.AddPair(peer, session, data[i], blocks[i]); err != nil {
			return err
		}
	}
	return nil
}

// Record returns one peer's record for a session.
func (e *Engine) Record(peer types.PeerID, session types.SessionID) (*types.WalletSyncRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[session][peer]
	if !ok {
		return nil, ErrUnknownSession
	}
	return rec, nil
}

// RecordHash returns the digest of one peer's record.
func (e *Engine) RecordHash(peer types.PeerID, session types.SessionID) ([]byte, error) {
	rec, err := e.Record(peer, session)
	if err != nil {
		return nil, err
	}
	return rec.Hash(), nil
}

// Converged reports whether all peers in the session accumulated the same
// set of (block, payload) pairs, regardless of arrival order. It needs
// records from at least two peers to mean anything, and every record must
// have received the chunks it expects; comparing earlier would report a
// divergence that is just missing data.
func (e *Engine) Converged(session types.SessionID) (bool, error) {
	defer metrics.StartEngine("walletsync", "Converged")()
	e.mu.Lock()
	defer e.mu.Unlock()

	recs := e.records[session]
	if len(recs) < 2 {
		return false, ErrNotEnoughPeers
	}
	for _, rec := range recs {
		if uint64(len(rec.Entries())) < rec.ChunksCount() {
			return false, ErrSessionNotComplete
		}
	}
	var ref map[types.WalletSyncPair]struct{}
	for _, rec := range recs {
		set := rec.PairSet()
		if ref == nil {
			ref = set
			continue
		}
		if !maps.Equal(ref, set) {
			return false, nil
		}
	}
	return true, nil
}

// Resume reloads every record of a session from the store after a restart.
func (e *Engine) Resume(session types.SessionID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	recs, err := e.store.ListWalletSyncRecords(session)
	if err != nil {
		return err
	}
	byPeer := make(map[types.PeerID]*types.WalletSyncRecord, len(recs))
	for _, rec := range recs {
		byPeer[rec.PeerID()] = rec
	}
	e.records[session] = byPeer
	e.log.Info("wallet sync session resumed",
		logging.String("session", session.String()),
		logging.Int("peers", len(byPeer)),
	)
	return nil
}
