package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"iter"

	"github.com/ethereum/go-ethereum/common"
	uuid "github.com/satori/go.uuid"
)

// PeerID identifies the peer a wallet sync record was received from.
type PeerID [64]byte

func (p PeerID) Bytes() []byte {
	return p[:]
}

func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// SessionID identifies one wallet-state sync session.
type SessionID [32]byte

func (s SessionID) Bytes() []byte {
	return s[:]
}

func (s SessionID) String() string {
	return hex.EncodeToString(s[:])
}

// SessionIDFromUUID widens a session UUID into a SessionID, UUID bytes
// first, zero padded.
func SessionIDFromUUID(u uuid.UUID) SessionID {
	var id SessionID
	copy(id[:16], u.Bytes())
	return id
}

// WalletSyncEntry is one (block, payload) pair accumulated during a wallet
// sync session.
type WalletSyncEntry struct {
	Block uint64
	Data  []byte
}

// WalletSyncPair is the comparable form of an entry, usable as a set key
// when comparing records accumulated in different arrival orders.
type WalletSyncPair struct {
	Block uint64
	Data  string
}

// WalletSyncRecord accumulates the (block, payload) pairs received from a
// single peer during a wallet-state sync session.
type WalletSyncRecord struct {
	sessionID   SessionID
	peerID      PeerID
	entries     []WalletSyncEntry
	chunksCount uint64
}

// NewWalletSyncRecord creates a record for one peer and session, optionally
// pre-seeded with already-known pairs. Seed pairs are taken as given, in
// order, without deduplication.
func NewWalletSyncRecord(peerID PeerID, sessionID SessionID, chunksCount uint64, pairs []WalletSyncEntry) *WalletSyncRecord {
	r := &WalletSyncRecord{
		sessionID:   sessionID,
		peerID:      peerID,
		chunksCount: chunksCount,
	}
	if len(pairs) > 0 {
		r.entries = make([]WalletSyncEntry, len(pairs))
		copy(r.entries, pairs)
	}
	return r
}

// Append adds one (payload, block) pair, dropping it silently when either
// axis is a duplicate.
func (r *WalletSyncRecord) Append(data []byte, block uint64) {
	r.AddIfAbsent(data, block)
}

// AppendChunks adds several pairs at once, matched positionally. Extra
// payloads without a matching block (or vice versa) are ignored.
func (r *WalletSyncRecord) AppendChunks(data [][]byte, blocks []uint64) {
	n := len(blocks)
	if len(data) < n {
		n = len(data)
	}
	for i := 0; i < n; i++ {
		r.AddIfAbsent(data[i], blocks[i])
	}
}

// AddIfAbsent appends the pair and returns true, unless the payload already
// occurs anywhere in the record or the block number already occurs anywhere
// in the record. The two axes are checked independently: a known payload is
// rejected even under a new block number, and a known block number is
// rejected even with a new payload.
func (r *WalletSyncRecord) AddIfAbsent(data []byte, block uint64) bool {
	for _, e := range r.entries {
		if bytes.Equal(e.Data, data) {
			return false
		}
	}
	for _, e := range r.entries {
		if e.Block == block {
			return false
		}
	}
	r.entries = append(r.entries, WalletSyncEntry{Block: block, Data: data})
	return true
}

// Pairs yields the (block, payload) pairs in arrival order. The sequence is
// recomputed from current state on every range, so it can be re-used after
// further appends.
func (r *WalletSyncRecord) Pairs() iter.Seq2[uint64, []byte] {
	return func(yield func(uint64, []byte) bool) {
		for _, e := range r.entries {
			if !yield(e.Block, e.Data) {
				return
			}
		}
	}
}

// PairSet builds the set of distinct (block, payload) pairs held by the
// record. Records accumulated from different peers in different orders
// compare equal on their pair sets exactly when they converged on the same
// content.
func (r *WalletSyncRecord) PairSet() map[WalletSyncPair]struct{} {
	set := make(map[WalletSyncPair]struct{}, len(r.entries))
	for _, e := range r.entries {
		set[WalletSyncPair{Block: e.Block, Data: string(e.Data)}] = struct{}{}
	}
	return set
}

// Size returns the record's storage footprint: two hash-sized identifier
// words plus all payload bytes and 8 bytes per block number.
func (r *WalletSyncRecord) Size() int {
	size := 2 * common.HashLength
	for _, e := range r.entries {
		size += len(e.Data) + 8
	}
	return size
}

func (r *WalletSyncRecord) SessionID() SessionID {
	return r.sessionID
}

func (r *WalletSyncRecord) PeerID() PeerID {
	return r.peerID
}

func (r *WalletSyncRecord) ChunksCount() uint64 {
	return r.chunksCount
}

// Entries returns the accumulated (block, payload) pairs in arrival order.
func (r *WalletSyncRecord) Entries() []WalletSyncEntry {
	return r.entries
}

// Data returns the payloads in arrival order.
func (r *WalletSyncRecord) Data() [][]byte {
	data := make([][]byte, 0, len(r.entries))
	for _, e := range r.entries {
		data = append(data, e.Data)
	}
	return data
}

// Blocks returns the block numbers in arrival order.
func (r *WalletSyncRecord) Blocks() []uint64 {
	blocks := make([]uint64, 0, len(r.entries))
	for _, e := range r.entries {
		blocks = append(blocks, e.Block)
	}
	return blocks
}

func (r *WalletSyncRecord) SetPeerID(peerID PeerID) {
	r.peerID = peerID
}

func (r *WalletSyncRecord) SetSessionID(sessionID SessionID) {
	r.sessionID = sessionID
}

func (r *WalletSyncRecord) SetChunksCount(chunksCount uint64) {
	r.chunksCount = chunksCount
}

// Hash returns the sha256 digest of the record: peer id, session id, then
// every payload in arrival order. Block numbers do not contribute to the
// digest, so two records holding the same payloads under different block
// numbers digest identically.
func (r *WalletSyncRecord) Hash() []byte {
	h := sha256.New()
	h.Write(r.peerID[:])
	h.Write(r.sessionID[:])
	for _, e := range r.entries {
		h.Write(e.Data)
	}
	return h.Sum(nil)
}
