package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"code.emberchain.io/ember/logging"
	"code.emberchain.io/ember/types"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	levelstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrNotFound          = errors.New("entity not found in store")
	ErrEmptyRow          = errors.New("empty row")
	ErrUnknownRowVersion = errors.New("unknown row version")
)

// key prefixes, one per entity
var (
	prefixSnapshot     = []byte("snap:")
	prefixChunk        = []byte("chnk:")
	prefixSnapshotSync = []byte("sync:")
	prefixWalletSync   = []byte("wlts:")
)

// Store persists the snapshot-sync and wallet-sync entities in a LevelDB
// backed key-value store. Keys order big-endian so iteration walks ids in
// ascending order.
type Store struct {
	Config

	log *logging.Logger
	db  *leveldb.DB
}

// New opens the store. With the in-memory storage method nothing touches
// disk, which is what the tests use.
func New(log *logging.Logger, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	var (
		db  *leveldb.DB
		err error
	)
	if cfg.Storage == memDB {
		db, err = leveldb.Open(levelstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(cfg.DBPath, &opt.Options{
			Filter: filter.NewBloomFilter(10),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("could not open store: %w", err)
	}
	return &Store{
		Config: cfg,
		log:    log,
		db:     db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func snapshotKey(id uint64) []byte {
	return appendUint64(prefixSnapshot, id)
}

func chunkKey(snapshotID, chunkID uint64) []byte {
	return appendUint64(appendUint64(prefixChunk, snapshotID), chunkID)
}

func snapshotSyncKey(height uint64) []byte {
	return appendUint64(prefixSnapshotSync, height)
}

func walletSyncKey(session types.SessionID, peer types.PeerID) []byte {
	key := make([]byte, 0, len(prefixWalletSync)+len(session)+len(peer))
	key = append(key, prefixWalletSync...)
	key = append(key, session[:]...)
	return append(key, peer[:]...)
}

func appendUint64(prefix []byte, v uint64) []byte {
	key := make([]byte, len(prefix), len(prefix)+8)
	copy(key, prefix)
	return binary.BigEndian.AppendUint64(key, v)
}

func (s *Store) put(key []byte, row any) error {
	enc, err := encodeRow(row)
	if err != nil {
		return err
	}
	return s.db.Put(key, enc, nil)
}

func (s *Store) get(key []byte, row any) error {
	data, err := s.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeRow(data, row)
}

// SaveSnapshot writes the snapshot row, keyed by its id.
func (s *Store) SaveSnapshot(snap *types.Snapshot) error {
	return s.put(snapshotKey(snap.ID()), snapshotToRow(snap))
}

// GetSnapshot reads the snapshot with the given id.
func (s *Store) GetSnapshot(id uint64) (*types.Snapshot, error) {
	row := &snapshotRow{}
	if err := s.get(snapshotKey(id), row); err != nil {
		return nil, err
	}
	return row.toSnapshot(), nil
}

// ListSnapshots returns all persisted snapshots, ordered by id.
func (s *Store) ListSnapshots() ([]*types.Snapshot, error) {
	iter := s.db.NewIterator(util.BytesPrefix(prefixSnapshot), nil)
	defer iter.Release()

	snaps := []*types.Snapshot{}
	for iter.Next() {
		row := &snapshotRow{}
		if err := decodeRow(iter.Value(), row); err != nil {
			return nil, err
		}
		snaps = append(snaps, row.toSnapshot())
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// DeleteSnapshot removes the snapshot row and all its chunks.
func (s *Store) DeleteSnapshot(id uint64) error {
	if err := s.db.Delete(snapshotKey(id), nil); err != nil {
		return err
	}
	iter := s.db.NewIterator(util.BytesPrefix(appendUint64(prefixChunk, id)), nil)
	defer iter.Release()
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		if err := s.db.Delete(key, nil); err != nil {
			return err
		}
	}
	return iter.Error()
}

// SaveChunk writes the chunk row, keyed by (snapshot id, chunk id).
func (s *Store) SaveChunk(chunkID uint64, chunk *types.SnapshotChunk) error {
	return s.put(chunkKey(chunk.SnapshotID(), chunkID), chunkToRow(chunk))
}

// GetChunk reads one chunk of a snapshot.
func (s *Store) GetChunk(snapshotID, chunkID uint64) (*types.SnapshotChunk, error) {
	row := &chunkRow{}
	if err := s.get(chunkKey(snapshotID, chunkID), row); err != nil {
		return nil, err
	}
	return row.toChunk(), nil
}

// SaveSnapshotSync writes the sync progress row, keyed by height.
func (s *Store) SaveSnapshotSync(sync *types.SnapshotSync) error {
	return s.put(snapshotSyncKey(sync.Height()), snapshotSyncToRow(sync))
}

// GetSnapshotSync reads the sync progress row for the given height.
func (s *Store) GetSnapshotSync(height uint64) (*types.SnapshotSync, error) {
	row := &snapshotSyncRow{}
	if err := s.get(snapshotSyncKey(height), row); err != nil {
		return nil, err
	}
	return row.toSnapshotSync(), nil
}

// SaveWalletSyncRecord writes the record, keyed by (session, peer).
func (s *Store) SaveWalletSyncRecord(rec *types.WalletSyncRecord) error {
	return s.put(walletSyncKey(rec.SessionID(), rec.PeerID()), walletSyncToRow(rec))
}

// GetWalletSyncRecord reads one peer's record for a session.
func (s *Store) GetWalletSyncRecord(session types.SessionID, peer types.PeerID) (*types.WalletSyncRecord, error) {
	row := &walletSyncRow{}
	if err := s.get(walletSyncKey(session, peer), row); err != nil {
		return nil, err
	}
	return row.toWalletSyncRecord(), nil
}

// ListWalletSyncRecords returns every peer's record for a session.
func (s *Store) ListWalletSyncRecords(session types.SessionID) ([]*types.WalletSyncRecord, error) {
	prefix := make([]byte, 0, len(prefixWalletSync)+len(session))
	prefix = append(prefix, prefixWalletSync...)
	prefix = append(prefix, session[:]...)

	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	recs := []*types.WalletSyncRecord{}
	for iter.Next() {
		row := &walletSyncRow{}
		if err := decodeRow(iter.Value(), row); err != nil {
			return nil, err
		}
		recs = append(recs, row.toWalletSyncRecord())
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return recs, nil
}
