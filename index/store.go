// Package index keeps derived state of a patch directory in pebble: the
// universe (so Luids survive restarts) and the membership bitmap of every
// materialized commit.
//
// Everything in the store can be rebuilt from the patch files, so a lost
// or stale index is never an error for the engine, only a slower load.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/cockroachdb/pebble"
	"github.com/davidad/chit/chit_errors"
	"github.com/davidad/chit/uid"
	"github.com/davidad/chit/utils"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	universeCountKey = 'N'
	universeKeyLit   = 'U'
	versionKeyLit    = 'V'
)

// Store is not safe for concurrent writers; the engine serializes them.
type Store struct {
	db       *pebble.DB
	log      utils.Logger
	versions *lru.Cache[uid.UUID, *roaring64.Bitmap]

	lock    sync.Mutex
	pending *pebble.Batch
	stored  uint64
}

func universeKey(luid uid.Luid) []byte {
	var ret = [16]byte{universeKeyLit}
	return binary.BigEndian.AppendUint64(ret[:1], uint64(luid))
}

func versionKey(commit uid.UUID) []byte {
	return append([]byte{versionKeyLit}, commit[:]...)
}

func Open(dir string, cacheSize int, log utils.Logger) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: open index %s: %w", chit_errors.ErrIO, dir, err)
	}
	cache, _ := lru.New[uid.UUID, *roaring64.Bitmap](cacheSize)
	store := &Store{
		db:       db,
		log:      log,
		versions: cache,
		pending:  db.NewBatch(),
	}
	store.stored, err = store.readCount()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) DB() *pebble.DB {
	return s.db
}

func (s *Store) get(key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: index read: %w", chit_errors.ErrIO, err)
	}
	ret := append([]byte(nil), val...)
	_ = closer.Close()
	return ret, true, nil
}

func (s *Store) readCount() (uint64, error) {
	val, ok, err := s.get([]byte{universeCountKey})
	if err != nil || !ok {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("%w: bad universe count record", chit_errors.ErrValidation)
	}
	return binary.BigEndian.Uint64(val), nil
}

// Universe returns the persisted universe in Luid order.
func (s *Store) Universe() ([]uid.UUID, error) {
	ids := make([]uid.UUID, 0, s.stored)
	for i := uint64(0); i < s.stored; i++ {
		val, ok, err := s.get(universeKey(uid.Luid(i)))
		if err != nil {
			return nil, err
		}
		if !ok || len(val) != 16 {
			return nil, fmt.Errorf("%w: luid %d", chit_errors.ErrUniverseMismatch, i)
		}
		ids = append(ids, uid.UUID(val))
	}
	return ids, nil
}

// Stored is the number of universe entries already persisted.
func (s *Store) Stored() uid.Luid {
	return uid.Luid(s.stored)
}

// AppendUniverse stages the entries from Stored() on. Entries must come
// in Luid order with no gaps.
func (s *Store) AppendUniverse(luid uid.Luid, id uid.UUID) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if uint64(luid) != s.stored {
		return fmt.Errorf("%w: got luid %d, expected %d", chit_errors.ErrUniverseMismatch, luid, s.stored)
	}
	if err := s.pending.Set(universeKey(luid), id[:], nil); err != nil {
		return fmt.Errorf("%w: index write: %w", chit_errors.ErrIO, err)
	}
	s.stored++
	return nil
}

// Version looks up the checkpointed membership of a commit. The returned
// bitmap is shared and must not be modified.
func (s *Store) Version(commit uid.UUID) (*roaring64.Bitmap, bool, error) {
	if bm, ok := s.versions.Get(commit); ok {
		return bm, true, nil
	}
	val, ok, err := s.get(versionKey(commit))
	if err != nil || !ok {
		return nil, false, err
	}
	bm := roaring64.New()
	if err := bm.UnmarshalBinary(val); err != nil {
		s.log.Warn("dropping unreadable version checkpoint", "commit", uid.Base64URL(commit), "err", err)
		return nil, false, nil
	}
	s.versions.Add(commit, bm)
	return bm, true, nil
}

// PutVersion stages a checkpoint; Flush makes it durable.
func (s *Store) PutVersion(commit uid.UUID, members *roaring64.Bitmap) error {
	val, err := members.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: encode version: %w", chit_errors.ErrValidation, err)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.pending.Set(versionKey(commit), val, nil); err != nil {
		return fmt.Errorf("%w: index write: %w", chit_errors.ErrIO, err)
	}
	s.versions.Add(commit, members)
	return nil
}

// Flush commits staged writes together with the universe count.
func (s *Store) Flush() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.pending.Empty() {
		return nil
	}
	count := binary.BigEndian.AppendUint64(nil, s.stored)
	if err := s.pending.Set([]byte{universeCountKey}, count, nil); err != nil {
		return fmt.Errorf("%w: index write: %w", chit_errors.ErrIO, err)
	}
	if err := s.pending.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("%w: index commit: %w", chit_errors.ErrIO, err)
	}
	_ = s.pending.Close()
	s.pending = s.db.NewBatch()
	return nil
}

func (s *Store) Close() error {
	flushErr := s.Flush()
	_ = s.pending.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close index: %w", chit_errors.ErrIO, err)
	}
	return flushErr
}
