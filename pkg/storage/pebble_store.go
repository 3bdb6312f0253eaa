package storage

import (
	"errors"
	"fmt"
	"iter"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/futures-ledger/pkg/app/futures"
)

// PebbleStore persists futures and the id counter in a Pebble database.
// It implements futures.Store and futures.CounterStore.
//
// Writes go through the futures.Ledger, which serializes them; PebbleStore
// itself does no locking beyond what Pebble provides.
type PebbleStore struct {
	db    *pebble.DB
	count uint64
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	s := &PebbleStore{db: db}

	count, err := s.loadUint64(countKey())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load future count: %w", err)
	}
	s.count = count
	return s, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// Insert writes the record and the updated count in one synced batch.
func (s *PebbleStore) Insert(f futures.Future) error {
	key := futureKey(f.ID)

	_, closer, err := s.db.Get(key)
	if err == nil {
		closer.Close()
		return fmt.Errorf("%w: %d", futures.ErrDuplicateID, f.ID)
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("failed to check future %d: %w", f.ID, err)
	}

	data, err := encodeFuture(f)
	if err != nil {
		return fmt.Errorf("failed to marshal future: %w", err)
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(key, data, nil); err != nil {
		return err
	}
	if err := b.Set(countKey(), encodeUint64(s.count+1), nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save future: %w", err)
	}

	s.count++
	return nil
}

func (s *PebbleStore) Get(id futures.FutureID) (futures.Future, error) {
	data, closer, err := s.db.Get(futureKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return futures.Future{}, fmt.Errorf("%w: %d", futures.ErrNotFound, id)
	}
	if err != nil {
		return futures.Future{}, fmt.Errorf("failed to get future: %w", err)
	}
	defer closer.Close()

	f, err := decodeFuture(data)
	if err != nil {
		return futures.Future{}, fmt.Errorf("failed to unmarshal future %d: %w", id, err)
	}
	return f, nil
}

func (s *PebbleStore) Count() uint64 { return s.count }

// Filter scans the fut: prefix in key order, which is ascending id order.
// Each range over the returned sequence opens a fresh iterator.
// A record that fails to decode means the database is corrupt, and Filter panics.
func (s *PebbleStore) Filter(pred func(futures.Future) bool) iter.Seq[futures.Future] {
	return func(yield func(futures.Future) bool) {
		prefix := futurePrefix()
		it, err := s.db.NewIter(&pebble.IterOptions{
			LowerBound: prefix,
			UpperBound: keyUpperBound(prefix),
		})
		if err != nil {
			panic(fmt.Errorf("open future iterator: %w", err))
		}
		defer it.Close()

		for it.First(); it.Valid(); it.Next() {
			f, err := decodeFuture(it.Value())
			if err != nil {
				panic(fmt.Errorf("decode future at key %x: %w", it.Key(), err))
			}
			if pred != nil && !pred(f) {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

func (s *PebbleStore) LoadNextID() (futures.FutureID, bool, error) {
	val, closer, err := s.db.Get(nextIDKey())
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get next id: %w", err)
	}
	defer closer.Close()

	next, err := decodeUint64(val)
	if err != nil {
		return 0, false, fmt.Errorf("decode next id: %w", err)
	}
	return futures.FutureID(next), true, nil
}

func (s *PebbleStore) SaveNextID(next futures.FutureID) error {
	if err := s.db.Set(nextIDKey(), encodeUint64(uint64(next)), pebble.Sync); err != nil {
		return fmt.Errorf("failed to save next id: %w", err)
	}
	return nil
}

func (s *PebbleStore) loadUint64(key []byte) (uint64, error) {
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return decodeUint64(val)
}

var (
	_ futures.Store        = (*PebbleStore)(nil)
	_ futures.CounterStore = (*PebbleStore)(nil)
)
