package futures

import (
	"fmt"
	"iter"
)

// Store is the id -> Future mapping. Records are never updated or deleted.
type Store interface {
	// Insert fails with ErrDuplicateID if f.ID is already present.
	Insert(f Future) error
	// Get fails with ErrNotFound if id is absent.
	Get(id FutureID) (Future, error)
	Count() uint64
	// Filter lazily yields matching futures in ascending id order.
	// A nil predicate matches everything. The sequence may be ranged
	// over more than once.
	Filter(pred func(Future) bool) iter.Seq[Future]
}

// MemoryStore is an in-memory Store. Not safe for concurrent writes; the
// Ledger serializes access.
type MemoryStore struct {
	records map[FutureID]Future
	order   []FutureID // insertion order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[FutureID]Future)}
}

func (s *MemoryStore) Insert(f Future) error {
	if _, exists := s.records[f.ID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateID, f.ID)
	}
	s.records[f.ID] = f
	s.order = append(s.order, f.ID)
	return nil
}

func (s *MemoryStore) Get(id FutureID) (Future, error) {
	f, ok := s.records[id]
	if !ok {
		return Future{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return f, nil
}

func (s *MemoryStore) Count() uint64 { return uint64(len(s.order)) }

func (s *MemoryStore) Filter(pred func(Future) bool) iter.Seq[Future] {
	return func(yield func(Future) bool) {
		for _, id := range s.order {
			f := s.records[id]
			if pred != nil && !pred(f) {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

var _ Store = (*MemoryStore)(nil)
