package futures

import (
	"fmt"
	"math"
)

// CounterStore persists the allocator's next id across restarts.
type CounterStore interface {
	// LoadNextID returns the persisted next id; ok is false if none was saved.
	LoadNextID() (next FutureID, ok bool, err error)
	SaveNextID(next FutureID) error
}

// Allocator hands out future ids: strictly increasing from 1, never reused.
// Not safe for concurrent use; the Ledger serializes access.
type Allocator struct {
	next    FutureID
	counter CounterStore
}

// NewAllocator restores the counter from store, or starts at 1.
// A nil store keeps the counter in memory only.
func NewAllocator(store CounterStore) (*Allocator, error) {
	a := &Allocator{next: 1, counter: store}
	if store == nil {
		return a, nil
	}

	next, ok, err := store.LoadNextID()
	if err != nil {
		return nil, fmt.Errorf("load next future id: %w", err)
	}
	if ok {
		if next == 0 {
			return nil, fmt.Errorf("load next future id: persisted counter is zero")
		}
		a.next = next
	}
	return a, nil
}

// PeekNext returns the id the next Allocate call would return.
func (a *Allocator) PeekNext() FutureID { return a.next }

// Allocate consumes and returns the next id. The advanced counter is
// persisted before the id is handed out; there is no undo.
func (a *Allocator) Allocate() (FutureID, error) {
	id := a.next
	if id == math.MaxUint64 {
		return 0, ErrIDExhausted
	}

	if a.counter != nil {
		if err := a.counter.SaveNextID(id + 1); err != nil {
			return 0, fmt.Errorf("persist next future id: %w", err)
		}
	}
	a.next = id + 1
	return id, nil
}
