package futures

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/futures-ledger/pkg/chain"
)

// Ledger is the futures ledger aggregate. It exclusively owns one Allocator
// and one Store and is the only way to mutate them.
//
// A single write lock spans validate -> allocate -> insert -> emit, so two
// concurrent creations can never race on the same id. Reads share a read
// lock and never mutate.
type Ledger struct {
	mu    sync.RWMutex
	alloc *Allocator
	store Store

	metrics *Metrics

	// Optional collaborators. Set before first use.
	Events EventSink
	Logger *zap.SugaredLogger
}

// NewLedger builds a ledger over store. counter persists the id allocator;
// pass nil for a memory-only ledger.
func NewLedger(store Store, counter CounterStore) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("futures ledger: nil store")
	}
	alloc, err := NewAllocator(counter)
	if err != nil {
		return nil, err
	}

	// Every stored id was allocated, so the counter must be past all of them.
	if count := store.Count(); uint64(alloc.PeekNext()-1) < count {
		return nil, fmt.Errorf("%w: next id %d with %d stored futures", ErrDuplicateID, alloc.PeekNext(), count)
	}

	return &Ledger{alloc: alloc, store: store}, nil
}

// NewMemoryLedger returns a ledger backed by a MemoryStore.
func NewMemoryLedger() *Ledger {
	l, _ := NewLedger(NewMemoryStore(), nil)
	return l
}

// SetMetrics attaches Prometheus instruments and seeds the stored gauge.
func (l *Ledger) SetMetrics(m *Metrics) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics = m
	m.observeStored(l.store.Count())
}

// CreateFuture validates, allocates an id, stores the record, and emits a
// future-created event. A validation failure allocates nothing and stores
// nothing.
func (l *Ledger) CreateFuture(caller Trader, asset string, price decimal.Decimal, expiry, current chain.Height) (FutureID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := Validate(asset, price, expiry, current); err != nil {
		l.metrics.observeRejected(err)
		l.logger().Debugw("future_rejected",
			"trader", caller.Hex(),
			"asset", asset,
			"expiry", expiry,
			"height", current,
			"err", err)
		return 0, err
	}

	id, err := l.alloc.Allocate()
	if err != nil {
		l.metrics.observeRejected(err)
		l.logger().Errorw("future_id_allocation_failed", "err", err)
		return 0, fmt.Errorf("allocate future id: %w", err)
	}

	f := Future{
		ID:     id,
		Trader: caller,
		Asset:  asset,
		Price:  price,
		Expiry: expiry,
	}
	if err := l.store.Insert(f); err != nil {
		l.metrics.observeRejected(err)
		l.logger().Errorw("future_insert_failed", "future_id", id, "err", err)
		return 0, fmt.Errorf("store future %d: %w", id, err)
	}

	l.metrics.observeCreated(l.store.Count())
	l.events().Emit(newFutureCreated(f, current))
	l.logger().Infow("future_created",
		"future_id", id,
		"trader", caller.Hex(),
		"asset", asset,
		"price", price.String(),
		"expiry", expiry,
		"height", current)

	return id, nil
}

// GetFuture returns the future with the given id, or ErrNotFound.
func (l *Ledger) GetFuture(id FutureID) (Future, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Get(id)
}

func (l *Ledger) GetFutureCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Count()
}

// PeekNextID returns the id the next successful CreateFuture will assign.
func (l *Ledger) PeekNextID() FutureID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.alloc.PeekNext()
}

func (l *Ledger) GetFuturesByTrader(t Trader) []Future {
	return l.collect(func(f Future) bool { return f.Trader == t })
}

func (l *Ledger) GetFuturesByAsset(asset string) []Future {
	return l.collect(func(f Future) bool { return f.Asset == asset })
}

// GetFuturesByExpiryRange returns futures with minExpiry <= expiry <= maxExpiry.
func (l *Ledger) GetFuturesByExpiryRange(minExpiry, maxExpiry chain.Height) []Future {
	return l.collect(func(f Future) bool { return f.Expiry >= minExpiry && f.Expiry <= maxExpiry })
}

// GetFuturesByExpiryWindow returns futures with from <= expiry < to.
func (l *Ledger) GetFuturesByExpiryWindow(from, to chain.Height) []Future {
	return l.collect(func(f Future) bool { return f.Expiry >= from && f.Expiry < to })
}

// GetActiveFutures returns futures not yet expired at height current.
func (l *Ledger) GetActiveFutures(current chain.Height) []Future {
	return l.collect(func(f Future) bool { return !f.IsExpiredAt(current) })
}

// IsExpired reports current >= expiry for the given future.
func (l *Ledger) IsExpired(id FutureID, current chain.Height) (bool, error) {
	f, err := l.GetFuture(id)
	if err != nil {
		return false, err
	}
	return f.IsExpiredAt(current), nil
}

// BlocksUntilExpiry returns how many blocks remain before the future
// expires; zero once it has.
func (l *Ledger) BlocksUntilExpiry(id FutureID, current chain.Height) (uint64, error) {
	f, err := l.GetFuture(id)
	if err != nil {
		return 0, err
	}
	if f.IsExpiredAt(current) {
		return 0, nil
	}
	return uint64(f.Expiry - current), nil
}

// AveragePrice returns the mean strike price over all futures on asset.
func (l *Ledger) AveragePrice(asset string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sum := decimal.Zero
	n := int64(0)
	for f := range l.store.Filter(func(f Future) bool { return f.Asset == asset }) {
		sum = sum.Add(f.Price)
		n++
	}
	if n == 0 {
		return decimal.Zero, fmt.Errorf("%w: no futures for asset %q", ErrNotFound, asset)
	}
	return sum.Div(decimal.NewFromInt(n)), nil
}

func (l *Ledger) collect(pred func(Future) bool) []Future {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Future, 0)
	for f := range l.store.Filter(pred) {
		out = append(out, f)
	}
	return out
}

func (l *Ledger) events() EventSink {
	if l.Events == nil {
		return nopSink{}
	}
	return l.Events
}

func (l *Ledger) logger() *zap.SugaredLogger {
	if l.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return l.Logger
}
