package futures

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/futures-ledger/pkg/chain"
)

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCreateFutureAssignsSequentialIDs(t *testing.T) {
	l := NewMemoryLedger()

	for want := FutureID(1); want <= 5; want++ {
		require.Equal(t, want, l.PeekNextID())
		id, err := l.CreateFuture(trader1, "BTC", price(50000), 1500, 1000)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, uint64(5), l.GetFutureCount())
	assert.Equal(t, FutureID(6), l.PeekNextID())
}

func TestCreateFutureRoundTrip(t *testing.T) {
	l := NewMemoryLedger()

	id, err := l.CreateFuture(trader1, "BTC", price(50000), 1500, 1000)
	require.NoError(t, err)
	require.Equal(t, FutureID(1), id)

	f, err := l.GetFuture(id)
	require.NoError(t, err)
	assert.True(t, f.Equal(Future{ID: 1, Trader: trader1, Asset: "BTC", Price: price(50000), Expiry: 1500}))
}

func TestCreateFutureRejectionLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name   string
		asset  string
		price  decimal.Decimal
		expiry chain.Height
		want   error
	}{
		{"empty asset", "", price(50000), 1500, ErrInvalidAsset},
		{"zero price", "BTC", decimal.Zero, 1500, ErrInvalidPrice},
		{"past expiry", "BTC", price(50000), 800, ErrInvalidExpiry},
		{"expiry at current height", "BTC", price(50000), 1000, ErrInvalidExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewMemoryLedger()
			_, err := l.CreateFuture(trader1, "ETH", price(3000), 2000, 1000)
			require.NoError(t, err)

			var emitted int
			l.Events = SinkFunc(func(FutureCreated) { emitted++ })

			_, err = l.CreateFuture(trader1, tt.asset, tt.price, tt.expiry, 1000)
			require.ErrorIs(t, err, tt.want)

			assert.Equal(t, FutureID(2), l.PeekNextID())
			assert.Equal(t, uint64(1), l.GetFutureCount())
			assert.Zero(t, emitted)

			// The next valid creation takes the id the rejected call did not consume.
			id, err := l.CreateFuture(trader1, "BTC", price(1), 1001, 1000)
			require.NoError(t, err)
			assert.Equal(t, FutureID(2), id)
		})
	}
}

func TestIsExpired(t *testing.T) {
	l := NewMemoryLedger()
	id, err := l.CreateFuture(trader1, "BTC", price(50000), 1500, 1000)
	require.NoError(t, err)

	for _, tt := range []struct {
		height chain.Height
		want   bool
	}{
		{1200, false},
		{1499, false},
		{1500, true},
		{2000, true},
	} {
		got, err := l.IsExpired(id, tt.height)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "height %d", tt.height)
	}

	_, err = l.IsExpired(999, 1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetFutureNotFound(t *testing.T) {
	l := NewMemoryLedger()
	_, err := l.GetFuture(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyLedgerQueries(t *testing.T) {
	l := NewMemoryLedger()

	assert.Zero(t, l.GetFutureCount())
	assert.Empty(t, l.GetFuturesByTrader(trader1))
	assert.Empty(t, l.GetFuturesByAsset("BTC"))
	assert.Empty(t, l.GetFuturesByExpiryRange(0, 10000))
	assert.NotNil(t, l.GetFuturesByAsset("BTC"))

	b, err := l.BucketByExpiry(1500, 2000)
	require.NoError(t, err)
	assert.Empty(t, b.Near)
	assert.Empty(t, b.Medium)
	assert.Empty(t, b.Long)
}

// Three traders, three assets, created at height 1000.
func seedScenario(t *testing.T) *Ledger {
	t.Helper()
	l := NewMemoryLedger()

	for _, c := range []struct {
		trader Trader
		asset  string
		price  int64
		expiry chain.Height
	}{
		{trader1, "BTC", 50000, 1500},
		{trader2, "ETH", 3000, 1000 + 500},
		{trader1, "SOL", 100, 2000},
	} {
		_, err := l.CreateFuture(c.trader, c.asset, price(c.price), c.expiry, 1000)
		require.NoError(t, err)
	}
	return l
}

func TestQueryScenario(t *testing.T) {
	l := seedScenario(t)

	byT1 := l.GetFuturesByTrader(trader1)
	require.Len(t, byT1, 2)
	assert.Equal(t, FutureID(1), byT1[0].ID)
	assert.Equal(t, FutureID(3), byT1[1].ID)

	assert.Len(t, l.GetFuturesByTrader(trader2), 1)
	assert.Empty(t, l.GetFuturesByTrader(trader3))

	btc := l.GetFuturesByAsset("BTC")
	require.Len(t, btc, 1)
	assert.Equal(t, FutureID(1), btc[0].ID)

	inRange := l.GetFuturesByExpiryRange(1500, 1500)
	assert.Len(t, inRange, 2)
	assert.Len(t, l.GetFuturesByExpiryRange(1501, 1999), 0)
	assert.Len(t, l.GetFuturesByExpiryRange(1000, 2000), 3)

	assert.Len(t, l.GetFuturesByExpiryWindow(1500, 2000), 2)
	assert.Len(t, l.GetFuturesByExpiryWindow(1500, 2001), 3)

	b, err := l.BucketByExpiry(1500, 2000)
	require.NoError(t, err)
	assert.Len(t, b.Near, 2)
	assert.Len(t, b.Medium, 0)
	assert.Len(t, b.Long, 1)
	assert.Equal(t, chain.Height(1500), b.NearMax)
}

// Three futures created at block 0, bucketed at thresholds (1500, 2000).
func TestBlockZeroScenario(t *testing.T) {
	l := NewMemoryLedger()
	for _, c := range []struct {
		trader Trader
		asset  string
		price  int64
		expiry chain.Height
	}{
		{trader1, "BTC", 50000, 1000},
		{trader2, "ETH", 3000, 1500},
		{trader1, "STX", 1, 2000},
	} {
		_, err := l.CreateFuture(c.trader, c.asset, price(c.price), c.expiry, 0)
		require.NoError(t, err)
	}

	assert.Equal(t, []FutureID{1, 3}, ids(l.GetFuturesByTrader(trader1)))
	assert.Equal(t, []FutureID{1}, ids(l.GetFuturesByAsset("BTC")))

	b, err := l.BucketByExpiry(1500, 2000)
	require.NoError(t, err)
	assert.Equal(t, []FutureID{1, 2}, ids(b.Near))
	assert.Empty(t, b.Medium)
	assert.Equal(t, []FutureID{3}, ids(b.Long))
}

// A future expiring exactly at mediumMax is long term, so expiries
// 1000/1500/2000/2500 split 2/0/2 rather than 2/1/1.
func TestBucketByExpiryMediumUpperBound(t *testing.T) {
	l := NewMemoryLedger()
	for _, expiry := range []chain.Height{1000, 1500, 2000, 2500} {
		_, err := l.CreateFuture(trader1, "BTC", price(1), expiry, 0)
		require.NoError(t, err)
	}

	b, err := l.BucketByExpiry(1500, 2000)
	require.NoError(t, err)
	assert.Len(t, b.Near, 2)
	assert.Empty(t, b.Medium)
	assert.Equal(t, []FutureID{3, 4}, ids(b.Long))
}

func TestBucketByExpiry(t *testing.T) {
	l := NewMemoryLedger()
	for _, expiry := range []chain.Height{1100, 1200, 1600, 1900, 2500} {
		_, err := l.CreateFuture(trader1, "BTC", price(1), expiry, 1000)
		require.NoError(t, err)
	}

	b, err := l.BucketByExpiry(1200, 2000)
	require.NoError(t, err)
	assert.Len(t, b.Near, 2)
	assert.Len(t, b.Medium, 2)
	assert.Len(t, b.Long, 1)

	// Every future lands in exactly one bucket.
	assert.Equal(t, int(l.GetFutureCount()), len(b.Near)+len(b.Medium)+len(b.Long))

	_, err = l.BucketByExpiry(2000, 1200)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestAnalytics(t *testing.T) {
	l := NewMemoryLedger()
	for _, p := range []int64{50000, 51000, 49000} {
		_, err := l.CreateFuture(trader1, "BTC", price(p), 1500, 1000)
		require.NoError(t, err)
	}
	_, err := l.CreateFuture(trader2, "ETH", price(3000), 1200, 1000)
	require.NoError(t, err)

	avg, err := l.AveragePrice("BTC")
	require.NoError(t, err)
	assert.True(t, avg.Equal(price(50000)), "average = %s", avg)

	_, err = l.AveragePrice("DOGE")
	assert.ErrorIs(t, err, ErrNotFound)

	blocks, err := l.BlocksUntilExpiry(1, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), blocks)

	blocks, err = l.BlocksUntilExpiry(1, 1600)
	require.NoError(t, err)
	assert.Zero(t, blocks)

	active := l.GetActiveFutures(1300)
	require.Len(t, active, 3)
	for _, f := range active {
		assert.Equal(t, "BTC", f.Asset)
	}
	assert.Empty(t, l.GetActiveFutures(1500))
}

func TestCreateFutureEmitsEvent(t *testing.T) {
	l := NewMemoryLedger()

	var got []FutureCreated
	l.Events = MultiSink{nil, SinkFunc(func(ev FutureCreated) { got = append(got, ev) })}

	_, err := l.CreateFuture(trader1, "BTC", price(50000), 1500, 1000)
	require.NoError(t, err)

	require.Len(t, got, 1)
	ev := got[0]
	assert.Equal(t, EventFutureCreated, ev.Event)
	assert.Equal(t, FutureID(1), ev.FutureID)
	assert.Equal(t, trader1, ev.Trader)
	assert.Equal(t, "BTC", ev.Asset)
	assert.True(t, ev.Price.Equal(price(50000)))
	assert.Equal(t, chain.Height(1500), ev.Expiry)
	assert.Equal(t, chain.Height(1000), ev.Timestamp)
}

func TestCreateFutureConcurrent(t *testing.T) {
	l := NewMemoryLedger()

	const workers, perWorker = 8, 50
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[FutureID]bool)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := l.CreateFuture(trader1, "BTC", price(1), 2000, 1000)
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, ids, workers*perWorker)
	for id := FutureID(1); id <= workers*perWorker; id++ {
		assert.True(t, ids[id], "missing id %d", id)
	}
	assert.Equal(t, uint64(workers*perWorker), l.GetFutureCount())
}

type failingStore struct {
	*MemoryStore
	err error
}

func (s failingStore) Insert(Future) error { return s.err }

func TestCreateFutureInsertFailure(t *testing.T) {
	boom := errors.New("write failed")
	l, err := NewLedger(failingStore{MemoryStore: NewMemoryStore(), err: boom}, nil)
	require.NoError(t, err)

	_, err = l.CreateFuture(trader1, "BTC", price(1), 2000, 1000)
	require.ErrorIs(t, err, boom)
	assert.False(t, IsValidationError(err))

	// The allocated id is not reused.
	assert.Equal(t, FutureID(2), l.PeekNextID())
}

func TestNewLedgerDetectsStaleCounter(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Insert(Future{ID: 1, Trader: trader1, Asset: "BTC", Price: price(1), Expiry: 10}))

	_, err := NewLedger(s, &memCounter{next: 1, saved: true})
	assert.ErrorIs(t, err, ErrDuplicateID)

	l, err := NewLedger(s, &memCounter{next: 2, saved: true})
	require.NoError(t, err)
	assert.Equal(t, FutureID(2), l.PeekNextID())

	_, err = NewLedger(nil, nil)
	assert.Error(t, err)
}
