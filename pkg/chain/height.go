package chain

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Height is a block height, the ledger's only notion of time.
type Height uint64

// HeightSource supplies the current block height to callers that do not
// receive it explicitly (e.g. the API layer).
type HeightSource interface {
	CurrentHeight() Height
}

// Static is a fixed height. Useful for tests and embedders that drive the
// height themselves.
type Static Height

func (s Static) CurrentHeight() Height { return Height(s) }

// Ticker is a devnet block producer: it advances the height by one every
// BlockTime until its context is cancelled.
type Ticker struct {
	BlockTime time.Duration
	Clock     Clock

	// OnBlock is called after every advance with the new height.
	OnBlock func(h Height)

	height atomic.Uint64
	once   sync.Once
}

func NewTicker(start Height, blockTime time.Duration, clock Clock) *Ticker {
	t := &Ticker{BlockTime: blockTime, Clock: clock}
	t.height.Store(uint64(start))
	return t
}

func (t *Ticker) CurrentHeight() Height { return Height(t.height.Load()) }

// Advance moves the chain forward by one block and returns the new height.
func (t *Ticker) Advance() Height {
	h := Height(t.height.Add(1))
	if t.OnBlock != nil {
		t.OnBlock(h)
	}
	return h
}

// Run produces blocks until ctx is done. It may only be started once.
func (t *Ticker) Run(ctx context.Context) error {
	started := false
	t.once.Do(func() { started = true })
	if !started {
		return errTickerStarted
	}
	if t.BlockTime <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	clock := t.Clock
	if clock == nil {
		clock = WallClock{}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(t.BlockTime):
			t.Advance()
		}
	}
}
