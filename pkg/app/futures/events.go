package futures

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/futures-ledger/pkg/chain"
)

const EventFutureCreated = "future-created"

// FutureCreated is emitted once per successful CreateFuture, for indexers
// and other downstream observers. Timestamp is the block height at creation.
type FutureCreated struct {
	Event     string          `json:"event"`
	FutureID  FutureID        `json:"futureId"`
	Trader    Trader          `json:"trader"`
	Asset     string          `json:"asset"`
	Price     decimal.Decimal `json:"price"`
	Expiry    chain.Height    `json:"expiry"`
	Timestamp chain.Height    `json:"timestamp"`
}

func newFutureCreated(f Future, at chain.Height) FutureCreated {
	return FutureCreated{
		Event:     EventFutureCreated,
		FutureID:  f.ID,
		Trader:    f.Trader,
		Asset:     f.Asset,
		Price:     f.Price,
		Expiry:    f.Expiry,
		Timestamp: at,
	}
}

// EventSink receives creation events. Emit is called while the ledger's
// write lock is held, so events arrive in id order; sinks must not block.
type EventSink interface {
	Emit(ev FutureCreated)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ev FutureCreated)

func (f SinkFunc) Emit(ev FutureCreated) { f(ev) }

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ev FutureCreated) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

type nopSink struct{}

func (nopSink) Emit(FutureCreated) {}
