package api

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/uhyunpark/futures-ledger/pkg/app/futures"
)

type replayKey struct {
	trader futures.Trader
	nonce  uint64
}

// ReplayGuard remembers the most recent (trader, nonce) pairs it has seen.
// Once a pair is evicted it could be accepted again; size the cache well
// above the expected in-flight request volume.
type ReplayGuard struct {
	seen *lru.Cache[replayKey, struct{}]
}

func NewReplayGuard(size int) (*ReplayGuard, error) {
	c, err := lru.New[replayKey, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("replay guard: %w", err)
	}
	return &ReplayGuard{seen: c}, nil
}

// Consume marks the pair used and reports whether it was fresh.
func (g *ReplayGuard) Consume(trader futures.Trader, nonce uint64) bool {
	found, _ := g.seen.ContainsOrAdd(replayKey{trader, nonce}, struct{}{})
	return !found
}

func (g *ReplayGuard) Len() int { return g.seen.Len() }
