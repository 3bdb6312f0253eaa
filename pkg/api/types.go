package api

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/futures-ledger/pkg/app/futures"
	"github.com/uhyunpark/futures-ledger/pkg/chain"
)

// ==============================
// REST Request Types
// ==============================

// CreateFutureRequest is the payload for POST /api/v1/futures. Signature is
// the 0x-hex EIP-712 signature over the other fields.
type CreateFutureRequest struct {
	Trader    string `json:"trader"`
	Asset     string `json:"asset"`
	Price     string `json:"price"` // decimal string, e.g. "50000.5"
	Expiry    uint64 `json:"expiry"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

// ==============================
// REST Response Types
// ==============================

type CreateFutureResponse struct {
	FutureID futures.FutureID `json:"futureId"`
}

type FutureCountResponse struct {
	Count  uint64           `json:"count"`
	NextID futures.FutureID `json:"nextId"`
}

type ExpiryStatus struct {
	FutureID          futures.FutureID `json:"futureId"`
	Height            chain.Height     `json:"height"`
	Expired           bool             `json:"expired"`
	BlocksUntilExpiry uint64           `json:"blocksUntilExpiry"`
}

type AveragePriceResponse struct {
	Asset        string          `json:"asset"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	Count        int             `json:"count"`
}

// ChainStatus is served at /api/v1/chain/status and pushed on every block.
type ChainStatus struct {
	Height       chain.Height     `json:"height"`
	FutureCount  uint64           `json:"futureCount"`
	NextFutureID futures.FutureID `json:"nextFutureId"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

const (
	ChannelFutures = "futures"
	ChannelChain   = "chain"
)

// AssetChannel carries future-created events for a single asset.
func AssetChannel(asset string) string { return ChannelFutures + ":" + asset }

// WSMessage is the envelope for every server push.
type WSMessage struct {
	Type string `json:"type"` // "future-created", "block", "subscribed"
	Data any    `json:"data"`
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["futures", "futures:BTC", "chain"]
}
