package futures

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/futures-ledger/pkg/chain"
)

// FutureID identifies a future. Assigned once, at creation, by the Allocator.
type FutureID uint64

// Trader is the account that created a future. It is a distinct type from
// common.Address (and from asset symbols) so the two cannot be mixed up.
type Trader common.Address

// HexToTrader parses a 0x-prefixed hex address.
func HexToTrader(s string) Trader { return Trader(common.HexToAddress(s)) }

// IsHexTrader reports whether s is a valid hex-encoded account address.
func IsHexTrader(s string) bool { return common.IsHexAddress(s) }

func (t Trader) Address() common.Address { return common.Address(t) }

// Hex returns the EIP-55 checksummed form.
func (t Trader) Hex() string    { return common.Address(t).Hex() }
func (t Trader) String() string { return t.Hex() }

func (t Trader) MarshalText() ([]byte, error) { return []byte(t.Hex()), nil }

func (t *Trader) UnmarshalText(input []byte) error {
	return (*common.Address)(t).UnmarshalText(input)
}

// Future is the only persisted entity: a strike price on an asset, valid
// until the chain reaches Expiry.
type Future struct {
	ID     FutureID        `json:"id"`
	Trader Trader          `json:"trader"`
	Asset  string          `json:"asset"`
	Price  decimal.Decimal `json:"price"`
	Expiry chain.Height    `json:"expiry"`
}

// IsExpiredAt reports whether the future has expired at height h.
// Expiry is inclusive: a future expires at exactly its expiry height.
func (f Future) IsExpiredAt(h chain.Height) bool { return h >= f.Expiry }

// Equal compares field by field; decimal.Decimal is not comparable with ==.
func (f Future) Equal(o Future) bool {
	return f.ID == o.ID &&
		f.Trader == o.Trader &&
		f.Asset == o.Asset &&
		f.Price.Equal(o.Price) &&
		f.Expiry == o.Expiry
}
