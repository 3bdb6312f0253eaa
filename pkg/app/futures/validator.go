package futures

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/futures-ledger/pkg/chain"
)

// Price bounds. A decimal's exponent is otherwise unbounded, and a short
// input such as "1e5000000" would expand to millions of digits when printed.
const (
	MaxPriceScale         = 18 // digits after the decimal point
	MaxPriceIntegerDigits = 78 // digits before it; uint256 range
)

// Validate checks proposed future parameters against the current height.
// It touches no state and may be called on its own.
//
// Checks run in a fixed order (asset, price, expiry), so a request with
// several problems always reports the first one.
func Validate(asset string, price decimal.Decimal, expiry, current chain.Height) error {
	if asset == "" {
		return fmt.Errorf("%w: asset symbol is empty", ErrInvalidAsset)
	}
	// Bounds come before anything that formats price.
	if exp := int(price.Exponent()); exp < -MaxPriceScale || price.NumDigits()+exp > MaxPriceIntegerDigits {
		return fmt.Errorf("%w: price exceeds %d integer or %d fractional digits", ErrInvalidPrice, MaxPriceIntegerDigits, MaxPriceScale)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", ErrInvalidPrice, price)
	}
	if expiry <= current {
		return fmt.Errorf("%w: expiry %d must be after current height %d", ErrInvalidExpiry, expiry, current)
	}
	return nil
}
