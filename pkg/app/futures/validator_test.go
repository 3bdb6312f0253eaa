package futures

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/futures-ledger/pkg/chain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		asset   string
		price   decimal.Decimal
		expiry  chain.Height
		current chain.Height
		want    error
	}{
		{"valid", "BTC", decimal.NewFromInt(50000), 1500, 1000, nil},
		{"valid fractional price", "ETH", decimal.RequireFromString("0.0001"), 1, 0, nil},
		{"long asset symbol", "VERY_LONG_ASSET_NAME_THAT_SHOULD_BE_HANDLED", decimal.NewFromInt(1), 1000000, 1000, nil},
		{"empty asset", "", decimal.NewFromInt(50000), 1500, 1000, ErrInvalidAsset},
		{"zero price", "BTC", decimal.Zero, 1500, 1000, ErrInvalidPrice},
		{"negative price", "BTC", decimal.NewFromInt(-1), 1500, 1000, ErrInvalidPrice},
		{"expiry in the past", "BTC", decimal.NewFromInt(50000), 800, 1000, ErrInvalidExpiry},
		{"expiry equals current height", "BTC", decimal.NewFromInt(50000), 1000, 1000, ErrInvalidExpiry},
		{"asset checked before price", "", decimal.Zero, 0, 1000, ErrInvalidAsset},
		{"max fractional digits", "BTC", decimal.RequireFromString("0.000000000000000001"), 1500, 1000, nil},
		{"max integer digits", "BTC", decimal.RequireFromString("1e77"), 1500, 1000, nil},
		{"too many fractional digits", "BTC", decimal.RequireFromString("0.0000000000000000001"), 1500, 1000, ErrInvalidPrice},
		{"huge exponent", "BTC", decimal.RequireFromString("1e5000000"), 1500, 1000, ErrInvalidPrice},
		{"huge negative exponent", "BTC", decimal.RequireFromString("-1e5000000"), 1500, 1000, ErrInvalidPrice},
		{"too many integer digits", "BTC", decimal.RequireFromString("1e78"), 1500, 1000, ErrInvalidPrice},
		{"price checked before expiry", "BTC", decimal.Zero, 0, 1000, ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.asset, tt.price, tt.expiry, tt.current)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
			if !IsValidationError(err) {
				t.Errorf("IsValidationError(%v) = false", err)
			}
		})
	}
}

func TestValidateHugePriceErrorIsShort(t *testing.T) {
	err := Validate("BTC", decimal.RequireFromString("1e50000000"), 1500, 1000)
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("Validate() = %v, want ErrInvalidPrice", err)
	}
	if len(err.Error()) > 200 {
		t.Errorf("error message is %d bytes", len(err.Error()))
	}
}

// Validate must agree with the boolean predicate
// asset != "" && price > 0 && expiry > current for every input.
func TestValidateMatchesPredicate(t *testing.T) {
	assets := []string{"", "BTC"}
	prices := []int64{-5, 0, 1, 50000}
	heights := []chain.Height{0, 1, 999, 1000, 1001, 2000}

	for _, asset := range assets {
		for _, p := range prices {
			for _, expiry := range heights {
				for _, current := range heights {
					want := asset != "" && p > 0 && expiry > current
					got := Validate(asset, decimal.NewFromInt(p), expiry, current) == nil
					if got != want {
						t.Errorf("Validate(%q, %d, %d, %d) ok=%v, want %v", asset, p, expiry, current, got, want)
					}
				}
			}
		}
	}
}
