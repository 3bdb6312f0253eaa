package futures

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

var (
	trader1 = HexToTrader("0xAA00000000000000000000000000000000000001")
	trader2 = HexToTrader("0xBB00000000000000000000000000000000000002")
	trader3 = HexToTrader("0xCC00000000000000000000000000000000000003")
)

func TestMemoryStoreInsertGet(t *testing.T) {
	s := NewMemoryStore()

	btc := Future{ID: 1, Trader: trader1, Asset: "BTC", Price: decimal.NewFromInt(50000), Expiry: 1000}
	eth := Future{ID: 2, Trader: trader2, Asset: "ETH", Price: decimal.NewFromInt(3000), Expiry: 1500}
	if err := s.Insert(btc); err != nil {
		t.Fatalf("insert btc: %v", err)
	}
	if err := s.Insert(eth); err != nil {
		t.Fatalf("insert eth: %v", err)
	}

	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if !got.Equal(btc) {
		t.Errorf("Get(1) = %+v, want %+v", got, btc)
	}

	if _, err := s.Get(3); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(3) err = %v, want ErrNotFound", err)
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
}

func TestMemoryStoreDuplicateID(t *testing.T) {
	s := NewMemoryStore()
	s.Insert(Future{ID: 1, Trader: trader1, Asset: "BTC", Price: decimal.NewFromInt(1), Expiry: 10})

	err := s.Insert(Future{ID: 1, Trader: trader2, Asset: "ETH", Price: decimal.NewFromInt(2), Expiry: 20})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Insert duplicate err = %v, want ErrDuplicateID", err)
	}

	// The original record is untouched.
	got, _ := s.Get(1)
	if got.Trader != trader1 || got.Asset != "BTC" {
		t.Errorf("record overwritten: %+v", got)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestMemoryStoreFilter(t *testing.T) {
	s := NewMemoryStore()
	for i, asset := range []string{"BTC", "ETH", "BTC", "SOL", "BTC"} {
		s.Insert(Future{ID: FutureID(i + 1), Trader: trader1, Asset: asset, Price: decimal.NewFromInt(1), Expiry: 10})
	}

	seq := s.Filter(func(f Future) bool { return f.Asset == "BTC" })

	var ids []FutureID
	for f := range seq {
		ids = append(ids, f.ID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 3 || ids[2] != 5 {
		t.Fatalf("filtered ids = %v, want [1 3 5]", ids)
	}

	// Restartable: a second pass yields the same sequence.
	n := 0
	for range seq {
		n++
	}
	if n != 3 {
		t.Errorf("second pass yielded %d, want 3", n)
	}

	// Early break stops iteration.
	n = 0
	for range s.Filter(nil) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("early break yielded %d, want 2", n)
	}
}
