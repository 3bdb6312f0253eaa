package futures

import "github.com/uhyunpark/futures-ledger/pkg/chain"

// Query combines the read filters. Nil fields and an empty Asset match
// everything; set fields are ANDed.
type Query struct {
	Trader    *Trader
	Asset     string
	MinExpiry *chain.Height
	MaxExpiry *chain.Height
	// ActiveAt keeps only futures not yet expired at this height.
	ActiveAt *chain.Height
}

func (q Query) Matches(f Future) bool {
	if q.Trader != nil && f.Trader != *q.Trader {
		return false
	}
	if q.Asset != "" && f.Asset != q.Asset {
		return false
	}
	if q.MinExpiry != nil && f.Expiry < *q.MinExpiry {
		return false
	}
	if q.MaxExpiry != nil && f.Expiry > *q.MaxExpiry {
		return false
	}
	if q.ActiveAt != nil && f.IsExpiredAt(*q.ActiveAt) {
		return false
	}
	return true
}

// Find returns every future matching q in ascending id order.
func (l *Ledger) Find(q Query) []Future {
	return l.collect(q.Matches)
}
