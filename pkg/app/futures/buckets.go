package futures

import (
	"fmt"

	"github.com/uhyunpark/futures-ledger/pkg/chain"
)

// ExpiryBuckets splits futures into near, medium and long term by expiry:
//
//	near:   expiry <= NearMax
//	medium: NearMax < expiry < MediumMax
//	long:   expiry >= MediumMax
//
// The medium bucket is half-open at the top, so a future expiring exactly
// at MediumMax is long term. With thresholds (1500, 2000), expiries
// 1000, 1500, 2000 split 2/0/1 and expiries 1000, 1500, 2000, 2500 split
// 2/0/2. An inclusive medium bound (expiry <= MediumMax) would give 2/1/1
// for the latter.
type ExpiryBuckets struct {
	NearMax   chain.Height `json:"nearMax"`
	MediumMax chain.Height `json:"mediumMax"`
	Near      []Future     `json:"near"`
	Medium    []Future     `json:"medium"`
	Long      []Future     `json:"long"`
}

// BucketByExpiry classifies every stored future in a single pass.
func (l *Ledger) BucketByExpiry(nearMax, mediumMax chain.Height) (ExpiryBuckets, error) {
	if nearMax > mediumMax {
		return ExpiryBuckets{}, fmt.Errorf("%w: near threshold %d above medium threshold %d", ErrInvalidRange, nearMax, mediumMax)
	}

	b := ExpiryBuckets{
		NearMax:   nearMax,
		MediumMax: mediumMax,
		Near:      make([]Future, 0),
		Medium:    make([]Future, 0),
		Long:      make([]Future, 0),
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for f := range l.store.Filter(nil) {
		switch {
		case f.Expiry <= nearMax:
			b.Near = append(b.Near, f)
		case f.Expiry < mediumMax:
			b.Medium = append(b.Medium, f)
		default:
			b.Long = append(b.Long, f)
		}
	}
	return b, nil
}
