package storage

import (
	"github.com/uhyunpark/futures-ledger/pkg/app/futures"
)

// Key schema:
//
//	fut:<8-byte big-endian id> -> Future (JSON)
//	meta:next_id               -> next FutureID (8-byte big-endian)
//	meta:count                 -> number of stored futures (8-byte big-endian)
//
// Big-endian ids make lexicographic key order equal to id order.
const (
	prefixFuture = "fut:"
	prefixMeta   = "meta:"
)

func futureKey(id futures.FutureID) []byte {
	return append([]byte(prefixFuture), encodeUint64(uint64(id))...)
}

func futurePrefix() []byte { return []byte(prefixFuture) }

func nextIDKey() []byte { return []byte(prefixMeta + "next_id") }
func countKey() []byte  { return []byte(prefixMeta + "count") }

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
