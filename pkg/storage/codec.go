package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/uhyunpark/futures-ledger/pkg/app/futures"
)

func encodeFuture(f futures.Future) ([]byte, error) {
	return json.Marshal(f)
}

func decodeFuture(b []byte) (futures.Future, error) {
	var f futures.Future
	if err := json.Unmarshal(b, &f); err != nil {
		return futures.Future{}, err
	}
	return f, nil
}

func encodeUint64(v uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], v)
	return k[:]
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
