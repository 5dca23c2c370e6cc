package order

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"
)

// NumberGenerator produces human-readable order numbers.
type NumberGenerator interface {
	Next() string
}

// TimestampNumbers generates order numbers of the form
// ORD-<millisecond timestamp>-<random suffix>.
//
// The timestamp plus 40 bits of entropy make collisions unlikely but not
// impossible; the orders table carries a unique constraint on order_number
// and the service retries once with a fresh number on collision.
type TimestampNumbers struct{}

var suffixEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func (TimestampNumbers) Next() string {
	var b [5]byte
	// crypto/rand.Read never fails on supported platforms.
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffixEncoding.EncodeToString(b[:]))
}
