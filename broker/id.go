package broker

import (
	"crypto/rand"
	"encoding/binary"
)

// newSubscriptionID generates a random 64-bit subscription id. Collisions
// are ignored in practice, per spec.md §3.
func newSubscriptionID() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand.Read on the standard reader only fails if the OS
		// entropy source is unavailable, which would make the whole
		// process unreliable well before this call.
		panic(err)
	}
	return binary.BigEndian.Uint64(b[:])
}
