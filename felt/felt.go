// Package felt implements the 252-bit field element used throughout the
// indexed chain's wire format: block hashes, contract addresses, event keys
// and data, and transaction hashes are all felts.
//
// The type follows the fixed-size-array style of the teacher's own
// common.Hash/common.Address types: a comparable, map-key-friendly value
// type backed by a big-endian byte array, with Hex()/SetBytes() accessors.
package felt

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Size is the number of bytes used to serialize a Felt (big-endian, the top
// 4 bits always zero since a felt is a 252-bit value).
const Size = 32

// Felt is a fixed-size 252-bit field element.
type Felt [Size]byte

// Zero is the additive identity.
var Zero = Felt{}

// FromBigInt truncates b into a Felt using big-endian byte order.
func FromBigInt(b *big.Int) Felt {
	var f Felt
	bz := b.Bytes()
	if len(bz) > Size {
		bz = bz[len(bz)-Size:]
	}
	copy(f[Size-len(bz):], bz)
	return f
}

// FromUint64 builds a Felt out of a plain uint64.
func FromUint64(v uint64) Felt {
	return FromBigInt(new(big.Int).SetUint64(v))
}

// FromHex parses a "0x..."-prefixed (or bare) hex string into a Felt.
func FromHex(s string) (Felt, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	bz, err := hex.DecodeString(s)
	if err != nil {
		return Felt{}, fmt.Errorf("felt: invalid hex %q: %w", s, err)
	}
	if len(bz) > Size {
		return Felt{}, fmt.Errorf("felt: value too large (%d bytes)", len(bz))
	}
	var f Felt
	copy(f[Size-len(bz):], bz)
	return f, nil
}

// MustFromHex is FromHex but panics on error; used for constant tables
// such as the event selectors in package processor.
func MustFromHex(s string) Felt {
	f, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Big returns the felt as a big.Int.
func (f Felt) Big() *big.Int {
	return new(big.Int).SetBytes(f[:])
}

// Hex renders the felt as a "0x"-prefixed, non-zero-padded hex string, the
// way the chain's own RPC and the teacher's common.Hash.Hex() do.
func (f Felt) Hex() string {
	trimmed := strings.TrimLeft(hex.EncodeToString(f[:]), "0")
	if trimmed == "" {
		return "0x0"
	}
	return "0x" + trimmed
}

// Bytes returns the big-endian 32-byte representation.
func (f Felt) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, f[:])
	return out
}

// IsZero reports whether the felt is the additive identity.
func (f Felt) IsZero() bool {
	return f == Zero
}

// String implements fmt.Stringer and is equivalent to Hex.
func (f Felt) String() string {
	return f.Hex()
}

// ShortString decodes f as a Cairo short string (ASCII bytes packed into the
// felt, most-significant byte first, NUL-padded on the left).
func ShortString(f Felt) (string, error) {
	bz := f[:]
	i := 0
	for i < len(bz) && bz[i] == 0 {
		i++
	}
	out := bz[i:]
	for _, b := range out {
		if b == 0 || b > 0x7f {
			return "", fmt.Errorf("felt: %q is not a valid short string", f.Hex())
		}
	}
	return string(out), nil
}
