// Package contract defines the statically-configured set of addresses the
// engine indexes, per spec.md §3: "Static, provided at startup; the set of
// indexed addresses is closed."
package contract

import "github.com/dojoengine/torii-go/felt"

// Kind classifies how an indexed contract's events are interpreted.
type Kind uint8

const (
	KindWorld Kind = iota
	KindERC20
	KindERC721
	KindERC1155
	KindUDC
)

func (k Kind) String() string {
	switch k {
	case KindWorld:
		return "WORLD"
	case KindERC20:
		return "ERC20"
	case KindERC721:
		return "ERC721"
	case KindERC1155:
		return "ERC1155"
	case KindUDC:
		return "UDC"
	default:
		return "UNKNOWN"
	}
}

// Contract is one statically-indexed address.
type Contract struct {
	Address felt.Felt
	Kind    Kind
}

// Set is the closed collection of contracts the engine was started with, and
// the lookup table the process stage (C8) uses to classify a log's
// from_address.
type Set struct {
	byAddress map[felt.Felt]Kind
}

// NewSet builds a lookup set from the configured contract list.
func NewSet(contracts []Contract) *Set {
	m := make(map[felt.Felt]Kind, len(contracts))
	for _, c := range contracts {
		m[c.Address] = c.Kind
	}
	return &Set{byAddress: m}
}

// Lookup returns the kind of an indexed address, or ok=false if the address
// is not one the engine was configured to index (the event must be
// skipped — spec.md §4.8 step 1: "Skip unindexed contracts.").
func (s *Set) Lookup(address felt.Felt) (Kind, bool) {
	k, ok := s.byAddress[address]
	return k, ok
}

// Addresses returns every indexed address, used by the fetch stage to build
// per-contract event requests.
func (s *Set) Addresses() []felt.Felt {
	out := make([]felt.Felt, 0, len(s.byAddress))
	for a := range s.byAddress {
		out = append(out, a)
	}
	return out
}
