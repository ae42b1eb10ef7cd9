package contract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dojoengine/torii-go/felt"
)

func TestSetLookupFindsConfiguredAddress(t *testing.T) {
	world := felt.MustFromHex("0x1")
	erc20 := felt.MustFromHex("0x2")
	s := NewSet([]Contract{{Address: world, Kind: KindWorld}, {Address: erc20, Kind: KindERC20}})

	kind, ok := s.Lookup(world)
	require.True(t, ok)
	require.Equal(t, KindWorld, kind)
}

func TestSetLookupMissesUnindexedAddress(t *testing.T) {
	s := NewSet([]Contract{{Address: felt.MustFromHex("0x1"), Kind: KindWorld}})
	_, ok := s.Lookup(felt.MustFromHex("0xdead"))
	require.False(t, ok)
}

func TestSetAddressesReturnsEveryConfiguredAddress(t *testing.T) {
	a, b := felt.MustFromHex("0x1"), felt.MustFromHex("0x2")
	s := NewSet([]Contract{{Address: a, Kind: KindWorld}, {Address: b, Kind: KindUDC}})
	require.ElementsMatch(t, []felt.Felt{a, b}, s.Addresses())
}

func TestKindStringNamesEveryVariant(t *testing.T) {
	cases := map[Kind]string{
		KindWorld:   "WORLD",
		KindERC20:   "ERC20",
		KindERC721:  "ERC721",
		KindERC1155: "ERC1155",
		KindUDC:     "UDC",
	}
	for k, want := range cases {
		require.Equal(t, want, k.String())
	}
	require.Equal(t, "UNKNOWN", Kind(255).String())
}
