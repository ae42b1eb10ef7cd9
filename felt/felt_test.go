package felt

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromHexRoundTripsThroughHex(t *testing.T) {
	f, err := FromHex("0x1a2b3c")
	require.NoError(t, err)
	require.Equal(t, "0x1a2b3c", f.Hex())
}

func TestFromHexAcceptsBareAndOddLength(t *testing.T) {
	f1, err := FromHex("abc")
	require.NoError(t, err)
	f2, err := FromHex("0xabc")
	require.NoError(t, err)
	require.Equal(t, f1, f2)
}

func TestFromHexRejectsOversizedValue(t *testing.T) {
	_, err := FromHex("0x" + strings.Repeat("f", 70))
	require.Error(t, err)
}

func TestZeroHexIsExplicit(t *testing.T) {
	require.Equal(t, "0x0", Zero.Hex())
	require.True(t, Zero.IsZero())
}

func TestFromBigIntTruncatesToSize(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 300)
	f := FromBigInt(huge)
	require.Len(t, f.Bytes(), Size)
}

func TestFromUint64RoundTripsThroughBig(t *testing.T) {
	f := FromUint64(42)
	require.Equal(t, uint64(42), f.Big().Uint64())
}

func TestShortStringDecodesAsciiPayload(t *testing.T) {
	f := MustFromHex("0x776f726c64") // "world"
	s, err := ShortString(f)
	require.NoError(t, err)
	require.Equal(t, "world", s)
}

func TestShortStringRejectsNonAscii(t *testing.T) {
	f := MustFromHex("0xff")
	_, err := ShortString(f)
	require.Error(t, err)
}

func TestShortStringOfZeroIsEmpty(t *testing.T) {
	s, err := ShortString(Zero)
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestJoinAndSplitListRoundTrip(t *testing.T) {
	in := []Felt{MustFromHex("0x1"), MustFromHex("0x2"), MustFromHex("0xabc")}
	joined := JoinList(in)
	require.Equal(t, "1/2/abc", joined)

	out, err := SplitList(joined)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestJoinListKeepsTrailingZeroSegment(t *testing.T) {
	joined := JoinList([]Felt{MustFromHex("0x1"), Zero})
	require.Equal(t, "1/0", joined)
}

func TestSplitListOfEmptyStringIsNil(t *testing.T) {
	out, err := SplitList("")
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestEventIDIsFixedWidthAndSortable(t *testing.T) {
	id1 := EventID(1, MustFromHex("0xabc"), 0)
	id2 := EventID(2, MustFromHex("0xabc"), 0)
	require.Less(t, id1, id2)
	require.Len(t, id1, 64+1+3+1+4)
}

func TestTransactionHashFromEventIDRecoversSegment(t *testing.T) {
	id := EventID(5, MustFromHex("0xdead"), 2)
	hash, err := TransactionHashFromEventID(id)
	require.NoError(t, err)
	require.Equal(t, "dead", hash)
}

func TestTransactionHashFromEventIDRejectsMalformed(t *testing.T) {
	_, err := TransactionHashFromEventID("not-an-event-id")
	require.Error(t, err)
}
