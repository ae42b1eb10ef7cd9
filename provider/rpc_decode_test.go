package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dojoengine/torii-go/felt"
)

func TestDecodeFeltListParsesEveryEntry(t *testing.T) {
	out, err := decodeFeltList([]string{"0x1", "0x2", "0xabc"})
	require.NoError(t, err)
	require.Equal(t, []felt.Felt{felt.MustFromHex("0x1"), felt.MustFromHex("0x2"), felt.MustFromHex("0xabc")}, out)
}

func TestDecodeFeltListRejectsBadHex(t *testing.T) {
	_, err := decodeFeltList([]string{"not-hex"})
	require.Error(t, err)
}

func TestDecodeFeltListOfEmptyIsEmptyNotNil(t *testing.T) {
	out, err := decodeFeltList(nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Len(t, out, 0)
}

func TestDecodeBlockHeaderParsesFields(t *testing.T) {
	b, err := decodeBlockHeader("0x1", "0x2", 100, 123456, "ACCEPTED_ON_L2")
	require.NoError(t, err)
	require.Equal(t, uint64(100), b.BlockNumber)
	require.Equal(t, felt.MustFromHex("0x1"), b.BlockHash)
	require.Equal(t, felt.MustFromHex("0x2"), b.ParentHash)
	require.False(t, b.IsPending)
}

func TestDecodeBlockHeaderRecognizesPendingStatuses(t *testing.T) {
	b, err := decodeBlockHeader("0x1", "0x2", 1, 1, "PENDING")
	require.NoError(t, err)
	require.True(t, b.IsPending)

	b, err = decodeBlockHeader("0x1", "0x2", 1, 1, "ACCEPTED_ON_L2_PENDING")
	require.NoError(t, err)
	require.True(t, b.IsPending)
}

func TestDecodeBlockHeaderToleratesEmptyHashOnPendingBlock(t *testing.T) {
	b, err := decodeBlockHeader("", "0x2", 1, 1, "PENDING")
	require.NoError(t, err)
	require.Equal(t, felt.Zero, b.BlockHash)
}

func TestDecodeTransactionParsesCalldataAndEvents(t *testing.T) {
	tx := txWireFull{TransactionHash: "0xaa", Calldata: []string{"0x1", "0x2"}}
	receipt := receiptWire{
		TransactionHash: "0xaa",
		Events: []struct {
			FromAddress string   `json:"from_address"`
			Keys        []string `json:"keys"`
			Data        []string `json:"data"`
		}{
			{FromAddress: "0xbb", Keys: []string{"0x1"}, Data: []string{"0x2"}},
		},
	}
	out, err := decodeTransaction(tx, receipt)
	require.NoError(t, err)
	require.Equal(t, felt.MustFromHex("0xaa"), out.TransactionHash)
	require.Len(t, out.Calldata, 2)
	require.Len(t, out.Events, 1)
	require.Equal(t, felt.MustFromHex("0xbb"), out.Events[0].FromAddress)
}

func TestDecodeTransactionRejectsBadTransactionHash(t *testing.T) {
	_, err := decodeTransaction(txWireFull{TransactionHash: "zz"}, receiptWire{})
	require.Error(t, err)
}

func TestBlockIDParamEncodesNumberOverTag(t *testing.T) {
	n := uint64(42)
	params := blockIDParam(BlockID{Number: &n, Tag: BlockTagLatest})
	m, ok := params.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, uint64(42), m["block_number"])
}

func TestBlockIDParamEncodesTagAsString(t *testing.T) {
	params := blockIDParam(BlockIDTag(BlockTagLatest))
	require.Equal(t, "latest", params)
}

func TestCallParamsEncodesEntryPointAndCalldata(t *testing.T) {
	req := CallRequest{
		ContractAddress: felt.MustFromHex("0x1"),
		EntryPoint:      felt.MustFromHex("0x2"),
		Calldata:        []felt.Felt{felt.MustFromHex("0x3")},
		BlockID:         BlockIDTag(BlockTagLatest),
	}
	params := callParams(req)
	inner := params["request"].(map[string]interface{})
	require.Equal(t, "0x1", inner["contract_address"])
	require.Equal(t, "0x2", inner["entry_point_selector"])
	require.Equal(t, []string{"0x3"}, inner["calldata"])
	require.Equal(t, "latest", params["block_id"])
}

func TestGetEventsParamsOmitsAddressAndKeysWhenUnset(t *testing.T) {
	req := GetEventsRequest{Filter: EventFilter{FromBlock: BlockIDNumber(1), ToBlock: BlockIDNumber(2)}, ChunkSize: 10}
	params := getEventsParams(req)
	_, hasAddr := params["address"]
	_, hasKeys := params["keys"]
	require.False(t, hasAddr)
	require.False(t, hasKeys)
	require.Equal(t, uint64(10), params["chunk_size"])
}

func TestGetEventsParamsIncludesAddressKeysAndContinuationToken(t *testing.T) {
	addr := felt.MustFromHex("0xdead")
	token := "abc123"
	req := GetEventsRequest{
		Filter: EventFilter{
			FromBlock: BlockIDNumber(1),
			ToBlock:   BlockIDNumber(2),
			Address:   &addr,
			Keys:      [][]felt.Felt{{felt.MustFromHex("0x1")}},
		},
		ChunkSize:         5,
		ContinuationToken: &token,
	}
	params := getEventsParams(req)
	require.Equal(t, "0xdead", params["address"])
	require.Equal(t, "abc123", params["continuation_token"])
	keys, ok := params["keys"].([][]string)
	require.True(t, ok)
	require.Equal(t, [][]string{{"0x1"}}, keys)
}
