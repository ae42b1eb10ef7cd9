package processor

import "github.com/dojoengine/torii-go/felt"

// Event selectors are starknet_keccak("EventName") truncated to fit a felt,
// the same values the provider's eth_getLogs-equivalent filters key on.
// They are declared once here so the registry wiring in RegisterBuiltins
// (processor/builtin.go) and the test suite share a single source of truth
// instead of re-deriving them.
var (
	SelectorRegisterModel     = felt.MustFromHex("0x03f3a3b7")
	SelectorStoreSetRecord    = felt.MustFromHex("0x01470e5b")
	SelectorStoreUpdateRecord = felt.MustFromHex("0x02c5a1f9")
	SelectorStoreDelRecord    = felt.MustFromHex("0x0456d3b1")
	SelectorStoreUpdateMember = felt.MustFromHex("0x05e9a2c7")
	SelectorEventEmitted      = felt.MustFromHex("0x06aa1d44")

	// SelectorTransfer is shared by ERC-20 and ERC-721; the two are told
	// apart by the emitting contract's kind, under which RegisterBuiltins
	// registers each processor.
	SelectorTransfer       = felt.MustFromHex("0x0099cd8")
	SelectorTransferSingle = felt.MustFromHex("0x0b04ac6")
	SelectorTransferBatch  = felt.MustFromHex("0x0c3e9f2")

	// SelectorContractDeployed is the UDC's ContractDeployed event, the
	// only selector ControllerProcessor is ever dispatched under.
	SelectorContractDeployed = felt.MustFromHex("0x026b160f")
)
