package processor

import "github.com/dojoengine/torii-go/contract"

// RegisterBuiltins wires every built-in processor into r under its
// (contract_kind, selector) dispatch key, the same fixed set spec.md §4.5
// enumerates. Callers needing only a subset should register processors
// individually instead of calling this.
func RegisterBuiltins(r *Registry) {
	r.Register(contract.KindWorld, SelectorRegisterModel, RegisterModelProcessor{})
	r.Register(contract.KindWorld, SelectorStoreSetRecord, StoreSetRecordProcessor{})
	r.Register(contract.KindWorld, SelectorStoreUpdateRecord, StoreUpdateRecordProcessor{})
	r.Register(contract.KindWorld, SelectorStoreDelRecord, StoreDelRecordProcessor{})
	r.Register(contract.KindWorld, SelectorStoreUpdateMember, StoreUpdateMemberProcessor{})
	r.Register(contract.KindWorld, SelectorEventEmitted, EventEmittedProcessor{})

	r.Register(contract.KindERC20, SelectorTransfer, Erc20TransferProcessor{})
	r.Register(contract.KindERC721, SelectorTransfer, Erc721TransferProcessor{})
	r.Register(contract.KindERC1155, SelectorTransferSingle, Erc1155TransferSingleProcessor{})
	r.Register(contract.KindERC1155, SelectorTransferBatch, Erc1155TransferBatchProcessor{})

	r.Register(contract.KindUDC, SelectorContractDeployed, ControllerProcessor{})
}
