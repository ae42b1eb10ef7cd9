package processor

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/store"
)

// Erc1155TransferSingleProcessor handles TransferSingle(operator, from, to,
// id, value) on contracts classified contract.KindERC1155.
type Erc1155TransferSingleProcessor struct{}

func (Erc1155TransferSingleProcessor) EventKey() string { return "Erc1155TransferSingle" }

func (Erc1155TransferSingleProcessor) Validate(ev Event) bool {
	return len(ev.Event.Keys) >= 4 && len(ev.Event.Data) >= 4
}

func (Erc1155TransferSingleProcessor) TaskIdentifier(ev Event) TaskID {
	from, to := ev.Event.Keys[2], ev.Event.Keys[3]
	idLow, idHigh := ev.Event.Data[0], ev.Event.Data[1]
	return HashTaskID(ev.ContractAddress.Bytes(), from.Bytes(), to.Bytes(), idLow.Bytes(), idHigh.Bytes())
}

func (Erc1155TransferSingleProcessor) TaskDependencies(ev Event) []TaskID { return nil }

func (p Erc1155TransferSingleProcessor) Process(pc Context, ev Event) error {
	from, to := ev.Event.Keys[2], ev.Event.Keys[3]
	nftID := u256String(decodeU256(ev.Event.Data[0], ev.Event.Data[1]))
	amount := decodeU256(ev.Event.Data[2], ev.Event.Data[3])
	return applyErc1155Transfer(pc, ev.ContractAddress, from, to, nftID, amount)
}

// Erc1155TransferBatchProcessor handles TransferBatch(operator, from, to,
// ids, values). Its task id is derived only from the participants and
// contract, not the batch contents, since a single batch event must
// serialize as one unit regardless of which ids it touches.
type Erc1155TransferBatchProcessor struct{}

func (Erc1155TransferBatchProcessor) EventKey() string { return "Erc1155TransferBatch" }

func (Erc1155TransferBatchProcessor) Validate(ev Event) bool {
	return len(ev.Event.Keys) >= 4 && len(ev.Event.Data) >= 1
}

func (Erc1155TransferBatchProcessor) TaskIdentifier(ev Event) TaskID {
	from, to := ev.Event.Keys[2], ev.Event.Keys[3]
	return HashTaskID(ev.ContractAddress.Bytes(), from.Bytes(), to.Bytes())
}

func (Erc1155TransferBatchProcessor) TaskDependencies(ev Event) []TaskID { return nil }

func (p Erc1155TransferBatchProcessor) Process(pc Context, ev Event) error {
	from, to := ev.Event.Keys[2], ev.Event.Keys[3]
	data := ev.Event.Data
	if len(data) < 1 {
		return errors.New("erc1155 batch transfer: missing array length")
	}
	n := int(data[0].Big().Int64())
	// Cairo serializes Array<u256> as [len, lo0, hi0, lo1, hi1, ...]
	idsStart := 1
	if len(data) < idsStart+2*n+1 {
		return errors.New("erc1155 batch transfer: truncated ids array")
	}
	valuesStart := idsStart + 2*n + 1 // skip the second array's own length word
	if len(data) < valuesStart+2*n {
		return errors.New("erc1155 batch transfer: truncated values array")
	}
	for i := 0; i < n; i++ {
		idLow, idHigh := data[idsStart+2*i], data[idsStart+2*i+1]
		valLow, valHigh := data[valuesStart+2*i], data[valuesStart+2*i+1]
		nftID := u256String(decodeU256(idLow, idHigh))
		amount := decodeU256(valLow, valHigh)
		if err := applyErc1155Transfer(pc, ev.ContractAddress, from, to, nftID, amount); err != nil {
			return errors.Wrapf(err, "batch index %d", i)
		}
	}
	return nil
}

func applyErc1155Transfer(pc Context, contractAddr, from, to felt.Felt, nftID string, amount *big.Int) error {
	tokenID := contractAddr.Hex() + ":" + nftID
	if err := registerErc1155IfNeeded(pc, contractAddr, tokenID, nftID); err != nil {
		return errors.Wrap(err, "registering erc1155 token")
	}
	if !from.IsZero() {
		pc.Cache.AddBalanceDelta(from.Hex()+":"+tokenID, new(big.Int).Neg(amount))
	}
	if !to.IsZero() {
		pc.Cache.AddBalanceDelta(to.Hex()+":"+tokenID, amount)
	}
	return nil
}

func registerErc1155IfNeeded(pc Context, contractAddr felt.Felt, tokenID, nftID string) error {
	lock, ok := pc.Cache.GetTokenRegistrationLock(tokenID)
	if !ok {
		return nil
	}
	lock.Lock()
	defer lock.Unlock()
	if pc.Cache.IsTokenRegistered(tokenID) {
		return nil
	}

	if err := pc.Executor.Send(store.Message{
		Kind: store.MsgRegisterNftToken,
		RegisterNftToken: &store.RegisterNftToken{
			TokenID:  tokenID,
			Contract: contractAddr,
			NftID:    nftID,
		},
	}); err != nil {
		return err
	}
	pc.Cache.MarkTokenRegistered(tokenID)

	metadata := fetchNftMetadata(pc, contractAddr, nftID)
	return pc.Executor.Send(store.Message{
		Kind: store.MsgUpdateNftMetadata,
		UpdateNftMetadata: &store.UpdateNftMetadata{
			TokenID:  tokenID,
			Contract: contractAddr,
			NftID:    nftID,
			Metadata: metadata,
		},
	})
}
