package processor

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/provider"
	"github.com/dojoengine/torii-go/store"
)

var entryPointTokenURI = felt.MustFromHex("0x03b5e8ff")

// Erc721TransferProcessor handles Transfer(from, to, token_id) on contracts
// classified contract.KindERC721. Like its ERC-20 counterpart it declares no
// task dependency; registration single-flight is coordinated via C4.
type Erc721TransferProcessor struct{}

func (Erc721TransferProcessor) EventKey() string { return "Erc721Transfer" }

func (Erc721TransferProcessor) Validate(ev Event) bool {
	return len(ev.Event.Keys) >= 3 && len(ev.Event.Data) >= 2
}

func (Erc721TransferProcessor) TaskIdentifier(ev Event) TaskID {
	from, to := ev.Event.Keys[1], ev.Event.Keys[2]
	tokenIDLow, tokenIDHigh := ev.Event.Data[0], ev.Event.Data[1]
	return HashTaskID(ev.ContractAddress.Bytes(), from.Bytes(), to.Bytes(), tokenIDLow.Bytes(), tokenIDHigh.Bytes())
}

func (Erc721TransferProcessor) TaskDependencies(ev Event) []TaskID { return nil }

func (p Erc721TransferProcessor) Process(pc Context, ev Event) error {
	from, to := ev.Event.Keys[1], ev.Event.Keys[2]
	nftID := u256String(decodeU256(ev.Event.Data[0], ev.Event.Data[1]))
	tokenID := ev.ContractAddress.Hex() + ":" + nftID

	if err := p.registerIfNeeded(pc, ev.ContractAddress, tokenID, nftID); err != nil {
		return errors.Wrap(err, "registering erc721 token")
	}

	one := big.NewInt(1)
	if !from.IsZero() {
		pc.Cache.AddBalanceDelta(from.Hex()+":"+tokenID, new(big.Int).Neg(one))
	}
	if !to.IsZero() {
		pc.Cache.AddBalanceDelta(to.Hex()+":"+tokenID, one)
	}
	return nil
}

func (Erc721TransferProcessor) registerIfNeeded(pc Context, contractAddr felt.Felt, tokenID, nftID string) error {
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

// fetchNftMetadata calls token_uri(token_id) and resolves the returned URI
// through pc.Metadata, degrading to nil (never an error) on any failure —
// a revert, an unreachable gateway, or a malformed URI all leave the token
// registered with empty metadata rather than aborting the tick, per
// spec.md §7.
func fetchNftMetadata(pc Context, contractAddr felt.Felt, nftID string) []byte {
	idInt, ok := new(big.Int).SetString(nftID, 10)
	if !ok {
		return nil
	}
	low, high := splitU256(idInt)
	out, err := pc.Provider.Call(pc.Ctx, provider.CallRequest{
		ContractAddress: contractAddr,
		EntryPoint:      entryPointTokenURI,
		Calldata:        []felt.Felt{low, high},
		BlockID:         provider.BlockIDTag(provider.BlockTagLatest),
	})
	if err != nil || len(out) == 0 || pc.Metadata == nil {
		return nil
	}
	uri := decodeByteString(out)
	if uri == "" {
		return nil
	}
	data, err := pc.Metadata.Fetch(pc.Ctx, uri)
	if err != nil {
		return nil
	}
	return data
}

// splitU256 is the inverse of decodeU256.
func splitU256(v *big.Int) (low, high felt.Felt) {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	low = felt.FromBigInt(new(big.Int).And(v, mask))
	high = felt.FromBigInt(new(big.Int).Rsh(v, 128))
	return low, high
}

// decodeByteString joins a Cairo ByteArray-style felt array (or a single
// short-string felt) into a plain string, tolerating either encoding since
// token_uri implementations vary across contracts.
func decodeByteString(fs []felt.Felt) string {
	if len(fs) == 1 {
		if s, err := felt.ShortString(fs[0]); err == nil {
			return s
		}
		return ""
	}
	var sb []byte
	for _, f := range fs {
		s, err := felt.ShortString(f)
		if err != nil {
			continue
		}
		sb = append(sb, s...)
	}
	return string(sb)
}
