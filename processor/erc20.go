package processor

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/provider"
	"github.com/dojoengine/torii-go/store"
)

var (
	entryPointName     = felt.MustFromHex("0x0361458b")
	entryPointSymbol   = felt.MustFromHex("0x0216b05c")
	entryPointDecimals = felt.MustFromHex("0x004c4317")
)

// Erc20TransferProcessor handles the standard Transfer(from, to, value)
// event on contracts classified contract.KindERC20. No structural
// dependency is declared: token registration is coordinated through C4's
// lock table rather than the task DAG, per spec.md §4.5.
type Erc20TransferProcessor struct{}

func (Erc20TransferProcessor) EventKey() string { return "Erc20Transfer" }

func (Erc20TransferProcessor) Validate(ev Event) bool {
	return len(ev.Event.Keys) >= 3 && len(ev.Event.Data) >= 2
}

func (Erc20TransferProcessor) TaskIdentifier(ev Event) TaskID {
	from, to := ev.Event.Keys[1], ev.Event.Keys[2]
	return HashTaskID(ev.ContractAddress.Bytes(), from.Bytes(), to.Bytes())
}

func (Erc20TransferProcessor) TaskDependencies(ev Event) []TaskID { return nil }

func (p Erc20TransferProcessor) Process(pc Context, ev Event) error {
	from, to := ev.Event.Keys[1], ev.Event.Keys[2]
	value := decodeU256(ev.Event.Data[0], ev.Event.Data[1])
	tokenID := ev.ContractAddress.Hex()

	if err := p.registerIfNeeded(pc, ev.ContractAddress, tokenID); err != nil {
		return errors.Wrap(err, "registering erc20 token")
	}

	if !from.IsZero() {
		pc.Cache.AddBalanceDelta(from.Hex()+":"+tokenID, new(big.Int).Neg(value))
	}
	if !to.IsZero() {
		pc.Cache.AddBalanceDelta(to.Hex()+":"+tokenID, value)
	}
	return nil
}

// registerIfNeeded performs the single-flight registration dance of
// spec.md §4.4: acquire the per-token lock, fetch name/symbol/decimals over
// RPC, enqueue RegisterErc20Token, mark registered, release.
func (p Erc20TransferProcessor) registerIfNeeded(pc Context, contractAddr felt.Felt, tokenID string) error {
	lock, ok := pc.Cache.GetTokenRegistrationLock(tokenID)
	if !ok {
		return nil
	}
	lock.Lock()
	defer lock.Unlock()
	if pc.Cache.IsTokenRegistered(tokenID) {
		return nil
	}

	name, symbol, decimals, err := fetchErc20Metadata(pc, contractAddr)
	if err != nil {
		return err
	}
	if err := pc.Executor.Send(store.Message{
		Kind: store.MsgRegisterErc20Token,
		RegisterErc20Token: &store.RegisterErc20Token{
			TokenID:  tokenID,
			Contract: contractAddr,
			Name:     name,
			Symbol:   symbol,
			Decimals: decimals,
		},
	}); err != nil {
		return err
	}
	pc.Cache.MarkTokenRegistered(tokenID)
	return nil
}

// fetchErc20Metadata calls name()/symbol()/decimals() tolerating contracts
// that revert or return no output for any one of them, the same
// error-tolerant style the teacher's kas/contract_caller2.go uses for
// supportsInterface: a failed probe degrades to an empty field rather than
// aborting the whole registration.
func fetchErc20Metadata(pc Context, contractAddr felt.Felt) (name, symbol string, decimals uint8, err error) {
	call := func(entryPoint felt.Felt) ([]felt.Felt, error) {
		return pc.Provider.Call(pc.Ctx, provider.CallRequest{
			ContractAddress: contractAddr,
			EntryPoint:      entryPoint,
			BlockID:         provider.BlockIDTag(provider.BlockTagLatest),
		})
	}

	if out, cerr := call(entryPointName); cerr == nil && len(out) > 0 {
		if s, serr := felt.ShortString(out[0]); serr == nil {
			name = s
		}
	}
	if out, cerr := call(entryPointSymbol); cerr == nil && len(out) > 0 {
		if s, serr := felt.ShortString(out[0]); serr == nil {
			symbol = s
		}
	}
	if out, cerr := call(entryPointDecimals); cerr == nil && len(out) > 0 {
		decimals = uint8(out[0].Big().Uint64())
	}
	return name, symbol, decimals, nil
}

// decodeU256 combines a (low, high) felt pair into a big.Int, the standard
// Cairo u256 wire encoding.
func decodeU256(low, high felt.Felt) *big.Int {
	v := new(big.Int).Lsh(high.Big(), 128)
	v.Add(v, low.Big())
	return v
}

func u256String(v *big.Int) string { return fmt.Sprintf("%d", v) }
