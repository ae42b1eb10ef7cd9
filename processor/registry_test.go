package processor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dojoengine/torii-go/contract"
	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/provider"
)

type stubProcessor struct {
	name    string
	valid   bool
	handled *string
}

func (p stubProcessor) EventKey() string                      { return p.name }
func (p stubProcessor) Validate(ev Event) bool                { return p.valid }
func (p stubProcessor) TaskIdentifier(ev Event) TaskID        { return 0 }
func (p stubProcessor) TaskDependencies(ev Event) []TaskID    { return nil }
func (p stubProcessor) Process(pc Context, ev Event) error {
	*p.handled = p.name
	return nil
}

func TestDispatchPicksFirstValidatingCandidate(t *testing.T) {
	r := NewRegistry()
	selector := felt.MustFromHex("0x1")

	var handled string
	first := stubProcessor{name: "first", valid: false, handled: &handled}
	second := stubProcessor{name: "second", valid: true, handled: &handled}
	third := stubProcessor{name: "third", valid: true, handled: &handled}

	r.Register(contract.KindWorld, selector, first)
	r.Register(contract.KindWorld, selector, second)
	r.Register(contract.KindWorld, selector, third)

	ev := Event{ContractKind: contract.KindWorld, Event: provider.Event{Keys: []felt.Felt{selector}}}
	got := r.Dispatch(ev)
	require.NoError(t, got.Process(Context{}, ev))
	require.Equal(t, "second", handled)
}

func TestDispatchFallsBackToCatchAll(t *testing.T) {
	r := NewRegistry()
	ev := Event{ContractKind: contract.KindERC20, Event: provider.Event{Keys: []felt.Felt{felt.MustFromHex("0xdead")}}}
	got := r.Dispatch(ev)
	_, ok := got.(CatchAll)
	require.True(t, ok)
}

func TestDispatchWithNoKeysIsCatchAll(t *testing.T) {
	r := NewRegistry()
	ev := Event{ContractKind: contract.KindWorld}
	got := r.Dispatch(ev)
	_, ok := got.(CatchAll)
	require.True(t, ok)
}

func TestDispatchIsScopedByContractKind(t *testing.T) {
	r := NewRegistry()
	selector := felt.MustFromHex("0x2")
	var handled string
	r.Register(contract.KindERC721, selector, stubProcessor{name: "nft", valid: true, handled: &handled})

	ev := Event{ContractKind: contract.KindERC1155, Event: provider.Event{Keys: []felt.Felt{selector}}}
	got := r.Dispatch(ev)
	_, ok := got.(CatchAll)
	require.True(t, ok, "same selector under a different contract kind must not match")
}

func TestHashTaskIDIsDeterministicAndOrderSensitive(t *testing.T) {
	a := HashTaskID([]byte("alpha"), []byte("beta"))
	b := HashTaskID([]byte("alpha"), []byte("beta"))
	c := HashTaskID([]byte("beta"), []byte("alpha"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
