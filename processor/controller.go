package processor

import (
	"time"

	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/store"
)

// cartridgeMagic is the 22-felt ASCII marker of "https://x.cartridge.gg/"
// that a Cartridge Controller account's constructor calldata embeds, the
// same constant controller.rs declares to recognize controller deployments
// among generic UDC ContractDeployed events.
var cartridgeMagic = [...]felt.Felt{
	feltFromByte('h'), feltFromByte('t'), feltFromByte('t'), feltFromByte('p'),
	feltFromByte('s'), feltFromByte(':'), feltFromByte('/'), feltFromByte('/'),
	feltFromByte('x'), feltFromByte('.'), feltFromByte('c'), feltFromByte('a'),
	feltFromByte('r'), feltFromByte('t'), feltFromByte('r'), feltFromByte('i'),
	feltFromByte('d'), feltFromByte('g'), feltFromByte('e'), feltFromByte('.'),
	feltFromByte('g'), feltFromByte('g'),
}

func feltFromByte(b byte) felt.Felt {
	return felt.FromUint64(uint64(b))
}

// ControllerProcessor recognizes Cartridge Controller account deployments
// emitted via the UDC's ContractDeployed event and records
// (username, address, timestamp) tuples, per spec.md §4.5.
type ControllerProcessor struct{}

func (ControllerProcessor) EventKey() string { return "ControllerDeployed" }

// cartridgeMagicOffset is the fixed felt offset the magic sequence starts
// at within the calldata, per spec.md §4.5 ("22-felt marker equal to the
// ASCII of https://x.cartridge.gg/") and scenario S4 ("data, offset 3..25").
const cartridgeMagicOffset = 3

// Validate checks the calldata for the 22-felt Cartridge magic sequence at
// its fixed offset, exactly as controller.rs does; the trailing felt after
// the magic window carries the username.
func (ControllerProcessor) Validate(ev Event) bool {
	data := ev.Event.Data
	if len(data) < cartridgeMagicOffset+len(cartridgeMagic)+1 {
		return false
	}
	window := data[cartridgeMagicOffset : cartridgeMagicOffset+len(cartridgeMagic)]
	for i, want := range cartridgeMagic {
		if window[i] != want {
			return false
		}
	}
	return true
}

func (ControllerProcessor) TaskIdentifier(ev Event) TaskID {
	deployedAddress := ev.Event.Data[0]
	return HashTaskID(deployedAddress.Bytes())
}

func (ControllerProcessor) TaskDependencies(ev Event) []TaskID { return nil }

func (ControllerProcessor) Process(pc Context, ev Event) error {
	deployedAddress := ev.Event.Data[0]
	username, err := felt.ShortString(ev.Event.Data[len(ev.Event.Data)-1])
	if err != nil {
		username = ""
	}
	return pc.Executor.Send(store.Message{
		Kind: store.MsgOther,
		Other: &store.Other{
			SQL: "INSERT INTO controllers (username, address, deployed_at) VALUES (?, ?, ?) ON CONFLICT(address) DO NOTHING",
			Args: []store.Binding{
				store.StringBinding(username),
				store.FeltBinding(deployedAddress),
				store.IntBinding(time.Unix(int64(ev.BlockTimestamp), 0).UTC().Unix()),
			},
		},
	})
}
