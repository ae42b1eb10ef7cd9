// Package store implements the write executor (C3): a serialized queue of
// typed write messages applied to the persistence store inside one ongoing
// transaction per tick, per spec.md §4.3. The persistence store itself is
// an external collaborator (spec.md §1) — this package specifies the
// message API and the in-process executor that serializes and flushes it;
// package store/sqlstore provides one concrete consumer.
package store

import (
	"time"

	"github.com/dojoengine/torii-go/felt"
)

// BindingKind discriminates the dynamic SQL argument types spec.md §6 calls
// out for the Other(sql, bindings) escape hatch.
type BindingKind uint8

const (
	BindString BindingKind = iota
	BindFieldElement
	BindInt
	BindBool
	BindBytes
)

// Binding is one dynamically-typed SQL argument.
type Binding struct {
	Kind  BindingKind
	Str   string
	Felt  felt.Felt
	Int   int64
	Bool  bool
	Bytes []byte
}

func StringBinding(s string) Binding       { return Binding{Kind: BindString, Str: s} }
func FeltBinding(f felt.Felt) Binding       { return Binding{Kind: BindFieldElement, Felt: f} }
func IntBinding(i int64) Binding            { return Binding{Kind: BindInt, Int: i} }
func BoolBinding(b bool) Binding            { return Binding{Kind: BindBool, Bool: b} }
func BytesBinding(b []byte) Binding         { return Binding{Kind: BindBytes, Bytes: b} }

// MessageKind discriminates the QueryMessage variants of spec.md §4.3.
type MessageKind uint8

const (
	MsgSetEntity MessageKind = iota
	MsgDeleteEntity
	MsgRegisterModel
	MsgRegisterErc20Token
	MsgRegisterNftToken
	MsgUpdateNftMetadata
	MsgApplyBalanceDiff
	MsgStoreEvent
	MsgUpdateCursors
	MsgOther
)

// SetEntity upserts an entity's model data.
type SetEntity struct {
	EntityID      felt.Felt
	ModelSelector felt.Felt
	Keys          []felt.Felt
	Data          map[string]interface{}
	EventID       string
	ExecutedAt    time.Time
}

// DeleteEntity removes a model's slice of an entity (StoreDelRecord).
type DeleteEntity struct {
	EntityID      felt.Felt
	ModelSelector felt.Felt
	EventID       string
	ExecutedAt    time.Time
}

// RegisterModel upserts a model schema row.
type RegisterModel struct {
	Selector  felt.Felt
	Namespace string
	Name      string
	Schema    []byte
}

// RegisterErc20Token records a newly-seen ERC-20 contract's metadata.
type RegisterErc20Token struct {
	TokenID  string // hex of contract address, per spec.md §6
	Contract felt.Felt
	Name     string
	Symbol   string
	Decimals uint8
}

// RegisterNftToken records a newly-seen NFT (ERC-721/1155) token id.
type RegisterNftToken struct {
	TokenID  string // "{contract_hex}:{u256_id_decimal}", per spec.md §6
	Contract felt.Felt
	NftID    string // decimal u256 id
}

// UpdateNftMetadata attaches fetched off-chain metadata to a registered NFT.
type UpdateNftMetadata struct {
	TokenID  string
	Contract felt.Felt
	NftID    string
	Metadata []byte // empty on fetch failure, per spec.md §7
}

// ApplyBalanceDiff flushes one token_id's accumulated signed balance delta.
// The engine guarantees every Register*Token for a token_id precedes the
// ApplyBalanceDiff referencing it in executor submission order (spec.md
// §4.3, §8 property 5).
type ApplyBalanceDiff struct {
	BalanceID string // "{address}:{token_id}"
	Delta     string // signed decimal
}

// StoreEvent persists a raw event row (RAW_EVENTS flag).
type StoreEvent struct {
	EventID         string
	Keys            []felt.Felt
	Data            []felt.Felt
	TransactionHash felt.Felt
	ExecutedAt      time.Time
}

// UpdateCursors is the buffered cursor write described in spec.md §4.2.
type UpdateCursors struct {
	Head          uint64
	Timestamp     uint64
	LastPendingTx *felt.Felt
	PerContract   map[felt.Felt]struct {
		LastTxHash felt.Felt
		TxCount    uint64
	}
}

// Other is the fallback escape hatch for ad-hoc SQL.
type Other struct {
	SQL  string
	Args []Binding
}

// Message is one typed write, tagged by Kind; exactly one payload field is
// populated. Messages are applied by the executor in submission order,
// which spec.md §4.3 calls "the only write ordering guarantee the rest of
// the system may rely on."
type Message struct {
	Kind MessageKind

	SetEntity          *SetEntity
	DeleteEntity       *DeleteEntity
	RegisterModel      *RegisterModel
	RegisterErc20Token *RegisterErc20Token
	RegisterNftToken   *RegisterNftToken
	UpdateNftMetadata  *UpdateNftMetadata
	ApplyBalanceDiff   *ApplyBalanceDiff
	StoreEvent         *StoreEvent
	UpdateCursors      *UpdateCursors
	Other              *Other
}
