package sqlstore

import "time"

// Row types mirror the persisted-state layout spec.md §6 describes. Primary
// key columns are named explicitly via gorm tags; the other columns take
// gorm's default snake_case names, which the ON CONFLICT clauses in
// sqlstore.go refer to.

type headCursorRow struct {
	ID            uint8 `gorm:"primaryKey"`
	Block         uint64
	Timestamp     uint64
	LastPendingTx *string
}

func (headCursorRow) TableName() string { return "cursor_head" }

type contractCursorRow struct {
	Address    string `gorm:"primaryKey;column:address"`
	LastTxHash string
	TxCount    uint64
}

func (contractCursorRow) TableName() string { return "cursors" }

type modelRow struct {
	Selector  string `gorm:"primaryKey;column:selector"`
	Namespace string
	Name      string
	Schema    []byte
}

func (modelRow) TableName() string { return "models" }

type entityRow struct {
	ID            string `gorm:"primaryKey;column:id"`
	ModelSelector string `gorm:"primaryKey;column:model_selector"`
	EventID       string
	ExecutedAt    time.Time
}

func (entityRow) TableName() string { return "entities" }

type erc20TokenRow struct {
	TokenID         string `gorm:"primaryKey;column:token_id"`
	ContractAddress string
	Name            string
	Symbol          string
	Decimals        uint8
}

func (erc20TokenRow) TableName() string { return "erc20_tokens" }

type nftTokenRow struct {
	TokenID         string `gorm:"primaryKey;column:token_id"`
	ContractAddress string
	NftID           string
	Metadata        []byte
}

func (nftTokenRow) TableName() string { return "nft_tokens" }

// tokenTransferRow is the "token transfer rows" table of spec.md §6,
// inserted with ON CONFLICT DO NOTHING. Each row holds one flushed balance
// delta, primary-keyed `id = "{balance_id}:{flush time}"`; it carries no
// event_id, from, to or contract columns.
type tokenTransferRow struct {
	ID         string `gorm:"primaryKey;column:id"`
	BalanceID  string
	Delta      string
	ExecutedAt time.Time
}

func (tokenTransferRow) TableName() string { return "token_transfers" }

type eventRow struct {
	EventID         string `gorm:"primaryKey;column:event_id"`
	Keys            string
	Data            string
	TransactionHash string
	ExecutedAt      time.Time
}

func (eventRow) TableName() string { return "raw_events" }

type controllerRow struct {
	Address    string `gorm:"primaryKey;column:address"`
	Username   string
	DeployedAt int64
}

func (controllerRow) TableName() string { return "controllers" }
