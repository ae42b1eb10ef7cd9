// Package sqlstore is a reference store.Sink backed by MySQL via gorm, the
// same gorm.io/gorm "one *gorm.DB transaction per unit of work" shape the
// example corpus's public-transaction-manager store uses: Begin a session,
// run operations against the returned *gorm.DB, then Commit or Rollback.
package sqlstore

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dojoengine/torii-go/cache"
	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/store"
)

// Sink is a store.Sink over a gorm *gorm.DB connection pool. One Sink is
// shared by the engine across ticks; each tick's Begin/Commit/Rollback
// cycle operates on its own *gorm.DB session held in tx.
type Sink struct {
	db *gorm.DB
	tx *gorm.DB
}

// New wraps an already-opened gorm connection (see Open for the mysql
// driver convenience constructor).
func New(db *gorm.DB) *Sink {
	return &Sink{db: db}
}

// Open opens a MySQL connection via gorm.io/driver/mysql and auto-migrates
// the reference schema.
func Open(dsn string) (*Sink, error) {
	db, err := gorm.Open(mysqlOpen(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "sqlstore: opening mysql connection")
	}
	if err := db.AutoMigrate(
		&contractCursorRow{}, &headCursorRow{}, &modelRow{}, &entityRow{},
		&erc20TokenRow{}, &nftTokenRow{}, &tokenTransferRow{}, &eventRow{}, &controllerRow{},
	); err != nil {
		return nil, errors.Wrap(err, "sqlstore: auto-migrating schema")
	}
	return New(db), nil
}

// Conn returns the underlying connection pool, for constructing a
// CursorReader that reads committed state outside of any open tick
// transaction.
func (s *Sink) Conn() *gorm.DB { return s.db }

// LoadModel satisfies cache.ModelLoader: it reads a model's registered
// schema back out of the same table registerModel writes, for the cache's
// read-through miss path.
func (s *Sink) LoadModel(selector felt.Felt) (cache.ModelSchema, error) {
	var row modelRow
	if err := s.db.First(&row, "selector = ?", selector.Hex()).Error; err != nil {
		return cache.ModelSchema{}, errors.Wrapf(err, "sqlstore: loading model %s", selector.Hex())
	}
	return cache.ModelSchema{Selector: selector, Namespace: row.Namespace, Name: row.Name, Schema: row.Schema}, nil
}

func (s *Sink) Begin() error {
	s.tx = s.db.Begin()
	return s.tx.Error
}

func (s *Sink) Commit() error {
	return s.tx.Commit().Error
}

func (s *Sink) Rollback() error {
	return s.tx.Rollback().Error
}

// Apply dispatches msg to the row-level handler for its kind, matching the
// write-message variants of spec.md §4.3.
func (s *Sink) Apply(msg store.Message) error {
	switch msg.Kind {
	case store.MsgSetEntity:
		return s.setEntity(msg.SetEntity)
	case store.MsgDeleteEntity:
		return s.deleteEntity(msg.DeleteEntity)
	case store.MsgRegisterModel:
		return s.registerModel(msg.RegisterModel)
	case store.MsgRegisterErc20Token:
		return s.registerErc20Token(msg.RegisterErc20Token)
	case store.MsgRegisterNftToken:
		return s.registerNftToken(msg.RegisterNftToken)
	case store.MsgUpdateNftMetadata:
		return s.updateNftMetadata(msg.UpdateNftMetadata)
	case store.MsgApplyBalanceDiff:
		return s.applyBalanceDiff(msg.ApplyBalanceDiff)
	case store.MsgStoreEvent:
		return s.storeEvent(msg.StoreEvent)
	case store.MsgUpdateCursors:
		return s.updateCursors(msg.UpdateCursors)
	case store.MsgOther:
		return s.other(msg.Other)
	default:
		return errors.Errorf("sqlstore: unknown message kind %d", msg.Kind)
	}
}

func (s *Sink) setEntity(m *store.SetEntity) error {
	row := entityRow{
		ID:            m.EntityID.Hex(),
		ModelSelector: m.ModelSelector.Hex(),
		EventID:       m.EventID,
		ExecutedAt:    m.ExecutedAt,
	}
	return s.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}, {Name: "model_selector"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_id", "executed_at"}),
	}).Create(&row).Error
}

func (s *Sink) deleteEntity(m *store.DeleteEntity) error {
	return s.tx.Where("id = ? AND model_selector = ?", m.EntityID.Hex(), m.ModelSelector.Hex()).Delete(&entityRow{}).Error
}

func (s *Sink) registerModel(m *store.RegisterModel) error {
	row := modelRow{Selector: m.Selector.Hex(), Namespace: m.Namespace, Name: m.Name, Schema: m.Schema}
	return s.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "selector"}},
		DoUpdates: clause.AssignmentColumns([]string{"namespace", "name", "schema"}),
	}).Create(&row).Error
}

func (s *Sink) registerErc20Token(m *store.RegisterErc20Token) error {
	row := erc20TokenRow{TokenID: m.TokenID, ContractAddress: m.Contract.Hex(), Name: m.Name, Symbol: m.Symbol, Decimals: m.Decimals}
	return s.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Sink) registerNftToken(m *store.RegisterNftToken) error {
	row := nftTokenRow{TokenID: m.TokenID, ContractAddress: m.Contract.Hex(), NftID: m.NftID}
	return s.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Sink) updateNftMetadata(m *store.UpdateNftMetadata) error {
	return s.tx.Model(&nftTokenRow{}).Where("token_id = ?", m.TokenID).Update("metadata", m.Metadata).Error
}

// applyBalanceDiff persists one flushed balance delta as a token-transfer
// row with ON CONFLICT DO NOTHING. Since a balance diff is accumulated (not
// one transfer event), the row records the net delta keyed
// "{balance_id}:{flush time}" rather than by a single originating event's
// id; one row per transfer event is not written (see DESIGN.md, C3).
func (s *Sink) applyBalanceDiff(m *store.ApplyBalanceDiff) error {
	row := tokenTransferRow{
		ID:         m.BalanceID + ":" + time.Now().UTC().Format(time.RFC3339Nano),
		BalanceID:  m.BalanceID,
		Delta:      m.Delta,
		ExecutedAt: time.Now().UTC(),
	}
	return s.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Sink) storeEvent(m *store.StoreEvent) error {
	row := eventRow{
		EventID:         m.EventID,
		Keys:            felt.JoinList(m.Keys),
		Data:            felt.JoinList(m.Data),
		TransactionHash: m.TransactionHash.Hex(),
		ExecutedAt:      m.ExecutedAt,
	}
	return s.tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Sink) updateCursors(m *store.UpdateCursors) error {
	head := headCursorRow{ID: 1, Block: m.Head, Timestamp: m.Timestamp}
	if m.LastPendingTx != nil {
		h := m.LastPendingTx.Hex()
		head.LastPendingTx = &h
	}
	if err := s.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"block", "timestamp", "last_pending_tx"}),
	}).Create(&head).Error; err != nil {
		return err
	}
	for addr, cc := range m.PerContract {
		row := contractCursorRow{Address: addr.Hex(), LastTxHash: cc.LastTxHash.Hex(), TxCount: cc.TxCount}
		if err := s.tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_tx_hash", "tx_count"}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) other(m *store.Other) error {
	args := make([]interface{}, len(m.Args))
	for i, b := range m.Args {
		args[i] = bindingValue(b)
	}
	return s.tx.Exec(m.SQL, args...).Error
}

func bindingValue(b store.Binding) interface{} {
	switch b.Kind {
	case store.BindString:
		return b.Str
	case store.BindFieldElement:
		return b.Felt.Bytes()
	case store.BindInt:
		return b.Int
	case store.BindBool:
		return b.Bool
	case store.BindBytes:
		return b.Bytes
	default:
		return nil
	}
}
