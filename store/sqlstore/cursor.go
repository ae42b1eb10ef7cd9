package sqlstore

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/dojoengine/torii-go/cursor"
	"github.com/dojoengine/torii-go/felt"
)

// CursorReader implements cursor.Store by reading the rows this package's
// Sink maintains. It is intentionally separate from Sink: the engine reads
// cursors outside of any open write transaction, at the top of every tick.
type CursorReader struct {
	db *gorm.DB
}

// NewCursorReader wraps a *gorm.DB connection pool, normally the one the
// Sink writes through (Sink.Conn), so reads observe whatever the last
// committed tick flushed.
func NewCursorReader(db *gorm.DB) *CursorReader {
	return &CursorReader{db: db}
}

func (r *CursorReader) Cursors() (cursor.Cursors, error) {
	var head headCursorRow
	err := r.db.First(&head, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cursor.Cursors{PerContract: make(map[felt.Felt]cursor.ContractCursor)}, nil
	}
	if err != nil {
		return cursor.Cursors{}, errors.Wrap(err, "sqlstore: reading head cursor")
	}

	out := cursor.Cursors{
		Head:          head.Block,
		HasHead:       true,
		LastTimestamp: head.Timestamp,
		PerContract:   make(map[felt.Felt]cursor.ContractCursor),
	}
	if head.LastPendingTx != nil {
		f, err := felt.FromHex(*head.LastPendingTx)
		if err != nil {
			return cursor.Cursors{}, errors.Wrap(err, "sqlstore: parsing last_pending_tx")
		}
		out.LastPendingTx = &f
	}

	var rows []contractCursorRow
	if err := r.db.Find(&rows).Error; err != nil {
		return cursor.Cursors{}, errors.Wrap(err, "sqlstore: reading per-contract cursors")
	}
	for _, row := range rows {
		addr, err := felt.FromHex(row.Address)
		if err != nil {
			return cursor.Cursors{}, errors.Wrapf(err, "sqlstore: parsing contract address %q", row.Address)
		}
		lastTx, err := felt.FromHex(row.LastTxHash)
		if err != nil {
			return cursor.Cursors{}, errors.Wrapf(err, "sqlstore: parsing last_tx_hash for %q", row.Address)
		}
		out.PerContract[addr] = cursor.ContractCursor{LastTxHash: lastTx, TxCount: row.TxCount}
	}
	return out, nil
}
