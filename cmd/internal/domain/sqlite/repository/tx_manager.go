package repository

import (
	"swapcal/cmd/internal/domain"

	"gorm.io/gorm"
)

// DefaultTxManager runs multi-record operations inside one database
// transaction. The swap engine uses it for the resolve path, where the
// ledger transition and both slot writes must commit or fail together.
type DefaultTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *DefaultTxManager {
	return &DefaultTxManager{db: db}
}

func (m *DefaultTxManager) Do(fn func(slots domain.SlotStore, swaps domain.SwapLedger) error) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewSlotRepository(tx), NewSwapRepository(tx))
	})
}
