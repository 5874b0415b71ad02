package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dmartell/tradejournal/internal/store"
)

// NewDatabase opens the local SQLite database and migrates the journal
// schema. The same database backs both the local operating mode and the
// write-through snapshot used in remote mode.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&store.TradeRecord{},
		&store.BalanceRecord{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
