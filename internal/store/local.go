package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmartell/tradejournal/internal/types"
)

// TradeRecord is the local table backing the entry log.
type TradeRecord struct {
	gorm.Model `json:"-"`
	EntryID    string  `gorm:"uniqueIndex" json:"id"`
	Date       string  `gorm:"index" json:"date"`
	Amount     float64 `json:"amount"`
	Notes      string  `json:"notes"`
}

// BalanceRecord is the single-row table holding the running balance.
type BalanceRecord struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	Amount float64 `json:"amount"`
}

const balanceRecordID = 1

// Local is the SQLite-backed store used when no Supabase credentials are
// configured. It also serves as the write-through mirror for the remote
// mode via SaveSnapshot.
type Local struct {
	db *gorm.DB
}

func NewLocal(db *gorm.DB) *Local {
	return &Local{db: db}
}

func (l *Local) ListEntries(ctx context.Context) ([]types.TradeEntry, error) {
	var records []TradeRecord
	if err := l.db.WithContext(ctx).Order("date desc").Find(&records).Error; err != nil {
		return nil, &StoreError{Op: "list entries", Err: err}
	}

	entries := make([]types.TradeEntry, len(records))
	for i, r := range records {
		entries[i] = r.toEntry()
	}
	return entries, nil
}

func (l *Local) FetchBalance(ctx context.Context) (float64, error) {
	var record BalanceRecord
	err := l.db.WithContext(ctx).First(&record, balanceRecordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SeedBalance, nil
	}
	if err != nil {
		return 0, &StoreError{Op: "fetch balance", Err: err}
	}
	return record.Amount, nil
}

func (l *Local) InsertEntry(ctx context.Context, entry types.TradeEntry) error {
	record := recordFromEntry(entry)
	if err := l.db.WithContext(ctx).Create(&record).Error; err != nil {
		return &StoreError{Op: "insert entry", Err: err}
	}
	return nil
}

func (l *Local) UpdateEntry(ctx context.Context, id string, amount float64, notes string) error {
	err := l.db.WithContext(ctx).
		Model(&TradeRecord{}).
		Where("entry_id = ?", id).
		Updates(map[string]interface{}{"amount": amount, "notes": notes}).Error
	if err != nil {
		return &StoreError{Op: "update entry", Err: err}
	}
	return nil
}

func (l *Local) DeleteEntry(ctx context.Context, id string) error {
	err := l.db.WithContext(ctx).Where("entry_id = ?", id).Delete(&TradeRecord{}).Error
	if err != nil {
		return &StoreError{Op: "delete entry", Err: err}
	}
	return nil
}

func (l *Local) UpsertBalance(ctx context.Context, amount float64) error {
	record := BalanceRecord{ID: balanceRecordID, Amount: amount}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount"}),
		}).
		Create(&record).Error
	if err != nil {
		return &StoreError{Op: "upsert balance", Err: err}
	}
	return nil
}

// SaveSnapshot replaces the whole local entry log and the balance record in
// one transaction. The journal calls it after every state change when the
// remote store is active, so a later startup can fall back to local data.
func (l *Local) SaveSnapshot(ctx context.Context, entries []types.TradeEntry, balance float64) error {
	tx := l.db.WithContext(ctx).Begin()
	if err := tx.Error; err != nil {
		return &StoreError{Op: "snapshot", Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&TradeRecord{}).Error; err != nil {
		tx.Rollback()
		return &StoreError{Op: "snapshot", Err: err}
	}

	for _, entry := range entries {
		record := recordFromEntry(entry)
		if err := tx.Create(&record).Error; err != nil {
			tx.Rollback()
			return &StoreError{Op: "snapshot", Err: err}
		}
	}

	record := BalanceRecord{ID: balanceRecordID, Amount: balance}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&record).Error
	if err != nil {
		tx.Rollback()
		return &StoreError{Op: "snapshot", Err: err}
	}

	if err := tx.Commit().Error; err != nil {
		return &StoreError{Op: "snapshot", Err: err}
	}
	return nil
}

func (r TradeRecord) toEntry() types.TradeEntry {
	return types.TradeEntry{
		ID:     r.EntryID,
		Date:   r.Date,
		Amount: r.Amount,
		Notes:  r.Notes,
	}
}

func recordFromEntry(entry types.TradeEntry) TradeRecord {
	return TradeRecord{
		EntryID: entry.ID,
		Date:    entry.Date,
		Amount:  entry.Amount,
		Notes:   entry.Notes,
	}
}
