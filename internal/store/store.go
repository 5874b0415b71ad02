package store

import (
	"context"
	"fmt"

	"github.com/dmartell/tradejournal/internal/types"
)

// SeedBalance is the starting balance used when no balance record exists yet.
const SeedBalance = 373.94

// Store is the persistence capability set for the journal. One of two
// implementations is selected at startup: Supabase when credentials are
// configured, the local SQLite store otherwise. Callers never branch on the
// concrete type after construction.
//
// Entry and balance writes are independent calls with no transaction across
// them; a partial failure can leave the stored balance inconsistent with the
// entry log until the next successful write.
type Store interface {
	// ListEntries returns all entries ordered by date descending.
	ListEntries(ctx context.Context) ([]types.TradeEntry, error)
	// FetchBalance returns the stored running balance, or SeedBalance when
	// no record exists yet.
	FetchBalance(ctx context.Context) (float64, error)
	InsertEntry(ctx context.Context, entry types.TradeEntry) error
	// UpdateEntry rewrites amount and notes for the entry with the given id.
	// Date and id are immutable once created.
	UpdateEntry(ctx context.Context, id string, amount float64, notes string) error
	DeleteEntry(ctx context.Context, id string) error
	// UpsertBalance writes the single balance record (id 1).
	UpsertBalance(ctx context.Context, amount float64) error
}

// StoreError wraps a failed store operation with the operation name.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
