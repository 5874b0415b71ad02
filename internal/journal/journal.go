package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dmartell/tradejournal/internal/store"
	"github.com/dmartell/tradejournal/internal/types"
)

// Snapshotter is the write-through mirror behind the journal. It holds the
// last known good copy of the full state for startup fallback.
// *store.Local satisfies it.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, entries []types.TradeEntry, balance float64) error
	ListEntries(ctx context.Context) ([]types.TradeEntry, error)
	FetchBalance(ctx context.Context) (float64, error)
}

// Service is the session-wide holder of the entry log and running balance.
// It owns the in-memory state exclusively: handlers and derived views read
// through its methods and never mutate state directly.
//
// The mutex guards the in-memory state only. Persistence calls for two
// concurrent mutations are not serialized against each other, and the
// entry write and balance write of a single mutation are two independent
// store calls with no transaction across them.
type Service struct {
	store  store.Store
	mirror Snapshotter
	log    zerolog.Logger

	mu           sync.Mutex
	entries      []types.TradeEntry
	totalBalance float64
	loading      bool
}

// NewService creates the journal service. The mirror receives a full
// snapshot of entries and balance after every state change; in local mode
// it wraps the same database as the store.
func NewService(st store.Store, mirror Snapshotter) *Service {
	return &Service{
		store:  st,
		mirror: mirror,
		log:    log.With().Str("component", "journal").Logger(),
	}
}

// Load populates the in-memory state from the store. A store failure is
// non-fatal: the service degrades to whatever the local snapshot holds and
// keeps serving. Runs once at startup.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	entries, err := s.store.ListEntries(ctx)
	var balance float64
	if err == nil {
		balance, err = s.store.FetchBalance(ctx)
	}

	if err != nil {
		s.log.Warn().Err(err).Msg("could not load journal, falling back to local snapshot")
		entries, balance = s.restoreSnapshot(ctx)
	}

	s.mu.Lock()
	s.entries = entries
	s.totalBalance = balance
	s.loading = false
	s.mu.Unlock()

	s.persistSnapshot(ctx)

	s.log.Info().
		Int("entries", len(entries)).
		Float64("total_balance", balance).
		Msg("journal loaded")
}

// AddEntry records a trade result for a date. When an entry for that date
// already exists the call is dispatched to UpdateEntry for that entry's id,
// so at most one entry per day is visible through the API. Any persistence
// failure leaves the in-memory state untouched.
func (s *Service) AddEntry(ctx context.Context, date string, amount float64, notes string) (*types.TradeEntry, error) {
	s.mu.Lock()
	var existing *types.TradeEntry
	for i := range s.entries {
		if s.entries[i].Date == date {
			existing = &s.entries[i]
			break
		}
	}
	var existingID string
	if existing != nil {
		existingID = existing.ID
	}
	total := s.totalBalance
	s.mu.Unlock()

	if existingID != "" {
		return s.UpdateEntry(ctx, existingID, amount, notes)
	}

	entry := types.TradeEntry{
		ID:     uuid.New().String(),
		Date:   date,
		Amount: amount,
		Notes:  notes,
	}

	if err := s.store.InsertEntry(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("failed to add trade")
		return nil, fmt.Errorf("add entry: %w", err)
	}

	newBalance := total + amount
	if err := s.store.UpsertBalance(ctx, newBalance); err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("failed to update balance for new trade")
		return nil, fmt.Errorf("add entry: %w", err)
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.totalBalance = newBalance
	s.mu.Unlock()
	s.persistSnapshot(ctx)

	s.log.Info().
		Str("entry_id", entry.ID).
		Str("date", date).
		Float64("amount", amount).
		Float64("total_balance", newBalance).
		Msg("trade added")

	return &entry, nil
}

// UpdateEntry rewrites amount and notes for an existing entry, keeping id
// and date. The balance moves by the amount delta. An unknown id is a
// silent no-op returning (nil, nil). Empty notes keep the previous value.
func (s *Service) UpdateEntry(ctx context.Context, id string, amount float64, notes string) (*types.TradeEntry, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, nil
	}
	old := s.entries[idx]
	total := s.totalBalance
	s.mu.Unlock()

	if notes == "" {
		notes = old.Notes
	}

	if err := s.store.UpdateEntry(ctx, id, amount, notes); err != nil {
		s.log.Error().Err(err).Str("entry_id", id).Msg("failed to update trade")
		return nil, fmt.Errorf("update entry: %w", err)
	}

	newBalance := total - old.Amount + amount
	if err := s.store.UpsertBalance(ctx, newBalance); err != nil {
		s.log.Error().Err(err).Str("entry_id", id).Msg("failed to update balance for trade")
		return nil, fmt.Errorf("update entry: %w", err)
	}

	updated := types.TradeEntry{
		ID:     old.ID,
		Date:   old.Date,
		Amount: amount,
		Notes:  notes,
	}

	s.mu.Lock()
	if idx = s.indexOf(id); idx >= 0 {
		s.entries[idx] = updated
	}
	s.totalBalance = newBalance
	s.mu.Unlock()
	s.persistSnapshot(ctx)

	s.log.Info().
		Str("entry_id", id).
		Float64("amount", amount).
		Float64("total_balance", newBalance).
		Msg("trade updated")

	return &updated, nil
}

// DeleteEntry removes an entry and subtracts its amount from the balance.
// An unknown id is a silent no-op returning (nil, nil).
func (s *Service) DeleteEntry(ctx context.Context, id string) (*types.TradeEntry, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, nil
	}
	entry := s.entries[idx]
	total := s.totalBalance
	s.mu.Unlock()

	if err := s.store.DeleteEntry(ctx, id); err != nil {
		s.log.Error().Err(err).Str("entry_id", id).Msg("failed to delete trade")
		return nil, fmt.Errorf("delete entry: %w", err)
	}

	newBalance := total - entry.Amount
	if err := s.store.UpsertBalance(ctx, newBalance); err != nil {
		s.log.Error().Err(err).Str("entry_id", id).Msg("failed to update balance for deleted trade")
		return nil, fmt.Errorf("delete entry: %w", err)
	}

	s.mu.Lock()
	if idx = s.indexOf(id); idx >= 0 {
		s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	}
	s.totalBalance = newBalance
	s.mu.Unlock()
	s.persistSnapshot(ctx)

	s.log.Info().
		Str("entry_id", id).
		Float64("total_balance", newBalance).
		Msg("trade deleted")

	return &entry, nil
}

// Entries returns a copy of the entry log in store order.
func (s *Service) Entries() []types.TradeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]types.TradeEntry, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// TotalBalance returns the current running balance.
func (s *Service) TotalBalance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalBalance
}

// Loading reports whether the initial load is still in progress.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// EntriesForDate returns every entry whose date matches exactly.
func (s *Service) EntriesForDate(date string) []types.TradeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []types.TradeEntry
	for _, entry := range s.entries {
		if entry.Date == date {
			matches = append(matches, entry)
		}
	}
	return matches
}

// DaysWithTrades returns one element per calendar day of the given month
// (1-based), each with the summed amount of that day's entries. Pure
// function of the current state.
func (s *Service) DaysWithTrades(year, month int) []types.DayWithTrade {
	daysInMonth := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()

	days := make([]types.DayWithTrade, 0, daysInMonth)
	for day := 1; day <= daysInMonth; day++ {
		date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		dayEntries := s.EntriesForDate(date)

		var total float64
		for _, entry := range dayEntries {
			total += entry.Amount
		}

		days = append(days, types.DayWithTrade{
			Date:     date,
			Amount:   total,
			HasEntry: len(dayEntries) > 0,
		})
	}
	return days
}

// indexOf must be called with the mutex held.
func (s *Service) indexOf(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// persistSnapshot mirrors the full state into the local snapshot. Mirror
// failures are logged and swallowed: the snapshot is a best-effort fallback,
// not part of the operation contract.
func (s *Service) persistSnapshot(ctx context.Context) {
	s.mu.Lock()
	entries := make([]types.TradeEntry, len(s.entries))
	copy(entries, s.entries)
	balance := s.totalBalance
	s.mu.Unlock()

	if err := s.mirror.SaveSnapshot(ctx, entries, balance); err != nil {
		s.log.Warn().Err(err).Msg("failed to mirror journal snapshot")
	}
}

// restoreSnapshot reads previously mirrored local data. Errors degrade to
// an empty journal with the seed balance.
func (s *Service) restoreSnapshot(ctx context.Context) ([]types.TradeEntry, float64) {
	entries, err := s.mirror.ListEntries(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to restore entries from snapshot")
		entries = nil
	}
	balance, err := s.mirror.FetchBalance(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to restore balance from snapshot")
		balance = store.SeedBalance
	}
	return entries, balance
}
