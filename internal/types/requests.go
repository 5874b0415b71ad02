package types

// NewEntryRequest is the body for creating (or upserting by date) an entry.
type NewEntryRequest struct {
	Date   string  `json:"date" binding:"required"`
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes"`
}

// UpdateEntryRequest is the body for updating an existing entry.
// Date and ID are immutable once created; an empty Notes keeps the
// previous annotation.
type UpdateEntryRequest struct {
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes"`
}

// EntriesResponse is the initial-load payload: the full entry log in store
// order plus the current running balance.
type EntriesResponse struct {
	Entries      []TradeEntry `json:"entries"`
	TotalBalance float64      `json:"total_balance"`
	Loading      bool         `json:"loading"`
}

// BalanceResponse carries the single running-balance scalar.
type BalanceResponse struct {
	TotalBalance float64 `json:"total_balance"`
}
