package types

// TradeEntry is one recorded trade result for a calendar day.
// The ID is generated client-side and never changes; Date carries no time
// component and is treated as soft-unique per day by the journal layer.
type TradeEntry struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"` // YYYY-MM-DD
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes,omitempty"`
}

// DayWithTrade is the derived per-day aggregate used by the calendar view.
type DayWithTrade struct {
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	HasEntry bool    `json:"has_entry"`
}
