package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dmartell/tradejournal/internal/types"
)

// Supabase talks to the hosted backend through its PostgREST interface.
// Two tables are used: trades (id, date, amount, notes) and balance
// (single row, id 1).
type Supabase struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

func NewSupabase(baseURL, apiKey string) *Supabase {
	return &Supabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.With().Str("store", "supabase").Logger(),
	}
}

type balanceRow struct {
	ID     int     `json:"id"`
	Amount float64 `json:"amount"`
}

func (s *Supabase) ListEntries(ctx context.Context) ([]types.TradeEntry, error) {
	body, err := s.do(ctx, http.MethodGet, "/rest/v1/trades", url.Values{
		"select": {"*"},
		"order":  {"date.desc"},
	}, nil, "")
	if err != nil {
		return nil, &StoreError{Op: "list entries", Err: err}
	}

	var entries []types.TradeEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &StoreError{Op: "list entries", Err: err}
	}
	return entries, nil
}

func (s *Supabase) FetchBalance(ctx context.Context) (float64, error) {
	body, err := s.do(ctx, http.MethodGet, "/rest/v1/balance", url.Values{
		"select": {"amount"},
		"id":     {"eq.1"},
	}, nil, "")
	if err != nil {
		return 0, &StoreError{Op: "fetch balance", Err: err}
	}

	var rows []balanceRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, &StoreError{Op: "fetch balance", Err: err}
	}
	if len(rows) == 0 {
		return SeedBalance, nil
	}
	return rows[0].Amount, nil
}

func (s *Supabase) InsertEntry(ctx context.Context, entry types.TradeEntry) error {
	if _, err := s.do(ctx, http.MethodPost, "/rest/v1/trades", nil, entry, ""); err != nil {
		return &StoreError{Op: "insert entry", Err: err}
	}
	return nil
}

func (s *Supabase) UpdateEntry(ctx context.Context, id string, amount float64, notes string) error {
	payload := map[string]interface{}{
		"amount": amount,
		"notes":  notes,
	}
	_, err := s.do(ctx, http.MethodPatch, "/rest/v1/trades", url.Values{
		"id": {"eq." + id},
	}, payload, "")
	if err != nil {
		return &StoreError{Op: "update entry", Err: err}
	}
	return nil
}

func (s *Supabase) DeleteEntry(ctx context.Context, id string) error {
	_, err := s.do(ctx, http.MethodDelete, "/rest/v1/trades", url.Values{
		"id": {"eq." + id},
	}, nil, "")
	if err != nil {
		return &StoreError{Op: "delete entry", Err: err}
	}
	return nil
}

func (s *Supabase) UpsertBalance(ctx context.Context, amount float64) error {
	row := balanceRow{ID: 1, Amount: amount}
	_, err := s.do(ctx, http.MethodPost, "/rest/v1/balance", nil, row, "resolution=merge-duplicates")
	if err != nil {
		return &StoreError{Op: "upsert balance", Err: err}
	}
	return nil
}

// do performs one PostgREST request and returns the response body.
// A non-2xx status is an error; the body is included for diagnostics.
func (s *Supabase) do(ctx context.Context, method, path string, query url.Values, payload interface{}, prefer string) ([]byte, error) {
	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("request rejected by backend")
		return nil, fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
