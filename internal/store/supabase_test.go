package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmartell/tradejournal/internal/types"
)

func TestSupabaseListEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/trades", r.URL.Path)
		assert.Equal(t, "date.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode([]types.TradeEntry{
			{ID: "a", Date: "2024-01-10", Amount: 100, Notes: "long"},
			{ID: "b", Date: "2024-01-05", Amount: -20},
		})
	}))
	defer srv.Close()

	s := NewSupabase(srv.URL, "anon-key")
	entries, err := s.ListEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.InDelta(t, -20.0, entries[1].Amount, 1e-9)
}

func TestSupabaseFetchBalanceSeedsWhenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/balance", r.URL.Path)
		assert.Equal(t, "eq.1", r.URL.Query().Get("id"))
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	s := NewSupabase(srv.URL, "anon-key")
	balance, err := s.FetchBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SeedBalance, balance)
}

func TestSupabaseFetchBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"amount":512.75}]`))
	}))
	defer srv.Close()

	s := NewSupabase(srv.URL, "anon-key")
	balance, err := s.FetchBalance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 512.75, balance, 1e-9)
}

func TestSupabaseInsertEntry(t *testing.T) {
	var received types.TradeEntry
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/trades", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewSupabase(srv.URL, "anon-key")
	entry := types.TradeEntry{ID: "a", Date: "2024-01-10", Amount: 100, Notes: "long"}
	require.NoError(t, s.InsertEntry(context.Background(), entry))
	assert.Equal(t, entry, received)
}

func TestSupabaseUpdateEntryTargetsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.abc", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewSupabase(srv.URL, "anon-key")
	assert.NoError(t, s.UpdateEntry(context.Background(), "abc", 50, "notes"))
}

func TestSupabaseUpsertBalanceMergesDuplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/balance", r.URL.Path)
		assert.Equal(t, "resolution=merge-duplicates", r.Header.Get("Prefer"))

		var row struct {
			ID     int     `json:"id"`
			Amount float64 `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.Equal(t, 1, row.ID)
		assert.InDelta(t, 473.94, row.Amount, 1e-9)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewSupabase(srv.URL, "anon-key")
	assert.NoError(t, s.UpsertBalance(context.Background(), 473.94))
}

func TestSupabaseErrorsCarryOperation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewSupabase(srv.URL, "bad-key")
	_, err := s.ListEntries(context.Background())
	require.Error(t, err)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "list entries", storeErr.Op)
	assert.Contains(t, err.Error(), "401")
}
