package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestCoinGeckoFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"ethereum": {"usd": 3000.12, "usd_24h_change": -1.234567},
			"tether": {"usd": 1.0001},
			"solana": {"usd": 6.9e-05, "usd_24h_change": null}
		}`))
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL+"/api/v3/", WithTimeout(time.Second))
	quotes, err := client.Fetch(context.Background(), []string{"ethereum", "tether", "solana"})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "ids=ethereum%2Ctether%2Csolana")
	assert.Contains(t, gotQuery, "vs_currencies=usd")
	assert.Contains(t, gotQuery, "include_24hr_change=true")

	require.Len(t, quotes, 3)
	assert.Equal(t, "3000.12", quotes["ethereum"].USD.String())
	assert.Equal(t, "-1.234567", quotes["ethereum"].Change24h.String())
	assert.True(t, quotes["tether"].Change24h.IsZero(), "absent change defaults to zero")
	assert.Equal(t, "0.000069", quotes["solana"].USD.String())
	assert.True(t, quotes["solana"].Change24h.IsZero())
}

func TestCoinGeckoFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantErr: "HTTP 429"},
		{name: "server error", status: http.StatusInternalServerError, body: ``, wantErr: "HTTP 500"},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: "malformed"},
		{name: "array body", status: http.StatusOK, body: `[1,2]`, wantErr: "malformed"},
		{name: "null body", status: http.StatusOK, body: `null`, wantErr: "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewCoinGeckoClient(srv.URL).Fetch(context.Background(), []string{"ethereum"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeSimplePriceBadEntry(t *testing.T) {
	quotes, err := decodeSimplePrice(strings.NewReader(`{"ethereum": "oops", "tether": {"usd": "1"}}`))
	require.NoError(t, err)
	assert.True(t, quotes["ethereum"].USD.IsZero())
	assert.True(t, quotes["tether"].USD.IsZero(), "string prices are not numbers")
}

func TestCacheWithCoinGecko(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ethereum": {"usd": 3000, "usd_24h_change": 1.5}}`))
	}))
	defer srv.Close()

	c := NewCache(NewCoinGeckoClient(srv.URL), testAssets(), nil)
	c.now = func() time.Time { return testTime }
	c.Refresh(context.Background())

	assert.Equal(t, testTime, c.Snapshot().FetchedAt())
	p, ok := c.Snapshot().Price("ETH")
	require.True(t, ok)
	assert.Equal(t, "3000", p.String())

	srv.Close()
	c.Refresh(context.Background())
	assert.Error(t, c.LastError())
	p, ok = c.Snapshot().Price("ETH")
	require.True(t, ok)
	assert.Equal(t, "3000", p.String())
}
