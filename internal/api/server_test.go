package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/matrixise/nolimit-swap/internal/config"
	"github.com/matrixise/nolimit-swap/internal/health"
	"github.com/matrixise/nolimit-swap/internal/keywallet"
	"github.com/matrixise/nolimit-swap/internal/networks"
	"github.com/matrixise/nolimit-swap/internal/pricefeed"
	"github.com/matrixise/nolimit-swap/internal/session"
	"github.com/matrixise/nolimit-swap/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	devKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

type staticFetcher map[string]pricefeed.RawQuote

func (f staticFetcher) Fetch(context.Context, []string) (map[string]pricefeed.RawQuote, error) {
	return f, nil
}

type fakeHistory struct {
	rows []storage.PriceSnapshot
	err  error
}

func (f fakeHistory) History(_ context.Context, symbol string, limit int) ([]storage.PriceSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []storage.PriceSnapshot{}
	for _, r := range f.rows {
		if r.Symbol == symbol && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type testEnv struct {
	handler  http.Handler
	sessions *session.Manager
}

func newTestEnv(t *testing.T, withProviders bool, history HistoryReader) *testEnv {
	t.Helper()
	cfg := config.Default()
	require.NoError(t, cfg.Normalize())
	registry := networks.NewRegistry(cfg.Networks, cfg.DefaultNetwork)

	cache := pricefeed.NewCache(staticFetcher{
		"ethereum": {USD: decimal.NewFromInt(3000), Change24h: decimal.RequireFromString("1.5")},
		"tether":   {USD: decimal.NewFromInt(1)},
	}, pricefeed.AssetsFromConfig(cfg.Assets), nil)
	cache.Refresh(context.Background())

	manager := session.NewManager(registry, session.Options{AppName: cfg.AppName})
	t.Cleanup(manager.Close)

	providers := map[session.Space]session.Provider{}
	if withProviders {
		evm, err := keywallet.NewEVM(devKey, []uint64{1, 56})
		require.NoError(t, err)
		sol, err := keywallet.NewSolana(solana.NewWallet().PrivateKey.String())
		require.NoError(t, err)
		providers[session.SpaceAccount] = evm
		providers[session.SpaceAddress] = sol
	}

	symbols := make([]string, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		symbols = append(symbols, a.Symbol)
	}

	srv := NewServer(Options{
		Prices:    cache,
		Sessions:  manager,
		Registry:  registry,
		Providers: providers,
		Symbols:   symbols,
		Health:    health.NewChecker(cache, 30*time.Second).Handler(),
		History:   history,
	})
	return &testEnv{handler: srv.Routes(), sessions: manager}
}

func (e *testEnv) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestPricesEndpoint(t *testing.T) {
	env := newTestEnv(t, false, nil)

	var resp struct {
		Loading   bool       `json:"loading"`
		FetchedAt *time.Time `json:"fetched_at"`
		Quotes    []struct {
			Symbol string `json:"symbol"`
			USD    string `json:"usd"`
			Source string `json:"source"`
		} `json:"quotes"`
	}
	code := env.do(t, http.MethodGet, "/v1/prices", "", &resp)

	assert.Equal(t, http.StatusOK, code)
	assert.False(t, resp.Loading)
	assert.NotNil(t, resp.FetchedAt)
	require.Len(t, resp.Quotes, 8)

	bySymbol := map[string]string{}
	for _, q := range resp.Quotes {
		bySymbol[q.Symbol] = q.USD + "/" + q.Source
	}
	assert.Equal(t, "3000/live", bySymbol["ETH"])
	assert.Equal(t, "1/placeholder", bySymbol["NL"])
	assert.Equal(t, "0/live", bySymbol["SOL"], "missing ids are zero")
}

func TestQuoteEndpoint(t *testing.T) {
	env := newTestEnv(t, false, nil)

	t.Run("eth to usdt", func(t *testing.T) {
		var resp quoteResponse
		code := env.do(t, http.MethodGet, "/v1/quote?from=eth&to=USDT&amount=2", "", &resp)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, quoteResponse{
			From:            "ETH",
			To:              "USDT",
			Amount:          "2",
			OK:              true,
			DestAmount:      "6000.000000",
			Rate:            "3000.000000",
			EstimatedFee:    "0.006000",
			MinimumReceived: "5970.000000",
			Slippage:        "0.5",
		}, resp)
	})

	t.Run("slippage is clamped", func(t *testing.T) {
		var resp quoteResponse
		env.do(t, http.MethodGet, "/v1/quote?from=ETH&to=USDT&amount=1&slippage=80", "", &resp)
		assert.Equal(t, "49", resp.Slippage)
		assert.Equal(t, "1530.000000", resp.MinimumReceived)
	})

	t.Run("no quote", func(t *testing.T) {
		tests := map[string]string{
			"unknown asset":  "/v1/quote?from=ETH&to=DOGE&amount=1",
			"zero price":     "/v1/quote?from=ETH&to=SOL&amount=1",
			"bad amount":     "/v1/quote?from=ETH&to=USDT&amount=abc",
			"negative":       "/v1/quote?from=ETH&to=USDT&amount=-1",
			"missing amount": "/v1/quote?from=ETH&to=USDT",
		}
		for name, path := range tests {
			var resp quoteResponse
			code := env.do(t, http.MethodGet, path, "", &resp)
			assert.Equal(t, http.StatusOK, code, name)
			assert.False(t, resp.OK, name)
			assert.Empty(t, resp.DestAmount, name)
		}
	})

	t.Run("missing pair", func(t *testing.T) {
		var resp errorResponse
		code := env.do(t, http.MethodGet, "/v1/quote?from=ETH", "", &resp)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "from and to are required", resp.Error)
	})
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t, true, nil)

	var view sessionResponse
	code := env.do(t, http.MethodGet, "/v1/session", "", &view)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, view.Connected)
	assert.Nil(t, view.Address)
	assert.Equal(t, "0.0000", view.Balance)
	assert.Equal(t, "Ethereum", view.CurrentNetwork)
	assert.Len(t, view.Spaces, 2)

	code = env.do(t, http.MethodPost, "/v1/session/account/connect", "", &view)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, view.Connected)
	require.NotNil(t, view.Address)
	assert.Equal(t, devAddress, *view.Address)
	assert.Equal(t, "0xf39F...2266", view.DisplayAddress)

	var failed errorResponse
	code = env.do(t, http.MethodPost, "/v1/session/evm/connect", "", &failed)
	assert.Equal(t, http.StatusConflict, code)

	code = env.do(t, http.MethodPost, "/v1/session/solana/connect", "", &view)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.StateConnected, view.Spaces[1].State)

	code = env.do(t, http.MethodPost, "/v1/session/network", `{"network":"bsc"}`, &view)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "BSC", view.SelectedNetwork)
	assert.Equal(t, "BSC", view.CurrentNetwork)

	code = env.do(t, http.MethodPost, "/v1/session/network", `{"network":"Fantom"}`, &failed)
	assert.Equal(t, http.StatusBadRequest, code)

	code = env.do(t, http.MethodPost, "/v1/session/network", `{"network":"Avalanche"}`, &failed)
	assert.Equal(t, http.StatusBadGateway, code, "key wallet is not set up for avalanche")
	require.NotEmpty(t, failed.Notices)
	assert.Equal(t, "Failed to switch to Avalanche", failed.Notices[len(failed.Notices)-1].Text)

	code = env.do(t, http.MethodPost, "/v1/session/network", `{"chain":"BSC"}`, &failed)
	assert.Equal(t, http.StatusBadRequest, code, "unknown fields are rejected")

	code = env.do(t, http.MethodPost, "/v1/session/account/disconnect", "", &view)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.StateDisconnected, view.Spaces[0].State)
	assert.True(t, view.Connected, "solana session remains")

	code = env.do(t, http.MethodPost, "/v1/session/cosmos/connect", "", &failed)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestConnectWithoutProvider(t *testing.T) {
	env := newTestEnv(t, false, nil)

	var resp errorResponse
	code := env.do(t, http.MethodPost, "/v1/session/address/connect", "", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	require.Len(t, resp.Notices, 1)
	assert.Contains(t, resp.Notices[0].Text, "No wallet detected")
}

func TestBalancesEndpoint(t *testing.T) {
	env := newTestEnv(t, true, nil)

	var resp balancesResponse
	code := env.do(t, http.MethodGet, "/v1/balances", "", &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, resp.Address)
	assert.Len(t, resp.Balances, 8)
	assert.Equal(t, "0.0000", resp.Balances["ETH"])
	assert.Equal(t, "0.00", resp.Balances["NL"])

	env.do(t, http.MethodPost, "/v1/session/account/connect", "", nil)

	var picked balancesResponse
	code = env.do(t, http.MethodGet, "/v1/balances?symbols=nl,%20usdt,,AVAX", "", &picked)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, picked.Address)
	assert.Equal(t, map[string]string{"NL": "0.00", "USDT": "0.00", "AVAX": "0.00"}, picked.Balances)
	assert.Equal(t, "Ethereum", picked.Network)
}

func TestSwapEndpoint(t *testing.T) {
	env := newTestEnv(t, true, nil)

	var failed errorResponse
	code := env.do(t, http.MethodPost, "/v1/swap", `{"amount":"2"}`, &failed)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Connect Wallet to Swap", failed.Action)

	env.do(t, http.MethodPost, "/v1/session/account/connect", "", nil)

	tests := []struct {
		name   string
		body   string
		code   int
		action string
	}{
		{"missing amount", `{}`, http.StatusUnprocessableEntity, "Enter Amount"},
		{"unpriced pair", `{"amount":"1","to_asset":"DOGE"}`, http.StatusUnprocessableEntity, "Enter Amount"},
		{"missing recipient", `{"amount":"2","send_to_different_wallet":true}`, http.StatusUnprocessableEntity, "Enter Recipient Address"},
		{"valid", `{"amount":"2"}`, http.StatusNotImplemented, "Execute Swap"},
		{"valid with recipient", `{"amount":"2","send_to_different_wallet":true,"recipient":"0xabc"}`, http.StatusNotImplemented, "Swap & Send"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp errorResponse
			code := env.do(t, http.MethodPost, "/v1/swap", tt.body, &resp)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.action, resp.Action)
		})
	}

	t.Run("intent", func(t *testing.T) {
		var resp swapResponse
		code := env.do(t, http.MethodPost, "/v1/swap",
			`{"from_chain":"bsc","from_asset":"ETH","amount":"2","slippage":"1.0","privacy":{"use_mixer":true}}`, &resp)
		require.Equal(t, http.StatusNotImplemented, code)
		assert.Equal(t, "Swap execution coming soon", resp.Error)
		assert.Equal(t, "BSC", resp.Intent.From.Chain)
		assert.Equal(t, "ETH", resp.Intent.From.Asset)
		assert.Equal(t, "Ethereum", resp.Intent.To.Chain)
		assert.Equal(t, "6000.000000", resp.Intent.DestAmount)
		assert.Equal(t, "1", resp.Intent.Slippage)
		assert.True(t, resp.Intent.Privacy.UseMixer)
		assert.False(t, resp.Intent.Privacy.UseRelayer)
		require.NotNil(t, resp.Details)
		assert.Equal(t, "5940.000000", resp.Details.MinimumReceived)
	})

	t.Run("bad body", func(t *testing.T) {
		code := env.do(t, http.MethodPost, "/v1/swap", `{"amount":`, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestHistoryEndpoint(t *testing.T) {
	t.Run("without database", func(t *testing.T) {
		env := newTestEnv(t, false, nil)
		var resp errorResponse
		code := env.do(t, http.MethodGet, "/v1/prices/ETH/history", "", &resp)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})

	t.Run("with database", func(t *testing.T) {
		at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		env := newTestEnv(t, false, fakeHistory{rows: []storage.PriceSnapshot{
			{FetchedAt: at.Add(time.Minute), Symbol: "ETH", USDPrice: decimal.NewFromInt(3010), Source: "live"},
			{FetchedAt: at, Symbol: "ETH", USDPrice: decimal.NewFromInt(3000), Source: "live"},
			{FetchedAt: at, Symbol: "SOL", USDPrice: decimal.NewFromInt(150), Source: "live"},
		}})

		var resp historyResponse
		code := env.do(t, http.MethodGet, "/v1/prices/eth/history?limit=1", "", &resp)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ETH", resp.Symbol)
		require.Len(t, resp.History, 1)
		assert.Equal(t, "3010", resp.History[0].USDPrice.String())

		code = env.do(t, http.MethodGet, "/v1/prices/eth/history?limit=0", "", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("query failure", func(t *testing.T) {
		env := newTestEnv(t, false, fakeHistory{err: errors.New("db down")})
		code := env.do(t, http.MethodGet, "/v1/prices/ETH/history", "", nil)
		assert.Equal(t, http.StatusInternalServerError, code)
	})
}

func TestHealthRoute(t *testing.T) {
	env := newTestEnv(t, false, nil)

	var resp health.HealthResponse
	code := env.do(t, http.MethodGet, "/health", "", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StatusOK, resp.Status)
}
