package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawQuote is one entry of a price source response after coercion
type RawQuote struct {
	USD       decimal.Decimal
	Change24h decimal.Decimal
}

// Fetcher requests reference prices for a set of feed ids in one call
type Fetcher interface {
	Fetch(ctx context.Context, ids []string) (map[string]RawQuote, error)
}

// ErrMalformedResponse is returned when the payload is not an id->quote object
var ErrMalformedResponse = errors.New("malformed price response")

const maxResponseBytes = 1 << 20

// CoinGeckoClient fetches prices from the CoinGecko simple/price endpoint
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures CoinGeckoClient
type ClientOption func(*CoinGeckoClient)

// WithTimeout sets the HTTP client timeout, zero meaning none
func WithTimeout(d time.Duration) ClientOption {
	return func(c *CoinGeckoClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *CoinGeckoClient) {
		c.client = client
	}
}

// NewCoinGeckoClient creates a client rooted at baseURL (e.g. https://api.coingecko.com/api/v3)
func NewCoinGeckoClient(baseURL string, opts ...ClientOption) *CoinGeckoClient {
	c := &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch issues a single GET for all ids with 24h change data
func (c *CoinGeckoClient) Fetch(ctx context.Context, ids []string) (map[string]RawQuote, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("price source returned HTTP %d", resp.StatusCode)
	}

	return decodeSimplePrice(io.LimitReader(resp.Body, maxResponseBytes))
}

// decodeSimplePrice coerces {id: {usd, usd_24h_change}} into typed quotes.
// Absent or non-numeric fields default to zero.
func decodeSimplePrice(r io.Reader) (map[string]RawQuote, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload map[string]json.RawMessage
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: null body", ErrMalformedResponse)
	}

	out := make(map[string]RawQuote, len(payload))
	for id, raw := range payload {
		var fields map[string]any
		inner := json.NewDecoder(strings.NewReader(string(raw)))
		inner.UseNumber()
		if err := inner.Decode(&fields); err != nil {
			// One bad entry defaults to zero rather than failing the whole fetch
			out[id] = RawQuote{}
			continue
		}
		out[id] = RawQuote{
			USD:       numberField(fields, "usd"),
			Change24h: numberField(fields, "usd_24h_change"),
		}
	}
	return out, nil
}

func numberField(fields map[string]any, key string) decimal.Decimal {
	n, ok := fields[key].(json.Number)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
