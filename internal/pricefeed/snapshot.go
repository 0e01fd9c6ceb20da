package pricefeed

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source tells where a quote came from
type Source string

const (
	SourceLive        Source = "live"
	SourcePlaceholder Source = "placeholder"
)

// AssetQuote is the reference price of one asset at the last successful fetch
type AssetQuote struct {
	Symbol    string          `json:"symbol"`
	USDPrice  decimal.Decimal `json:"usd"`
	Change24h decimal.Decimal `json:"usd_24h_change"`
	Source    Source          `json:"source"`
}

// Snapshot is an immutable set of quotes keyed by symbol
type Snapshot struct {
	quotes    map[string]AssetQuote
	fetchedAt time.Time
}

// NewSnapshot copies quotes into a new snapshot
func NewSnapshot(quotes []AssetQuote, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		quotes:    make(map[string]AssetQuote, len(quotes)),
		fetchedAt: fetchedAt,
	}
	for _, q := range quotes {
		q.Symbol = strings.ToUpper(q.Symbol)
		s.quotes[q.Symbol] = q
	}
	return s
}

var emptySnapshot = &Snapshot{quotes: map[string]AssetQuote{}}

// Get returns the quote for symbol; a missing entry means unknown, not zero
func (s *Snapshot) Get(symbol string) (AssetQuote, bool) {
	if s == nil {
		return AssetQuote{}, false
	}
	q, ok := s.quotes[strings.ToUpper(symbol)]
	return q, ok
}

// Price returns the USD reference price for symbol
func (s *Snapshot) Price(symbol string) (decimal.Decimal, bool) {
	q, ok := s.Get(symbol)
	if !ok {
		return decimal.Decimal{}, false
	}
	return q.USDPrice, true
}

// Quotes returns a copy of all quotes sorted by symbol
func (s *Snapshot) Quotes() []AssetQuote {
	if s == nil {
		return nil
	}
	out := make([]AssetQuote, 0, len(s.quotes))
	for _, q := range s.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Len returns the number of quotes
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.quotes)
}

// FetchedAt returns when the snapshot was built, zero for the initial empty one
func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}
