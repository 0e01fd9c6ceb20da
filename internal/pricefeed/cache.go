// Package pricefeed keeps a best-effort, periodically refreshed snapshot of
// reference prices.
package pricefeed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matrixise/nolimit-swap/internal/config"
	"github.com/shopspring/decimal"
)

// Asset is one tracked symbol. Placeholder assets are never fetched.
type Asset struct {
	Symbol      string
	FeedID      string
	Placeholder *decimal.Decimal
}

// AssetsFromConfig converts configured assets, skipping unparsable placeholders
func AssetsFromConfig(cfgs []config.AssetConfig) []Asset {
	assets := make([]Asset, 0, len(cfgs))
	for _, ac := range cfgs {
		a := Asset{Symbol: strings.ToUpper(ac.Symbol), FeedID: ac.FeedID}
		if ac.PlaceholderUSD != "" {
			p, err := decimal.NewFromString(strings.TrimSpace(ac.PlaceholderUSD))
			if err != nil {
				slog.Warn("Ignoring invalid placeholder price", "symbol", ac.Symbol, "value", ac.PlaceholderUSD)
				continue
			}
			a.Placeholder = &p
		}
		assets = append(assets, a)
	}
	return assets
}

// Cache holds the latest snapshot. A single writer (Refresh) swaps
// snapshots atomically; readers never observe a partial update.
type Cache struct {
	fetcher Fetcher
	assets  []Asset
	logger  *slog.Logger
	now     func() time.Time

	snapshot atomic.Pointer[Snapshot]
	loading  atomic.Bool

	refreshMu sync.Mutex

	mu          sync.RWMutex
	lastErr     error
	lastSuccess time.Time
	subscribers map[uint64]func(*Snapshot)
	nextSubID   uint64
}

// NewCache creates an empty cache in the loading state
func NewCache(fetcher Fetcher, assets []Asset, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		fetcher:     fetcher,
		assets:      append([]Asset(nil), assets...),
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[uint64]func(*Snapshot)),
	}
	c.snapshot.Store(emptySnapshot)
	c.loading.Store(true)
	return c
}

// Snapshot returns the current snapshot, empty before the first success
func (c *Cache) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Loading reports whether no refresh has completed yet or one is in flight
func (c *Cache) Loading() bool {
	return c.loading.Load()
}

// LastError returns the error of the most recent failed refresh, cleared on success
func (c *Cache) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastSuccess returns when the snapshot was last replaced
func (c *Cache) LastSuccess() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// Subscribe registers fn to be called after each snapshot replacement
func (c *Cache) Subscribe(fn func(*Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// Refresh fetches all tracked feed ids in one request and replaces the
// snapshot on success. Failures are logged and leave the previous snapshot
// in place; they are never returned to the caller.
func (c *Cache) Refresh(ctx context.Context) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.loading.Store(true)
	defer c.loading.Store(false)

	ids := c.feedIDs()

	var raw map[string]RawQuote
	if len(ids) > 0 {
		var err error
		raw, err = c.fetcher.Fetch(ctx, ids)
		if err != nil {
			c.recordFailure(fmt.Errorf("fetch prices: %w", err))
			return
		}
	}

	snap := c.build(raw)
	c.snapshot.Store(snap)

	c.mu.Lock()
	c.lastErr = nil
	c.lastSuccess = snap.FetchedAt()
	subs := make([]func(*Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	c.logger.Debug("Price snapshot replaced", "assets", snap.Len())

	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Cache) recordFailure(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	c.logger.Warn("Price refresh failed, serving last known snapshot",
		"error", err,
		"snapshot_age", c.now().Sub(c.Snapshot().FetchedAt()).Round(time.Second))
}

func (c *Cache) feedIDs() []string {
	ids := make([]string, 0, len(c.assets))
	seen := make(map[string]bool, len(c.assets))
	for _, a := range c.assets {
		if a.Placeholder != nil || a.FeedID == "" || seen[a.FeedID] {
			continue
		}
		seen[a.FeedID] = true
		ids = append(ids, a.FeedID)
	}
	return ids
}

func (c *Cache) build(raw map[string]RawQuote) *Snapshot {
	quotes := make([]AssetQuote, 0, len(c.assets))
	for _, a := range c.assets {
		if a.Placeholder != nil {
			quotes = append(quotes, AssetQuote{
				Symbol:   a.Symbol,
				USDPrice: *a.Placeholder,
				Source:   SourcePlaceholder,
			})
			continue
		}
		// Ids missing from the response become zero-valued quotes
		r := raw[a.FeedID]
		quotes = append(quotes, AssetQuote{
			Symbol:    a.Symbol,
			USDPrice:  r.USD,
			Change24h: r.Change24h,
			Source:    SourceLive,
		})
	}
	return NewSnapshot(quotes, c.now().UTC())
}
