package storage

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/matrixise/nolimit-swap/internal/pricefeed"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	batches [][]PriceSnapshot
	err     error
}

func (f *fakeWriter) BatchInsertSnapshots(_ context.Context, rows []PriceSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, rows)
	return nil
}

func testSnapshot(at time.Time) *pricefeed.Snapshot {
	return pricefeed.NewSnapshot([]pricefeed.AssetQuote{
		{Symbol: "usdt", USDPrice: decimal.RequireFromString("1.0001"), Source: pricefeed.SourceLive},
		{Symbol: "ETH", USDPrice: decimal.RequireFromString("3000.5"), Change24h: decimal.RequireFromString("-1.25"), Source: pricefeed.SourceLive},
		{Symbol: "NL", USDPrice: decimal.RequireFromString("1.0"), Source: pricefeed.SourcePlaceholder},
	}, at)
}

func TestSnapshotRows(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := SnapshotRows(testSnapshot(at))

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ETH", "NL", "USDT"}, []string{rows[0].Symbol, rows[1].Symbol, rows[2].Symbol})
	for _, r := range rows {
		assert.Equal(t, at, r.FetchedAt)
	}
	assert.Equal(t, "3000.5", rows[0].USDPrice.String())
	assert.Equal(t, "-1.25", rows[0].Change24h.String())
	assert.Equal(t, "placeholder", rows[1].Source)
	assert.Equal(t, "live", rows[2].Source)

	assert.Empty(t, SnapshotRows(nil))
}

func TestRecorder(t *testing.T) {
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("writes each new snapshot once", func(t *testing.T) {
		w := &fakeWriter{}
		r := NewRecorder(w, nil)

		snap := testSnapshot(t0)
		r.Record(snap)
		r.Record(snap)
		r.Record(testSnapshot(t0.Add(-time.Minute)))
		r.Record(testSnapshot(t0.Add(30 * time.Second)))

		require.Len(t, w.batches, 2)
		assert.Len(t, w.batches[0], 3)
		assert.Equal(t, t0.Add(30*time.Second), w.batches[1][0].FetchedAt)
	})

	t.Run("skips empty snapshots", func(t *testing.T) {
		w := &fakeWriter{}
		r := NewRecorder(w, nil)
		r.Record(pricefeed.NewSnapshot(nil, t0))
		r.Record(nil)
		assert.Empty(t, w.batches)
	})

	t.Run("failed write is retried on the next snapshot", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("connection refused")}
		r := NewRecorder(w, nil)
		snap := testSnapshot(t0)
		r.Record(snap)
		assert.Empty(t, w.batches)

		w.err = nil
		r.Record(snap)
		assert.Len(t, w.batches, 1)
	})

	t.Run("subscribed to the cache", func(t *testing.T) {
		w := &fakeWriter{}
		r := NewRecorder(w, nil)
		fixed := decimal.RequireFromString("1.0")
		cache := pricefeed.NewCache(nil, []pricefeed.Asset{{Symbol: "NL", Placeholder: &fixed}}, nil)
		unsubscribe := cache.Subscribe(r.Record)
		defer unsubscribe()

		cache.Refresh(context.Background())
		require.Len(t, w.batches, 1)
		assert.Equal(t, "NL", w.batches[0][0].Symbol)
	})
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		body, err := fs.ReadFile(migrations, f)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", f)
		assert.Contains(t, string(body), "-- +goose Down", f)
	}
}

func TestNoDatabase(t *testing.T) {
	_, err := NewStore(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, RunMigrations(context.Background(), ""), ErrNoDatabase)
}
