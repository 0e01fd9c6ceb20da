package storage

import (
	"time"

	"github.com/matrixise/nolimit-swap/internal/pricefeed"
	"github.com/shopspring/decimal"
)

// PriceSnapshot is one persisted quote of a successful refresh
type PriceSnapshot struct {
	ID        int64           `json:"-"`
	FetchedAt time.Time       `json:"fetched_at"`
	Symbol    string          `json:"symbol"`
	USDPrice  decimal.Decimal `json:"usd"`
	Change24h decimal.Decimal `json:"usd_24h_change"`
	Source    string          `json:"source"`
}

// SnapshotRows flattens a snapshot into rows sorted by symbol
func SnapshotRows(snap *pricefeed.Snapshot) []PriceSnapshot {
	quotes := snap.Quotes()
	rows := make([]PriceSnapshot, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, PriceSnapshot{
			FetchedAt: snap.FetchedAt(),
			Symbol:    q.Symbol,
			USDPrice:  q.USDPrice,
			Change24h: q.Change24h,
			Source:    string(q.Source),
		})
	}
	return rows
}
