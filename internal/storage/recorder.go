package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/matrixise/nolimit-swap/internal/pricefeed"
)

const insertTimeout = 10 * time.Second

// SnapshotWriter stores the rows of one refresh
type SnapshotWriter interface {
	BatchInsertSnapshots(ctx context.Context, rows []PriceSnapshot) error
}

// Recorder persists every new snapshot published by the price cache.
// Write failures are logged and never reach the cache.
type Recorder struct {
	writer SnapshotWriter
	logger *slog.Logger

	mu   sync.Mutex
	last time.Time
}

// NewRecorder creates a recorder writing to w
func NewRecorder(w SnapshotWriter, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{writer: w, logger: logger}
}

// Record writes snap unless it is empty or was already written.
// Its signature matches pricefeed.Cache.Subscribe.
func (r *Recorder) Record(snap *pricefeed.Snapshot) {
	if snap.Len() == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !snap.FetchedAt().After(r.last) {
		return
	}

	rows := SnapshotRows(snap)
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := r.writer.BatchInsertSnapshots(ctx, rows); err != nil {
		r.logger.Error("Failed to persist price snapshot", "error", err, "rows", len(rows))
		return
	}
	r.last = snap.FetchedAt()
	r.logger.Debug("Price snapshot persisted", "rows", len(rows), "fetched_at", r.last)
}
