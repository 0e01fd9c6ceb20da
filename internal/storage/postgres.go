// Package storage persists price snapshots to PostgreSQL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MaxHistory caps the rows returned by History
const MaxHistory = 1000

var ErrNoDatabase = errors.New("no database configured")

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrNoDatabase
	}

	// Parse and configure connection pool
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Tune connection pool
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// NUMERIC columns scan into and encode from decimal.Decimal
	config.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// BatchInsertSnapshots inserts the rows of one refresh using pgx.Batch
func (s *Store) BatchInsertSnapshots(ctx context.Context, rows []PriceSnapshot) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO price_snapshots
			(fetched_at, symbol, usd_price, change_24h, source)
			VALUES ($1, $2, $3, $4, $5)`,
			row.FetchedAt,
			row.Symbol,
			row.USDPrice,
			row.Change24h,
			row.Source,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}

	return nil
}

// History returns the most recent rows for symbol, newest first
func (s *Store) History(ctx context.Context, symbol string, limit int) ([]PriceSnapshot, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, fetched_at, symbol, usd_price, change_24h, source
		FROM price_snapshots
		WHERE symbol = $1
		ORDER BY fetched_at DESC
		LIMIT $2`,
		strings.ToUpper(symbol), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	history, err := pgx.CollectRows(rows, pgx.RowToStructByPos[PriceSnapshot])
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return history, nil
}
