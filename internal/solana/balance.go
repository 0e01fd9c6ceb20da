// Package solana reads SOL balances and verifies wallet ownership proofs.
package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL
const LamportsPerSOL = 1_000_000_000

const solDecimals = 9

var (
	ErrNoEndpoints    = errors.New("no Solana RPC endpoints configured")
	ErrInvalidAddress = errors.New("invalid Solana address")
)

type endpoint struct {
	url    string
	client *rpc.Client
}

// BalanceReader fetches native balances, trying each endpoint in order
type BalanceReader struct {
	endpoints  []endpoint
	commitment rpc.CommitmentType
	logger     *slog.Logger
}

// NewBalanceReader creates a reader over urls. An empty commitment means finalized.
func NewBalanceReader(urls []string, commitment string) (*BalanceReader, error) {
	if len(urls) == 0 {
		return nil, ErrNoEndpoints
	}
	if commitment == "" {
		commitment = string(rpc.CommitmentFinalized)
	}

	r := &BalanceReader{
		endpoints:  make([]endpoint, 0, len(urls)),
		commitment: rpc.CommitmentType(commitment),
		logger:     slog.Default().With("chain", "solana"),
	}
	for _, u := range urls {
		r.endpoints = append(r.endpoints, endpoint{url: u, client: rpc.New(u)})
	}
	return r, nil
}

// Lamports returns the raw balance of address
func (r *BalanceReader) Lamports(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	var lastErr error
	for _, ep := range r.endpoints {
		res, err := ep.client.GetBalance(ctx, pubkey, r.commitment)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			r.logger.Warn("Solana RPC endpoint failed, trying next", "url", ep.url, "error", err)
			continue
		}
		return res.Value, nil
	}
	return 0, fmt.Errorf("failed to get balance from %d endpoints: %w", len(r.endpoints), lastErr)
}

// NativeBalance returns the SOL balance of address
func (r *BalanceReader) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	lamports, err := r.Lamports(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	return LamportsToSOL(lamports), nil
}

// Endpoints returns the configured RPC URLs in the order they are tried
func (r *BalanceReader) Endpoints() []string {
	out := make([]string, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		out = append(out, ep.url)
	}
	return out
}

// LamportsToSOL converts lamports to SOL
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -solDecimals)
}
