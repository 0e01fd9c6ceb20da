// Package blockchain reads native and ERC-20 balances from EVM chains.
package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	rpcTimeout    = 10 * time.Second
	maxRetries    = 3
	retryInterval = 500 * time.Millisecond

	// NativeDecimals is the precision of ETH, BNB and AVAX balances
	NativeDecimals uint8 = 18
)

// Balance is an on-chain balance with its precision
type Balance struct {
	Symbol   string
	Raw      *big.Int
	Decimals uint8
}

// Amount returns the balance as a decimal in token units
func (b Balance) Amount() decimal.Decimal {
	if b.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(b.Raw, -int32(b.Decimals))
}

// String returns the exact balance with trailing zeros trimmed
func (b Balance) String() string {
	if b.Raw == nil {
		return "0"
	}
	return HumanBalance(b.Raw, b.Decimals)
}

// Client reads balances on one chain through a FailoverClient
type Client struct {
	chainID        uint64
	failoverClient *FailoverClient
	parsedABI      abi.ABI
	retryInterval  time.Duration
}

// NewClient creates a blockchain client with failover support
func NewClient(ctx context.Context, chainID uint64, rpcURLs []string, dial Dialer) (*Client, error) {
	failoverClient, err := NewFailoverClient(ctx, chainID, rpcURLs, dial)
	if err != nil {
		return nil, err
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		failoverClient.Close()
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return &Client{
		chainID:        chainID,
		failoverClient: failoverClient,
		parsedABI:      parsedABI,
		retryInterval:  retryInterval,
	}, nil
}

// ChainID returns the chain this client reads from
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// EndpointsHealth reports the health of each RPC endpoint
func (c *Client) EndpointsHealth() map[string]bool {
	return c.failoverClient.EndpointsHealth()
}

// Close closes all RPC client connections
func (c *Client) Close() {
	c.failoverClient.Close()
}

// NativeBalance returns the balance of the chain's native coin
func (c *Client) NativeBalance(ctx context.Context, wallet common.Address, symbol string) (Balance, error) {
	rpcCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	var raw *big.Int
	err := c.retryWithBackoff(rpcCtx, func(backend Backend) error {
		var err error
		raw, err = backend.BalanceAt(rpcCtx, wallet, nil)
		return err
	})
	if err != nil {
		return Balance{}, fmt.Errorf("balanceAt: %w", err)
	}

	return Balance{Symbol: symbol, Raw: raw, Decimals: NativeDecimals}, nil
}

// retryWithBackoff executes fn with exponential backoff, failing over to
// another endpoint after each error
func (c *Client) retryWithBackoff(ctx context.Context, fn func(Backend) error) error {
	var lastErr error

	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := c.retryInterval * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		backend, currentURL, err := c.failoverClient.GetClient(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		if err := fn(backend); err != nil {
			lastErr = err
			c.failoverClient.MarkUnhealthy(currentURL, err)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// HumanBalance converts raw balance to human-readable decimal string
func HumanBalance(rawBalance *big.Int, decimals uint8) string {
	if rawBalance.Sign() == 0 {
		return "0"
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)

	intPart := new(big.Int).Div(rawBalance, divisor)
	remainder := new(big.Int).Mod(rawBalance, divisor)

	if remainder.Sign() == 0 {
		return intPart.String()
	}

	fracStr := fmt.Sprintf("%0*s", int(decimals), remainder.String())
	fracStr = strings.TrimRight(fracStr, "0")
	return fmt.Sprintf("%s.%s", intPart.String(), fracStr)
}
