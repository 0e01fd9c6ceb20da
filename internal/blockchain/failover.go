package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	unhealthyDuration  = 5 * time.Minute // Cooldown before retry
	healthCheckTimeout = 5 * time.Second
)

// ErrNoHealthyEndpoint is returned when every endpoint of a chain is down
var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoints available")

// Backend is the subset of ethclient.Client used for balance reads
type Backend interface {
	bind.ContractCaller
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	Close()
}

// Dialer opens a Backend for an RPC URL
type Dialer func(ctx context.Context, url string) (Backend, error)

// DialEthclient is the default Dialer
func DialEthclient(ctx context.Context, url string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type endpointStatus struct {
	url           string
	client        Backend
	healthy       bool
	lastError     error
	lastErrorTime time.Time
	mu            sync.RWMutex
}

// FailoverClient manages the RPC endpoints of one chain with automatic failover
type FailoverClient struct {
	chainID      uint64
	endpoints    []*endpointStatus
	currentIndex int
	dial         Dialer
	logger       *slog.Logger
	mu           sync.RWMutex
}

// NewFailoverClient dials every endpoint and checks that it serves chainID.
// At least one endpoint must answer.
func NewFailoverClient(ctx context.Context, chainID uint64, urls []string, dial Dialer) (*FailoverClient, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC URL is required")
	}
	if dial == nil {
		dial = DialEthclient
	}

	fc := &FailoverClient{
		chainID:   chainID,
		endpoints: make([]*endpointStatus, 0, len(urls)),
		dial:      dial,
		logger:    slog.Default().With("chain_id", chainID),
	}

	healthyCount := 0
	for _, url := range urls {
		client, err := fc.connect(ctx, url)

		ep := &endpointStatus{
			url:           url,
			client:        client,
			healthy:       err == nil,
			lastError:     err,
			lastErrorTime: time.Now(),
		}
		fc.endpoints = append(fc.endpoints, ep)

		if err == nil {
			healthyCount++
			fc.logger.Info("Connected to RPC endpoint", "url", url)
		} else {
			fc.logger.Warn("Failed to connect to RPC endpoint, will retry later", "url", url, "error", err)
		}
	}

	if healthyCount == 0 {
		fc.Close()
		return nil, fmt.Errorf("chain %d: %w", chainID, ErrNoHealthyEndpoint)
	}

	return fc, nil
}

// connect dials url and verifies the chain id it reports
func (fc *FailoverClient) connect(ctx context.Context, url string) (Backend, error) {
	client, err := fc.dial(ctx, url)
	if err != nil {
		return nil, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	id, err := client.ChainID(checkCtx)
	if err != nil {
		client.Close()
		return nil, err
	}
	if fc.chainID != 0 && id.Uint64() != fc.chainID {
		client.Close()
		return nil, fmt.Errorf("endpoint serves chain %s, expected %d", id, fc.chainID)
	}
	return client, nil
}

// GetClient returns a healthy client, automatically failing over if needed
func (fc *FailoverClient) GetClient(ctx context.Context) (Backend, string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	startIndex := fc.currentIndex

	for i := 0; i < len(fc.endpoints); i++ {
		idx := (startIndex + i) % len(fc.endpoints)
		ep := fc.endpoints[idx]

		ep.mu.RLock()
		healthy := ep.healthy
		client := ep.client
		url := ep.url
		canRetry := time.Since(ep.lastErrorTime) > unhealthyDuration
		ep.mu.RUnlock()

		if healthy && client != nil {
			fc.currentIndex = idx
			return client, url, nil
		}

		// Try to reconnect unhealthy endpoint if cooldown expired
		if !healthy && canRetry {
			newClient, err := fc.connect(ctx, url)
			if err != nil {
				ep.mu.Lock()
				ep.lastError = err
				ep.lastErrorTime = time.Now()
				ep.mu.Unlock()
				continue
			}

			ep.mu.Lock()
			ep.client = newClient
			ep.healthy = true
			ep.lastError = nil
			ep.mu.Unlock()

			fc.currentIndex = idx
			fc.logger.Info("Reconnected to RPC endpoint", "url", url)
			return newClient, url, nil
		}
	}

	return nil, "", ErrNoHealthyEndpoint
}

// MarkUnhealthy marks an endpoint as unhealthy and closes its connection
func (fc *FailoverClient) MarkUnhealthy(url string, err error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	for _, ep := range fc.endpoints {
		if ep.url == url {
			ep.mu.Lock()
			ep.healthy = false
			ep.lastError = err
			ep.lastErrorTime = time.Now()
			if ep.client != nil {
				ep.client.Close()
				ep.client = nil
			}
			ep.mu.Unlock()

			fc.logger.Warn("Marked RPC endpoint as unhealthy, will retry after cooldown",
				"url", url,
				"error", err,
				"retry_after", unhealthyDuration)
			return
		}
	}
}

// EndpointsHealth reports the health of each endpoint by URL
func (fc *FailoverClient) EndpointsHealth() map[string]bool {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	out := make(map[string]bool, len(fc.endpoints))
	for _, ep := range fc.endpoints {
		ep.mu.RLock()
		out[ep.url] = ep.healthy
		ep.mu.RUnlock()
	}
	return out
}

// Close closes all endpoint connections
func (fc *FailoverClient) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, ep := range fc.endpoints {
		ep.mu.Lock()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.healthy = false
		ep.mu.Unlock()
	}
}
