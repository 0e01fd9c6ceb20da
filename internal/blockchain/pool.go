package blockchain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/nolimit-swap/internal/networks"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownChain   = errors.New("chain is not configured")
	ErrUnknownToken   = errors.New("token is not registered on this chain")
	ErrInvalidAddress = errors.New("invalid EVM address")
)

// Pool holds one lazily-dialed Client per configured EVM chain
type Pool struct {
	registry *networks.Registry
	dial     Dialer

	mu      sync.Mutex
	clients map[uint64]*Client
}

// NewPool creates a pool over the EVM networks of registry. A nil dial uses ethclient.
func NewPool(registry *networks.Registry, dial Dialer) *Pool {
	if dial == nil {
		dial = DialEthclient
	}
	return &Pool{
		registry: registry,
		dial:     dial,
		clients:  make(map[uint64]*Client),
	}
}

// Client returns the client for chainID, dialing it on first use. A chain
// whose endpoints are all down is retried on the next call.
func (p *Pool) Client(ctx context.Context, chainID uint64) (*Client, error) {
	network, ok := p.registry.ByChainID(chainID)
	if !ok {
		return nil, fmt.Errorf("chain %d: %w", chainID, ErrUnknownChain)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[chainID]; ok {
		return c, nil
	}

	c, err := NewClient(ctx, chainID, network.RPCUrls, p.dial)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", network.Name, err)
	}
	p.clients[chainID] = c
	return c, nil
}

// NativeBalance returns the native coin balance of address on chainID
func (p *Pool) NativeBalance(ctx context.Context, chainID uint64, address string) (decimal.Decimal, error) {
	wallet, err := parseAddress(address)
	if err != nil {
		return decimal.Zero, err
	}
	network, ok := p.registry.ByChainID(chainID)
	if !ok {
		return decimal.Zero, fmt.Errorf("chain %d: %w", chainID, ErrUnknownChain)
	}

	c, err := p.Client(ctx, chainID)
	if err != nil {
		return decimal.Zero, err
	}
	b, err := c.NativeBalance(ctx, wallet, network.NativeSymbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s native balance: %w", network.Name, err)
	}
	return b.Amount(), nil
}

// TokenBalance returns the balance of the registered token symbol held by address on chainID
func (p *Pool) TokenBalance(ctx context.Context, chainID uint64, address, symbol string) (decimal.Decimal, error) {
	wallet, err := parseAddress(address)
	if err != nil {
		return decimal.Zero, err
	}
	network, ok := p.registry.ByChainID(chainID)
	if !ok {
		return decimal.Zero, fmt.Errorf("chain %d: %w", chainID, ErrUnknownChain)
	}
	token, ok := network.Token(symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s on %s: %w", symbol, network.Name, ErrUnknownToken)
	}

	c, err := p.Client(ctx, chainID)
	if err != nil {
		return decimal.Zero, err
	}
	b, err := c.TokenBalance(ctx, wallet, TokenInfo{
		Symbol:           token.Symbol,
		Address:          token.Address,
		FallbackDecimals: token.FallbackDecimals,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s token balance: %w", network.Name, err)
	}
	return b.Amount(), nil
}

// Health reports endpoint health for every chain dialed so far, keyed by network name
func (p *Pool) Health() map[string]map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]map[string]bool, len(p.clients))
	for chainID, c := range p.clients {
		name := fmt.Sprintf("chain-%d", chainID)
		if n, ok := p.registry.ByChainID(chainID); ok {
			name = n.Name
		}
		out[name] = c.EndpointsHealth()
	}
	return out
}

// Close closes every client and forgets them
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, c := range p.clients {
		c.Close()
		delete(p.clients, id)
	}
}

func parseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%q: %w", address, ErrInvalidAddress)
	}
	return common.HexToAddress(address), nil
}
