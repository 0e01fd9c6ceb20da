// Package networks maps chain names and ids to native tokens and the
// token contracts known on each chain.
package networks

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/matrixise/nolimit-swap/internal/config"
)

// Token is a contract known on one network
type Token struct {
	Symbol           string
	Address          common.Address
	FallbackDecimals uint8
}

// Network is one selectable chain
type Network struct {
	Name         string
	Kind         string
	ChainID      uint64
	NativeSymbol string
	RPCUrls      []string
	tokens       map[string]Token
}

// IsEVM reports whether the network belongs to the account-model space
func (n Network) IsEVM() bool {
	return n.Kind == config.KindEVM
}

// Token returns the contract registered for symbol on this network
func (n Network) Token(symbol string) (Token, bool) {
	t, ok := n.tokens[strings.ToUpper(symbol)]
	return t, ok
}

// Tokens returns the registered tokens, unordered
func (n Network) Tokens() []Token {
	out := make([]Token, 0, len(n.tokens))
	for _, t := range n.tokens {
		out = append(out, t)
	}
	return out
}

// Registry is a read-only lookup over the configured networks
type Registry struct {
	ordered  []Network
	byName   map[string]int
	byChain  map[uint64]int
	fallback int
}

// NewRegistry builds a registry from normalized network configs
func NewRegistry(cfgs []config.NetworkConfig, defaultNetwork string) *Registry {
	r := &Registry{
		ordered: make([]Network, 0, len(cfgs)),
		byName:  make(map[string]int, len(cfgs)),
		byChain: make(map[uint64]int, len(cfgs)),
	}

	for _, nc := range cfgs {
		n := Network{
			Name:         nc.Name,
			Kind:         nc.Kind,
			ChainID:      nc.ChainID,
			NativeSymbol: strings.ToUpper(nc.NativeSymbol),
			RPCUrls:      append([]string(nil), nc.RPCUrls...),
			tokens:       make(map[string]Token, len(nc.Tokens)),
		}
		for _, tc := range nc.Tokens {
			sym := strings.ToUpper(tc.Symbol)
			n.tokens[sym] = Token{
				Symbol:           sym,
				Address:          common.HexToAddress(tc.Address),
				FallbackDecimals: tc.FallbackDecimals,
			}
		}

		idx := len(r.ordered)
		r.ordered = append(r.ordered, n)
		r.byName[strings.ToLower(n.Name)] = idx
		if n.IsEVM() {
			r.byChain[n.ChainID] = idx
		}
	}

	if idx, ok := r.byName[strings.ToLower(defaultNetwork)]; ok {
		r.fallback = idx
	}

	return r
}

// All returns the networks in configuration order
func (r *Registry) All() []Network {
	return append([]Network(nil), r.ordered...)
}

// ByName looks up a network case-insensitively
func (r *Registry) ByName(name string) (Network, bool) {
	idx, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Network{}, false
	}
	return r.ordered[idx], true
}

// ByChainID looks up an EVM network by chain id
func (r *Registry) ByChainID(chainID uint64) (Network, bool) {
	idx, ok := r.byChain[chainID]
	if !ok {
		return Network{}, false
	}
	return r.ordered[idx], true
}

// Default returns the fallback network
func (r *Registry) Default() Network {
	if len(r.ordered) == 0 {
		return Network{}
	}
	return r.ordered[r.fallback]
}

// ResolveChainID maps a wallet-reported chain id to a network, falling back
// to the default network for chains that are not configured.
func (r *Registry) ResolveChainID(chainID uint64) Network {
	if n, ok := r.ByChainID(chainID); ok {
		return n
	}
	return r.Default()
}

// NativeSymbol returns the native token of the named network
func (r *Registry) NativeSymbol(name string) (string, bool) {
	n, ok := r.ByName(name)
	if !ok || n.NativeSymbol == "" {
		return "", false
	}
	return n.NativeSymbol, true
}

// SolanaNetwork returns the first network of the single-address-space kind
func (r *Registry) SolanaNetwork() (Network, bool) {
	for _, n := range r.ordered {
		if n.Kind == config.KindSolana {
			return n, true
		}
	}
	return Network{}, false
}
