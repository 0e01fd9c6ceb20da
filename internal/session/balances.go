package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/shopspring/decimal"
)

// Display texts for balances that are not known
const (
	EmptyNativeBalance = "0.0000"
	EmptyTokenBalance  = "0.00"
	FailedBalance      = "-.----"
)

const balancePlaces = 4

// RefreshBalances fetches the balances of a connected space. Results that
// arrive after the session changed address, chain or connection are dropped.
func (m *Manager) RefreshBalances(ctx context.Context, space Space) {
	m.mu.Lock()
	st, ok := m.spaces[space]
	if !ok || st.state != StateConnected {
		m.mu.Unlock()
		return
	}
	address, chainID, tok := st.address, st.chainID, st.token
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, balanceTimeout)
	defer cancel()

	switch space {
	case SpaceAccount:
		m.refreshAccount(ctx, st, tok, address, chainID)
	case SpaceAddress:
		m.refreshAddress(ctx, st, tok, address)
	}
}

func (m *Manager) refreshAccount(ctx context.Context, st *spaceState, tok *sessionToken, address string, chainID uint64) {
	if m.accountBal == nil {
		return
	}
	network, ok := m.registry.ByChainID(chainID)
	if !ok {
		m.logger.Debug("Skipping balances on unconfigured chain", "chain_id", chainID)
		return
	}

	var errs []error
	native, nativeErr := m.accountBal.NativeBalance(ctx, chainID, address)
	if nativeErr != nil {
		errs = append(errs, fmt.Errorf("%s: %w", network.NativeSymbol, nativeErr))
	}

	tokens := make(map[string]decimal.Decimal)
	for _, t := range network.Tokens() {
		v, err := m.accountBal.TokenBalance(ctx, chainID, address, t.Symbol)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Symbol, err))
			continue
		}
		tokens[t.Symbol] = v
	}

	m.mu.Lock()
	current := st.token == tok && st.address == address && st.chainID == chainID
	if current {
		if nativeErr == nil {
			st.native = &native
		}
		maps.Copy(st.tokens, tokens)
	}
	m.mu.Unlock()

	if current && len(errs) > 0 {
		m.logger.Warn("Balance fetch failed", "network", network.Name, "error", errors.Join(errs...))
		m.notify(SpaceAccount, LevelError, fmt.Sprintf("Could not fetch some balances on %s.", network.Name))
	}
}

func (m *Manager) refreshAddress(ctx context.Context, st *spaceState, tok *sessionToken, address string) {
	if m.addressBal == nil {
		return
	}
	v, err := m.addressBal.NativeBalance(ctx, address)

	m.mu.Lock()
	current := st.token == tok && st.address == address
	if current {
		if err != nil {
			st.native = nil
			st.nativeFailed = true
		} else {
			st.native = &v
			st.nativeFailed = false
		}
	}
	m.mu.Unlock()

	if current && err != nil {
		m.logger.Warn("Solana balance fetch failed", "address", ShortAddress(address), "error", err)
	}
}

// NativeBalanceText renders the native balance of space with four decimals
func (m *Manager) NativeBalanceText(space Space) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.spaces[space]
	if !ok {
		return EmptyNativeBalance
	}
	return nativeTextLocked(st)
}

func nativeTextLocked(st *spaceState) string {
	if st.state != StateConnected {
		return EmptyNativeBalance
	}
	if st.native != nil {
		return st.native.StringFixed(balancePlaces)
	}
	if st.nativeFailed {
		return FailedBalance
	}
	return EmptyNativeBalance
}

// TokenBalance renders the balance shown next to symbol in the swap form.
// The current network's native token and SOL come from the native balances;
// tokens without a contract on the current network show "0.00".
func (m *Manager) TokenBalance(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	current := m.CurrentNetwork()

	if current.IsEVM() && symbol == current.NativeSymbol {
		return m.NativeBalanceText(SpaceAccount)
	}
	if sol, ok := m.registry.SolanaNetwork(); ok && symbol == sol.NativeSymbol {
		return m.NativeBalanceText(SpaceAddress)
	}
	if _, ok := current.Token(symbol); !ok {
		return EmptyTokenBalance
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.spaces[SpaceAccount]
	v, ok := st.tokens[symbol]
	if st.state != StateConnected || !ok {
		return EmptyTokenBalance
	}
	return v.StringFixed(balancePlaces)
}

// Session returns a snapshot of space
func (m *Manager) Session(space Space) (WalletSession, error) {
	if _, err := ParseSpace(string(space)); err != nil {
		return WalletSession{}, err
	}
	current := m.CurrentNetwork()

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.spaces[space]

	ws := WalletSession{
		Space:         space,
		State:         st.state,
		NativeBalance: nativeTextLocked(st),
	}
	if st.state != StateConnected {
		return ws, nil
	}

	address := st.address
	ws.Address = &address
	ws.Provider = st.provider.Name()

	switch space {
	case SpaceAccount:
		ws.ChainID = st.chainID
		ws.Network = current.Name
		ws.NativeSymbol = current.NativeSymbol
		if len(st.tokens) > 0 {
			ws.TokenBalances = make(map[string]string, len(st.tokens))
			for sym, v := range st.tokens {
				ws.TokenBalances[sym] = v.StringFixed(balancePlaces)
			}
		}
	case SpaceAddress:
		if sol, ok := m.registry.SolanaNetwork(); ok {
			ws.Network = sol.Name
			ws.NativeSymbol = sol.NativeSymbol
		}
	}
	return ws, nil
}

// ConnectedAddress returns the account-space address, else the address-space one
func (m *Manager) ConnectedAddress() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range Spaces {
		if st := m.spaces[s]; st.state == StateConnected {
			return st.address, true
		}
	}
	return "", false
}

// ConnectedBalance renders the native balance of the space ConnectedAddress uses
func (m *Manager) ConnectedBalance() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range Spaces {
		if st := m.spaces[s]; st.state == StateConnected {
			return nativeTextLocked(st)
		}
	}
	return EmptyNativeBalance
}

// IsConnected reports whether either space is connected
func (m *Manager) IsConnected() bool {
	_, ok := m.ConnectedAddress()
	return ok
}

// DisplayAddress is the shortened connected address, or ""
func (m *Manager) DisplayAddress() string {
	address, _ := m.ConnectedAddress()
	return ShortAddress(address)
}

// ShortAddress keeps the first six and last four characters
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
