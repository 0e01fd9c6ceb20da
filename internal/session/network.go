package session

import (
	"context"
	"fmt"

	"github.com/matrixise/nolimit-swap/internal/networks"
)

// SelectNetwork records name as the user's chosen network. With a connected
// account-space wallet on another chain, the wallet is asked to switch and
// the chain it reports afterwards becomes current. A refused switch leaves
// the wallet's chain in place and returns the error.
func (m *Manager) SelectNetwork(ctx context.Context, name string) error {
	n, ok := m.registry.ByName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}

	m.mu.Lock()
	m.selected = n.Name
	m.mu.Unlock()

	changed, err := m.reconcileNetwork(ctx, n)
	if changed {
		m.RefreshBalances(ctx, SpaceAccount)
	}
	return err
}

// reconcileNetwork asks a connected account-space wallet to move to n when
// it reports another chain, then adopts whatever chain the wallet reports.
// changed is true when the session's chain was updated here, in which case
// the caller refreshes balances.
func (m *Manager) reconcileNetwork(ctx context.Context, n networks.Network) (changed bool, err error) {
	m.mu.Lock()
	st := m.spaces[SpaceAccount]
	connected := st.state == StateConnected && !st.busy
	p, reported, tok := st.provider, st.chainID, st.token
	m.mu.Unlock()

	if !connected || !n.IsEVM() || n.ChainID == reported {
		return false, nil
	}

	sw := p.(NetworkSwitcher)
	var switchErr error
	if err := sw.SwitchNetwork(ctx, n.ChainID); err != nil {
		switchErr = fmt.Errorf("switch to %s: %w", n.Name, err)
		m.notify(SpaceAccount, LevelError, fmt.Sprintf("Failed to switch to %s", n.Name))
		m.logger.Warn("Network switch failed", "network", n.Name, "chain_id", n.ChainID, "error", err)
	}

	chainID, err := sw.ChainID(ctx)
	if err != nil {
		m.logger.Warn("Could not read wallet chain id after switch", "error", err)
		return false, switchErr
	}

	m.mu.Lock()
	if st.token == tok && st.state == StateConnected && st.chainID != chainID {
		st.chainID = chainID
		st.clearBalances()
		changed = true
	}
	m.mu.Unlock()

	return changed, switchErr
}

// SelectedNetwork returns the last network chosen by the user
func (m *Manager) SelectedNetwork() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// CurrentNetwork returns the network balances and native tokens refer to:
// the chain reported by the connected account-space wallet, or the default
// network.
func (m *Manager) CurrentNetwork() networks.Network {
	m.mu.Lock()
	st := m.spaces[SpaceAccount]
	connected := st.state == StateConnected
	chainID := st.chainID
	m.mu.Unlock()

	if !connected {
		return m.registry.Default()
	}
	return m.registry.ResolveChainID(chainID)
}
