package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/matrixise/nolimit-swap/internal/networks"
	"github.com/matrixise/nolimit-swap/internal/solana"
	"github.com/shopspring/decimal"
)

const (
	balanceTimeout = 15 * time.Second
	maxNotices     = 50
)

// sessionToken identifies one established connection. Provider events and
// balance results carrying a stale token are dropped.
type sessionToken struct {
	id uint64
}

type spaceState struct {
	state       State
	busy        bool
	address     string
	provider    Provider
	unsubscribe func()
	token       *sessionToken

	chainID      uint64
	native       *decimal.Decimal
	nativeFailed bool
	tokens       map[string]decimal.Decimal
}

func (st *spaceState) clearBalances() {
	st.native = nil
	st.nativeFailed = false
	st.tokens = make(map[string]decimal.Decimal)
}

// Options configures a Manager
type Options struct {
	AppName         string
	AccountBalances AccountBalances
	AddressBalances AddressBalances
	Verifier        Verifier
	Logger          *slog.Logger
	Now             func() time.Time
}

// Manager owns the wallet sessions of both address spaces. It is safe for
// concurrent use; its mutex is never held while calling a provider.
type Manager struct {
	registry   *networks.Registry
	accountBal AccountBalances
	addressBal AddressBalances
	verify     Verifier
	appName    string
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	spaces    map[Space]*spaceState
	selected  string
	notices   []Notice
	observers map[uint64]func(Transition)
	nextID    uint64
	closed    bool
}

// NewManager creates a manager with both spaces disconnected
func NewManager(registry *networks.Registry, opts Options) *Manager {
	if opts.Verifier == nil {
		opts.Verifier = solana.VerifySignature
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		registry:   registry,
		accountBal: opts.AccountBalances,
		addressBal: opts.AddressBalances,
		verify:     opts.Verifier,
		appName:    opts.AppName,
		logger:     opts.Logger,
		now:        opts.Now,
		spaces:     make(map[Space]*spaceState, len(Spaces)),
		selected:   registry.Default().Name,
		observers:  make(map[uint64]func(Transition)),
	}
	for _, s := range Spaces {
		st := &spaceState{state: StateDisconnected}
		st.clearBalances()
		m.spaces[s] = st
	}
	return m
}

// OnTransition registers fn for every state change
func (m *Manager) OnTransition(fn func(Transition)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// Connect establishes a session in space through p. Only a disconnected
// space can be connected, and only one connect or disconnect per space may
// be outstanding. Address-space providers must sign an ownership challenge;
// account-space wallets reporting another chain than the selected network
// are asked to switch.
func (m *Manager) Connect(ctx context.Context, space Space, p Provider) error {
	if isNilProvider(p) {
		m.notify(space, LevelError, "No wallet detected. Make sure the wallet extension is installed and enabled, then try again.")
		return ErrProviderNotInstalled
	}
	if err := checkCapabilities(space, p); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	st := m.spaces[space]
	if st.busy {
		m.mu.Unlock()
		return ErrBusy
	}
	if st.state != StateDisconnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	st.busy = true
	trs := []Transition{m.moveLocked(space, st, StateConnecting, "")}
	m.mu.Unlock()
	m.emit(trs...)

	address, chainID, err := m.establish(ctx, space, p)
	if err != nil {
		m.mu.Lock()
		st.busy = false
		trs := []Transition{m.moveLocked(space, st, StateDisconnected, "")}
		m.mu.Unlock()
		m.emit(trs...)
		m.logger.Warn("Wallet connection failed", "space", space, "provider", p.Name(), "error", err)
		return err
	}

	// The token is committed before subscribing so events fired from
	// inside Subscribe are matched to this session.
	m.mu.Lock()
	m.nextID++
	tok := &sessionToken{id: m.nextID}
	st.token = tok
	st.provider = p
	st.address = address
	st.chainID = chainID
	st.clearBalances()
	m.mu.Unlock()

	unsubscribe := p.Subscribe(&listener{m: m, space: space, token: tok})

	m.mu.Lock()
	st.busy = false
	if m.closed || st.token != tok {
		closed := m.closed
		_, trs := m.resetLocked(space, st)
		m.mu.Unlock()
		unsubscribe()
		m.emit(trs...)
		if closed {
			return ErrManagerClosed
		}
		m.notify(space, LevelError, fmt.Sprintf("%s disconnected while connecting.", p.Name()))
		return fmt.Errorf("connect %s: %w", p.Name(), ErrNotConnected)
	}
	st.unsubscribe = unsubscribe
	address, chainID = st.address, st.chainID
	trs = []Transition{m.moveLocked(space, st, StateConnected, address)}
	m.mu.Unlock()
	m.emit(trs...)

	m.logger.Info("Wallet connected", "space", space, "provider", p.Name(), "address", ShortAddress(address), "chain_id", chainID)

	if space == SpaceAccount {
		if n, ok := m.registry.ByName(m.SelectedNetwork()); ok {
			// A refused switch is already noticed; the wallet's chain stays current
			_, _ = m.reconcileNetwork(ctx, n)
		}
	}

	m.RefreshBalances(ctx, space)
	return nil
}

// establish runs the provider side of a connect
func (m *Manager) establish(ctx context.Context, space Space, p Provider) (string, uint64, error) {
	if cc, ok := p.(ConnectionChecker); ok && cc.IsConnected() {
		// Force a fresh connection so the user approves it again
		if err := p.Disconnect(ctx); err != nil {
			m.logger.Debug("Dropping previous provider connection failed", "provider", p.Name(), "error", err)
		}
	}

	address, err := p.Connect(ctx)
	if err != nil {
		m.notify(space, LevelError, connectFailureText(space, p.Name(), err))
		return "", 0, fmt.Errorf("connect %s: %w", p.Name(), err)
	}
	if address == "" {
		m.notify(space, LevelError, fmt.Sprintf("Failed to connect to %s. No account returned.", p.Name()))
		return "", 0, fmt.Errorf("connect %s: %w", p.Name(), ErrNotConnected)
	}

	switch space {
	case SpaceAccount:
		chainID, err := p.(NetworkSwitcher).ChainID(ctx)
		if err != nil {
			m.logger.Warn("Could not read wallet chain id", "provider", p.Name(), "error", err)
			chainID = 0
		}
		return address, chainID, nil

	default:
		if err := m.verifyOwnership(ctx, p, address); err != nil {
			if derr := p.Disconnect(ctx); derr != nil {
				m.logger.Warn("Provider disconnect after failed verification failed", "provider", p.Name(), "error", derr)
			}
			return "", 0, err
		}
		return address, 0, nil
	}
}

func (m *Manager) verifyOwnership(ctx context.Context, p Provider, address string) error {
	message := []byte(solana.Challenge(address, m.appName, m.now()))

	signature, err := p.(Signer).SignMessage(ctx, message)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			m.notify(SpaceAddress, LevelError, "Signature rejected. You must sign the message to verify wallet ownership.")
		} else {
			m.notify(SpaceAddress, LevelError, "Failed to verify wallet ownership. Connection cancelled.")
		}
		return fmt.Errorf("%w: sign challenge: %w", ErrVerificationFailed, err)
	}

	if err := m.verify(address, message, signature); err != nil {
		m.notify(SpaceAddress, LevelError, "Signature verification failed. Connection cancelled.")
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	return nil
}

// Disconnect ends the session of space. When the provider fails to
// disconnect, the session stays connected.
func (m *Manager) Disconnect(ctx context.Context, space Space) error {
	m.mu.Lock()
	st, ok := m.spaces[space]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownSpace
	}
	if st.busy {
		m.mu.Unlock()
		return ErrBusy
	}
	if st.state != StateConnected {
		m.mu.Unlock()
		return nil
	}
	st.busy = true
	p, tok := st.provider, st.token
	m.mu.Unlock()

	err := p.Disconnect(ctx)

	m.mu.Lock()
	st.busy = false
	if err != nil {
		m.mu.Unlock()
		m.notify(space, LevelError, fmt.Sprintf("Failed to disconnect %s.", p.Name()))
		return fmt.Errorf("disconnect %s: %w", p.Name(), err)
	}
	if st.token != tok || st.state != StateConnected {
		// The provider's own disconnect event already ended the session
		m.mu.Unlock()
		return nil
	}
	unsubscribe, trs := m.resetLocked(space, st)
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.emit(trs...)
	m.logger.Info("Wallet disconnected", "space", space, "provider", p.Name())
	return nil
}

// DisconnectAll disconnects every connected space
func (m *Manager) DisconnectAll(ctx context.Context) error {
	var errs []error
	for _, s := range Spaces {
		if err := m.Disconnect(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// Close unregisters every provider listener and transition observer.
// Providers are not disconnected.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	var unsubscribes []func()
	for _, s := range Spaces {
		st := m.spaces[s]
		if st.unsubscribe != nil {
			unsubscribes = append(unsubscribes, st.unsubscribe)
		}
		st.unsubscribe = nil
		st.token = nil
	}
	m.observers = make(map[uint64]func(Transition))
	m.mu.Unlock()

	for _, u := range unsubscribes {
		u()
	}
}

// Notices returns the user-facing messages, oldest first
func (m *Manager) Notices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notice(nil), m.notices...)
}

// ClearNotices drops every notice
func (m *Manager) ClearNotices() {
	m.mu.Lock()
	m.notices = nil
	m.mu.Unlock()
}

// State returns the state of space
func (m *Manager) State(space Space) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.spaces[space]
	if !ok {
		return StateDisconnected
	}
	return st.state
}

func (m *Manager) notify(space Space, level Level, text string) {
	m.mu.Lock()
	m.notices = append(m.notices, Notice{Space: space, Level: level, Text: text, At: m.now().UTC()})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
	m.mu.Unlock()
}

// moveLocked changes st to state and returns the transition to emit
func (m *Manager) moveLocked(space Space, st *spaceState, to State, address string) Transition {
	tr := Transition{Space: space, From: st.state, To: to, Address: address}
	st.state = to
	return tr
}

// resetLocked returns st to Disconnected, handing back the listener to unregister
func (m *Manager) resetLocked(space Space, st *spaceState) (func(), []Transition) {
	unsubscribe := st.unsubscribe
	trs := []Transition{m.moveLocked(space, st, StateDisconnected, "")}
	st.provider = nil
	st.address = ""
	st.unsubscribe = nil
	st.token = nil
	st.chainID = 0
	st.clearBalances()
	return unsubscribe, trs
}

func (m *Manager) emit(trs ...Transition) {
	if len(trs) == 0 {
		return
	}
	m.mu.Lock()
	observers := make([]func(Transition), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	for _, tr := range trs {
		m.logger.Debug("Session transition", "space", tr.Space, "from", tr.From, "to", tr.To)
		for _, fn := range observers {
			fn(tr)
		}
	}
}

// dropSession handles a provider-initiated disconnect
func (m *Manager) dropSession(space Space, tok *sessionToken) {
	m.mu.Lock()
	st := m.spaces[space]
	if st.token != tok {
		m.mu.Unlock()
		return
	}
	if st.state == StateConnecting {
		// Connect notices the cleared token and rolls back
		st.token = nil
		m.mu.Unlock()
		return
	}
	if st.state != StateConnected {
		m.mu.Unlock()
		return
	}
	unsubscribe, trs := m.resetLocked(space, st)
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.emit(trs...)
	m.logger.Info("Wallet disconnected by provider", "space", space)
}

// switchAccount replaces the session address after the wallet switched accounts
func (m *Manager) switchAccount(space Space, tok *sessionToken, address string) {
	m.mu.Lock()
	st := m.spaces[space]
	if st.token != tok || st.address == address {
		m.mu.Unlock()
		return
	}
	if st.state == StateConnecting {
		st.address = address
		m.mu.Unlock()
		return
	}
	if st.state != StateConnected {
		m.mu.Unlock()
		return
	}
	trs := []Transition{
		m.moveLocked(space, st, StateDisconnected, ""),
		m.moveLocked(space, st, StateConnecting, ""),
		m.moveLocked(space, st, StateConnected, address),
	}
	st.address = address
	st.clearBalances()
	m.mu.Unlock()

	m.emit(trs...)
	m.logger.Info("Wallet account changed", "space", space, "address", ShortAddress(address))

	ctx, cancel := context.WithTimeout(context.Background(), balanceTimeout)
	defer cancel()
	m.RefreshBalances(ctx, space)
}

// chainChanged records the chain reported by an account-space wallet
func (m *Manager) chainChanged(space Space, tok *sessionToken, chainID uint64) {
	if space != SpaceAccount {
		return
	}
	m.mu.Lock()
	st := m.spaces[space]
	if st.token != tok || st.chainID == chainID {
		m.mu.Unlock()
		return
	}
	if st.state == StateConnecting {
		st.chainID = chainID
		m.mu.Unlock()
		return
	}
	if st.state != StateConnected {
		m.mu.Unlock()
		return
	}
	st.chainID = chainID
	st.clearBalances()
	m.mu.Unlock()

	m.logger.Info("Wallet chain changed", "chain_id", chainID, "network", m.registry.ResolveChainID(chainID).Name)

	ctx, cancel := context.WithTimeout(context.Background(), balanceTimeout)
	defer cancel()
	m.RefreshBalances(ctx, space)
}

type listener struct {
	m     *Manager
	space Space
	token *sessionToken
}

func (l *listener) AccountChanged(address string) {
	if address == "" {
		l.m.dropSession(l.space, l.token)
		return
	}
	l.m.switchAccount(l.space, l.token, address)
}

func (l *listener) Disconnected() {
	l.m.dropSession(l.space, l.token)
}

func (l *listener) ChainChanged(chainID uint64) {
	l.m.chainChanged(l.space, l.token, chainID)
}

func checkCapabilities(space Space, p Provider) error {
	switch space {
	case SpaceAccount:
		if _, ok := p.(NetworkSwitcher); !ok {
			return fmt.Errorf("%s: %w", p.Name(), ErrUnsupportedProvider)
		}
	case SpaceAddress:
		if _, ok := p.(Signer); !ok {
			return fmt.Errorf("%s: %w", p.Name(), ErrUnsupportedProvider)
		}
	default:
		return ErrUnknownSpace
	}
	return nil
}

func connectFailureText(space Space, name string, err error) string {
	switch {
	case errors.Is(err, ErrProviderNotInstalled):
		return fmt.Sprintf("%s wallet not detected. Make sure the extension is installed and enabled, then refresh and try again.", name)
	case errors.Is(err, ErrRejected) && space == SpaceAddress:
		return fmt.Sprintf("Connection cancelled. Please approve the connection in %s wallet.", name)
	case errors.Is(err, ErrRejected):
		return fmt.Sprintf("Failed to connect to %s. Please make sure the wallet is installed and try again.", name)
	default:
		return fmt.Sprintf("Failed to connect to %s. Error: %v", name, err)
	}
}

// isNilProvider catches typed nil pointers wrapped in the interface
func isNilProvider(p Provider) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
