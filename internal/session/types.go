// Package session tracks wallet connections in two independent address
// spaces: account-model chains (EVM) and the single-address chain (Solana).
package session

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Space identifies an address space
type Space string

const (
	SpaceAccount Space = "account"
	SpaceAddress Space = "address"
)

// Spaces lists both spaces in display priority order
var Spaces = []Space{SpaceAccount, SpaceAddress}

// ParseSpace accepts the space names plus the chain family aliases
func ParseSpace(s string) (Space, error) {
	switch s {
	case string(SpaceAccount), "evm":
		return SpaceAccount, nil
	case string(SpaceAddress), "solana":
		return SpaceAddress, nil
	}
	return "", ErrUnknownSpace
}

// State of a space's session
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

var (
	ErrBusy                 = errors.New("a connect or disconnect is already in progress")
	ErrAlreadyConnected     = errors.New("wallet already connected")
	ErrNotConnected         = errors.New("wallet not connected")
	ErrRejected             = errors.New("request rejected by user")
	ErrProviderNotInstalled = errors.New("wallet provider not installed")
	ErrVerificationFailed   = errors.New("wallet ownership verification failed")
	ErrUnsupportedProvider  = errors.New("provider does not support this address space")
	ErrUnknownSpace         = errors.New("unknown address space")
	ErrUnknownNetwork       = errors.New("unknown network")
	ErrManagerClosed        = errors.New("session manager closed")
)

// Listener receives provider events
type Listener interface {
	// AccountChanged reports the wallet's active address; "" means none
	AccountChanged(address string)
	Disconnected()
	ChainChanged(chainID uint64)
}

// Provider is a wallet that can be connected
type Provider interface {
	Name() string
	Connect(ctx context.Context) (address string, err error)
	Disconnect(ctx context.Context) error
	Subscribe(l Listener) (unsubscribe func())
}

// NetworkSwitcher is implemented by account-space providers
type NetworkSwitcher interface {
	ChainID(ctx context.Context) (uint64, error)
	SwitchNetwork(ctx context.Context, chainID uint64) error
}

// Signer is implemented by address-space providers
type Signer interface {
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// ConnectionChecker is implemented by providers that may already hold a
// connection. Such a connection is dropped before connecting again.
type ConnectionChecker interface {
	IsConnected() bool
}

// AccountBalances reads balances in the account space
type AccountBalances interface {
	NativeBalance(ctx context.Context, chainID uint64, address string) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, chainID uint64, address, symbol string) (decimal.Decimal, error)
}

// AddressBalances reads balances in the address space
type AddressBalances interface {
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Verifier checks a detached signature of message by address
type Verifier func(address string, message, signature []byte) error

// Level of a notice
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a user-facing message produced by a caught failure
type Notice struct {
	Space Space     `json:"space"`
	Level Level     `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Transition is one state change of a space
type Transition struct {
	Space   Space  `json:"space"`
	From    State  `json:"from"`
	To      State  `json:"to"`
	Address string `json:"address,omitempty"`
}

// WalletSession is a read-only view of one space
type WalletSession struct {
	Space         Space             `json:"space"`
	State         State             `json:"state"`
	Address       *string           `json:"address"`
	Provider      string            `json:"provider,omitempty"`
	ChainID       uint64            `json:"chain_id,omitempty"`
	Network       string            `json:"network,omitempty"`
	NativeSymbol  string            `json:"native_symbol,omitempty"`
	NativeBalance string            `json:"native_balance"`
	TokenBalances map[string]string `json:"token_balances,omitempty"`
}

// ConnectedAddress returns the address when connected
func (s WalletSession) ConnectedAddress() (string, bool) {
	if s.Address == nil {
		return "", false
	}
	return *s.Address, true
}
