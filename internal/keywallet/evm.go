package keywallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/matrixise/nolimit-swap/internal/session"
)

// EVM is an account-space wallet holding one secp256k1 key
type EVM struct {
	hub

	mu        sync.Mutex
	key       *ecdsa.PrivateKey
	address   common.Address
	chains    []uint64
	chainID   uint64
	connected bool
}

// NewEVM creates a wallet for hexKey that can switch between chains. The
// wallet starts on the first chain.
func NewEVM(hexKey string, chains []uint64) (*EVM, error) {
	key, address, err := parseEVMKey(hexKey)
	if err != nil {
		return nil, err
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("%w: no chains configured", ErrUnknownChain)
	}
	return &EVM{
		key:     key,
		address: address,
		chains:  slices.Clone(chains),
		chainID: chains[0],
	}, nil
}

func parseEVMKey(hexKey string) (*ecdsa.PrivateKey, common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func (w *EVM) Name() string { return "Key wallet (EVM)" }

// Address returns the checksummed address of the current key
func (w *EVM) Address() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address.Hex()
}

func (w *EVM) Connect(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = true
	return w.address.Hex(), nil
}

func (w *EVM) Disconnect(context.Context) error {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
	return nil
}

func (w *EVM) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *EVM) ChainID(context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return 0, session.ErrNotConnected
	}
	return w.chainID, nil
}

// SwitchNetwork moves the wallet to chainID and announces the change
func (w *EVM) SwitchNetwork(_ context.Context, chainID uint64) error {
	w.mu.Lock()
	if !w.connected {
		w.mu.Unlock()
		return session.ErrNotConnected
	}
	if !slices.Contains(w.chains, chainID) {
		w.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	changed := w.chainID != chainID
	w.chainID = chainID
	w.mu.Unlock()

	if changed {
		w.broadcast(func(l session.Listener) { l.ChainChanged(chainID) })
	}
	return nil
}

// SwitchAccount replaces the key and announces the new address
func (w *EVM) SwitchAccount(hexKey string) error {
	key, address, err := parseEVMKey(hexKey)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.key = key
	w.address = address
	connected := w.connected
	w.mu.Unlock()

	if connected {
		w.broadcast(func(l session.Listener) { l.AccountChanged(address.Hex()) })
	}
	return nil
}

// Lock drops the connection as if the user locked the wallet
func (w *EVM) Lock() {
	w.mu.Lock()
	connected := w.connected
	w.connected = false
	w.mu.Unlock()

	if connected {
		w.broadcast(func(l session.Listener) { l.AccountChanged("") })
	}
}
