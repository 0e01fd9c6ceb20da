package keywallet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/matrixise/nolimit-swap/internal/session"
)

// Solana is an address-space wallet holding one ed25519 key
type Solana struct {
	hub

	mu        sync.Mutex
	key       solana.PrivateKey
	connected bool
}

// NewSolana creates a wallet from a base58-encoded 64-byte secret key
func NewSolana(base58Key string) (*Solana, error) {
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(base58Key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != 64 {
		return nil, fmt.Errorf("%w: expected 64 bytes, got %d", ErrInvalidKey, len(key))
	}
	return &Solana{key: key}, nil
}

func (w *Solana) Name() string { return "Key wallet (Solana)" }

// Address returns the base58 public key
func (w *Solana) Address() string {
	return w.key.PublicKey().String()
}

func (w *Solana) Connect(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = true
	return w.key.PublicKey().String(), nil
}

func (w *Solana) Disconnect(context.Context) error {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
	return nil
}

func (w *Solana) IsConnected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// SignMessage returns the detached ed25519 signature of message
func (w *Solana) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return nil, session.ErrNotConnected
	}
	sig, err := w.key.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	return sig[:], nil
}

// Lock drops the connection and announces it
func (w *Solana) Lock() {
	w.mu.Lock()
	connected := w.connected
	w.connected = false
	w.mu.Unlock()

	if connected {
		w.broadcast(func(l session.Listener) { l.Disconnected() })
	}
}
