// Package keywallet provides wallet providers backed by local private keys.
// They stand in for browser extension wallets on the CLI and the HTTP API.
package keywallet

import (
	"errors"
	"sync"

	"github.com/matrixise/nolimit-swap/internal/session"
)

var (
	ErrInvalidKey   = errors.New("invalid private key")
	ErrUnknownChain = errors.New("chain not supported by this wallet")
)

// hub fans provider events out to the subscribed listeners. Listeners are
// called without the hub lock held so they may unsubscribe.
type hub struct {
	mu        sync.Mutex
	next      uint64
	listeners map[uint64]session.Listener
}

func (h *hub) Subscribe(l session.Listener) func() {
	h.mu.Lock()
	if h.listeners == nil {
		h.listeners = make(map[uint64]session.Listener)
	}
	id := h.next
	h.next++
	h.listeners[id] = l
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) broadcast(fn func(session.Listener)) {
	h.mu.Lock()
	targets := make([]session.Listener, 0, len(h.listeners))
	for _, l := range h.listeners {
		targets = append(targets, l)
	}
	h.mu.Unlock()

	for _, l := range targets {
		fn(l)
	}
}

// Subscribers returns the number of registered listeners
func (h *hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
