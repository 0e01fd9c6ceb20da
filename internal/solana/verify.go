package solana

import (
	"errors"
	"fmt"
	"time"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	ErrNotOnCurve       = errors.New("address is not a valid ed25519 public key")
	ErrInvalidSignature = errors.New("signature does not match address")
)

// challengeTimeFormat renders timestamps with millisecond precision in UTC
const challengeTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Challenge builds the message a wallet signs to prove it owns address
func Challenge(address, appName string, at time.Time) string {
	return fmt.Sprintf("Sign this message to verify you own this wallet.\n\nWallet: %s\nTimestamp: %s\nApp: %s",
		address, at.UTC().Format(challengeTimeFormat), appName)
}

// ParsePublicKey decodes a base58 address and checks that it is a point on
// the ed25519 curve. Program-derived addresses are rejected.
func ParsePublicKey(address string) (solana.PublicKey, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if _, err := new(edwards25519.Point).SetBytes(pubkey[:]); err != nil {
		return solana.PublicKey{}, ErrNotOnCurve
	}
	return pubkey, nil
}

// VerifySignature checks a detached ed25519 signature of message by address
func VerifySignature(address string, message, signature []byte) error {
	pubkey, err := ParsePublicKey(address)
	if err != nil {
		return err
	}
	if len(signature) != len(solana.Signature{}) {
		return fmt.Errorf("%w: signature must be %d bytes, got %d", ErrInvalidSignature, len(solana.Signature{}), len(signature))
	}
	var sig solana.Signature
	copy(sig[:], signature)
	if !sig.Verify(pubkey, message) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyBase58Signature is VerifySignature with a base58-encoded signature
func VerifyBase58Signature(address string, message []byte, signature string) error {
	raw, err := base58.Decode(signature)
	if err != nil {
		return fmt.Errorf("%w: decode signature: %v", ErrInvalidSignature, err)
	}
	return VerifySignature(address, message, raw)
}

// EncodeSignature renders a signature the way wallets display it
func EncodeSignature(signature []byte) string {
	return base58.Encode(signature)
}
