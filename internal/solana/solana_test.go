package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallenge(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("CET", 3600))
	got := Challenge("Abc123", "NoLimit Swap", at)

	assert.Equal(t, "Sign this message to verify you own this wallet.\n\nWallet: Abc123\nTimestamp: 2025-03-04T04:06:07.890Z\nApp: NoLimit Swap", got)
}

func TestVerifySignature(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	address := key.PublicKey().String()
	msg := []byte(Challenge(address, "NoLimit Swap", time.Now()))

	sig, err := key.Sign(msg)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, VerifySignature(address, msg, sig[:]))
		assert.NoError(t, VerifyBase58Signature(address, msg, EncodeSignature(sig[:])))
	})

	t.Run("tampered message", func(t *testing.T) {
		err := VerifySignature(address, append([]byte("x"), msg...), sig[:])
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("other signer", func(t *testing.T) {
		other := solana.NewWallet().PrivateKey.PublicKey().String()
		assert.ErrorIs(t, VerifySignature(other, msg, sig[:]), ErrInvalidSignature)
	})

	t.Run("short signature", func(t *testing.T) {
		assert.ErrorIs(t, VerifySignature(address, msg, sig[:10]), ErrInvalidSignature)
	})

	t.Run("bad base58", func(t *testing.T) {
		assert.ErrorIs(t, VerifyBase58Signature(address, msg, "0OIl"), ErrInvalidSignature)
	})

	t.Run("invalid address", func(t *testing.T) {
		assert.ErrorIs(t, VerifySignature("not base58!", msg, sig[:]), ErrInvalidAddress)
	})
}

func TestParsePublicKey(t *testing.T) {
	key := solana.NewWallet().PrivateKey.PublicKey()

	got, err := ParsePublicKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = ParsePublicKey("0x1111111111111111111111111111111111111111")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestLamportsToSOL(t *testing.T) {
	assert.Equal(t, "1.5", LamportsToSOL(1_500_000_000).String())
	assert.Equal(t, "0.000000001", LamportsToSOL(1).String())
	assert.Equal(t, "0", LamportsToSOL(0).String())
	assert.Equal(t, "1", LamportsToSOL(LamportsPerSOL).String())
}

// rpcServer answers getBalance with lamports, or HTTP 500 when lamports < 0
func rpcServer(t *testing.T, lamports int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lamports < 0 {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method != "getBalance" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]any{
				"context": map[string]any{"slot": 1},
				"value":   lamports,
			},
		})
	}))
}

func TestBalanceReaderFallback(t *testing.T) {
	down := rpcServer(t, -1)
	defer down.Close()
	up := rpcServer(t, 2_250_000_000)
	defer up.Close()

	reader, err := NewBalanceReader([]string{down.URL, up.URL}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{down.URL, up.URL}, reader.Endpoints())

	address := solana.NewWallet().PublicKey().String()
	bal, err := reader.NativeBalance(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, "2.25", bal.String())
}

func TestBalanceReaderErrors(t *testing.T) {
	_, err := NewBalanceReader(nil, "finalized")
	assert.ErrorIs(t, err, ErrNoEndpoints)

	down := rpcServer(t, -1)
	defer down.Close()

	reader, err := NewBalanceReader([]string{down.URL}, "confirmed")
	require.NoError(t, err)

	_, err = reader.NativeBalance(context.Background(), "bad address")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = reader.NativeBalance(context.Background(), solana.NewWallet().PublicKey().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 endpoints")
}
