package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignatureCommand(t *testing.T) {
	wallet := solana.NewWallet()
	message := "Sign this message to verify you own this wallet."
	sig, err := wallet.PrivateKey.Sign([]byte(message))
	require.NoError(t, err)
	address := wallet.PublicKey().String()

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		output  string
	}{
		{"valid", []string{address, sig.String(), "--message", message}, false, "Signature valid"},
		{"other message", []string{address, sig.String(), "--message", message + "!"}, true, "Signature invalid"},
		{"other signer", []string{solana.NewWallet().PublicKey().String(), sig.String(), "--message", message}, true, "Signature invalid"},
		{"garbage signature", []string{address, "0OIl", "--message", message}, true, "Signature invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs(append([]string{"verify-signature"}, tt.args...))
			t.Cleanup(func() {
				rootCmd.SetOut(nil)
				rootCmd.SetArgs(nil)
				verifyMessage, verifyMessageFile = "", ""
			})

			err := Execute()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.output)
		})
	}
}

func TestReadMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msg.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	b, err := readMessage(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	b, err = readMessage(strings.NewReader("from stdin"), "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(b))

	_, err = readMessage(nil, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "not found")
}
