package config

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestEthAddressValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		address   string
		wantError bool
	}{
		{"valid address with 0x prefix", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", false},
		{"valid address all lowercase", "0x742d35cc6634c0532925a3b844bc9e7595f0beb0", false},
		{"zero address is valid", "0x0000000000000000000000000000000000000000", false},
		{"valid address without 0x prefix", "742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", false},
		{"too short", "0x742d35Cc", true},
		{"too long", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb123", true},
		{"invalid hex character", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEg0", true},
		{"empty string", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := TokenConfig{Symbol: "TEST", Address: tt.address, FallbackDecimals: 18}
			err := v.Struct(tok)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDurationValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		interval  string
		wantError bool
	}{
		{"30s", false},
		{"1m", false},
		{"1h30m", false},
		{"45s", false},
		{"", true},
		{"-5s", true},
		{"thirty seconds", true},
	}

	for _, tt := range tests {
		t.Run("interval "+tt.interval, func(t *testing.T) {
			feed := PriceFeedConfig{BaseURL: "https://prices.example.com", Interval: tt.interval}
			err := v.Struct(feed)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecimalValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		value     string
		wantError bool
	}{
		{"1.0", false},
		{"0", false},
		{"3000.123456", false},
		{"-1", true},
		{"one", true},
	}

	for _, tt := range tests {
		t.Run("placeholder "+tt.value, func(t *testing.T) {
			asset := AssetConfig{Symbol: "NL", PlaceholderUSD: tt.value}
			err := v.Struct(asset)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssetFeedRequirement(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(AssetConfig{Symbol: "ETH", FeedID: "ethereum"}))
	assert.NoError(t, v.Struct(AssetConfig{Symbol: "NL", PlaceholderUSD: "1"}))
	assert.Error(t, v.Struct(AssetConfig{Symbol: "XYZ"}), "asset needs a feed id or a placeholder price")
}

func TestNetworkChainIDRequirement(t *testing.T) {
	v := NewValidator()

	assert.Error(t, v.Struct(NetworkConfig{Name: "Broken", Kind: KindEVM, NativeSymbol: "ETH"}))
	assert.NoError(t, v.Struct(NetworkConfig{Name: "Solana", Kind: KindSolana, NativeSymbol: "SOL"}))
	assert.Error(t, v.Struct(NetworkConfig{Name: "Cosmos", Kind: "tendermint", NativeSymbol: "ATOM"}))
}

func TestWalletKeyValidators(t *testing.T) {
	v := NewValidator()
	solKey := solana.NewWallet().PrivateKey.String()

	tests := []struct {
		name      string
		wallets   WalletsConfig
		wantError bool
	}{
		{"no keys", WalletsConfig{}, false},
		{"valid evm key", WalletsConfig{EVMPrivateKey: "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"}, false},
		{"valid evm key without prefix", WalletsConfig{EVMPrivateKey: "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"}, false},
		{"invalid evm key", WalletsConfig{EVMPrivateKey: "0x1234"}, true},
		{"valid solana key", WalletsConfig{SolanaPrivateKey: solKey}, false},
		{"invalid solana key", WalletsConfig{SolanaPrivateKey: "0OIl"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.wallets)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
