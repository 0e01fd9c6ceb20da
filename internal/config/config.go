package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Network kinds
const (
	KindEVM    = "evm"
	KindSolana = "solana"
)

// Config represents the application configuration
type Config struct {
	AppName         string          `mapstructure:"app_name" validate:"required,max=64"`
	PriceFeed       PriceFeedConfig `mapstructure:"price_feed"`
	Assets          []AssetConfig   `mapstructure:"assets" validate:"required,min=1,dive"`
	Networks        []NetworkConfig `mapstructure:"networks" validate:"required,min=1,dive"`
	DefaultNetwork  string          `mapstructure:"default_network" validate:"required"`
	DefaultSlippage string          `mapstructure:"default_slippage" validate:"omitempty,decimal"`
	Solana          SolanaConfig    `mapstructure:"solana"`
	Wallets         WalletsConfig   `mapstructure:"wallets"`
	LogLevel        string          `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort        int             `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
	Timezone        string          `mapstructure:"timezone" validate:"omitempty,timezone"`
	DatabaseURL     string          `mapstructure:"database_url"`
}

// PriceFeedConfig configures the reference price source
type PriceFeedConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	Interval       string `mapstructure:"interval" validate:"required,duration"`
	Timeout        string `mapstructure:"timeout" validate:"omitempty,duration"`
	AlignToClock   bool   `mapstructure:"align_to_clock"`
	RunImmediately *bool  `mapstructure:"run_immediately"`
}

// AssetConfig represents one quotable asset
type AssetConfig struct {
	Symbol         string `mapstructure:"symbol" validate:"required,min=1,max=16"`
	Name           string `mapstructure:"name" validate:"omitempty,max=100"`
	FeedID         string `mapstructure:"feed_id" validate:"required_without=PlaceholderUSD"`
	PlaceholderUSD string `mapstructure:"placeholder_usd" validate:"omitempty,decimal"`
}

// NetworkConfig represents one selectable network
type NetworkConfig struct {
	Name         string        `mapstructure:"name" validate:"required,min=1,max=64"`
	Kind         string        `mapstructure:"kind" validate:"required,oneof=evm solana"`
	ChainID      uint64        `mapstructure:"chain_id" validate:"required_if=Kind evm"`
	NativeSymbol string        `mapstructure:"native_symbol" validate:"required,min=1,max=16"`
	RPCUrls      []string      `mapstructure:"rpc_urls" validate:"omitempty,dive,url"`
	Tokens       []TokenConfig `mapstructure:"tokens" validate:"omitempty,dive"`
}

// TokenConfig represents a token contract deployed on a network
type TokenConfig struct {
	Symbol           string `mapstructure:"symbol" validate:"required,min=1,max=16"`
	Address          string `mapstructure:"address" validate:"required,eth_addr"`
	FallbackDecimals uint8  `mapstructure:"fallback_decimals"`
}

// SolanaConfig holds Solana RPC settings
type SolanaConfig struct {
	Commitment string `mapstructure:"commitment" validate:"omitempty,oneof=processed confirmed finalized"`
}

// WalletsConfig holds the keys used by the key-backed wallet providers
type WalletsConfig struct {
	EVMPrivateKey    string `mapstructure:"evm_private_key" validate:"omitempty,evm_key"`
	SolanaPrivateKey string `mapstructure:"solana_private_key" validate:"omitempty,solana_key"`
}

// Normalize trims and upper-cases symbols and checks cross-field consistency
func (c *Config) Normalize() error {
	seenAssets := make(map[string]bool, len(c.Assets))
	for i := range c.Assets {
		sym := strings.ToUpper(strings.TrimSpace(c.Assets[i].Symbol))
		if seenAssets[sym] {
			return fmt.Errorf("duplicate asset symbol %q", sym)
		}
		seenAssets[sym] = true
		c.Assets[i].Symbol = sym
		c.Assets[i].FeedID = strings.TrimSpace(c.Assets[i].FeedID)
	}

	seenNetworks := make(map[string]bool, len(c.Networks))
	seenChains := make(map[uint64]string, len(c.Networks))
	for i := range c.Networks {
		n := &c.Networks[i]
		n.Name = strings.TrimSpace(n.Name)
		n.Kind = strings.ToLower(strings.TrimSpace(n.Kind))
		n.NativeSymbol = strings.ToUpper(strings.TrimSpace(n.NativeSymbol))

		key := strings.ToLower(n.Name)
		if seenNetworks[key] {
			return fmt.Errorf("duplicate network %q", n.Name)
		}
		seenNetworks[key] = true

		if n.Kind == KindEVM {
			if other, ok := seenChains[n.ChainID]; ok {
				return fmt.Errorf("chain id %d used by both %q and %q", n.ChainID, other, n.Name)
			}
			seenChains[n.ChainID] = n.Name
		}

		for j := range n.Tokens {
			n.Tokens[j].Symbol = strings.ToUpper(strings.TrimSpace(n.Tokens[j].Symbol))
		}
	}

	if !seenNetworks[strings.ToLower(strings.TrimSpace(c.DefaultNetwork))] {
		return fmt.Errorf("default network %q is not configured", c.DefaultNetwork)
	}

	return nil
}

// GetTimezone returns the configured timezone, UTC when unset or invalid
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldRunImmediately reports whether the first price refresh runs at startup
func (c *Config) ShouldRunImmediately() bool {
	if c.PriceFeed.RunImmediately == nil {
		return true
	}
	return *c.PriceFeed.RunImmediately
}

// RefreshInterval returns the parsed price feed interval
func (c *Config) RefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.PriceFeed.Interval)
	if err != nil || d <= 0 {
		return DefaultRefreshInterval
	}
	return d
}

// FeedTimeout returns the parsed price feed HTTP timeout, zero meaning none
func (c *Config) FeedTimeout() time.Duration {
	d, err := time.ParseDuration(c.PriceFeed.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ethAddressValidator validates Ethereum addresses
func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// durationValidator validates duration strings
func durationValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d >= 0
}

// decimalValidator validates non-negative decimal strings
func decimalValidator(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	return err == nil && !d.IsNegative()
}

func evmKeyValidator(fl validator.FieldLevel) bool {
	_, err := crypto.HexToECDSA(strings.TrimPrefix(fl.Field().String(), "0x"))
	return err == nil
}

func solanaKeyValidator(fl validator.FieldLevel) bool {
	key, err := solana.PrivateKeyFromBase58(fl.Field().String())
	return err == nil && len(key) == 64
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("eth_addr", ethAddressValidator)
	validate.RegisterValidation("duration", durationValidator)
	validate.RegisterValidation("decimal", decimalValidator)
	validate.RegisterValidation("evm_key", evmKeyValidator)
	validate.RegisterValidation("solana_key", solanaKeyValidator)
	return validate
}
