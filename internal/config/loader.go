package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables mapped onto config keys
const EnvPrefix = "NOLIMIT"

// Load reads configuration from defaults, file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	cfg := Default()

	// 1. Set defaults
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("http_port", cfg.HTTPPort)
	v.SetDefault("timezone", cfg.Timezone)
	v.SetDefault("default_network", cfg.DefaultNetwork)
	v.SetDefault("default_slippage", cfg.DefaultSlippage)
	v.SetDefault("price_feed.base_url", cfg.PriceFeed.BaseURL)
	v.SetDefault("price_feed.interval", cfg.PriceFeed.Interval)
	v.SetDefault("price_feed.timeout", "")
	v.SetDefault("price_feed.align_to_clock", false)
	v.SetDefault("solana.commitment", cfg.Solana.Commitment)
	v.SetDefault("wallets.evm_private_key", "")
	v.SetDefault("wallets.solana_private_key", "")
	v.SetDefault("database_url", "")

	// 2. Configure config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	// NOLIMIT_PRICE_FEED_INTERVAL -> price_feed.interval
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("log_level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("http_port", EnvPrefix+"_HTTP_PORT", "HTTP_PORT")
	v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("wallets.evm_private_key", EnvPrefix+"_EVM_PRIVATE_KEY", "EVM_PRIVATE_KEY")
	v.BindEnv("wallets.solana_private_key", EnvPrefix+"_SOLANA_PRIVATE_KEY", "SOLANA_PRIVATE_KEY")

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Tables present in the file replace the built-in ones instead of merging
	// into them element by element.
	if v.IsSet("assets") {
		cfg.Assets = nil
	}
	if v.IsSet("networks") {
		cfg.Networks = nil
	}

	// 5. Unmarshal into struct
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Normalize symbols and check cross-field rules
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	// 7. Validate with validator
	validate := NewValidator()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
