package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Normalize())
	require.NoError(t, NewValidator().Struct(&cfg))

	assert.Len(t, cfg.Assets, 8)
	assert.Len(t, cfg.Networks, 7)
	assert.Equal(t, "Ethereum", cfg.DefaultNetwork)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval())
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
		check     func(*testing.T, *Config)
	}{
		{
			name: "symbols upper-cased and trimmed",
			mutate: func(c *Config) {
				c.Assets[0].Symbol = " eth "
				c.Networks[0].NativeSymbol = "eth"
				c.Networks[0].Tokens[0].Symbol = "usdt"
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "ETH", c.Assets[0].Symbol)
				assert.Equal(t, "ETH", c.Networks[0].NativeSymbol)
				assert.Equal(t, "USDT", c.Networks[0].Tokens[0].Symbol)
			},
		},
		{
			name: "network kind lower-cased",
			mutate: func(c *Config) {
				c.Networks[0].Kind = "EVM"
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, KindEVM, c.Networks[0].Kind)
			},
		},
		{
			name: "duplicate asset symbol rejected",
			mutate: func(c *Config) {
				c.Assets[1].Symbol = "eth"
			},
			wantError: true,
		},
		{
			name: "duplicate network name rejected",
			mutate: func(c *Config) {
				c.Networks[1].Name = "ethereum"
			},
			wantError: true,
		},
		{
			name: "duplicate chain id rejected",
			mutate: func(c *Config) {
				c.Networks[1].ChainID = 1
			},
			wantError: true,
		},
		{
			name: "unknown default network rejected",
			mutate: func(c *Config) {
				c.DefaultNetwork = "Fantom"
			},
			wantError: true,
		},
		{
			name: "default network matched case-insensitively",
			mutate: func(c *Config) {
				c.DefaultNetwork = "arbitrum"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Normalize()
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, &cfg)
			}
		})
	}
}

func TestConfigGetTimezone(t *testing.T) {
	tests := []struct {
		name string
		tz   string
		want string
	}{
		{"empty defaults to UTC", "", "UTC"},
		{"valid timezone", "Europe/Brussels", "Europe/Brussels"},
		{"invalid falls back to UTC", "Mars/Olympus", "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Timezone: tt.tz}
			assert.Equal(t, tt.want, cfg.GetTimezone().String())
		})
	}
}

func TestConfigShouldRunImmediately(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name    string
		value   *bool
		wantRun bool
	}{
		{"nil defaults to true", nil, true},
		{"explicit true", &yes, true},
		{"explicit false", &no, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{PriceFeed: PriceFeedConfig{RunImmediately: tt.value}}
			assert.Equal(t, tt.wantRun, cfg.ShouldRunImmediately())
		})
	}
}

func TestConfigDurations(t *testing.T) {
	t.Run("refresh interval parsed", func(t *testing.T) {
		cfg := &Config{PriceFeed: PriceFeedConfig{Interval: "45s"}}
		assert.Equal(t, 45*time.Second, cfg.RefreshInterval())
	})

	t.Run("invalid refresh interval falls back to default", func(t *testing.T) {
		cfg := &Config{PriceFeed: PriceFeedConfig{Interval: "soon"}}
		assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval())
	})

	t.Run("zero refresh interval falls back to default", func(t *testing.T) {
		cfg := &Config{PriceFeed: PriceFeedConfig{Interval: "0s"}}
		assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval())
	})

	t.Run("empty timeout means none", func(t *testing.T) {
		cfg := &Config{}
		assert.Zero(t, cfg.FeedTimeout())
	})

	t.Run("timeout parsed", func(t *testing.T) {
		cfg := &Config{PriceFeed: PriceFeedConfig{Timeout: "10s"}}
		assert.Equal(t, 10*time.Second, cfg.FeedTimeout())
	})
}

func TestConfigHTTPPortValidation(t *testing.T) {
	tests := []struct {
		name      string
		port      int
		wantError bool
	}{
		{"unset port", 0, false},
		{"valid port 8080", 8080, false},
		{"minimum port 1024", 1024, false},
		{"maximum port 65535", 65535, false},
		{"privileged port", 80, true},
		{"port too high", 70000, true},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.HTTPPort = tt.port
			err := v.Struct(&cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigLogLevelValidation(t *testing.T) {
	tests := []struct {
		level     string
		wantError bool
	}{
		{"", false},
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"trace", true},
		{"INFO", true},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			cfg := Default()
			cfg.LogLevel = tt.level
			err := v.Struct(&cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
