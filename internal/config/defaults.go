package config

import "time"

const (
	DefaultAppName         = "NoLimit Swap"
	DefaultPriceFeedURL    = "https://api.coingecko.com/api/v3"
	DefaultRefreshInterval = 30 * time.Second
	DefaultSlippage        = "0.5"
	DefaultNetworkName     = "Ethereum"
	DefaultHTTPPort        = 8080
)

// Default returns the built-in configuration. Slices loaded from a config
// file replace these tables wholesale.
func Default() Config {
	return Config{
		AppName: DefaultAppName,
		PriceFeed: PriceFeedConfig{
			BaseURL:  DefaultPriceFeedURL,
			Interval: DefaultRefreshInterval.String(),
		},
		Assets: []AssetConfig{
			{Symbol: "ETH", Name: "Ethereum", FeedID: "ethereum"},
			{Symbol: "SOL", Name: "Solana", FeedID: "solana"},
			{Symbol: "BNB", Name: "BNB", FeedID: "binancecoin"},
			{Symbol: "AVAX", Name: "Avalanche", FeedID: "avalanche-2"},
			{Symbol: "USDT", Name: "Tether", FeedID: "tether"},
			{Symbol: "USDC", Name: "USD Coin", FeedID: "usd-coin"},
			{Symbol: "WBTC", Name: "Wrapped Bitcoin", FeedID: "wrapped-bitcoin"},
			{Symbol: "NL", Name: "NoLimit Token", PlaceholderUSD: "1.0"},
		},
		Networks: []NetworkConfig{
			{
				Name: "Ethereum", Kind: KindEVM, ChainID: 1, NativeSymbol: "ETH",
				RPCUrls: []string{"https://eth.llamarpc.com"},
				Tokens: []TokenConfig{
					{Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", FallbackDecimals: 6},
					{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", FallbackDecimals: 6},
					{Symbol: "WBTC", Address: "0x2260FAC5E5542a773Aa44fBCfEDf7C193bc2C599", FallbackDecimals: 8},
				},
			},
			{
				Name: "Arbitrum", Kind: KindEVM, ChainID: 42161, NativeSymbol: "ETH",
				RPCUrls: []string{"https://arb1.arbitrum.io/rpc"},
				Tokens: []TokenConfig{
					{Symbol: "USDT", Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", FallbackDecimals: 6},
					{Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", FallbackDecimals: 6},
					{Symbol: "WBTC", Address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f", FallbackDecimals: 8},
				},
			},
			{
				Name: "Optimism", Kind: KindEVM, ChainID: 10, NativeSymbol: "ETH",
				RPCUrls: []string{"https://mainnet.optimism.io"},
				Tokens: []TokenConfig{
					{Symbol: "USDT", Address: "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58", FallbackDecimals: 6},
					{Symbol: "USDC", Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", FallbackDecimals: 6},
					{Symbol: "WBTC", Address: "0x68f180fcCe6836688e9084f035309E29Bf0A2095", FallbackDecimals: 8},
				},
			},
			{
				Name: "Base", Kind: KindEVM, ChainID: 8453, NativeSymbol: "ETH",
				RPCUrls: []string{"https://mainnet.base.org"},
				Tokens: []TokenConfig{
					{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", FallbackDecimals: 6},
				},
			},
			{
				Name: "BSC", Kind: KindEVM, ChainID: 56, NativeSymbol: "BNB",
				RPCUrls: []string{"https://bsc-dataseed.binance.org"},
				Tokens: []TokenConfig{
					{Symbol: "USDT", Address: "0x55d398326f99059fF775485246999027B3197955", FallbackDecimals: 18},
					{Symbol: "USDC", Address: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", FallbackDecimals: 18},
					{Symbol: "WBTC", Address: "0x7130d2A12B9BCbFAe4f2634d864A1Ee1Ce3Ead9c", FallbackDecimals: 18},
				},
			},
			{
				Name: "Avalanche", Kind: KindEVM, ChainID: 43114, NativeSymbol: "AVAX",
				RPCUrls: []string{"https://api.avax.network/ext/bc/C/rpc"},
				Tokens: []TokenConfig{
					{Symbol: "USDT", Address: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", FallbackDecimals: 6},
					{Symbol: "USDC", Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", FallbackDecimals: 6},
					{Symbol: "WBTC", Address: "0x50b7545627a5162F82A992c33b87aDc75187B218", FallbackDecimals: 8},
				},
			},
			{
				Name: "Solana", Kind: KindSolana, NativeSymbol: "SOL",
				RPCUrls: []string{"https://api.mainnet-beta.solana.com", "https://rpc.ankr.com/solana"},
			},
		},
		DefaultNetwork:  DefaultNetworkName,
		DefaultSlippage: DefaultSlippage,
		Solana:          SolanaConfig{Commitment: "finalized"},
		LogLevel:        "info",
		HTTPPort:        DefaultHTTPPort,
		Timezone:        "UTC",
	}
}
