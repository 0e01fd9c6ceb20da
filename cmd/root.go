package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nolimit-swap",
	Short: "Cross-chain swap quotes and wallet sessions",
	Long: `nolimit-swap keeps USD reference prices fresh, quotes conversions between
assets on EVM chains and Solana, and manages key-backed wallet sessions.
It serves everything over a small JSON API.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
