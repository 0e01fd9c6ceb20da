package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without running the application.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	slog.Info("✓ Configuration valid",
		"app_name", cfg.AppName,
		"assets", len(cfg.Assets),
		"networks", len(cfg.Networks),
		"default_network", cfg.DefaultNetwork,
		"refresh_interval", cfg.RefreshInterval(),
		"log_level", cfg.LogLevel,
		"evm_key_set", cfg.Wallets.EVMPrivateKey != "",
		"solana_key_set", cfg.Wallets.SolanaPrivateKey != "",
		"database_url_set", cfg.DatabaseURL != "",
	)

	return nil
}
