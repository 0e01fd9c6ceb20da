package cmd

import (
	"log/slog"

	"github.com/matrixise/nolimit-swap/internal/config"
	"github.com/matrixise/nolimit-swap/internal/logger"
	"github.com/spf13/cobra"
)

// loadConfig sets up logging and loads the configuration. The config file's
// log level applies unless --log-level was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return nil, err
	}

	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		logger.Setup(cfg.LogLevel)
	}
	return cfg, nil
}
