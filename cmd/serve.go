package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matrixise/nolimit-swap/internal/app"
	"github.com/spf13/cobra"
)

var (
	servePort    int
	autoConnect  bool
	shutdownWait = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the price feed and the HTTP API",
	Long: `Refresh reference prices on a schedule and serve prices, quotes, swap
validation and wallet sessions over HTTP until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default: http_port from config)")
	serveCmd.Flags().BoolVar(&autoConnect, "connect", false, "connect the configured key wallets at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Signal received, graceful shutdown", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"assets", len(cfg.Assets),
		"networks", len(cfg.Networks),
		"default_network", cfg.DefaultNetwork,
	)

	a, err := app.New(ctx, cfg, app.Options{Logger: slog.Default()})
	if err != nil {
		slog.Error("Failed to initialise application", "error", err)
		return err
	}
	defer a.Close()

	if a.Store != nil {
		slog.Info("PostgreSQL connection established, price history enabled")
	}

	if autoConnect {
		for space, p := range a.Providers {
			if err := a.Sessions.Connect(ctx, space, p); err != nil {
				slog.Warn("Key wallet not connected", "space", space, "wallet", p.Name(), "error", err)
			}
		}
	}

	port := cfg.HTTPPort
	if servePort != 0 {
		port = servePort
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Ensure HTTP server shutdown on exit
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownWait)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	a.Start()
	slog.Info("Price feed started", "schedule", a.Schedule())

	select {
	case <-ctx.Done():
		slog.Info("Shutdown requested, stopping server")
		return nil
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
		return err
	}
}
