// Package app assembles the price feed, wallet sessions, storage and HTTP
// surface from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/matrixise/nolimit-swap/internal/api"
	"github.com/matrixise/nolimit-swap/internal/blockchain"
	"github.com/matrixise/nolimit-swap/internal/config"
	"github.com/matrixise/nolimit-swap/internal/health"
	"github.com/matrixise/nolimit-swap/internal/keywallet"
	"github.com/matrixise/nolimit-swap/internal/networks"
	"github.com/matrixise/nolimit-swap/internal/pricefeed"
	"github.com/matrixise/nolimit-swap/internal/scheduler"
	"github.com/matrixise/nolimit-swap/internal/session"
	"github.com/matrixise/nolimit-swap/internal/solana"
	"github.com/matrixise/nolimit-swap/internal/storage"
)

// Options overrides collaborators, mostly for tests
type Options struct {
	Fetcher pricefeed.Fetcher
	Dialer  blockchain.Dialer
	Logger  *slog.Logger
}

// App owns every long-lived component
type App struct {
	Config    *config.Config
	Registry  *networks.Registry
	Prices    *pricefeed.Cache
	Sessions  *session.Manager
	Providers map[session.Space]session.Provider
	Store     *storage.Store
	Health    *health.Checker
	Server    *api.Server

	pool      *blockchain.Pool
	scheduler *scheduler.Scheduler
	started   bool
	unsub     []func()
	logger    *slog.Logger
}

// New builds the application. A database is opened only when cfg.DatabaseURL
// is set, and key wallets are created only for the configured keys.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = pricefeed.NewCoinGeckoClient(cfg.PriceFeed.BaseURL, pricefeed.WithTimeout(cfg.FeedTimeout()))
	}

	a := &App{
		Config:    cfg,
		Registry:  networks.NewRegistry(cfg.Networks, cfg.DefaultNetwork),
		Providers: make(map[session.Space]session.Provider, len(session.Spaces)),
		logger:    opts.Logger,
	}
	a.Prices = pricefeed.NewCache(opts.Fetcher, pricefeed.AssetsFromConfig(cfg.Assets), opts.Logger)
	a.pool = blockchain.NewPool(a.Registry, opts.Dialer)

	sessOpts := session.Options{
		AppName:         cfg.AppName,
		AccountBalances: a.pool,
		Logger:          opts.Logger,
	}
	if sol, ok := a.Registry.SolanaNetwork(); ok {
		reader, err := solana.NewBalanceReader(sol.RPCUrls, cfg.Solana.Commitment)
		switch {
		case err == nil:
			sessOpts.AddressBalances = reader
		case errors.Is(err, solana.ErrNoEndpoints):
			opts.Logger.Warn("Solana balances disabled", "network", sol.Name, "reason", err)
		default:
			return nil, fmt.Errorf("solana reader: %w", err)
		}
	}
	a.Sessions = session.NewManager(a.Registry, sessOpts)

	if err := a.loadKeyWallets(); err != nil {
		a.Close()
		return nil, err
	}

	checks := []health.Option{health.WithRPC(a.pool)}
	var history api.HistoryReader
	if cfg.DatabaseURL != "" {
		store, err := storage.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.Store = store
		history = store
		checks = append(checks, health.WithDatabase(store))

		rec := storage.NewRecorder(store, opts.Logger)
		a.unsub = append(a.unsub, a.Prices.Subscribe(rec.Record))
	}
	a.Health = health.NewChecker(a.Prices, cfg.RefreshInterval(), checks...)

	sched, err := scheduler.NewScheduler(ctx, scheduler.Config{
		Name:           "price-refresh",
		Interval:       cfg.RefreshInterval(),
		AlignToClock:   cfg.PriceFeed.AlignToClock,
		Timezone:       cfg.GetTimezone(),
		RunImmediately: cfg.ShouldRunImmediately(),
		Logger:         opts.Logger,
	}, a.refresh)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("scheduler creation failed: %w", err)
	}
	a.scheduler = sched

	symbols := make([]string, 0, len(cfg.Assets))
	for _, as := range cfg.Assets {
		symbols = append(symbols, as.Symbol)
	}
	a.Server = api.NewServer(api.Options{
		Prices:    a.Prices,
		Sessions:  a.Sessions,
		Registry:  a.Registry,
		Providers: a.Providers,
		Symbols:   symbols,
		Health:    a.Health.Handler(),
		History:   history,
		Logger:    opts.Logger,
	})

	return a, nil
}

func (a *App) loadKeyWallets() error {
	if key := a.Config.Wallets.EVMPrivateKey; key != "" {
		var chains []uint64
		for _, n := range a.Registry.All() {
			if n.IsEVM() {
				chains = append(chains, n.ChainID)
			}
		}
		w, err := keywallet.NewEVM(key, chains)
		if err != nil {
			return fmt.Errorf("evm key wallet: %w", err)
		}
		a.Providers[session.SpaceAccount] = w
	}
	if key := a.Config.Wallets.SolanaPrivateKey; key != "" {
		w, err := keywallet.NewSolana(key)
		if err != nil {
			return fmt.Errorf("solana key wallet: %w", err)
		}
		a.Providers[session.SpaceAddress] = w
	}
	return nil
}

// refresh is the scheduled job. The cache keeps serving the last snapshot on
// failure; the error is returned so the scheduler logs the run as failed.
func (a *App) refresh(ctx context.Context) error {
	a.Prices.Refresh(ctx)
	return a.Prices.LastError()
}

// Handler returns the HTTP routes
func (a *App) Handler() http.Handler {
	return a.Server.Routes()
}

// Schedule describes the price refresh cadence
func (a *App) Schedule() string {
	return a.scheduler.Describe()
}

// Start begins periodic price refreshes
func (a *App) Start() {
	a.scheduler.Start()
	a.started = true
}

// Close stops the scheduler and releases every connection. Connected wallets
// are left as they are.
func (a *App) Close() {
	if a.started {
		a.started = false
		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
	}
	for _, fn := range a.unsub {
		fn()
	}
	a.unsub = nil
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
