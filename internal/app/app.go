// Package app wires configuration into stores, chain clients and services.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"solana-nft-lab/internal/config"
	"solana-nft-lab/internal/discovery"
	"solana-nft-lab/internal/offchain"
	"solana-nft-lab/internal/pricing"
	"solana-nft-lab/internal/solana"
	"solana-nft-lab/internal/storage"
	chstore "solana-nft-lab/internal/storage/clickhouse"
	"solana-nft-lab/internal/storage/file"
	"solana-nft-lab/internal/storage/memory"
	"solana-nft-lab/internal/storage/migrations"
	pgstore "solana-nft-lab/internal/storage/postgres"
)

// App holds the wired services and the stores behind them.
type App struct {
	Config       config.Config
	Dumps        storage.DumpStore
	Observations storage.ObservationStore
	Discovery    *discovery.Service
	Pricing      *pricing.Engine

	closers []func()
}

// Close releases database connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// New validates cfg, opens the configured stores and builds the services.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	a := &App{Config: cfg}
	if err := a.openStores(ctx, logger); err != nil {
		a.Close()
		return nil, err
	}

	// The services retry every call under SignaturePolicy, so the client
	// makes a single HTTP attempt per policy attempt.
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithTimeout(cfg.RPCTimeout),
		solana.WithMaxRetries(0),
		solana.WithRateLimit(cfg.RPCRateLimit, cfg.RPCRateBurst),
	)
	updater := storage.NewUpdater(a.Dumps)

	fetcher := offchain.NewFetcher(offchain.Options{
		Client:         &http.Client{},
		Policy:         cfg.OffchainPolicy(),
		AttemptTimeout: cfg.OffchainTimeout,
		CacheSize:      cfg.OffchainCacheSize,
		CacheTTL:       cfg.OffchainCacheTTL,
		Logger:         logger,
	})

	a.Discovery = discovery.NewService(discovery.Options{
		RPC:     rpc,
		Updater: updater,
		Policy:  cfg.SignaturePolicy(),
		Workers: cfg.Workers,
		Logger:  logger,
	})
	a.Pricing = pricing.NewEngine(pricing.Options{
		RPC:          rpc,
		Updater:      updater,
		Fetcher:      fetcher,
		Observations: a.Observations,
		PageSize:     cfg.SignaturePageSize,
		Policy:       cfg.SignaturePolicy(),
		Workers:      cfg.Workers,
		Location:     loc,
		DateLayout:   cfg.DateLayout,
		Logger:       logger,
	})
	return a, nil
}

// openStores selects the dump backend and the observation log.
func (a *App) openStores(ctx context.Context, logger *log.Logger) error {
	cfg := a.Config

	switch cfg.DumpBackend {
	case config.BackendMemory:
		a.Dumps = memory.NewDumpStore()
	case config.BackendFile:
		store, err := file.NewDumpStore(cfg.DumpDir)
		if err != nil {
			return fmt.Errorf("open dump dir: %w", err)
		}
		a.Dumps = store
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		if len(applied) > 0 {
			logger.Printf("applied postgres migrations: %v", applied)
		}
		a.Dumps = pgstore.NewDumpStore(pool)
	default:
		return fmt.Errorf("unknown dump backend %q", cfg.DumpBackend)
	}

	if cfg.ClickHouseDSN == "" {
		a.Observations = memory.NewObservationStore()
		return nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		return fmt.Errorf("clickhouse migrations: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := conn.Close(); err != nil {
			logger.Printf("close clickhouse: %v", err)
		}
	})
	a.Observations = chstore.NewObservationStore(conn)
	return nil
}
