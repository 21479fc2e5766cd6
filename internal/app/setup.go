package app

import (
	"context"
	"fmt"

	"github.com/pricebet/pricebet/internal/fees"
	"github.com/pricebet/pricebet/internal/ledger"
	"github.com/pricebet/pricebet/internal/mirror"
	"github.com/pricebet/pricebet/internal/monitor"
	"github.com/pricebet/pricebet/internal/oracle"
	"github.com/pricebet/pricebet/internal/settlement"
	"github.com/pricebet/pricebet/internal/snapshot"
	"github.com/pricebet/pricebet/internal/storage"
	"github.com/pricebet/pricebet/pkg/cache"
	"github.com/pricebet/pricebet/pkg/config"
	"github.com/pricebet/pricebet/pkg/healthprobe"
	"github.com/pricebet/pricebet/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	mirrorCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	marketLedger := setupLedger(cfg, logger)
	marketMirror := setupMirror(cfg, logger, mirrorCache)
	publisher := snapshot.NewPublisher(cfg.PinningURL, logger)

	auditStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	orchestrator := setupOrchestrator(cfg, logger, marketLedger, marketMirror, auditStorage)
	lifecycleMon, poolSyncMon := setupMonitors(cfg, logger, marketLedger, marketMirror)

	httpServer := setupHTTPServer(cfg, logger, healthChecker, marketLedger, marketMirror, publisher, auditStorage)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		ledger:        marketLedger,
		mirror:        marketMirror,
		orchestrator:  orchestrator,
		lifecycleMon:  lifecycleMon,
		poolSyncMon:   poolSyncMon,
		publisher:     publisher,
		storage:       auditStorage,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New("http", "settlement", "lifecycle", "pool-sync")
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items (1000 markets)
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupLedger(cfg *config.Config, logger *zap.Logger) ledger.Ledger {
	return ledger.NewMemory(ledger.MemoryConfig{
		Seed:    cfg.SeedAmount,
		MinBet:  cfg.MinBet,
		Lockout: cfg.LockoutWindow,
		Split:   feeSplit(cfg),
		Logger:  logger,
	})
}

// feeSplit maps the configured mode to a split preset.
func feeSplit(cfg *config.Config) fees.FeeSplit {
	if cfg.FeeSplitMode == "creator" {
		return fees.SplitCreatorRevShare
	}
	return fees.SplitProtocol
}

func setupMirror(cfg *config.Config, logger *zap.Logger, c cache.Cache) *mirror.Mirror {
	return mirror.New(&mirror.Config{
		Cache:     c,
		MarkerTTL: cfg.MarkerTTL,
		Logger:    logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupOrchestrator(
	cfg *config.Config,
	logger *zap.Logger,
	marketLedger ledger.Ledger,
	marketMirror *mirror.Mirror,
	auditStorage storage.Storage,
) *settlement.Orchestrator {
	oracleClient := oracle.NewClient(cfg.OracleBaseURL, logger)
	return settlement.New(&settlement.Config{
		Ledger:        marketLedger,
		Mirror:        marketMirror,
		OracleClient:  oracleClient,
		OracleAccount: cfg.OracleAddress(),
		Storage:       auditStorage,
		Interval:      cfg.SettlementInterval,
		Logger:        logger,
	})
}

func setupMonitors(
	cfg *config.Config,
	logger *zap.Logger,
	marketLedger ledger.Ledger,
	marketMirror *mirror.Mirror,
) (*monitor.Lifecycle, *monitor.PoolSync) {
	lifecycleMon := monitor.NewLifecycle(&monitor.LifecycleConfig{
		Ledger:   marketLedger,
		Mirror:   marketMirror,
		Lockout:  cfg.LockoutWindow,
		Interval: cfg.LifecycleInterval,
		Logger:   logger,
	})
	poolSyncMon := monitor.NewPoolSync(&monitor.PoolSyncConfig{
		Ledger:   marketLedger,
		Mirror:   marketMirror,
		Interval: cfg.PoolSyncInterval,
		Logger:   logger,
	})
	return lifecycleMon, poolSyncMon
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	marketLedger ledger.Ledger,
	marketMirror *mirror.Mirror,
	publisher *snapshot.Publisher,
	auditStorage storage.Storage,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Ledger:        marketLedger,
		Mirror:        marketMirror,
		Publisher:     publisher,
		Storage:       auditStorage,
	})
}
