package main

import (
	"context"
	"fmt"
	"log/slog"

	"driftline/warden/pkg/cache"
	"driftline/warden/pkg/config"
	"driftline/warden/pkg/governance"
	"driftline/warden/pkg/governance/budget"
	"driftline/warden/pkg/governance/concurrency"
	"driftline/warden/pkg/governance/ratelimit"
	"driftline/warden/pkg/ledger"
	"driftline/warden/pkg/policy"
	"driftline/warden/pkg/pricing"
	"driftline/warden/pkg/server"
	"driftline/warden/pkg/telemetry/logging"
	"driftline/warden/pkg/telemetry/metrics"
	"github.com/spf13/cobra"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Warden governance server",
	Long: `Start the Warden governance server with the specified configuration.

The server listens on the configured address and exposes the admission,
request-completion, cache, and status endpoints, plus Prometheus metrics
when enabled.

Examples:
  # Start with default config
  warden run

  # Start with custom config
  warden run --config /etc/warden/config.yaml

  # Override listen address
  warden run --listen 0.0.0.0:8080

  # Validate config without starting server
  warden run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := log.Slog()
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Warden v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Tenant policy store
	var store policy.Store
	if cfg.Policy.StorePath != "" {
		sqlStore, err := policy.NewSQLiteStore(cfg.Policy.StorePath)
		if err != nil {
			return fmt.Errorf("failed to open policy store: %w", err)
		}
		store = sqlStore
		logger.Info("tenant policy store opened", "path", cfg.Policy.StorePath)
	} else {
		store = policy.NopStore{}
		logger.Info("no tenant policy store configured, using system defaults for all organizations")
	}
	defer store.Close()

	resolver := policy.NewResolver(store, cfg.Policy.Defaults, cfg.Policy.Trial, logger)

	// Usage ledger
	var usageLedger ledger.Ledger
	switch cfg.Ledger.Backend {
	case "sqlite":
		usageLedger, err = ledger.NewSQLiteLedger(cfg.Ledger.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open usage ledger: %w", err)
		}
	case "memory":
		usageLedger = ledger.NewMemoryLedger()
	default:
		return fmt.Errorf("unsupported ledger backend: %s", cfg.Ledger.Backend)
	}
	defer usageLedger.Close()
	fmt.Printf("✓ Usage ledger initialized (%s)\n", cfg.Ledger.Backend)

	// Metrics
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	estimator := pricing.NewEstimator(&cfg.Pricing)
	guard := budget.NewGuard(usageLedger, cfg.Budget.NearCeilingBand)
	limiter := ratelimit.NewFixedWindowLimiter()
	tracker := concurrency.NewMemoryTracker()

	var admissionMetrics *metrics.AdmissionMetrics
	var budgetMetrics *metrics.BudgetMetrics
	var cacheMetrics *metrics.CacheMetrics
	if collector != nil {
		admissionMetrics = collector.Admission()
		budgetMetrics = collector.Budget()
		cacheMetrics = collector.Cache()
	}

	controller := governance.NewController(governance.Options{
		Resolver:      resolver,
		Guard:         guard,
		Limiter:       limiter,
		Tracker:       tracker,
		Estimator:     estimator,
		Logger:        logger,
		Metrics:       admissionMetrics,
		BudgetMetrics: budgetMetrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Response cache. A disabled cache still serves the endpoints; every
	// lookup is a miss and every store is dropped.
	var cacheBackend cache.Backend
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "sqlite":
			cacheBackend, err = cache.NewSQLiteBackend(cfg.Cache.SQLitePath)
			if err != nil {
				return fmt.Errorf("failed to open cache store: %w", err)
			}
		case "memory":
			cacheBackend = cache.NewMemoryBackend()
		default:
			return fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
		}
	}

	responseCache := cache.New(cache.Options{
		Backend: cacheBackend,
		TTL:     cfg.Cache.TTL,
		Enabled: cfg.Cache.Enabled,
		Logger:  logger,
		Metrics: cacheMetrics,
	})
	defer responseCache.Close()

	if cfg.Cache.Enabled {
		sweeper := cache.NewSweeper(responseCache, cfg.Cache.SweepSchedule, logger)
		if err := sweeper.Start(ctx); err != nil {
			logger.Warn("failed to start cache sweeper", "error", err)
		} else {
			defer sweeper.Stop()
		}
		fmt.Printf("✓ Response cache initialized (%s, ttl %s)\n", cfg.Cache.Backend, cfg.Cache.TTL)
	}

	// Hot-reload of policy defaults, trial ceilings, pricing rates, and
	// the budget band. Server wiring changes still require a restart.
	watcher, err := config.NewWatcher(cfgFile, logger)
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else {
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				if err := config.Validate(next); err != nil {
					logger.Error("rejecting reloaded configuration", "error", err)
					return
				}
				resolver.UpdateDefaults(next.Policy.Defaults, next.Policy.Trial)
				estimator.UpdateRates(&next.Pricing)
			})
			if err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	srv := server.New(server.Options{
		Config:      &cfg.Server,
		Controller:  controller,
		Cache:       responseCache,
		Ledger:      usageLedger,
		Estimator:   estimator,
		Collector:   collector,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Logger:      logger,
	})

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	if collector != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}
