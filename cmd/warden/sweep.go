package main

import (
	"context"
	"fmt"

	"driftline/warden/pkg/cache"
	"driftline/warden/pkg/config"
	"driftline/warden/pkg/telemetry/logging"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Purge expired cache entries once and exit",
	Long: `Open the configured cache backend, delete every expired entry, and
report how many rows were reclaimed.

This is the one-shot form of the scheduled sweep the server runs; it is
useful for cron-driven maintenance against a SQLite cache when the server
is not running.

Examples:
  warden sweep
  warden sweep --config /etc/warden/config.yaml`,
	RunE: sweepCache,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func sweepCache(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var backend cache.Backend
	switch cfg.Cache.Backend {
	case "sqlite":
		backend, err = cache.NewSQLiteBackend(cfg.Cache.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open cache store: %w", err)
		}
	case "memory":
		// Nothing persists across processes for a memory backend.
		fmt.Println("✓ Memory cache backend holds no persistent entries, nothing to sweep")
		return nil
	default:
		return fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}

	c := cache.New(cache.Options{
		Backend: backend,
		TTL:     cfg.Cache.TTL,
		Enabled: true,
		Logger:  logging.Default().Slog(),
	})
	defer c.Close()

	removed, err := c.CleanupExpired(context.Background())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	fmt.Printf("✓ Removed %d expired cache entries from %s\n", removed, cfg.Cache.SQLitePath)
	return nil
}
