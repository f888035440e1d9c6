package main

import (
	"fmt"

	"driftline/warden/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file, apply environment overrides, and check
every section for structural errors without starting the server.

Examples:
  # Validate the default config file
  warden validate

  # Validate a specific file
  warden validate --config /etc/warden/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Ledger backend: %s\n", cfg.Ledger.Backend)
	if cfg.Cache.Enabled {
		fmt.Printf("  Cache backend:  %s (ttl %s)\n", cfg.Cache.Backend, cfg.Cache.TTL)
	} else {
		fmt.Println("  Cache:          disabled")
	}
	if cfg.Policy.StorePath != "" {
		fmt.Printf("  Policy store:   %s\n", cfg.Policy.StorePath)
	} else {
		fmt.Println("  Policy store:   none (system defaults only)")
	}
	return nil
}
