package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - request governance for metered LLM providers",
	Long: `Warden is a request-governance layer that sits in front of metered
generative-AI providers and decides, per request, whether a tenant
organization's call may proceed.

It provides:
  - Policy-based admission control (tokens, providers, rate, concurrency)
  - Daily budget tracking with graceful degradation near the ceiling
  - Content-addressed response caching to deduplicate identical requests
  - Per-organization governance status and Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
