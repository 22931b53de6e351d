// Package cmd provides the CLI commands for data-watchdog.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/data-watchdog/internal/config"
	"github.com/j-veylop/data-watchdog/internal/logger"
)

var (
	logLevel string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dwd",
	Short: "Watch per-app data usage and forecast bundle exhaustion",
	Long: `dwd samples per-application data counters, flags apps draining data,
and forecasts whether the current bundle will last until it expires.

Configuration comes from .env files and environment variables
(DATABASE_PATH, COUNTERS_PATH, BUNDLE_PATH, MONITOR_INTERVAL, ...).

Examples:
  dwd run
  dwd predict
  dwd alerts --since 6h`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		logger.SetLevel(loaded.LogLevel)
		cfg = loaded
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(versionCmd)
}
