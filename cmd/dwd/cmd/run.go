package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/j-veylop/data-watchdog/internal/logger"
	"github.com/j-veylop/data-watchdog/internal/services"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor usage until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runDaemon(ctx)
	},
}

func runDaemon(ctx context.Context) error {
	mgr, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			logger.Warn("error closing services", "error", closeErr)
		}
	}()

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
