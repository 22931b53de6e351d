package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/data-watchdog/internal/db"
	"github.com/j-veylop/data-watchdog/internal/retention"
)

var pruneVacuum bool

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete usage data older than RETENTION_DAYS",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = database.Close() }()

		pruner := retention.NewPruner(database, cfg.RetentionDays, nil)
		removed, err := pruner.Prune(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s rows older than %s.\n",
			humanize.Comma(removed), pruner.Cutoff().Format("2006-01-02"))

		if pruneVacuum {
			if err := database.Vacuum(); err != nil {
				return fmt.Errorf("failed to vacuum database: %w", err)
			}
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneVacuum, "vacuum", false, "reclaim disk space after pruning")
}
