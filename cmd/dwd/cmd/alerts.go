package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/data-watchdog/internal/db"
	"github.com/j-veylop/data-watchdog/internal/models"
)

var (
	alertsSince time.Duration
	alertsLimit int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recent drain alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = database.Close() }()

		alerts, err := database.GetRecentAlerts(time.Now().Add(-alertsSince), alertsLimit)
		if err != nil {
			return err
		}
		printAlerts(cmd.OutOrStdout(), alerts)
		return nil
	},
}

func init() {
	alertsCmd.Flags().DurationVar(&alertsSince, "since", 24*time.Hour, "show alerts raised within this duration")
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 50, "maximum number of alerts to show")
}

func printAlerts(w io.Writer, alerts []models.DrainAlert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No alerts.")
		return
	}
	for _, a := range alerts {
		name := a.AppName
		if name == "" {
			name = a.AppID
		}
		fmt.Fprintf(w, "%-8s %-9s %-18s %s (%s)\n",
			a.Severity, humanize.Time(a.Timestamp), a.Kind, name, a.Message)
		if a.Recommendation != "" {
			fmt.Fprintf(w, "         -> %s\n", a.Recommendation)
		}
	}
}
