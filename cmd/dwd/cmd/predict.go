package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/data-watchdog/internal/models"
	"github.com/j-veylop/data-watchdog/internal/services"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Forecast the current bundle from stored usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := services.NewManager(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer func() { _ = mgr.Close() }()

		forecast, err := mgr.Forecast()
		if err != nil {
			return err
		}
		printForecast(cmd.OutOrStdout(), forecast)
		return nil
	},
}

func printForecast(w io.Writer, f *services.Forecast) {
	s, p, a := f.State, f.Prediction, f.Analytics

	provider := f.Bundle.Provider
	if provider == "" {
		provider = "bundle"
	}
	fmt.Fprintf(w, "%s: %s of %s used, day %d of %d\n",
		provider,
		humanize.IBytes(models.ClampBytes(s.UsedBytes)),
		humanize.IBytes(models.ClampBytes(s.TotalCapacityBytes)),
		s.DaysElapsed, s.TotalDays,
	)
	if !f.Bundle.Expiry.IsZero() {
		fmt.Fprintf(w, "Expires:          %s (%s)\n", f.Bundle.Expiry.Format("2006-01-02 15:04"), humanize.Time(f.Bundle.Expiry))
	}

	fmt.Fprintf(w, "Daily budget:     %s/day\n", humanize.IBytes(uint64(max(p.RecommendedDailyBudget, 0))))
	fmt.Fprintf(w, "Days to empty:    %d\n", p.DaysToExhaustion)
	fmt.Fprintf(w, "Trend:            %s\n", p.Trend)
	fmt.Fprintf(w, "Confidence:       %.0f%%\n", p.Confidence*100)
	if p.WillExceedLimit {
		fmt.Fprintf(w, "Projected:        exceeds bundle by %s\n", humanize.IBytes(p.ProjectedOverage))
	} else {
		fmt.Fprintf(w, "Projected:        within bundle, %s to spare\n", humanize.IBytes(p.ProjectedSavings))
	}

	if !f.ExhaustsAt.IsZero() {
		fmt.Fprintf(w, "Recent pace:      %.1f MiB per interval, empty %s\n",
			f.IntervalAverage, humanize.Time(f.ExhaustsAt))
	}

	if len(f.TopApps) > 0 {
		fmt.Fprintln(w, "Top apps this cycle:")
		for _, r := range f.TopApps {
			name := r.AppName
			if name == "" {
				name = r.AppID
			}
			fmt.Fprintf(w, "  %-24s %10s  (%s mobile)\n", name,
				humanize.IBytes(models.ClampBytes(r.Bytes)), humanize.IBytes(models.ClampBytes(r.MobileBytes)))
		}
	}

	if len(f.Daily) == 0 {
		fmt.Fprintln(w, "No completed days of usage recorded yet.")
		return
	}
	fmt.Fprintf(w, "Average per day:  %s\n", humanize.IBytes(models.ClampBytes(int64(a.AverageDailyUsage))))
	fmt.Fprintf(w, "Peak days:        %s\n", strings.Join(a.PeakDays, ", "))
	fmt.Fprintf(w, "Light days:       %s\n", strings.Join(a.LightDays, ", "))
	fmt.Fprintf(w, "Weekday/weekend:  %.2f\n", a.WeekdayWeekendRatio)
	fmt.Fprintf(w, "Consistency:      %.2f\n", a.DataEfficiencyScore)
}
