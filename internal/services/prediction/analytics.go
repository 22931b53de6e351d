package prediction

import (
	"math"
	"sort"

	"github.com/j-veylop/data-watchdog/internal/models"
)

const (
	rankedDays  = 3
	weekdayDays = 5
	weekendDays = 2
)

// AnalyzePatterns summarises a labelled daily history.
func AnalyzePatterns(daily []models.DailyUsage) models.UsageAnalytics {
	if len(daily) == 0 {
		return models.UsageAnalytics{
			PeakDays:            []string{},
			LightDays:           []string{},
			AverageDailyUsage:   0,
			WeekdayWeekendRatio: 1.0,
			DataEfficiencyScore: 0.5,
		}
	}

	values := models.DailyValues(daily)

	sorted := make([]models.DailyUsage, len(daily))
	copy(sorted, daily)
	sort.SliceStable(sorted, func(i, j int) bool {
		return models.ClampBytes(sorted[i].Bytes) > models.ClampBytes(sorted[j].Bytes)
	})

	peak := make([]string, 0, rankedDays)
	for _, d := range sorted[:min(rankedDays, len(sorted))] {
		peak = append(peak, d.Label)
	}
	light := make([]string, 0, rankedDays)
	for _, d := range sorted[max(0, len(sorted)-rankedDays):] {
		light = append(light, d.Label)
	}

	ratio := 1.0
	weekday := meanOf(values[:min(weekdayDays, len(values))])
	weekend := meanOf(values[max(0, len(values)-weekendDays):])
	if weekend > 0 {
		ratio = weekday / weekend
	}

	return models.UsageAnalytics{
		AverageDailyUsage:   meanOf(values),
		PeakDays:            peak,
		LightDays:           light,
		WeekdayWeekendRatio: ratio,
		DataEfficiencyScore: math.Max(0, 1-coefficientOfVariation(values)),
	}
}
