// Package metrics derives production analytics from a flock's daily logs.
//
// Every function here is pure: inputs are never mutated and each call allocates
// fresh output, so callers may derive from the same flock concurrently.
package metrics

import (
	"sort"

	"github.com/mamadbah2/flockboard/internal/domain/models"
)

// OverviewWindow is the number of trailing entries averaged for the overview hen-day gauge.
const OverviewWindow = 7

// DeriveEnrichedLogs extends each log with population and egg-quality metrics.
// Output is sorted ascending by day regardless of input order.
func DeriveEnrichedLogs(snapshot models.FlockSnapshot, logs []models.DailyLog) []models.EnrichedLog {
	sorted := sortedByDay(logs)
	enriched := make([]models.EnrichedLog, len(sorted))

	cumulativeMortality := 0
	for i, log := range sorted {
		birdsAlive := snapshot.InitialCount - cumulativeMortality

		// birdsAlive uses mortality from previous days only.
		cumulativeMortality += log.Mortality

		rejected := log.EggDetails.Damaged()
		saleable := log.EggProduction - rejected
		if saleable < 0 {
			saleable = 0
		}

		enriched[i] = models.EnrichedLog{
			DailyLog:     log,
			BirdsAlive:   birdsAlive,
			HenDayPct:    percent(log.EggProduction, birdsAlive),
			HenHousedPct: percent(log.EggProduction, snapshot.InitialCount),
			Rejected:     rejected,
			Saleable:     saleable,
			QualityPct:   percent(saleable, log.EggProduction),
		}
	}

	return enriched
}

// Summarize aggregates an enriched series. Averages and the daily maximum only
// consider production days (eggs > 0); the total spans every day.
func Summarize(enriched []models.EnrichedLog) models.SummaryMetrics {
	var summary models.SummaryMetrics
	var henDaySum, henHousedSum float64
	productionDays := 0

	for _, log := range enriched {
		summary.TotalProduction += log.EggProduction
		if log.EggProduction <= 0 {
			continue
		}

		productionDays++
		henDaySum += log.HenDayPct
		henHousedSum += log.HenHousedPct
		if log.EggProduction > summary.MaxDailyProduction {
			summary.MaxDailyProduction = log.EggProduction
		}
	}

	if productionDays > 0 {
		summary.AvgHenDayPct = henDaySum / float64(productionDays)
		summary.AvgHenHousedPct = henHousedSum / float64(productionDays)
	}

	return summary
}

// DeriveFlockOverviewMetrics builds the detail view: enriched logs plus daily and
// cumulative mortality rates and a trailing hen-day average.
//
// BirdsAlive is a start-of-day gauge while the cumulative rate includes the day's
// own deaths; both are reported as such.
func DeriveFlockOverviewMetrics(snapshot models.FlockSnapshot, logs []models.DailyLog) models.FlockOverview {
	enriched := DeriveEnrichedLogs(snapshot, logs)
	overview := models.FlockOverview{
		Points:  make([]models.OverviewPoint, len(enriched)),
		Summary: Summarize(enriched),
	}

	henDay := make([]float64, len(enriched))
	for i, log := range enriched {
		henDay[i] = log.HenDayPct
	}
	trailing := MovingAverage(henDay, OverviewWindow)

	cumulative := 0
	var totalEggs int
	for i, log := range enriched {
		cumulative += log.Mortality
		totalEggs += log.EggProduction
		overview.TotalFeedKg += log.FeedConsumedKg
		overview.TotalWaterL += log.WaterConsumedL
		if log.AvgWeightG > 0 {
			overview.LatestAvgWeightG = log.AvgWeightG
		}

		overview.Points[i] = models.OverviewPoint{
			EnrichedLog:             log,
			DailyMortalityRate:      percent(log.Mortality, log.BirdsAlive),
			CumulativeMortality:     cumulative,
			CumulativeMortalityRate: percent(cumulative, snapshot.InitialCount),
			HenDayMovingAvg:         trailing[i],
		}
	}

	overview.TotalMortality = cumulative
	overview.CumulativeMortalityRate = percent(cumulative, snapshot.InitialCount)
	if n := len(trailing); n > 0 {
		overview.RecentHenDayPct = trailing[n-1]
	}
	if totalEggs > 0 {
		overview.FeedPerEggG = overview.TotalFeedKg * 1000 / float64(totalEggs)
	}

	return overview
}

// NewestFirst returns a reversed copy of a derived series for table views.
// Derivation must happen before reversal.
func NewestFirst(enriched []models.EnrichedLog) []models.EnrichedLog {
	out := make([]models.EnrichedLog, len(enriched))
	for i, log := range enriched {
		out[len(enriched)-1-i] = log
	}
	return out
}

func sortedByDay(logs []models.DailyLog) []models.DailyLog {
	sorted := make([]models.DailyLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Day < sorted[j].Day
	})
	return sorted
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
