package metrics

import "github.com/mamadbah2/flockboard/internal/domain/models"

// MovingAverage returns, for each index, the mean of the trailing window ending
// there. Early entries average over however many values exist.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := window
		if i+1 < window {
			n = i + 1
		}
		out[i] = sum / float64(n)
	}
	return out
}

// ChartWindow picks the moving-average window for a plotted series of n points.
func ChartWindow(n int) int {
	if n < 14 {
		return 3
	}
	return 7
}

// Series extracts a named numeric column from an enriched series, in order.
func Series(enriched []models.EnrichedLog, field func(models.EnrichedLog) float64) []float64 {
	out := make([]float64, len(enriched))
	for i, log := range enriched {
		out[i] = field(log)
	}
	return out
}

// HenDay reads the hen-day percentage of a log.
func HenDay(log models.EnrichedLog) float64 { return log.HenDayPct }

// Mortality reads the day's mortality of a log.
func Mortality(log models.EnrichedLog) float64 { return float64(log.Mortality) }

// Production reads the day's egg count of a log.
func Production(log models.EnrichedLog) float64 { return float64(log.EggProduction) }
