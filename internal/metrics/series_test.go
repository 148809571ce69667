package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/flockboard/internal/domain/models"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4, 5}, 3)

	assert.InDeltaSlice(t, []float64{1, 1.5, 2, 3, 4}, got, 1e-9)
	assert.Empty(t, MovingAverage(nil, 3))
	assert.InDeltaSlice(t, []float64{2, 4}, MovingAverage([]float64{2, 4}, 0), 1e-9)
}

func TestChartWindow(t *testing.T) {
	assert.Equal(t, 3, ChartWindow(0))
	assert.Equal(t, 3, ChartWindow(13))
	assert.Equal(t, 7, ChartWindow(14))
}

func TestSeries(t *testing.T) {
	enriched := DeriveEnrichedLogs(layerSnapshot(100), scenarioLogs())

	assert.InDeltaSlice(t, []float64{0, 80, 85}, Series(enriched, Production), 1e-9)
	assert.InDeltaSlice(t, []float64{5, 0, 2}, Series(enriched, Mortality), 1e-9)
	assert.Len(t, Series([]models.EnrichedLog{}, HenDay), 0)
}
