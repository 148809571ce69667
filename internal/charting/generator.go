package charting

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/metrics"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

// ErrUnknownSeries is returned for an unsupported series name.
var ErrUnknownSeries = errors.New("unknown chart series")

// SeriesKind names a plottable series.
type SeriesKind string

const (
	SeriesHenDay    SeriesKind = "henday"
	SeriesMortality SeriesKind = "mortality"
)

// Generator renders flock charts as PNG images.
type Generator struct {
	Width  int
	Height int
}

// NewGenerator returns a generator sized for chat previews.
func NewGenerator() *Generator {
	return &Generator{Width: 800, Height: 400}
}

// Render dispatches on the series name. An empty name selects hen-day.
func (g *Generator) Render(kind SeriesKind, title string, enriched []models.EnrichedLog) ([]byte, error) {
	switch kind {
	case SeriesHenDay, "":
		return g.HenDay(title, enriched)
	case SeriesMortality:
		return g.Mortality(title, enriched)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeries, kind)
	}
}

// HenDay plots the daily hen-day percentage with its trailing moving average.
func (g *Generator) HenDay(title string, enriched []models.EnrichedLog) ([]byte, error) {
	if len(enriched) == 0 {
		return nil, ErrNoData
	}

	days := dayValues(enriched)
	values := metrics.Series(enriched, metrics.HenDay)
	window := metrics.ChartWindow(len(values))

	daily := chart.ContinuousSeries{
		Name: "Hen-day %",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("95a5a6"),
			StrokeWidth: 1,
			DotWidth:    2,
			DotColor:    drawing.ColorFromHex("95a5a6"),
		},
		XValues: days,
		YValues: values,
	}
	trend := chart.ContinuousSeries{
		Name: fmt.Sprintf("%d-day average", window),
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("27ae60"),
			StrokeWidth: 2,
		},
		XValues: days,
		YValues: metrics.MovingAverage(values, window),
	}

	return g.render(title, "Hen-day %", days, values, daily, trend)
}

// Mortality plots daily deaths.
func (g *Generator) Mortality(title string, enriched []models.EnrichedLog) ([]byte, error) {
	if len(enriched) == 0 {
		return nil, ErrNoData
	}

	days := dayValues(enriched)
	values := metrics.Series(enriched, metrics.Mortality)

	deaths := chart.ContinuousSeries{
		Name: "Deaths",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("e74c3c"),
			StrokeWidth: 2,
			DotWidth:    3,
			DotColor:    drawing.ColorFromHex("e74c3c"),
		},
		XValues: days,
		YValues: values,
	}

	return g.render(title, "Birds", days, values, deaths)
}

func (g *Generator) render(title, yName string, days, values []float64, series ...chart.Series) ([]byte, error) {
	graph := chart.Chart{
		Title:  title,
		Width:  g.Width,
		Height: g.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Day",
			Range:          xRange(days),
			ValueFormatter: func(v interface{}) string { return fmt.Sprintf("%.0f", v) },
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Range: yRange(values),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func dayValues(enriched []models.EnrichedLog) []float64 {
	out := make([]float64, len(enriched))
	for i, log := range enriched {
		out[i] = float64(log.Day)
	}
	return out
}

// go-chart rejects zero-width ranges, so single points and flat series get explicit bounds.
func xRange(days []float64) *chart.ContinuousRange {
	lo, hi := days[0], days[0]
	for _, d := range days {
		lo = min(lo, d)
		hi = max(hi, d)
	}
	if hi == lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func yRange(values []float64) *chart.ContinuousRange {
	hi := 0.0
	for _, v := range values {
		hi = max(hi, v)
	}
	if hi == 0 {
		hi = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: hi * 1.1}
}
