package models

// EnrichedLog is a DailyLog extended with derived production metrics.
type EnrichedLog struct {
	DailyLog

	// BirdsAlive is the population at the start of the day, before its own mortality.
	BirdsAlive   int     `json:"birdsAlive"`
	HenDayPct    float64 `json:"henDayPct"`
	HenHousedPct float64 `json:"henHousedPct"`
	Rejected     int     `json:"rejected"`
	Saleable     int     `json:"saleable"`
	QualityPct   float64 `json:"qualityPct"`
}

// SummaryMetrics aggregates a derived series.
type SummaryMetrics struct {
	TotalProduction    int     `json:"totalProduction"`
	AvgHenDayPct       float64 `json:"avgHenDayPct"`
	AvgHenHousedPct    float64 `json:"avgHenHousedPct"`
	MaxDailyProduction int     `json:"maxDailyProduction"`
}

// OverviewPoint adds mortality gauges and a trailing hen-day average to an EnrichedLog.
type OverviewPoint struct {
	EnrichedLog

	DailyMortalityRate float64 `json:"dailyMortalityRate"`
	// CumulativeMortality counts deaths through the end of the day.
	CumulativeMortality     int     `json:"cumulativeMortality"`
	CumulativeMortalityRate float64 `json:"cumulativeMortalityRate"`
	HenDayMovingAvg         float64 `json:"henDayMovingAvg"`
}

// FlockOverview is the detail view of a flock's history.
type FlockOverview struct {
	Points                  []OverviewPoint `json:"points"`
	Summary                 SummaryMetrics  `json:"summary"`
	TotalMortality          int             `json:"totalMortality"`
	CumulativeMortalityRate float64         `json:"cumulativeMortalityRate"`
	RecentHenDayPct         float64         `json:"recentHenDayPct"`
	TotalFeedKg             float64         `json:"totalFeedKg"`
	TotalWaterL             float64         `json:"totalWaterL"`
	FeedPerEggG             float64         `json:"feedPerEggG"`
	LatestAvgWeightG        float64         `json:"latestAvgWeightG"`
}
