package models

import "time"

// DailyReport is the per-flock daily snapshot stored for historical dashboards.
type DailyReport struct {
	FlockID       string    `bson:"flock_id" json:"flock_id"`
	FlockName     string    `bson:"flock_name" json:"flock_name"`
	Date          time.Time `bson:"date" json:"date"`
	Day           int       `bson:"day" json:"day"`
	BirdsAlive    int       `bson:"birds_alive" json:"birds_alive"`
	EggsCollected int       `bson:"eggs_collected" json:"eggs_collected"`
	SaleableEggs  int       `bson:"saleable_eggs" json:"saleable_eggs"`
	HenDayPct     float64   `bson:"hen_day_pct" json:"hen_day_pct"`
	Mortality     int       `bson:"mortality" json:"mortality"`
	MortalityRate float64   `bson:"mortality_rate" json:"mortality_rate"`
	FeedConsumed  float64   `bson:"feed_consumed" json:"feed_consumed"`
	WaterConsumed float64   `bson:"water_consumed" json:"water_consumed"`
	LowStockItems []string  `bson:"low_stock_items,omitempty" json:"low_stock_items,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
