package models

// DateLayout is the calendar date format used by daily logs.
const DateLayout = "2006-01-02"

// EggDetails holds per-shift collection and damage counts.
type EggDetails struct {
	CollectedMorning   int `bson:"collected_morning" json:"collectedMorning"`
	CollectedAfternoon int `bson:"collected_afternoon" json:"collectedAfternoon"`
	DamagedMorning     int `bson:"damaged_morning" json:"damagedMorning"`
	DamagedAfternoon   int `bson:"damaged_afternoon" json:"damagedAfternoon"`
}

// Damaged returns the rejected egg count across both shifts.
func (d *EggDetails) Damaged() int {
	if d == nil {
		return 0
	}
	return d.DamagedMorning + d.DamagedAfternoon
}

// DailyLog is one day of a flock's life. Logs are append-only.
type DailyLog struct {
	Day             int         `bson:"day" json:"day"`
	Date            string      `bson:"date" json:"date"`
	Mortality       int         `bson:"mortality" json:"mortality"`
	FeedConsumedKg  float64     `bson:"feed_consumed_kg" json:"feedConsumedKg"`
	WaterConsumedL  float64     `bson:"water_consumed_l" json:"waterConsumedL"`
	AvgWeightG      float64     `bson:"avg_weight_g" json:"avgWeightG"`
	EggProduction   int         `bson:"egg_production,omitempty" json:"eggProduction,omitempty"`
	EggDetails      *EggDetails `bson:"egg_details,omitempty" json:"eggDetails,omitempty"`
	Notes           string      `bson:"notes,omitempty" json:"notes,omitempty"`
	MortalityReason string      `bson:"mortality_reason,omitempty" json:"mortalityReason,omitempty"`
	MortalityImage  string      `bson:"mortality_image,omitempty" json:"mortalityImage,omitempty"`
}
