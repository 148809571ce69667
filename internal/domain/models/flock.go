package models

import "time"

// BirdType enumerates the production purpose of a flock.
type BirdType string

const (
	BirdLayer   BirdType = "LAYER"
	BirdBroiler BirdType = "BROILER"
	BirdBreeder BirdType = "BREEDER"
)

// Valid reports whether the bird type is one we track.
func (b BirdType) Valid() bool {
	switch b {
	case BirdLayer, BirdBroiler, BirdBreeder:
		return true
	default:
		return false
	}
}

// LaysEggs reports whether egg production fields are meaningful for the bird type.
func (b BirdType) LaysEggs() bool {
	return b == BirdLayer || b == BirdBreeder
}

// FlockStatus tracks whether a flock is still housed.
type FlockStatus string

const (
	FlockActive FlockStatus = "active"
	FlockClosed FlockStatus = "closed"
)

// Flock is the managed cohort of birds.
type Flock struct {
	ID           string      `bson:"_id" json:"id"`
	Name         string      `bson:"name" json:"name"`
	House        string      `bson:"house" json:"house,omitempty"`
	Breed        string      `bson:"breed" json:"breed,omitempty"`
	BirdType     BirdType    `bson:"bird_type" json:"birdType"`
	InitialCount int         `bson:"initial_count" json:"initialCount"`
	CurrentCount int         `bson:"current_count" json:"currentCount"`
	StartDate    time.Time   `bson:"start_date" json:"startDate"`
	Status       FlockStatus `bson:"status" json:"status"`
	CreatedAt    time.Time   `bson:"created_at" json:"createdAt"`
	ClosedAt     *time.Time  `bson:"closed_at,omitempty" json:"closedAt,omitempty"`
}

// Snapshot returns the read-only population view consumed by the metrics engine.
func (f Flock) Snapshot() FlockSnapshot {
	return FlockSnapshot{
		InitialCount: f.InitialCount,
		CurrentCount: f.CurrentCount,
		BirdType:     f.BirdType,
	}
}

// AgeInDays returns the flock age at the given instant, day one being the start date.
func (f Flock) AgeInDays(at time.Time) int {
	start := time.Date(f.StartDate.Year(), f.StartDate.Month(), f.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(start).Hours()/24) + 1
}

// FlockSnapshot is the population information the metrics engine needs.
// CurrentCount <= InitialCount is expected but not enforced.
type FlockSnapshot struct {
	InitialCount int
	CurrentCount int
	BirdType     BirdType
}
