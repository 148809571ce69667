package models

import "time"

// VaccinationStatus is derived from the schedule and the reference date.
type VaccinationStatus string

const (
	VaccinationDone     VaccinationStatus = "done"
	VaccinationOverdue  VaccinationStatus = "overdue"
	VaccinationDue      VaccinationStatus = "due"
	VaccinationUpcoming VaccinationStatus = "upcoming"
)

// Vaccination is a scheduled or administered vaccine for a flock.
type Vaccination struct {
	ID             string     `bson:"_id" json:"id"`
	FlockID        string     `bson:"flock_id" json:"flockId"`
	Vaccine        string     `bson:"vaccine" json:"vaccine"`
	Method         string     `bson:"method" json:"method,omitempty"`
	ScheduledDate  time.Time  `bson:"scheduled_date" json:"scheduledDate"`
	AdministeredAt *time.Time `bson:"administered_at,omitempty" json:"administeredAt,omitempty"`
	Notes          string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// StatusAt classifies the vaccination relative to the given day.
func (v Vaccination) StatusAt(now time.Time) VaccinationStatus {
	if v.AdministeredAt != nil {
		return VaccinationDone
	}
	scheduled := truncateDay(v.ScheduledDate)
	today := truncateDay(now)
	switch {
	case scheduled.Before(today):
		return VaccinationOverdue
	case scheduled.Equal(today):
		return VaccinationDue
	default:
		return VaccinationUpcoming
	}
}

// ProgramStep is one line of a vaccination program, relative to flock age.
type ProgramStep struct {
	AgeDay  int    `mapstructure:"age_day" json:"ageDay"`
	Vaccine string `mapstructure:"vaccine" json:"vaccine"`
	Method  string `mapstructure:"method" json:"method"`
	Notes   string `mapstructure:"notes" json:"notes,omitempty"`
}

// VaccinationProgram is an ordered template applied to new flocks.
type VaccinationProgram struct {
	Name  string        `mapstructure:"name" json:"name"`
	Steps []ProgramStep `mapstructure:"steps" json:"steps"`
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
