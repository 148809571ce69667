package health

import (
	"time"

	"github.com/mamadbah2/flockboard/internal/domain/models"
)

// CalendarDay is one cell of a month grid.
type CalendarDay struct {
	Date    string            `json:"date"`
	InMonth bool              `json:"inMonth"`
	Today   bool              `json:"today"`
	Entries []VaccinationView `json:"entries"`
}

// MonthCalendar is a Monday-first grid of whole weeks covering a month.
type MonthCalendar struct {
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Weeks [][]CalendarDay `json:"weeks"`
}

// BuildMonthCalendar lays entries out on the weeks spanning the month. Cells
// before the first and after the last day of the month are padding.
func BuildMonthCalendar(year int, month time.Month, entries []VaccinationView, now time.Time) MonthCalendar {
	from, to := gridBounds(year, month)
	today := startOfDay(now).Format(models.DateLayout)

	byDate := make(map[string][]VaccinationView)
	for _, e := range entries {
		key := startOfDay(e.ScheduledDate).Format(models.DateLayout)
		byDate[key] = append(byDate[key], e)
	}

	cal := MonthCalendar{Year: year, Month: month}
	var week []CalendarDay
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(models.DateLayout)
		cell := CalendarDay{
			Date:    key,
			InMonth: day.Month() == month,
			Today:   key == today,
			Entries: byDate[key],
		}
		if cell.Entries == nil {
			cell.Entries = []VaccinationView{}
		}
		week = append(week, cell)
		if len(week) == 7 {
			cal.Weeks = append(cal.Weeks, week)
			week = nil
		}
	}
	return cal
}

// gridBounds returns [first Monday on or before the 1st, day after the last Sunday
// on or after the month end).
func gridBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	from := mondayStart(first)
	to := mondayStart(last).AddDate(0, 0, 7)
	return from, to
}

func mondayStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	daysSinceMonday := (weekday + 6) % 7
	start := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}
