package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/repository"
	"github.com/mamadbah2/flockboard/internal/repository/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, now time.Time) (*Service, *memory.Repository) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.CreateFlock(context.Background(), models.Flock{
		ID:        "f1",
		Name:      "House A",
		StartDate: date(2026, 10, 1),
		Status:    models.FlockActive,
	}))
	svc := NewService(store, store, nil)
	svc.now = func() time.Time { return now }
	return svc, store
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, date(2026, 10, 16))

	v, err := svc.Schedule(ctx, "f1", ScheduleRequest{Vaccine: " Gumboro ", ScheduledDate: "2026-10-20"})
	require.NoError(t, err)
	assert.Equal(t, "Gumboro", v.Vaccine)
	assert.Equal(t, date(2026, 10, 20), v.ScheduledDate)

	_, err = svc.Schedule(ctx, "f1", ScheduleRequest{Vaccine: "x", ScheduledDate: "20/10/2026"})
	assert.ErrorIs(t, err, ErrInvalidVaccination)

	_, err = svc.Schedule(ctx, "missing", ScheduleRequest{Vaccine: "x", ScheduledDate: "2026-10-20"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestApplyProgram(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, date(2026, 10, 16))

	_, err := svc.Schedule(ctx, "f1", ScheduleRequest{Vaccine: "marek", ScheduledDate: "2026-10-01"})
	require.NoError(t, err)

	program := models.VaccinationProgram{
		Name: "test",
		Steps: []models.ProgramStep{
			{AgeDay: 1, Vaccine: "Marek"},
			{AgeDay: 14, Vaccine: "Gumboro", Method: "drinking water"},
		},
	}
	created, err := svc.ApplyProgram(ctx, "f1", program)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Gumboro", created[0].Vaccine)
	assert.Equal(t, date(2026, 10, 14), created[0].ScheduledDate)

	again, err := svc.ApplyProgram(ctx, "f1", program)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestStatusAndPending(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, date(2026, 10, 16).Add(9*time.Hour))

	overdue, err := svc.Schedule(ctx, "f1", ScheduleRequest{Vaccine: "A", ScheduledDate: "2026-10-10"})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, "f1", ScheduleRequest{Vaccine: "B", ScheduledDate: "2026-10-16"})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, "f1", ScheduleRequest{Vaccine: "C", ScheduledDate: "2026-10-18"})
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, "f1", ScheduleRequest{Vaccine: "D", ScheduledDate: "2026-11-30"})
	require.NoError(t, err)

	views, err := svc.ListForFlock(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, views, 4)
	assert.Equal(t, models.VaccinationOverdue, views[0].Status)
	assert.Equal(t, models.VaccinationDue, views[1].Status)
	assert.Equal(t, models.VaccinationUpcoming, views[2].Status)

	pending, err := svc.Pending(ctx, 3*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	_, err = svc.Administer(ctx, overdue.ID, date(2026, 10, 16))
	require.NoError(t, err)
	_, err = svc.Administer(ctx, overdue.ID, date(2026, 10, 16))
	assert.ErrorIs(t, err, ErrAlreadyAdministered)

	pending, err = svc.Pending(ctx, 3*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestBuildMonthCalendar(t *testing.T) {
	now := date(2026, 10, 16)
	entries := []VaccinationView{
		{Vaccination: models.Vaccination{ID: "v1", ScheduledDate: date(2026, 10, 16)}, Status: models.VaccinationDue},
		{Vaccination: models.Vaccination{ID: "v2", ScheduledDate: date(2026, 9, 29)}, Status: models.VaccinationOverdue},
	}

	cal := BuildMonthCalendar(2026, time.October, entries, now)
	require.Len(t, cal.Weeks, 5)
	for _, week := range cal.Weeks {
		assert.Len(t, week, 7)
	}

	first := cal.Weeks[0][0]
	assert.Equal(t, "2026-09-28", first.Date)
	assert.False(t, first.InMonth)
	assert.Equal(t, "v2", cal.Weeks[0][1].Entries[0].ID)

	// 2026-10-16 is the Friday of the third week.
	cell := cal.Weeks[2][4]
	assert.Equal(t, "2026-10-16", cell.Date)
	assert.True(t, cell.Today)
	assert.True(t, cell.InMonth)
	require.Len(t, cell.Entries, 1)
	assert.Equal(t, "v1", cell.Entries[0].ID)

	last := cal.Weeks[4][6]
	assert.Equal(t, "2026-11-01", last.Date)
	assert.NotNil(t, last.Entries)
}

func TestBuildMonthCalendarExactWeeks(t *testing.T) {
	cal := BuildMonthCalendar(2027, time.February, nil, date(2026, 10, 16))

	require.Len(t, cal.Weeks, 4)
	assert.Equal(t, "2027-02-01", cal.Weeks[0][0].Date)
	assert.Equal(t, "2027-02-28", cal.Weeks[3][6].Date)
}

func TestCalendarRejectsBadMonth(t *testing.T) {
	svc, _ := newTestService(t, date(2026, 10, 16))
	_, err := svc.Calendar(context.Background(), 2026, 13)
	assert.ErrorIs(t, err, ErrInvalidVaccination)
}
