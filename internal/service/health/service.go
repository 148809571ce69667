package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/repository"
)

// ErrInvalidVaccination indicates the vaccination payload failed validation.
var ErrInvalidVaccination = errors.New("invalid vaccination")

// ErrAlreadyAdministered indicates the vaccination was already given.
var ErrAlreadyAdministered = errors.New("vaccination already administered")

// overdueLookback bounds how far back reminders look for missed vaccinations.
const overdueLookback = 30 * 24 * time.Hour

// ScheduleRequest describes a vaccination to plan.
type ScheduleRequest struct {
	Vaccine       string `json:"vaccine" binding:"required"`
	Method        string `json:"method"`
	ScheduledDate string `json:"scheduledDate" binding:"required"`
	Notes         string `json:"notes"`
}

// VaccinationView pairs a vaccination with its status at query time.
type VaccinationView struct {
	models.Vaccination
	Status models.VaccinationStatus `json:"status"`
}

// Service schedules and tracks flock vaccinations.
type Service struct {
	flocks repository.FlockRepository
	repo   repository.VaccinationRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new health service.
func NewService(flocks repository.FlockRepository, repo repository.VaccinationRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{flocks: flocks, repo: repo, logger: logger, now: time.Now}
}

// Schedule plans a vaccination for a flock.
func (s *Service) Schedule(ctx context.Context, flockID string, req ScheduleRequest) (models.Vaccination, error) {
	if _, err := s.flocks.GetFlock(ctx, flockID); err != nil {
		return models.Vaccination{}, err
	}

	vaccine := strings.TrimSpace(req.Vaccine)
	if vaccine == "" {
		return models.Vaccination{}, fmt.Errorf("%w: vaccine must be provided", ErrInvalidVaccination)
	}
	date, err := time.Parse(models.DateLayout, req.ScheduledDate)
	if err != nil {
		return models.Vaccination{}, fmt.Errorf("%w: scheduled date must be YYYY-MM-DD", ErrInvalidVaccination)
	}

	v := models.Vaccination{
		ID:            uuid.NewString(),
		FlockID:       flockID,
		Vaccine:       vaccine,
		Method:        strings.TrimSpace(req.Method),
		ScheduledDate: date,
		Notes:         req.Notes,
	}
	if err := s.repo.SaveVaccination(ctx, v); err != nil {
		return models.Vaccination{}, fmt.Errorf("store vaccination: %w", err)
	}

	s.logger.Info("vaccination scheduled",
		zap.String("flock_id", flockID),
		zap.String("vaccine", v.Vaccine),
		zap.String("date", req.ScheduledDate))
	return v, nil
}

// ApplyProgram schedules every program step relative to the flock start date,
// skipping vaccines the flock already has on its schedule.
func (s *Service) ApplyProgram(ctx context.Context, flockID string, program models.VaccinationProgram) ([]models.Vaccination, error) {
	flock, err := s.flocks.GetFlock(ctx, flockID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListVaccinations(ctx, flockID)
	if err != nil {
		return nil, fmt.Errorf("load vaccinations: %w", err)
	}
	scheduled := make(map[string]bool, len(existing))
	for _, v := range existing {
		scheduled[strings.ToLower(v.Vaccine)] = true
	}

	created := []models.Vaccination{}
	for _, step := range program.Steps {
		if scheduled[strings.ToLower(step.Vaccine)] {
			continue
		}
		v := models.Vaccination{
			ID:            uuid.NewString(),
			FlockID:       flockID,
			Vaccine:       step.Vaccine,
			Method:        step.Method,
			ScheduledDate: flock.StartDate.AddDate(0, 0, step.AgeDay-1),
			Notes:         step.Notes,
		}
		if err := s.repo.SaveVaccination(ctx, v); err != nil {
			return created, fmt.Errorf("store vaccination: %w", err)
		}
		scheduled[strings.ToLower(step.Vaccine)] = true
		created = append(created, v)
	}

	s.logger.Info("vaccination program applied",
		zap.String("flock_id", flockID),
		zap.String("program", program.Name),
		zap.Int("created", len(created)))
	return created, nil
}

// Administer records that the vaccination was given at the provided time.
// Only the first of concurrent calls succeeds.
func (s *Service) Administer(ctx context.Context, id string, at time.Time) (models.Vaccination, error) {
	v, err := s.repo.MarkAdministered(ctx, id, at.UTC())
	if errors.Is(err, repository.ErrConflict) {
		return models.Vaccination{}, ErrAlreadyAdministered
	}
	if err != nil {
		return models.Vaccination{}, err
	}

	s.logger.Info("vaccination administered", zap.String("vaccination_id", id), zap.String("flock_id", v.FlockID))
	return v, nil
}

// ListForFlock returns a flock's vaccinations with their current status.
func (s *Service) ListForFlock(ctx context.Context, flockID string) ([]VaccinationView, error) {
	vaccinations, err := s.repo.ListVaccinations(ctx, flockID)
	if err != nil {
		return nil, err
	}
	return s.views(vaccinations), nil
}

// Pending returns vaccinations not yet administered that are overdue or due
// within the next window.
func (s *Service) Pending(ctx context.Context, window time.Duration) ([]VaccinationView, error) {
	now := s.now()
	today := startOfDay(now)
	vaccinations, err := s.repo.ListVaccinationsBetween(ctx, today.Add(-overdueLookback), today.Add(window+24*time.Hour))
	if err != nil {
		return nil, err
	}

	pending := []VaccinationView{}
	for _, v := range s.views(vaccinations) {
		if v.Status != models.VaccinationDone {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

// Calendar loads the vaccinations visible on a month grid.
func (s *Service) Calendar(ctx context.Context, year int, month time.Month) (MonthCalendar, error) {
	if month < time.January || month > time.December {
		return MonthCalendar{}, fmt.Errorf("%w: month must be 1-12", ErrInvalidVaccination)
	}
	from, to := gridBounds(year, month)
	vaccinations, err := s.repo.ListVaccinationsBetween(ctx, from, to)
	if err != nil {
		return MonthCalendar{}, err
	}
	return BuildMonthCalendar(year, month, s.views(vaccinations), s.now()), nil
}

func (s *Service) views(vaccinations []models.Vaccination) []VaccinationView {
	now := s.now()
	out := make([]VaccinationView, len(vaccinations))
	for i, v := range vaccinations {
		out[i] = VaccinationView{Vaccination: v, Status: v.StatusAt(now)}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
