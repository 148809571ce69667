package logs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/metrics"
	"github.com/mamadbah2/flockboard/internal/repository"
	"github.com/mamadbah2/flockboard/internal/service/flocks"
)

// ErrInvalidLog indicates the daily log failed validation.
var ErrInvalidLog = errors.New("invalid daily log")

// ErrDuplicateDay indicates a log already exists for that day.
var ErrDuplicateDay = errors.New("daily log already recorded for that day")

// StockAdjuster applies inventory side effects of a daily log.
type StockAdjuster interface {
	Adjust(ctx context.Context, id string, delta float64) (models.InventoryItem, error)
}

// StockItems names the inventory lines touched by log capture.
type StockItems struct {
	FeedItemID string
	EggItemID  string
}

// Service records daily logs and serves the derived views of a flock.
type Service struct {
	flocks    repository.FlockRepository
	logs      repository.LogRepository
	inventory StockAdjuster
	items     StockItems
	logger    *zap.Logger
	now       func() time.Time
	location  *time.Location

	// mu serializes day assignment and inventory side effects.
	mu sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used to date logs sent without a date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the farm timezone that decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewService wires a new log capture service.
func NewService(flockRepo repository.FlockRepository, logRepo repository.LogRepository, inventory StockAdjuster, items StockItems, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		flocks:    flockRepo,
		logs:      logRepo,
		inventory: inventory,
		items:     items,
		logger:    logger,
		now:       time.Now,
		location:  time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record validates a log, deducts feed and credits saleable eggs in inventory,
// appends the log and lowers the flock's live count by the day's mortality.
// A log without day or date is for today; a missing day is the flock age on
// the log date and a missing date follows from the day.
func (s *Service) Record(ctx context.Context, flockID string, log models.DailyLog) (models.DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flock, err := s.flocks.GetFlock(ctx, flockID)
	if err != nil {
		return models.DailyLog{}, err
	}
	if flock.Status == models.FlockClosed {
		return models.DailyLog{}, flocks.ErrFlockClosed
	}

	if err := validate(log); err != nil {
		return models.DailyLog{}, err
	}

	log, err = s.placeInTime(flock, log)
	if err != nil {
		return models.DailyLog{}, err
	}

	existing, err := s.logs.ListDailyLogs(ctx, flockID)
	if err != nil {
		return models.DailyLog{}, fmt.Errorf("load daily logs: %w", err)
	}
	for _, prev := range existing {
		if prev.Day == log.Day || prev.Date == log.Date {
			return models.DailyLog{}, fmt.Errorf("%w: day %d (%s)", ErrDuplicateDay, log.Day, log.Date)
		}
	}

	undo, err := s.applyStock(ctx, log)
	if err != nil {
		return models.DailyLog{}, err
	}

	if err := s.logs.AppendDailyLog(ctx, flockID, log); err != nil {
		undo(ctx)
		if errors.Is(err, repository.ErrConflict) {
			return models.DailyLog{}, fmt.Errorf("%w: day %d", ErrDuplicateDay, log.Day)
		}
		return models.DailyLog{}, fmt.Errorf("append daily log: %w", err)
	}

	if log.Mortality > 0 {
		if _, err := s.flocks.DecrementLiveCount(ctx, flockID, log.Mortality); err != nil {
			s.logger.Error("failed to update live count", zap.String("flock_id", flockID), zap.Error(err))
		}
	}

	s.logger.Info("daily log recorded",
		zap.String("flock_id", flockID),
		zap.Int("day", log.Day),
		zap.Int("mortality", log.Mortality),
		zap.Int("eggs", log.EggProduction),
		zap.Float64("feed_kg", log.FeedConsumedKg))
	return log, nil
}

// Enriched returns the derived series, ascending by day unless newestFirst is set.
func (s *Service) Enriched(ctx context.Context, flockID string, newestFirst bool) ([]models.EnrichedLog, error) {
	flock, logs, err := s.load(ctx, flockID)
	if err != nil {
		return nil, err
	}
	enriched := metrics.DeriveEnrichedLogs(flock.Snapshot(), logs)
	if newestFirst {
		return metrics.NewestFirst(enriched), nil
	}
	return enriched, nil
}

// Summary returns the production summary of a flock.
func (s *Service) Summary(ctx context.Context, flockID string) (models.SummaryMetrics, error) {
	enriched, err := s.Enriched(ctx, flockID, false)
	if err != nil {
		return models.SummaryMetrics{}, err
	}
	return metrics.Summarize(enriched), nil
}

// Overview returns the detail view of a flock.
func (s *Service) Overview(ctx context.Context, flockID string) (models.Flock, models.FlockOverview, error) {
	flock, logs, err := s.load(ctx, flockID)
	if err != nil {
		return models.Flock{}, models.FlockOverview{}, err
	}
	return flock, metrics.DeriveFlockOverviewMetrics(flock.Snapshot(), logs), nil
}

func (s *Service) load(ctx context.Context, flockID string) (models.Flock, []models.DailyLog, error) {
	flock, err := s.flocks.GetFlock(ctx, flockID)
	if err != nil {
		return models.Flock{}, nil, err
	}
	logs, err := s.logs.ListDailyLogs(ctx, flockID)
	if err != nil {
		return models.Flock{}, nil, fmt.Errorf("load daily logs: %w", err)
	}
	return flock, logs, nil
}

// applyStock performs the inventory side effects and returns a compensating undo.
// Untracked items are skipped.
func (s *Service) applyStock(ctx context.Context, log models.DailyLog) (func(context.Context), error) {
	var applied []stockDelta
	undo := func(ctx context.Context) {
		for _, d := range applied {
			if _, err := s.inventory.Adjust(ctx, d.id, -d.delta); err != nil {
				s.logger.Error("failed to roll back inventory", zap.String("item_id", d.id), zap.Error(err))
			}
		}
	}

	if s.inventory == nil {
		return undo, nil
	}

	deltas := []stockDelta{
		{id: s.items.FeedItemID, delta: -log.FeedConsumedKg},
		{id: s.items.EggItemID, delta: float64(log.EggProduction - log.EggDetails.Damaged())},
	}
	for _, d := range deltas {
		if d.id == "" || d.delta == 0 {
			continue
		}
		_, err := s.inventory.Adjust(ctx, d.id, d.delta)
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("inventory item not tracked, skipping", zap.String("item_id", d.id))
			continue
		}
		if err != nil {
			undo(ctx)
			return nil, err
		}
		applied = append(applied, d)
	}

	return undo, nil
}

type stockDelta struct {
	id    string
	delta float64
}

func validate(log models.DailyLog) error {
	switch {
	case log.Mortality < 0:
		return fmt.Errorf("%w: mortality must not be negative", ErrInvalidLog)
	case log.FeedConsumedKg < 0, log.WaterConsumedL < 0, log.AvgWeightG < 0:
		return fmt.Errorf("%w: consumption and weight must not be negative", ErrInvalidLog)
	case log.EggProduction < 0:
		return fmt.Errorf("%w: egg production must not be negative", ErrInvalidLog)
	}

	if d := log.EggDetails; d != nil {
		if d.CollectedMorning < 0 || d.CollectedAfternoon < 0 || d.DamagedMorning < 0 || d.DamagedAfternoon < 0 {
			return fmt.Errorf("%w: egg details must not be negative", ErrInvalidLog)
		}
		if d.Damaged() > log.EggProduction {
			return fmt.Errorf("%w: damaged eggs exceed production", ErrInvalidLog)
		}
	}

	if log.Date != "" {
		if _, err := time.Parse(models.DateLayout, log.Date); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidLog)
		}
	}
	return nil
}

// placeInTime fills Day and Date. validate has already checked the date format.
func (s *Service) placeInTime(flock models.Flock, log models.DailyLog) (models.DailyLog, error) {
	if log.Day > 0 {
		if log.Date == "" {
			log.Date = flock.StartDate.AddDate(0, 0, log.Day-1).Format(models.DateLayout)
		}
		return log, nil
	}

	if log.Date == "" {
		log.Date = s.now().In(s.location).Format(models.DateLayout)
	}
	date, _ := time.Parse(models.DateLayout, log.Date)
	log.Day = flock.AgeInDays(date)
	if log.Day < 1 {
		return models.DailyLog{}, fmt.Errorf("%w: %s is before the flock was placed", ErrInvalidLog, log.Date)
	}
	return log, nil
}
