package flocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/repository"
)

// ErrInvalidFlock indicates the flock payload failed validation.
var ErrInvalidFlock = errors.New("invalid flock")

// ErrFlockClosed indicates the flock no longer accepts updates.
var ErrFlockClosed = errors.New("flock is closed")

// CreateRequest describes a new flock placement.
type CreateRequest struct {
	Name         string          `json:"name" binding:"required"`
	House        string          `json:"house"`
	Breed        string          `json:"breed"`
	BirdType     models.BirdType `json:"birdType" binding:"required"`
	InitialCount int             `json:"initialCount" binding:"required"`
	StartDate    string          `json:"startDate" binding:"required"`
}

// Service manages the flock registry.
type Service struct {
	repo   repository.FlockRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new flock service.
func NewService(repo repository.FlockRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Create validates and stores a new flock with its full placed population alive.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Flock, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Flock{}, fmt.Errorf("%w: name must be provided", ErrInvalidFlock)
	}
	if !req.BirdType.Valid() {
		return models.Flock{}, fmt.Errorf("%w: unknown bird type %q", ErrInvalidFlock, req.BirdType)
	}
	if req.InitialCount <= 0 {
		return models.Flock{}, fmt.Errorf("%w: initial count must be positive", ErrInvalidFlock)
	}
	start, err := time.Parse(models.DateLayout, req.StartDate)
	if err != nil {
		return models.Flock{}, fmt.Errorf("%w: start date must be YYYY-MM-DD", ErrInvalidFlock)
	}

	flock := models.Flock{
		ID:           uuid.NewString(),
		Name:         name,
		House:        strings.TrimSpace(req.House),
		Breed:        strings.TrimSpace(req.Breed),
		BirdType:     req.BirdType,
		InitialCount: req.InitialCount,
		CurrentCount: req.InitialCount,
		StartDate:    start,
		Status:       models.FlockActive,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.CreateFlock(ctx, flock); err != nil {
		return models.Flock{}, fmt.Errorf("store flock: %w", err)
	}

	s.logger.Info("flock created",
		zap.String("flock_id", flock.ID),
		zap.String("name", flock.Name),
		zap.String("bird_type", string(flock.BirdType)),
		zap.Int("initial_count", flock.InitialCount))
	return flock, nil
}

// Get loads one flock.
func (s *Service) Get(ctx context.Context, id string) (models.Flock, error) {
	return s.repo.GetFlock(ctx, id)
}

// List returns active flocks first, each group ordered by start date.
func (s *Service) List(ctx context.Context) ([]models.Flock, error) {
	flocks, err := s.repo.ListFlocks(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(flocks, func(i, j int) bool {
		ai, aj := flocks[i].Status == models.FlockActive, flocks[j].Status == models.FlockActive
		if ai != aj {
			return ai
		}
		return flocks[i].StartDate.Before(flocks[j].StartDate)
	})
	return flocks, nil
}

// Active returns only flocks still housed.
func (s *Service) Active(ctx context.Context) ([]models.Flock, error) {
	flocks, err := s.repo.ListFlocks(ctx)
	if err != nil {
		return nil, err
	}
	active := flocks[:0]
	for _, flock := range flocks {
		if flock.Status == models.FlockActive {
			active = append(active, flock)
		}
	}
	return active, nil
}

// Close marks the flock as depopulated.
func (s *Service) Close(ctx context.Context, id string) (models.Flock, error) {
	flock, err := s.repo.CloseFlock(ctx, id, s.now().UTC())
	if errors.Is(err, repository.ErrConflict) {
		return models.Flock{}, ErrFlockClosed
	}
	if err != nil {
		return models.Flock{}, err
	}

	s.logger.Info("flock closed", zap.String("flock_id", flock.ID))
	return flock, nil
}
