package inventory

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

// ErrInsufficientStock indicates a deduction larger than the quantity on hand.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidItem indicates the item payload failed validation.
var ErrInvalidItem = errors.New("invalid inventory item")

// Service manages farm stock.
type Service struct {
	repo   repository.InventoryRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new inventory service.
func NewService(repo repository.InventoryRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Upsert validates and stores an item. An empty ID gets a generated one.
func (s *Service) Upsert(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return models.InventoryItem{}, fmt.Errorf("%w: name must be provided", ErrInvalidItem)
	}
	if item.Category == "" {
		item.Category = models.CategoryOther
	}
	if !item.Category.Valid() {
		return models.InventoryItem{}, fmt.Errorf("%w: unknown category %q", ErrInvalidItem, item.Category)
	}
	if item.Quantity < 0 || item.MinThreshold < 0 {
		return models.InventoryItem{}, fmt.Errorf("%w: quantities must not be negative", ErrInvalidItem)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.UpdatedAt = s.now().UTC()

	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return models.InventoryItem{}, fmt.Errorf("store inventory item: %w", err)
	}
	return item, nil
}

// List returns all items.
func (s *Service) List(ctx context.Context) ([]models.InventoryItem, error) {
	return s.repo.ListItems(ctx)
}

// Get loads one item.
func (s *Service) Get(ctx context.Context, id string) (models.InventoryItem, error) {
	return s.repo.GetItem(ctx, id)
}

// Adjust changes the quantity on hand by delta. Stock never goes below zero.
func (s *Service) Adjust(ctx context.Context, id string, delta float64) (models.InventoryItem, error) {
	item, err := s.repo.AdjustQuantity(ctx, id, delta, s.now().UTC())
	if errors.Is(err, repository.ErrInsufficientQuantity) {
		return models.InventoryItem{}, fmt.Errorf("%w: %s", ErrInsufficientStock, id)
	}
	if err != nil {
		return models.InventoryItem{}, err
	}

	s.logger.Debug("inventory adjusted",
		zap.String("item_id", id),
		zap.Float64("delta", delta),
		zap.Float64("quantity", item.Quantity))
	if item.Low() {
		s.logger.Warn("inventory below threshold",
			zap.String("item_id", item.ID),
			zap.String("name", item.Name),
			zap.Float64("quantity", item.Quantity),
			zap.Float64("threshold", item.MinThreshold))
	}
	return item, nil
}

// LowStock lists items at or under their reorder threshold.
func (s *Service) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	low := []models.InventoryItem{}
	for _, item := range items {
		if item.Low() {
			low = append(low, item)
		}
	}
	return low, nil
}
