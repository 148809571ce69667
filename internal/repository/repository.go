package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mamadbah2/flockboard/internal/domain/models"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a write collides with an existing record.
var ErrConflict = errors.New("record already exists")

// ErrInsufficientQuantity is returned when a stock adjustment would go below zero.
var ErrInsufficientQuantity = errors.New("insufficient quantity")

// FlockRepository persists flock aggregates.
type FlockRepository interface {
	CreateFlock(ctx context.Context, flock models.Flock) error
	GetFlock(ctx context.Context, id string) (models.Flock, error)
	ListFlocks(ctx context.Context) ([]models.Flock, error)
	// DecrementLiveCount lowers CurrentCount by n in one write, floored at zero.
	DecrementLiveCount(ctx context.Context, id string, n int) (models.Flock, error)
	// CloseFlock marks an active flock closed; an already closed flock is ErrConflict.
	CloseFlock(ctx context.Context, id string, at time.Time) (models.Flock, error)
}

// LogRepository persists the append-only daily logs of a flock.
type LogRepository interface {
	AppendDailyLog(ctx context.Context, flockID string, log models.DailyLog) error
	ListDailyLogs(ctx context.Context, flockID string) ([]models.DailyLog, error)
}

// InventoryRepository persists stock items.
type InventoryRepository interface {
	UpsertItem(ctx context.Context, item models.InventoryItem) error
	GetItem(ctx context.Context, id string) (models.InventoryItem, error)
	ListItems(ctx context.Context) ([]models.InventoryItem, error)
	// AdjustQuantity applies delta atomically and fails with ErrInsufficientQuantity
	// rather than letting the quantity drop below zero.
	AdjustQuantity(ctx context.Context, id string, delta float64, at time.Time) (models.InventoryItem, error)
}

// VaccinationRepository persists vaccination schedules.
type VaccinationRepository interface {
	SaveVaccination(ctx context.Context, v models.Vaccination) error
	GetVaccination(ctx context.Context, id string) (models.Vaccination, error)
	// MarkAdministered sets AdministeredAt only while it is unset; otherwise ErrConflict.
	MarkAdministered(ctx context.Context, id string, at time.Time) (models.Vaccination, error)
	ListVaccinations(ctx context.Context, flockID string) ([]models.Vaccination, error)
	ListVaccinationsBetween(ctx context.Context, from, to time.Time) ([]models.Vaccination, error)
}

// ReportRepository stores daily report snapshots.
type ReportRepository interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Store is the full persistence surface used by the application.
type Store interface {
	FlockRepository
	LogRepository
	InventoryRepository
	VaccinationRepository
	ReportRepository
	Close(ctx context.Context) error
}
