// Package memory is a mutex-guarded in-process store used for local runs and tests.
// Reads hand out copies so callers never share backing arrays with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/repository"
)

// Repository implements repository.Store in memory.
type Repository struct {
	mu           sync.RWMutex
	flocks       map[string]models.Flock
	logs         map[string][]models.DailyLog
	items        map[string]models.InventoryItem
	vaccinations map[string]models.Vaccination
	reports      []models.DailyReport
}

var _ repository.Store = (*Repository)(nil)

// New returns an empty store.
func New() *Repository {
	return &Repository{
		flocks:       make(map[string]models.Flock),
		logs:         make(map[string][]models.DailyLog),
		items:        make(map[string]models.InventoryItem),
		vaccinations: make(map[string]models.Vaccination),
	}
}

// CreateFlock stores a new flock.
func (r *Repository) CreateFlock(_ context.Context, flock models.Flock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flocks[flock.ID]; exists {
		return repository.ErrConflict
	}
	r.flocks[flock.ID] = flock
	return nil
}

// GetFlock loads a flock by id.
func (r *Repository) GetFlock(_ context.Context, id string) (models.Flock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flock, ok := r.flocks[id]
	if !ok {
		return models.Flock{}, repository.ErrNotFound
	}
	return cloneFlock(flock), nil
}

// ListFlocks returns every flock ordered by start date.
func (r *Repository) ListFlocks(_ context.Context) ([]models.Flock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flocks := make([]models.Flock, 0, len(r.flocks))
	for _, flock := range r.flocks {
		flocks = append(flocks, cloneFlock(flock))
	}
	sort.Slice(flocks, func(i, j int) bool {
		if flocks[i].StartDate.Equal(flocks[j].StartDate) {
			return flocks[i].ID < flocks[j].ID
		}
		return flocks[i].StartDate.Before(flocks[j].StartDate)
	})
	return flocks, nil
}

// DecrementLiveCount lowers the live count under the write lock.
func (r *Repository) DecrementLiveCount(_ context.Context, id string, n int) (models.Flock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flock, ok := r.flocks[id]
	if !ok {
		return models.Flock{}, repository.ErrNotFound
	}
	flock.CurrentCount = max(flock.CurrentCount-n, 0)
	r.flocks[id] = flock
	return cloneFlock(flock), nil
}

// CloseFlock flips an active flock to closed under the write lock.
func (r *Repository) CloseFlock(_ context.Context, id string, at time.Time) (models.Flock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flock, ok := r.flocks[id]
	if !ok {
		return models.Flock{}, repository.ErrNotFound
	}
	if flock.Status == models.FlockClosed {
		return models.Flock{}, repository.ErrConflict
	}
	flock.Status = models.FlockClosed
	flock.ClosedAt = &at
	r.flocks[id] = flock
	return cloneFlock(flock), nil
}

// AppendDailyLog stores a log; a second log for the same day is a conflict.
func (r *Repository) AppendDailyLog(_ context.Context, flockID string, log models.DailyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.logs[flockID] {
		if existing.Day == log.Day {
			return repository.ErrConflict
		}
	}
	r.logs[flockID] = append(r.logs[flockID], cloneLog(log))
	return nil
}

// ListDailyLogs returns the logs of a flock ascending by day.
func (r *Repository) ListDailyLogs(_ context.Context, flockID string) ([]models.DailyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	logs := make([]models.DailyLog, 0, len(r.logs[flockID]))
	for _, log := range r.logs[flockID] {
		logs = append(logs, cloneLog(log))
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Day < logs[j].Day })
	return logs, nil
}

// UpsertItem creates or replaces an inventory item.
func (r *Repository) UpsertItem(_ context.Context, item models.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return nil
}

// GetItem loads an inventory item by id.
func (r *Repository) GetItem(_ context.Context, id string) (models.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return models.InventoryItem{}, repository.ErrNotFound
	}
	return item, nil
}

// ListItems returns all inventory items sorted by name.
func (r *Repository) ListItems(_ context.Context) ([]models.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]models.InventoryItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// AdjustQuantity applies delta under the write lock.
func (r *Repository) AdjustQuantity(_ context.Context, id string, delta float64, at time.Time) (models.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return models.InventoryItem{}, repository.ErrNotFound
	}
	if item.Quantity+delta < 0 {
		return models.InventoryItem{}, repository.ErrInsufficientQuantity
	}
	item.Quantity += delta
	item.UpdatedAt = at
	r.items[id] = item
	return item, nil
}

// SaveVaccination creates or replaces a vaccination record.
func (r *Repository) SaveVaccination(_ context.Context, v models.Vaccination) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vaccinations[v.ID] = cloneVaccination(v)
	return nil
}

// GetVaccination loads a vaccination by id.
func (r *Repository) GetVaccination(_ context.Context, id string) (models.Vaccination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vaccinations[id]
	if !ok {
		return models.Vaccination{}, repository.ErrNotFound
	}
	return cloneVaccination(v), nil
}

// MarkAdministered records the administration date once, under the write lock.
func (r *Repository) MarkAdministered(_ context.Context, id string, at time.Time) (models.Vaccination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vaccinations[id]
	if !ok {
		return models.Vaccination{}, repository.ErrNotFound
	}
	if v.AdministeredAt != nil {
		return models.Vaccination{}, repository.ErrConflict
	}
	v.AdministeredAt = &at
	r.vaccinations[id] = v
	return cloneVaccination(v), nil
}

// ListVaccinations returns a flock's vaccinations by scheduled date.
func (r *Repository) ListVaccinations(_ context.Context, flockID string) ([]models.Vaccination, error) {
	return r.filterVaccinations(func(v models.Vaccination) bool { return v.FlockID == flockID }), nil
}

// ListVaccinationsBetween returns vaccinations scheduled in [from, to).
func (r *Repository) ListVaccinationsBetween(_ context.Context, from, to time.Time) ([]models.Vaccination, error) {
	return r.filterVaccinations(func(v models.Vaccination) bool {
		return !v.ScheduledDate.Before(from) && v.ScheduledDate.Before(to)
	}), nil
}

func (r *Repository) filterVaccinations(keep func(models.Vaccination) bool) []models.Vaccination {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Vaccination{}
	for _, v := range r.vaccinations {
		if keep(v) {
			out = append(out, cloneVaccination(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return out
}

// SaveDailyReport appends a report snapshot.
func (r *Repository) SaveDailyReport(_ context.Context, report models.DailyReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

// DailyReports returns the stored report snapshots.
func (r *Repository) DailyReports() []models.DailyReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DailyReport, len(r.reports))
	copy(out, r.reports)
	return out
}

func cloneFlock(f models.Flock) models.Flock {
	if f.ClosedAt != nil {
		at := *f.ClosedAt
		f.ClosedAt = &at
	}
	return f
}

func cloneLog(l models.DailyLog) models.DailyLog {
	if l.EggDetails != nil {
		details := *l.EggDetails
		l.EggDetails = &details
	}
	return l
}

func cloneVaccination(v models.Vaccination) models.Vaccination {
	if v.AdministeredAt != nil {
		at := *v.AdministeredAt
		v.AdministeredAt = &at
	}
	return v
}

// Close is a no-op.
func (r *Repository) Close(context.Context) error {
	return nil
}
