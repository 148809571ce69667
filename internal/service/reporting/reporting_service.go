package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/metrics"
	"github.com/mamadbah2/flockboard/internal/repository"
)

// ErrExportDisabled is returned when no spreadsheet is configured.
var ErrExportDisabled = errors.New("spreadsheet export is not configured")

// weeklyWindow is the number of trailing log entries covered by the weekly report.
const weeklyWindow = 7

const snapshotSheet = "Daily Reports"

var exportHeader = []interface{}{
	"Day", "Date", "Birds alive", "Eggs", "Damaged", "Saleable", "Hen-day %", "Hen-housed %",
	"Quality %", "Mortality", "Feed (kg)", "Water (L)", "Avg weight (g)", "Notes",
}

// FlockSource resolves flocks.
type FlockSource interface {
	Get(ctx context.Context, id string) (models.Flock, error)
	Active(ctx context.Context) ([]models.Flock, error)
}

// StockSource lists inventory below threshold.
type StockSource interface {
	LowStock(ctx context.Context) ([]models.InventoryItem, error)
}

// SheetWriter is the subset of spreadsheet operations used by exports.
type SheetWriter interface {
	EnsureSheet(ctx context.Context, title string) error
	ReplaceRange(ctx context.Context, sheetRange string, rows [][]interface{}) error
	AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

// Service builds periodic reports from engine-derived metrics.
type Service struct {
	flocks  FlockSource
	logs    repository.LogRepository
	reports repository.ReportRepository
	stock   StockSource
	sheets  SheetWriter
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a new reporting service instance. A nil sheets writer disables exports.
func NewService(flocks FlockSource, logs repository.LogRepository, reports repository.ReportRepository, stock StockSource, sheets SheetWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		flocks:  flocks,
		logs:    logs,
		reports: reports,
		stock:   stock,
		sheets:  sheets,
		logger:  logger,
		now:     time.Now,
	}
}

// WeeklyReport summarizes the last seven logged days of every active flock.
func (s *Service) WeeklyReport(ctx context.Context) (string, error) {
	flocks, err := s.flocks.Active(ctx)
	if err != nil {
		return "", fmt.Errorf("load active flocks: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly report (%s)\n", s.now().Format(models.DateLayout))

	if len(flocks) == 0 {
		b.WriteString("No active flocks.")
		return b.String(), nil
	}

	for _, flock := range flocks {
		logs, err := s.logs.ListDailyLogs(ctx, flock.ID)
		if err != nil {
			return "", fmt.Errorf("load logs for flock %s: %w", flock.ID, err)
		}
		b.WriteString("\n")
		b.WriteString(FlockWeek(flock, logs))
	}

	if low := s.lowStockNames(ctx); len(low) > 0 {
		fmt.Fprintf(&b, "\nLow stock: %s", strings.Join(low, ", "))
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// FlockWeek renders one flock's section of the weekly report. The population
// baseline comes from the full history; only the trailing window is aggregated.
func FlockWeek(flock models.Flock, logs []models.DailyLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%s), %d birds\n", flock.Name, flock.BirdType, flock.CurrentCount)

	enriched := metrics.DeriveEnrichedLogs(flock.Snapshot(), logs)
	if len(enriched) == 0 {
		b.WriteString("No logs yet.\n")
		return b.String()
	}
	if len(enriched) > weeklyWindow {
		enriched = enriched[len(enriched)-weeklyWindow:]
	}

	var deaths int
	var feed float64
	for _, log := range enriched {
		deaths += log.Mortality
		feed += log.FeedConsumedKg
	}
	first, last := enriched[0], enriched[len(enriched)-1]
	fmt.Fprintf(&b, "Days %d-%d (%d logged)\n", first.Day, last.Day, len(enriched))

	if flock.BirdType.LaysEggs() {
		summary := metrics.Summarize(enriched)
		fmt.Fprintf(&b, "Eggs: %d, avg hen-day %.1f%%, best day %d\n",
			summary.TotalProduction, summary.AvgHenDayPct, summary.MaxDailyProduction)
	}

	startAlive := first.BirdsAlive
	rate := 0.0
	if startAlive > 0 {
		rate = float64(deaths) / float64(startAlive) * 100
	}
	fmt.Fprintf(&b, "Mortality: %d (%.2f%%)\n", deaths, rate)
	fmt.Fprintf(&b, "Feed: %.1f kg\n", feed)
	return b.String()
}

// SnapshotDay persists one DailyReport per active flock for the given date.
func (s *Service) SnapshotDay(ctx context.Context, date time.Time) ([]models.DailyReport, error) {
	flocks, err := s.flocks.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active flocks: %w", err)
	}

	low := s.lowStockNames(ctx)
	key := date.Format(models.DateLayout)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	reports := make([]models.DailyReport, 0, len(flocks))
	for _, flock := range flocks {
		logs, err := s.logs.ListDailyLogs(ctx, flock.ID)
		if err != nil {
			return reports, fmt.Errorf("load logs for flock %s: %w", flock.ID, err)
		}

		report := models.DailyReport{
			FlockID:       flock.ID,
			FlockName:     flock.Name,
			Date:          day,
			Day:           flock.AgeInDays(date),
			BirdsAlive:    flock.CurrentCount,
			LowStockItems: low,
			CreatedAt:     s.now().UTC(),
		}

		overview := metrics.DeriveFlockOverviewMetrics(flock.Snapshot(), logs)
		for _, point := range overview.Points {
			if point.Date != key {
				continue
			}
			report.Day = point.Day
			report.BirdsAlive = point.BirdsAlive
			report.EggsCollected = point.EggProduction
			report.SaleableEggs = point.Saleable
			report.HenDayPct = point.HenDayPct
			report.Mortality = point.Mortality
			report.MortalityRate = point.DailyMortalityRate
			report.FeedConsumed = point.FeedConsumedKg
			report.WaterConsumed = point.WaterConsumedL
			break
		}

		if err := s.reports.SaveDailyReport(ctx, report); err != nil {
			return reports, fmt.Errorf("save daily report for flock %s: %w", flock.ID, err)
		}
		reports = append(reports, report)
	}

	s.logger.Info("daily snapshot stored", zap.String("date", key), zap.Int("flocks", len(reports)))
	s.mirrorSnapshot(ctx, reports)
	return reports, nil
}

// mirrorSnapshot appends stored snapshots to the shared sheet. Failures are
// only logged.
func (s *Service) mirrorSnapshot(ctx context.Context, reports []models.DailyReport) {
	if s.sheets == nil || len(reports) == 0 {
		return
	}

	rows := make([][]interface{}, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []interface{}{
			r.Date.Format(models.DateLayout),
			r.FlockName,
			r.Day,
			r.BirdsAlive,
			r.EggsCollected,
			r.HenDayPct,
			r.Mortality,
			r.FeedConsumed,
			strings.Join(r.LowStockItems, ", "),
		})
	}

	if err := s.sheets.EnsureSheet(ctx, snapshotSheet); err != nil {
		s.logger.Warn("snapshot sheet unavailable", zap.Error(err))
		return
	}
	if err := s.sheets.AppendRows(ctx, fmt.Sprintf("'%s'!A1", snapshotSheet), rows); err != nil {
		s.logger.Warn("failed mirroring snapshot", zap.Error(err))
	}
}

// ExportFlock writes the enriched history of a flock to its own sheet tab and
// returns the number of data rows written.
func (s *Service) ExportFlock(ctx context.Context, flockID string) (int, error) {
	if s.sheets == nil {
		return 0, ErrExportDisabled
	}

	flock, err := s.flocks.Get(ctx, flockID)
	if err != nil {
		return 0, err
	}
	logs, err := s.logs.ListDailyLogs(ctx, flockID)
	if err != nil {
		return 0, fmt.Errorf("load logs: %w", err)
	}

	enriched := metrics.DeriveEnrichedLogs(flock.Snapshot(), logs)
	rows := make([][]interface{}, 0, len(enriched)+1)
	rows = append(rows, exportHeader)
	for _, log := range enriched {
		rows = append(rows, exportRow(log))
	}

	title := SheetTitle(flock)
	if err := s.sheets.EnsureSheet(ctx, title); err != nil {
		return 0, fmt.Errorf("prepare sheet: %w", err)
	}
	if err := s.sheets.ReplaceRange(ctx, fmt.Sprintf("'%s'!A1", title), rows); err != nil {
		return 0, fmt.Errorf("write sheet: %w", err)
	}

	s.logger.Info("flock exported", zap.String("flock_id", flockID), zap.String("sheet", title), zap.Int("rows", len(enriched)))
	return len(enriched), nil
}

// SheetTitle derives a tab name that the Sheets API accepts.
func SheetTitle(flock models.Flock) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\', '\'':
			return '-'
		}
		return r
	}, strings.TrimSpace(flock.Name))
	if name == "" {
		name = flock.ID
	}
	if runes := []rune(name); len(runes) > 90 {
		name = string(runes[:90])
	}
	return name
}

func exportRow(log models.EnrichedLog) []interface{} {
	return []interface{}{
		log.Day,
		log.Date,
		log.BirdsAlive,
		log.EggProduction,
		log.Rejected,
		log.Saleable,
		round2(log.HenDayPct),
		round2(log.HenHousedPct),
		round2(log.QualityPct),
		log.Mortality,
		log.FeedConsumedKg,
		log.WaterConsumedL,
		log.AvgWeightG,
		log.Notes,
	}
}

func (s *Service) lowStockNames(ctx context.Context) []string {
	if s.stock == nil {
		return nil
	}
	items, err := s.stock.LowStock(ctx)
	if err != nil {
		s.logger.Warn("low stock lookup failed", zap.Error(err))
		return nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, fmt.Sprintf("%s (%.1f %s)", item.Name, item.Quantity, item.Unit))
	}
	return names
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
