package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/domain/models"
)

// ErrAnalysisDisabled indicates no narrative provider is configured.
var ErrAnalysisDisabled = errors.New("narrative analysis is not configured")

// ErrUnknownKind indicates the requested analysis kind is not supported.
var ErrUnknownKind = errors.New("unknown analysis kind")

// Kind selects the focus of a narrative analysis.
type Kind string

const (
	KindProduction Kind = "production"
	KindMortality  Kind = "mortality"
	KindHealth     Kind = "health"
)

// recentDays bounds how many daily rows are quoted in a prompt.
const recentDays = 14

const systemPrompt = "You are an experienced poultry veterinarian and farm manager. " +
	"Answer in plain language for a farm owner, in at most three short paragraphs, " +
	"and end with concrete actions for the coming week."

// Analyst produces narrative text from a prompt.
type Analyst interface {
	Analyze(ctx context.Context, system, prompt string) (string, error)
}

// OverviewSource loads the derived overview of a flock.
type OverviewSource interface {
	Overview(ctx context.Context, flockID string) (models.Flock, models.FlockOverview, error)
}

// Result is a generated narrative.
type Result struct {
	FlockID     string    `json:"flockId"`
	Kind        Kind      `json:"kind"`
	Narrative   string    `json:"narrative"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Service builds prompts from flock metrics and delegates generation to an Analyst.
type Service struct {
	analyst Analyst
	source  OverviewSource
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a new analysis service. A nil analyst disables generation.
func NewService(analyst Analyst, source OverviewSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{analyst: analyst, source: source, logger: logger, now: time.Now}
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s.analyst != nil
}

// Analyze generates a narrative of the requested kind for a flock.
func (s *Service) Analyze(ctx context.Context, flockID string, kind Kind) (Result, error) {
	if s.analyst == nil {
		return Result{}, ErrAnalysisDisabled
	}
	if kind == "" {
		kind = KindProduction
	}
	switch kind {
	case KindProduction, KindMortality, KindHealth:
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	flock, overview, err := s.source.Overview(ctx, flockID)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	narrative, err := s.analyst.Analyze(ctx, systemPrompt, BuildPrompt(flock, overview, kind))
	if err != nil {
		s.logger.Error("narrative analysis failed", zap.String("flock_id", flockID), zap.String("kind", string(kind)), zap.Error(err))
		return Result{}, fmt.Errorf("generate analysis: %w", err)
	}

	s.logger.Info("narrative analysis generated",
		zap.String("flock_id", flockID),
		zap.String("kind", string(kind)),
		zap.Duration("duration", time.Since(start)))
	return Result{FlockID: flockID, Kind: kind, Narrative: narrative, GeneratedAt: s.now().UTC()}, nil
}

// BuildPrompt renders the flock metrics the model reasons over.
func BuildPrompt(flock models.Flock, overview models.FlockOverview, kind Kind) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Flock %q (%s", flock.Name, flock.BirdType)
	if flock.Breed != "" {
		fmt.Fprintf(&b, ", %s", flock.Breed)
	}
	fmt.Fprintf(&b, "), placed %s with %d birds, %d alive now.\n",
		flock.StartDate.Format(models.DateLayout), flock.InitialCount, flock.CurrentCount)
	fmt.Fprintf(&b, "Logged days: %d. Total mortality: %d (%.2f%% of placed).\n",
		len(overview.Points), overview.TotalMortality, overview.CumulativeMortalityRate)

	if flock.BirdType.LaysEggs() {
		s := overview.Summary
		fmt.Fprintf(&b, "Eggs: total %d, best day %d, average hen-day %.1f%%, hen-housed %.1f%%, last 7 entries hen-day %.1f%%.\n",
			s.TotalProduction, s.MaxDailyProduction, s.AvgHenDayPct, s.AvgHenHousedPct, overview.RecentHenDayPct)
	}
	fmt.Fprintf(&b, "Feed: %.1f kg total", overview.TotalFeedKg)
	if overview.FeedPerEggG > 0 {
		fmt.Fprintf(&b, ", %.0f g per egg", overview.FeedPerEggG)
	}
	fmt.Fprintf(&b, ". Water: %.1f L. Latest average weight: %.0f g.\n", overview.TotalWaterL, overview.LatestAvgWeightG)

	points := overview.Points
	if len(points) > recentDays {
		points = points[len(points)-recentDays:]
	}
	if len(points) > 0 {
		b.WriteString("\nRecent days (day | date | alive | eggs | hen-day % | deaths | mortality % | feed kg | notes):\n")
		for _, p := range points {
			notes := p.Notes
			if p.MortalityReason != "" {
				notes = strings.TrimSpace(notes + " cause: " + p.MortalityReason)
			}
			fmt.Fprintf(&b, "%d | %s | %d | %d | %.1f | %d | %.2f | %.1f | %s\n",
				p.Day, p.Date, p.BirdsAlive, p.EggProduction, p.HenDayPct, p.Mortality, p.DailyMortalityRate, p.FeedConsumedKg, notes)
		}
	}

	b.WriteString("\n")
	switch kind {
	case KindMortality:
		b.WriteString("Assess the mortality pattern, likely causes and whether it needs veterinary attention.")
	case KindHealth:
		b.WriteString("Assess overall flock health from consumption, weight and mortality, and flag warning signs.")
	default:
		b.WriteString("Assess laying performance and feed efficiency against typical targets for this type of flock.")
	}

	return b.String()
}
