package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/service/health"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrNoActiveFlock indicates the sender's command cannot be tied to a flock.
var ErrNoActiveFlock = errors.New("no flock selected")

// vaccineWindow is how far ahead /vaccines looks.
const vaccineWindow = 7 * 24 * time.Hour

const helpText = "Commands:\n" +
	"/log <deaths> <feed kg> <eggs> [damaged] [notes] - record today\n" +
	"/stats - flock figures\n" +
	"/stock - inventory levels\n" +
	"/vaccines - vaccinations due this week\n" +
	"/use <flock id or name> - choose your flock\n" +
	"/help - this message"

// FlockDirectory resolves flocks for a sender.
type FlockDirectory interface {
	Get(ctx context.Context, id string) (models.Flock, error)
	Active(ctx context.Context) ([]models.Flock, error)
}

// LogRecorder records daily logs and serves their derived view.
type LogRecorder interface {
	Record(ctx context.Context, flockID string, log models.DailyLog) (models.DailyLog, error)
	Overview(ctx context.Context, flockID string) (models.Flock, models.FlockOverview, error)
}

// StockLister lists inventory.
type StockLister interface {
	List(ctx context.Context) ([]models.InventoryItem, error)
}

// VaccinationLister lists pending vaccinations.
type VaccinationLister interface {
	Pending(ctx context.Context, window time.Duration) ([]health.VaccinationView, error)
}

// Sessions remembers which flock each sender works on.
type Sessions interface {
	ActiveFlock(sender string) (string, bool)
	SetActiveFlock(sender, flockID string)
}

// Dispatcher executes parsed commands for a sender and returns the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	flocks   FlockDirectory
	logs     LogRecorder
	stock    StockLister
	vaccines VaccinationLister
	sessions Sessions
	logger   *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(flocks FlockDirectory, logs LogRecorder, stock StockLister, vaccines VaccinationLister, sessions Sessions, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		flocks:   flocks,
		logs:     logs,
		stock:    stock,
		vaccines: vaccines,
		sessions: sessions,
		logger:   logger,
	}
}

// HandleCommand runs the command and renders the reply.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Any("args", cmd.Args))

	switch cmd.Type {
	case models.CommandLog:
		return s.handleLog(ctx, cmd, sender)
	case models.CommandStats:
		return s.handleStats(ctx, sender)
	case models.CommandStock:
		return s.handleStock(ctx)
	case models.CommandVaccines:
		return s.handleVaccines(ctx)
	case models.CommandUse:
		return s.handleUse(ctx, cmd, sender)
	case models.CommandHelp:
		return helpText, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

// Help returns the command summary.
func Help() string {
	return helpText
}

func (s *Service) handleLog(ctx context.Context, cmd models.Command, sender string) (string, error) {
	log, err := buildDailyLog(cmd)
	if err != nil {
		return "", err
	}
	flock, err := s.resolveFlock(ctx, sender)
	if err != nil {
		return "", err
	}

	saved, err := s.logs.Record(ctx, flock.ID, log)
	if err != nil {
		return "", err
	}

	message := fmt.Sprintf("Day %d logged for %s: %d deaths, %.1f kg feed", saved.Day, flock.Name, saved.Mortality, saved.FeedConsumedKg)
	if flock.BirdType.LaysEggs() {
		message += fmt.Sprintf(", %d eggs", saved.EggProduction)
	}
	message += "."

	summary := s.safeSummary(ctx, func(ctx context.Context) (string, error) {
		_, overview, err := s.logs.Overview(ctx, flock.ID)
		if err != nil || len(overview.Points) == 0 {
			return "", err
		}
		last := overview.Points[len(overview.Points)-1]
		if flock.BirdType.LaysEggs() {
			return fmt.Sprintf("Hen-day %.1f%% (7-day %.1f%%), cumulative mortality %.2f%%.",
				last.HenDayPct, last.HenDayMovingAvg, last.CumulativeMortalityRate), nil
		}
		return fmt.Sprintf("Cumulative mortality %.2f%%.", last.CumulativeMortalityRate), nil
	})
	if summary != "" {
		message += "\n" + summary
	}
	return message, nil
}

func (s *Service) handleStats(ctx context.Context, sender string) (string, error) {
	selected, err := s.resolveFlock(ctx, sender)
	if err != nil {
		return "", err
	}
	flock, overview, err := s.logs.Overview(ctx, selected.ID)
	if err != nil {
		return "", err
	}
	if len(overview.Points) == 0 {
		return fmt.Sprintf("%s: no logs yet.", flock.Name), nil
	}

	last := overview.Points[len(overview.Points)-1]
	var b strings.Builder
	fmt.Fprintf(&b, "%s, day %d: %d birds\n", flock.Name, last.Day, flock.CurrentCount)
	fmt.Fprintf(&b, "Mortality: %d (%.2f%%)\n", overview.TotalMortality, overview.CumulativeMortalityRate)
	if flock.BirdType.LaysEggs() {
		fmt.Fprintf(&b, "Eggs: %d total, hen-day %.1f%% (last 7: %.1f%%)\n",
			overview.Summary.TotalProduction, overview.Summary.AvgHenDayPct, overview.RecentHenDayPct)
	}
	fmt.Fprintf(&b, "Feed: %.1f kg", overview.TotalFeedKg)
	if overview.FeedPerEggG > 0 {
		fmt.Fprintf(&b, " (%.0f g/egg)", overview.FeedPerEggG)
	}
	return b.String(), nil
}

func (s *Service) handleStock(ctx context.Context) (string, error) {
	items, err := s.stock.List(ctx)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "No inventory items recorded.", nil
	}

	var b strings.Builder
	b.WriteString("Stock:")
	for _, item := range items {
		fmt.Fprintf(&b, "\n- %s: %.1f %s", item.Name, item.Quantity, item.Unit)
		if item.Low() {
			b.WriteString(" (LOW)")
		}
	}
	return b.String(), nil
}

func (s *Service) handleVaccines(ctx context.Context) (string, error) {
	pending, err := s.vaccines.Pending(ctx, vaccineWindow)
	if err != nil {
		return "", err
	}
	if len(pending) == 0 {
		return "No vaccinations due this week.", nil
	}

	var b strings.Builder
	b.WriteString("Vaccinations:")
	for _, v := range pending {
		fmt.Fprintf(&b, "\n- %s %s", v.ScheduledDate.Format(models.DateLayout), v.Vaccine)
		if v.Method != "" {
			fmt.Fprintf(&b, " (%s)", v.Method)
		}
		fmt.Fprintf(&b, " %s, flock %s", v.Status, s.flockName(ctx, v.FlockID))
	}
	return b.String(), nil
}

func (s *Service) handleUse(ctx context.Context, cmd models.Command, sender string) (string, error) {
	if len(cmd.Args) == 0 {
		return "", fmt.Errorf("%w: usage /use <flock id or name>", ErrInvalidArguments)
	}
	query := strings.Join(cmd.Args, " ")

	active, err := s.flocks.Active(ctx)
	if err != nil {
		return "", err
	}
	for _, flock := range active {
		if strings.EqualFold(flock.ID, query) || strings.EqualFold(flock.Name, query) {
			s.sessions.SetActiveFlock(sender, flock.ID)
			return fmt.Sprintf("Now working on %s.", flock.Name), nil
		}
	}
	return "", fmt.Errorf("%w: no active flock matches %q", ErrInvalidArguments, query)
}

// resolveFlock picks the sender's selected flock, or the only active one.
func (s *Service) resolveFlock(ctx context.Context, sender string) (models.Flock, error) {
	if id, ok := s.sessions.ActiveFlock(sender); ok {
		flock, err := s.flocks.Get(ctx, id)
		if err == nil && flock.Status == models.FlockActive {
			return flock, nil
		}
	}

	active, err := s.flocks.Active(ctx)
	if err != nil {
		return models.Flock{}, err
	}
	switch len(active) {
	case 0:
		return models.Flock{}, fmt.Errorf("%w: there are no active flocks", ErrNoActiveFlock)
	case 1:
		return active[0], nil
	default:
		return models.Flock{}, fmt.Errorf("%w: send /use <flock> first", ErrNoActiveFlock)
	}
}

func (s *Service) flockName(ctx context.Context, id string) string {
	flock, err := s.flocks.Get(ctx, id)
	if err != nil {
		return id
	}
	return flock.Name
}

// buildDailyLog parses "/log <deaths> <feed kg> <eggs> [damaged] [notes...]".
// Notes keep the sender's original casing.
func buildDailyLog(cmd models.Command) (models.DailyLog, error) {
	if len(cmd.Args) < 3 {
		return models.DailyLog{}, fmt.Errorf("%w: usage /log <deaths> <feed kg> <eggs> [damaged] [notes]", ErrInvalidArguments)
	}

	deaths, err := strconv.Atoi(cmd.Args[0])
	if err != nil || deaths < 0 {
		return models.DailyLog{}, fmt.Errorf("%w: deaths must be a whole number", ErrInvalidArguments)
	}
	feed, err := strconv.ParseFloat(strings.ReplaceAll(cmd.Args[1], ",", "."), 64)
	if err != nil || feed < 0 {
		return models.DailyLog{}, fmt.Errorf("%w: feed must be a number of kg", ErrInvalidArguments)
	}
	eggs, err := strconv.Atoi(cmd.Args[2])
	if err != nil || eggs < 0 {
		return models.DailyLog{}, fmt.Errorf("%w: eggs must be a whole number", ErrInvalidArguments)
	}

	log := models.DailyLog{Mortality: deaths, FeedConsumedKg: feed, EggProduction: eggs}

	notesFrom := 4
	if len(cmd.Args) > 3 {
		damaged, err := strconv.Atoi(cmd.Args[3])
		if err != nil {
			notesFrom = 3
		} else if damaged < 0 {
			return models.DailyLog{}, fmt.Errorf("%w: damaged must not be negative", ErrInvalidArguments)
		} else if damaged > 0 {
			log.EggDetails = &models.EggDetails{CollectedMorning: eggs, DamagedMorning: damaged}
		}
	}

	// Raw holds the command word plus the original-case arguments.
	raw := strings.Fields(cmd.Raw)
	if len(raw) > notesFrom+1 {
		log.Notes = strings.Join(raw[notesFrom+1:], " ")
	}
	return log, nil
}

func (s *Service) safeSummary(ctx context.Context, fn func(context.Context) (string, error)) string {
	summary, err := fn(ctx)
	if err != nil {
		s.logger.Warn("failed to compute summary", zap.Error(err))
		return ""
	}
	return summary
}
