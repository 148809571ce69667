package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/flockboard/internal/config"
	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/service/health"
)

const (
	jobTimeout     = 2 * time.Minute
	reminderWindow = 3 * 24 * time.Hour
)

// Reporter produces the periodic reports.
type Reporter interface {
	WeeklyReport(ctx context.Context) (string, error)
	SnapshotDay(ctx context.Context, date time.Time) ([]models.DailyReport, error)
}

// VaccinationSource lists vaccinations needing attention.
type VaccinationSource interface {
	Pending(ctx context.Context, window time.Duration) ([]health.VaccinationView, error)
}

// Notifier delivers a text message to a recipient.
type Notifier interface {
	Notify(ctx context.Context, to, message string) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	reports  Reporter
	vaccines VaccinationSource
	notifier Notifier
	cfg      config.Config
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance. A nil notifier keeps the jobs
// running but only logs their output.
func NewScheduler(cfg config.Config, reports Reporter, vaccines VaccinationSource, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location := time.Local
	if cfg.Reporting.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Reporting.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Reporting.Timezone, err)
		}
		location = loc
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		reports:  reports,
		vaccines: vaccines,
		notifier: notifier,
		cfg:      cfg,
		location: location,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"weekly report", s.cfg.Reporting.CronSchedule, s.sendWeeklyReport},
		{"vaccination reminder", s.cfg.Reporting.ReminderSchedule, s.sendVaccinationReminder},
		{"daily snapshot", s.cfg.Reporting.SnapshotSchedule, s.storeDailySnapshot},
	}

	for _, job := range jobs {
		if job.spec == "" {
			s.logger.Info("job disabled", zap.String("job", job.name))
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.name, job.spec, err)
		}
		s.logger.Info("job scheduled", zap.String("job", job.name), zap.String("spec", job.spec))
	}

	s.logger.Info("starting scheduler", zap.String("timezone", s.location.String()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendWeeklyReport() {
	s.logger.Info("generating weekly report")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := s.reports.WeeklyReport(ctx)
	if err != nil {
		s.logger.Error("failed to generate weekly report", zap.Error(err))
		return
	}

	s.deliver(ctx, "weekly report", report)
}

func (s *Scheduler) sendVaccinationReminder() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	pending, err := s.vaccines.Pending(ctx, reminderWindow)
	if err != nil {
		s.logger.Error("failed to load pending vaccinations", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		s.logger.Debug("no vaccinations pending")
		return
	}

	s.deliver(ctx, "vaccination reminder", ReminderText(pending))
}

func (s *Scheduler) storeDailySnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	reports, err := s.reports.SnapshotDay(ctx, s.now().In(s.location))
	if err != nil {
		s.logger.Error("failed to store daily snapshot", zap.Error(err))
		return
	}
	s.logger.Info("daily snapshot complete", zap.Int("flocks", len(reports)))
}

func (s *Scheduler) deliver(ctx context.Context, what, message string) {
	to := s.cfg.WhatsApp.ManagerID
	if s.notifier == nil || to == "" {
		s.logger.Info("no recipient configured, logging "+what, zap.String("message", message))
		return
	}

	if err := s.notifier.Notify(ctx, to, message); err != nil {
		s.logger.Error("failed to send "+what, zap.Error(err))
		return
	}
	s.logger.Info(what + " sent successfully")
}

// ReminderText renders overdue and upcoming vaccinations, overdue first.
func ReminderText(pending []health.VaccinationView) string {
	var overdue, soon []string
	for _, v := range pending {
		line := fmt.Sprintf("- %s: %s (flock %s)", v.ScheduledDate.Format(models.DateLayout), v.Vaccine, v.FlockID)
		if v.Status == models.VaccinationOverdue {
			overdue = append(overdue, line)
		} else {
			soon = append(soon, line)
		}
	}

	var b strings.Builder
	b.WriteString("Vaccination reminder")
	if len(overdue) > 0 {
		b.WriteString("\nOverdue:\n")
		b.WriteString(strings.Join(overdue, "\n"))
	}
	if len(soon) > 0 {
		b.WriteString("\nComing up:\n")
		b.WriteString(strings.Join(soon, "\n"))
	}
	return b.String()
}
