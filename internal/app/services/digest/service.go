// Package digest sends each onboarded user a weekly summary email of their
// ledger activity.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gigledger/gigledger/internal/app/metrics"
	"github.com/gigledger/gigledger/internal/app/services/entries"
	"github.com/gigledger/gigledger/internal/app/storage"
	"github.com/gigledger/gigledger/internal/app/system"
	"github.com/gigledger/gigledger/pkg/logger"
)

// DefaultSchedule fires Monday mornings UTC.
const DefaultSchedule = "0 8 * * 1"

// Mailer delivers a single email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service runs the weekly digest sweep on a cron schedule.
type Service struct {
	users    storage.UserStore
	entries  *entries.Service
	mailer   Mailer
	schedule string
	cron     *cron.Cron
	log      *logger.Logger
	now      func() time.Time
}

var _ system.Service = (*Service)(nil)

// New constructs a digest service. An empty schedule uses DefaultSchedule.
func New(users storage.UserStore, ent *entries.Service, mailer Mailer, schedule string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("digest")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Service{
		users:    users,
		entries:  ent,
		mailer:   mailer,
		schedule: schedule,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Name() string { return "digest" }

// Start registers the cron entry and begins the scheduler.
func (s *Service) Start(_ context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Run(context.Background()); err != nil {
			s.log.WithError(err).Error("digest sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("digest scheduler started")
	return nil
}

// Stop halts the scheduler and waits for an in-flight sweep, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run sweeps every onboarded user once, sending a summary of the trailing
// seven days. Users with no activity are skipped. Per-user mail failures are
// logged and do not abort the sweep.
func (s *Service) Run(ctx context.Context) error {
	start := s.now()
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		metrics.RecordDigestRun(time.Since(start), false)
		return err
	}

	to := s.now().UTC()
	from := to.AddDate(0, 0, -7)
	sent := 0
	for _, u := range users {
		if !u.Onboarded() {
			continue
		}
		summary, err := s.entries.Summarize(ctx, u.ID, from, to)
		if err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Warn("digest summary failed")
			continue
		}
		if summary.EntryCount == 0 {
			continue
		}
		body := fmt.Sprintf(
			"Your week at a glance:\n\nRevenue: %.2f\nExpenses: %.2f\nNet: %.2f\nEntries: %d\n",
			summary.RevenueTotal, summary.ExpenseTotal, summary.Net, summary.EntryCount,
		)
		if err := s.mailer.Send(ctx, u.Email, "Your weekly earnings digest", body); err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Warn("digest mail failed")
			continue
		}
		sent++
	}

	metrics.RecordDigestRun(time.Since(start), true)
	s.log.WithField("sent", sent).Info("digest sweep finished")
	return nil
}
