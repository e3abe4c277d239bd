package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/metrics"
	"github.com/TraderInsightsLab/Sistem/internal/repository"
	"github.com/TraderInsightsLab/Sistem/internal/session"
)

// Housekeeping is the part of the store the scheduler queries.
type Housekeeping interface {
	StaleSessions(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
	PaidUnreported(ctx context.Context, limit int) ([]uuid.UUID, error)
	CountByState(ctx context.Context) ([]repository.StateCount, error)
}

type SchedulerConfig struct {
	CleanupSpec     string
	ReportRetrySpec string
	StatsSpec       string
	StaleAfter      time.Duration
	BatchSize       int
}

// Scheduler runs the periodic housekeeping jobs.
type Scheduler struct {
	cfg      SchedulerConfig
	cron     *cron.Cron
	sessions *session.Service
	store    Housekeeping
	reports  *ReportService
	metrics  *metrics.Funnel
	log      *zap.Logger
	now      func() time.Time
}

func NewScheduler(cfg SchedulerConfig, sessions *session.Service, store Housekeeping, reports *ReportService, m *metrics.Funnel, log *zap.Logger) *Scheduler {
	if cfg.CleanupSpec == "" {
		cfg.CleanupSpec = "@daily"
	}
	if cfg.ReportRetrySpec == "" {
		cfg.ReportRetrySpec = "@every 15m"
	}
	if cfg.StatsSpec == "" {
		cfg.StatsSpec = "@every 1m"
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 7 * 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Scheduler{
		cfg:      cfg,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		sessions: sessions,
		store:    store,
		reports:  reports,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"abandon-stale-sessions", s.cfg.CleanupSpec, func(ctx context.Context) error { _, err := s.AbandonStale(ctx); return err }},
		{"retry-pending-reports", s.cfg.ReportRetrySpec, func(ctx context.Context) error { _, err := s.RetryReports(ctx); return err }},
		{"refresh-session-stats", s.cfg.StatsSpec, s.RefreshStats},
	}
	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() {
			s.log.Debug("Running job", zap.String("job", job.name))
			if err := job.run(context.Background()); err != nil {
				s.log.Error("Job failed", zap.String("job", job.name), zap.Error(err))
			}
		}); err != nil {
			return err
		}
		s.log.Info("Job registered", zap.String("job", job.name), zap.String("schedule", job.spec))
	}
	s.cron.Start()
	s.log.Info("Scheduler started")
	return nil
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

// AbandonStale closes sessions left open longer than StaleAfter.
func (s *Scheduler) AbandonStale(ctx context.Context) (int, error) {
	ids, err := s.store.StaleSessions(ctx, s.now().Add(-s.cfg.StaleAfter), s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, id := range ids {
		if err := s.sessions.Abandon(ctx, id); err != nil {
			s.log.Warn("Failed to abandon session", zap.String("sessionID", id.String()), zap.Error(err))
			continue
		}
		closed++
	}
	if closed > 0 {
		s.log.Info("Abandoned stale sessions", zap.Int("count", closed))
	}
	return closed, nil
}

// RetryReports attempts delivery for paid sessions whose report is still pending.
func (s *Scheduler) RetryReports(ctx context.Context) (int, error) {
	ids, err := s.store.PaidUnreported(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, id := range ids {
		if err := s.reports.Deliver(ctx, id); err != nil {
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Scheduler) RefreshStats(ctx context.Context) error {
	counts, err := s.store.CountByState(ctx)
	if err != nil {
		return err
	}
	byState := make(map[string]int64, len(counts))
	for _, c := range counts {
		byState[string(c.State)] = c.Count
	}
	s.metrics.SetSessionsByState(byState)
	return nil
}
