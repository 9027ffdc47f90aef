package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"real-estate-matching/internal/cleanup"
	"real-estate-matching/internal/config"
	"real-estate-matching/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Expirer runs the stale listing sweep
type Expirer interface {
	ExpireStaleListings(ctx context.Context, config cleanup.ExpiryConfig) (*cleanup.ExpiryResult, error)
}

// Aggregator builds the daily analytics record
type Aggregator interface {
	GenerateDaily(ctx context.Context) (*models.DailyAnalytics, error)
}

// Scheduler handles the scheduled maintenance jobs
type Scheduler struct {
	cron      *cron.Cron
	expirer   Expirer
	analytics Aggregator
	config    config.SchedulerConfig
	logger    *zap.Logger

	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler whose daily specs are evaluated in loc
func NewScheduler(expirer Expirer, analytics Aggregator, cfg config.SchedulerConfig, loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		expirer:   expirer,
		analytics: analytics,
		config:    cfg,
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("scheduled jobs are disabled in configuration")
		return nil
	}

	expirySpec := s.config.ExpirySchedule
	if expirySpec == "" {
		expirySpec = "@every 24h"
	}
	if _, err := s.cron.AddFunc(expirySpec, func() {
		s.runExpiry(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule expiry %q: %w", expirySpec, err)
	}

	analyticsSpec := s.parseDailyRunTime(s.config.AnalyticsRunTime)
	if _, err := s.cron.AddFunc(analyticsSpec, func() {
		s.runAnalytics(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule analytics %q: %w", analyticsSpec, err)
	}

	s.cron.Start()
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	s.logger.Info("scheduler started",
		zap.String("expiry", expirySpec),
		zap.String("analytics", analyticsSpec),
	)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		s.logger.Info("scheduler stopped")
	}
}

// Run starts the scheduler and blocks until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// RunExpiryNow immediately executes the expiry job (for manual trigger)
func (s *Scheduler) RunExpiryNow(ctx context.Context, cfg cleanup.ExpiryConfig) (*cleanup.ExpiryResult, error) {
	s.logger.Info("manual trigger: expiry",
		zap.Int("retention_days", cfg.RetentionDays),
		zap.Bool("dry_run", cfg.DryRun),
	)
	return s.expirer.ExpireStaleListings(ctx, cfg)
}

// RunAnalyticsNow immediately executes the analytics job (for manual trigger)
func (s *Scheduler) RunAnalyticsNow(ctx context.Context) (*models.DailyAnalytics, error) {
	s.logger.Info("manual trigger: analytics")
	return s.analytics.GenerateDaily(ctx)
}

// ExpiryConfig returns the configured expiry settings
func (s *Scheduler) ExpiryConfig() cleanup.ExpiryConfig {
	cfg := cleanup.DefaultExpiryConfig()
	if s.config.RetentionDays > 0 {
		cfg.RetentionDays = s.config.RetentionDays
	}
	cfg.DryRun = s.config.DryRun
	return cfg
}

func (s *Scheduler) runExpiry(ctx context.Context) {
	result, err := s.expirer.ExpireStaleListings(ctx, s.ExpiryConfig())
	if err != nil {
		s.logger.Error("expiry job failed", zap.Error(err))
		return
	}
	s.logger.Info("expiry job completed", zap.Int("expired", result.ExpiredCount))
}

func (s *Scheduler) runAnalytics(ctx context.Context) {
	record, err := s.analytics.GenerateDaily(ctx)
	if err != nil {
		s.logger.Error("analytics job failed", zap.Error(err))
		return
	}
	s.logger.Info("analytics job completed", zap.String("id", record.ID))
}

// parseDailyRunTime converts HH:MM format to a cron expression
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	// Default to 2:00 AM if parsing fails
	s.logger.Warn("failed to parse daily run time, using 02:00", zap.String("value", timeStr))
	return "0 2 * * *"
}
