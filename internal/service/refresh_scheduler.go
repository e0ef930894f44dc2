package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/infopanel-api/internal/models"
)

type importPipeline interface {
	RunWithTrigger(ctx context.Context, trigger string) models.ImportSummary
}

type refreshTimeSource interface {
	RefreshTime() string
}

// SchedulerConfig tunes the refresh scheduler.
type SchedulerConfig struct {
	TickInterval time.Duration
	Location     *time.Location
	Now          func() time.Time
}

// RefreshScheduler fires the import pipeline once a day at the configured time.
type RefreshScheduler struct {
	pipeline importPipeline
	times    refreshTimeSource
	metrics  *MetricsService
	logger   *zap.Logger
	interval time.Duration
	loc      *time.Location
	now      func() time.Time

	tickMu sync.Mutex
	mu     sync.RWMutex
	state  models.RefreshSchedule
}

// NewRefreshScheduler reads the configured time and anchors the first run
// on the following day.
func NewRefreshScheduler(pipeline importPipeline, times refreshTimeSource, metrics *MetricsService, cfg SchedulerConfig, logger *zap.Logger) (*RefreshScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	raw := times.RefreshTime()
	tod, err := models.ParseTimeOfDay(raw)
	if err != nil {
		return nil, fmt.Errorf("refresh time: %w", err)
	}

	s := &RefreshScheduler{
		pipeline: pipeline,
		times:    times,
		metrics:  metrics,
		logger:   logger,
		interval: cfg.TickInterval,
		loc:      cfg.Location,
		now:      cfg.Now,
	}
	now := s.now().In(s.loc)
	s.state = models.RefreshSchedule{
		ConfiguredTime: tod,
		NextFireAt:     tod.On(now.AddDate(0, 0, 1)),
	}
	s.metrics.SetNextRefresh(s.state.NextFireAt)
	s.logger.Sugar().Infow("refresh scheduled", "time", tod.String(), "next_fire_at", s.state.NextFireAt)
	return s, nil
}

// Schedule returns a copy of the current schedule.
func (s *RefreshScheduler) Schedule() models.RefreshSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Tick re-reads the configured time and runs the import when it is due.
// It reports whether the pipeline ran.
func (s *RefreshScheduler) Tick(ctx context.Context) bool {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.reloadTime()

	now := s.now().In(s.loc)
	due := s.Schedule()
	if now.Before(due.NextFireAt) {
		return false
	}

	summary := s.pipeline.RunWithTrigger(ctx, TriggerScheduled)
	if !summary.Success {
		s.logger.Sugar().Warnw("scheduled import failed, waiting for next slot", "message", summary.Message)
	}

	s.mu.Lock()
	s.state.NextFireAt = s.state.ConfiguredTime.On(now.AddDate(0, 0, 1))
	next := s.state.NextFireAt
	s.mu.Unlock()

	s.metrics.SetNextRefresh(next)
	s.logger.Sugar().Infow("next refresh scheduled", "next_fire_at", next)
	return true
}

func (s *RefreshScheduler) reloadTime() {
	raw := s.times.RefreshTime()
	tod, err := models.ParseTimeOfDay(raw)
	if err != nil {
		s.logger.Sugar().Warnw("ignoring invalid refresh time", "value", raw, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tod == s.state.ConfiguredTime {
		return
	}
	// Keep the pending date and move only the time of day.
	s.state.NextFireAt = tod.On(s.state.NextFireAt)
	previous := s.state.ConfiguredTime
	s.state.ConfiguredTime = tod
	s.metrics.SetNextRefresh(s.state.NextFireAt)
	s.logger.Sugar().Infow("refresh time changed", "from", previous.String(), "to", tod.String(), "next_fire_at", s.state.NextFireAt)
}

// Run ticks on the configured interval until ctx is cancelled. It waits for
// an in-flight tick before returning.
func (s *RefreshScheduler) Run(ctx context.Context) error {
	cronLog := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc("@every "+s.interval.String(), func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("register refresh tick: %w", err)
	}

	c.Start()
	s.logger.Sugar().Infow("refresh scheduler started", "interval", s.interval.String())
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("refresh scheduler stopped")
	return nil
}

type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
