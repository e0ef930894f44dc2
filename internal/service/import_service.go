package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/infopanel-api/internal/importer"
	"github.com/noah-isme/infopanel-api/internal/models"
)

// Snapshot names; retention only ever touches files matching snapshotPattern.
const (
	snapshotNameFormat = "events-%s.csv"
	snapshotPattern    = "events-*.csv"
)

// Import triggers used in logs and metrics.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

type eventReconciler interface {
	Reconcile(ctx context.Context, events []models.Event) (models.ImportSummary, error)
}

type snapshotArchive interface {
	Save(filename string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration, pattern string) ([]string, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// ImportConfig tunes the import pipeline.
type ImportConfig struct {
	SourceName       string
	Encoding         string
	ArchiveRetention time.Duration
}

// ImportService runs the read, decode, parse and reconcile pipeline.
// Runs are serialized; a second caller waits for the first to finish.
type ImportService struct {
	source     importer.Source
	reconciler eventReconciler
	archive    snapshotArchive
	cache      cacheInvalidator
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        ImportConfig
	now        func() time.Time

	mu sync.Mutex
}

// NewImportService constructs an ImportService. archive and cache may be nil.
func NewImportService(source importer.Source, reconciler eventReconciler, archive snapshotArchive, cache cacheInvalidator, metrics *MetricsService, cfg ImportConfig, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		source:     source,
		reconciler: reconciler,
		archive:    archive,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run executes one manual import.
func (s *ImportService) Run(ctx context.Context) models.ImportSummary {
	return s.RunWithTrigger(ctx, TriggerManual)
}

// RunWithTrigger executes one import and labels it with the given trigger.
func (s *ImportService) RunWithTrigger(ctx context.Context, trigger string) models.ImportSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	summary, result := s.run(ctx)
	finished := s.now()
	s.metrics.ObserveImport(trigger, result, summary, finished.Sub(start), finished)

	fields := []interface{}{
		"trigger", trigger,
		"result", result,
		"deleted", summary.DeletedCount,
		"parsed", summary.ParsedCount,
		"created", summary.CreatedCount,
		"skipped", summary.SkippedCount,
		"duration", finished.Sub(start).String(),
	}
	if summary.Success {
		s.logger.Sugar().Infow(summary.Message, fields...)
	} else {
		s.logger.Sugar().Errorw(summary.Message, fields...)
	}
	return summary
}

func (s *ImportService) run(ctx context.Context) (models.ImportSummary, string) {
	if err := ctx.Err(); err != nil {
		return models.ImportSummary{Message: MessageImportCancelled}, ImportResultCancelled
	}

	text, raw, err := importer.Load(s.source, s.cfg.SourceName, s.cfg.Encoding)
	if err != nil {
		s.logger.Sugar().Errorw("could not read import source", "source", s.cfg.SourceName, "error", err)
		return models.ImportSummary{Message: MessageReadFailed}, ImportResultReadFailed
	}

	events, err := importer.Parse(text)
	if err != nil {
		var parseErr *importer.ParseError
		if errors.As(err, &parseErr) {
			s.logger.Sugar().Errorw("could not parse import source", "line", parseErr.Line, "field", parseErr.Field, "value", parseErr.Value, "error", err)
		} else {
			s.logger.Sugar().Errorw("could not parse import source", "error", err)
		}
		return models.ImportSummary{Message: MessageParseFailed}, ImportResultParseFailed
	}
	s.saveSnapshot(raw)

	if err := ctx.Err(); err != nil {
		return models.ImportSummary{ParsedCount: len(events), Message: MessageImportCancelled}, ImportResultCancelled
	}

	// Once the purge starts the run must finish; only the per-call store
	// timeout bounds it.
	storeCtx := context.WithoutCancel(ctx)
	summary, err := s.reconciler.Reconcile(storeCtx, events)
	if summary.DeletedCount > 0 || summary.CreatedCount > 0 {
		s.invalidateCache(storeCtx)
	}
	if err != nil {
		var recErr *ReconcileError
		if errors.As(err, &recErr) {
			s.logger.Sugar().Errorw("reconciliation aborted", "stage", recErr.Stage, "event_id", recErr.EventID, "error", recErr.Err)
		} else {
			s.logger.Sugar().Errorw("reconciliation aborted", "error", err)
		}
		return summary, ImportResultStoreFailed
	}
	return summary, ImportResultSuccess
}

func (s *ImportService) saveSnapshot(raw []byte) {
	if s.archive == nil {
		return
	}
	name := fmt.Sprintf(snapshotNameFormat, s.now().UTC().Format("20060102T150405"))
	if _, err := s.archive.Save(name, raw); err != nil {
		s.logger.Sugar().Warnw("failed to archive import snapshot", "file", name, "error", err)
		return
	}
	if s.cfg.ArchiveRetention <= 0 {
		return
	}
	removed, err := s.archive.CleanupOlderThan(s.cfg.ArchiveRetention, snapshotPattern)
	if err != nil {
		s.logger.Sugar().Warnw("snapshot cleanup failed", "error", err)
		return
	}
	if len(removed) > 0 {
		s.logger.Sugar().Infow("expired snapshots removed", "count", len(removed))
	}
}

func (s *ImportService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, eventsCachePattern); err != nil {
		s.logger.Sugar().Warnw("failed to invalidate event cache", "error", err)
	}
}
