package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/infopanel-api/internal/models"
	"github.com/noah-isme/infopanel-api/internal/repository"
)

// Summary messages reported to operators.
const (
	MessageImportSucceeded = "Successfully updated database with new data."
	MessageReadFailed      = "Could not read csv file"
	MessageParseFailed     = "Could not parse csv file"
	MessagePurgeFailed     = "Could not purge database."
	MessageCreateFailed    = "Purged db, but cannot read in new data."
	MessageImportCancelled = "Import cancelled before completion."
)

// ReconcileStage names the step a reconciliation failed in.
type ReconcileStage string

const (
	StagePurge  ReconcileStage = "purge"
	StageLookup ReconcileStage = "lookup"
	StageCreate ReconcileStage = "create"
)

// StoreError is a transport or query failure reported by the event store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ReconcileError reports the store failure that aborted a reconciliation.
// EventID is zero for purge failures.
type ReconcileError struct {
	Stage   ReconcileStage
	EventID uint64
	Err     *StoreError
}

func (e *ReconcileError) Error() string {
	if e.Stage == StagePurge {
		return fmt.Sprintf("reconcile %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("reconcile %s event %d: %v", e.Stage, e.EventID, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

type eventStore interface {
	FindByID(ctx context.Context, id uint64) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	DeleteAll(ctx context.Context) ([]models.Event, error)
}

// Reconciler replaces the stored event set with a freshly parsed snapshot.
type Reconciler struct {
	store   eventStore
	timeout time.Duration
	logger  *zap.Logger
}

// NewReconciler constructs a Reconciler. A non-positive timeout leaves store
// calls bounded only by the caller's context.
func NewReconciler(store eventStore, timeout time.Duration, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, timeout: timeout, logger: logger}
}

// Reconcile purges every stored event, then inserts the given events in order.
// Events whose id is already present are skipped. The first store failure
// stops the run; rows inserted before it stay in place.
func (r *Reconciler) Reconcile(ctx context.Context, events []models.Event) (models.ImportSummary, error) {
	summary := models.ImportSummary{ParsedCount: len(events)}

	purged, err := r.purge(ctx)
	if err != nil {
		summary.Message = MessagePurgeFailed
		return summary, &ReconcileError{Stage: StagePurge, Err: &StoreError{Op: "delete_all", Err: err}}
	}
	summary.DeletedCount = len(purged)
	r.logger.Sugar().Warnw("purged events", "count", summary.DeletedCount)

	for i := range events {
		event := events[i]
		created, err := r.insert(ctx, &event)
		if err != nil {
			summary.Message = MessageCreateFailed
			return summary, err
		}
		if created {
			summary.CreatedCount++
		} else {
			summary.SkippedCount++
			r.logger.Sugar().Infow("event already present, skipped", "event_id", event.EventID)
		}
	}

	summary.Message = MessageImportSucceeded
	summary.Success = true
	return summary, nil
}

func (r *Reconciler) purge(ctx context.Context) ([]models.Event, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()
	return r.store.DeleteAll(callCtx)
}

func (r *Reconciler) insert(ctx context.Context, event *models.Event) (bool, error) {
	lookupCtx, cancel := r.callContext(ctx)
	_, err := r.store.FindByID(lookupCtx, event.EventID)
	cancel()
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, &ReconcileError{Stage: StageLookup, EventID: event.EventID, Err: &StoreError{Op: "select", Err: err}}
	}

	createCtx, cancel := r.callContext(ctx)
	defer cancel()
	if _, err := r.store.Create(createCtx, event); err != nil {
		if errors.Is(err, repository.ErrEventExists) {
			return false, nil
		}
		return false, &ReconcileError{Stage: StageCreate, EventID: event.EventID, Err: &StoreError{Op: "create", Err: err}}
	}
	return true, nil
}

func (r *Reconciler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
