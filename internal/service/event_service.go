package service

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/infopanel-api/internal/dto"
	"github.com/noah-isme/infopanel-api/internal/models"
	"github.com/noah-isme/infopanel-api/internal/repository"
	appErrors "github.com/noah-isme/infopanel-api/pkg/errors"
)

const (
	eventsCacheKey     = "events:all"
	eventsCachePattern = "events:*"
)

type eventRepository interface {
	ListAll(ctx context.Context) ([]models.Event, error)
	FindByID(ctx context.Context, id uint64) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	Delete(ctx context.Context, id uint64) (*models.Event, error)
}

type eventCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// EventService serves the read, filter and manual edit use cases.
type EventService struct {
	repo      eventRepository
	cache     eventCache
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
	newID     func() uint64
}

// NewEventService constructs an EventService. cache may be nil.
func NewEventService(repo eventRepository, cache eventCache, validate *validator.Validate, cacheTTL time.Duration, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
		now:       time.Now,
		newID:     newEventID,
	}
}

// List returns every event ordered by start time.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, eventsCacheKey, &events)
		if err == nil && hit {
			if events == nil {
				events = []models.Event{}
			}
			return events, nil
		}
	}

	events, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, eventsCacheKey, events, s.cacheTTL)
	}
	return events, nil
}

// Filter returns the events matching every set field of the filter.
func (s *EventService) Filter(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	events, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(events), nil
}

// ByTime returns events starting at or after from and ending at or before to.
// Nil bounds are open.
func (s *EventService) ByTime(ctx context.Context, from, to *models.LocalDateTime) ([]models.Event, error) {
	return s.Filter(ctx, models.EventFilter{From: from, To: to})
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id uint64) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create stores a manually entered event on behalf of actor.
func (s *EventService) Create(ctx context.Context, req dto.CreateEventRequest, actor string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if req.ToDatetime.Before(req.FromDatetime.Time) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to_datetime must not be before from_datetime")
	}

	modifiedAt := models.LocalDateTimeOf(s.now())
	modifiedBy := actor
	if req.ModifiedBy != nil && *req.ModifiedBy != "" {
		modifiedBy = *req.ModifiedBy
	}
	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	event := &models.Event{
		EventID:      s.newID(),
		FromDatetime: *req.FromDatetime,
		ToDatetime:   *req.ToDatetime,
		Department:   req.Department,
		ClassName:    req.ClassName,
		Subject:      req.Subject,
		Teacher:      req.Teacher,
		Room:         req.Room,
		Building:     req.Building,
		ModifiedAt:   &modifiedAt,
		ModifiedBy:   &modifiedBy,
		Visible:      visible,
	}

	created, err := s.repo.Create(ctx, event)
	if err != nil {
		if errors.Is(err, repository.ErrEventExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "event id already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.invalidate(ctx)
	s.logger.Sugar().Infow("event created", "event_id", created.EventID, "modified_by", modifiedBy)
	return created, nil
}

// Delete removes one event and returns it.
func (s *EventService) Delete(ctx context.Context, id uint64) (*models.Event, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	s.invalidate(ctx)
	s.logger.Sugar().Infow("event deleted", "event_id", id)
	return deleted, nil
}

func (s *EventService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, eventsCachePattern); err != nil {
		s.logger.Sugar().Warnw("failed to invalidate event cache", "error", err)
	}
}

// newEventID derives a positive 63-bit id from a random UUID.
func newEventID() uint64 {
	u := uuid.New()
	return binary.BigEndian.Uint64(u[:8]) & math.MaxInt64
}
