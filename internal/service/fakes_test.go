package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/infopanel-api/internal/models"
	"github.com/noah-isme/infopanel-api/internal/repository"
)

type memoryEventStore struct {
	mu         sync.Mutex
	events     map[uint64]models.Event
	purgeErr   error
	findErr    error
	createErr  map[uint64]error
	conflictOn map[uint64]bool
	creates    []uint64
}

func newMemoryEventStore(seed ...models.Event) *memoryEventStore {
	s := &memoryEventStore{events: make(map[uint64]models.Event)}
	for _, e := range seed {
		s.events[e.EventID] = e
	}
	return s
}

func (s *memoryEventStore) FindByID(ctx context.Context, id uint64) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	e, ok := s.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s *memoryEventStore) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.createErr[event.EventID]; err != nil {
		return nil, err
	}
	if _, ok := s.events[event.EventID]; ok || s.conflictOn[event.EventID] {
		return nil, repository.ErrEventExists
	}
	s.events[event.EventID] = *event
	s.creates = append(s.creates, event.EventID)
	return event, nil
}

func (s *memoryEventStore) DeleteAll(ctx context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.purgeErr != nil {
		return nil, s.purgeErr
	}
	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	s.events = make(map[uint64]models.Event)
	return out, nil
}

func (s *memoryEventStore) ListAll(ctx context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FromDatetime.Equal(out[j].FromDatetime.Time) {
			return out[i].FromDatetime.Before(out[j].FromDatetime.Time)
		}
		return out[i].EventID < out[j].EventID
	})
	return out, nil
}

func (s *memoryEventStore) Delete(ctx context.Context, id uint64) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(s.events, id)
	return &e, nil
}

func (s *memoryEventStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func testEvent(id uint64, day, hour int) models.Event {
	return models.Event{
		EventID:      id,
		FromDatetime: models.NewLocalDateTime(2024, time.March, day, hour, 0),
		ToDatetime:   models.NewLocalDateTime(2024, time.March, day, hour+1, 30),
		Department:   "SJS",
		ClassName:    "MPA22",
		Subject:      "Math",
		Teacher:      "J. Doe",
		Room:         "201",
		Building:     "Building A",
		Visible:      true,
	}
}
