package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/infopanel-api/internal/dto"
	"github.com/noah-isme/infopanel-api/internal/models"
	appErrors "github.com/noah-isme/infopanel-api/pkg/errors"
)

type mapCache struct {
	values      map[string][]models.Event
	gets        int
	invalidated []string
}

func (m *mapCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.gets++
	v, ok := m.values[key]
	if !ok {
		return false, nil
	}
	*(dest.(*[]models.Event)) = v
	return true, nil
}

func (m *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]models.Event)
	}
	m.values[key] = value.([]models.Event)
	return nil
}

func (m *mapCache) Invalidate(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	m.values = nil
	return nil
}

func strPtr(s string) *string { return &s }

func createRequest(from, to *models.LocalDateTime, subject string) dto.CreateEventRequest {
	return dto.CreateEventRequest{
		FromDatetime: from,
		ToDatetime:   to,
		Department:   "SJS",
		ClassName:    "MPA22",
		Subject:      subject,
		Teacher:      "J. Doe",
		Room:         "Aula",
		Building:     "Building A",
	}
}

func newTestEventService(store *memoryEventStore, cache eventCache) *EventService {
	svc := NewEventService(store, cache, nil, time.Minute, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 7, 15, 0, 0, time.UTC) }
	svc.newID = func() uint64 { return 4242 }
	return svc
}

func TestEventServiceListUsesCache(t *testing.T) {
	store := newMemoryEventStore(testEvent(2, 5, 8), testEvent(1, 4, 8))
	cache := &mapCache{}
	svc := newTestEventService(store, cache)

	events, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].EventID)

	store.events = map[uint64]models.Event{}
	cached, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestEventServiceFilterEquality(t *testing.T) {
	other := testEvent(3, 4, 12)
	other.Teacher = "A. Smith"
	other.Visible = false
	store := newMemoryEventStore(testEvent(1, 4, 8), testEvent(2, 5, 8), other)
	svc := newTestEventService(store, nil)

	events, err := svc.Filter(context.Background(), models.EventFilter{Teacher: strPtr("J. Doe")})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	hidden := false
	events, err = svc.Filter(context.Background(), models.EventFilter{Visible: &hidden, Building: strPtr("Building A")})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(3), events[0].EventID)
}

func TestEventServiceByTimeIsInclusive(t *testing.T) {
	store := newMemoryEventStore(testEvent(1, 4, 8), testEvent(2, 5, 8), testEvent(3, 6, 8))
	svc := newTestEventService(store, nil)

	from := models.NewLocalDateTime(2024, time.March, 5, 8, 0)
	to := models.NewLocalDateTime(2024, time.March, 6, 9, 30)
	events, err := svc.ByTime(context.Background(), &from, &to)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(2), events[0].EventID)
	assert.Equal(t, uint64(3), events[1].EventID)
}

func TestEventServiceGetNotFound(t *testing.T) {
	svc := newTestEventService(newMemoryEventStore(), nil)

	_, err := svc.Get(context.Background(), 1)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestEventServiceCreate(t *testing.T) {
	store := newMemoryEventStore()
	cache := &mapCache{}
	svc := newTestEventService(store, cache)
	from := models.NewLocalDateTime(2024, time.March, 4, 8, 0)
	to := models.NewLocalDateTime(2024, time.March, 4, 9, 0)

	created, err := svc.Create(context.Background(), createRequest(&from, &to, "Assembly"), "admin")
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), created.EventID)
	assert.True(t, created.Visible)
	require.NotNil(t, created.ModifiedBy)
	assert.Equal(t, "admin", *created.ModifiedBy)
	require.NotNil(t, created.ModifiedAt)
	assert.Equal(t, "2024-03-01T07:15:00", created.ModifiedAt.String())
	assert.Equal(t, []string{eventsCachePattern}, cache.invalidated)
}

func TestEventServiceCreateUsesPayloadAuthor(t *testing.T) {
	svc := newTestEventService(newMemoryEventStore(), nil)
	from := models.NewLocalDateTime(2024, time.March, 4, 8, 0)
	hidden := false

	req := createRequest(&from, &from, "Exam")
	req.Visible = &hidden
	req.ModifiedBy = strPtr("secretary")
	created, err := svc.Create(context.Background(), req, "admin")
	require.NoError(t, err)
	assert.Equal(t, "secretary", *created.ModifiedBy)
	assert.False(t, created.Visible)
}

func TestEventServiceCreateValidation(t *testing.T) {
	svc := newTestEventService(newMemoryEventStore(), nil)
	from := models.NewLocalDateTime(2024, time.March, 4, 9, 0)
	to := models.NewLocalDateTime(2024, time.March, 4, 8, 0)

	emptyRoom := createRequest(&to, &from, "Exam")
	emptyRoom.Room = ""
	emptyTeacher := createRequest(&to, &from, "Exam")
	emptyTeacher.Teacher = ""

	cases := map[string]dto.CreateEventRequest{
		"missing bounds":  createRequest(nil, nil, "Exam"),
		"inverted range":  createRequest(&from, &to, "Exam"),
		"missing subject": createRequest(&to, &from, ""),
		"empty room":      emptyRoom,
		"empty teacher":   emptyTeacher,
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), req, "admin")
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, http.StatusBadRequest, appErr.Status)
		})
	}
}

func TestEventServiceCreateConflict(t *testing.T) {
	store := newMemoryEventStore(testEvent(4242, 4, 8))
	svc := newTestEventService(store, nil)
	from := models.NewLocalDateTime(2024, time.March, 4, 8, 0)

	_, err := svc.Create(context.Background(), createRequest(&from, &from, "Exam"), "admin")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestEventServiceDelete(t *testing.T) {
	store := newMemoryEventStore(testEvent(1, 4, 8))
	cache := &mapCache{}
	svc := newTestEventService(store, cache)

	deleted, err := svc.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), deleted.EventID)
	assert.Zero(t, store.len())
	assert.Equal(t, []string{eventsCachePattern}, cache.invalidated)

	_, err = svc.Delete(context.Background(), 1)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestNewEventIDFitsSignedColumn(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.LessOrEqual(t, newEventID(), uint64(1<<63-1))
	}
}
