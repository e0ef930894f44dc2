package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/infopanel-api/internal/models"
)

var eventRowColumns = []string{"event_id", "from_datetime", "to_datetime", "department", "class_name", "subject", "teacher", "room", "building", "modified_at", "modified_by", "visible"}

func sampleEvent(id uint64) models.Event {
	return models.Event{
		EventID:      id,
		FromDatetime: models.NewLocalDateTime(2024, time.January, 8, 8, 0),
		ToDatetime:   models.NewLocalDateTime(2024, time.January, 8, 9, 30),
		Department:   "IT",
		ClassName:    "IT21a",
		Subject:      "Netzwerke",
		Teacher:      "Mayer",
		Room:         "R101",
		Building:     "A",
		Visible:      true,
	}
}

func addEventRow(rows *sqlmock.Rows, e models.Event) *sqlmock.Rows {
	return rows.AddRow(int64(e.EventID), e.FromDatetime.Time, e.ToDatetime.Time, e.Department, e.ClassName, e.Subject, e.Teacher, e.Room, e.Building, nil, nil, e.Visible)
}

func TestEventRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	event := sampleEvent(555)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + eventColumns + " FROM events WHERE event_id = $1")).
		WithArgs(int64(555)).
		WillReturnRows(addEventRow(sqlmock.NewRows(eventRowColumns), event))

	found, err := repo.FindByID(context.Background(), 555)
	require.NoError(t, err)
	assert.Equal(t, event, *found)
	assert.Nil(t, found.ModifiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery("SELECT .* FROM events WHERE event_id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	_, err := repo.FindByID(context.Background(), 7)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	event := sampleEvent(42)
	mock.ExpectQuery("INSERT INTO events .* ON CONFLICT \\(event_id\\) DO NOTHING RETURNING").
		WillReturnRows(addEventRow(sqlmock.NewRows(eventRowColumns), event))

	created, err := repo.Create(context.Background(), &event)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), created.EventID)
	assert.Equal(t, "Netzwerke", created.Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	event := sampleEvent(42)
	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	_, err := repo.Create(context.Background(), &event)
	assert.ErrorIs(t, err, ErrEventExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateTransportError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	event := sampleEvent(42)
	mock.ExpectQuery("INSERT INTO events").WillReturnError(sql.ErrConnDone)

	_, err := repo.Create(context.Background(), &event)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.False(t, errors.Is(err, ErrEventExists))
}

func TestEventRepositoryDeleteAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	rows := sqlmock.NewRows(eventRowColumns)
	addEventRow(rows, sampleEvent(1))
	addEventRow(rows, sampleEvent(2))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM events RETURNING " + eventColumns)).WillReturnRows(rows)

	deleted, err := repo.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListAllOrdersByStart(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events ORDER BY from_datetime ASC, event_id ASC")).
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	events, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM events WHERE event_id = $1 RETURNING")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	_, err := repo.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
