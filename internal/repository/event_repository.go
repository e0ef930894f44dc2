package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/infopanel-api/internal/models"
)

// EventsSchema creates the events table used by the infopanel.
const EventsSchema = `CREATE TABLE IF NOT EXISTS events (
	event_id      BIGINT PRIMARY KEY,
	from_datetime TIMESTAMP NOT NULL,
	to_datetime   TIMESTAMP NOT NULL,
	department    TEXT NOT NULL,
	class_name    TEXT NOT NULL,
	subject       TEXT NOT NULL,
	teacher       TEXT NOT NULL,
	room          TEXT NOT NULL,
	building      TEXT NOT NULL,
	modified_at   TIMESTAMP NULL,
	modified_by   TEXT NULL,
	visible       BOOLEAN NOT NULL DEFAULT TRUE,
	CHECK (from_datetime <= to_datetime)
)`

// ErrEventExists signals that an event with the same id is already stored.
var ErrEventExists = errors.New("event already exists")

const eventColumns = `event_id, from_datetime, to_datetime, department, class_name, subject, teacher, room, building, modified_at, modified_by, visible`

// EventRepository persists timetable events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByID loads an event. It returns sql.ErrNoRows when absent.
func (r *EventRepository) FindByID(ctx context.Context, id uint64) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts the event and returns the stored row. An id collision
// yields ErrEventExists and leaves the stored row untouched.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event == nil {
		return nil, fmt.Errorf("event payload is nil")
	}
	query := `INSERT INTO events (` + eventColumns + `)
VALUES (:event_id, :from_datetime, :to_datetime, :department, :class_name, :subject, :teacher, :room, :building, :modified_at, :modified_by, :visible)
ON CONFLICT (event_id) DO NOTHING
RETURNING ` + eventColumns
	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, event)
	if err != nil {
		return nil, fmt.Errorf("insert event %d: %w", event.EventID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("insert event %d: %w", event.EventID, err)
		}
		return nil, ErrEventExists
	}
	var created models.Event
	if err := rows.StructScan(&created); err != nil {
		return nil, fmt.Errorf("scan created event %d: %w", event.EventID, err)
	}
	return &created, nil
}

// DeleteAll removes every event and returns what was removed.
func (r *EventRepository) DeleteAll(ctx context.Context) ([]models.Event, error) {
	query := `DELETE FROM events RETURNING ` + eventColumns
	var deleted []models.Event
	if err := r.db.SelectContext(ctx, &deleted, query); err != nil {
		return nil, fmt.Errorf("purge events: %w", err)
	}
	return deleted, nil
}

// ListAll returns every event ordered by start.
func (r *EventRepository) ListAll(ctx context.Context) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY from_datetime ASC, event_id ASC`
	events := make([]models.Event, 0)
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Delete removes one event and returns it. It returns sql.ErrNoRows when absent.
func (r *EventRepository) Delete(ctx context.Context, id uint64) (*models.Event, error) {
	query := `DELETE FROM events WHERE event_id = $1 RETURNING ` + eventColumns
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete event %d: %w", id, err)
	}
	return &event, nil
}
