package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// LocalDateTimeLayout is the wire format of naive timestamps.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

var localDateTimeInputs = []string{LocalDateTimeLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}

// LocalDateTime is a wall-clock timestamp without zone information.
// The wrapped time is always stored in UTC so that comparisons stay on the wall clock.
type LocalDateTime struct {
	time.Time
}

// NewLocalDateTime builds a naive timestamp from calendar and clock parts.
func NewLocalDateTime(year int, month time.Month, day, hour, minute int) LocalDateTime {
	return LocalDateTime{Time: time.Date(year, month, day, hour, minute, 0, 0, time.UTC)}
}

// CombineDateTime joins the date of d with the clock of t.
func CombineDateTime(d, t time.Time) LocalDateTime {
	return LocalDateTime{Time: time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// LocalDateTimeOf drops the zone of t and keeps its wall clock.
func LocalDateTimeOf(t time.Time) LocalDateTime {
	return LocalDateTime{Time: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// ParseLocalDateTime accepts the wire format with or without seconds.
func ParseLocalDateTime(raw string) (LocalDateTime, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range localDateTimeInputs {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return LocalDateTime{Time: t}, nil
		}
	}
	return LocalDateTime{}, fmt.Errorf("invalid datetime %q, expected %s", raw, LocalDateTimeLayout)
}

func (t LocalDateTime) String() string {
	return t.Time.Format(LocalDateTimeLayout)
}

// MarshalJSON implements json.Marshaler.
func (t LocalDateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *LocalDateTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*t = LocalDateTime{}
		return nil
	}
	parsed, err := ParseLocalDateTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer.
func (t LocalDateTime) Value() (driver.Value, error) {
	return t.Time, nil
}

// Scan implements sql.Scanner.
func (t *LocalDateTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = LocalDateTimeOf(v)
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	case nil:
		*t = LocalDateTime{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into LocalDateTime", src)
	}
}

func (t *LocalDateTime) scanString(raw string) error {
	parsed, err := ParseLocalDateTime(strings.Replace(raw, " ", "T", 1))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Event is one scheduled occurrence on the infopanel.
type Event struct {
	EventID      uint64         `db:"event_id" json:"event_id"`
	FromDatetime LocalDateTime  `db:"from_datetime" json:"from_datetime"`
	ToDatetime   LocalDateTime  `db:"to_datetime" json:"to_datetime"`
	Department   string         `db:"department" json:"department"`
	ClassName    string         `db:"class_name" json:"class_name"`
	Subject      string         `db:"subject" json:"subject"`
	Teacher      string         `db:"teacher" json:"teacher"`
	Room         string         `db:"room" json:"room"`
	Building     string         `db:"building" json:"building"`
	ModifiedAt   *LocalDateTime `db:"modified_at" json:"modified_at"`
	ModifiedBy   *string        `db:"modified_by" json:"modified_by"`
	Visible      bool           `db:"visible" json:"visible"`
}

// EventFilter narrows the event set. Nil fields do not constrain.
type EventFilter struct {
	Department *string
	ClassName  *string
	Subject    *string
	Teacher    *string
	Room       *string
	Building   *string
	Visible    *bool
	From       *LocalDateTime
	To         *LocalDateTime
}

// Match reports whether the event satisfies every set constraint.
func (f EventFilter) Match(e Event) bool {
	if !matchString(f.Department, e.Department) ||
		!matchString(f.ClassName, e.ClassName) ||
		!matchString(f.Subject, e.Subject) ||
		!matchString(f.Teacher, e.Teacher) ||
		!matchString(f.Room, e.Room) ||
		!matchString(f.Building, e.Building) {
		return false
	}
	if f.Visible != nil && *f.Visible != e.Visible {
		return false
	}
	if f.From != nil && e.FromDatetime.Before(f.From.Time) {
		return false
	}
	if f.To != nil && e.ToDatetime.After(f.To.Time) {
		return false
	}
	return true
}

// Apply returns the matching events in their original order.
func (f EventFilter) Apply(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func matchString(want *string, got string) bool {
	return want == nil || *want == got
}
