package models

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a daily wall-clock time in 24-hour form.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an HH:MM value.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, expected HH:MM", raw)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On anchors the time of day to the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// RefreshSchedule is the scheduler's view of the next daily import.
type RefreshSchedule struct {
	ConfiguredTime TimeOfDay `json:"configured_time"`
	NextFireAt     time.Time `json:"next_fire_at"`
}
