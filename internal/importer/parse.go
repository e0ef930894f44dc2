package importer

import (
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/infopanel-api/internal/models"
)

const (
	rowSeparator   = "\r\n"
	fieldSeparator = ";"
	fieldCount     = 12

	dateLayout = "2.1.2006"
	timeLayout = "15:04"
)

// Column positions in the export.
const (
	colFromDate = iota
	colToDate
	colWeekday
	colFromTime
	colToTime
	colRoom
	colClassName
	colSubject
	colTeacher
	colDepartment
	colBuilding
	colEventID
)

// Parse turns decoded export text into events. The first row is a header.
// Any malformed row fails the whole parse and no events are returned.
func Parse(text string) ([]models.Event, error) {
	lines := strings.Split(text, rowSeparator)
	events := make([]models.Event, 0, len(lines))
	for idx, line := range lines {
		if idx == 0 || len(strings.TrimSpace(line)) <= 1 {
			continue
		}
		event, err := ParseRow(idx+1, line)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// ParseRow validates a single data row. lineNo is only used for error context.
func ParseRow(lineNo int, line string) (models.Event, error) {
	fields := strings.Split(strings.ReplaceAll(line, `"`, ""), fieldSeparator)
	if len(fields) != fieldCount {
		return models.Event{}, &ParseError{Line: lineNo, Row: line, Err: fieldCountError(len(fields))}
	}

	fromDate, err := parseField(lineNo, "from_date", fields[colFromDate], dateLayout)
	if err != nil {
		return models.Event{}, err
	}
	toDate, err := parseField(lineNo, "to_date", fields[colToDate], dateLayout)
	if err != nil {
		return models.Event{}, err
	}
	fromTime, err := parseField(lineNo, "from_time", fields[colFromTime], timeLayout)
	if err != nil {
		return models.Event{}, err
	}
	toTime, err := parseField(lineNo, "to_time", fields[colToTime], timeLayout)
	if err != nil {
		return models.Event{}, err
	}
	id, err := strconv.ParseUint(fields[colEventID], 10, 63)
	if err != nil {
		return models.Event{}, &ParseError{Line: lineNo, Field: "event_id", Value: fields[colEventID], Row: line, Err: err}
	}

	event := models.Event{
		EventID:      id,
		FromDatetime: models.CombineDateTime(fromDate, fromTime),
		ToDatetime:   models.CombineDateTime(toDate, toTime),
		Room:         fields[colRoom],
		ClassName:    fields[colClassName],
		Subject:      fields[colSubject],
		Teacher:      fields[colTeacher],
		Department:   fields[colDepartment],
		Building:     fields[colBuilding],
		Visible:      true,
	}
	if event.ToDatetime.Before(event.FromDatetime.Time) {
		return models.Event{}, &ParseError{Line: lineNo, Field: "to_datetime", Value: event.ToDatetime.String(), Row: line, Err: ErrInvertedRange}
	}
	return event, nil
}

func parseField(lineNo int, name, value, layout string) (time.Time, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, &ParseError{Line: lineNo, Field: name, Value: value, Err: err}
	}
	return t, nil
}

type fieldCountError int

func (n fieldCountError) Error() string {
	return ErrFieldCount.Error() + ": got " + strconv.Itoa(int(n)) + ", want " + strconv.Itoa(fieldCount)
}

func (n fieldCountError) Is(target error) bool {
	return target == ErrFieldCount
}
