package importer

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/noah-isme/infopanel-api/internal/models"
)

// Header is the column row of the timetable layout.
var Header = []string{
	"from_date", "to_date", "weekday", "from_time", "to_time", "room",
	"class_name", "subject", "teacher", "department", "building", "event_id",
}

// Record renders an event in timetable column order.
func Record(e models.Event) []string {
	record := make([]string, fieldCount)
	record[colFromDate] = e.FromDatetime.Format("02.01.2006")
	record[colToDate] = e.ToDatetime.Format("02.01.2006")
	record[colWeekday] = e.FromDatetime.Weekday().String()[:3]
	record[colFromTime] = e.FromDatetime.Format(timeLayout)
	record[colToTime] = e.ToDatetime.Format(timeLayout)
	record[colRoom] = e.Room
	record[colClassName] = e.ClassName
	record[colSubject] = e.Subject
	record[colTeacher] = e.Teacher
	record[colDepartment] = e.Department
	record[colBuilding] = e.Building
	record[colEventID] = strconv.FormatUint(e.EventID, 10)
	return record
}

// Encode converts text into the labelled encoding. Runes the encoding
// cannot represent are replaced.
func Encode(text, label string) ([]byte, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, &DecodeError{Kind: KindUnknownEncoding, Source: label, Err: err}
	}
	return encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(text))
}
