package importer

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/infopanel-api/internal/models"
)

const header = `"Datum von";"Datum bis";"Wochentag";"Zeit von";"Zeit bis";"Raum";"Klasse";"Fach";"Lehrer";"Abteilung";"Gebaeude";"ID"`

const sampleRow = `"14.03.2024";"14.03.2024";"Thu";"08:00";"09:30";"201";"MPA22";"Math";"J. Doe";"SJS";"Building A";"555"`

func TestParseSampleRow(t *testing.T) {
	events, err := Parse(header + "\r\n" + sampleRow + "\r\n")
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, models.Event{
		EventID:      555,
		FromDatetime: models.NewLocalDateTime(2024, 3, 14, 8, 0),
		ToDatetime:   models.NewLocalDateTime(2024, 3, 14, 9, 30),
		Room:         "201",
		ClassName:    "MPA22",
		Subject:      "Math",
		Teacher:      "J. Doe",
		Department:   "SJS",
		Building:     "Building A",
		Visible:      true,
	}, events[0])
	assert.Nil(t, events[0].ModifiedAt)
	assert.Nil(t, events[0].ModifiedBy)
}

func TestParseSkipsHeaderAndBlankLines(t *testing.T) {
	second := `"15.03.2024";"15.03.2024";"Fri";"10:00";"11:00";"105";"MPA23";"German";"A. Roe";"SJS";"Building B";"556"`
	text := header + "\r\n" + sampleRow + "\r\n\r\n \r\n" + second + "\r\n\r\n"

	events, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(555), events[0].EventID)
	assert.Equal(t, uint64(556), events[1].EventID)
}

func TestParseHeaderOnly(t *testing.T) {
	events, err := Parse(header)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseIsAllOrNothing(t *testing.T) {
	cases := map[string]string{
		"too few fields":  `"14.03.2024";"14.03.2024";"Thu";"08:00";"09:30";"201";"MPA22";"Math";"J. Doe";"SJS";"Building A"`,
		"too many fields": sampleRow + `;"extra"`,
		"bad date":        `"2024-03-14";"14.03.2024";"Thu";"08:00";"09:30";"201";"MPA22";"Math";"J. Doe";"SJS";"Building A";"555"`,
		"bad to date":     `"14.03.2024";"31.02.2024";"Thu";"08:00";"09:30";"201";"MPA22";"Math";"J. Doe";"SJS";"Building A";"555"`,
		"bad time":        `"14.03.2024";"14.03.2024";"Thu";"8h";"09:30";"201";"MPA22";"Math";"J. Doe";"SJS";"Building A";"555"`,
		"bad id":          `"14.03.2024";"14.03.2024";"Thu";"08:00";"09:30";"201";"MPA22";"Math";"J. Doe";"SJS";"Building A";"X55"`,
		"negative id":     `"14.03.2024";"14.03.2024";"Thu";"08:00";"09:30";"201";"MPA22";"Math";"J. Doe";"SJS";"Building A";"-5"`,
		"inverted range":  `"14.03.2024";"14.03.2024";"Thu";"10:00";"09:30";"201";"MPA22";"Math";"J. Doe";"SJS";"Building A";"555"`,
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			text := header + "\r\n" + sampleRow + "\r\n" + bad + "\r\n"
			events, err := Parse(text)
			require.Error(t, err)
			assert.Nil(t, events)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, 3, parseErr.Line)
		})
	}
}

func TestParseFieldCountError(t *testing.T) {
	_, err := ParseRow(2, `"a";"b"`)
	assert.ErrorIs(t, err, ErrFieldCount)
	assert.Contains(t, err.Error(), "got 2, want 12")
}

func TestParseAcceptsSingleDigitDayAndHour(t *testing.T) {
	event, err := ParseRow(2, `4.3.2024;4.3.2024;Mon;8:05;9:30;201;MPA22;Math;J. Doe;SJS;Building A;7`)
	require.NoError(t, err)
	assert.Equal(t, models.NewLocalDateTime(2024, 3, 4, 8, 5), event.FromDatetime)
}

func TestParseKeepsFileOrder(t *testing.T) {
	text := header
	for i := 10; i > 0; i-- {
		text += "\r\n" + `"14.03.2024";"14.03.2024";"Thu";"08:00";"09:30";"201";"MPA22";"Math";"J. Doe";"SJS";"Building A";"` + strconv.Itoa(i) + `"`
	}
	events, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, events, 10)
	for i, e := range events {
		assert.Equal(t, uint64(10-i), e.EventID)
	}
}

func TestDecodeThenParseEmbeddedLineBreak(t *testing.T) {
	raw := []byte(header + "\r\n" + `"14.03.2024";"14.03.2024";"Thu";"08:00";"09:30";"201";"MPA22";"Math` + "\r\n" + `Advanced";"J. Doe";"SJS";"Building A";"555"` + "\r\n")
	text, err := Decode(raw, "latin1")
	require.NoError(t, err)

	events, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "MathAdvanced", events[0].Subject)
}
