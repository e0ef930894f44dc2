package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders Dataset records into delimited bytes.
type CSVExporter struct {
	comma   rune
	useCRLF bool
}

// NewCSVExporter builds a comma separated exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{comma: ','}
}

// NewTimetableCSVExporter matches the layout of the timetable export: semicolons and CRLF rows.
func NewTimetableCSVExporter() *CSVExporter {
	return &CSVExporter{comma: ';', useCRLF: true}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.comma
	writer.UseCRLF = e.useCRLF
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
