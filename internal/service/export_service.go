package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/infopanel-api/internal/importer"
	"github.com/noah-isme/infopanel-api/internal/models"
	appErrors "github.com/noah-isme/infopanel-api/pkg/errors"
	"github.com/noah-isme/infopanel-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type eventFilterer interface {
	Filter(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	// Encoding of CSV output, matching the import source so exports can be re-imported.
	Encoding string
	Title    string
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders filtered event sets as CSV or PDF.
type ExportService struct {
	events eventFilterer
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	cfg    ExportConfig
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(events eventFilterer, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewTimetableCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if cfg.Title == "" {
		cfg.Title = "Infopanel timetable"
	}
	return &ExportService{events: events, csv: csv, pdf: pdf, logger: logger, cfg: cfg, now: time.Now}
}

// Export renders the events matching filter in the requested format.
func (s *ExportService) Export(ctx context.Context, filter models.EventFilter, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	events, err := s.events.Filter(ctx, filter)
	if err != nil {
		return nil, err
	}
	dataset := buildDataset(events)
	filename := fmt.Sprintf("events_%s.%s", s.now().UTC().Format("20060102_150405"), format)

	switch format {
	case ExportFormatPDF:
		body, err := s.pdf.Render(dataset, s.cfg.Title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: filename, ContentType: "application/pdf", Body: body}, nil
	default:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		contentType := "text/csv; charset=utf-8"
		if s.cfg.Encoding != "" {
			if body, err = importer.Encode(string(body), s.cfg.Encoding); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode csv")
			}
			contentType = "text/csv; charset=" + s.cfg.Encoding
		}
		s.logger.Debug("events exported", zap.Int("rows", len(events)), zap.String("format", format))
		return &ExportFile{Filename: filename, ContentType: contentType, Body: body}, nil
	}
}

func buildDataset(events []models.Event) export.Dataset {
	rows := make([]map[string]string, 0, len(events))
	for _, event := range events {
		record := importer.Record(event)
		row := make(map[string]string, len(record))
		for i, header := range importer.Header {
			row[header] = record[i]
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: importer.Header, Rows: rows}
}
