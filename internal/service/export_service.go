package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clc-lbu/timetable-api/internal/models"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
	"github.com/clc-lbu/timetable-api/pkg/export"
)

type historySource interface {
	History(ctx context.Context, program models.Program) ([]models.TimetableSummary, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a fully rendered report ready to stream to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the upload history of a program as a CSV or PDF
// report for admin record keeping.
type ExportService struct {
	history historySource
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(history historySource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{history: history, csv: csv, pdf: pdf, logger: logger}
}

// HistoryReport builds and renders the version history of one program.
func (s *ExportService) HistoryReport(ctx context.Context, program models.Program, format string) (*ExportResult, error) {
	if !program.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown program")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	summaries, degraded, err := s.history.History(ctx, program)
	if err != nil {
		return nil, err
	}
	if degraded {
		return nil, appErrors.Clone(appErrors.ErrStoreUnavailable, "history unavailable, try again later")
	}

	dataset := buildHistoryDataset(summaries)
	title := fmt.Sprintf("Timetable History - %s", program.Label())

	var payload []byte
	contentType := "text/csv"
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		contentType = "application/pdf"
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		s.logger.Error("history export failed", zap.String("program", string(program)), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not render history report")
	}

	filename := fmt.Sprintf("timetable_history_%s_%s.%s",
		strings.ToLower(string(program)),
		time.Now().UTC().Format("20060102_150405"),
		format,
	)
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func buildHistoryDataset(summaries []models.TimetableSummary) export.Dataset {
	rows := make([]map[string]string, 0, len(summaries))
	for _, row := range summaries {
		current := "no"
		if row.Current {
			current = "yes"
		}
		rows = append(rows, map[string]string{
			"ID":          fmt.Sprintf("%d", row.ID),
			"Label":       row.Label,
			"Filename":    row.Filename,
			"Uploaded By": row.UploadedBy,
			"Uploaded At": row.UploadedAt.UTC().Format(time.RFC3339),
			"Current":     current,
		})
	}
	return export.Dataset{
		Headers: []string{"ID", "Label", "Filename", "Uploaded By", "Uploaded At", "Current"},
		Rows:    rows,
	}
}
