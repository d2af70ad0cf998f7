package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meridian-legal/docvault-api/internal/models"
	appErrors "github.com/meridian-legal/docvault-api/pkg/errors"
	"github.com/meridian-legal/docvault-api/pkg/export"
)

const exportPageSize = 100

type exportLinkRepository interface {
	List(ctx context.Context, filter models.LinkFilter) ([]models.DocumentLink, int, error)
}

// ExportService renders link activity reports for the admin channel. Reports
// carry lifecycle metadata only; password hashes are never part of a dataset.
type ExportService struct {
	repo   exportLinkRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportLinkRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// ActivityReport renders the link activity report in the requested format and
// returns the payload with its content type.
func (s *ExportService) ActivityReport(ctx context.Context, status *models.LinkStatus, format string) ([]byte, string, error) {
	if status != nil && !status.Valid() {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", *status))
	}

	report, err := s.buildReport(ctx, status)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case "csv", "":
		payload, err := s.csv.Render(*report)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(*report)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
}

func (s *ExportService) buildReport(ctx context.Context, status *models.LinkStatus) (*export.Report, error) {
	report := &export.Report{
		Title:   "Document Link Activity",
		Columns: []string{"title", "client_name", "status", "created_at", "expires_at", "accessed_at", "completed_at"},
	}

	offset := 0
	for {
		links, total, err := s.repo.List(ctx, models.LinkFilter{Status: status, Limit: exportPageSize, Offset: offset})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load links for export")
		}

		for _, link := range links {
			report.Rows = append(report.Rows, []string{
				link.Title,
				link.ClientName,
				string(link.Status),
				formatTime(&link.CreatedAt),
				formatTime(link.ExpiresAt),
				formatTime(link.AccessedAt),
				formatTime(link.CompletedAt),
			})
		}

		offset += len(links)
		if len(links) == 0 || offset >= total {
			break
		}
	}

	return report, nil
}

func formatTime(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
