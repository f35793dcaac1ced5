package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/export"
)

type leaveHistoryStore interface {
	LeaveHistory(ctx context.Context) ([]models.LeaveHistoryRow, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries rendered bytes plus response metadata.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the leave history as CSV or PDF for admins.
type ExportService struct {
	leaves  leaveHistoryStore
	csv     csvRenderer
	pdf     pdfRenderer
	enabled bool
	logger  *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(leaves leaveHistoryStore, csv csvRenderer, pdf pdfRenderer, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{leaves: leaves, csv: csv, pdf: pdf, enabled: enabled, logger: logger}
}

// LeaveHistory renders the full leave history in the requested format.
func (s *ExportService) LeaveHistory(ctx context.Context, format string, actor *models.JWTClaims) (*ExportResult, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	rows, err := s.leaves.LeaveHistory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave history")
	}
	dataset := buildLeaveHistoryDataset(rows)
	stamp := time.Now().UTC().Format("20060102")

	switch strings.ToLower(format) {
	case "", "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Filename:    "leave-history-" + stamp + ".csv",
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case "pdf":
		data, err := s.pdf.Render(dataset, "Leave History")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Filename:    "leave-history-" + stamp + ".pdf",
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func buildLeaveHistoryDataset(rows []models.LeaveHistoryRow) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Requester", "Subject", "Lecture Date", "Status", "Approver", "Requested At"},
	}
	for _, row := range rows {
		approver := ""
		if row.ApproverName != nil {
			approver = *row.ApproverName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Requester":    row.RequesterName,
			"Subject":      row.SubjectName,
			"Lecture Date": row.LectureDate.Format("2006-01-02"),
			"Status":       row.Status,
			"Approver":     approver,
			"Requested At": row.CreatedAt.Format(time.RFC3339),
		})
	}
	return dataset
}
