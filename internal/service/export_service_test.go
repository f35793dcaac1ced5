package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/export"
)

type leaveHistoryStub struct {
	rows []models.LeaveHistoryRow
}

func (s *leaveHistoryStub) LeaveHistory(ctx context.Context) ([]models.LeaveHistoryRow, error) {
	return s.rows, nil
}

func ptrString(s string) *string {
	return &s
}

func newExportServiceForTest(enabled bool) *ExportService {
	store := &leaveHistoryStub{rows: []models.LeaveHistoryRow{
		{
			ID:            "leave-1",
			RequesterName: "Jane Roe",
			SubjectName:   "Mathematics",
			LectureDate:   time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			Status:        "APPROVED",
			ApproverName:  ptrString("Head Admin"),
			CreatedAt:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:            "leave-2",
			RequesterName: "John Doe",
			SubjectName:   "Physics",
			LectureDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			Status:        "REJECTED",
			CreatedAt:     time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC),
		},
	}}
	return NewExportService(store, export.NewCSVExporter(), export.NewPDFExporter(), enabled, nil)
}

func TestExportServiceLeaveHistoryCSV(t *testing.T) {
	svc := newExportServiceForTest(true)

	result, err := svc.LeaveHistory(context.Background(), "csv", adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.ContentType)
	require.Contains(t, result.Filename, ".csv")
	require.Contains(t, string(result.Data), "Jane Roe")
	require.Contains(t, string(result.Data), "2026-03-10")

	// empty format defaults to csv
	fallback, err := svc.LeaveHistory(context.Background(), "", adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, "text/csv", fallback.ContentType)
}

func TestExportServiceLeaveHistoryPDF(t *testing.T) {
	svc := newExportServiceForTest(true)

	result, err := svc.LeaveHistory(context.Background(), "pdf", adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, "application/pdf", result.ContentType)
	require.True(t, bytes.HasPrefix(result.Data, []byte("%PDF")))
}

func TestExportServiceLeaveHistoryAccess(t *testing.T) {
	svc := newExportServiceForTest(true)

	_, err := svc.LeaveHistory(context.Background(), "csv", hodClaims("hod-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.LeaveHistory(context.Background(), "xlsx", adminClaims("admin-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	disabled := newExportServiceForTest(false)
	_, err = disabled.LeaveHistory(context.Background(), "csv", adminClaims("admin-1"))
	require.Error(t, err)
}
