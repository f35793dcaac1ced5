package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
)

func newLeaveRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func leaveRows(id, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "lecture_id", "requester_id", "reason", "status", "approver_id", "created_at", "updated_at"}).
		AddRow(id, "lecture-1", "teacher-1", "medical", status, nil, time.Now(), time.Now())
}

func TestLeaveRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leave_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.LeaveRequest{LectureID: "lecture-1", RequesterID: "teacher-1", Reason: "medical"}
	require.NoError(t, repo.Create(context.Background(), req))
	require.NotEmpty(t, req.ID)
	require.Equal(t, models.LeaveStatusPending, req.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lecture_id, requester_id")).
		WithArgs(req.ID).
		WillReturnRows(leaveRows(req.ID, "PENDING"))

	found, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, req.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lecture_id, requester_id")).
		WithArgs("PENDING", "teacher-1").
		WillReturnRows(leaveRows("leave-1", "PENDING"))

	list, err := repo.List(context.Background(), models.LeaveFilter{
		Status:      []models.LeaveStatus{models.LeaveStatusPending},
		RequesterID: "teacher-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "leave-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryMarkHODReviewed(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkHODReviewed(context.Background(), "leave-1", "hod-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkHODReviewed(context.Background(), "leave-1", "hod-1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryApproveFinal(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lecture_id, requester_id")).
		WithArgs("leave-1").
		WillReturnRows(leaveRows("leave-1", "HOD_REVIEWED"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT accepter_id FROM replacement_offers")).
		WithArgs("lecture-1").
		WillReturnRows(sqlmock.NewRows([]string{"accepter_id"}).AddRow("teacher-2"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lectures SET teacher_id")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM users")).
		WithArgs("teacher-2").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("teacher2@school.test"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.ApproveFinal(context.Background(), "leave-1", "admin-1")
	require.NoError(t, err)
	require.Equal(t, "lecture-1", result.LectureID)
	require.Equal(t, "teacher-2", result.NewTeacherID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryApproveFinalRequiresReview(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lecture_id, requester_id")).
		WithArgs("leave-1").
		WillReturnRows(leaveRows("leave-1", "PENDING"))
	mock.ExpectRollback()

	_, err := repo.ApproveFinal(context.Background(), "leave-1", "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryApproveFinalNoCandidateOffer(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lecture_id, requester_id")).
		WithArgs("leave-1").
		WillReturnRows(leaveRows("leave-1", "HOD_REVIEWED"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT accepter_id FROM replacement_offers")).
		WithArgs("lecture-1").
		WillReturnRows(sqlmock.NewRows([]string{"accepter_id"}))
	mock.ExpectRollback()

	_, err := repo.ApproveFinal(context.Background(), "leave-1", "admin-1")
	require.ErrorIs(t, err, appErrors.ErrNoCandidateOffer)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryRejectCascadesOffers(t *testing.T) {
	db, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	repo := NewLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, lecture_id, requester_id")).
		WithArgs("leave-1").
		WillReturnRows(leaveRows("leave-1", "HOD_REVIEWED"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE replacement_offers SET")).
		WithArgs("lecture-1", models.OfferStatusDeclined, "Leave request was denied. Reason: N/A", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM users")).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("teacher1@school.test"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Reject(context.Background(), "leave-1", "admin-1", ""))
	require.NoError(t, mock.ExpectationsWereMet())
}
