package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
)

func newStudentLeaveRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentLeaveRows(id, status string, applicationID interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "reason", "leave_date", "status", "application_id", "created_at", "updated_at"}).
		AddRow(id, "student-1", "sick", time.Now().UTC().Truncate(24*time.Hour), status, applicationID, time.Now(), time.Now())
}

func TestStudentLeaveRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentLeaveRepoMock(t)
	defer cleanup()

	repo := NewStudentLeaveRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_leave_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.StudentLeaveRequest{StudentID: "student-1", Reason: "sick", LeaveDate: time.Now()}
	require.NoError(t, repo.Create(context.Background(), req))
	require.Equal(t, models.StudentLeaveStatusPending, req.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentLeaveRepositoryCreateDuplicateDay(t *testing.T) {
	db, mock, cleanup := newStudentLeaveRepoMock(t)
	defer cleanup()

	repo := NewStudentLeaveRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_leave_requests")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "student_leave_requests_student_id_leave_date_key"})

	req := &models.StudentLeaveRequest{StudentID: "student-1", Reason: "sick", LeaveDate: time.Now()}
	err := repo.Create(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrDuplicateDailyLeave)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentLeaveRepositoryApprove(t *testing.T) {
	db, mock, cleanup := newStudentLeaveRepoMock(t)
	defer cleanup()

	repo := NewStudentLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE student_leave_requests SET status")).
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("student-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM users")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("student1@school.test"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Approve(context.Background(), "leave-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentLeaveRepositoryRejectFirstTimeStaysResubmittable(t *testing.T) {
	db, mock, cleanup := newStudentLeaveRepoMock(t)
	defer cleanup()

	repo := NewStudentLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, reason")).
		WithArgs("leave-1").
		WillReturnRows(studentLeaveRows("leave-1", "PENDING", nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_leave_requests SET status")).
		WithArgs("leave-1", models.StudentLeaveStatusDenied, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM users")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("student1@school.test"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Reject(context.Background(), "leave-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentLeaveRepositoryRejectWithDocumentIsFinal(t *testing.T) {
	db, mock, cleanup := newStudentLeaveRepoMock(t)
	defer cleanup()

	repo := NewStudentLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, reason")).
		WithArgs("leave-1").
		WillReturnRows(studentLeaveRows("leave-1", "PENDING", "app-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_leave_requests SET status")).
		WithArgs("leave-1", models.StudentLeaveStatusDeniedFinal, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM users")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("student1@school.test"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Reject(context.Background(), "leave-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentLeaveRepositoryResubmitAttachesDocument(t *testing.T) {
	db, mock, cleanup := newStudentLeaveRepoMock(t)
	defer cleanup()

	repo := NewStudentLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, reason")).
		WithArgs("leave-1").
		WillReturnRows(studentLeaveRows("leave-1", "DENIED", nil))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO application_leaves")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_leave_requests SET reason")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	appID, err := repo.Resubmit(context.Background(), "leave-1", "sick, doctor note attached", "students/leave-1")
	require.NoError(t, err)
	require.NotEmpty(t, appID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentLeaveRepositoryResubmitFinalizedFails(t *testing.T) {
	db, mock, cleanup := newStudentLeaveRepoMock(t)
	defer cleanup()

	repo := NewStudentLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, reason")).
		WithArgs("leave-1").
		WillReturnRows(studentLeaveRows("leave-1", "DENIED_FINAL", "app-1"))
	mock.ExpectRollback()

	_, err := repo.Resubmit(context.Background(), "leave-1", "again", "students/leave-1")
	require.ErrorIs(t, err, appErrors.ErrLeaveFinalized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentLeaveRepositoryResubmitWithDocumentAlreadyAttached(t *testing.T) {
	db, mock, cleanup := newStudentLeaveRepoMock(t)
	defer cleanup()

	repo := NewStudentLeaveRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, reason")).
		WithArgs("leave-1").
		WillReturnRows(studentLeaveRows("leave-1", "DENIED", "app-1"))
	mock.ExpectRollback()

	_, err := repo.Resubmit(context.Background(), "leave-1", "again", "students/leave-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
