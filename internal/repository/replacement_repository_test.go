package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
)

func newReplacementRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func offerRows(id, status string, replaceLectureID interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "leave_request_id", "lecture_id", "offerer_id", "accepter_id", "replace_lecture_id", "status", "approver_id", "message", "created_at", "updated_at"}).
		AddRow(id, "leave-1", "lecture-1", "teacher-1", "teacher-2", replaceLectureID, status, nil, nil, time.Now(), time.Now())
}

func TestReplacementRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newReplacementRepoMock(t)
	defer cleanup()

	repo := NewReplacementRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO replacement_offers")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	offer := &models.ReplacementOffer{
		LeaveRequestID: "leave-1",
		LectureID:      "lecture-1",
		OffererID:      "teacher-1",
		AccepterID:     "teacher-2",
	}
	require.NoError(t, repo.Create(context.Background(), offer))
	require.Equal(t, models.OfferStatusPending, offer.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, leave_request_id, lecture_id")).
		WithArgs(offer.ID).
		WillReturnRows(offerRows(offer.ID, "PENDING", nil))

	found, err := repo.GetByID(context.Background(), offer.ID)
	require.NoError(t, err)
	require.Equal(t, offer.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacementRepositoryAcceptFirstWriterWins(t *testing.T) {
	db, mock, cleanup := newReplacementRepoMock(t)
	defer cleanup()

	repo := NewReplacementRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE replacement_offers SET status")).
		WillReturnRows(sqlmock.NewRows([]string{"lecture_id"}).AddRow("lecture-1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM replacement_offers WHERE lecture_id")).
		WithArgs("lecture-1", "offer-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Accept(context.Background(), "offer-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacementRepositoryAcceptAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newReplacementRepoMock(t)
	defer cleanup()

	repo := NewReplacementRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE replacement_offers SET status")).
		WillReturnRows(sqlmock.NewRows([]string{"lecture_id"}))
	mock.ExpectRollback()

	err := repo.Accept(context.Background(), "offer-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacementRepositoryApproveSwapsBothLectures(t *testing.T) {
	db, mock, cleanup := newReplacementRepoMock(t)
	defer cleanup()

	repo := NewReplacementRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, leave_request_id, lecture_id")).
		WithArgs("offer-1").
		WillReturnRows(offerRows("offer-1", "ACCEPTED", "lecture-9"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE replacement_offers SET approver_id")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lectures SET teacher_id")).
		WithArgs("lecture-1", "teacher-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE lectures SET teacher_id")).
		WithArgs("lecture-9", "teacher-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM users")).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("teacher1@school.test"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Approve(context.Background(), "offer-1", "admin-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacementRepositoryApprovePreconditions(t *testing.T) {
	db, mock, cleanup := newReplacementRepoMock(t)
	defer cleanup()

	repo := NewReplacementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, leave_request_id, lecture_id")).
		WithArgs("offer-1").
		WillReturnRows(offerRows("offer-1", "PENDING", "lecture-9"))
	mock.ExpectRollback()
	err := repo.Approve(context.Background(), "offer-1", "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, leave_request_id, lecture_id")).
		WithArgs("offer-2").
		WillReturnRows(offerRows("offer-2", "ACCEPTED", nil))
	mock.ExpectRollback()
	err = repo.Approve(context.Background(), "offer-2", "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacementRepositoryDeclineByPeer(t *testing.T) {
	db, mock, cleanup := newReplacementRepoMock(t)
	defer cleanup()

	repo := NewReplacementRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE replacement_offers SET status")).
		WillReturnRows(sqlmock.NewRows([]string{"offerer_id"}).AddRow("teacher-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM users")).
		WithArgs("teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("teacher1@school.test"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeclineByPeer(context.Background(), "offer-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
