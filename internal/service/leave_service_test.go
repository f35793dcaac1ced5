package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/acadflow/acadflow-api/internal/dto"
	"github.com/acadflow/acadflow-api/internal/models"
	"github.com/acadflow/acadflow-api/internal/repository"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
)

type leaveRepoStub struct {
	leaves       map[string]*models.LeaveRequest
	offerTeacher string
	filter       models.LeaveFilter
}

func newLeaveRepoStub() *leaveRepoStub {
	return &leaveRepoStub{leaves: make(map[string]*models.LeaveRequest)}
}

func (s *leaveRepoStub) Create(ctx context.Context, req *models.LeaveRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	s.leaves[req.ID] = req
	return nil
}

func (s *leaveRepoStub) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	if leave, ok := s.leaves[id]; ok {
		copy := *leave
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *leaveRepoStub) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error) {
	s.filter = filter
	result := make([]models.LeaveRequest, 0, len(s.leaves))
	for _, leave := range s.leaves {
		result = append(result, *leave)
	}
	return result, nil
}

func (s *leaveRepoStub) MarkHODReviewed(ctx context.Context, requestID, approverID string) error {
	leave, ok := s.leaves[requestID]
	if !ok || leave.Status != models.LeaveStatusPending {
		return sql.ErrNoRows
	}
	leave.Status = models.LeaveStatusHODReviewed
	leave.ApproverID = &approverID
	return nil
}

func (s *leaveRepoStub) ApproveFinal(ctx context.Context, requestID, approverID string) (*repository.ApproveFinalResult, error) {
	leave, ok := s.leaves[requestID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if leave.Status != models.LeaveStatusHODReviewed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request has not been reviewed")
	}
	if s.offerTeacher == "" {
		return nil, appErrors.ErrNoCandidateOffer
	}
	leave.Status = models.LeaveStatusApproved
	leave.ApproverID = &approverID
	return &repository.ApproveFinalResult{LectureID: leave.LectureID, NewTeacherID: s.offerTeacher}, nil
}

func (s *leaveRepoStub) Reject(ctx context.Context, requestID, approverID, reason string) error {
	leave, ok := s.leaves[requestID]
	if !ok {
		return sql.ErrNoRows
	}
	leave.Status = models.LeaveStatusDenied
	leave.ApproverID = &approverID
	return nil
}

type lectureStoreStub struct {
	lectures map[string]*models.Lecture
}

func newLectureStoreStub() *lectureStoreStub {
	return &lectureStoreStub{lectures: make(map[string]*models.Lecture)}
}

func (s *lectureStoreStub) GetByID(ctx context.Context, id string) (*models.Lecture, error) {
	if lecture, ok := s.lectures[id]; ok {
		copy := *lecture
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func teacherClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func hodClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleHOD}
}

func adminClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleAdmin}
}

func TestLeaveServiceCreateRequiresOwnLecture(t *testing.T) {
	repo := newLeaveRepoStub()
	lectures := newLectureStoreStub()
	lectures.lectures["lecture-1"] = &models.Lecture{ID: "lecture-1", TeacherID: "teacher-1"}
	svc := NewLeaveService(repo, lectures, &auditStub{}, nil, nil)

	leave, err := svc.Create(context.Background(), dto.CreateLeaveRequest{LectureID: "lecture-1", Reason: "medical"}, teacherClaims("teacher-1"))
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusPending, leave.Status)

	_, err = svc.Create(context.Background(), dto.CreateLeaveRequest{LectureID: "lecture-1", Reason: "medical"}, teacherClaims("teacher-2"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLeaveServiceReviewTwoStep(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.offerTeacher = "teacher-2"
	repo.leaves["leave-1"] = &models.LeaveRequest{ID: "leave-1", LectureID: "lecture-1", RequesterID: "teacher-1", Status: models.LeaveStatusPending}
	svc := NewLeaveService(repo, newLectureStoreStub(), &auditStub{}, nil, nil)

	// admin cannot finalize before the HOD review
	_, err := svc.Review(context.Background(), "leave-1", adminClaims("admin-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	reviewed, err := svc.Review(context.Background(), "leave-1", hodClaims("hod-1"))
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusHODReviewed, reviewed.Status)

	approved, err := svc.Review(context.Background(), "leave-1", adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusApproved, approved.Status)
}

func TestLeaveServiceReviewWithoutOfferFails(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.leaves["leave-1"] = &models.LeaveRequest{ID: "leave-1", LectureID: "lecture-1", RequesterID: "teacher-1", Status: models.LeaveStatusHODReviewed}
	svc := NewLeaveService(repo, newLectureStoreStub(), &auditStub{}, nil, nil)

	_, err := svc.Review(context.Background(), "leave-1", adminClaims("admin-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNoCandidateOffer.Code, appErrors.FromError(err).Code)
	require.Equal(t, models.LeaveStatusHODReviewed, repo.leaves["leave-1"].Status)
}

func TestLeaveServiceListScopesTeacher(t *testing.T) {
	repo := newLeaveRepoStub()
	svc := NewLeaveService(repo, newLectureStoreStub(), &auditStub{}, nil, nil)

	_, err := svc.List(context.Background(), dto.LeaveQuery{}, teacherClaims("teacher-1"))
	require.NoError(t, err)
	require.Equal(t, "teacher-1", repo.filter.RequesterID)

	_, err = svc.List(context.Background(), dto.LeaveQuery{}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Empty(t, repo.filter.RequesterID)

	_, err = svc.List(context.Background(), dto.LeaveQuery{}, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	require.Error(t, err)
}

func TestLeaveServiceReject(t *testing.T) {
	repo := newLeaveRepoStub()
	repo.leaves["leave-1"] = &models.LeaveRequest{ID: "leave-1", LectureID: "lecture-1", RequesterID: "teacher-1", Status: models.LeaveStatusHODReviewed}
	audit := &auditStub{}
	svc := NewLeaveService(repo, newLectureStoreStub(), audit, nil, nil)

	denied, err := svc.Reject(context.Background(), "leave-1", "schedule conflict", adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusDenied, denied.Status)
	require.Len(t, audit.logs, 1)
}
