package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadflow/acadflow-api/internal/dto"
	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/storage"
)

type studentLeaveStore interface {
	Create(ctx context.Context, req *models.StudentLeaveRequest) error
	GetByID(ctx context.Context, id string) (*models.StudentLeaveRequest, error)
	HasLeaveOn(ctx context.Context, studentID string, day time.Time) (bool, error)
	List(ctx context.Context, filter models.StudentLeaveFilter) ([]models.StudentLeaveRequest, error)
	Approve(ctx context.Context, requestID string) error
	Reject(ctx context.Context, requestID string) error
	Resubmit(ctx context.Context, requestID, reason, objectKey string) (string, error)
	GetApplication(ctx context.Context, id string) (*models.ApplicationLeave, error)
}

type documentStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
}

// SignedDocumentURL pairs a token with its expiry for upload/view responses.
type SignedDocumentURL struct {
	Token     string    `json:"token"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StudentLeaveService orchestrates daily student leave: one request per
// student per day, HOD/admin review, and document-backed resubmission after
// a first denial.
type StudentLeaveService struct {
	repo      studentLeaveStore
	store     documentStorage
	signer    *storage.SignedURLSigner
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentLeaveService constructs the service.
func NewStudentLeaveService(repo studentLeaveStore, store documentStorage, signer *storage.SignedURLSigner, audit auditTrail, validate *validator.Validate, logger *zap.Logger) *StudentLeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentLeaveService{repo: repo, store: store, signer: signer, audit: audit, validator: validate, logger: logger}
}

// Create opens a PENDING leave request for today. The store-level unique
// constraint makes a concurrent duplicate fail with ErrDuplicateDailyLeave.
func (s *StudentLeaveService) Create(ctx context.Context, req dto.CreateStudentLeaveRequest, actor *models.JWTClaims) (*models.StudentLeaveRequest, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "N/A"
	}

	leave := &models.StudentLeaveRequest{
		StudentID: actor.UserID,
		Reason:    reason,
		LeaveDate: time.Now().UTC(),
		Status:    models.StudentLeaveStatusPending,
	}
	if err := s.repo.Create(ctx, leave); err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrDuplicateDailyLeave.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	return leave, nil
}

// HasLeaveToday reports whether the student already filed for today.
func (s *StudentLeaveService) HasLeaveToday(ctx context.Context, actor *models.JWTClaims) (bool, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return false, err
	}
	exists, err := s.repo.HasLeaveOn(ctx, actor.UserID, time.Now().UTC())
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check daily leave")
	}
	return exists, nil
}

// List returns student leave requests visible to the actor. Students see
// their own; HODs and admins see everything.
func (s *StudentLeaveService) List(ctx context.Context, query dto.StudentLeaveQuery, actor *models.JWTClaims) ([]models.StudentLeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.StudentLeaveFilter{Status: query.Status}
	switch actor.Role {
	case models.RoleAdmin, models.RoleHOD:
		filter.StudentID = query.StudentID
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return requests, nil
}

// Approve moves a pending request to APPROVED.
func (s *StudentLeaveService) Approve(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.StudentLeaveRequest, error) {
	if err := requireRole(actor, models.RoleHOD, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.repo.Approve(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "leave request is not pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve leave request")
	}
	s.emitAudit(ctx, actor, requestID, "APPROVED")
	return s.reload(ctx, requestID)
}

// Reject denies a pending request. Without an attached document the request
// stays resubmittable (DENIED); with one it becomes terminal (DENIED_FINAL).
func (s *StudentLeaveService) Reject(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.StudentLeaveRequest, error) {
	if err := requireRole(actor, models.RoleHOD, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.repo.Reject(ctx, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrPreconditionFailed.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject leave request")
	}
	s.emitAudit(ctx, actor, requestID, "REJECTED")
	return s.reload(ctx, requestID)
}

// Resubmit returns a resubmittable denial to review with its supporting
// document attached.
func (s *StudentLeaveService) Resubmit(ctx context.Context, requestID string, req dto.ResubmitStudentLeaveRequest, actor *models.JWTClaims) (*models.StudentLeaveRequest, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resubmission payload")
	}

	leave, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if leave.StudentID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}

	objectKey := req.ObjectKey
	if objectKey == "" {
		objectKey = storage.DocumentKey(requestID)
	}

	if _, err := s.repo.Resubmit(ctx, requestID, strings.TrimSpace(req.Reason), objectKey); err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrLeaveFinalized.Code ||
			appErr.Code == appErrors.ErrPreconditionFailed.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resubmit leave request")
	}
	s.emitAudit(ctx, actor, requestID, "RESUBMITTED")
	return s.reload(ctx, requestID)
}

// UploadURL returns a short-lived write token for the request's document.
// Only the owning student may upload, and only while the request is in a
// resubmittable state.
func (s *StudentLeaveService) UploadURL(ctx context.Context, requestID string, actor *models.JWTClaims) (*SignedDocumentURL, error) {
	if err := requireRole(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	leave, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if leave.StudentID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if !leave.Resubmittable() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request does not accept document uploads")
	}

	key := storage.DocumentKey(requestID)
	token, expiresAt, err := s.signer.Generate(key, storage.CapabilityWrite)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign upload token")
	}
	return &SignedDocumentURL{Token: token, ObjectKey: key, ExpiresAt: expiresAt}, nil
}

// ViewURL returns a short-lived read token for the attached document.
func (s *StudentLeaveService) ViewURL(ctx context.Context, requestID string, actor *models.JWTClaims) (*SignedDocumentURL, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	leave, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleHOD:
	case models.RoleStudent:
		if leave.StudentID != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	if leave.ApplicationID == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no document attached to the leave request")
	}

	app, err := s.repo.GetApplication(ctx, *leave.ApplicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document record")
	}
	token, expiresAt, err := s.signer.Generate(app.ObjectKey, storage.CapabilityRead)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign view token")
	}
	return &SignedDocumentURL{Token: token, ObjectKey: app.ObjectKey, ExpiresAt: expiresAt}, nil
}

// StoreDocument validates a write token and streams the uploaded document
// into local storage, returning the object key.
func (s *StudentLeaveService) StoreDocument(token string, body io.Reader) (string, error) {
	objectKey, cap, _, err := s.signer.Parse(token)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid upload token")
	}
	if cap != storage.CapabilityWrite {
		return "", appErrors.Clone(appErrors.ErrForbidden, "token does not permit uploads")
	}
	if _, err := s.store.SaveStream(objectKey, body); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	return objectKey, nil
}

// OpenDocument validates a read token and opens the stored document.
func (s *StudentLeaveService) OpenDocument(token string) (*os.File, string, error) {
	objectKey, cap, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid view token")
	}
	if cap != storage.CapabilityRead {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "token does not permit reads")
	}
	rc, err := s.store.Open(objectKey)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "document not found")
	}
	return rc, objectKey, nil
}

func (s *StudentLeaveService) reload(ctx context.Context, requestID string) (*models.StudentLeaveRequest, error) {
	leave, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload leave request")
	}
	return leave, nil
}

func (s *StudentLeaveService) emitAudit(ctx context.Context, actor *models.JWTClaims, requestID, decision string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"decision": decision})
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionStudentLeave,
		Resource:   "student_leave_request",
		ResourceID: &requestID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "student-leave-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
