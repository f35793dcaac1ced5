package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadflow/acadflow-api/internal/dto"
	"github.com/acadflow/acadflow-api/internal/models"
	"github.com/acadflow/acadflow-api/internal/repository"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
)

type leaveStore interface {
	Create(ctx context.Context, req *models.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, error)
	MarkHODReviewed(ctx context.Context, requestID, approverID string) error
	ApproveFinal(ctx context.Context, requestID, approverID string) (*repository.ApproveFinalResult, error)
	Reject(ctx context.Context, requestID, approverID, reason string) error
}

type leaveLectureStore interface {
	GetByID(ctx context.Context, id string) (*models.Lecture, error)
}

// LeaveService orchestrates the teacher leave workflow: a request opens
// against one lecture, the HOD reviews it, and the admin finalizes it by
// handing the lecture to the accepted replacement teacher.
type LeaveService struct {
	repo      leaveStore
	lectures  leaveLectureStore
	audit     auditTrail
	schedule  scheduleInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// SetScheduleInvalidator attaches the cached schedule so final approvals can
// drop stale windows. Optional.
func (s *LeaveService) SetScheduleInvalidator(inv scheduleInvalidator) {
	s.schedule = inv
}

type auditTrail interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// NewLeaveService constructs the service.
func NewLeaveService(repo leaveStore, lectures leaveLectureStore, audit auditTrail, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LeaveService{repo: repo, lectures: lectures, audit: audit, validator: validate, logger: logger}
}

// Create opens a leave request for one of the caller's lectures.
func (s *LeaveService) Create(ctx context.Context, req dto.CreateLeaveRequest, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if err := requireRole(actor, models.RoleTeacher); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}

	lecture, err := s.lectures.GetByID(ctx, req.LectureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecture not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecture")
	}
	if lecture.TeacherID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "lecture is not assigned to the requester")
	}

	leave := &models.LeaveRequest{
		LectureID:   req.LectureID,
		RequesterID: actor.UserID,
		Reason:      strings.TrimSpace(req.Reason),
		Status:      models.LeaveStatusPending,
	}
	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	return leave, nil
}

// List returns leave requests visible to the actor. Teachers see their own
// requests; HODs and admins see everything.
func (s *LeaveService) List(ctx context.Context, query dto.LeaveQuery, actor *models.JWTClaims) ([]models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.LeaveFilter{Status: query.Status, LectureID: query.LectureID}
	switch actor.Role {
	case models.RoleAdmin, models.RoleHOD:
	case models.RoleTeacher:
		filter.RequesterID = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return requests, nil
}

// Get returns a single leave request enforcing scope.
func (s *LeaveService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	leave, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if actor.Role == models.RoleTeacher && leave.RequesterID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return leave, nil
}

// Review advances the leave request one step depending on the actor's role.
// An HOD moves PENDING to HOD_REVIEWED; an admin finalizes a reviewed
// request, which reassigns the lecture to the first offer's accepter.
func (s *LeaveService) Review(ctx context.Context, requestID string, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if err := requireRole(actor, models.RoleHOD, models.RoleAdmin); err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RoleHOD:
		if err := s.repo.MarkHODReviewed(ctx, requestID, actor.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "leave request is not pending")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark leave reviewed")
		}
	case models.RoleAdmin:
		result, err := s.repo.ApproveFinal(ctx, requestID, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrNotFound
			}
			if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrNoCandidateOffer.Code ||
				appErr.Code == appErrors.ErrPreconditionFailed.Code {
				return nil, appErr
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve leave request")
		}
		s.logger.Info("leave approved, lecture reassigned",
			zap.String("leave_request_id", requestID),
			zap.String("lecture_id", result.LectureID),
			zap.String("new_teacher_id", result.NewTeacherID))
		if s.schedule != nil {
			s.schedule.Invalidate(ctx)
		}
	}

	s.emitAudit(ctx, actor, requestID, "REVIEWED")
	return s.reload(ctx, requestID)
}

// Reject denies the leave request and force-declines the offers on its
// lecture.
func (s *LeaveService) Reject(ctx context.Context, requestID, reason string, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	if err := requireRole(actor, models.RoleHOD, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.repo.Reject(ctx, requestID, actor.UserID, strings.TrimSpace(reason)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject leave request")
	}
	s.emitAudit(ctx, actor, requestID, "REJECTED")
	return s.reload(ctx, requestID)
}

func (s *LeaveService) reload(ctx context.Context, requestID string) (*models.LeaveRequest, error) {
	leave, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload leave request")
	}
	return leave, nil
}

func (s *LeaveService) emitAudit(ctx context.Context, actor *models.JWTClaims, requestID, decision string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"decision": decision})
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionLeaveReview,
		Resource:   "leave_request",
		ResourceID: &requestID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "leave-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
