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
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
)

type replacementStore interface {
	Create(ctx context.Context, offer *models.ReplacementOffer) error
	GetByID(ctx context.Context, id string) (*models.ReplacementOffer, error)
	List(ctx context.Context, filter models.OfferFilter) ([]models.ReplacementOffer, error)
	Approve(ctx context.Context, offerID, approverID string) error
	Decline(ctx context.Context, offerID string) error
	Accept(ctx context.Context, offerID string) error
	DeclineByPeer(ctx context.Context, offerID string) error
}

type replacementLeaveStore interface {
	GetByID(ctx context.Context, id string) (*models.LeaveRequest, error)
}

type replacementLectureStore interface {
	GetByID(ctx context.Context, id string) (*models.Lecture, error)
}

type scheduleInvalidator interface {
	Invalidate(ctx context.Context)
}

// ReplacementService orchestrates the replacement offer workflow: the teacher
// going on leave proposes a cover, the peer accepts or declines, and the
// admin finalizes the accepted offer by swapping both teacher assignments.
type ReplacementService struct {
	repo      replacementStore
	leaves    replacementLeaveStore
	lectures  replacementLectureStore
	audit     auditTrail
	schedule  scheduleInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// SetScheduleInvalidator attaches the cached schedule so approvals can drop
// stale windows. Optional.
func (s *ReplacementService) SetScheduleInvalidator(inv scheduleInvalidator) {
	s.schedule = inv
}

// NewReplacementService constructs the service.
func NewReplacementService(repo replacementStore, leaves replacementLeaveStore, lectures replacementLectureStore, audit auditTrail, validate *validator.Validate, logger *zap.Logger) *ReplacementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReplacementService{repo: repo, leaves: leaves, lectures: lectures, audit: audit, validator: validate, logger: logger}
}

// Create registers a PENDING offer against an open leave request. The offer
// is created by the teacher on leave and addressed to the covering peer.
func (s *ReplacementService) Create(ctx context.Context, req dto.CreateOfferRequest, actor *models.JWTClaims) (*models.ReplacementOffer, error) {
	if err := requireRole(actor, models.RoleTeacher); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offer payload")
	}
	if req.AccepterID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot offer a replacement to yourself")
	}

	leave, err := s.leaves.GetByID(ctx, req.LeaveRequestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if leave.RequesterID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "leave request does not belong to the offerer")
	}
	if leave.Status == models.LeaveStatusApproved || leave.Status == models.LeaveStatusDenied {
		return nil, appErrors.Clone(appErrors.ErrConflict, "leave request has already been finalized")
	}
	if leave.LectureID != req.LectureID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecture does not match the leave request")
	}

	if req.ReplaceLectureID != nil {
		swapBack, err := s.lectures.GetByID(ctx, *req.ReplaceLectureID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "swap-back lecture not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load swap-back lecture")
		}
		if swapBack.TeacherID != req.AccepterID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "swap-back lecture is not assigned to the accepter")
		}
	}

	offer := &models.ReplacementOffer{
		LeaveRequestID:   req.LeaveRequestID,
		LectureID:        req.LectureID,
		OffererID:        actor.UserID,
		AccepterID:       req.AccepterID,
		ReplaceLectureID: req.ReplaceLectureID,
		Status:           models.OfferStatusPending,
	}
	if message := strings.TrimSpace(req.Message); message != "" {
		offer.Message = &message
	}
	if err := s.repo.Create(ctx, offer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create replacement offer")
	}
	return offer, nil
}

// List returns offers visible to the actor. Teachers see offers they made or
// received; HODs and admins see everything.
func (s *ReplacementService) List(ctx context.Context, query dto.OfferQuery, actor *models.JWTClaims) ([]models.ReplacementOffer, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.OfferFilter{Status: query.Status, LectureID: query.LectureID}
	switch actor.Role {
	case models.RoleAdmin, models.RoleHOD:
		offers, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offers")
		}
		return offers, nil
	case models.RoleTeacher:
		made := filter
		made.OffererID = actor.UserID
		received := filter
		received.AccepterID = actor.UserID
		offersMade, err := s.repo.List(ctx, made)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offers")
		}
		offersReceived, err := s.repo.List(ctx, received)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offers")
		}
		return append(offersMade, offersReceived...), nil
	default:
		return nil, appErrors.ErrForbidden
	}
}

// Accept records the peer's acceptance. Only the addressed accepter may
// accept; once one offer on a lecture is accepted, the siblings are removed
// and later acceptances conflict.
func (s *ReplacementService) Accept(ctx context.Context, offerID string, actor *models.JWTClaims) (*models.ReplacementOffer, error) {
	if err := requireRole(actor, models.RoleTeacher); err != nil {
		return nil, err
	}
	offer, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.AccepterID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "offer is not addressed to you")
	}
	if err := s.repo.Accept(ctx, offerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "offer has already been decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept offer")
	}
	s.emitAudit(ctx, actor, offerID, "ACCEPTED")
	return s.loadOffer(ctx, offerID)
}

// DeclineByPeer records the peer turning the offer down.
func (s *ReplacementService) DeclineByPeer(ctx context.Context, offerID string, actor *models.JWTClaims) error {
	if err := requireRole(actor, models.RoleTeacher); err != nil {
		return err
	}
	offer, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.AccepterID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "offer is not addressed to you")
	}
	if err := s.repo.DeclineByPeer(ctx, offerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "offer has already been decided")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decline offer")
	}
	s.emitAudit(ctx, actor, offerID, "PEER_DECLINED")
	return nil
}

// Approve finalizes an accepted offer: both lecture assignments swap in one
// transaction and the offerer is notified.
func (s *ReplacementService) Approve(ctx context.Context, offerID string, actor *models.JWTClaims) (*models.ReplacementOffer, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.repo.Approve(ctx, offerID, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrPreconditionFailed.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve offer")
	}
	if s.schedule != nil {
		s.schedule.Invalidate(ctx)
	}
	s.emitAudit(ctx, actor, offerID, "APPROVED")
	return s.loadOffer(ctx, offerID)
}

// Decline records the admin declining the offer.
func (s *ReplacementService) Decline(ctx context.Context, offerID string, actor *models.JWTClaims) (*models.ReplacementOffer, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.repo.Decline(ctx, offerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decline offer")
	}
	s.emitAudit(ctx, actor, offerID, "DECLINED")
	return s.loadOffer(ctx, offerID)
}

func (s *ReplacementService) loadOffer(ctx context.Context, offerID string) (*models.ReplacementOffer, error) {
	offer, err := s.repo.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offer")
	}
	return offer, nil
}

func (s *ReplacementService) emitAudit(ctx context.Context, actor *models.JWTClaims, offerID, decision string) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"decision": decision})
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionReplacementReview,
		Resource:   "replacement_offer",
		ResourceID: &offerID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "replacement-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
