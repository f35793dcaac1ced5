package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/acadflow/acadflow-api/internal/dto"
	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/mailer"
)

type signupUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Activate(ctx context.Context, id string, verifiedAt time.Time) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type notificationEnqueuer interface {
	Enqueue(ctx context.Context, n *models.Notification) error
}

// SignupService handles registration and the admin approval queue. Accounts
// start PENDING and cannot log in until approved.
type SignupService struct {
	users     signupUserStore
	outbox    notificationEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSignupService constructs the service.
func NewSignupService(users signupUserStore, outbox notificationEnqueuer, validate *validator.Validate, logger *zap.Logger) *SignupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SignupService{users: users, outbox: outbox, validator: validate, logger: logger}
}

// Signup registers a new PENDING account.
func (s *SignupService) Signup(ctx context.Context, req dto.SignupRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Status:       models.UserStatusPending,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionSignup,
		Resource:   "user",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"PENDING"}`),
	})
	return user, nil
}

// ListPending returns accounts awaiting review.
func (s *SignupService) ListPending(ctx context.Context, query dto.SignupQuery, actor *models.JWTClaims) ([]models.User, int, error) {
	if err := requireRole(actor, models.RoleAdmin, models.RoleHOD); err != nil {
		return nil, 0, err
	}
	pending := models.UserStatusPending
	filter := models.UserFilter{Status: &pending}
	if query.Role != "" {
		role := query.Role
		filter.Role = &role
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending signups")
	}
	return users, total, nil
}

// Approve activates a pending account and queues the welcome mail.
func (s *SignupService) Approve(ctx context.Context, userID string, actor *models.JWTClaims) (*models.User, error) {
	if err := requireRole(actor, models.RoleAdmin, models.RoleHOD); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.users.Activate(ctx, userID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "signup not found or already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate user")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activated user")
	}

	payload, _ := json.Marshal(map[string]string{"full_name": user.FullName})
	if err := s.outbox.Enqueue(ctx, &models.Notification{
		Kind:      string(mailer.KindWelcome),
		Recipient: user.Email,
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("failed to enqueue welcome notification", zap.Error(err))
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSignupReview,
		Resource:   "user",
		ResourceID: &userID,
		NewValues:  []byte(`{"decision":"APPROVED"}`),
	})
	return user, nil
}

// Reject removes a pending account and queues the rejection mail.
func (s *SignupService) Reject(ctx context.Context, userID string, actor *models.JWTClaims) error {
	if err := requireRole(actor, models.RoleAdmin, models.RoleHOD); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Status != models.UserStatusPending {
		return appErrors.Clone(appErrors.ErrConflict, "account has already been reviewed")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "signup already removed")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove user")
	}

	payload, _ := json.Marshal(map[string]string{"full_name": user.FullName})
	if err := s.outbox.Enqueue(ctx, &models.Notification{
		Kind:      string(mailer.KindSignupRejected),
		Recipient: user.Email,
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("failed to enqueue rejection notification", zap.Error(err))
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionSignupReview,
		Resource:   "user",
		ResourceID: &userID,
		NewValues:  []byte(`{"decision":"REJECTED"}`),
	})
	return nil
}

func (s *SignupService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "signup-service"
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func requireRole(actor *models.JWTClaims, roles ...models.UserRole) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
