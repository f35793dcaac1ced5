package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/acadflow/acadflow-api/internal/dto"
	"github.com/acadflow/acadflow-api/internal/models"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/mailer"
)

type signupStoreStub struct {
	users map[string]*models.User
	audit []*models.AuditLog
}

func newSignupStoreStub() *signupStoreStub {
	return &signupStoreStub{users: make(map[string]*models.User)}
}

func (s *signupStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *signupStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *signupStoreStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	result := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		if filter.Status != nil && user.Status != *filter.Status {
			continue
		}
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		result = append(result, *user)
	}
	return result, len(result), nil
}

func (s *signupStoreStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = user
	return nil
}

func (s *signupStoreStub) Activate(ctx context.Context, id string, verifiedAt time.Time) error {
	user, ok := s.users[id]
	if !ok || user.Status != models.UserStatusPending {
		return sql.ErrNoRows
	}
	user.Status = models.UserStatusActive
	user.EmailVerifiedAt = &verifiedAt
	return nil
}

func (s *signupStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.users, id)
	return nil
}

func (s *signupStoreStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.audit = append(s.audit, log)
	return nil
}

type outboxStub struct {
	queued []*models.Notification
}

func (s *outboxStub) Enqueue(ctx context.Context, n *models.Notification) error {
	s.queued = append(s.queued, n)
	return nil
}

func validSignup(email string) dto.SignupRequest {
	return dto.SignupRequest{
		Email:    email,
		Password: "s3cret-pass",
		FullName: "Test Account",
		Role:     models.RoleTeacher,
	}
}

func TestSignupServiceSignupStartsPending(t *testing.T) {
	store := newSignupStoreStub()
	svc := NewSignupService(store, &outboxStub{}, nil, nil)

	user, err := svc.Signup(context.Background(), validSignup("New@Example.COM"))
	require.NoError(t, err)
	require.Equal(t, models.UserStatusPending, user.Status)
	require.Equal(t, "new@example.com", user.Email)
	require.NotEqual(t, "s3cret-pass", user.PasswordHash)

	_, err = svc.Signup(context.Background(), validSignup("new@example.com"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSignupServiceApproveActivatesAndQueuesWelcome(t *testing.T) {
	store := newSignupStoreStub()
	outbox := &outboxStub{}
	svc := NewSignupService(store, outbox, nil, nil)

	user, err := svc.Signup(context.Background(), validSignup("new@example.com"))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), user.ID, teacherClaims("teacher-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	approved, err := svc.Approve(context.Background(), user.ID, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, models.UserStatusActive, approved.Status)
	require.NotNil(t, approved.EmailVerifiedAt)
	require.Len(t, outbox.queued, 1)
	require.Equal(t, string(mailer.KindWelcome), outbox.queued[0].Kind)
	require.Equal(t, "new@example.com", outbox.queued[0].Recipient)

	// a second review of the same signup is rejected
	_, err = svc.Approve(context.Background(), user.ID, adminClaims("admin-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSignupServiceRejectRemovesAndQueuesMail(t *testing.T) {
	store := newSignupStoreStub()
	outbox := &outboxStub{}
	svc := NewSignupService(store, outbox, nil, nil)

	user, err := svc.Signup(context.Background(), validSignup("new@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.Reject(context.Background(), user.ID, hodClaims("hod-1")))
	require.NotContains(t, store.users, user.ID)
	require.Len(t, outbox.queued, 1)
	require.Equal(t, string(mailer.KindSignupRejected), outbox.queued[0].Kind)

	err = svc.Reject(context.Background(), user.ID, hodClaims("hod-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSignupServiceListPendingFiltersByRole(t *testing.T) {
	store := newSignupStoreStub()
	svc := NewSignupService(store, &outboxStub{}, nil, nil)

	_, err := svc.Signup(context.Background(), validSignup("teacher@example.com"))
	require.NoError(t, err)
	student := validSignup("student@example.com")
	student.Role = models.RoleStudent
	_, err = svc.Signup(context.Background(), student)
	require.NoError(t, err)

	all, total, err := svc.ListPending(context.Background(), dto.SignupQuery{}, adminClaims("admin-1"))
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, all, 2)

	teachers, _, err := svc.ListPending(context.Background(), dto.SignupQuery{Role: models.RoleTeacher}, hodClaims("hod-1"))
	require.NoError(t, err)
	require.Len(t, teachers, 1)

	_, _, err = svc.ListPending(context.Background(), dto.SignupQuery{}, studentClaims("student-1"))
	require.Error(t, err)
}
