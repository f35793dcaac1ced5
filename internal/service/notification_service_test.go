package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acadflow/acadflow-api/internal/models"
	"github.com/acadflow/acadflow-api/pkg/config"
	"github.com/acadflow/acadflow-api/pkg/jobs"
	"github.com/acadflow/acadflow-api/pkg/mailer"
)

type notificationStoreStub struct {
	mu      sync.Mutex
	pending []models.Notification
	sent    []string
	failed  []string
}

func (s *notificationStoreStub) ListPending(ctx context.Context, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.pending) {
		limit = len(s.pending)
	}
	out := make([]models.Notification, limit)
	copy(out, s.pending[:limit])
	return out, nil
}

func (s *notificationStoreStub) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return nil
}

func (s *notificationStoreStub) MarkFailed(ctx context.Context, id string, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	return nil
}

type mailSenderStub struct {
	mu   sync.Mutex
	fail bool
	sent []string
}

func (s *mailSenderStub) Send(kind mailer.Kind, recipient string, context map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, recipient)
	return nil
}

type metricsStub struct {
	mu        sync.Mutex
	successes int
	failures  int
}

func (m *metricsStub) RecordOutboxDelivery(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.successes++
	} else {
		m.failures++
	}
}

func notificationJob(id string) jobs.Job {
	n := models.Notification{
		ID:        id,
		Kind:      string(mailer.KindWelcome),
		Recipient: "teacher@example.com",
		Payload:   []byte(`{"full_name":"Test Account"}`),
		Status:    models.NotificationStatusPending,
	}
	return jobs.Job{ID: n.ID, Type: n.Kind, Payload: n}
}

func TestNotificationServiceHandleMarksSent(t *testing.T) {
	store := &notificationStoreStub{}
	mail := &mailSenderStub{}
	metrics := &metricsStub{}
	svc := NewNotificationService(store, mail, config.NotificationsConfig{Enabled: true}, nil)
	svc.SetMetrics(metrics)

	err := svc.handle(context.Background(), notificationJob("n-1"))
	require.NoError(t, err)
	require.Equal(t, []string{"teacher@example.com"}, mail.sent)
	require.Equal(t, []string{"n-1"}, store.sent)
	require.Empty(t, store.failed)
	require.Equal(t, 1, metrics.successes)
}

func TestNotificationServiceHandleMarksFailedAndRetries(t *testing.T) {
	store := &notificationStoreStub{}
	mail := &mailSenderStub{fail: true}
	metrics := &metricsStub{}
	svc := NewNotificationService(store, mail, config.NotificationsConfig{Enabled: true, MaxRetries: 2}, nil)
	svc.SetMetrics(metrics)

	err := svc.handle(context.Background(), notificationJob("n-1"))
	require.Error(t, err)
	require.Empty(t, store.sent)
	require.Equal(t, []string{"n-1"}, store.failed)
	require.Equal(t, 1, metrics.failures)
}

func TestNotificationServiceDrainDeliversPendingBatch(t *testing.T) {
	store := &notificationStoreStub{pending: []models.Notification{
		{ID: "n-1", Kind: string(mailer.KindWelcome), Recipient: "a@example.com"},
		{ID: "n-2", Kind: string(mailer.KindLeaveApproved), Recipient: "b@example.com"},
	}}
	mail := &mailSenderStub{}
	svc := NewNotificationService(store, mail, config.NotificationsConfig{
		Enabled:       true,
		Workers:       1,
		BatchSize:     10,
		DrainInterval: time.Hour,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	svc.Drain(ctx)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 2
	}, 2*time.Second, 10*time.Millisecond)

	svc.Stop()
	require.ElementsMatch(t, []string{"n-1", "n-2"}, store.sent)
}
