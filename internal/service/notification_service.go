package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/acadflow/acadflow-api/internal/models"
	"github.com/acadflow/acadflow-api/pkg/config"
	"github.com/acadflow/acadflow-api/pkg/jobs"
	"github.com/acadflow/acadflow-api/pkg/mailer"
)

type notificationStore interface {
	ListPending(ctx context.Context, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, maxAttempts int) error
}

type mailSender interface {
	Send(kind mailer.Kind, recipient string, context map[string]string) error
}

type deliveryMetrics interface {
	RecordOutboxDelivery(success bool)
}

// NotificationService drains the durable outbox through a worker queue and
// delivers mail over SMTP. Delivery is at-least-once from the outbox and
// never touches the workflow state that produced the row.
type NotificationService struct {
	repo    notificationStore
	mail    mailSender
	queue   *jobs.Queue
	cfg     config.NotificationsConfig
	logger  *zap.Logger
	metrics deliveryMetrics

	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotificationService constructs the dispatcher.
func NewNotificationService(repo notificationStore, mail mailSender, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = 15 * time.Second
	}
	s := &NotificationService{repo: repo, mail: mail, cfg: cfg, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// SetMetrics attaches delivery counters. Optional.
func (s *NotificationService) SetMetrics(m deliveryMetrics) {
	s.metrics = m
}

// Start launches the queue workers and the periodic outbox drain.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("notification dispatch disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.queue.Start(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.DrainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.drain(ctx)
			}
		}
	}()
}

// Stop halts the drain loop and waits for in-flight deliveries.
func (s *NotificationService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.queue.Stop()
}

// Drain runs one outbox pass immediately. Exposed for tests and shutdown.
func (s *NotificationService) Drain(ctx context.Context) {
	s.drain(ctx)
}

func (s *NotificationService) drain(ctx context.Context) {
	pending, err := s.repo.ListPending(ctx, s.cfg.BatchSize)
	if err != nil {
		s.logger.Warn("failed to list pending notifications", zap.Error(err))
		return
	}
	for _, n := range pending {
		job := jobs.Job{ID: n.ID, Type: n.Kind, Payload: n}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue notification job", zap.String("id", n.ID), zap.Error(err))
		}
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload type", zap.String("job_id", job.ID))
		return nil
	}

	mailCtx := map[string]string{}
	if len(n.Payload) > 0 {
		if err := json.Unmarshal(n.Payload, &mailCtx); err != nil {
			s.logger.Warn("notification payload is not a string map", zap.String("id", n.ID), zap.Error(err))
		}
	}

	if err := s.mail.Send(mailer.Kind(n.Kind), n.Recipient, mailCtx); err != nil {
		if s.metrics != nil {
			s.metrics.RecordOutboxDelivery(false)
		}
		if markErr := s.repo.MarkFailed(ctx, n.ID, s.cfg.MaxRetries); markErr != nil {
			s.logger.Warn("failed to record delivery failure", zap.String("id", n.ID), zap.Error(markErr))
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxDelivery(true)
	}
	if err := s.repo.MarkSent(ctx, n.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to mark notification sent", zap.String("id", n.ID), zap.Error(err))
	}
	return nil
}
