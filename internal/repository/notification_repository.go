package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acadflow/acadflow-api/internal/models"
)

// NotificationRepository persists the durable notification outbox.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// enqueueNotification inserts an outbox row using the provided executor so
// workflow repositories can write it inside their own transaction.
func enqueueNotification(ctx context.Context, ext sqlx.ExtContext, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, kind, recipient, payload, status, attempts, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := ext.ExecContext(ctx, query, n.ID, n.Kind, n.Recipient, n.Payload, n.Status, n.Attempts, n.CreatedAt); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Enqueue inserts an outbox row outside any transaction.
func (r *NotificationRepository) Enqueue(ctx context.Context, n *models.Notification) error {
	return enqueueNotification(ctx, r.db, n)
}

// ListPending returns up to limit undelivered notifications, oldest first.
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 25
	}
	const query = `SELECT id, kind, recipient, payload, status, attempts, created_at, sent_at
	FROM notifications WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	var rows []models.Notification
	if err := r.db.SelectContext(ctx, &rows, query, models.NotificationStatusPending, limit); err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return rows, nil
}

// MarkSent records successful delivery.
func (r *NotificationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `UPDATE notifications SET status = $2, sent_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.NotificationStatusSent, sentAt); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed bumps the attempt counter; rows past maxAttempts become FAILED.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id string, maxAttempts int) error {
	const query = `UPDATE notifications SET attempts = attempts + 1,
	status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE status END
	WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, maxAttempts, models.NotificationStatusFailed); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}
