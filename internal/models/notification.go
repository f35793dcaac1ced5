package models

import "time"

// NotificationStatus tracks outbox delivery state.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// Notification is a durable outbox row written in the same transaction as
// the workflow state change it announces.
type Notification struct {
	ID        string             `db:"id" json:"id"`
	Kind      string             `db:"kind" json:"kind"`
	Recipient string             `db:"recipient" json:"recipient"`
	Payload   []byte             `db:"payload" json:"payload,omitempty"`
	Status    NotificationStatus `db:"status" json:"status"`
	Attempts  int                `db:"attempts" json:"attempts"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	SentAt    *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
}
