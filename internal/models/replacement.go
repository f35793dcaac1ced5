package models

import "time"

// OfferStatus captures the replacement offer workflow states.
type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "PENDING"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	OfferStatusDeclined OfferStatus = "DECLINED"
)

// ReplacementOffer proposes that the offerer covers the accepter's lecture.
// ReplaceLectureID optionally names the offerer's own lecture given up in
// exchange; admin approval swaps both teacher assignments atomically.
type ReplacementOffer struct {
	ID               string      `db:"id" json:"id"`
	LeaveRequestID   string      `db:"leave_request_id" json:"leave_request_id"`
	LectureID        string      `db:"lecture_id" json:"lecture_id"`
	OffererID        string      `db:"offerer_id" json:"offerer_id"`
	AccepterID       string      `db:"accepter_id" json:"accepter_id"`
	ReplaceLectureID *string     `db:"replace_lecture_id" json:"replace_lecture_id,omitempty"`
	Status           OfferStatus `db:"status" json:"status"`
	ApproverID       *string     `db:"approver_id" json:"approver_id,omitempty"`
	Message          *string     `db:"message" json:"message,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// OfferFilter constrains replacement offer listings.
type OfferFilter struct {
	Status     []OfferStatus
	LectureID  string
	OffererID  string
	AccepterID string
	Limit      int
	Offset     int
}
