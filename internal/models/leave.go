package models

import "time"

// LeaveStatus captures the teacher leave workflow states. HOD review is an
// explicit state rather than an implicit approver stamp.
type LeaveStatus string

const (
	LeaveStatusPending     LeaveStatus = "PENDING"
	LeaveStatusHODReviewed LeaveStatus = "HOD_REVIEWED"
	LeaveStatusApproved    LeaveStatus = "APPROVED"
	LeaveStatusDenied      LeaveStatus = "DENIED"
)

// LeaveRequest is a teacher's request to be absent from a specific lecture.
type LeaveRequest struct {
	ID          string      `db:"id" json:"id"`
	LectureID   string      `db:"lecture_id" json:"lecture_id"`
	RequesterID string      `db:"requester_id" json:"requester_id"`
	Reason      string      `db:"reason" json:"reason"`
	Status      LeaveStatus `db:"status" json:"status"`
	ApproverID  *string     `db:"approver_id" json:"approver_id,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// LeaveFilter constrains leave request listings.
type LeaveFilter struct {
	Status      []LeaveStatus
	RequesterID string
	LectureID   string
	Limit       int
	Offset      int
}

// LeaveHistoryRow is the denormalised record used by exports.
type LeaveHistoryRow struct {
	ID            string    `db:"id" json:"id"`
	RequesterName string    `db:"requester_name" json:"requester_name"`
	SubjectName   string    `db:"subject_name" json:"subject_name"`
	LectureDate   time.Time `db:"lecture_date" json:"lecture_date"`
	Status        string    `db:"status" json:"status"`
	ApproverName  *string   `db:"approver_name" json:"approver_name,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
