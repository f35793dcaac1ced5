package models

import "time"

// StudentLeaveStatus captures the student leave workflow states.
// DENIED without an attached application is resubmittable; DENIED_FINAL is
// terminal and retained for audit.
type StudentLeaveStatus string

const (
	StudentLeaveStatusPending     StudentLeaveStatus = "PENDING"
	StudentLeaveStatusApproved    StudentLeaveStatus = "APPROVED"
	StudentLeaveStatusDenied      StudentLeaveStatus = "DENIED"
	StudentLeaveStatusDeniedFinal StudentLeaveStatus = "DENIED_FINAL"
)

// StudentLeaveRequest is a student's absence request for a single day.
// (student_id, leave_date) is unique at the store level.
type StudentLeaveRequest struct {
	ID            string             `db:"id" json:"id"`
	StudentID     string             `db:"student_id" json:"student_id"`
	Reason        string             `db:"reason" json:"reason"`
	LeaveDate     time.Time          `db:"leave_date" json:"leave_date"`
	Status        StudentLeaveStatus `db:"status" json:"status"`
	ApplicationID *string            `db:"application_id" json:"application_id,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// Resubmittable reports whether the request may re-enter review.
func (r *StudentLeaveRequest) Resubmittable() bool {
	return r.Status == StudentLeaveStatusDenied && r.ApplicationID == nil
}

// ApplicationLeave records an uploaded supporting document. Rows are never
// mutated after creation.
type ApplicationLeave struct {
	ID             string    `db:"id" json:"id"`
	ApplicantID    string    `db:"applicant_id" json:"applicant_id"`
	StudentLeaveID string    `db:"student_leave_id" json:"student_leave_id"`
	ObjectKey      string    `db:"object_key" json:"object_key"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// StudentLeaveFilter constrains student leave listings.
type StudentLeaveFilter struct {
	Status    []StudentLeaveStatus
	StudentID string
	Limit     int
	Offset    int
}
