package dto

import "github.com/acadflow/acadflow-api/internal/models"

// CreateStudentLeaveRequest opens a daily leave request for the caller.
type CreateStudentLeaveRequest struct {
	Reason string `json:"reason"`
}

// ResubmitStudentLeaveRequest re-enters a resubmittable denial into review,
// optionally attaching an uploaded supporting document by object key.
type ResubmitStudentLeaveRequest struct {
	Reason    string `json:"reason" validate:"required"`
	ObjectKey string `json:"object_key"`
}

// StudentLeaveQuery mirrors supported listing filters.
type StudentLeaveQuery struct {
	Status    []models.StudentLeaveStatus
	StudentID string
}
