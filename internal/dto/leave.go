package dto

import "github.com/acadflow/acadflow-api/internal/models"

// CreateLeaveRequest is a teacher's absence request for one lecture.
type CreateLeaveRequest struct {
	LectureID string `json:"lecture_id" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// LeaveQuery mirrors supported listing filters.
type LeaveQuery struct {
	Status    []models.LeaveStatus
	LectureID string
}
