package dto

import "github.com/acadflow/acadflow-api/internal/models"

// CreateOfferRequest proposes covering a peer's lecture.
type CreateOfferRequest struct {
	LeaveRequestID   string  `json:"leave_request_id" validate:"required"`
	LectureID        string  `json:"lecture_id" validate:"required"`
	AccepterID       string  `json:"accepter_id" validate:"required"`
	ReplaceLectureID *string `json:"replace_lecture_id,omitempty"`
	Message          string  `json:"message"`
}

// OfferQuery mirrors supported listing filters.
type OfferQuery struct {
	Status    []models.OfferStatus
	LectureID string
}
