package dto

import "github.com/acadflow/acadflow-api/internal/models"

// SignupRequest is the public registration payload. Accounts start PENDING
// and must be approved before login succeeds.
type SignupRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=STUDENT TEACHER HOD ADMIN"`
}

// SignupQuery filters pending signup listings.
type SignupQuery struct {
	Role models.UserRole
}
